package download

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), t.TempDir(), opts, nil)
}

func writeBody(body string) FetchFunc {
	return func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	}
}

func assertNoStagedFiles(t *testing.T, m *Manager) {
	t.Helper()
	err := filepath.WalkDir(m.staging, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			t.Errorf("unexpected staged file %s", path)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestFetch(t *testing.T) {
	t.Run("downloads and publishes a missing file", func(t *testing.T) {
		m := newTestManager(t, Options{})

		path, err := m.Fetch(context.Background(), "cover_art/al-1", writeBody("jpeg"), false)
		require.NoError(t, err)
		assert.Equal(t, m.Path("cover_art/al-1"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", string(data))
		assert.Equal(t, int64(1), m.Fetches())
		assert.False(t, m.Downloading("cover_art/al-1"))
		assertNoStagedFiles(t, m)
	})

	t.Run("existing file needs no network", func(t *testing.T) {
		m := newTestManager(t, Options{})
		require.NoError(t, os.MkdirAll(m.Path("cover_art"), 0755))
		require.NoError(t, os.WriteFile(m.Path("cover_art/al-1"), []byte("old"), 0644))

		path, err := m.Fetch(context.Background(), "cover_art/al-1", func(ctx context.Context, w io.Writer) error {
			t.Fatal("fetch must not be called")
			return nil
		}, false)
		require.NoError(t, err)
		assert.Equal(t, m.Path("cover_art/al-1"), path)

		cached, ok := m.Cached("cover_art/al-1")
		assert.True(t, ok)
		assert.Equal(t, path, cached)
	})

	t.Run("force replaces an existing file", func(t *testing.T) {
		m := newTestManager(t, Options{})
		_, err := m.Fetch(context.Background(), "a", writeBody("v1"), false)
		require.NoError(t, err)

		path, err := m.Fetch(context.Background(), "a", writeBody("v2"), true)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(data))
		assert.Equal(t, int64(2), m.Fetches())
	})

	t.Run("failure publishes nothing and can be retried", func(t *testing.T) {
		m := newTestManager(t, Options{})
		boom := errors.New("connection reset")

		_, err := m.Fetch(context.Background(), "a", func(ctx context.Context, w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return boom
		}, false)
		assert.ErrorIs(t, err, boom)
		assert.NoFileExists(t, m.Path("a"))
		assert.False(t, m.Downloading("a"))
		assertNoStagedFiles(t, m)

		path, err := m.Fetch(context.Background(), "a", writeBody("complete"), false)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "complete", string(data))
	})
}

func TestConcurrentFetchesShareOneDownload(t *testing.T) {
	m := newTestManager(t, Options{})
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(ctx context.Context, w io.Writer) error {
		calls.Add(1)
		<-release
		_, err := io.WriteString(w, "image")
		return err
	}

	const callers = 8
	paths := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths[i], errs[i] = m.Fetch(context.Background(), "cover_art/x", fetch, false)
		}()
	}

	require.Eventually(t, func() bool { return m.Downloading("cover_art/x") }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"cover_art/x"}, m.InFlight())
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, m.Path("cover_art/x"), paths[i])
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), m.Fetches())
	assert.LessOrEqual(t, m.Coincidences(), int64(callers-1))
	assert.Empty(t, m.InFlight())
}

func TestJoinersSeeTheFailure(t *testing.T) {
	m := newTestManager(t, Options{})
	release := make(chan struct{})
	boom := errors.New("server error")

	fetch := func(ctx context.Context, w io.Writer) error {
		<-release
		return boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.Fetch(context.Background(), "a", fetch, false)
		}()
	}

	require.Eventually(t, func() bool { return m.Downloading("a") }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
	assert.NoFileExists(t, m.Path("a"))
}

func TestCancelledCallerDoesNotAbortDownload(t *testing.T) {
	m := newTestManager(t, Options{})
	release := make(chan struct{})

	fetch := func(ctx context.Context, w io.Writer) error {
		<-release
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := io.WriteString(w, "ok")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Fetch(ctx, "a", fetch, false)
		done <- err
	}()

	require.Eventually(t, func() bool { return m.Downloading("a") }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return !m.Downloading("a") }, time.Second, time.Millisecond)
	assert.FileExists(t, m.Path("a"))
}

func TestConcurrencyLimit(t *testing.T) {
	m := newTestManager(t, Options{Concurrency: 2})
	var running, peak atomic.Int32

	fetch := func(ctx context.Context, w io.Writer) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	}

	var wg sync.WaitGroup
	for _, name := range strings.Split("a b c d e f", " ") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Fetch(context.Background(), name, fetch, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(6), m.Fetches())
}
