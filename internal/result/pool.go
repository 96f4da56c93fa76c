package result

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize is the number of tasks that may run at once.
const DefaultPoolSize = 50

var (
	// ErrPoolClosed is returned when submitting to a pool that was shut down
	ErrPoolClosed = errors.New("worker pool is shut down")

	// ErrCancelled resolves a task that was cancelled before it started
	ErrCancelled = errors.New("task cancelled")
)

// Pool runs submitted tasks with bounded concurrency. Submit never blocks:
// each task waits for a slot on its own goroutine.
type Pool struct {
	sem    *semaphore.Weighted
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool that runs at most size tasks concurrently.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), logger: logger}
}

// task states
const (
	taskQueued int32 = iota
	taskRunning
	taskDone
	taskCancelled
)

type task struct {
	mu     sync.Mutex
	state  int32
	ctx    context.Context
	cancel context.CancelFunc
	run    func(ctx context.Context)
	abort  func()
}

// start moves a queued task to running. It fails if the task was cancelled.
func (t *task) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskQueued {
		return false
	}
	t.state = taskRunning
	return true
}

func (t *task) finish() {
	t.mu.Lock()
	t.state = taskDone
	t.mu.Unlock()
}

// tryCancel cancels a task that has not started yet. A running task is left
// alone and runs to completion.
func (t *task) tryCancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskQueued {
		return false
	}
	t.state = taskCancelled
	t.cancel()
	return true
}

// submit schedules run. abort is called instead of run when the task is
// cancelled before it gets a slot.
func (p *Pool) submit(run func(ctx context.Context), abort func()) (*task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{ctx: ctx, cancel: cancel, run: run, abort: abort}

	p.wg.Add(1)
	go p.execute(t)
	return t, nil
}

func (p *Pool) execute(t *task) {
	defer p.wg.Done()
	defer t.cancel()

	if err := p.sem.Acquire(t.ctx, 1); err != nil {
		// Only a cancelled context makes Acquire fail.
		t.abort()
		return
	}
	defer p.sem.Release(1)

	if !t.start() {
		t.abort()
		return
	}
	t.run(t.ctx)
	t.finish()
}

// Go runs fn on the pool without a Result, for fire-and-forget calls.
func (p *Pool) Go(fn func(ctx context.Context)) error {
	_, err := p.submit(fn, func() {})
	return err
}

// Shutdown stops accepting tasks and waits for queued and running ones.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("worker pool drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
