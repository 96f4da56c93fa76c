package subsonic

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/sonicache/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Sonicache/1.0"
)

// Client implements domain.Server for Subsonic-compatible servers
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Options tune the HTTP transport
type Options struct {
	DisableCertVerify bool
	Timeout           time.Duration
}

// NewClient creates a new Subsonic API client
func NewClient(baseURL, username, password string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.DisableCertVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed servers
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

// BaseURL returns the server address requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// send performs an authenticated GET against /rest/<endpoint>
func (c *Client) send(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	params := c.authParams()
	for key, values := range query {
		for _, v := range values {
			params.Add(key, v)
		}
	}

	reqURL := fmt.Sprintf("%s/rest/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("subsonic request", "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("subsonic request failed", "endpoint", endpoint, "error", err)
		return nil, domain.ErrServerOffline
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		c.logger.Error("subsonic request error", "endpoint", endpoint, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp, nil
}

// doRequest performs a request and decodes the JSON envelope
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) (*Response, error) {
	resp, err := c.send(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return c.parseResponse(body)
}

// parseResponse decodes the envelope and maps a failed status to an error
func (c *Client) parseResponse(body []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Response.Status != "ok" {
		return nil, mapError(env.Response.Error)
	}
	return &env.Response, nil
}

// stream copies a binary endpoint into w. Servers answer with a JSON error
// document instead of the binary when the request fails.
func (c *Client) stream(ctx context.Context, endpoint string, query url.Values, w io.Writer) error {
	resp, err := c.send(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if _, err := c.parseResponse(body); err != nil {
			return err
		}
		return fmt.Errorf("%s returned no data", endpoint)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read %s: %w", endpoint, err)
	}
	return nil
}

func idQuery(id string) url.Values {
	query := url.Values{}
	query.Set("id", id)
	return query
}

// Ping checks connectivity and credentials
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, "ping", nil)
	return err
}

// GetArtists returns the ID3 artist index
func (c *Client) GetArtists(ctx context.Context) ([]domain.ArtistIndex, error) {
	resp, err := c.doRequest(ctx, "getArtists", nil)
	if err != nil {
		return nil, err
	}
	if resp.Artists == nil {
		return []domain.ArtistIndex{}, nil
	}
	return MapIndexes(resp.Artists.Index), nil
}

// GetIndexes returns the folder-based artist index
func (c *Client) GetIndexes(ctx context.Context) ([]domain.ArtistIndex, error) {
	resp, err := c.doRequest(ctx, "getIndexes", nil)
	if err != nil {
		return nil, err
	}
	if resp.Indexes == nil {
		return []domain.ArtistIndex{}, nil
	}
	return MapIndexes(resp.Indexes.Index), nil
}

// GetArtist returns an artist with its albums
func (c *Client) GetArtist(ctx context.Context, id string) (*domain.ArtistWithAlbums, error) {
	resp, err := c.doRequest(ctx, "getArtist", idQuery(id))
	if err != nil {
		return nil, err
	}
	if resp.Artist == nil {
		return nil, domain.ErrNotFound
	}
	return MapArtistWithAlbums(*resp.Artist), nil
}

// GetArtistInfo2 returns biography and images; the result may be empty
func (c *Client) GetArtistInfo2(ctx context.Context, id string) (*domain.ArtistInfo, error) {
	resp, err := c.doRequest(ctx, "getArtistInfo2", idQuery(id))
	if err != nil {
		return nil, err
	}
	if resp.ArtistInfo2 == nil {
		return &domain.ArtistInfo{}, nil
	}
	return MapArtistInfo(*resp.ArtistInfo2), nil
}

// GetMusicDirectory returns a folder listing
func (c *Client) GetMusicDirectory(ctx context.Context, id string) (*domain.Directory, error) {
	resp, err := c.doRequest(ctx, "getMusicDirectory", idQuery(id))
	if err != nil {
		return nil, err
	}
	if resp.Directory == nil {
		return nil, domain.ErrNotFound
	}
	return MapDirectory(*resp.Directory), nil
}

// GetAlbum returns an album with its songs
func (c *Client) GetAlbum(ctx context.Context, id string) (*domain.AlbumWithSongs, error) {
	resp, err := c.doRequest(ctx, "getAlbum", idQuery(id))
	if err != nil {
		return nil, err
	}
	if resp.Album == nil {
		return nil, domain.ErrNotFound
	}
	return MapAlbumWithSongs(*resp.Album), nil
}

// GetAlbumList2 returns one page of an album list. Callers page with offset.
func (c *Client) GetAlbumList2(ctx context.Context, listType string, size, offset int, opts domain.AlbumListOptions) ([]domain.Album, error) {
	query := url.Values{}
	query.Set("type", listType)
	query.Set("size", strconv.Itoa(size))
	query.Set("offset", strconv.Itoa(offset))
	if opts.FromYear != 0 {
		query.Set("fromYear", strconv.Itoa(opts.FromYear))
	}
	if opts.ToYear != 0 {
		query.Set("toYear", strconv.Itoa(opts.ToYear))
	}
	if opts.Genre != "" {
		query.Set("genre", opts.Genre)
	}
	if opts.MusicFolderID != "" {
		query.Set("musicFolderId", opts.MusicFolderID)
	}

	resp, err := c.doRequest(ctx, "getAlbumList2", query)
	if err != nil {
		return nil, err
	}
	if resp.AlbumList2 == nil {
		return []domain.Album{}, nil
	}
	return MapAlbums(resp.AlbumList2.Album), nil
}

// GetPlaylists returns the user's playlists
func (c *Client) GetPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	resp, err := c.doRequest(ctx, "getPlaylists", nil)
	if err != nil {
		return nil, err
	}
	if resp.Playlists == nil {
		return []domain.Playlist{}, nil
	}
	return MapPlaylists(resp.Playlists.Playlist), nil
}

// Search3 searches artists, albums and songs by ID3 tags
func (c *Client) Search3(ctx context.Context, q string) (*domain.SearchResults, error) {
	query := url.Values{}
	query.Set("query", q)

	resp, err := c.doRequest(ctx, "search3", query)
	if err != nil {
		return nil, err
	}
	if resp.SearchResult3 == nil {
		return &domain.SearchResults{}, nil
	}
	return MapSearchResults(*resp.SearchResult3), nil
}

// Scrobble registers a completed play of a song
func (c *Client) Scrobble(ctx context.Context, songID string) error {
	query := idQuery(songID)
	query.Set("submission", "true")
	_, err := c.doRequest(ctx, "scrobble", query)
	return err
}

// GetPlayQueue returns the saved play queue, or nil when none is saved
func (c *Client) GetPlayQueue(ctx context.Context) (*domain.PlayQueue, error) {
	resp, err := c.doRequest(ctx, "getPlayQueue", nil)
	if err != nil {
		return nil, err
	}
	if resp.PlayQueue == nil {
		return nil, nil
	}
	return MapPlayQueue(*resp.PlayQueue), nil
}

// SavePlayQueue stores the play queue for the current user
func (c *Client) SavePlayQueue(ctx context.Context, songIDs []string, current string, position time.Duration) error {
	query := url.Values{}
	for _, id := range songIDs {
		query.Add("id", id)
	}
	if current != "" {
		query.Set("current", current)
	}
	query.Set("position", strconv.FormatInt(position.Milliseconds(), 10))

	_, err := c.doRequest(ctx, "savePlayQueue", query)
	return err
}

// GetCoverArt writes the cover art image to w
func (c *Client) GetCoverArt(ctx context.Context, id string, w io.Writer) error {
	return c.stream(ctx, "getCoverArt", idQuery(id), w)
}

// DownloadURL writes the body of an external URL (artist images) to w
func (c *Client) DownloadURL(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	return nil
}

var _ domain.Server = (*Client)(nil)
