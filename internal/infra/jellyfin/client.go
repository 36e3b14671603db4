// Package jellyfin provides a client for the Jellyfin media server API.
package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/domain/track"
)

const ticksPerSecond = 10_000_000

// Client is a Jellyfin API client. It authenticates with a static API key
// sent in the X-Emby-Token header.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Config represents Jellyfin client configuration.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// New creates a new Jellyfin client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, errors.New("jellyfin url and token are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// item is the wire shape of a Jellyfin library item. Only the fields the
// kiosk renders are decoded.
type item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	IsFolder       bool              `json:"IsFolder"`
	RunTimeTicks   int64             `json:"RunTimeTicks"`
	Overview       string            `json:"Overview"`
	ProductionYear int               `json:"ProductionYear"`
	AlbumArtist    string            `json:"AlbumArtist"`
	ImageTags      map[string]string `json:"ImageTags"`
}

type itemsResponse struct {
	Items []item `json:"Items"`
}

// Libraries returns the server's top-level media folders.
func (c *Client) Libraries(ctx context.Context) ([]track.Library, error) {
	var resp itemsResponse
	if err := c.get(ctx, "/Library/MediaFolders", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to list libraries")
	}
	out := make([]track.Library, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, track.Library{ID: it.ID, Name: it.Name})
	}
	return out, nil
}

// Artists returns the artists of a library, sorted by name.
func (c *Client) Artists(ctx context.Context, libraryID string) ([]track.Artist, error) {
	params := url.Values{
		"ParentId":  {libraryID},
		"Recursive": {"true"},
		"SortBy":    {"SortName"},
		"Fields":    {"Overview,ImageTags"},
	}
	var resp itemsResponse
	if err := c.get(ctx, "/Artists", params, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to list artists of library %s", libraryID)
	}
	out := make([]track.Artist, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, track.Artist{
			ID:       it.ID,
			Name:     it.Name,
			ImageURL: c.imageURL(it),
		})
	}
	return out, nil
}

// Albums returns an artist's albums and audiobooks, oldest first.
func (c *Client) Albums(ctx context.Context, artistID string) ([]track.Album, error) {
	params := url.Values{
		"ArtistIds":        {artistID},
		"IncludeItemTypes": {"MusicAlbum,AudioBook"},
		"Recursive":        {"true"},
		"SortBy":           {"ProductionYear,SortName"},
		"Fields":           {"Overview,ImageTags"},
	}
	var resp itemsResponse
	if err := c.get(ctx, "/Items", params, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to list albums of artist %s", artistID)
	}
	out := make([]track.Album, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, track.Album{
			ID:       it.ID,
			Name:     it.Name,
			Year:     it.ProductionYear,
			ImageURL: c.imageURL(it),
		})
	}
	return out, nil
}

// AlbumTracks returns an album's tracks in playback order. A single-file
// item (m4b audiobooks) is returned as a one-track list.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]track.Track, error) {
	// Look the album up by ID first: single files must not be expanded.
	params := url.Values{
		"Ids":    {albumID},
		"Fields": {"RunTimeTicks,Overview,ImageTags"},
	}
	var resp itemsResponse
	if err := c.get(ctx, "/Items", params, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to look up album %s", albumID)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	if it := resp.Items[0]; !it.IsFolder {
		return []track.Track{c.toTrack(it)}, nil
	}

	params = url.Values{
		"ParentId": {albumID},
		"SortBy":   {"ParentIndexNumber,IndexNumber,SortName"},
		"Fields":   {"MediaSources,RunTimeTicks,Overview,ImageTags"},
	}
	resp = itemsResponse{}
	if err := c.get(ctx, "/Items", params, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to list tracks of album %s", albumID)
	}
	out := make([]track.Track, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, c.toTrack(it))
	}
	return out, nil
}

// StreamURL builds the direct audio stream URL for an item.
func (c *Client) StreamURL(itemID string) string {
	return fmt.Sprintf("%s/Audio/%s/stream.mp3?api_key=%s", c.baseURL, itemID, c.token)
}

// imageURL builds the primary artwork URL, empty when the item has none.
func (c *Client) imageURL(it item) string {
	if _, ok := it.ImageTags["Primary"]; !ok {
		return ""
	}
	return fmt.Sprintf("%s/Items/%s/Images/Primary?api_key=%s", c.baseURL, it.ID, c.token)
}

func (c *Client) toTrack(it item) track.Track {
	return track.Track{
		ID:              it.ID,
		Name:            it.Name,
		Artist:          it.AlbumArtist,
		ImageURL:        c.imageURL(it),
		DurationSeconds: float64(it.RunTimeTicks) / ticksPerSecond,
		Overview:        it.Overview,
		StreamURL:       c.StreamURL(it.ID),
	}
}

// get performs an authenticated GET with retry on transient failures.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			zlog.Debug().Msgf("retrying jellyfin request %s (attempt %d/%d)", endpoint, i+1, c.maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i)):
			}
		}

		err := c.doGet(ctx, u, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

func (c *Client) doGet(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Emby-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &statusError{code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("jellyfin returned status %d", e.code)
}

// isRetryable reports whether the request is worth repeating: connection
// errors, rate limits and server-side failures are, client errors are not.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}
