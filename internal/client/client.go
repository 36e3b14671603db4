// Package client is the typed HTTP client for the tonbox server API. The
// display UI talks to the server exclusively through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Error codes returned by the server.
const (
	CodeBadRequest        = "bad_request"
	CodeOutOfRange        = "out_of_range"
	CodeInvalidTransition = "invalid_transition"
	CodeResolutionFailed  = "resolution_failed"
	CodePlayerFailure     = "player_failure"
	CodeInternal          = "internal"
)

// APIError is a structured rejection from the server. Anything else coming
// out of this package is a connectivity problem.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsConnectivity reports whether err means the server could not be reached
// or did not answer sensibly, as opposed to a structured rejection.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

// Track mirrors the server's track representation.
type Track struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	Duration float64 `json:"duration"`
	Overview string  `json:"overview,omitempty"`
}

// State is the session snapshot served by /api/player/state.
type State struct {
	State       string  `json:"state"`
	Track       *Track  `json:"track,omitempty"`
	Index       int     `json:"index"`
	Position    float64 `json:"position"`
	Duration    float64 `json:"duration"`
	Volume      int     `json:"volume"`
	TotalTracks int     `json:"total_tracks"`
}

// Queue is the queue snapshot served by /api/queue.
type Queue struct {
	Tracks []Track `json:"tracks"`
	Index  int     `json:"index"`
}

type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Artist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

type Album struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Year     int    `json:"year,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Client talks to a tonbox server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.get(ctx, "/health", &out)
}

func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	var out []Library
	err := c.get(ctx, "/api/libraries", &out)
	return out, err
}

func (c *Client) Artists(ctx context.Context, libraryID string) ([]Artist, error) {
	var out []Artist
	err := c.get(ctx, "/api/libraries/"+libraryID+"/artists", &out)
	return out, err
}

func (c *Client) Albums(ctx context.Context, artistID string) ([]Album, error) {
	var out []Album
	err := c.get(ctx, "/api/artists/"+artistID+"/albums", &out)
	return out, err
}

func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]Track, error) {
	var out []Track
	err := c.get(ctx, "/api/albums/"+albumID+"/tracks", &out)
	return out, err
}

func (c *Client) State(ctx context.Context) (State, error) {
	var out State
	err := c.get(ctx, "/api/player/state", &out)
	return out, err
}

func (c *Client) GetQueue(ctx context.Context) (Queue, error) {
	var out Queue
	err := c.get(ctx, "/api/queue", &out)
	return out, err
}

// Play starts album playback, optionally from a specific track.
func (c *Client) Play(ctx context.Context, albumID, startTrackID string) (State, error) {
	var out State
	err := c.post(ctx, "/api/play", map[string]string{
		"album_id":       albumID,
		"start_track_id": startTrackID,
	}, &out)
	return out, err
}

func (c *Client) Pause(ctx context.Context) (State, error)    { return c.transport(ctx, "pause") }
func (c *Client) Resume(ctx context.Context) (State, error)   { return c.transport(ctx, "resume") }
func (c *Client) Stop(ctx context.Context) (State, error)     { return c.transport(ctx, "stop") }
func (c *Client) Next(ctx context.Context) (State, error)     { return c.transport(ctx, "next") }
func (c *Client) Previous(ctx context.Context) (State, error) { return c.transport(ctx, "previous") }
func (c *Client) Reset(ctx context.Context) (State, error)    { return c.transport(ctx, "reset") }

func (c *Client) transport(ctx context.Context, cmd string) (State, error) {
	var out State
	err := c.post(ctx, "/api/player/"+cmd, nil, &out)
	return out, err
}

func (c *Client) Seek(ctx context.Context, position float64) (State, error) {
	var out State
	err := c.post(ctx, "/api/player/seek", map[string]float64{"position": position}, &out)
	return out, err
}

// SetVolume requests a level and returns the level the server applied.
func (c *Client) SetVolume(ctx context.Context, level int) (int, error) {
	var out struct {
		Volume int `json:"volume"`
	}
	if err := c.post(ctx, "/api/player/volume", map[string]int{"level": level}, &out); err != nil {
		return 0, err
	}
	return out.Volume, nil
}

func (c *Client) Jump(ctx context.Context, index int) (Queue, error) {
	var out Queue
	err := c.post(ctx, "/api/queue/jump", map[string]int{"index": index}, &out)
	return out, err
}

func (c *Client) Remove(ctx context.Context, index int) (Queue, error) {
	var out Queue
	err := c.post(ctx, "/api/queue/remove", map[string]int{"index": index}, &out)
	return out, err
}

func (c *Client) AddToQueue(ctx context.Context, albumID, trackID string) (Queue, error) {
	return c.trackRef(ctx, "/api/queue/add", albumID, trackID)
}

func (c *Client) PlayNext(ctx context.Context, albumID, trackID string) (Queue, error) {
	return c.trackRef(ctx, "/api/queue/play-next", albumID, trackID)
}

func (c *Client) PlayNow(ctx context.Context, albumID, trackID string) (Queue, error) {
	return c.trackRef(ctx, "/api/queue/play-now", albumID, trackID)
}

func (c *Client) trackRef(ctx context.Context, path, albumID, trackID string) (Queue, error) {
	var out Queue
	err := c.post(ctx, path, map[string]string{
		"album_id": albumID,
		"track_id": trackID,
	}, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "server unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Code != "" {
			return &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Error}
		}
		return errors.Newf("server returned status %d", resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
