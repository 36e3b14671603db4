package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkoenig/tonbox/internal/app/session"
	"github.com/pkoenig/tonbox/internal/domain/queue"
	"github.com/pkoenig/tonbox/internal/domain/track"
)

// stubSession records the last command and replies with canned data.
type stubSession struct {
	err      error
	snapshot session.Snapshot
	queue    session.QueueSnapshot
	lastCall string
	volume   int
}

func (s *stubSession) call(name string) error {
	s.lastCall = name
	return s.err
}

func (s *stubSession) Play(_ context.Context, albumID, startTrackID string) error {
	return s.call("play " + albumID + " " + startTrackID)
}
func (s *stubSession) Pause(context.Context) error    { return s.call("pause") }
func (s *stubSession) Resume(context.Context) error   { return s.call("resume") }
func (s *stubSession) Stop(context.Context) error     { return s.call("stop") }
func (s *stubSession) Next(context.Context) error     { return s.call("next") }
func (s *stubSession) Previous(context.Context) error { return s.call("previous") }
func (s *stubSession) Reset(context.Context) error    { return s.call("reset") }
func (s *stubSession) Seek(_ context.Context, pos float64) error {
	return s.call("seek")
}
func (s *stubSession) SetVolume(_ context.Context, level int) (int, error) {
	s.lastCall = "volume"
	if s.err != nil {
		return 0, s.err
	}
	s.volume = level
	if level > 60 {
		return 60, nil
	}
	return level, nil
}
func (s *stubSession) Jump(_ context.Context, index int) error   { return s.call("jump") }
func (s *stubSession) Remove(_ context.Context, index int) error { return s.call("remove") }
func (s *stubSession) AddToQueue(_ context.Context, albumID, trackID string) error {
	return s.call("add " + albumID + " " + trackID)
}
func (s *stubSession) PlayNext(_ context.Context, albumID, trackID string) error {
	return s.call("play-next " + albumID + " " + trackID)
}
func (s *stubSession) PlayNow(_ context.Context, albumID, trackID string) error {
	return s.call("play-now " + albumID + " " + trackID)
}
func (s *stubSession) Snapshot() session.Snapshot        { return s.snapshot }
func (s *stubSession) QueueState() session.QueueSnapshot { return s.queue }

type stubCatalog struct {
	err error
}

func (c *stubCatalog) Libraries(context.Context) ([]track.Library, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []track.Library{{ID: "lib1", Name: "Music"}}, nil
}
func (c *stubCatalog) Artists(_ context.Context, libraryID string) ([]track.Artist, error) {
	return []track.Artist{{ID: "ar1", Name: "Artist " + libraryID}}, c.err
}
func (c *stubCatalog) Albums(_ context.Context, artistID string) ([]track.Album, error) {
	return []track.Album{{ID: "al1", Name: "Album", Year: 2001}}, c.err
}
func (c *stubCatalog) AlbumTracks(_ context.Context, albumID string) ([]track.Track, error) {
	return []track.Track{{ID: "t1", Name: "One", DurationSeconds: 61}}, c.err
}

func newTestServer(t *testing.T) (*Server, *stubSession, *stubCatalog) {
	t.Helper()
	sess := &stubSession{
		snapshot: session.Snapshot{State: session.StateIdle, CurrentIndex: -1, Volume: 30},
		queue:    session.QueueSnapshot{CurrentIndex: -1},
	}
	cat := &stubCatalog{}
	return NewServer(sess, cat), sess, cat
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestServer_CatalogRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{
		"/api/libraries",
		"/api/libraries/lib1/artists",
		"/api/artists/ar1/albums",
		"/api/albums/al1/tracks",
	} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestServer_CatalogFailure(t *testing.T) {
	srv, _, cat := newTestServer(t)
	cat.err = errors.New("jellyfin unreachable")

	rec := doJSON(t, srv, http.MethodGet, "/api/libraries", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, codeInternal, resp.Code)
}

func TestServer_Play(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/play", playRequest{AlbumID: "al1", StartTrackID: "t3"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "play al1 t3", sess.lastCall)

	rec = doJSON(t, srv, http.MethodPost, "/api/play", playRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_TransportCommands(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	for _, cmd := range []string{"pause", "resume", "stop", "next", "previous", "reset"} {
		rec := doJSON(t, srv, http.MethodPost, "/api/player/"+cmd, nil)
		assert.Equal(t, http.StatusOK, rec.Code, cmd)
		assert.Equal(t, cmd, sess.lastCall)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid transition",
			err:        errors.Wrap(session.ErrInvalidTransition, "pause while idle"),
			wantStatus: http.StatusConflict,
			wantCode:   codeInvalidTransition,
		},
		{
			name:       "out of range",
			err:        queue.ErrOutOfRange,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeOutOfRange,
		},
		{
			name:       "resolution failure",
			err:        errors.Mark(errors.New("album gone"), session.ErrResolution),
			wantStatus: http.StatusNotFound,
			wantCode:   codeResolutionFailed,
		},
		{
			name:       "empty album",
			err:        session.ErrEmptyAlbum,
			wantStatus: http.StatusNotFound,
			wantCode:   codeResolutionFailed,
		},
		{
			name:       "player failure",
			err:        errors.Mark(errors.New("mpv died"), session.ErrAdapter),
			wantStatus: http.StatusBadGateway,
			wantCode:   codePlayerFailure,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, sess, _ := newTestServer(t)
			sess.err = tt.err

			rec := doJSON(t, srv, http.MethodPost, "/api/player/pause", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_Volume(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/player/volume", volumeRequest{Level: 150})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp volumeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 60, resp.Volume, "response carries the applied, clamped level")
}

func TestServer_Seek(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/player/seek", seekRequest{Position: 42})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "seek", sess.lastCall)

	rec = doJSON(t, srv, http.MethodPost, "/api/player/seek", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_QueueRoutes(t *testing.T) {
	srv, sess, _ := newTestServer(t)
	sess.queue = session.QueueSnapshot{
		Tracks:       []track.Track{{ID: "t1"}, {ID: "t2"}},
		CurrentIndex: 1,
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/queue", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var q queueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Len(t, q.Tracks, 2)
	assert.Equal(t, 1, q.Index)

	rec = doJSON(t, srv, http.MethodPost, "/api/queue/jump", indexRequest{Index: 1})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jump", sess.lastCall)

	rec = doJSON(t, srv, http.MethodPost, "/api/queue/remove", indexRequest{Index: 0})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remove", sess.lastCall)

	rec = doJSON(t, srv, http.MethodPost, "/api/queue/add", trackRefRequest{AlbumID: "al1", TrackID: "t9"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "add al1 t9", sess.lastCall)

	rec = doJSON(t, srv, http.MethodPost, "/api/queue/play-next", trackRefRequest{AlbumID: "al1", TrackID: "t9"})
	assert.Equal(t, "play-next al1 t9", sess.lastCall)
	rec = doJSON(t, srv, http.MethodPost, "/api/queue/play-now", trackRefRequest{AlbumID: "al1", TrackID: "t9"})
	assert.Equal(t, "play-now al1 t9", sess.lastCall)

	// Missing fields never reach the session
	sess.lastCall = ""
	rec = doJSON(t, srv, http.MethodPost, "/api/queue/add", trackRefRequest{AlbumID: "al1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sess.lastCall)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/player/state", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_StateIncludesTrack(t *testing.T) {
	srv, sess, _ := newTestServer(t)
	sess.snapshot = session.Snapshot{
		State:           session.StatePlaying,
		CurrentTrack:    &track.Track{ID: "t1", Name: "One", DurationSeconds: 61},
		CurrentIndex:    0,
		PositionSeconds: 30,
		DurationSeconds: 61,
		Volume:          35,
		TotalTracks:     4,
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/player/state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "playing", resp.State)
	require.NotNil(t, resp.Track)
	assert.Equal(t, "t1", resp.Track.ID)
	assert.Equal(t, 4, resp.TotalTracks)
}
