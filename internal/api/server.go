// Package api exposes the playback session and catalog browsing over a
// polled JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/app/session"
	"github.com/pkoenig/tonbox/internal/domain/queue"
	"github.com/pkoenig/tonbox/internal/domain/track"
)

// Session is the command surface of the playback session.
type Session interface {
	Play(ctx context.Context, albumID, startTrackID string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionSeconds float64) error
	SetVolume(ctx context.Context, level int) (int, error)
	Jump(ctx context.Context, index int) error
	Remove(ctx context.Context, index int) error
	AddToQueue(ctx context.Context, albumID, trackID string) error
	PlayNext(ctx context.Context, albumID, trackID string) error
	PlayNow(ctx context.Context, albumID, trackID string) error
	Reset(ctx context.Context) error
	Snapshot() session.Snapshot
	QueueState() session.QueueSnapshot
}

// Catalog is the browsing surface of the media catalog.
type Catalog interface {
	Libraries(ctx context.Context) ([]track.Library, error)
	Artists(ctx context.Context, libraryID string) ([]track.Artist, error)
	Albums(ctx context.Context, artistID string) ([]track.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]track.Track, error)
}

// Server routes HTTP requests to the session and catalog.
type Server struct {
	session Session
	catalog Catalog
	router  *mux.Router
}

// NewServer creates the API server.
func NewServer(sess Session, catalog Catalog) *Server {
	s := &Server{
		session: sess,
		catalog: catalog,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler. Preflight requests are answered before
// routing: the router only knows GET and POST.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestIDMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	// Catalog browsing
	api.HandleFunc("/libraries", s.handleLibraries).Methods(http.MethodGet)
	api.HandleFunc("/libraries/{id}/artists", s.handleArtists).Methods(http.MethodGet)
	api.HandleFunc("/artists/{id}/albums", s.handleAlbums).Methods(http.MethodGet)
	api.HandleFunc("/albums/{id}/tracks", s.handleAlbumTracks).Methods(http.MethodGet)

	// Session
	api.HandleFunc("/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/player/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/player/pause", s.command(s.session.Pause)).Methods(http.MethodPost)
	api.HandleFunc("/player/resume", s.command(s.session.Resume)).Methods(http.MethodPost)
	api.HandleFunc("/player/stop", s.command(s.session.Stop)).Methods(http.MethodPost)
	api.HandleFunc("/player/next", s.command(s.session.Next)).Methods(http.MethodPost)
	api.HandleFunc("/player/previous", s.command(s.session.Previous)).Methods(http.MethodPost)
	api.HandleFunc("/player/reset", s.command(s.session.Reset)).Methods(http.MethodPost)
	api.HandleFunc("/player/seek", s.handleSeek).Methods(http.MethodPost)
	api.HandleFunc("/player/volume", s.handleGetVolume).Methods(http.MethodGet)
	api.HandleFunc("/player/volume", s.handleVolume).Methods(http.MethodPost)

	// Queue
	api.HandleFunc("/queue", s.handleQueue).Methods(http.MethodGet)
	api.HandleFunc("/queue/jump", s.handleJump).Methods(http.MethodPost)
	api.HandleFunc("/queue/remove", s.handleRemove).Methods(http.MethodPost)
	api.HandleFunc("/queue/add", s.trackRefCommand(s.session.AddToQueue)).Methods(http.MethodPost)
	api.HandleFunc("/queue/play-next", s.trackRefCommand(s.session.PlayNext)).Methods(http.MethodPost)
	api.HandleFunc("/queue/play-now", s.trackRefCommand(s.session.PlayNow)).Methods(http.MethodPost)
}

// setCORSHeaders allows the display client to be served from anywhere on the
// local network.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// requestIDMiddleware tags every request with an ID for log correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)

		logger := zlog.With().Str("request_id", id).Logger()
		ctx := logger.WithContext(r.Context())
		logger.Debug().Msgf("%s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the session error taxonomy onto HTTP statuses.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, session.ErrInvalidTransition):
		status, code = http.StatusConflict, codeInvalidTransition
	case errors.Is(err, queue.ErrOutOfRange):
		status, code = http.StatusBadRequest, codeOutOfRange
	case errors.Is(err, session.ErrEmptyAlbum), errors.Is(err, session.ErrResolution):
		status, code = http.StatusNotFound, codeResolutionFailed
	case errors.Is(err, session.ErrAdapter):
		status, code = http.StatusBadGateway, codePlayerFailure
	default:
		status, code = http.StatusInternalServerError, codeInternal
	}

	logger := zerolog.Ctx(ctx)
	if status >= 500 {
		logger.Error().Msgf("request failed: %v", err)
	} else {
		logger.Debug().Msgf("request rejected: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: codeBadRequest})
}

func decodeBody(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
