package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.session.Snapshot().State.String(),
	})
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := s.catalog.Libraries(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]libraryJSON, 0, len(libs))
	for _, l := range libs {
		out = append(out, libraryJSON{ID: l.ID, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.catalog.Artists(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]artistJSON, 0, len(artists))
	for _, a := range artists {
		out = append(out, artistJSON{ID: a.ID, Name: a.Name, ImageURL: a.ImageURL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := s.catalog.Albums(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]albumJSON, 0, len(albums))
	for _, a := range albums {
		out = append(out, albumJSON{ID: a.ID, Name: a.Name, Year: a.Year, ImageURL: a.ImageURL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAlbumTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.catalog.AlbumTracks(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]trackJSON, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, toTrackJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.AlbumID == "" {
		writeBadRequest(w, "album_id is required")
		return
	}
	if err := s.session.Play(r.Context(), req.AlbumID, req.StartTrackID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(s.session.Snapshot()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStateResponse(s.session.Snapshot()))
}

// command wraps the bodyless transport commands. Each returns the fresh
// snapshot so clients can reconcile without a second round trip.
func (s *Server) command(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, toStateResponse(s.session.Snapshot()))
	}
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.session.Seek(r.Context(), req.Position); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(s.session.Snapshot()))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	applied, err := s.session.SetVolume(r.Context(), req.Level)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, volumeResponse{Volume: applied})
}

func (s *Server) handleGetVolume(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, volumeResponse{Volume: s.session.Snapshot().Volume})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toQueueResponse(s.session.QueueState()))
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.session.Jump(r.Context(), req.Index); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueResponse(s.session.QueueState()))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.session.Remove(r.Context(), req.Index); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQueueResponse(s.session.QueueState()))
}

// trackRefCommand wraps the resolve-then-insert queue mutations.
func (s *Server) trackRefCommand(fn func(ctx context.Context, albumID, trackID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trackRefRequest
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		if req.AlbumID == "" || req.TrackID == "" {
			writeBadRequest(w, "album_id and track_id are required")
			return
		}
		if err := fn(r.Context(), req.AlbumID, req.TrackID); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, toQueueResponse(s.session.QueueState()))
	}
}
