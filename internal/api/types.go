package api

import (
	"github.com/pkoenig/tonbox/internal/app/session"
	"github.com/pkoenig/tonbox/internal/domain/track"
)

// errorResponse is the error envelope every failing endpoint returns.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes, stable across releases: clients branch on these.
const (
	codeBadRequest        = "bad_request"
	codeOutOfRange        = "out_of_range"
	codeInvalidTransition = "invalid_transition"
	codeResolutionFailed  = "resolution_failed"
	codePlayerFailure     = "player_failure"
	codeInternal          = "internal"
)

type trackJSON struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	Duration float64 `json:"duration"`
	Overview string  `json:"overview,omitempty"`
}

type stateResponse struct {
	State       string     `json:"state"`
	Track       *trackJSON `json:"track,omitempty"`
	Index       int        `json:"index"`
	Position    float64    `json:"position"`
	Duration    float64    `json:"duration"`
	Volume      int        `json:"volume"`
	TotalTracks int        `json:"total_tracks"`
}

type queueResponse struct {
	Tracks []trackJSON `json:"tracks"`
	Index  int         `json:"index"`
}

type libraryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type artistJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

type albumJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Year     int    `json:"year,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type playRequest struct {
	AlbumID      string `json:"album_id"`
	StartTrackID string `json:"start_track_id,omitempty"`
}

type seekRequest struct {
	Position float64 `json:"position"`
}

type volumeRequest struct {
	Level int `json:"level"`
}

type volumeResponse struct {
	Volume int `json:"volume"`
}

type indexRequest struct {
	Index int `json:"index"`
}

type trackRefRequest struct {
	AlbumID string `json:"album_id"`
	TrackID string `json:"track_id"`
}

func toTrackJSON(t track.Track) trackJSON {
	return trackJSON{
		ID:       t.ID,
		Name:     t.Name,
		Artist:   t.Artist,
		ImageURL: t.ImageURL,
		Duration: t.DurationSeconds,
		Overview: t.Overview,
	}
}

func toStateResponse(s session.Snapshot) stateResponse {
	resp := stateResponse{
		State:       s.State.String(),
		Index:       s.CurrentIndex,
		Position:    s.PositionSeconds,
		Duration:    s.DurationSeconds,
		Volume:      s.Volume,
		TotalTracks: s.TotalTracks,
	}
	if s.CurrentTrack != nil {
		t := toTrackJSON(*s.CurrentTrack)
		resp.Track = &t
	}
	return resp
}

func toQueueResponse(q session.QueueSnapshot) queueResponse {
	resp := queueResponse{
		Tracks: make([]trackJSON, 0, len(q.Tracks)),
		Index:  q.CurrentIndex,
	}
	for _, t := range q.Tracks {
		resp.Tracks = append(resp.Tracks, toTrackJSON(t))
	}
	return resp
}
