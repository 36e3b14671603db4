// Package session provides the playback session controller. It is the single
// owner of the queue and playback state; every client only ever sees
// snapshots fetched through it.
package session

import "github.com/pkoenig/tonbox/internal/domain/track"

// State represents the playback session state.
type State int

const (
	StateIdle    State = iota // Nothing loaded since startup or reset
	StateLoading              // Resolving tracks / waiting for the player
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateStopped              // Playback ended or was stopped
	StateError                // Player or load failure, needs recovery
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only view of the session handed to clients.
type Snapshot struct {
	State           State
	CurrentTrack    *track.Track // nil in IDLE and STOPPED
	CurrentIndex    int          // -1 when no track
	PositionSeconds float64
	DurationSeconds float64
	Volume          int
	TotalTracks     int
}

// QueueSnapshot is the read-only view of the queue contents.
type QueueSnapshot struct {
	Tracks       []track.Track
	CurrentIndex int
}

// VolumePolicy bounds the volume commands clients may issue. The ceiling is
// a deployment decision (kiosks near bedrooms run low).
type VolumePolicy struct {
	Min int
	Max int
}

// Clamp forces level into the policy range.
func (p VolumePolicy) Clamp(level int) int {
	if level < p.Min {
		return p.Min
	}
	if level > p.Max {
		return p.Max
	}
	return level
}
