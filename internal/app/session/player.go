package session

import (
	"context"

	"github.com/pkoenig/tonbox/internal/domain/track"
)

// Player is the boundary to the external player process. Implementations
// receive transport instructions and report asynchronous events back through
// the Events channel. Track ordering stays with the controller: a player
// plays what it was last told to load and reports when that ran out.
type Player interface {
	// Load replaces whatever the player is doing with the track at
	// startIndex of tracks. The player reports EventReady once audio is
	// running and EventEnded when the track finishes.
	Load(ctx context.Context, tracks []track.Track, startIndex int) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, positionSeconds float64) error
	SetVolume(ctx context.Context, level int) error

	// Events delivers asynchronous player notifications. The channel is
	// closed by Close.
	Events() <-chan PlayerEvent
	Close() error
}

// PlayerEventType identifies an asynchronous player notification.
type PlayerEventType int

const (
	EventReady    PlayerEventType = iota // Load completed, audio running
	EventProgress                        // Periodic position/duration update
	EventEnded                           // Current track finished
	EventFatal                           // Player crashed or failed mid-playback
)

// String returns the string representation of the event type.
func (t PlayerEventType) String() string {
	switch t {
	case EventReady:
		return "ready"
	case EventProgress:
		return "progress"
	case EventEnded:
		return "ended"
	case EventFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PlayerEvent is a notification from the player adapter.
type PlayerEvent struct {
	Type            PlayerEventType
	PositionSeconds float64 // EventProgress
	DurationSeconds float64 // EventProgress
	Err             error   // EventFatal
}
