package player

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/app/session"
	"github.com/pkoenig/tonbox/internal/domain/track"
)

// Null simulates playback on a wall clock without producing audio. It is the
// backend for development machines and for exercising the session without a
// sound device.
type Null struct {
	events chan session.PlayerEvent

	mu     sync.Mutex
	cancel context.CancelFunc
	paused bool
	pos    float64
	dur    float64
	closed bool
}

// NewNull creates a silent player.
func NewNull() *Null {
	return &Null{events: make(chan session.PlayerEvent, 64)}
}

func (n *Null) Load(_ context.Context, tracks []track.Track, startIndex int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return context.Canceled
	}
	if n.cancel != nil {
		n.cancel()
	}
	t := tracks[startIndex]
	n.paused = false
	n.pos = 0
	n.dur = t.DurationSeconds

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	zlog.Debug().Msgf("null player: pretending to play %s", t.ID)
	go n.run(ctx)
	return nil
}

// run emits ready, then one progress tick per second until the track is over.
func (n *Null) run(ctx context.Context) {
	n.emit(session.PlayerEvent{Type: session.EventReady})
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n.mu.Lock()
		if n.paused {
			n.mu.Unlock()
			continue
		}
		n.pos++
		pos, dur := n.pos, n.dur
		done := pos >= dur
		n.mu.Unlock()

		if done {
			n.emit(session.PlayerEvent{Type: session.EventEnded})
			return
		}
		n.emit(session.PlayerEvent{Type: session.EventProgress, PositionSeconds: pos, DurationSeconds: dur})
	}
}

func (n *Null) Pause(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paused = true
	return nil
}

func (n *Null) Resume(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paused = false
	return nil
}

func (n *Null) Stop(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.pos = 0
	return nil
}

func (n *Null) Seek(_ context.Context, positionSeconds float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pos = positionSeconds
	return nil
}

func (n *Null) SetVolume(context.Context, int) error { return nil }

func (n *Null) Events() <-chan session.PlayerEvent { return n.events }

func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	close(n.events)
	return nil
}

// emit drops events instead of blocking the simulation.
func (n *Null) emit(ev session.PlayerEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.events <- ev:
	default:
	}
}
