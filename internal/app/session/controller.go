package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/domain/queue"
	"github.com/pkoenig/tonbox/internal/domain/track"
)

var (
	// ErrInvalidTransition is returned when a command is not valid in the
	// current state.
	ErrInvalidTransition = errors.New("command not valid in current state")
	// ErrEmptyAlbum is returned when a resolved album has no playable tracks.
	ErrEmptyAlbum = errors.New("album has no tracks")
	// ErrResolution marks failures to resolve catalog references.
	ErrResolution = errors.New("catalog resolution failed")
	// ErrAdapter marks failures of the external player.
	ErrAdapter = errors.New("player failure")
)

// Config carries the session policies.
type Config struct {
	Volume        VolumePolicy
	InitialVolume int
	// AutoRecover resets an ERROR session back to IDLE after this long.
	// Zero disables automatic recovery.
	AutoRecover time.Duration
}

// Controller owns the playback session: the state machine, the queue and the
// conversation with the player. All commands take the lock, mutate, and
// return; asynchronous player events are folded in by the event loop.
type Controller struct {
	mu sync.Mutex

	cfg     Config
	catalog Catalog
	player  Player

	state    State
	queue    *queue.Queue
	position float64
	duration float64
	volume   int

	// recoverGen invalidates a pending auto-recovery timer whenever the
	// session leaves ERROR by other means.
	recoverGen int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller in IDLE.
func NewController(cfg Config, catalog Catalog, player Player) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:     cfg,
		catalog: catalog,
		player:  player,
		state:   StateIdle,
		queue:   queue.New(),
		volume:  cfg.Volume.Clamp(cfg.InitialVolume),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start launches the player event loop and pushes the initial volume.
func (c *Controller) Start() {
	if err := c.player.SetVolume(c.ctx, c.volume); err != nil {
		zlog.Warn().Msgf("failed to set initial volume: %v", err)
	}
	go c.eventLoop()
}

// Close stops the event loop and shuts the player down.
func (c *Controller) Close() error {
	c.cancel()
	err := c.player.Close()
	<-c.done
	return err
}

// Play resolves albumID and starts playback. When startTrackID names a track
// on the album the queue pointer starts there, otherwise at the first track.
// Only valid from IDLE and STOPPED; every play starts a fresh queue.
func (c *Controller) Play(ctx context.Context, albumID, startTrackID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle && c.state != StateStopped {
		return errors.Wrapf(ErrInvalidTransition, "play while %s", c.state)
	}

	tracks, err := c.catalog.AlbumTracks(ctx, albumID)
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "resolve album %s", albumID), ErrResolution)
		c.failLocked(err)
		return err
	}
	if len(tracks) == 0 {
		err := errors.Wrapf(ErrEmptyAlbum, "album %s", albumID)
		c.failLocked(err)
		return err
	}

	start := 0
	if startTrackID != "" {
		if i := track.IndexByID(tracks, startTrackID); i >= 0 {
			start = i
		} else {
			zlog.Warn().Msgf("start track %s not on album %s, playing from the top", startTrackID, albumID)
		}
	}

	if err := c.queue.Replace(tracks, start); err != nil {
		return err
	}
	zlog.Info().Msgf("playing album %s (%d tracks, starting at %d)", albumID, len(tracks), start)
	return c.loadCurrentLocked(ctx)
}

// Pause suspends playback. Only valid while PLAYING.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return errors.Wrapf(ErrInvalidTransition, "pause while %s", c.state)
	}
	if err := c.player.Pause(ctx); err != nil {
		return errors.Mark(err, ErrAdapter)
	}
	c.state = StatePaused
	return nil
}

// Resume continues playback. Only valid while PAUSED.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return errors.Wrapf(ErrInvalidTransition, "resume while %s", c.state)
	}
	if err := c.player.Resume(ctx); err != nil {
		return errors.Mark(err, ErrAdapter)
	}
	c.state = StatePlaying
	return nil
}

// Stop ends the session and clears the queue.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePlaying, StatePaused, StateLoading:
		c.stopLocked(ctx)
		return nil
	default:
		return errors.Wrapf(ErrInvalidTransition, "stop while %s", c.state)
	}
}

// Next advances to the following track. At the end of the queue it behaves
// like Stop.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying && c.state != StatePaused {
		return errors.Wrapf(ErrInvalidTransition, "next while %s", c.state)
	}
	if !c.queue.Advance() {
		zlog.Info().Msg("next past the last track, stopping")
		c.stopLocked(ctx)
		return nil
	}
	return c.loadCurrentLocked(ctx)
}

// Previous moves back one track. At the head of the queue it is a no-op.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying && c.state != StatePaused {
		return errors.Wrapf(ErrInvalidTransition, "previous while %s", c.state)
	}
	if !c.queue.Retreat() {
		return nil
	}
	return c.loadCurrentLocked(ctx)
}

// Seek moves the playback position, clamped to the current track's duration.
// Only valid while PLAYING or PAUSED.
func (c *Controller) Seek(ctx context.Context, positionSeconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying && c.state != StatePaused {
		return errors.Wrapf(ErrInvalidTransition, "seek while %s", c.state)
	}
	if positionSeconds < 0 {
		positionSeconds = 0
	}
	if c.duration > 0 && positionSeconds > c.duration {
		positionSeconds = c.duration
	}
	if err := c.player.Seek(ctx, positionSeconds); err != nil {
		return errors.Mark(err, ErrAdapter)
	}
	c.position = positionSeconds
	return nil
}

// SetVolume applies level clamped to the volume policy and returns the level
// actually applied. Valid in every state.
func (c *Controller) SetVolume(ctx context.Context, level int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clamped := c.cfg.Volume.Clamp(level)
	if err := c.player.SetVolume(ctx, clamped); err != nil {
		return c.volume, errors.Mark(err, ErrAdapter)
	}
	c.volume = clamped
	return clamped, nil
}

// Jump starts playback of the queued track at index.
func (c *Controller) Jump(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.queue.Jump(index); err != nil {
		return err
	}
	return c.loadCurrentLocked(ctx)
}

// Remove deletes the queued track at index. Removing the current track while
// it is loaded behaves like next: the following track starts immediately, and
// removing the tail ends the session.
func (c *Controller) Remove(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	removingCurrent := index == c.queue.CurrentIndex()
	wasTail := index == c.queue.Len()-1
	if err := c.queue.Remove(index); err != nil {
		return err
	}
	if !removingCurrent {
		return nil
	}
	if c.queue.Len() == 0 {
		c.stopLocked(ctx)
		return nil
	}
	switch c.state {
	case StatePlaying, StatePaused, StateLoading:
		// Removing the playing track acts like next: the successor starts,
		// and removing the tail is end-of-queue.
		if wasTail {
			c.stopLocked(ctx)
			return nil
		}
		return c.loadCurrentLocked(ctx)
	}
	return nil
}

// AddToQueue resolves a track and appends it to the end of the queue. The
// queue is only mutated after resolution succeeds.
func (c *Controller) AddToQueue(ctx context.Context, albumID, trackID string) error {
	t, err := c.resolveTrack(ctx, albumID, trackID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Append(t)
	zlog.Debug().Msgf("queued %s at the end (%d tracks)", t.ID, c.queue.Len())
	return nil
}

// PlayNext resolves a track and inserts it right after the current one.
func (c *Controller) PlayNext(ctx context.Context, albumID, trackID string) error {
	t, err := c.resolveTrack(ctx, albumID, trackID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	at := c.queue.InsertAfterCurrent(t)
	zlog.Debug().Msgf("queued %s as up next (index %d)", t.ID, at)
	return nil
}

// PlayNow resolves a track, inserts it after the current one and starts it
// immediately. The rest of the queue is preserved.
func (c *Controller) PlayNow(ctx context.Context, albumID, trackID string) error {
	t, err := c.resolveTrack(ctx, albumID, trackID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	at := c.queue.InsertAfterCurrent(t)
	if err := c.queue.Jump(at); err != nil {
		return err
	}
	return c.loadCurrentLocked(ctx)
}

// Reset acknowledges a finished or failed session and returns to IDLE. Only
// valid from STOPPED and ERROR.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStopped && c.state != StateError {
		return errors.Wrapf(ErrInvalidTransition, "reset while %s", c.state)
	}
	c.resetLocked()
	return nil
}

// Snapshot returns the session state for clients. CurrentTrack is nil in
// IDLE and STOPPED.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:           c.state,
		CurrentIndex:    -1,
		PositionSeconds: c.position,
		DurationSeconds: c.duration,
		Volume:          c.volume,
		TotalTracks:     c.queue.Len(),
	}
	if c.state == StateIdle || c.state == StateStopped {
		return s
	}
	if cur, ok := c.queue.Current(); ok {
		t := cur
		s.CurrentTrack = &t
		s.CurrentIndex = c.queue.CurrentIndex()
	}
	return s
}

// QueueState returns a copy of the queue contents.
func (c *Controller) QueueState() QueueSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return QueueSnapshot{
		Tracks:       c.queue.Tracks(),
		CurrentIndex: c.queue.CurrentIndex(),
	}
}

// resolveTrack fetches the album and picks the referenced track. It holds no
// lock: resolution must not block the session, and the queue is only touched
// once the track is in hand.
func (c *Controller) resolveTrack(ctx context.Context, albumID, trackID string) (track.Track, error) {
	tracks, err := c.catalog.AlbumTracks(ctx, albumID)
	if err != nil {
		return track.Track{}, errors.Mark(errors.Wrapf(err, "resolve album %s", albumID), ErrResolution)
	}
	i := track.IndexByID(tracks, trackID)
	if i < 0 {
		return track.Track{}, errors.Mark(errors.Newf("track %s not on album %s", trackID, albumID), ErrResolution)
	}
	return tracks[i], nil
}

// loadCurrentLocked hands the queue to the player starting at the current
// track and moves to LOADING. A load failure is session-fatal.
func (c *Controller) loadCurrentLocked(ctx context.Context) error {
	cur, ok := c.queue.Current()
	if !ok {
		return errors.Wrap(ErrInvalidTransition, "no current track to load")
	}
	c.state = StateLoading
	c.position = 0
	c.duration = cur.DurationSeconds
	if err := c.player.Load(ctx, c.queue.Tracks(), c.queue.CurrentIndex()); err != nil {
		c.failLocked(err)
		return errors.Mark(errors.Wrapf(err, "load track %s", cur.ID), ErrAdapter)
	}
	return nil
}

// stopLocked ends the session: the player goes quiet, the queue is cleared.
func (c *Controller) stopLocked(ctx context.Context) {
	if err := c.player.Stop(ctx); err != nil {
		zlog.Warn().Msgf("player stop failed: %v", err)
	}
	c.queue.Clear()
	c.position = 0
	c.duration = 0
	c.state = StateStopped
}

// resetLocked returns to IDLE and invalidates any pending recovery timer.
func (c *Controller) resetLocked() {
	c.recoverGen++
	c.queue.Clear()
	c.position = 0
	c.duration = 0
	c.state = StateIdle
}

// failLocked moves the session to ERROR and arms the recovery timer.
func (c *Controller) failLocked(cause error) {
	zlog.Error().Msgf("session failed: %v", cause)
	c.state = StateError
	if c.cfg.AutoRecover <= 0 {
		return
	}
	c.recoverGen++
	gen := c.recoverGen
	time.AfterFunc(c.cfg.AutoRecover, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state != StateError || c.recoverGen != gen {
			return
		}
		zlog.Info().Msg("auto-recovering failed session")
		c.resetLocked()
	})
}

// eventLoop folds asynchronous player events into the session state.
func (c *Controller) eventLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.player.Events():
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev PlayerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case EventReady:
		if c.state == StateLoading {
			c.state = StatePlaying
		}
	case EventProgress:
		switch c.state {
		case StatePlaying, StatePaused:
			c.position = ev.PositionSeconds
			if ev.DurationSeconds > 0 {
				c.duration = ev.DurationSeconds
			}
		}
	case EventEnded:
		switch c.state {
		case StatePlaying, StatePaused, StateLoading:
			if c.queue.Advance() {
				if err := c.loadCurrentLocked(c.ctx); err != nil {
					zlog.Error().Msgf("failed to start next track: %v", err)
				}
				return
			}
			zlog.Info().Msg("queue finished")
			c.stopLocked(c.ctx)
		}
	case EventFatal:
		c.failLocked(ev.Err)
	}
}
