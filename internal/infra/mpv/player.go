// Package mpv drives playback through an mpv process controlled over its
// JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/app/session"
	"github.com/pkoenig/tonbox/internal/domain/track"
)

// Config represents mpv player configuration.
type Config struct {
	Binary          string `mapstructure:"binary" default:"mpv"`
	SocketPath      string `mapstructure:"socket_path" default:"/tmp/tonbox-mpv.sock"`
	AudioDevice     string `mapstructure:"audio_device"`
	StartTimeoutSec int    `mapstructure:"start_timeout_sec" default:"5" validate:"gte=1,lte=60"`
}

// Player runs a single long-lived mpv process in idle mode and feeds it one
// stream URL at a time. Track ordering stays with the caller: when a stream
// reaches end of file the player reports it and waits for the next Load.
type Player struct {
	cfg    Config
	events chan session.PlayerEvent

	mu      sync.Mutex
	cmd     *exec.Cmd
	conn    net.Conn
	nextID  int64
	pending map[int64]chan ipcResponse
	closed  bool
	volume  int // last requested level, applied at process start

	// Progress state, written by the reader goroutine only.
	lastPos float64
	lastDur float64
}

// New creates an mpv player from a settings map.
func New(settings map[string]any) (*Player, error) {
	var cfg Config
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &Player{
		cfg:     cfg,
		events:  make(chan session.PlayerEvent, 64),
		pending: make(map[int64]chan ipcResponse),
		volume:  -1,
	}, nil
}

// Load replaces the running stream with the track at startIndex.
func (p *Player) Load(ctx context.Context, tracks []track.Track, startIndex int) error {
	if startIndex < 0 || startIndex >= len(tracks) {
		return errors.Newf("start index %d out of range", startIndex)
	}
	if err := p.ensureStarted(ctx); err != nil {
		return err
	}
	t := tracks[startIndex]
	zlog.Debug().Msgf("mpv: loading %s", t.ID)
	_, err := p.command(ctx, "loadfile", t.StreamURL, "replace")
	if err != nil {
		return err
	}
	// A fresh load always plays, even if the previous track was paused.
	_, err = p.command(ctx, "set_property", "pause", false)
	return err
}

func (p *Player) Pause(ctx context.Context) error {
	_, err := p.command(ctx, "set_property", "pause", true)
	return err
}

func (p *Player) Resume(ctx context.Context) error {
	_, err := p.command(ctx, "set_property", "pause", false)
	return err
}

// Stop drops the current stream and leaves mpv idling. end-file events with
// reason "stop" are not reported as track ends.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	running := p.conn != nil
	p.mu.Unlock()
	if !running {
		return nil
	}
	_, err := p.command(ctx, "stop")
	return err
}

func (p *Player) Seek(ctx context.Context, positionSeconds float64) error {
	_, err := p.command(ctx, "set_property", "time-pos", positionSeconds)
	return err
}

func (p *Player) SetVolume(ctx context.Context, level int) error {
	p.mu.Lock()
	p.volume = level
	running := p.conn != nil
	p.mu.Unlock()
	if !running {
		// Remembered and applied at process start via --volume.
		return nil
	}
	_, err := p.command(ctx, "set_property", "volume", level)
	return err
}

func (p *Player) Events() <-chan session.PlayerEvent {
	return p.events
}

// Close terminates the mpv process and closes the event channel.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	conn := p.conn
	cmd := p.cmd
	p.mu.Unlock()

	if conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, _ = p.command(ctx, "quit")
		cancel()
	}

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	_ = os.Remove(p.cfg.SocketPath)
	close(p.events)
	return nil
}

// ensureStarted spawns mpv and connects to its IPC socket on first use.
func (p *Player) ensureStarted(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player is closed")
	}
	if p.conn != nil {
		return nil
	}

	_ = os.Remove(p.cfg.SocketPath)
	args := []string{
		"--no-video",
		"--idle=yes",
		"--no-terminal",
		"--input-ipc-server=" + p.cfg.SocketPath,
	}
	if p.cfg.AudioDevice != "" {
		args = append(args, "--audio-device="+p.cfg.AudioDevice)
	}
	if p.volume >= 0 {
		args = append(args, "--volume="+strconv.Itoa(p.volume))
	}
	cmd := exec.Command(p.cfg.Binary, args...)
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start mpv")
	}
	zlog.Info().Msgf("mpv: started pid %d", cmd.Process.Pid)

	conn, err := p.waitForSocket(ctx, cmd)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return err
	}

	p.cmd = cmd
	p.conn = conn
	go p.readLoop(conn)
	go p.monitor(cmd)

	// Observed properties feed the progress events.
	for i, name := range []string{"time-pos", "duration"} {
		if err := p.writeRequestLocked(ipcRequest{Command: []any{"observe_property", i + 1, name}}); err != nil {
			return errors.Wrapf(err, "failed to observe %s", name)
		}
	}
	return nil
}

// waitForSocket polls until mpv creates its IPC socket.
func (p *Player) waitForSocket(ctx context.Context, cmd *exec.Cmd) (net.Conn, error) {
	deadline := time.Now().Add(time.Duration(p.cfg.StartTimeoutSec) * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		if cmd.ProcessState != nil {
			return nil, errors.New("mpv exited during startup")
		}
		conn, err := net.Dial("unix", p.cfg.SocketPath)
		if err == nil {
			return conn, nil
		}
	}
	return nil, errors.Newf("mpv socket %s did not appear", p.cfg.SocketPath)
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id,omitempty"`
}

type ipcResponse struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

// ipcMessage covers both command responses and asynchronous events.
type ipcMessage struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Reason    string          `json:"reason"`
}

// command sends a request and waits for mpv's reply.
func (p *Player) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	p.mu.Lock()
	if p.conn == nil {
		p.mu.Unlock()
		return nil, errors.New("mpv is not running")
	}
	p.nextID++
	id := p.nextID
	ch := make(chan ipcResponse, 1)
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if err := p.writeRequest(ipcRequest{Command: args, RequestID: id}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return nil, errors.New("mpv connection lost")
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, errors.Newf("mpv command failed: %s", resp.Error)
		}
		return resp.Data, nil
	}
}

func (p *Player) writeRequest(req ipcRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeRequestLocked(req)
}

func (p *Player) writeRequestLocked(req ipcRequest) error {
	if p.conn == nil {
		return errors.New("mpv is not running")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = p.conn.Write(append(data, '\n'))
	return errors.Wrap(err, "failed to write to mpv socket")
}

// readLoop decodes IPC lines: command replies go to their waiters, events
// are translated into PlayerEvents.
func (p *Player) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			zlog.Warn().Msgf("mpv: unreadable IPC line: %v", err)
			continue
		}
		if msg.Event != "" {
			p.handleIPCEvent(msg)
			continue
		}
		p.mu.Lock()
		ch, ok := p.pending[msg.RequestID]
		p.mu.Unlock()
		if ok {
			ch <- ipcResponse{RequestID: msg.RequestID, Error: msg.Error, Data: msg.Data}
		}
	}
	// Connection gone: wake up any waiters.
	p.mu.Lock()
	for id, ch := range p.pending {
		close(ch)
		delete(p.pending, id)
	}
	p.mu.Unlock()
}

func (p *Player) handleIPCEvent(msg ipcMessage) {
	switch msg.Event {
	case "file-loaded":
		p.emit(session.PlayerEvent{Type: session.EventReady})
	case "property-change":
		var v float64
		if msg.Data == nil || json.Unmarshal(msg.Data, &v) != nil {
			return
		}
		switch msg.Name {
		case "time-pos":
			p.lastPos = v
		case "duration":
			p.lastDur = v
		default:
			return
		}
		p.emit(session.PlayerEvent{
			Type:            session.EventProgress,
			PositionSeconds: p.lastPos,
			DurationSeconds: p.lastDur,
		})
	case "end-file":
		// "stop" and "redirect" are our own doing, only a real end counts.
		if msg.Reason == "eof" {
			p.emit(session.PlayerEvent{Type: session.EventEnded})
		} else if msg.Reason == "error" {
			p.emit(session.PlayerEvent{
				Type: session.EventFatal,
				Err:  errors.New("mpv failed to play the stream"),
			})
		}
	}
}

// monitor reports an unexpected process exit as a fatal event.
func (p *Player) monitor(cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	closed := p.closed
	p.conn = nil
	p.cmd = nil
	p.mu.Unlock()

	if closed {
		return
	}
	zlog.Error().Msgf("mpv: process exited unexpectedly: %v", err)
	cause := err
	if cause == nil {
		cause = errors.New("clean exit without shutdown")
	}
	p.emit(session.PlayerEvent{
		Type: session.EventFatal,
		Err:  errors.Wrap(cause, "mpv process died"),
	})
}

// emit never blocks the reader: a full channel drops the event. The lock is
// held through the send so Close cannot pull the channel away mid-emit.
func (p *Player) emit(ev session.PlayerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		zlog.Warn().Msgf("mpv: dropping event %s, channel full", ev.Type)
	}
}
