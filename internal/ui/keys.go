package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkoenig/tonbox/internal/client"
)

const volumeStep = 5

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	// While typing a filter, every printable key belongs to the input.
	if m.showBrowse && m.browse.filtering {
		return m.handleFilterKey(msg)
	}

	if key == "q" {
		m.quitting = true
		return m, tea.Quit
	}

	// While offline every control is dead; the poll loop will bring the
	// session back when the server answers again.
	if m.offline {
		return m, nil
	}

	if m.showQueue {
		return m.handleQueueKey(key)
	}
	if m.showBrowse {
		return m.handleBrowseKey(key)
	}

	switch key {
	case "tab":
		m.showQueue = true
		m.queueCursor = 0
		return m, m.fetchQueue()

	case "b":
		m.showBrowse = true
		m.browse = newBrowseState()
		return m, m.loadLibraries()

	case " ":
		switch m.state.State {
		case "playing":
			return m, m.stateAction(m.backend.Pause, "")
		case "paused":
			return m, m.stateAction(m.backend.Resume, "")
		}
		return m, nil

	case "s":
		return m, m.stateAction(m.backend.Stop, "")

	case "n":
		return m, m.stateAction(m.backend.Next, "")

	case "p":
		return m, m.stateAction(m.backend.Previous, "")

	case "r":
		return m, m.stateAction(m.backend.Reset, "")

	case "+", "=":
		return m.adjustVolume(volumeStep)

	case "-":
		return m.adjustVolume(-volumeStep)
	}

	// Digits seek to a fraction of the track: 0 is the start, 5 halfway.
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		if m.state.Duration <= 0 {
			return m, nil
		}
		fraction := float64(key[0]-'0') / 10
		return m, m.seekTo(m.state.Duration * fraction)
	}

	return m, nil
}

// adjustVolume moves the local target immediately and arms the debounce
// timer. Only the value standing when the timer fires is sent.
func (m Model) adjustVolume(delta int) (Model, tea.Cmd) {
	if m.volumeTarget < 0 {
		m.volumeTarget = m.state.Volume
	}
	m.volumeTarget += delta
	if m.volumeTarget < 0 {
		m.volumeTarget = 0
	}
	if m.volumeTarget > 100 {
		m.volumeTarget = 100
	}
	m.volumeDirty = true
	m.volumeToken++
	token := m.volumeToken
	return m, tea.Tick(m.opts.VolumeDebounce, func(time.Time) tea.Msg {
		return volumeDebounceMsg{token: token}
	})
}

func (m Model) handleQueueKey(key string) (Model, tea.Cmd) {
	switch key {
	case "tab", "esc":
		m.showQueue = false
		return m, nil

	case "j", "down":
		if m.queueCursor < len(m.queue.Tracks)-1 {
			m.queueCursor++
		}
		return m, nil

	case "k", "up":
		if m.queueCursor > 0 {
			m.queueCursor--
		}
		return m, nil

	case "enter":
		if len(m.queue.Tracks) == 0 {
			return m, nil
		}
		index := m.queueCursor
		return m, m.queueAction(func(ctx context.Context) (client.Queue, error) {
			return m.backend.Jump(ctx, index)
		}, "")

	case "x":
		if len(m.queue.Tracks) == 0 {
			return m, nil
		}
		index := m.queueCursor
		return m, m.queueAction(func(ctx context.Context) (client.Queue, error) {
			return m.backend.Remove(ctx, index)
		}, "removed from queue")
	}
	return m, nil
}

// handleFilterKey feeds keys to the filter input until it is dismissed.
func (m Model) handleFilterKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearBrowseFilter()
		m.browse.cursor = 0
		return m, nil
	case "enter":
		m.browse.filtering = false
		m.browse.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.browse.filter, cmd = m.browse.filter.Update(msg)
	m.browse.query = m.browse.filter.Value()
	m.browse.cursor = 0
	return m, cmd
}

func (m Model) handleBrowseKey(key string) (Model, tea.Cmd) {
	switch key {
	case "/":
		m.browse.filtering = true
		m.browse.filter.Focus()
		return m, textinput.Blink
	case "b", "esc":
		if key == "esc" && m.browse.level > levelLibraries {
			return m.browseUp()
		}
		m.showBrowse = false
		return m, nil

	case "backspace":
		if m.browse.level > levelLibraries {
			return m.browseUp()
		}
		return m, nil

	case "j", "down":
		if m.browse.cursor < m.browseLen()-1 {
			m.browse.cursor++
		}
		return m, nil

	case "k", "up":
		if m.browse.cursor > 0 {
			m.browse.cursor--
		}
		return m, nil

	case "enter":
		return m.browseEnter()

	case "w":
		// Play the selected track immediately, keeping the queue
		if t, ok := m.selectedTrack(); ok {
			albumID := m.browse.album.ID
			return m, m.queueAction(func(ctx context.Context) (client.Queue, error) {
				return m.backend.PlayNow(ctx, albumID, t.ID)
			}, "playing now: "+t.Name)
		}

	case "e":
		if t, ok := m.selectedTrack(); ok {
			albumID := m.browse.album.ID
			return m, m.queueAction(func(ctx context.Context) (client.Queue, error) {
				return m.backend.PlayNext(ctx, albumID, t.ID)
			}, "up next: "+t.Name)
		}

	case "a":
		if t, ok := m.selectedTrack(); ok {
			albumID := m.browse.album.ID
			return m, m.queueAction(func(ctx context.Context) (client.Queue, error) {
				return m.backend.AddToQueue(ctx, albumID, t.ID)
			}, "queued: "+t.Name)
		}
	}
	return m, nil
}

// browseEnter descends a level; on a track it starts album playback from
// that track.
func (m Model) browseEnter() (Model, tea.Cmd) {
	raw, ok := m.browseRawIndex(m.browse.cursor)
	if !ok {
		return m, nil
	}
	switch m.browse.level {
	case levelLibraries:
		m.browse.library = m.browse.libraries[raw]
		m.browse.loading = true
		return m, m.loadArtists(m.browse.library.ID)
	case levelArtists:
		m.browse.artist = m.browse.artists[raw]
		m.browse.loading = true
		return m, m.loadAlbums(m.browse.artist.ID)
	case levelAlbums:
		m.browse.album = m.browse.albums[raw]
		m.browse.loading = true
		return m, m.loadTracks(m.browse.album.ID)
	case levelTracks:
		m.showBrowse = false
		return m, m.playAlbum(m.browse.album.ID, m.browse.tracks[raw].ID)
	}
	return m, nil
}

func (m Model) browseUp() (Model, tea.Cmd) {
	switch m.browse.level {
	case levelArtists:
		m.browse.level = levelLibraries
	case levelAlbums:
		m.browse.level = levelArtists
	case levelTracks:
		m.browse.level = levelAlbums
	}
	m.browse.cursor = 0
	m.clearBrowseFilter()
	return m, nil
}

// browseRawLen is the unfiltered size of the current level.
func (m Model) browseRawLen() int {
	switch m.browse.level {
	case levelLibraries:
		return len(m.browse.libraries)
	case levelArtists:
		return len(m.browse.artists)
	case levelAlbums:
		return len(m.browse.albums)
	default:
		return len(m.browse.tracks)
	}
}

// browseName is the plain name of the unfiltered entry at raw, used for
// filter matching.
func (m Model) browseName(raw int) string {
	switch m.browse.level {
	case levelLibraries:
		return m.browse.libraries[raw].Name
	case levelArtists:
		return m.browse.artists[raw].Name
	case levelAlbums:
		return m.browse.albums[raw].Name
	default:
		return m.browse.tracks[raw].Name
	}
}

// browseVisible maps visible positions to unfiltered indexes.
func (m Model) browseVisible() []int {
	q := strings.ToLower(strings.TrimSpace(m.browse.query))
	n := m.browseRawLen()
	visible := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if q == "" || strings.Contains(strings.ToLower(m.browseName(i)), q) {
			visible = append(visible, i)
		}
	}
	return visible
}

func (m Model) browseLen() int {
	return len(m.browseVisible())
}

// browseRawIndex resolves a visible cursor position to its unfiltered index.
func (m Model) browseRawIndex(pos int) (int, bool) {
	visible := m.browseVisible()
	if pos < 0 || pos >= len(visible) {
		return 0, false
	}
	return visible[pos], true
}

func (m Model) selectedTrack() (client.Track, bool) {
	if m.browse.level != levelTracks {
		return client.Track{}, false
	}
	raw, ok := m.browseRawIndex(m.browse.cursor)
	if !ok {
		return client.Track{}, false
	}
	return m.browse.tracks[raw], true
}
