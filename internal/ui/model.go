// Package ui is the kiosk display: a bubbletea program that mirrors the
// server's session state and sends commands back. The server stays the only
// source of truth; everything shown here is a reconciled snapshot.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkoenig/tonbox/internal/client"
)

// Backend is the slice of the server client the display uses.
type Backend interface {
	State(ctx context.Context) (client.State, error)
	GetQueue(ctx context.Context) (client.Queue, error)
	Play(ctx context.Context, albumID, startTrackID string) (client.State, error)
	Pause(ctx context.Context) (client.State, error)
	Resume(ctx context.Context) (client.State, error)
	Stop(ctx context.Context) (client.State, error)
	Next(ctx context.Context) (client.State, error)
	Previous(ctx context.Context) (client.State, error)
	Reset(ctx context.Context) (client.State, error)
	Seek(ctx context.Context, position float64) (client.State, error)
	SetVolume(ctx context.Context, level int) (int, error)
	Jump(ctx context.Context, index int) (client.Queue, error)
	Remove(ctx context.Context, index int) (client.Queue, error)
	AddToQueue(ctx context.Context, albumID, trackID string) (client.Queue, error)
	PlayNext(ctx context.Context, albumID, trackID string) (client.Queue, error)
	PlayNow(ctx context.Context, albumID, trackID string) (client.Queue, error)
	Libraries(ctx context.Context) ([]client.Library, error)
	Artists(ctx context.Context, libraryID string) ([]client.Artist, error)
	Albums(ctx context.Context, artistID string) ([]client.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]client.Track, error)
}

// Options tune the reconciliation loop.
type Options struct {
	PollInterval   time.Duration
	VolumeDebounce time.Duration
	RequestTimeout time.Duration
}

func (o *Options) fillDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.VolumeDebounce <= 0 {
		o.VolumeDebounce = 200 * time.Millisecond
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 5 * time.Second
	}
}

const noticeDuration = 4 * time.Second

// browseLevel is the depth of the catalog browser.
type browseLevel int

const (
	levelLibraries browseLevel = iota
	levelArtists
	levelAlbums
	levelTracks
)

// browseState holds the catalog browser position.
type browseState struct {
	level   browseLevel
	cursor  int
	loading bool

	libraries []client.Library
	artists   []client.Artist
	albums    []client.Album
	tracks    []client.Track

	// Breadcrumb of what was descended into.
	library client.Library
	artist  client.Artist
	album   client.Album

	// Substring filter over the current level.
	filter    textinput.Model
	filtering bool
	query     string
}

func newBrowseState() browseState {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.CharLimit = 64
	ti.Width = 30
	return browseState{loading: true, filter: ti}
}

// Model is the display state.
type Model struct {
	backend Backend
	opts    Options

	width  int
	height int

	// Reconciled server state
	state    client.State
	queue    client.Queue
	haveSync bool

	// Poll loop: at most one state request in flight at a time. A slow
	// server must not pile up requests behind itself.
	polling bool
	offline bool

	// Queue overlay
	showQueue   bool
	queueCursor int

	// Catalog browser
	showBrowse bool
	browse     browseState

	// Volume debounce: keys adjust the target immediately, only the final
	// value is sent once the keys go quiet.
	volumeTarget int
	volumeDirty  bool
	volumeToken  int

	// Transient status line message
	notice      string
	noticeToken int

	quitting bool
}

// NewModel creates the display model.
func NewModel(backend Backend, opts Options) Model {
	opts.fillDefaults()
	return Model{
		backend:      backend,
		opts:         opts,
		volumeTarget: -1,
	}
}

// Messages

type tickMsg time.Time

type stateMsg client.State

type queueMsg client.Queue

// pollErrMsg is a failure of the background poll.
type pollErrMsg struct{ err error }

// actionDoneMsg reports a user command that succeeded. Fresh snapshots ride
// along so the UI updates without waiting for the next poll.
type actionDoneMsg struct {
	state  *client.State
	queue  *client.Queue
	notice string
}

// actionErrMsg reports a user command the server rejected or that never
// arrived.
type actionErrMsg struct{ err error }

type volumeDebounceMsg struct{ token int }

type volumeAppliedMsg struct {
	token  int
	volume int
}

type noticeExpireMsg struct{ token int }

type librariesMsg []client.Library
type artistsMsg []client.Artist
type albumsMsg []client.Album
type tracksMsg []client.Track

// Init starts the poll loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.fetchState())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		mm, cmd := m.handleKey(msg)
		return mm, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{m.tick()}
		if !m.polling {
			m.polling = true
			cmds = append(cmds, m.fetchState())
			if m.showQueue {
				cmds = append(cmds, m.fetchQueue())
			}
		}
		return m, tea.Batch(cmds...)

	case stateMsg:
		m.polling = false
		m.offline = false
		m.haveSync = true
		m.applyState(client.State(msg))
		return m, nil

	case queueMsg:
		m.queue = client.Queue(msg)
		m.clampQueueCursor()
		return m, nil

	case pollErrMsg:
		m.polling = false
		if client.IsConnectivity(msg.err) {
			m.offline = true
		}
		return m, nil

	case actionDoneMsg:
		var cmd tea.Cmd
		m.offline = false
		if msg.state != nil {
			m.applyState(*msg.state)
			m.haveSync = true
		}
		if msg.queue != nil {
			m.queue = *msg.queue
			m.clampQueueCursor()
		}
		if msg.notice != "" {
			m, cmd = m.setNotice(msg.notice)
		}
		return m, cmd

	case actionErrMsg:
		if client.IsConnectivity(msg.err) {
			m.offline = true
			return m, nil
		}
		mm, cmd := m.setNotice(msg.err.Error())
		return mm, cmd

	case volumeDebounceMsg:
		// A newer keypress superseded this timer.
		if msg.token != m.volumeToken || !m.volumeDirty {
			return m, nil
		}
		return m, m.sendVolume(m.volumeTarget, msg.token)

	case volumeAppliedMsg:
		m.offline = false
		m.state.Volume = msg.volume
		if msg.token == m.volumeToken {
			m.volumeDirty = false
			m.volumeTarget = msg.volume
		}
		return m, nil

	case noticeExpireMsg:
		if msg.token == m.noticeToken {
			m.notice = ""
		}
		return m, nil

	case librariesMsg:
		m.browse.loading = false
		m.browse.libraries = msg
		m.browse.level = levelLibraries
		m.browse.cursor = 0
		m.clearBrowseFilter()
		return m, nil

	case artistsMsg:
		m.browse.loading = false
		m.browse.artists = msg
		m.browse.level = levelArtists
		m.browse.cursor = 0
		m.clearBrowseFilter()
		return m, nil

	case albumsMsg:
		m.browse.loading = false
		m.browse.albums = msg
		m.browse.level = levelAlbums
		m.browse.cursor = 0
		m.clearBrowseFilter()
		return m, nil

	case tracksMsg:
		m.browse.loading = false
		m.browse.tracks = msg
		m.browse.level = levelTracks
		m.browse.cursor = 0
		m.clearBrowseFilter()
		return m, nil
	}

	return m, nil
}

// applyState folds a server snapshot in, keeping a locally pending volume
// change on top of it.
func (m *Model) applyState(s client.State) {
	if m.volumeDirty {
		s.Volume = m.state.Volume
	}
	m.state = s
	if m.volumeTarget < 0 && !m.volumeDirty {
		m.volumeTarget = s.Volume
	}
}

func (m *Model) clearBrowseFilter() {
	m.browse.filtering = false
	m.browse.query = ""
	m.browse.filter.SetValue("")
	m.browse.filter.Blur()
}

func (m *Model) clampQueueCursor() {
	if m.queueCursor >= len(m.queue.Tracks) {
		m.queueCursor = len(m.queue.Tracks) - 1
	}
	if m.queueCursor < 0 {
		m.queueCursor = 0
	}
}

// Run starts the display program.
func Run(backend Backend, opts Options) error {
	p := tea.NewProgram(NewModel(backend, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) setNotice(text string) (Model, tea.Cmd) {
	m.notice = text
	m.noticeToken++
	token := m.noticeToken
	return m, tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpireMsg{token: token}
	})
}
