package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkoenig/tonbox/internal/client"
)

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opts.RequestTimeout)
}

func (m Model) fetchState() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		state, err := m.backend.State(ctx)
		if err != nil {
			return pollErrMsg{err: err}
		}
		return stateMsg(state)
	}
}

func (m Model) fetchQueue() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		queue, err := m.backend.GetQueue(ctx)
		if err != nil {
			return pollErrMsg{err: err}
		}
		return queueMsg(queue)
	}
}

// stateAction wraps a transport command returning the fresh state.
func (m Model) stateAction(fn func(context.Context) (client.State, error), notice string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		state, err := fn(ctx)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return actionDoneMsg{state: &state, notice: notice}
	}
}

// queueAction wraps a queue mutation returning the fresh queue.
func (m Model) queueAction(fn func(context.Context) (client.Queue, error), notice string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		queue, err := fn(ctx)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return actionDoneMsg{queue: &queue, notice: notice}
	}
}

func (m Model) playAlbum(albumID, startTrackID string) tea.Cmd {
	return m.stateAction(func(ctx context.Context) (client.State, error) {
		return m.backend.Play(ctx, albumID, startTrackID)
	}, "")
}

func (m Model) seekTo(position float64) tea.Cmd {
	return m.stateAction(func(ctx context.Context) (client.State, error) {
		return m.backend.Seek(ctx, position)
	}, "")
}

func (m Model) sendVolume(level, token int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		applied, err := m.backend.SetVolume(ctx, level)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return volumeAppliedMsg{token: token, volume: applied}
	}
}

func (m Model) loadLibraries() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		libs, err := m.backend.Libraries(ctx)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return librariesMsg(libs)
	}
}

func (m Model) loadArtists(libraryID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		artists, err := m.backend.Artists(ctx, libraryID)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return artistsMsg(artists)
	}
}

func (m Model) loadAlbums(artistID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		albums, err := m.backend.Albums(ctx, artistID)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return albumsMsg(albums)
	}
}

func (m Model) loadTracks(albumID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.withTimeout()
		defer cancel()

		tracks, err := m.backend.AlbumTracks(ctx, albumID)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return tracksMsg(tracks)
	}
}
