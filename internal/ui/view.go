package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#7C3AED")
	colorGood   = lipgloss.Color("#10B981")
	colorWarn   = lipgloss.Color("#F59E0B")
	colorBad    = lipgloss.Color("#EF4444")
	colorMuted  = lipgloss.Color("#9CA3AF")
	colorDim    = lipgloss.Color("#6B7280")

	styleTitle    = lipgloss.NewStyle().Bold(true)
	styleMuted    = lipgloss.NewStyle().Foreground(colorMuted)
	styleDim      = lipgloss.NewStyle().Foreground(colorDim)
	stylePlaying  = lipgloss.NewStyle().Foreground(colorGood)
	stylePaused   = lipgloss.NewStyle().Foreground(colorWarn)
	styleError    = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	styleCursor   = lipgloss.NewStyle().Background(lipgloss.Color("237"))
	styleCurrent  = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	styleOverlay  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(1, 2)
	styleOffline  = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(colorBad).Padding(1, 3)
	styleStatusOK = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
)

// View renders the display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	// Offline blocks everything: stale controls on a kiosk are worse than
	// no controls.
	if m.offline {
		return m.center(styleOffline.Render(
			styleError.Render("SERVER UNREACHABLE") + "\n\n" +
				styleMuted.Render("Reconnecting...") + "\n" +
				styleDim.Render("q to quit"),
		))
	}

	if m.showQueue {
		return m.center(m.renderQueue())
	}
	if m.showBrowse {
		return m.center(m.renderBrowse())
	}

	body := m.renderNowPlaying()
	status := m.renderStatusBar()
	pad := m.height - lipgloss.Height(body) - lipgloss.Height(status)
	if pad < 0 {
		pad = 0
	}
	return body + strings.Repeat("\n", pad) + status
}

func (m Model) center(content string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (m Model) renderNowPlaying() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("tonbox"))
	b.WriteString("  ")
	b.WriteString(m.renderStateBadge())
	b.WriteString("\n\n")

	if !m.haveSync {
		b.WriteString(styleMuted.Render("Connecting to server..."))
		return b.String()
	}

	switch m.state.State {
	case "idle":
		b.WriteString(styleMuted.Render("Nothing playing. Press b to browse the library."))
	case "stopped":
		b.WriteString(styleMuted.Render("Playback finished. Press r to clear, b to browse."))
	case "error":
		b.WriteString(styleError.Render("Playback failed."))
		b.WriteString("\n")
		b.WriteString(styleMuted.Render("Press r to reset the session."))
	default:
		b.WriteString(m.renderTrack())
	}

	return b.String()
}

func (m Model) renderStateBadge() string {
	switch m.state.State {
	case "playing":
		return stylePlaying.Render("▶ playing")
	case "paused":
		return stylePaused.Render("⏸ paused")
	case "loading":
		return styleMuted.Render("… loading")
	case "error":
		return styleError.Render("✗ error")
	default:
		return styleDim.Render(m.state.State)
	}
}

func (m Model) renderTrack() string {
	t := m.state.Track
	if t == nil {
		return styleMuted.Render("Loading track...")
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render(t.Name))
	b.WriteString("\n")
	if t.Artist != "" {
		b.WriteString(styleMuted.Render(t.Artist))
		b.WriteString("\n")
	}
	b.WriteString(styleDim.Render(fmt.Sprintf("track %d of %d", m.state.Index+1, m.state.TotalTracks)))
	b.WriteString("\n\n")

	width := m.width - 16
	if width < 10 {
		width = 10
	}
	b.WriteString(fmt.Sprintf("%s %s %s",
		formatTime(m.state.Position),
		progressBar(m.state.Position, m.state.Duration, width),
		formatTime(m.state.Duration),
	))
	b.WriteString("\n\n")
	b.WriteString(styleDim.Render(fmt.Sprintf("volume %d", m.displayVolume())))

	return b.String()
}

// displayVolume prefers the locally pending target so keypresses show up
// before the server confirms them.
func (m Model) displayVolume() int {
	if m.volumeDirty && m.volumeTarget >= 0 {
		return m.volumeTarget
	}
	return m.state.Volume
}

func (m Model) renderQueue() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Queue"))
	b.WriteString("\n\n")

	if len(m.queue.Tracks) == 0 {
		b.WriteString(styleMuted.Render("Queue is empty"))
	}
	currentID := ""
	if m.state.Track != nil {
		currentID = m.state.Track.ID
	}
	for i, t := range m.queue.Tracks {
		line := fmt.Sprintf("%2d  %s", i+1, t.Name)
		// The playing marker follows track identity, not position: after
		// a removal the indexes shift but the highlighted row must not.
		if currentID != "" && t.ID == currentID {
			line = styleCurrent.Render("♪ " + line)
		} else {
			line = "  " + line
		}
		if i == m.queueCursor {
			line = styleCursor.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleDim.Render("j/k:move  enter:play  x:remove  tab:close"))
	return styleOverlay.Render(b.String())
}

func (m Model) renderBrowse() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Library"))
	b.WriteString("  ")
	b.WriteString(styleDim.Render(m.browseCrumb()))
	b.WriteString("\n\n")

	if m.browse.filtering || m.browse.query != "" {
		b.WriteString("/ ")
		b.WriteString(m.browse.filter.View())
		b.WriteString("\n\n")
	}

	if m.browse.loading {
		b.WriteString(styleMuted.Render("Loading..."))
	} else if m.browseLen() == 0 {
		if m.browse.query != "" {
			b.WriteString(styleMuted.Render("No matches"))
		} else {
			b.WriteString(styleMuted.Render("Nothing here"))
		}
	} else {
		for i := 0; i < m.browseLen(); i++ {
			line := "  " + m.browseLabel(i)
			if i == m.browse.cursor {
				line = styleCursor.Render("> " + m.browseLabel(i))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.browse.level == levelTracks {
		b.WriteString(styleDim.Render("enter:play album here  w:play now  e:play next  a:queue  /:filter  backspace:up  b:close"))
	} else {
		b.WriteString(styleDim.Render("j/k:move  enter:open  /:filter  backspace:up  b:close"))
	}
	return styleOverlay.Render(b.String())
}

func (m Model) browseCrumb() string {
	switch m.browse.level {
	case levelLibraries:
		return "libraries"
	case levelArtists:
		return m.browse.library.Name
	case levelAlbums:
		return m.browse.library.Name + " / " + m.browse.artist.Name
	default:
		return m.browse.artist.Name + " / " + m.browse.album.Name
	}
}

// browseLabel renders the entry at visible position i.
func (m Model) browseLabel(i int) string {
	raw, ok := m.browseRawIndex(i)
	if !ok {
		return ""
	}
	switch m.browse.level {
	case levelLibraries:
		return m.browse.libraries[raw].Name
	case levelArtists:
		return m.browse.artists[raw].Name
	case levelAlbums:
		a := m.browse.albums[raw]
		if a.Year > 0 {
			return fmt.Sprintf("%s (%d)", a.Name, a.Year)
		}
		return a.Name
	default:
		t := m.browse.tracks[raw]
		return fmt.Sprintf("%s  %s", t.Name, styleDim.Render(formatTime(t.Duration)))
	}
}

func (m Model) renderStatusBar() string {
	if m.notice != "" {
		return styleStatusOK.Foreground(colorWarn).Render(m.notice)
	}
	return styleStatusOK.Render("space:play/pause  n:next  p:prev  s:stop  +/-:volume  0-9:seek  tab:queue  b:browse  q:quit")
}

func progressBar(position, duration float64, width int) string {
	if duration <= 0 {
		return strings.Repeat("─", width)
	}
	filled := int(position / duration * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return stylePlaying.Render(strings.Repeat("━", filled)) + styleDim.Render(strings.Repeat("─", width-filled))
}

func formatTime(seconds float64) string {
	s := int(seconds)
	if s < 0 {
		s = 0
	}
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
