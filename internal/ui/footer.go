package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/rivo/tview"
)

type StatusRenderer struct {
	audio         AudioInfo
	status        playback.Status
	isMuted       bool
	animFrame     int
	maxAnimFrame  int
	tickCount     int
	ticksPerFrame int

	bufferHealth         int
	bufferTickCount      int
	bufferTicksPerUpdate int

	primaryColor string
	mu           sync.Mutex
}

func NewStatusRenderer(audio AudioInfo) *StatusRenderer {
	return &StatusRenderer{
		audio:                audio,
		status:               playback.Status{State: playback.StateIdle},
		maxAnimFrame:         4,
		ticksPerFrame:        8,  // Slow down animation (8 ticks per frame)
		bufferTicksPerUpdate: 10, // Update buffer about once per second at 10 FPS
	}
}

func (s *StatusRenderer) SetMuted(muted bool) {
	s.mu.Lock()
	s.isMuted = muted
	s.mu.Unlock()
}

func (s *StatusRenderer) SetPrimaryColor(color string) {
	s.primaryColor = color
}

// SetStatus records the latest controller snapshot.
func (s *StatusRenderer) SetStatus(st playback.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *StatusRenderer) AdvanceAnimation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickCount++
	if s.tickCount >= s.ticksPerFrame {
		s.tickCount = 0
		s.animFrame = (s.animFrame + 1) % s.maxAnimFrame
	}

	s.bufferTickCount++
	if s.bufferTickCount >= s.bufferTicksPerUpdate {
		s.bufferTickCount = 0
		if s.audio != nil {
			s.bufferHealth = s.audio.GetBufferHealth()
		}
	}
}

func (s *StatusRenderer) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status.State {
	case playback.StateConnecting:
		return s.renderConnecting()
	case playback.StatePlaying:
		return s.renderPlaying()
	case playback.StatePaused:
		return s.renderPaused()
	case playback.StateBlocked:
		return s.renderError()
	case playback.StateAudioBlocked:
		return s.renderAudioBlocked()
	default:
		return s.renderIdle()
	}
}

func (s *StatusRenderer) renderIdle() string {
	if s.isMuted {
		return "○ IDLE │ [red]MUTED[-] │ Pick a mood"
	}
	return "○ IDLE │ Pick a mood"
}

func (s *StatusRenderer) renderConnecting() string {
	circles := []string{"◐", "◓", "◑", "◒"}
	text := fmt.Sprintf("%s TUNING", circles[s.animFrame])
	if s.status.Failures > 0 {
		text += fmt.Sprintf(" │ retry %d", s.status.Failures)
	}
	if s.status.Genre != "" {
		text += " │ " + s.status.Genre
	}
	return text
}

func (s *StatusRenderer) streamDetails() string {
	if s.audio == nil {
		return ""
	}
	info := s.audio.GetStreamInfo()
	if info.Format == "" {
		return ""
	}
	sampleRateKHz := float64(info.SampleRate) / 1000.0
	return fmt.Sprintf("%s %s %dk %.1fkHz",
		info.Format,
		qualityShort(info.Quality),
		info.Bitrate,
		sampleRateKHz)
}

func (s *StatusRenderer) renderPlaying() string {
	dots := []string{"●", "◉", "○", "◉"}
	dot := dots[s.animFrame]

	if s.primaryColor != "" {
		dot = fmt.Sprintf("[%s]%s[-]", s.primaryColor, dot)
	}

	parts := []string{dot + " LIVE"}

	if s.isMuted {
		parts = append(parts, "[red]MUTED[-]")
	}
	if details := s.streamDetails(); details != "" {
		parts = append(parts, details)
	}
	if s.audio != nil {
		if d := s.audio.GetSessionDuration(); d >= time.Second {
			parts = append(parts, formatElapsed(d))
		}
	}
	if s.status.Source != "" {
		parts = append(parts, string(s.status.Source))
	}

	parts = append(parts, s.formatBufferHealth(s.bufferHealth))

	return joinParts(parts)
}

func (s *StatusRenderer) renderPaused() string {
	parts := []string{PauseIcon + " PAUSED"}

	if s.isMuted {
		parts = append(parts, "[red]MUTED[-]")
	}
	if details := s.streamDetails(); details != "" {
		parts = append(parts, details)
	}
	if s.audio != nil {
		if d := s.audio.GetPlaybackDelay(); d >= time.Second {
			parts = append(parts, fmt.Sprintf("-%s behind live", formatElapsed(d)))
		}
	}

	return joinParts(parts)
}

func (s *StatusRenderer) renderError() string {
	errMsg := s.status.Error
	if errMsg == "" && s.audio != nil {
		errMsg = s.audio.GetLastError()
	}
	if errMsg == "" {
		errMsg = "ERROR"
	}
	return fmt.Sprintf("✗ %s │ r retry", errMsg)
}

func (s *StatusRenderer) renderAudioBlocked() string {
	return "♪ AUDIO BLOCKED │ Space to enable"
}

// formatElapsed renders d as m:ss, or h:mm:ss past the hour.
func formatElapsed(d time.Duration) string {
	total := int(d / time.Second)
	h, m, sec := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func (s *StatusRenderer) formatBufferHealth(percent int) string {
	signalBars := []string{"▁", "▂", "▃", "▅", "▇"}
	const numBars = 5

	filled := (percent * numBars) / 100
	if filled > numBars {
		filled = numBars
	}

	var bar strings.Builder
	for i := 0; i < numBars; i++ {
		if i < filled {
			bar.WriteString(signalBars[i])
		} else {
			bar.WriteString(signalBars[0])
		}
	}
	return bar.String()
}

func qualityShort(quality string) string {
	switch quality {
	case "highest", "high":
		return "HQ"
	case "medium":
		return "MQ"
	case "low":
		return "LQ"
	default:
		return ""
	}
}

func joinParts(parts []string) string {
	return strings.Join(parts, " │ ")
}

func (ui *UI) getPlaybackHint(keyColor string) string {
	switch ui.status.State {
	case playback.StatePaused, playback.StateAudioBlocked:
		return fmt.Sprintf("[%s]Space[-] resume  [%s]n[-] next", keyColor, keyColor)
	case playback.StatePlaying, playback.StateConnecting:
		return fmt.Sprintf("[%s]Space[-] pause  [%s]n/p[-] next/prev  [%s]f[-] fav", keyColor, keyColor, keyColor)
	case playback.StateBlocked:
		return fmt.Sprintf("[%s]r[-] retry  [%s]/[-] new mood", keyColor, keyColor)
	default:
		return fmt.Sprintf("[%s]/[-] mood  [%s]g[-] genres", keyColor, keyColor)
	}
}

func (ui *UI) getHelpText() string {
	keyColor := ui.colors.helpHotkey.String()
	playbackHint := ui.getPlaybackHint(keyColor)

	muteText := "mute"
	if ui.isMuted {
		muteText = "unmute"
	}

	return fmt.Sprintf(" %s  [%s]+/-[-] vol  [%s]m[-] %s  [%s]?[-] help  [%s]q[-] quit ",
		playbackHint, keyColor, keyColor, muteText, keyColor, keyColor)
}

func (ui *UI) handleFooterResize(width int) {
	isWide := width >= FooterBreakpoint
	wasWide := ui.lastFooterWidth >= FooterBreakpoint

	if ui.lastFooterWidth > 0 && isWide != wasWide && ui.contentLayout != nil {
		newHeight := FooterHeightWide
		if !isWide {
			newHeight = FooterHeightNarrow
		}
		ui.contentLayout.ResizeItem(ui.helpPanel, newHeight, 0)
	}
	ui.lastFooterWidth = width
}

type rect struct{ x, y, w, h int }

func fillRect(screen tcell.Screen, r rect, bg tcell.Color) {
	style := tcell.StyleDefault.Background(bg)
	for row := r.y; row < r.y+r.h; row++ {
		for col := r.x; col < r.x+r.w; col++ {
			screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

// footerLayout splits the footer into the key hints and the status line:
// side by side on wide terminals, stacked otherwise.
func footerLayout(x, y, width, height int) (help, status rect) {
	if width >= FooterBreakpoint {
		h := min(height, FooterHeightWide)
		half := width / 2
		return rect{x, y, half, h}, rect{x + half, y, width - half, h}
	}

	top := max(height/2, 1)
	return rect{x, y, width, top}, rect{x, y + top, width, height - top}
}

func (ui *UI) createFooter() *tview.Box {
	box := tview.NewBox().SetBackgroundColor(ui.colors.background)

	box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		ui.handleFooterResize(width)

		help, status := footerLayout(x, y, width, height)
		fillRect(screen, help, ui.colors.helpBackground)
		fillRect(screen, status, ui.colors.background)

		tview.Print(screen, ui.getHelpText(), help.x, help.y+help.h/2, help.w, tview.AlignCenter, ui.colors.helpForeground)
		if status.h > 0 {
			statusText := " " + ui.statusRenderer.Render() + " "
			tview.Print(screen, statusText, status.x, status.y+status.h/2, status.w-2, tview.AlignRight, ui.colors.foreground)
		}

		return x, y, width, height
	})

	return box
}
