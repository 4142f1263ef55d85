package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/moodradio/internal/api"
	"github.com/glebovdev/moodradio/internal/config"
	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/glebovdev/moodradio/internal/service"
	"github.com/rivo/tview"
)

const helpKeyColumn = 11

func friendlyErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, playback.ErrNoLiveStations):
		return "No live stations are responding for this mood.\nTry again or pick another mood."
	case errors.Is(err, api.ErrDirectoryUnreachable):
		return "The station directory is unreachable.\nPlease check your internet connection."
	case errors.Is(err, service.ErrNoStationsForTag):
		return "No stations found for this mood.\nTry describing it differently."
	}

	errStr := err.Error()
	if strings.Contains(errStr, "no such host") {
		return "Unable to connect to server.\nPlease check your internet connection."
	}
	if strings.Contains(errStr, "connection refused") {
		return "Connection refused by server.\nThe service may be temporarily unavailable."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Connection timed out.\nPlease check your internet connection."
	}
	if strings.Contains(errStr, "network is unreachable") || strings.Contains(errStr, "network read error") {
		return "Network is unreachable.\nPlease check your internet connection."
	}
	if strings.Contains(errStr, "status 401") {
		return "Stream access denied (401)."
	}
	if strings.Contains(errStr, "status 403") {
		return "Stream access forbidden (403)."
	}
	if strings.Contains(errStr, "status 404") {
		return "Stream not found (404)."
	}

	if idx := strings.Index(errStr, ": dial"); idx > 0 {
		return errStr[:idx]
	}
	if len(errStr) > 100 {
		return errStr[:100] + "..."
	}
	return errStr
}

func (ui *UI) showBlockedModal(st playback.Status) {
	err := st.Err
	if err == nil && st.Error != "" {
		err = errors.New(st.Error)
	}
	if err == nil {
		err = playback.ErrNoCandidates
	}
	ui.showPlaybackErrorModal("Nothing to Play", friendlyErrorMessage(err), ui.controller.Retry)
}

func (ui *UI) showAudioBlockedModal() {
	ui.showPlaybackErrorModal("Audio Blocked",
		"The audio device could not be opened.\nCheck your output device, then retry.",
		ui.controller.Retry)
}

func (ui *UI) dismissModal(name string) {
	ui.pages.RemovePage(name)
	ui.app.SetFocus(ui.stationList)
}

// centered wraps p in a fixed-size box in the middle of the screen.
func (ui *UI) centered(p tview.Primitive, width, height int) *tview.Flex {
	return ui.cols().
		AddItem(nil, 0, 1, false).
		AddItem(ui.rows().
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false),
			width, 0, true).
		AddItem(nil, 0, 1, false)
}

func (ui *UI) showPlaybackErrorModal(title, message string, onRetry func()) {
	const page = "error-modal"
	if ui.pages.HasPage(page) {
		ui.pages.RemovePage(page)
	}

	doRetry := func() {
		ui.dismissModal(page)
		if onRetry != nil {
			onRetry()
		}
	}

	messageView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText(fmt.Sprintf("\n[::b]%s[::-]\n\n%s", title, message))
	messageView.SetTextColor(ui.colors.foreground)
	messageView.SetBackgroundColor(ui.colors.modalBackground)

	content := ui.rows().
		AddItem(messageView, 0, 1, false).
		AddItem(ui.hint("[::b]R[::d] retry  •  [::b]/[::d] new mood  •  [::b]Esc[::d] dismiss"), 1, 0, false).
		AddItem(nil, 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	frame := tview.NewFrame(content).
		SetBorders(0, 0, 1, 1, 1, 1)
	frame.SetBorder(true).
		SetBorderColor(ui.colors.highlight).
		SetBackgroundColor(ui.colors.modalBackground).
		SetTitle(" Error ").
		SetTitleColor(ui.colors.highlight).
		SetTitleAlign(tview.AlignCenter)

	modalHeight := 10
	if lines := strings.Count(message, "\n") + 1; lines > 2 {
		modalHeight = min(modalHeight+lines-2, 15)
	}

	modal := ui.centered(frame, 50, modalHeight)
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyEnter:
			ui.dismissModal(page)
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'r', 'R':
				doRetry()
				return nil
			case '/':
				ui.dismissModal(page)
				ui.showMoodModal()
				return nil
			}
		}
		return event
	})

	ui.pages.AddPage(page, modal, true, true)
	ui.app.SetFocus(modal)
}

func (ui *UI) showHelpModal() {
	k := ui.colors.helpHotkey.String()
	key := func(name string) string { return fmt.Sprintf("[%s]%s[-]", k, name) }

	configPath, _ := config.GetConfigPath()

	var b strings.Builder
	b.WriteString("[::b]KEYBOARD SHORTCUTS[::-]\n")
	section := func(title string, rows ...[2]string) {
		fmt.Fprintf(&b, "\n[%s]%s[-]\n", k, title)
		for _, r := range rows {
			pad := max(helpKeyColumn-tview.TaggedStringWidth(r[0]), 1)
			fmt.Fprintf(&b, "  %s%s%s\n", r[0], strings.Repeat(" ", pad), r[1])
		}
	}
	section("MOOD",
		[2]string{key("/"), "Describe a mood"},
		[2]string{key("g"), "Pick a genre"},
	)
	section("PLAYBACK",
		[2]string{key("Space"), "Pause / Resume"},
		[2]string{key("n"), "Next station"},
		[2]string{key("p"), "Previous station"},
		[2]string{key("Enter"), "Play selected candidate"},
		[2]string{key("s"), "Stop"},
		[2]string{key("r"), "Retry"},
	)
	section("VOLUME",
		[2]string{key("+") + " / " + key("-"), "Volume up / down"},
		[2]string{key("m"), "Mute / Unmute"},
	)
	section("FAVORITES",
		[2]string{key("f"), "Toggle favorite"},
		[2]string{key("v"), "Show favorites"},
	)
	section("APPLICATION",
		[2]string{key("?"), "Show this help"},
		[2]string{key("a"), "About " + config.AppName},
		[2]string{key("q") + " / " + key("Esc"), "Quit"},
	)
	fmt.Fprintf(&b, "\n[%s]CONFIG[-]: %s", k, configPath)

	ui.showInfoModal("Help", b.String())
}

func (ui *UI) showAboutModal() {
	linkColor := "skyblue"
	dimColor := "gray"

	aboutText := fmt.Sprintf(`[::b]%s[::-]
[%s]%s[-]

Version: %s
Author:  %s ([%s:::%s]%s[-:::-])
Project: [%s:::%s]%s[-:::-]
License: MIT

───────────────────────────────────────────

[%s]Stations from the community directory[-]
[%s:::%s]%s[-:::-]`,
		config.AppName,
		dimColor, config.AppTagline,
		config.AppVersion,
		config.AppAuthor, linkColor, config.AppAuthorURL, config.AppAuthorURLShort,
		linkColor, config.AppProjectURL, config.AppProjectShort,
		dimColor,
		linkColor, config.AppDirectoryURL, config.AppDirectoryShort)

	ui.showInfoModal("About", aboutText)
}

func (ui *UI) modalFrame(content tview.Primitive, title string, border tcell.Color) *tview.Frame {
	frame := tview.NewFrame(content).
		SetBorders(1, 0, 1, 1, 2, 2)
	frame.SetBorder(true).
		SetBorderColor(border).
		SetBackgroundColor(ui.colors.modalBackground).
		SetTitle(" " + title + " ").
		SetTitleColor(ui.colors.highlight).
		SetTitleAlign(tview.AlignCenter)
	return frame
}

func (ui *UI) hint(text string) *tview.TextView {
	hintView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText("[::d]" + text + "[::-]")
	hintView.SetTextColor(tcell.ColorDarkGray)
	hintView.SetBackgroundColor(ui.colors.modalBackground)
	return hintView
}

func (ui *UI) showInfoModal(title, message string) {
	messageView := tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetDynamicColors(true).
		SetWordWrap(true).
		SetText("\n" + message)
	messageView.SetTextColor(ui.colors.foreground)
	messageView.SetBackgroundColor(ui.colors.modalBackground)

	content := ui.rows().
		AddItem(messageView, 0, 1, false).
		AddItem(nil, 2, 0, false).
		AddItem(ui.hint("Press any key to close"), 1, 0, false).
		AddItem(nil, 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	lines := strings.Count(message, "\n") + 1
	modal := ui.centered(ui.modalFrame(content, title, ui.colors.borders), 50, min(lines+10, 38))
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		ui.dismissModal("modal")
		return nil
	})

	ui.pages.AddPage("modal", modal, true, true)
	ui.app.SetFocus(modal)
}

// showMoodModal asks the listener how they feel and starts a session from it.
func (ui *UI) showMoodModal() {
	const page = "mood"
	if ui.pages.HasPage(page) {
		return
	}

	input := tview.NewInputField().
		SetLabel("Mood: ").
		SetPlaceholder("rainy night coding, gym, something like daft punk...").
		SetFieldWidth(0)
	input.SetLabelColor(ui.colors.highlight).
		SetFieldBackgroundColor(ui.colors.background).
		SetFieldTextColor(ui.colors.foreground).
		SetPlaceholderTextColor(ui.colors.borders).
		SetBackgroundColor(ui.colors.modalBackground)

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			mood := strings.TrimSpace(input.GetText())
			ui.dismissModal(page)
			if mood != "" {
				ui.startMood(mood, "")
			}
		case tcell.KeyEscape:
			ui.dismissModal(page)
		case tcell.KeyTab:
			ui.dismissModal(page)
			ui.showQuickPickModal()
		}
	})

	content := ui.rows().
		AddItem(input, 1, 0, true).
		AddItem(nil, 1, 0, false).
		AddItem(ui.hint("Enter to tune in  •  Tab for genres  •  Esc to cancel"), 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	modal := ui.centered(ui.modalFrame(content, "How are you feeling?", ui.colors.highlight), 70, 7)
	ui.pages.AddPage(page, modal, true, true)
	ui.app.SetFocus(input)
}

// showQuickPickModal offers the one-key genre shortcuts.
func (ui *UI) showQuickPickModal() {
	const page = "quick-picks"
	if ui.pages.HasPage(page) {
		return
	}

	list := ui.newModalList()
	for i, label := range genre.QuickPicks {
		list.AddItem(label, "", quickPickShortcut(i), func() {
			ui.dismissModal(page)
			ui.startMood("", label)
		})
	}
	list.SetDoneFunc(func() { ui.dismissModal(page) })

	content := ui.rows().
		AddItem(list, 0, 1, true).
		AddItem(ui.hint("Enter or shortcut to play  •  Esc to cancel"), 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	modal := ui.centered(ui.modalFrame(content, "Genres", ui.colors.borders), 40, len(genre.QuickPicks)+6)
	ui.pages.AddPage(page, modal, true, true)
	ui.app.SetFocus(list)
}

// quickPickShortcut maps list positions to 1-9 then a, b, c...
func quickPickShortcut(i int) rune {
	if i < 9 {
		return rune('1' + i)
	}
	return rune('a' + i - 9)
}

func (ui *UI) showFavoritesModal() {
	const page = "favorites"
	if len(ui.config.Favorites) == 0 {
		ui.showInfoModal("Favorites", "No favorites yet.\n\nPress [::b]f[::-] while a station plays to keep it.")
		return
	}

	list := ui.newModalList()
	for _, fav := range ui.config.Favorites {
		list.AddItem(fav.Name, fav.DisplayTags(maxTagsShown), 0, func() {
			ui.dismissModal(page)
			ui.playFavorite(fav)
		})
	}
	list.ShowSecondaryText(true)
	list.SetDoneFunc(func() { ui.dismissModal(page) })

	content := ui.rows().
		AddItem(list, 0, 1, true).
		AddItem(ui.hint("Enter to play  •  Esc to close"), 1, 0, false)
	content.SetBackgroundColor(ui.colors.modalBackground)

	modal := ui.centered(ui.modalFrame(content, "Favorites", ui.colors.borders), 60, min(2*len(ui.config.Favorites)+6, 30))
	ui.pages.AddPage(page, modal, true, true)
	ui.app.SetFocus(list)
}

func (ui *UI) newModalList() *tview.List {
	list := tview.NewList().
		SetMainTextColor(ui.colors.foreground).
		SetSecondaryTextColor(ui.colors.borders).
		SetShortcutColor(ui.colors.helpHotkey).
		SetSelectedTextColor(ui.colors.background).
		SetSelectedBackgroundColor(ui.colors.highlight).
		ShowSecondaryText(false)
	list.SetBackgroundColor(ui.colors.modalBackground)
	return list
}
