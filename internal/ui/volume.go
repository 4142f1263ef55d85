package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/moodradio/internal/config"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const volumeBarHeight = 10

// volumeBarLevels returns how many bar rows are empty and filled for a volume.
func volumeBarLevels(volume int) (empty, filled int) {
	filled = (config.ClampVolume(volume) * volumeBarHeight) / 100
	return volumeBarHeight - filled, filled
}

func (ui *UI) volumeText(text string, color tcell.Color) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetText(text)
	tv.SetTextAlign(tview.AlignRight)
	tv.SetTextColor(color)
	tv.SetBackgroundColor(ui.colors.background)
	return tv
}

func (ui *UI) buildVolumeBar(container *tview.Flex) {
	ui.mu.Lock()
	displayVolume := ui.currentVolume
	isMuted := ui.isMuted
	if isMuted {
		displayVolume = ui.config.Volume
	}
	ui.mu.Unlock()

	barColor := ui.colors.highlight
	if isMuted {
		barColor = config.GetColor(ui.config.Theme.MutedVolume)
	}

	percentView := ui.volumeText(fmt.Sprintf("%d%%", displayVolume), barColor)
	if isMuted {
		percentView.SetTextStyle(tcell.StyleDefault.
			Foreground(barColor).
			Background(ui.colors.background).
			Attributes(tcell.AttrStrikeThrough))
	}

	barLine := func(text string, color tcell.Color, label tview.Primitive) *tview.Flex {
		line := ui.cols()
		if label == nil {
			label = ui.volumeText("    ", ui.colors.foreground)
		}
		line.AddItem(label, 4, 0, false)
		line.AddItem(ui.volumeText(text, color), 0, 1, false)
		return line
	}

	emptyLines, filledLines := volumeBarLevels(displayVolume)

	container.AddItem(ui.volumeText("   max", ui.colors.foreground), 1, 0, false)
	for i := 0; i < emptyLines; i++ {
		container.AddItem(barLine(" ░░", ui.colors.foreground, nil), 1, 0, false)
	}
	for i := 0; i < filledLines; i++ {
		var label tview.Primitive
		if i == 0 {
			label = percentView
		}
		container.AddItem(barLine(" ██", barColor, label), 1, 0, false)
	}
	container.AddItem(ui.volumeText("   min", ui.colors.foreground), 1, 0, false)
	container.AddItem(nil, 0, 1, false)
}

func (ui *UI) createGraphicalVolumeBar() *tview.Flex {
	volumeContainer := ui.rows()
	ui.buildVolumeBar(volumeContainer)
	return volumeContainer
}

func (ui *UI) updateVolumeDisplay() {
	if ui.volumeView != nil {
		ui.volumeView.Clear()
		ui.buildVolumeBar(ui.volumeView)
	}
}

func (ui *UI) applyVolume() {
	ui.audio.SetVolume(ui.currentVolume)
	ui.updateVolumeDisplay()
}

func (ui *UI) adjustVolume(delta int) {
	ui.mu.Lock()
	if ui.isMuted {
		// Any volume key unmutes to the saved level first.
		ui.currentVolume = ui.config.Volume
		ui.isMuted = false
		ui.mu.Unlock()

		ui.statusRenderer.SetMuted(false)
		ui.applyVolume()
		log.Debug().Msgf("Auto-unmuted, restored volume to %d%%", ui.currentVolume)
		return
	}
	ui.currentVolume = config.ClampVolume(ui.currentVolume + delta)
	ui.mu.Unlock()

	ui.applyVolume()
	ui.SaveConfig()
	log.Debug().Msgf("Volume adjusted to %d%%", ui.currentVolume)
}

func (ui *UI) toggleMute() {
	ui.mu.Lock()
	if ui.isMuted {
		ui.currentVolume = ui.config.Volume
		ui.isMuted = false
	} else {
		ui.config.Volume = ui.currentVolume
		if ui.currentVolume == 0 {
			ui.config.Volume = config.DefaultVolume
		}
		ui.currentVolume = 0
		ui.isMuted = true
	}
	muted := ui.isMuted
	ui.mu.Unlock()

	ui.statusRenderer.SetMuted(muted)
	ui.applyVolume()
	ui.SaveConfig()
	log.Debug().Bool("muted", muted).Int("saved_volume", ui.config.Volume).Msg("Toggled mute")
}
