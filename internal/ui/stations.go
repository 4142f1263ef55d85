package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const maxNameWidth = 35

func (ui *UI) headerCell(text string) *tview.TableCell {
	return tview.NewTableCell(text).
		SetTextColor(ui.colors.stationListHeaderForeground).
		SetBackgroundColor(ui.colors.stationListHeaderBackground).
		SetSelectable(false)
}

func (ui *UI) createStationListTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(true, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetTitle(ui.stationListTitle()).
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(ui.colors.background).
		Background(ui.colors.highlight))

	table.SetCell(0, 0, ui.headerCell(" ").SetMaxWidth(2))
	table.SetCell(0, 1, ui.headerCell(" ").SetMaxWidth(2))
	table.SetCell(0, 2, ui.headerCell("Name").SetExpansion(1))
	table.SetCell(0, 3, ui.headerCell("Tags").SetExpansion(1))
	table.SetCell(0, 4, ui.headerCell("Format").SetAlign(tview.AlignRight))

	for i := range ui.candidates {
		ui.setStationRow(table, i+1, i)
	}

	return table
}

func (ui *UI) stationListTitle() string {
	if ui.status.Genre == "" {
		return fmt.Sprintf("Candidates (%d)", len(ui.candidates))
	}
	return fmt.Sprintf("Candidates for %q (%d)", ui.status.Genre, len(ui.candidates))
}

func (ui *UI) playingStationID() string {
	if ui.status.Station == nil {
		return ""
	}
	return ui.status.Station.ID
}

func (ui *UI) setStationRow(table *tview.Table, row int, index int) {
	if index < 0 || index >= len(ui.candidates) {
		return
	}
	s := ui.candidates[index]

	favIcon := " "
	if ui.config.IsFavorite(s.ID) {
		favIcon = "★"
	}
	table.SetCell(row, 0, tview.NewTableCell(favIcon).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(2))

	playIcon := " "
	if s.ID == ui.playingStationID() {
		if ui.status.State == playback.StatePaused {
			playIcon = "⏸"
		} else {
			playIcon = "➤"
		}
	}
	table.SetCell(row, 1, tview.NewTableCell(playIcon).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(2))

	table.SetCell(row, 2, tview.NewTableCell(s.Name).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(maxNameWidth).
		SetExpansion(2))

	table.SetCell(row, 3, tview.NewTableCell(s.DisplayTags(maxTagsShown)).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(27).
		SetExpansion(1))

	table.SetCell(row, 4, tview.NewTableCell(s.Format()).
		SetTextColor(ui.colors.foreground).
		SetAlign(tview.AlignRight))
}

// playSelected switches to the highlighted candidate within the current genre.
func (ui *UI) playSelected() {
	row, _ := ui.stationList.GetSelection()
	if row <= 0 || row > len(ui.candidates) {
		return
	}

	s := ui.candidates[row-1]
	if s.ID == ui.playingStationID() && ui.status.State == playback.StatePlaying {
		return
	}

	log.Info().Str("station", s.Name).Msg("Playing selected candidate")
	ui.controller.PlayStation(ui.status.Genre, s)
}

func (ui *UI) toggleFavorite() {
	s := ui.status.Station
	if s == nil {
		row, _ := ui.stationList.GetSelection()
		if row <= 0 || row > len(ui.candidates) {
			return
		}
		s = &ui.candidates[row-1]
	}

	added := ui.config.ToggleFavorite(*s)
	ui.refreshStationTable()

	go func() {
		if err := ui.config.Save(); err != nil {
			log.Error().Err(err).Msg("Failed to save config")
		}
	}()

	log.Debug().Bool("added", added).Msgf("Toggled favorite for station: %s", s.Name)
}

func (ui *UI) playFavorite(s station.Station) {
	g := ui.status.Genre
	if g == "" && len(s.Tags) > 0 {
		g = s.Tags[0]
	}
	log.Info().Str("station", s.Name).Msg("Playing favorite")
	ui.controller.PlayStation(g, s)
}

func (ui *UI) refreshStationTable() {
	if ui.stationList == nil {
		return
	}

	selectedID := ""
	if row, _ := ui.stationList.GetSelection(); row > 0 && row <= ui.stationList.GetRowCount()-1 {
		if cell := ui.stationList.GetCell(row, 2); cell != nil {
			if ref, ok := cell.GetReference().(string); ok {
				selectedID = ref
			}
		}
	}

	for r := ui.stationList.GetRowCount() - 1; r > 0; r-- {
		ui.stationList.RemoveRow(r)
	}

	selectRow := 1
	for i, s := range ui.candidates {
		ui.setStationRow(ui.stationList, i+1, i)
		ui.stationList.GetCell(i+1, 2).SetReference(s.ID)
		if s.ID == selectedID {
			selectRow = i + 1
		}
	}
	if len(ui.candidates) > 0 {
		ui.stationList.Select(selectRow, 0)
	}

	ui.stationList.SetTitle(ui.stationListTitle())
}

func (ui *UI) updateStationListPlayingIndicator() {
	if ui.stationList == nil {
		return
	}

	playingID := ui.playingStationID()
	if playingID == "" {
		return
	}

	for i, s := range ui.candidates {
		if s.ID != playingID {
			continue
		}
		row := i + 1

		if playCell := ui.stationList.GetCell(row, 1); playCell != nil {
			if ui.status.State == playback.StatePaused {
				playCell.SetText("⏸")
			} else {
				playCell.SetText("➤")
			}
		}

		nameCell := ui.stationList.GetCell(row, 2)
		if nameCell == nil {
			return
		}
		if ui.status.State != playback.StatePlaying {
			nameCell.SetText(s.Name)
			return
		}

		nameCell.SetText(truncateName(s.Name, maxNameWidth-2) + " " + ui.getPlayingIndicator())
		return
	}
}

func truncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
