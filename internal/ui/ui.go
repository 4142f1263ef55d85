package ui

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/moodradio/internal/config"
	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/glebovdev/moodradio/internal/player"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	VolumeStep            = 5
	HeaderHeight          = 3
	FooterHeightWide      = 3 // Wide: 1 row with padding (top + text + bottom)
	FooterHeightNarrow    = 6 // Narrow: 2 rows × 3 lines each
	CoverWidth            = 26
	CoverHeight           = 12
	PlayerPanelHeight     = 12
	FooterBreakpoint      = 130 // Width threshold for responsive footer
	MinLoadingDisplayTime = 800 * time.Millisecond
	MinStatusDisplayTime  = 300 * time.Millisecond

	interpretTimeout = 10 * time.Second
	maxTagsShown     = 4
)

// PauseIcon uses platform-specific character (Windows renders ⏸ as emoji)
var PauseIcon = func() string {
	if runtime.GOOS == "windows" {
		return "❚❚"
	}
	return "⏸"
}()

// Controller is the playback session the UI drives.
type Controller interface {
	Start(g string, random bool)
	PlayStation(g string, st station.Station)
	Next()
	Prev()
	TogglePause()
	Retry()
	Stop()
	Status() playback.Status
	Subscribe() <-chan playback.Status
}

// AudioInfo exposes what the audio runtime knows about the current stream.
type AudioInfo interface {
	GetState() player.PlayerState
	GetStreamInfo() player.StreamInfo
	GetBufferHealth() int
	GetCurrentTrack() string
	GetLastError() string
	GetSessionDuration() time.Duration
	GetPlaybackDelay() time.Duration
	SetVolume(volumePercent int)
}

// Interpreter turns the listener's mood into a genre.
type Interpreter interface {
	Interpret(ctx context.Context, input, override string) genre.Result
}

// Stations supplies the current candidate list and station favicons.
type Stations interface {
	GetCachedStations() []station.Station
	LoadImage(url string) (image.Image, error)
}

// Options carries the startup choices made on the command line.
type Options struct {
	Mood string
	Tag  string
}

type UI struct {
	app         *tview.Application
	controller  Controller
	audio       AudioInfo
	stations    Stations
	interpreter Interpreter
	opts        Options

	stationList      *tview.Table
	helpPanel        *tview.Box
	contentLayout    *tview.Flex
	playerPanel      *tview.Flex
	currentTrackView *tview.TextView
	reasoningView    *tview.TextView
	logoPanel        *tview.Image
	volumeView       *tview.Flex
	mainLayout       *tview.Flex
	loadingScreen    *tview.Flex
	loadingText      *tview.TextView
	progressBar      *tview.TextView
	pages            *tview.Pages

	stopUpdates     chan struct{}
	status          playback.Status
	candidates      []station.Station
	shownStationID  string
	reasoning       string
	currentVolume   int
	isMuted         bool
	config          *config.Config
	lastFooterWidth int // Track width to detect layout changes
	mu              sync.Mutex
	animationFrame  int
	playingSpinner  *PlayingSpinner
	statusRenderer  *StatusRenderer
	colors          struct {
		background                  tcell.Color
		foreground                  tcell.Color
		borders                     tcell.Color
		highlight                   tcell.Color
		headerBackground            tcell.Color
		stationListHeaderBackground tcell.Color
		stationListHeaderForeground tcell.Color
		helpBackground              tcell.Color
		helpForeground              tcell.Color
		helpHotkey                  tcell.Color
		genreTagBackground          tcell.Color
		modalBackground             tcell.Color
	}
}

func NewUI(cfg *config.Config, controller Controller, audio AudioInfo, stations Stations, interpreter Interpreter, opts Options) *UI {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ui := &UI{
		app:           tview.NewApplication(),
		controller:    controller,
		audio:         audio,
		stations:      stations,
		interpreter:   interpreter,
		opts:          opts,
		stopUpdates:   make(chan struct{}),
		currentVolume: cfg.Volume,
		config:        cfg,
	}

	ui.colors.background = config.GetColor(cfg.Theme.Background)
	ui.colors.foreground = config.GetColor(cfg.Theme.Foreground)
	ui.colors.borders = config.GetColor(cfg.Theme.Borders)
	ui.colors.highlight = config.GetColor(cfg.Theme.Highlight)
	ui.colors.headerBackground = config.GetColor(cfg.Theme.HeaderBackground)
	ui.colors.stationListHeaderBackground = config.GetColor(cfg.Theme.StationListHeaderBackground)
	ui.colors.stationListHeaderForeground = config.GetColor(cfg.Theme.StationListHeaderForeground)
	ui.colors.helpBackground = config.GetColor(cfg.Theme.HelpBackground)
	ui.colors.helpForeground = config.GetColor(cfg.Theme.HelpForeground)
	ui.colors.helpHotkey = config.GetColor(cfg.Theme.HelpHotkey)
	ui.colors.genreTagBackground = config.GetColor(cfg.Theme.GenreTagBackground)
	ui.colors.modalBackground = config.GetColor(cfg.Theme.ModalBackground)

	audio.SetVolume(cfg.Volume)
	log.Debug().Msgf("Loaded volume from config: %d%%", cfg.Volume)

	ui.statusRenderer = NewStatusRenderer(audio)
	ui.statusRenderer.SetPrimaryColor(ui.colors.highlight.String())

	return ui
}

func (ui *UI) SaveConfig() {
	ui.mu.Lock()
	if !ui.isMuted {
		ui.config.Volume = ui.currentVolume
	}
	if ui.status.Genre != "" {
		ui.config.LastGenre = ui.status.Genre
	}
	ui.mu.Unlock()

	if err := ui.config.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save config")
	}
}

func (ui *UI) safeCloseChannel() {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	if ui.stopUpdates != nil {
		select {
		case <-ui.stopUpdates:
		default:
			close(ui.stopUpdates)
		}
		ui.stopUpdates = nil
	}
}

func (ui *UI) stop() {
	ui.SaveConfig()
	ui.controller.Stop()
	ui.safeCloseChannel()
	ui.app.Stop()
}

// Shutdown stops the UI gracefully from external callers (e.g., signal handlers).
func (ui *UI) Shutdown() {
	ui.app.QueueUpdateDraw(func() {
		ui.stop()
	})
}

func (ui *UI) Run() error {
	ui.setupLoadingScreen()
	ui.app.SetRoot(ui.loadingScreen, true)
	ui.configureScreen()

	go ui.initAsync()

	return ui.app.Run()
}

func (ui *UI) configureScreen() {
	bgStyle := tcell.StyleDefault.Background(ui.colors.background)
	ui.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		screen.SetStyle(bgStyle)
		screen.Clear()
		return false
	})

	var titleSet sync.Once
	ui.app.SetAfterDrawFunc(func(screen tcell.Screen) {
		titleSet.Do(func() { screen.SetTitle(config.AppName) })
	})
}

func (ui *UI) setupLoadingScreen() {
	ui.loadingText = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("Tuning in... (1/2)")
	ui.loadingText.SetTextColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background)

	ui.progressBar = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText(ui.renderProgressBar(0))
	ui.progressBar.SetTextColor(ui.colors.highlight).
		SetBackgroundColor(ui.colors.background)

	content := ui.rows().
		AddItem(ui.loadingText, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.progressBar, 1, 0, false)

	ui.loadingScreen = ui.rows().
		AddItem(nil, 0, 1, false).
		AddItem(content, 3, 0, false).
		AddItem(nil, 0, 1, false)
}

// rows and cols return an empty flex painted with the theme background.
func (ui *UI) rows() *tview.Flex {
	f := tview.NewFlex().SetDirection(tview.FlexRow)
	f.SetBackgroundColor(ui.colors.background)
	return f
}

func (ui *UI) cols() *tview.Flex {
	f := tview.NewFlex().SetDirection(tview.FlexColumn)
	f.SetBackgroundColor(ui.colors.background)
	return f
}

func (ui *UI) renderProgressBar(percent int) string {
	const width = 30
	filled := (percent * width) / 100
	empty := width - filled
	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

func (ui *UI) animateProgress(fromPercent, toPercent int, duration time.Duration) {
	steps := toPercent - fromPercent
	if steps <= 0 {
		return
	}
	stepDuration := duration / time.Duration(steps)
	lastBar := ui.renderProgressBar(fromPercent)

	for p := fromPercent + 1; p <= toPercent; p++ {
		time.Sleep(stepDuration)
		if bar := ui.renderProgressBar(p); bar != lastBar {
			ui.app.QueueUpdateDraw(func() {
				ui.progressBar.SetText(bar)
			})
			lastBar = bar
		}
	}
}

func (ui *UI) initAsync() {
	startTime := time.Now()

	ui.config.CleanupFavorites()
	ui.animateProgress(0, 50, MinStatusDisplayTime)

	ui.app.QueueUpdateDraw(func() {
		ui.loadingText.SetText("Building interface... (2/2)")
	})
	ui.setupUI()
	ui.animateProgress(50, 100, MinStatusDisplayTime)

	// Floor, not ceiling: wait only if real work finished early.
	if elapsed := time.Since(startTime); elapsed < MinLoadingDisplayTime {
		time.Sleep(MinLoadingDisplayTime - elapsed)
	}

	updates := ui.controller.Subscribe()
	go ui.watchStatus(updates)
	ui.startPlayingAnimation()

	ui.app.QueueUpdateDraw(func() {
		ui.app.SetRoot(ui.pages, true).EnableMouse(true)
		ui.app.SetFocus(ui.stationList)

		switch {
		case ui.opts.Mood != "" || ui.opts.Tag != "":
			ui.startMood(ui.opts.Mood, ui.opts.Tag)
		case ui.config.Autostart && ui.config.LastGenre != "":
			log.Debug().Str("genre", ui.config.LastGenre).Msg("Autostart enabled, resuming last genre")
			ui.controller.Start(ui.config.LastGenre, false)
		default:
			ui.showMoodModal()
		}
	})
}

// watchStatus applies controller snapshots until the controller shuts down.
func (ui *UI) watchStatus(updates <-chan playback.Status) {
	for st := range updates {
		ui.app.QueueUpdateDraw(func() {
			ui.applyStatus(st)
		})
	}
}

func (ui *UI) applyStatus(st playback.Status) {
	prev := ui.status

	ui.mu.Lock()
	ui.status = st
	ui.mu.Unlock()
	ui.statusRenderer.SetStatus(st)

	ui.candidates = ui.stations.GetCachedStations()
	ui.refreshStationTable()

	if st.Station != nil && st.Station.ID != ui.shownStationID {
		ui.showStation(st.Station)
	}

	if st.Genre != "" && st.Genre != prev.Genre {
		ui.SaveConfig()
	}

	switch {
	case st.State == playback.StateBlocked && prev.State != playback.StateBlocked:
		ui.showBlockedModal(st)
	case st.State == playback.StateAudioBlocked && prev.State != playback.StateAudioBlocked:
		ui.showAudioBlockedModal()
	}
}

// startMood interprets the listener's input off the UI goroutine and starts a session.
func (ui *UI) startMood(mood, tag string) {
	ui.setReasoning("Reading the room...")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), interpretTimeout)
		defer cancel()

		res := ui.interpreter.Interpret(ctx, mood, tag)
		if res.Genre == "" {
			res.Genre = genre.DefaultGenre
		}
		log.Info().
			Str("mood", mood).
			Str("tag", tag).
			Str("genre", res.Genre).
			Str("category", res.Category).
			Msg("Starting session")

		ui.controller.Start(res.Genre, res.UseRandomOrder)
		ui.app.QueueUpdateDraw(func() {
			ui.setReasoning(res.Reasoning)
		})
	}()
}

func (ui *UI) setReasoning(text string) {
	ui.reasoning = text
	if ui.reasoningView != nil {
		ui.reasoningView.SetText(fmt.Sprintf(" [%s]%s[-]", ui.colors.foreground.String(), text))
	}
}

func (ui *UI) setupUI() {
	header := ui.createHeader()

	ui.playerPanel = ui.rows()
	ui.playerPanel.AddItem(ui.createContentPanel(nil), 0, 1, false)

	ui.stationList = ui.createStationListTable()

	ui.helpPanel = ui.createFooter()

	ui.contentLayout = ui.rows().
		AddItem(header, HeaderHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.playerPanel, PlayerPanelHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.stationList, 0, 1, true).
		AddItem(ui.helpPanel, FooterHeightWide, 0, false)

	wrapper := ui.cols().
		AddItem(nil, 3, 0, false).
		AddItem(ui.contentLayout, 0, 1, true).
		AddItem(nil, 3, 0, false)

	ui.mainLayout = ui.rows().
		AddItem(nil, 1, 0, false).
		AddItem(wrapper, 0, 1, true).
		AddItem(nil, 1, 0, false)

	ui.pages = tview.NewPages().
		AddPage("main", ui.mainLayout, true, true)
	ui.pages.SetBackgroundColor(ui.colors.background)

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if ui.pages.GetPageCount() > 1 {
			return event
		}
		return ui.globalInputHandler(event)
	})
}

func (ui *UI) createHeader() tview.Primitive {
	titleView := tview.NewTextView()
	titleView.SetText(" " + config.AppName + " · " + config.AppTagline)
	titleView.SetTextAlign(tview.AlignLeft)
	titleView.SetTextColor(ui.colors.foreground)
	titleView.SetBackgroundColor(ui.colors.headerBackground)

	versionView := tview.NewTextView()
	versionView.SetText("v" + config.AppVersion + " ")
	versionView.SetTextAlign(tview.AlignRight)
	versionView.SetTextColor(ui.colors.foreground)
	versionView.SetBackgroundColor(ui.colors.headerBackground)

	textFlex := ui.cols().
		AddItem(titleView, 0, 1, false).
		AddItem(versionView, 10, 0, false)
	textFlex.SetBackgroundColor(ui.colors.headerBackground)

	pad := func() *tview.Box { return tview.NewBox().SetBackgroundColor(ui.colors.headerBackground) }

	textWithPadding := ui.cols().
		AddItem(pad(), 1, 0, false).
		AddItem(textFlex, 0, 1, false).
		AddItem(pad(), 1, 0, false)
	textWithPadding.SetBackgroundColor(ui.colors.headerBackground)

	headerFlex := ui.rows().
		AddItem(pad(), 1, 0, false).
		AddItem(textWithPadding, 1, 0, false).
		AddItem(pad(), 1, 0, false)
	headerFlex.SetBackgroundColor(ui.colors.headerBackground)

	return headerFlex
}

func (ui *UI) updateLogoPanel(s *station.Station) {
	if s.Favicon == "" {
		ui.drawLogoPlaceholder("♫")
		return
	}

	go func() {
		img, err := ui.stations.LoadImage(s.Favicon)
		ui.app.QueueUpdateDraw(func() {
			if s.ID != ui.shownStationID {
				return
			}
			if err != nil {
				log.Debug().Err(err).Str("station", s.Name).Msg("No favicon")
				ui.drawLogoPlaceholder("♫")
				return
			}
			ui.logoPanel.SetDrawFunc(nil)
			ui.logoPanel.SetImage(img)
		})
	}()
}

func (ui *UI) drawLogoPlaceholder(text string) {
	ui.logoPanel.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		tview.Print(screen, text, x, y+height/2, width, tview.AlignCenter, ui.colors.borders)
		return x, y, width, height
	})
}

// showStation rebuilds the player panel for the active station.
func (ui *UI) showStation(s *station.Station) {
	ui.shownStationID = s.ID

	ui.playerPanel.Clear()
	ui.playerPanel.AddItem(ui.createContentPanel(s), 0, 1, false)
	ui.updateLogoPanel(s)

	log.Debug().Str("station", s.Name).Str("id", s.ID).Msg("Showing station")
}

func (ui *UI) createGenreTags(tags []string) *tview.Flex {
	container := ui.cols()

	container.AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 1, 0, false)

	if len(tags) == 0 {
		noGenre := tview.NewTextView()
		noGenre.SetText("N/A")
		noGenre.SetTextColor(ui.colors.foreground)
		noGenre.SetBackgroundColor(ui.colors.background)
		container.AddItem(noGenre, 3, 0, false)
		return container
	}

	if len(tags) > maxTagsShown {
		tags = tags[:maxTagsShown]
	}
	for i, g := range tags {
		tag := tview.NewTextView()
		tag.SetText(" " + g + " ")
		tag.SetTextColor(ui.colors.foreground)
		tag.SetBackgroundColor(ui.colors.genreTagBackground)
		tag.SetTextAlign(tview.AlignCenter)

		container.AddItem(tag, tview.TaggedStringWidth(g)+2, 0, false)

		if i < len(tags)-1 {
			container.AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 1, 0, false)
		}
	}

	container.AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 0, 1, false)

	return container
}

func (ui *UI) label(text string) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetText(" " + text)
	tv.SetTextColor(ui.colors.foreground)
	tv.SetBackgroundColor(ui.colors.background)
	tv.SetWrap(false)
	return tv
}

func (ui *UI) highlighted(text string, wrap bool) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetDynamicColors(true)
	tv.SetText(fmt.Sprintf(" [%s]%s[-]", ui.colors.highlight.String(), tview.Escape(text)))
	tv.SetBackgroundColor(ui.colors.background)
	tv.SetWrap(wrap)
	tv.SetTextStyle(tcell.StyleDefault.Background(ui.colors.background).Attributes(tcell.AttrBold))
	return tv
}

// createContentPanel lays out the station panel. s may be nil before the first station plays.
func (ui *UI) createContentPanel(s *station.Station) *tview.Flex {
	ui.logoPanel = tview.NewImage()
	ui.logoPanel.SetBackgroundColor(ui.colors.background)
	ui.logoPanel.SetAlign(tview.AlignLeft, tview.AlignTop)

	name, country := "Nothing playing yet", ""
	var tags []string
	if s != nil {
		name, country, tags = s.Name, s.Country, s.Tags
	} else {
		ui.drawLogoPlaceholder("♫")
	}
	if country != "" {
		name += " (" + country + ")"
	}

	ui.currentTrackView = ui.highlighted("", true)

	ui.reasoningView = tview.NewTextView()
	ui.reasoningView.SetDynamicColors(true)
	ui.reasoningView.SetBackgroundColor(ui.colors.background)
	ui.reasoningView.SetWrap(true)
	ui.setReasoning(ui.reasoning)

	moodLine := ui.status.Genre
	if moodLine == "" {
		moodLine = "press / to pick a mood"
	}

	infoContent := ui.rows().
		AddItem(ui.label("Station:"), 1, 0, false).
		AddItem(ui.highlighted(name, false), 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.label("Playing:"), 1, 0, false).
		AddItem(ui.currentTrackView, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.label("Tags:"), 1, 0, false).
		AddItem(ui.createGenreTags(tags), 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.label("Mood: "+moodLine), 1, 0, false).
		AddItem(ui.reasoningView, 0, 1, false)

	ui.volumeView = ui.createGraphicalVolumeBar()

	logoWrapper := ui.rows().
		AddItem(ui.logoPanel, CoverHeight, 0, false).
		AddItem(nil, 0, 1, false)

	contentFlex := ui.cols().
		AddItem(logoWrapper, CoverWidth, 0, false).
		AddItem(infoContent, 0, 1, false).
		AddItem(ui.volumeView, 7, 0, false)

	contentWithPadding := ui.cols().
		AddItem(nil, 4, 0, false).
		AddItem(contentFlex, 0, 1, false).
		AddItem(nil, 4, 0, false)

	return contentWithPadding
}

type PlayingSpinner struct {
	Frames []string
	FPS    time.Duration
}

func NewPlayingSpinner() *PlayingSpinner {
	return &PlayingSpinner{
		Frames: []string{"⣾ ", "⣽ ", "⣻ ", "⢿ ", "⡿ ", "⣟ ", "⣯ ", "⣷ "},
		FPS:    time.Second / 10,
	}
}

func (ui *UI) getPlayingIndicator() string {
	if ui.playingSpinner == nil {
		ui.playingSpinner = NewPlayingSpinner()
	}

	frameIndex := ui.animationFrame % len(ui.playingSpinner.Frames)
	return ui.playingSpinner.Frames[frameIndex]
}

func (ui *UI) startPlayingAnimation() {
	if ui.playingSpinner == nil {
		ui.playingSpinner = NewPlayingSpinner()
	}

	ui.mu.Lock()
	stop := ui.stopUpdates
	ui.mu.Unlock()
	if stop == nil {
		return
	}

	go func() {
		animationTicker := time.NewTicker(ui.playingSpinner.FPS)
		trackUpdateTicker := time.NewTicker(2 * time.Second)
		defer animationTicker.Stop()
		defer trackUpdateTicker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-animationTicker.C:
				ui.mu.Lock()
				ui.animationFrame++
				ui.mu.Unlock()

				ui.statusRenderer.AdvanceAnimation()

				ui.app.QueueUpdateDraw(func() {
					ui.updateStationListPlayingIndicator()
				})
			case <-trackUpdateTicker.C:
				ui.app.QueueUpdateDraw(func() {
					ui.updateTrackInfo()
				})
			}
		}
	}()
}

func (ui *UI) updateTrackInfo() {
	if ui.currentTrackView == nil || ui.status.State != playback.StatePlaying {
		return
	}

	ui.currentTrackView.SetText(fmt.Sprintf(" [%s]%s[-]",
		ui.colors.highlight.String(),
		tview.Escape(ui.audio.GetCurrentTrack())))
}

func (ui *UI) globalInputHandler(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			ui.stop()
			return nil
		case ' ':
			ui.togglePlayback()
			return nil
		case 'n', 'N', '>':
			ui.controller.Next()
			return nil
		case 'p', 'P', '<':
			ui.controller.Prev()
			return nil
		case 's', 'S':
			ui.controller.Stop()
			return nil
		case 'r', 'R':
			ui.controller.Retry()
			return nil
		case '/', 'i':
			ui.showMoodModal()
			return nil
		case 'g', 'G':
			ui.showQuickPickModal()
			return nil
		case 'f', 'F':
			ui.toggleFavorite()
			return nil
		case 'v', 'V':
			ui.showFavoritesModal()
			return nil
		case '+', '=':
			ui.adjustVolume(VolumeStep)
			return nil
		case '-', '_':
			ui.adjustVolume(-VolumeStep)
			return nil
		case 'm', 'M':
			ui.toggleMute()
			return nil
		case '?':
			ui.showHelpModal()
			return nil
		case 'a', 'A':
			ui.showAboutModal()
			return nil
		}
	case tcell.KeyEnter:
		ui.playSelected()
		return nil
	case tcell.KeyEscape:
		ui.stop()
		return nil
	case tcell.KeyRight:
		ui.adjustVolume(VolumeStep)
		return nil
	case tcell.KeyLeft:
		ui.adjustVolume(-VolumeStep)
		return nil
	}
	return event
}

// togglePlayback pauses or resumes, and restarts the last genre when idle.
func (ui *UI) togglePlayback() {
	switch ui.status.State {
	case playback.StateIdle:
		if g := ui.config.LastGenre; g != "" {
			ui.controller.Start(g, false)
		} else {
			ui.showMoodModal()
		}
	case playback.StateBlocked:
		ui.controller.Retry()
	default:
		ui.controller.TogglePause()
	}
}
