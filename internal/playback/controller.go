// Package playback owns the single active audio session: it resolves the next
// station through an ordered waterfall, watches stream health and switches
// stations on failure until the consecutive-failure cap is reached.
package playback

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/metrics"
	"github.com/glebovdev/moodradio/internal/service"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultWatchdogTimeout = 5 * time.Second
	DefaultStallGrace      = 10 * time.Second
	DefaultVerifyAfter     = 40 * time.Second
	DefaultQuickSkipWindow = 5 * time.Second
	DefaultMaxFailures     = 10
	DefaultFreshAttempts   = 3
	DefaultLearnEvery      = 5
	DefaultHistorySize     = 20

	statusBuffer = 64
)

// StationStore is the persistence the controller reads candidates from and
// feeds outcomes back into.
type StationStore interface {
	Recent(g string) []station.Station
	PutRecent(g string, st station.Station)
	Verified(g string) []station.Station
	PutVerified(g string, st station.Station)
	RemoveVerified(g, streamURL string)
	IsBlacklisted(id string) bool
	Blacklist(id string) bool
	Unblacklist(id string) bool
	FilterBlacklisted(stations []station.Station) []station.Station
	PutRejected(g string, st station.Station)
}

// Directory produces filtered candidate lists for a genre.
type Directory interface {
	Search(ctx context.Context, g string, opts service.SearchOptions) ([]station.Station, error)
	LearnStopWords(ctx context.Context, g string) ([]string, error)
}

// Selector picks the station to try first and returns the candidates in try order.
type Selector interface {
	Select(ctx context.Context, g string, candidates []station.Station) (station.Station, []station.Station)
}

type Config struct {
	WatchdogTimeout time.Duration
	StallGrace      time.Duration
	VerifyAfter     time.Duration
	QuickSkipWindow time.Duration
	MaxFailures     int
	FreshAttempts   int
	// LearnEvery triggers stop word learning after every N rejections in a genre.
	LearnEvery  int
	HistorySize int
	Now         func() time.Time
	Rand        *rand.Rand
}

func DefaultConfig() Config {
	return Config{
		WatchdogTimeout: DefaultWatchdogTimeout,
		StallGrace:      DefaultStallGrace,
		VerifyAfter:     DefaultVerifyAfter,
		QuickSkipWindow: DefaultQuickSkipWindow,
		MaxFailures:     DefaultMaxFailures,
		FreshAttempts:   DefaultFreshAttempts,
		LearnEvery:      DefaultLearnEvery,
		HistorySize:     DefaultHistorySize,
		Now:             time.Now,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.WatchdogTimeout <= 0 {
		cfg.WatchdogTimeout = def.WatchdogTimeout
	}
	if cfg.StallGrace <= 0 {
		cfg.StallGrace = def.StallGrace
	}
	if cfg.VerifyAfter <= 0 {
		cfg.VerifyAfter = def.VerifyAfter
	}
	if cfg.QuickSkipWindow <= 0 {
		cfg.QuickSkipWindow = def.QuickSkipWindow
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.FreshAttempts <= 0 {
		cfg.FreshAttempts = def.FreshAttempts
	}
	if cfg.LearnEvery <= 0 {
		cfg.LearnEvery = def.LearnEvery
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return cfg
}

type (
	cmdStart struct {
		genre  string
		random bool
	}
	cmdPlay struct {
		genre   string
		station station.Station
	}
	cmdNext   struct{}
	cmdPrev   struct{}
	cmdPause  struct{}
	cmdResume struct{}
	cmdToggle struct{}
	cmdRetry  struct{}
	cmdStop   struct{}

	evResolved struct {
		gen     uint64
		seq     uint64
		purpose purpose
		pick    pick
		err     error
	}
	evRefreshed struct {
		gen  uint64
		list []station.Station
	}
	evTimer struct {
		kind    timerKind
		gen     uint64
		attempt uint64
	}
)

type timerKind int

const (
	timerWatchdog timerKind = iota
	timerStall
	timerVerify
)

// Controller is the playback state machine. All state below the events
// channel is owned by the Run goroutine; the public methods only enqueue.
type Controller struct {
	rt        AudioRuntime
	store     StationStore
	dir       Directory
	sel       Selector
	cfg       Config
	preloader *Preloader
	logger    zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	events    chan any
	done      chan struct{}
	closeOnce sync.Once

	statusMu sync.RWMutex
	status   Status

	subMu      sync.Mutex
	subs       []chan Status
	subsClosed bool

	ctx           context.Context
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	resolveCancel context.CancelFunc

	state          State
	genre          string
	random         bool
	sessionID      string
	gen            uint64
	attempt        uint64
	handledAttempt uint64
	resolveSeq     uint64

	current     *station.Station
	source      Source
	activatedAt time.Time
	startedAt   time.Time
	candidates  []station.Station
	index       int
	history     []station.Station
	played      map[string]bool
	failures    int
	rejections  map[string]int
	lastErr     error
	stalled     bool
	needsReload bool

	watchdog *time.Timer
	stall    *time.Timer
	verify   *time.Timer

	notified Status
}

func New(rt AudioRuntime, store StationStore, dir Directory, sel Selector, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		rt:         rt,
		store:      store,
		dir:        dir,
		sel:        sel,
		cfg:        cfg,
		preloader:  NewPreloader(dir),
		logger:     log.With().Str("component", "playback").Logger(),
		rng:        cfg.Rand,
		events:     make(chan any, 32),
		done:       make(chan struct{}),
		state:      StateIdle,
		index:      -1,
		played:     make(map[string]bool),
		rejections: make(map[string]int),
	}
	c.status = Status{State: StateIdle}
	return c
}

// Run processes commands, runtime signals and timers until ctx is done or
// Close is called. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	c.sessionCtx, c.sessionCancel = context.WithCancel(ctx)
	metrics.SetState(string(c.state), allStates)

	defer c.shutdown()

	signals := c.rt.Signals()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case ev := <-c.events:
			c.handle(ev)
		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			c.onSignal(sig)
		}
	}
}

// Close stops Run. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Controller) shutdown() {
	c.Close()
	c.stopTimers()
	c.sessionCancel()
	c.preloader.Reset()
	c.rt.Stop()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.subsClosed = true
}

// Start begins a new session for the genre.
func (c *Controller) Start(g string, random bool) { c.post(cmdStart{genre: g, random: random}) }

// PlayStation begins a new session with a specific station, e.g. a favorite.
func (c *Controller) PlayStation(g string, st station.Station) {
	c.post(cmdPlay{genre: g, station: st})
}

func (c *Controller) Next()        { c.post(cmdNext{}) }
func (c *Controller) Prev()        { c.post(cmdPrev{}) }
func (c *Controller) Pause()       { c.post(cmdPause{}) }
func (c *Controller) Resume()      { c.post(cmdResume{}) }
func (c *Controller) TogglePause() { c.post(cmdToggle{}) }
func (c *Controller) Retry()       { c.post(cmdRetry{}) }
func (c *Controller) Stop()        { c.post(cmdStop{}) }

// Status returns the latest snapshot.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Subscribe returns a channel receiving a snapshot whenever the state, the
// active attempt or the surfaced error changes. Slow readers miss updates.
func (c *Controller) Subscribe() <-chan Status {
	ch := make(chan Status, statusBuffer)

	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.subsClosed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

func (c *Controller) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) handle(ev any) {
	switch ev := ev.(type) {
	case cmdStart:
		c.start(ev.genre, ev.random)
	case cmdPlay:
		c.playStation(ev.genre, ev.station)
	case cmdNext:
		c.skip(purposeNext)
	case cmdPrev:
		c.skip(purposePrev)
	case cmdPause:
		c.pause()
	case cmdResume:
		c.resume()
	case cmdToggle:
		switch c.state {
		case StatePlaying:
			c.pause()
		case StatePaused:
			c.resume()
		case StateAudioBlocked:
			c.retry()
		}
	case cmdRetry:
		c.retry()
	case cmdStop:
		c.stop()
	case evResolved:
		c.onResolved(ev)
	case evRefreshed:
		c.onRefreshed(ev)
	case evTimer:
		c.onTimer(ev)
	default:
		c.logger.Warn().Type("event", ev).Msg("Unknown controller event")
	}
}

func (c *Controller) resetSession(g string) {
	c.gen++
	c.sessionCancel()
	c.sessionCtx, c.sessionCancel = context.WithCancel(c.ctx)
	c.resolveCancel = nil
	c.resolveSeq++
	c.stopTimers()
	c.rt.Stop()
	c.preloader.Reset()

	c.handledAttempt = c.attempt
	c.current = nil
	c.source = ""
	c.activatedAt = time.Time{}
	c.startedAt = time.Time{}
	c.candidates = nil
	c.index = -1
	c.history = nil
	c.played = make(map[string]bool)
	c.failures = 0
	c.lastErr = nil
	c.stalled = false
	c.needsReload = false

	if g != "" {
		c.genre = g
		c.sessionID = uuid.NewString()
	}
}

func (c *Controller) start(g string, random bool) {
	key := genre.Key(g)
	if key == "" {
		key = genre.DefaultGenre
	}
	c.resetSession(key)
	c.random = random

	c.logger.Info().Str("genre", key).Bool("random", random).Str("session", c.sessionID).Msg("Starting session")
	c.setState(StateConnecting)
	c.resolve(purposeStart, "")
}

func (c *Controller) playStation(g string, st station.Station) {
	key := genre.Key(g)
	if key == "" {
		key = genre.DefaultGenre
	}
	c.resetSession(key)
	c.random = false

	if !st.IsPlayable() {
		c.lastErr = fmt.Errorf("%w: %s", ErrStreamUnplayable, st.StreamURL)
		c.setState(StateBlocked)
		return
	}
	c.logger.Info().Str("genre", key).Str("station", st.Name).Msg("Playing station directly")
	c.load(st, SourceFavorite)
}

func (c *Controller) stop() {
	c.resetSession("")
	c.sessionID = ""
	c.setState(StateIdle)
}

// resolve runs the waterfall for the purpose in the background. Only the most
// recent resolution of the current generation is applied.
func (c *Controller) resolve(p purpose, excludeID string) {
	if c.resolveCancel != nil {
		c.resolveCancel()
	}
	c.resolveSeq++
	seq, gen := c.resolveSeq, c.gen

	in := resolveInput{
		purpose:    p,
		genre:      c.genre,
		random:     c.random,
		excludeID:  excludeID,
		played:     maps.Clone(c.played),
		candidates: slices.Clone(c.candidates),
		index:      c.index,
		history:    slices.Clone(c.history),
	}
	if p == purposeFailure || p == purposeNext {
		in.preloaded = c.preloader.Take(c.genre, gen)
	}
	steps := c.strategies(in)

	ctx, cancel := context.WithCancel(c.sessionCtx)
	c.resolveCancel = cancel

	go func() {
		defer cancel()
		pk, err := waterfall(ctx, steps)
		c.post(evResolved{gen: gen, seq: seq, purpose: p, pick: pk, err: err})
	}()
}

func (c *Controller) onResolved(ev evResolved) {
	if ev.gen != c.gen || ev.seq != c.resolveSeq {
		c.logger.Debug().Uint64("gen", ev.gen).Uint64("seq", ev.seq).Msg("Discarding stale resolution")
		return
	}
	c.resolveCancel = nil

	if ev.err != nil {
		if isCancellation(ev.err) {
			return
		}
		c.logger.Warn().Err(ev.err).Str("genre", c.genre).Stringer("purpose", ev.purpose).Msg("No station to play")
		if ev.purpose == purposeFailure {
			c.lastErr = fmt.Errorf("%w: %w", ErrNoLiveStations, ev.err)
		} else {
			c.lastErr = ev.err
		}
		c.current = nil
		c.setState(StateBlocked)
		return
	}

	pk := ev.pick
	if pk.candidates != nil {
		c.candidates = pk.candidates
	}
	c.index = indexOf(c.candidates, pk.station.ID)
	if pk.source == SourceHistory {
		c.popHistory(pk.station.ID)
	}

	c.logger.Debug().
		Str("station", pk.station.Name).
		Str("source", string(pk.source)).
		Stringer("purpose", ev.purpose).
		Msg("Resolved station")

	if ev.purpose == purposeStart && (pk.source == SourceVerified || pk.source == SourceRecent) {
		c.refresh()
	}
	c.load(pk.station, pk.source)
}

// refresh repopulates the candidate list after an instant start without blocking playback.
func (c *Controller) refresh() {
	ctx, gen, g, random := c.sessionCtx, c.gen, c.genre, c.random
	go func() {
		list, err := c.dir.Search(ctx, g, service.SearchOptions{RandomOrder: random})
		if err != nil {
			if !isCancellation(err) {
				c.logger.Debug().Err(err).Str("genre", g).Msg("Background refresh failed")
			}
			return
		}
		c.post(evRefreshed{gen: gen, list: list})
	}()
}

func (c *Controller) onRefreshed(ev evRefreshed) {
	if ev.gen != c.gen || len(ev.list) == 0 {
		return
	}
	c.candidates = c.store.FilterBlacklisted(ev.list)
	c.index = -1
	if c.current != nil {
		c.index = indexOf(c.candidates, c.current.ID)
	}
	c.logger.Debug().Int("count", len(c.candidates)).Msg("Candidate list refreshed")
	c.publish()
}

func (c *Controller) load(st station.Station, source Source) {
	c.stopTimers()
	c.attempt++
	c.current = &st
	c.source = source
	c.activatedAt = c.cfg.Now()
	c.startedAt = time.Time{}
	c.played[st.StreamURL] = true
	c.stalled = false
	c.needsReload = false

	if err := c.rt.Load(c.attempt, st.StreamURL); err != nil {
		if errors.Is(err, ErrAudioBlocked) {
			c.lastErr = err
			c.needsReload = true
			c.setState(StateAudioBlocked)
			return
		}
		c.setState(StateConnecting)
		c.fail(c.attempt, "load", fmt.Errorf("%w: %w", ErrStreamUnplayable, err))
		return
	}

	c.logger.Info().Str("station", st.Name).Str("url", st.StreamURL).Str("source", string(source)).Msg("Connecting")
	c.watchdog = c.after(c.cfg.WatchdogTimeout, timerWatchdog)
	c.setState(StateConnecting)
}

func (c *Controller) onSignal(sig Signal) {
	if sig.Attempt != c.attempt {
		c.logger.Debug().Stringer("signal", sig.Kind).Uint64("attempt", sig.Attempt).Msg("Ignoring signal for old attempt")
		return
	}

	switch sig.Kind {
	case SignalPlayable:
		switch c.state {
		case StateConnecting:
			c.onPlayable()
		case StatePlaying:
			if c.stalled {
				c.stalled = false
				stopTimer(&c.stall)
				c.logger.Debug().Msg("Stream recovered")
			}
		}
	case SignalStalled:
		if c.state == StatePlaying && !c.stalled {
			c.stalled = true
			c.stall = c.after(c.cfg.StallGrace, timerStall)
			c.logger.Debug().Dur("grace", c.cfg.StallGrace).Msg("Stream stalled")
		}
	case SignalError, SignalEnded:
		switch c.state {
		case StateConnecting, StatePlaying:
			reason := "ended"
			err := error(ErrStreamUnplayable)
			if sig.Kind == SignalError {
				reason = codeReason(sig.Code)
				if sig.Err != nil {
					err = fmt.Errorf("%w: %w", ErrStreamUnplayable, sig.Err)
				}
			}
			c.fail(sig.Attempt, reason, err)
		case StatePaused:
			c.needsReload = true
		}
	}
}

func (c *Controller) onPlayable() {
	stopTimer(&c.watchdog)
	st := *c.current

	c.failures = 0
	c.lastErr = nil
	c.stalled = false
	c.startedAt = c.cfg.Now()
	c.store.PutRecent(c.genre, st)
	if c.store.Unblacklist(st.ID) {
		c.logger.Info().Str("station", st.Name).Msg("Blacklisted station played, removed from blacklist")
	}
	c.verify = c.after(c.cfg.VerifyAfter, timerVerify)

	c.logger.Info().Str("station", st.Name).Msg("Playing")
	c.setState(StatePlaying)
	c.preloader.Warm(c.sessionCtx, c.genre, c.gen)
}

func (c *Controller) onTimer(ev evTimer) {
	if ev.gen != c.gen || ev.attempt != c.attempt {
		return
	}

	switch ev.kind {
	case timerWatchdog:
		c.watchdog = nil
		if c.state == StateConnecting {
			c.fail(ev.attempt, "timeout", fmt.Errorf("%w: no audio within %s", ErrStreamUnplayable, c.cfg.WatchdogTimeout))
		}
	case timerStall:
		c.stall = nil
		if c.state == StatePlaying && c.stalled {
			c.fail(ev.attempt, "stall", fmt.Errorf("%w: stalled for %s", ErrStreamUnplayable, c.cfg.StallGrace))
		}
	case timerVerify:
		c.verify = nil
		if c.state == StatePlaying && !c.stalled && c.current != nil {
			c.store.PutVerified(c.genre, *c.current)
			c.logger.Info().Str("station", c.current.Name).Str("genre", c.genre).Msg("Station verified")
		}
	}
}

// fail handles the failure of attempt once: the station is blacklisted and the
// next candidate is resolved, or the session is blocked at the failure cap.
func (c *Controller) fail(attempt uint64, reason string, err error) {
	if attempt != c.attempt || c.handledAttempt == attempt {
		return
	}
	c.handledAttempt = attempt

	c.stopTimers()
	c.rt.Stop()
	metrics.CandidateFailures.WithLabelValues(reason).Inc()

	excludeID := ""
	if st := c.current; st != nil {
		excludeID = st.ID
		c.logger.Warn().Err(err).Str("station", st.Name).Str("reason", reason).Int("failures", c.failures+1).Msg("Station failed")
		c.reject(*st)
	}

	c.failures++
	c.lastErr = err
	if c.failures >= c.cfg.MaxFailures {
		c.logger.Error().Int("failures", c.failures).Str("genre", c.genre).Msg("Giving up, no live stations")
		c.current = nil
		c.lastErr = ErrNoLiveStations
		c.setState(StateBlocked)
		return
	}

	c.current = nil
	c.setState(StateConnecting)
	c.resolve(purposeFailure, excludeID)
}

func (c *Controller) reject(st station.Station) {
	c.store.Blacklist(st.ID)
	c.store.RemoveVerified(c.genre, st.StreamURL)
	c.store.PutRejected(c.genre, st)

	c.rejections[c.genre]++
	if c.rejections[c.genre]%c.cfg.LearnEvery == 0 {
		c.learn(c.genre)
	}
}

func (c *Controller) learn(g string) {
	ctx := c.ctx
	go func() {
		words, err := c.dir.LearnStopWords(ctx, g)
		if err != nil {
			c.logger.Debug().Err(err).Str("genre", g).Msg("Stop word learning failed")
			return
		}
		if len(words) > 0 {
			c.logger.Info().Strs("words", words).Str("genre", g).Msg("Learned stop words")
		}
	}()
}

// skip leaves the current station for the next or previous one. Leaving a
// station within the quick-skip window blacklists it.
func (c *Controller) skip(p purpose) {
	switch c.state {
	case StateIdle, StateBlocked:
		if c.genre != "" {
			c.start(c.genre, c.random)
		}
		return
	}

	excludeID := ""
	if st := c.current; st != nil {
		excludeID = st.ID
		active := c.cfg.Now().Sub(c.activatedAt)
		switch {
		case c.state != StateAudioBlocked && !c.activatedAt.IsZero() && active < c.cfg.QuickSkipWindow:
			c.logger.Info().Str("station", st.Name).Dur("active", active).Msg("Quick skip, blacklisting")
			c.reject(*st)
		case p == purposeNext && !c.startedAt.IsZero():
			c.pushHistory(*st)
		}
	}

	c.handledAttempt = c.attempt
	c.stopTimers()
	c.rt.Stop()
	c.current = nil
	c.setState(StateConnecting)
	c.resolve(p, excludeID)
}

func (c *Controller) pause() {
	if c.state != StatePlaying {
		return
	}
	c.rt.Pause()
	stopTimer(&c.verify)
	stopTimer(&c.stall)
	c.stalled = false
	c.setState(StatePaused)
}

func (c *Controller) resume() {
	if c.state != StatePaused && c.state != StateAudioBlocked {
		return
	}
	if c.current == nil {
		return
	}
	if c.needsReload {
		c.load(*c.current, c.source)
		return
	}

	if err := c.rt.Resume(); err != nil {
		if errors.Is(err, ErrAudioBlocked) {
			c.lastErr = err
			c.setState(StateAudioBlocked)
			return
		}
		c.fail(c.attempt, "resume", fmt.Errorf("%w: %w", ErrStreamUnplayable, err))
		return
	}
	c.lastErr = nil
	c.verify = c.after(c.cfg.VerifyAfter, timerVerify)
	c.setState(StatePlaying)
}

func (c *Controller) retry() {
	switch c.state {
	case StateBlocked:
		if c.genre != "" {
			c.start(c.genre, c.random)
		}
	case StateAudioBlocked:
		c.resume()
	}
}

func (c *Controller) pushHistory(st station.Station) {
	c.history = append(c.history, st)
	if len(c.history) > c.cfg.HistorySize {
		c.history = c.history[len(c.history)-c.cfg.HistorySize:]
	}
}

func (c *Controller) popHistory(id string) {
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].ID == id {
			c.history = slices.Delete(c.history, i, i+1)
			return
		}
	}
}

func (c *Controller) after(d time.Duration, kind timerKind) *time.Timer {
	ev := evTimer{kind: kind, gen: c.gen, attempt: c.attempt}
	return time.AfterFunc(d, func() { c.post(ev) })
}

func (c *Controller) stopTimers() {
	stopTimer(&c.watchdog)
	stopTimer(&c.stall)
	stopTimer(&c.verify)
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Controller) setState(s State) {
	if s != c.state {
		c.logger.Debug().Str("from", string(c.state)).Str("to", string(s)).Msg("State change")
		metrics.SetState(string(s), allStates)
	}
	c.state = s
	c.publish()
}

func (c *Controller) publish() {
	st := Status{
		State:      c.state,
		Genre:      c.genre,
		Source:     c.source,
		SessionID:  c.sessionID,
		Generation: c.gen,
		Attempt:    c.attempt,
		Failures:   c.failures,
		Candidates: len(c.candidates),
		Err:        c.lastErr,
	}
	if c.current != nil {
		cur := *c.current
		st.Station = &cur
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}

	c.statusMu.Lock()
	c.status = st
	c.statusMu.Unlock()

	if st.State == c.notified.State && st.Attempt == c.notified.Attempt && st.Error == c.notified.Error {
		return
	}
	c.notified = st

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

func indexOf(list []station.Station, id string) int {
	return slices.IndexFunc(list, func(st station.Station) bool { return st.ID == id })
}

func codeReason(code int) string {
	switch code {
	case CodeAborted:
		return "aborted"
	case CodeNetwork:
		return "network"
	case CodeDecode:
		return "decode"
	case CodeUnsupported:
		return "unsupported"
	}
	return "error"
}
