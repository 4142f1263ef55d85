package playback

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/glebovdev/moodradio/internal/service"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/glebovdev/moodradio/internal/store"
)

type loadCall struct {
	attempt uint64
	url     string
}

type fakeRuntime struct {
	mu        sync.Mutex
	loads     []loadCall
	pauses    int
	stops     int
	loadErr   error
	resumeErr error
	signals   chan Signal
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{signals: make(chan Signal, 16)}
}

func (f *fakeRuntime) Load(attempt uint64, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, loadCall{attempt, url})
	return f.loadErr
}

func (f *fakeRuntime) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeRuntime) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumeErr
}

func (f *fakeRuntime) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeRuntime) Signals() <-chan Signal { return f.signals }

func (f *fakeRuntime) setLoadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

func (f *fakeRuntime) setResumeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeErr = err
}

func (f *fakeRuntime) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeRuntime) lastLoad() loadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loads) == 0 {
		return loadCall{}
	}
	return f.loads[len(f.loads)-1]
}

func (f *fakeRuntime) emit(kind SignalKind) {
	f.signals <- Signal{Kind: kind, Attempt: f.lastLoad().attempt}
}

type fakeDirectory struct {
	mu       sync.Mutex
	results  map[string][]station.Station
	gates    map[string]chan struct{}
	searches int
	learned  int
}

func (d *fakeDirectory) Search(_ context.Context, g string, _ service.SearchOptions) ([]station.Station, error) {
	d.mu.Lock()
	d.searches++
	gate := d.gates[g]
	list := d.results[g]
	d.mu.Unlock()

	// Gated searches ignore cancellation so late results reach the controller.
	if gate != nil {
		<-gate
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", service.ErrNoStationsForTag, g)
	}
	return slices.Clone(list), nil
}

func (d *fakeDirectory) LearnStopWords(context.Context, string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.learned++
	return nil, nil
}

func (d *fakeDirectory) searchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.searches
}

type firstSelector struct{}

func (firstSelector) Select(_ context.Context, _ string, candidates []station.Station) (station.Station, []station.Station) {
	return candidates[0], candidates
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func makeStations(prefix string, n int) []station.Station {
	out := make([]station.Station, n)
	for i := range out {
		out[i] = station.Station{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Name:      fmt.Sprintf("%s %d", prefix, i),
			StreamURL: fmt.Sprintf("https://%s%d.example.com/live.mp3", prefix, i),
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WatchdogTimeout = 5 * time.Second
	cfg.StallGrace = 5 * time.Second
	cfg.VerifyAfter = time.Minute
	return cfg
}

type harness struct {
	c     *Controller
	rt    *fakeRuntime
	store *store.Store
	dir   *fakeDirectory
}

func newHarness(t *testing.T, dir *fakeDirectory, cfg Config) *harness {
	t.Helper()

	if dir.results == nil {
		dir.results = map[string][]station.Station{}
	}
	h := &harness{
		rt:    newFakeRuntime(),
		store: store.New(store.NewMemoryKV()),
		dir:   dir,
	}
	h.c = New(h.rt, h.store, dir, firstSelector{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	waitFor(t, "state "+string(want), func() bool { return h.c.Status().State == want })
}

func (h *harness) waitLoads(t *testing.T, n int) loadCall {
	t.Helper()
	waitFor(t, fmt.Sprintf("%d loads", n), func() bool { return h.rt.loadCount() >= n })
	return h.rt.lastLoad()
}

// playing starts the genre and drives the first station to Playing.
func (h *harness) playing(t *testing.T, g string) loadCall {
	t.Helper()
	h.c.Start(g, false)
	call := h.waitLoads(t, 1)
	h.waitState(t, StateConnecting)
	h.rt.emit(SignalPlayable)
	h.waitState(t, StatePlaying)
	return call
}

func TestFailuresTerminateInBlockedOnce(t *testing.T) {
	cfg := testConfig()
	cfg.WatchdogTimeout = 10 * time.Millisecond
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 15)}}
	h := newHarness(t, dir, cfg)

	updates := h.c.Subscribe()
	h.c.Start("lofi", false)
	h.waitState(t, StateBlocked)

	// Give a runaway loop the chance to show itself.
	time.Sleep(100 * time.Millisecond)

	if got := h.rt.loadCount(); got != DefaultMaxFailures {
		t.Errorf("loads = %d, want %d", got, DefaultMaxFailures)
	}
	st := h.c.Status()
	if st.State != StateBlocked || !errors.Is(st.Err, ErrNoLiveStations) {
		t.Errorf("Status() = %s / %v, want blocked / %v", st.State, st.Err, ErrNoLiveStations)
	}
	if st.Failures != DefaultMaxFailures {
		t.Errorf("Failures = %d, want %d", st.Failures, DefaultMaxFailures)
	}
	if got := len(h.store.BlacklistIDs()); got != DefaultMaxFailures {
		t.Errorf("blacklist size = %d, want %d", got, DefaultMaxFailures)
	}

	blocked := 0
	for drained := false; !drained; {
		select {
		case s := <-updates:
			if s.State == StateBlocked {
				blocked++
			}
		default:
			drained = true
		}
	}
	if blocked != 1 {
		t.Errorf("blocked published %d times, want 1", blocked)
	}

	dir.mu.Lock()
	learned := dir.learned
	dir.mu.Unlock()
	if learned == 0 {
		t.Error("repeated rejections should trigger stop word learning")
	}
}

func TestQuickSkipBlacklists(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	cfg := testConfig()
	cfg.Now = clk.Now
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 5)}}
	h := newHarness(t, dir, cfg)

	first := h.playing(t, "lofi")
	if first.url != "https://lofi0.example.com/live.mp3" {
		t.Fatalf("first load = %s", first.url)
	}

	clk.Advance(2 * time.Second)
	h.c.Next()
	second := h.waitLoads(t, 2)
	if !h.store.IsBlacklisted("lofi-0") {
		t.Error("station skipped after 2s should be blacklisted")
	}
	if second.url == first.url {
		t.Error("Next() reloaded the skipped station")
	}

	h.waitState(t, StateConnecting)
	h.rt.emit(SignalPlayable)
	h.waitState(t, StatePlaying)
	secondID := h.c.Status().Station.ID

	clk.Advance(10 * time.Second)
	h.c.Next()
	h.waitLoads(t, 3)
	if h.store.IsBlacklisted(secondID) {
		t.Errorf("station skipped after 10s of playback should not be blacklisted")
	}
}

func TestQuickSkipWhileConnectingBlacklists(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	cfg := testConfig()
	cfg.Now = clk.Now
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 3)}}
	h := newHarness(t, dir, cfg)

	h.c.Start("lofi", false)
	h.waitLoads(t, 1)
	h.waitState(t, StateConnecting)

	clk.Advance(time.Second)
	h.c.Next()
	h.waitLoads(t, 2)
	if !h.store.IsBlacklisted("lofi-0") {
		t.Error("station skipped before it ever played should be blacklisted")
	}
}

func TestNextUsesPreloadedPool(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	cfg := testConfig()
	cfg.Now = clk.Now
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 4)}}
	h := newHarness(t, dir, cfg)

	h.playing(t, "lofi")
	waitFor(t, "preload", func() bool { return preloadReady(h.c.preloader) })
	before := dir.searchCount()

	clk.Advance(time.Minute)
	h.c.Next()
	h.waitLoads(t, 2)
	waitFor(t, "preloaded source", func() bool { return h.c.Status().Source == SourcePreloaded })

	if n := dir.searchCount(); n != before {
		t.Errorf("directory searched %d times during Next(), want 0", n-before)
	}
	if call := h.rt.lastLoad(); call.url != "https://lofi1.example.com/live.mp3" {
		t.Errorf("Next() loaded %s, want lofi1 from the preloaded pool", call.url)
	}
}

func TestVerifiedFastPath(t *testing.T) {
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	dir := &fakeDirectory{gates: map[string]chan struct{}{"lofi": gate}}
	h := newHarness(t, dir, testConfig())

	verified := makeStations("v", 3)
	for _, st := range verified {
		h.store.PutVerified("lofi", st)
	}

	h.c.Start("lofi", false)
	call := h.waitLoads(t, 1)

	urls := []string{verified[0].StreamURL, verified[1].StreamURL, verified[2].StreamURL}
	if !slices.Contains(urls, call.url) {
		t.Fatalf("loaded %s, want one of the verified stations", call.url)
	}
	h.waitState(t, StateConnecting)
	if src := h.c.Status().Source; src != SourceVerified {
		t.Errorf("Source = %s, want verified", src)
	}

	// The blocked directory only serves the background refresh.
	if n := dir.searchCount(); n > 1 {
		t.Errorf("directory searched %d times, want at most the background refresh", n)
	}

	h.rt.emit(SignalPlayable)
	h.waitState(t, StatePlaying)
}

func TestStaleResolutionDiscarded(t *testing.T) {
	gate := make(chan struct{})
	dir := &fakeDirectory{
		results: map[string][]station.Station{
			"lofi": makeStations("lofi", 2),
			"jazz": makeStations("jazz", 2),
		},
		gates: map[string]chan struct{}{"lofi": gate},
	}
	h := newHarness(t, dir, testConfig())

	h.c.Start("lofi", false)
	waitFor(t, "lofi search", func() bool { return dir.searchCount() == 1 })

	h.c.Start("jazz", false)
	call := h.waitLoads(t, 1)
	if call.url != "https://jazz0.example.com/live.mp3" {
		t.Fatalf("loaded %s, want jazz0", call.url)
	}

	close(gate)
	time.Sleep(100 * time.Millisecond)

	if n := h.rt.loadCount(); n != 1 {
		t.Errorf("loads = %d, the late lofi result must be discarded", n)
	}
	if g := h.c.Status().Genre; g != "jazz" {
		t.Errorf("Genre = %s, want jazz", g)
	}
}

func TestStallBeyondGraceFails(t *testing.T) {
	cfg := testConfig()
	cfg.StallGrace = 20 * time.Millisecond
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 3)}}
	h := newHarness(t, dir, cfg)

	h.playing(t, "lofi")
	h.rt.emit(SignalStalled)

	h.waitLoads(t, 2)
	if !h.store.IsBlacklisted("lofi-0") {
		t.Error("stalled station should be blacklisted")
	}
}

func TestStallRecoveryWithinGrace(t *testing.T) {
	cfg := testConfig()
	cfg.StallGrace = 150 * time.Millisecond
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 3)}}
	h := newHarness(t, dir, cfg)

	h.playing(t, "lofi")
	h.rt.emit(SignalStalled)
	h.rt.emit(SignalPlayable)

	time.Sleep(300 * time.Millisecond)
	if n := h.rt.loadCount(); n != 1 {
		t.Errorf("loads = %d, a recovered stall must not switch stations", n)
	}
	if s := h.c.Status().State; s != StatePlaying {
		t.Errorf("State = %s, want playing", s)
	}
}

func TestErrorSignalAdvances(t *testing.T) {
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 3)}}
	h := newHarness(t, dir, testConfig())

	h.playing(t, "lofi")
	attempt := h.rt.lastLoad().attempt
	h.rt.signals <- Signal{Kind: SignalError, Attempt: attempt, Code: CodeDecode}
	h.rt.signals <- Signal{Kind: SignalEnded, Attempt: attempt}

	next := h.waitLoads(t, 2)
	if next.url != "https://lofi1.example.com/live.mp3" {
		t.Errorf("next load = %s, want lofi1", next.url)
	}

	time.Sleep(50 * time.Millisecond)
	if n := h.rt.loadCount(); n != 2 {
		t.Errorf("loads = %d, repeated failure signals must be handled once", n)
	}
	if f := h.c.Status().Failures; f != 1 {
		t.Errorf("Failures = %d, want 1", f)
	}
}

func TestPlayableResetsFailuresAndCaches(t *testing.T) {
	cfg := testConfig()
	cfg.VerifyAfter = 30 * time.Millisecond
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 3)}}
	h := newHarness(t, dir, cfg)

	h.c.Start("lofi", false)
	h.waitLoads(t, 1)
	h.rt.emit(SignalError)
	h.waitLoads(t, 2)
	h.waitState(t, StateConnecting)
	h.rt.emit(SignalPlayable)
	h.waitState(t, StatePlaying)

	if f := h.c.Status().Failures; f != 0 {
		t.Errorf("Failures = %d after playable, want 0", f)
	}
	if recent := h.store.Recent("lofi"); len(recent) != 1 || recent[0].ID != "lofi-1" {
		t.Errorf("Recent() = %v, want [lofi-1]", recent)
	}
	waitFor(t, "verified promotion", func() bool { return len(h.store.Verified("lofi")) == 1 })
}

func TestPauseResume(t *testing.T) {
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 2)}}
	h := newHarness(t, dir, testConfig())

	h.playing(t, "lofi")
	h.c.Pause()
	h.waitState(t, StatePaused)

	h.c.TogglePause()
	h.waitState(t, StatePlaying)
	if n := h.rt.loadCount(); n != 1 {
		t.Errorf("loads = %d, pause and resume must keep the station", n)
	}
}

func TestResumeAudioBlocked(t *testing.T) {
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 2)}}
	h := newHarness(t, dir, testConfig())

	h.playing(t, "lofi")
	h.c.Pause()
	h.waitState(t, StatePaused)

	h.rt.setResumeErr(ErrAudioBlocked)
	h.c.Resume()
	h.waitState(t, StateAudioBlocked)
	if !errors.Is(h.c.Status().Err, ErrAudioBlocked) {
		t.Errorf("Err = %v, want %v", h.c.Status().Err, ErrAudioBlocked)
	}

	h.rt.setResumeErr(nil)
	h.c.Retry()
	h.waitState(t, StatePlaying)
}

func TestLoadAudioBlocked(t *testing.T) {
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 2)}}
	h := newHarness(t, dir, testConfig())
	h.rt.setLoadErr(ErrAudioBlocked)

	h.c.Start("lofi", false)
	h.waitState(t, StateAudioBlocked)
	if h.store.IsBlacklisted("lofi-0") {
		t.Error("a blocked output device is not a station failure")
	}

	h.rt.setLoadErr(nil)
	h.c.Retry()
	call := h.waitLoads(t, 2)
	if call.url != "https://lofi0.example.com/live.mp3" {
		t.Errorf("retry loaded %s, want the same station", call.url)
	}
	h.waitState(t, StateConnecting)
}

func TestEndedWhilePausedReloadsOnResume(t *testing.T) {
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 2)}}
	h := newHarness(t, dir, testConfig())

	first := h.playing(t, "lofi")
	h.c.Pause()
	h.waitState(t, StatePaused)
	h.rt.emit(SignalEnded)
	time.Sleep(50 * time.Millisecond)

	h.c.Resume()
	call := h.waitLoads(t, 2)
	if call.url != first.url {
		t.Errorf("resume loaded %s, want %s", call.url, first.url)
	}
}

func TestPrevReturnsToHistory(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	cfg := testConfig()
	cfg.Now = clk.Now
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 4)}}
	h := newHarness(t, dir, cfg)

	first := h.playing(t, "lofi")
	clk.Advance(time.Minute)
	h.c.Next()
	h.waitLoads(t, 2)
	h.waitState(t, StateConnecting)
	h.rt.emit(SignalPlayable)
	h.waitState(t, StatePlaying)

	clk.Advance(time.Minute)
	h.c.Prev()
	call := h.waitLoads(t, 3)
	if call.url != first.url {
		t.Errorf("Prev() loaded %s, want %s", call.url, first.url)
	}
	if src := h.c.Status().Source; src != SourceHistory {
		t.Errorf("Source = %s, want history", src)
	}
}

func TestStopReturnsToIdle(t *testing.T) {
	dir := &fakeDirectory{results: map[string][]station.Station{"lofi": makeStations("lofi", 2)}}
	h := newHarness(t, dir, testConfig())

	h.playing(t, "lofi")
	sessionID := h.c.Status().SessionID
	if sessionID == "" {
		t.Error("a started session should have an ID")
	}

	h.c.Stop()
	h.waitState(t, StateIdle)
	st := h.c.Status()
	if st.Station != nil || st.SessionID != "" {
		t.Errorf("Status() after stop = %+v", st)
	}
	if st.Genre != "lofi" {
		t.Errorf("Genre = %q, stop should keep the last genre", st.Genre)
	}

	// Signals for the torn down attempt are ignored.
	h.rt.emit(SignalError)
	time.Sleep(50 * time.Millisecond)
	if h.store.IsBlacklisted("lofi-0") {
		t.Error("a stopped station must not be blacklisted by a late signal")
	}
}

func TestPlayStation(t *testing.T) {
	h := newHarness(t, &fakeDirectory{}, testConfig())
	fav := station.Station{ID: "fav", Name: "Favorite", StreamURL: "https://fav.example.com/live.mp3"}

	h.c.PlayStation("jazz", fav)
	call := h.waitLoads(t, 1)
	if call.url != fav.StreamURL {
		t.Errorf("loaded %s, want %s", call.url, fav.StreamURL)
	}
	h.waitState(t, StateConnecting)
	if src := h.c.Status().Source; src != SourceFavorite {
		t.Errorf("Source = %s, want favorite", src)
	}
}

func TestStartWithNoStationsBlocks(t *testing.T) {
	h := newHarness(t, &fakeDirectory{}, testConfig())

	h.c.Start("nothing", false)
	h.waitState(t, StateBlocked)
	if err := h.c.Status().Err; !errors.Is(err, service.ErrNoStationsForTag) {
		t.Errorf("Err = %v, want %v", err, service.ErrNoStationsForTag)
	}
	if n := h.rt.loadCount(); n != 0 {
		t.Errorf("loads = %d, want 0", n)
	}
}

func TestWaterfallOrder(t *testing.T) {
	empty := func(context.Context) (pick, bool, error) { return pick{}, false, nil }
	failing := func(context.Context) (pick, bool, error) { return pick{}, false, errors.New("boom") }
	found := func(id string) func(context.Context) (pick, bool, error) {
		return func(context.Context) (pick, bool, error) {
			return pick{station: station.Station{ID: id}}, true, nil
		}
	}

	p, err := waterfall(context.Background(), []strategy{
		{SourceVerified, empty},
		{SourcePreloaded, failing},
		{SourceFresh, found("a")},
		{SourceWraparound, found("b")},
	})
	if err != nil || p.station.ID != "a" || p.source != SourceFresh {
		t.Errorf("waterfall() = %+v, %v; want a from fresh", p, err)
	}

	_, err = waterfall(context.Background(), []strategy{{SourceVerified, empty}})
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("waterfall(empty) error = %v, want %v", err, ErrNoCandidates)
	}

	_, err = waterfall(context.Background(), []strategy{{SourceFresh, failing}, {SourceWraparound, empty}})
	if err == nil || err.Error() != "boom" {
		t.Errorf("waterfall(failing) error = %v, want boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err = waterfall(ctx, []strategy{{SourceFresh, found("a")}}); !errors.Is(err, context.Canceled) {
		t.Errorf("waterfall(canceled) error = %v", err)
	}
}
