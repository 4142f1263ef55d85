package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebovdev/moodradio/internal/config"
	"github.com/glebovdev/moodradio/internal/playback"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate   = beep.SampleRate(44100)
	SpeakerBufferSize   = time.Millisecond * 250
	NetworkReadSize     = 4096
	SampleChannelSize   = 8192
	VolumeCurveExponent = 0.5
	MinVolumeDB         = -10.0
	ReadTimeout         = 5 * time.Second
	MaxPlaybackDelay    = 5 * time.Second
	StallThreshold      = 1500 * time.Millisecond
	ResampleQuality     = 4

	signalBuffer       = 64
	stallCheckInterval = 250 * time.Millisecond
)

type PlayerState int

const (
	StateIdle PlayerState = iota
	StateBuffering
	StatePlaying
	StatePaused
	StateError
)

func (s PlayerState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBuffering:
		return "BUFFERING"
	case StatePlaying:
		return "LIVE"
	case StatePaused:
		return "PAUSED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StreamInfo contains metadata about the current audio stream.
type StreamInfo struct {
	Format     string
	Quality    string
	Bitrate    int
	SampleRate int
}

var (
	errStreamEnded = errors.New("stream ended")
	errUnsupported = errors.New("unsupported stream format")
)

// streamError carries the signal code a failed stream is reported with.
type streamError struct {
	code int
	err  error
}

func (e *streamError) Error() string { return e.err.Error() }
func (e *streamError) Unwrap() error { return e.err }

func networkError(err error) error { return &streamError{code: playback.CodeNetwork, err: err} }
func decodeError(err error) error  { return &streamError{code: playback.CodeDecode, err: err} }

type httpStatusError struct {
	StatusCode int
	Status     string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("stream returned status %d: %s", e.StatusCode, e.Status)
}

// Relies on context cancellation to clean up the spawned read goroutine.
type contextReader struct {
	reader  io.Reader
	ctx     context.Context
	timeout time.Duration
}

func (cr *contextReader) Read(p []byte) (n int, err error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}

	timer := time.NewTimer(cr.timeout)
	defer timer.Stop()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)

	go func() {
		n, err := cr.reader.Read(p)
		select {
		case done <- result{n, err}:
		case <-cr.ctx.Done():
		}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-timer.C:
		return 0, fmt.Errorf("read timeout: no data received for %v", cr.timeout)
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	}
}

// stream is the per-load plumbing between the network reader, the decoder
// and the speaker.
type stream struct {
	attempt   uint64
	sampleCh  chan [2]float64
	done      chan struct{}
	doneOnce  sync.Once
	errCh     chan error
	lastAudio atomic.Int64
}

func newStream(attempt uint64) *stream {
	s := &stream{
		attempt:  attempt,
		sampleCh: make(chan [2]float64, SampleChannelSize),
		done:     make(chan struct{}),
		errCh:    make(chan error, 1),
	}
	s.touch(time.Now())
	return s
}

// Prevents panics from double-close when multiple goroutines signal completion.
func (s *stream) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *stream) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
	s.finish()
}

func (s *stream) touch(t time.Time) { s.lastAudio.Store(t.UnixNano()) }

func (s *stream) starving(now time.Time) bool {
	return now.Sub(time.Unix(0, s.lastAudio.Load())) > StallThreshold
}

// Player streams one station at a time to the speaker. It implements
// playback.AudioRuntime: it never retries on its own, it reports.
type Player struct {
	format        beep.Format
	volume        *effects.Volume
	ctrl          *beep.Ctrl
	mu            sync.Mutex
	cancelFunc    context.CancelFunc
	isPaused      bool
	isPlaying     bool
	speakerInit   bool
	volumePercent int
	httpClient    *http.Client
	openOutput    func(sampleRate beep.SampleRate, bufferSize int) error

	signals chan playback.Signal
	wg      sync.WaitGroup
	current *stream
	attempt uint64
	url     string

	status runtimeStatus

	pausedAt    time.Time
	pausedTotal time.Duration
}

// runtimeStatus is what the UI polls while a stream plays.
type runtimeStatus struct {
	mu      sync.RWMutex
	state   PlayerState
	info    StreamInfo
	since   time.Time
	lastErr string
	track   string
}

func (rs *runtimeStatus) setState(state PlayerState) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.state != state {
		log.Debug().Stringer("from", rs.state).Stringer("to", state).Msg("Player state")
		rs.state = state
	}
}

func (rs *runtimeStatus) fail(state PlayerState, msg string) {
	rs.mu.Lock()
	rs.state = state
	rs.lastErr = msg
	rs.mu.Unlock()
}

// reset clears everything tied to the previous stream.
func (rs *runtimeStatus) reset(state PlayerState) {
	rs.mu.Lock()
	rs.state = state
	rs.info = StreamInfo{}
	rs.since = time.Time{}
	rs.lastErr = ""
	rs.track = ""
	rs.mu.Unlock()
}

func (rs *runtimeStatus) started(info StreamInfo) {
	rs.mu.Lock()
	rs.state = StatePlaying
	rs.info = info
	rs.since = time.Now()
	rs.mu.Unlock()
	log.Debug().Msgf("Stream info: %s %dk %dHz", info.Format, info.Bitrate, info.SampleRate)
}

func (rs *runtimeStatus) setTrack(track string) {
	rs.mu.Lock()
	changed := rs.track != track
	rs.track = track
	rs.mu.Unlock()
	if changed && track != "" {
		log.Debug().Msgf("Now playing: %s", track)
	}
}

func NewPlayer() *Player {
	httpClient := &http.Client{
		Timeout: 0, // No overall timeout, streams are long-lived
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			DisableCompression:    true,
		},
	}

	return &Player{
		format: beep.Format{
			SampleRate:  DefaultSampleRate,
			NumChannels: 2,
			Precision:   2,
		},
		volumePercent: -1,
		httpClient:    httpClient,
		openOutput:    speaker.Init,
		signals:       make(chan playback.Signal, signalBuffer),
	}
}

// Signals returns the health signals of every load, tagged with its attempt.
func (p *Player) Signals() <-chan playback.Signal {
	return p.signals
}

func (p *Player) emit(sig playback.Signal) {
	select {
	case p.signals <- sig:
	default:
		log.Warn().Stringer("signal", sig.Kind).Uint64("attempt", sig.Attempt).Msg("Signal dropped, consumer is behind")
	}
}

// The output always runs at DefaultSampleRate; streams are resampled to it.
func (p *Player) initSpeaker() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.speakerInit {
		return nil
	}
	if err := p.openOutput(DefaultSampleRate, DefaultSampleRate.N(SpeakerBufferSize)); err != nil {
		return fmt.Errorf("%w: %w", playback.ErrAudioBlocked, err)
	}
	p.speakerInit = true
	log.Debug().Msgf("Speaker initialized with sample rate: %d Hz, buffer: %v", DefaultSampleRate, SpeakerBufferSize)
	return nil
}

// Load stops the current stream and starts url in the background.
func (p *Player) Load(attempt uint64, url string) error {
	p.Stop()

	if err := p.initSpeaker(); err != nil {
		p.status.fail(StateError, "Audio output unavailable")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := newStream(attempt)

	p.mu.Lock()
	p.cancelFunc = cancel
	p.current = s
	p.attempt = attempt
	p.url = url
	p.pausedAt = time.Time{}
	p.pausedTotal = 0
	p.mu.Unlock()

	p.status.reset(StateBuffering)

	p.wg.Add(1)
	go p.run(ctx, s, url)
	return nil
}

func (p *Player) run(ctx context.Context, s *stream, url string) {
	defer p.wg.Done()

	err := p.playStreamURL(ctx, s, url)
	if ctx.Err() != nil {
		return
	}

	sig := playback.Signal{Kind: playback.SignalError, Attempt: s.attempt, Err: err}
	var se *streamError
	switch {
	case errors.Is(err, errStreamEnded):
		sig.Kind = playback.SignalEnded
		p.status.setState(StateIdle)
	case errors.As(err, &se):
		sig.Code = se.code
		p.status.fail(StateError, err.Error())
	default:
		sig.Code = playback.CodeAborted
		p.status.fail(StateError, err.Error())
	}
	log.Debug().Err(err).Stringer("signal", sig.Kind).Uint64("attempt", s.attempt).Msg("Stream finished")
	p.emit(sig)
}

func (p *Player) Stop() {
	p.mu.Lock()

	if p.cancelFunc == nil && !p.isPlaying {
		p.mu.Unlock()
		return
	}

	if p.cancelFunc != nil {
		p.cancelFunc()
		p.cancelFunc = nil
	}

	speaker.Clear()
	p.isPlaying = false
	p.isPaused = false
	p.current = nil
	p.mu.Unlock()

	p.wg.Wait()

	p.status.mu.Lock()
	p.status.state = StateIdle
	p.status.since = time.Time{}
	p.status.info = StreamInfo{}
	p.status.mu.Unlock()

	log.Debug().Msg("Playback stopped")
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil || !p.isPlaying || p.isPaused {
		return
	}

	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()

	p.isPaused = true
	p.pausedAt = time.Now()
	p.status.setState(StatePaused)
	log.Debug().Msg("Playback paused")
}

// Resume continues a paused stream. A live stream paused for longer than
// MaxPlaybackDelay is reloaded under the same attempt instead.
func (p *Player) Resume() error {
	p.mu.Lock()

	if !p.speakerInit {
		p.mu.Unlock()
		return playback.ErrAudioBlocked
	}
	if p.ctrl == nil || !p.isPlaying || !p.isPaused {
		p.mu.Unlock()
		return nil
	}

	if !p.pausedAt.IsZero() {
		p.pausedTotal += time.Since(p.pausedAt)
		p.pausedAt = time.Time{}
	}
	if p.pausedTotal > MaxPlaybackDelay {
		attempt, url, behind := p.attempt, p.url, p.pausedTotal
		p.mu.Unlock()
		log.Debug().Dur("behind", behind).Msg("Live stream fell too far behind, reconnecting")
		return p.Load(attempt, url)
	}

	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()

	p.isPaused = false
	if p.current != nil {
		p.current.touch(time.Now())
	}
	p.mu.Unlock()

	p.status.setState(StatePlaying)
	log.Debug().Msg("Playback resumed")
	return nil
}

// GetPlaybackDelay is how far behind the live edge pausing has put the stream.
func (p *Player) GetPlaybackDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.pausedTotal
	if !p.pausedAt.IsZero() {
		total += time.Since(p.pausedAt)
	}
	return total
}

func (p *Player) SetVolume(volumePercent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volumePercent = volumePercent

	if p.volume == nil {
		log.Debug().Msgf("Volume stored as %d%% (will be applied when playback starts)", volumePercent)
		return
	}

	volumeLevel := percentToExponent(float64(volumePercent))

	speaker.Lock()
	p.volume.Volume = volumeLevel
	p.volume.Silent = volumePercent == 0
	speaker.Unlock()

	log.Debug().Msgf("Volume set to %d%% (%.2f dB)", volumePercent, volumeLevel)
}

func percentToExponent(p float64) float64 {
	if p <= 0 {
		return MinVolumeDB
	}
	if p >= 100 {
		return 0
	}

	normalized := p / 100.0
	adjusted := math.Pow(normalized, VolumeCurveExponent)
	return (1.0 - adjusted) * MinVolumeDB
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isPaused
}

func (p *Player) GetCurrentTrack() string {
	p.status.mu.RLock()
	defer p.status.mu.RUnlock()
	return p.status.track
}

func (p *Player) GetState() PlayerState {
	p.status.mu.RLock()
	defer p.status.mu.RUnlock()
	return p.status.state
}

func (p *Player) GetStreamInfo() StreamInfo {
	p.status.mu.RLock()
	defer p.status.mu.RUnlock()
	return p.status.info
}

func (p *Player) GetLastError() string {
	p.status.mu.RLock()
	defer p.status.mu.RUnlock()
	return p.status.lastErr
}

func (p *Player) GetSessionDuration() time.Duration {
	p.status.mu.RLock()
	defer p.status.mu.RUnlock()
	if p.status.since.IsZero() {
		return 0
	}
	return time.Since(p.status.since)
}

// GetBufferHealth returns the current buffer fill level as a percentage (0-100).
func (p *Player) GetBufferHealth() int {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()

	if s == nil {
		return 0
	}
	return (len(s.sampleCh) * 100) / cap(s.sampleCh)
}

type decodeFunc func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

func decoderFor(codec string) (decodeFunc, error) {
	switch codec {
	case station.FormatMP3:
		return mp3.Decode, nil
	case station.FormatOGG:
		return vorbis.Decode, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnsupported, codec)
}

// detectCodec maps the response Content-Type to a format, guessing from the
// URL when the server sends a generic type.
func detectCodec(contentType, streamURL string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg":
		return station.FormatMP3
	case "audio/ogg", "application/ogg", "audio/vorbis", "audio/x-vorbis+ogg":
		return station.FormatOGG
	case "audio/aac", "audio/aacp", "audio/x-aac", "audio/mp4", "audio/x-m4a":
		return station.FormatAAC
	case "audio/x-mpegurl", "audio/mpegurl", "application/vnd.apple.mpegurl", "audio/x-scpls":
		return station.FormatOther
	case "", "application/octet-stream", "binary/octet-stream":
		if f := station.GuessFormat(streamURL, ""); f != station.FormatOther {
			return f
		}
		return station.FormatMP3
	}
	if strings.HasPrefix(ct, "audio/") {
		return station.GuessFormat(streamURL, "")
	}
	return station.FormatOther
}

func streamInfoFor(codec string, header http.Header) StreamInfo {
	info := StreamInfo{
		Format:     strings.ToUpper(codec),
		Quality:    "high",
		Bitrate:    128,
		SampleRate: int(DefaultSampleRate),
	}

	if br, err := strconv.Atoi(strings.TrimSpace(strings.Split(header.Get("icy-br"), ",")[0])); err == nil && br > 0 {
		info.Bitrate = br
	}

	switch {
	case info.Bitrate >= 256:
		info.Quality = "highest"
	case info.Bitrate >= 128:
		info.Quality = "high"
	case info.Bitrate >= 64:
		info.Quality = "medium"
	default:
		info.Quality = "low"
	}
	return info
}

func (p *Player) playStreamURL(ctx context.Context, s *stream, streamURL string) error {
	log.Debug().Msgf("Connecting to stream: %s", streamURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return networkError(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", fmt.Sprintf("moodradio/%s", config.AppVersion))
	req.Header.Set("Icy-MetaData", "1")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return networkError(fmt.Errorf("failed to fetch stream: %w", err))
	}

	contentType := resp.Header.Get("Content-Type")
	log.Debug().Msgf("Stream response status: %d, Content-Type: %s", resp.StatusCode, contentType)

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return networkError(&httpStatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	codec := detectCodec(contentType, streamURL)
	decode, err := decoderFor(codec)
	if err != nil {
		resp.Body.Close()
		return &streamError{code: playback.CodeUnsupported, err: err}
	}

	metaint, _ := strconv.Atoi(resp.Header.Get("icy-metaint"))
	body := newICYReader(&contextReader{reader: resp.Body, ctx: ctx, timeout: ReadTimeout}, metaint, p.status.setTrack)

	pipeReader, pipeWriter := io.Pipe()
	p.wg.Add(1)
	go p.pump(ctx, s, resp.Body, body, pipeWriter)

	log.Debug().Msgf("Decoding %s stream...", codec)
	decoded, format, err := decode(pipeReader)
	if err != nil {
		pipeReader.Close()
		s.finish()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return decodeError(fmt.Errorf("failed to decode %s stream: %w", codec, err))
	}

	var source beep.Streamer = decoded
	if format.SampleRate != DefaultSampleRate {
		source = beep.Resample(ResampleQuality, format.SampleRate, DefaultSampleRate, decoded)
	}

	info := streamInfoFor(codec, resp.Header)
	info.SampleRate = int(format.SampleRate)

	p.wg.Add(1)
	go p.decodeAndBuffer(ctx, s, source, decoded, pipeReader)

	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		s.finish()
		return ctx.Err()
	}
	volumePercent := p.volumePercent
	if volumePercent < 0 {
		volumePercent = config.DefaultVolume
	}
	volumeLevel := percentToExponent(float64(volumePercent))

	fadeInSamples := int(DefaultSampleRate.N(fadeInDuration))
	bufferedStreamer := &bufferedStreamerWrapper{
		stream:          s,
		fadeInRemaining: fadeInSamples,
		fadeInTotal:     fadeInSamples,
	}

	p.volume = &effects.Volume{
		Streamer: bufferedStreamer,
		Base:     2,
		Volume:   volumeLevel,
		Silent:   volumePercent == 0,
	}

	p.ctrl = &beep.Ctrl{
		Streamer: p.volume,
		Paused:   false,
	}
	p.isPlaying = true
	p.isPaused = false
	p.mu.Unlock()

	speaker.Play(p.ctrl)

	p.status.started(info)
	s.touch(time.Now())
	p.emit(playback.Signal{Kind: playback.SignalPlayable, Attempt: s.attempt})

	p.wg.Add(1)
	go p.watchStall(ctx, s)

	stopPlayback := func() {
		s.finish()
		speaker.Clear()
		p.mu.Lock()
		if p.current == s {
			p.isPlaying = false
			p.isPaused = false
		}
		p.mu.Unlock()
	}

	select {
	case <-ctx.Done():
		stopPlayback()
		return ctx.Err()
	case err := <-s.errCh:
		stopPlayback()
		return err
	case <-s.done:
		select {
		case err := <-s.errCh:
			stopPlayback()
			return err
		default:
		}
		stopPlayback()
		return errStreamEnded
	}
}

// watchStall reports Stalled when the speaker has been starved for
// StallThreshold, and Playable again once audio flows.
func (p *Player) watchStall(ctx context.Context, s *stream) {
	defer p.wg.Done()

	ticker := time.NewTicker(stallCheckInterval)
	defer ticker.Stop()

	stalled := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case now := <-ticker.C:
			if p.IsPaused() {
				continue
			}
			starving := s.starving(now)
			switch {
			case starving && !stalled:
				stalled = true
				p.status.setState(StateBuffering)
				log.Debug().Uint64("attempt", s.attempt).Msg("Stream starved")
				p.emit(playback.Signal{Kind: playback.SignalStalled, Attempt: s.attempt})
			case !starving && stalled:
				stalled = false
				p.status.setState(StatePlaying)
				p.emit(playback.Signal{Kind: playback.SignalPlayable, Attempt: s.attempt})
			}
		}
	}
}

// pump copies audio bytes from the network into the decoder pipe until the
// stream ends or fails.
func (p *Player) pump(ctx context.Context, s *stream, respBody io.Closer, body io.Reader, pw *io.PipeWriter) {
	defer p.wg.Done()
	defer respBody.Close()

	buf := make([]byte, NetworkReadSize)
	for {
		select {
		case <-ctx.Done():
			pw.Close()
			return
		case <-s.done:
			pw.Close()
			return
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := pw.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err == nil {
			continue
		}

		if err == io.EOF || ctx.Err() != nil {
			pw.Close()
			return
		}
		log.Error().Err(err).Msg("Error reading audio data from stream")
		err = fmt.Errorf("network read error: %w", err)
		pw.CloseWithError(err)
		s.fail(networkError(err))
		return
	}
}

func (p *Player) decodeAndBuffer(ctx context.Context, s *stream, source beep.Streamer, decoded beep.StreamSeekCloser, pipeReader *io.PipeReader) {
	defer func() {
		decoded.Close()
		pipeReader.Close()
		p.wg.Done()
		log.Debug().Msg("Decoder and buffer goroutine stopped")

		// Lets playStreamURL report the end of the stream
		if ctx.Err() == nil {
			s.finish()
		}
	}()

	decodedSamples := make([][2]float64, 4096)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		n, ok := source.Stream(decodedSamples)
		if !ok {
			if err := source.Err(); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Stream decoding error")
				s.fail(decodeError(err))
			}
			return
		}

		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case s.sampleCh <- decodedSamples[i]:
			}
		}
	}
}

const fadeInDuration = 50 * time.Millisecond

type bufferedStreamerWrapper struct {
	stream          *stream
	fadeInRemaining int
	fadeInTotal     int
	done            bool
}

// Stream reads decoded audio samples into the buffer. An empty channel yields
// silence instead of blocking the speaker mutex, which keeps the output
// pipeline flowing during network interruptions.
func (b *bufferedStreamerWrapper) Stream(samples [][2]float64) (n int, ok bool) {
	s := b.stream
	audioEnd := 0

	if !b.done {
	fill:
		for i := range samples {
			select {
			case <-s.done:
				b.done = true
				break fill
			default:
			}

			select {
			case sample := <-s.sampleCh:
				samples[i] = sample
				audioEnd = i + 1
			default:
				break fill
			}
		}
	}

	// Samples read in the batch the stream ended are discarded as possibly truncated.
	if b.done {
		audioEnd = 0
	}
	if audioEnd > 0 {
		s.touch(time.Now())
	}

	for i := audioEnd; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}

	if b.fadeInRemaining > 0 {
		for i := 0; i < audioEnd; i++ {
			pos := b.fadeInTotal - b.fadeInRemaining
			scale := float64(pos) / float64(b.fadeInTotal)
			samples[i][0] *= scale
			samples[i][1] *= scale
			b.fadeInRemaining--
			if b.fadeInRemaining <= 0 {
				break
			}
		}
	}

	return len(samples), true
}

func (b *bufferedStreamerWrapper) Err() error {
	return nil
}
