package playback

import "errors"

// ErrAudioBlocked is returned by an AudioRuntime when the output device refuses to play.
// Playback needs an explicit user action to resume.
var ErrAudioBlocked = errors.New("audio output blocked")

// SignalKind identifies a runtime health signal.
type SignalKind int

const (
	SignalPlayable SignalKind = iota
	SignalStalled
	SignalError
	SignalEnded
)

func (k SignalKind) String() string {
	switch k {
	case SignalPlayable:
		return "playable"
	case SignalStalled:
		return "stalled"
	case SignalError:
		return "error"
	case SignalEnded:
		return "ended"
	}
	return "unknown"
}

// Error codes carried by SignalError.
const (
	CodeAborted     = 1
	CodeNetwork     = 2
	CodeDecode      = 3
	CodeUnsupported = 4
)

// Signal is emitted by the runtime for the load attempt it belongs to.
type Signal struct {
	Kind    SignalKind
	Attempt uint64
	Code    int
	Err     error
}

// AudioRuntime plays one stream at a time.
//
// Load must not block on the network: it starts the stream and reports progress
// through Signals, tagging every signal with the attempt it was started with.
type AudioRuntime interface {
	Load(attempt uint64, url string) error
	Pause()
	Resume() error
	Stop()
	Signals() <-chan Signal
}
