package playback

import (
	"errors"

	"github.com/glebovdev/moodradio/internal/station"
)

// State is a playback controller state.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StatePlaying      State = "playing"
	StatePaused       State = "paused"
	StateBlocked      State = "blocked"
	StateAudioBlocked State = "audio_blocked"
)

var allStates = []string{
	string(StateIdle),
	string(StateConnecting),
	string(StatePlaying),
	string(StatePaused),
	string(StateBlocked),
	string(StateAudioBlocked),
}

// Source names where the active station came from.
type Source string

const (
	SourceVerified   Source = "verified"
	SourceRecent     Source = "recent"
	SourcePreloaded  Source = "preloaded"
	SourceCandidates Source = "candidates"
	SourceFresh      Source = "fresh"
	SourceWraparound Source = "wraparound"
	SourceHistory    Source = "history"
	SourcePrevious   Source = "previous"
	SourceFavorite   Source = "favorite"
)

var (
	// ErrNoLiveStations is the terminal error after too many consecutive failures.
	ErrNoLiveStations = errors.New("no live stations responding")
	// ErrNoCandidates means every resolution strategy came back empty.
	ErrNoCandidates = errors.New("no playable candidates")
	// ErrStreamUnplayable wraps individual candidate failures. It never leaves the controller.
	ErrStreamUnplayable = errors.New("stream unplayable")
)

// Status is a snapshot of the controller.
type Status struct {
	State      State            `json:"state"`
	Genre      string           `json:"genre,omitempty"`
	Station    *station.Station `json:"station,omitempty"`
	Source     Source           `json:"source,omitempty"`
	SessionID  string           `json:"session_id,omitempty"`
	Generation uint64           `json:"generation"`
	Attempt    uint64           `json:"attempt"`
	Failures   int              `json:"failures"`
	Candidates int              `json:"candidates"`
	Error      string           `json:"error,omitempty"`
	Err        error            `json:"-"`
}
