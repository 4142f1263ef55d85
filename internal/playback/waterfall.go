package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebovdev/moodradio/internal/service"
	"github.com/glebovdev/moodradio/internal/station"
)

type purpose int

const (
	purposeStart purpose = iota
	purposeFailure
	purposeNext
	purposePrev
)

func (p purpose) String() string {
	switch p {
	case purposeStart:
		return "start"
	case purposeFailure:
		return "failure"
	case purposeNext:
		return "next"
	case purposePrev:
		return "prev"
	}
	return "unknown"
}

// pick is a resolved station plus, when the strategy produced one, a new candidate list.
type pick struct {
	station    station.Station
	candidates []station.Station
	source     Source
}

type strategy struct {
	source Source
	find   func(ctx context.Context) (pick, bool, error)
}

// resolveInput is the loop state a resolution needs, copied before it leaves the loop.
type resolveInput struct {
	purpose    purpose
	genre      string
	random     bool
	excludeID  string
	played     map[string]bool
	candidates []station.Station
	index      int
	history    []station.Station
	preloaded  []station.Station
}

// waterfall returns the first non-empty strategy result. When every strategy
// comes back empty, the last strategy error (or ErrNoCandidates) is returned.
func waterfall(ctx context.Context, steps []strategy) (pick, error) {
	var lastErr error
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return pick{}, err
		}
		p, ok, err := s.find(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			p.source = s.source
			return p, nil
		}
	}
	if lastErr == nil {
		lastErr = ErrNoCandidates
	}
	return pick{}, lastErr
}

func (c *Controller) strategies(in resolveInput) []strategy {
	verified := strategy{SourceVerified, func(context.Context) (pick, bool, error) {
		return c.pickRandom(in, c.store.Verified(in.genre))
	}}
	recent := strategy{SourceRecent, func(context.Context) (pick, bool, error) {
		return c.pickFirst(in, c.store.Recent(in.genre), nil)
	}}
	preloaded := strategy{SourcePreloaded, func(context.Context) (pick, bool, error) {
		return c.pickFirst(in, in.preloaded, in.preloaded)
	}}
	remaining := strategy{SourceCandidates, func(context.Context) (pick, bool, error) {
		if in.index+1 >= len(in.candidates) {
			return pick{}, false, nil
		}
		return c.pickFirst(in, in.candidates[in.index+1:], nil)
	}}
	fresh := strategy{SourceFresh, func(ctx context.Context) (pick, bool, error) {
		return c.fresh(ctx, in)
	}}
	wraparound := strategy{SourceWraparound, func(context.Context) (pick, bool, error) {
		return c.stepIndex(in, 1)
	}}
	history := strategy{SourceHistory, func(context.Context) (pick, bool, error) {
		for i := len(in.history) - 1; i >= 0; i-- {
			st := in.history[i]
			if st.ID != in.excludeID && !c.store.IsBlacklisted(st.ID) {
				return pick{station: st}, true, nil
			}
		}
		return pick{}, false, nil
	}}
	previous := strategy{SourcePrevious, func(context.Context) (pick, bool, error) {
		return c.stepIndex(in, -1)
	}}

	switch in.purpose {
	case purposeFailure:
		return []strategy{verified, recent, preloaded, remaining, fresh}
	case purposeNext:
		return []strategy{verified, preloaded, fresh, wraparound}
	case purposePrev:
		return []strategy{history, previous}
	default:
		return []strategy{verified, recent, fresh}
	}
}

// usable drops blacklisted, already played and excluded stations, keeping order.
func (c *Controller) usable(in resolveInput, list []station.Station) []station.Station {
	list = c.store.FilterBlacklisted(list)
	out := make([]station.Station, 0, len(list))
	for _, st := range list {
		if st.ID == in.excludeID || in.played[st.StreamURL] || !st.IsPlayable() {
			continue
		}
		out = append(out, st)
	}
	return out
}

func (c *Controller) pickRandom(in resolveInput, list []station.Station) (pick, bool, error) {
	list = c.usable(in, list)
	if len(list) == 0 {
		return pick{}, false, nil
	}
	c.rngMu.Lock()
	i := c.rng.IntN(len(list))
	c.rngMu.Unlock()
	return pick{station: list[i]}, true, nil
}

func (c *Controller) pickFirst(in resolveInput, list, candidates []station.Station) (pick, bool, error) {
	list = c.usable(in, list)
	if len(list) == 0 {
		return pick{}, false, nil
	}
	return pick{station: list[0], candidates: candidates}, true, nil
}

// fresh runs the directory and validator pipeline, bounded to FreshAttempts tries.
func (c *Controller) fresh(ctx context.Context, in resolveInput) (pick, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.FreshAttempts; attempt++ {
		list, err := c.dir.Search(ctx, in.genre, service.SearchOptions{RandomOrder: in.random})
		if err != nil {
			if ctx.Err() != nil {
				return pick{}, false, ctx.Err()
			}
			lastErr = err
			c.logger.Debug().Err(err).Int("attempt", attempt).Str("genre", in.genre).Msg("Fresh search failed")
			continue
		}

		usable := c.usable(in, list)
		if len(usable) == 0 {
			lastErr = fmt.Errorf("%w for %q", ErrNoCandidates, in.genre)
			continue
		}

		chosen, ordered := c.sel.Select(ctx, in.genre, usable)
		return pick{station: chosen, candidates: ordered}, true, nil
	}
	return pick{}, false, lastErr
}

// stepIndex moves dir positions through the candidate list, wrapping around and
// skipping the excluded and blacklisted stations.
func (c *Controller) stepIndex(in resolveInput, dir int) (pick, bool, error) {
	n := len(in.candidates)
	if n == 0 {
		return pick{}, false, nil
	}

	start := in.index
	if start < 0 {
		start = 0
		if dir < 0 {
			start = n
		}
	}
	for i := 1; i <= n; i++ {
		idx := ((start+dir*i)%n + n) % n
		st := in.candidates[idx]
		if st.ID == in.excludeID || c.store.IsBlacklisted(st.ID) {
			continue
		}
		return pick{station: st}, true, nil
	}
	return pick{}, false, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
