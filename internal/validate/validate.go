// Package validate narrows directory candidates to one station worth playing.
package validate

import (
	"context"
	"net/http"
	"time"

	"github.com/glebovdev/moodradio/internal/metrics"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultProbeTimeout = time.Second
	RerankPoolSize      = 30
	ShortlistSize       = 5
)

// RelevanceClassifier returns the IDs of the most relevant candidates, best first.
type RelevanceClassifier interface {
	Rerank(ctx context.Context, genre string, candidates []station.Station, limit int) ([]string, error)
}

// ProbeResult is the outcome of one reachability probe.
type ProbeResult struct {
	Station   station.Station
	Reachable bool
	Latency   time.Duration
	Status    int
	Err       error
}

// Validator reranks candidates and probes the shortlist for reachability.
type Validator struct {
	classifier   RelevanceClassifier
	client       *resty.Client
	probeTimeout time.Duration
}

// New creates a Validator. classifier may be nil.
func New(classifier RelevanceClassifier, probeTimeout time.Duration) *Validator {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	client := resty.New().
		SetTimeout(probeTimeout).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	return &Validator{
		classifier:   classifier,
		client:       client,
		probeTimeout: probeTimeout,
	}
}

// Rerank asks the classifier for the best ShortlistSize candidates among the first
// RerankPoolSize. Any failure falls back to the first ShortlistSize in order.
func (v *Validator) Rerank(ctx context.Context, genre string, candidates []station.Station) []station.Station {
	pool := candidates
	if len(pool) > RerankPoolSize {
		pool = pool[:RerankPoolSize]
	}
	fallback := head(pool, ShortlistSize)

	if v.classifier == nil || len(pool) == 0 {
		return fallback
	}

	ids, err := v.classifier.Rerank(ctx, genre, pool, ShortlistSize)
	if err != nil {
		log.Debug().Err(err).Str("genre", genre).Msg("Rerank unavailable, keeping directory order")
		return fallback
	}

	byID := make(map[string]station.Station, len(pool))
	for _, st := range pool {
		byID[st.ID] = st
	}

	seen := make(map[string]bool, len(ids))
	ranked := make([]station.Station, 0, ShortlistSize)
	for _, id := range ids {
		st, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ranked = append(ranked, st)
		if len(ranked) == ShortlistSize {
			break
		}
	}

	if len(ranked) == 0 {
		return fallback
	}
	return ranked
}

// Probe HEADs every candidate in parallel and returns the reachable one with the
// lowest latency. If none answers, the first candidate is returned.
func (v *Validator) Probe(ctx context.Context, candidates []station.Station) (station.Station, []ProbeResult) {
	if len(candidates) == 0 {
		return station.Station{}, nil
	}

	results := make([]ProbeResult, len(candidates))

	var eg errgroup.Group
	for i, st := range candidates {
		eg.Go(func() error {
			results[i] = v.probe(ctx, st)
			return nil
		})
	}
	_ = eg.Wait()

	best := -1
	for i, r := range results {
		if !r.Reachable {
			continue
		}
		if best < 0 || r.Latency < results[best].Latency {
			best = i
		}
	}

	if best < 0 {
		log.Debug().Int("candidates", len(candidates)).Msg("No candidate answered the probe, using first")
		return candidates[0], results
	}
	return candidates[best], results
}

func (v *Validator) probe(ctx context.Context, st station.Station) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, v.probeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := v.client.R().SetContext(ctx).Head(st.StreamURL)
	latency := time.Since(start)

	result := ProbeResult{Station: st, Latency: latency}
	if resp != nil {
		result.Status = resp.StatusCode()
	}
	if result.Status == 0 && err != nil {
		result.Err = err
		return result
	}

	result.Reachable = reachableStatus(result.Status)
	if result.Reachable {
		metrics.ProbeLatency.Observe(latency.Seconds())
	}
	return result
}

func reachableStatus(code int) bool {
	switch {
	case code >= 200 && code < 300:
		return true
	case code == http.StatusMovedPermanently, code == http.StatusFound:
		return true
	}
	return false
}

// Select reranks and probes the candidates. It returns the chosen station and the full
// candidate list reordered so the chosen station comes first.
func (v *Validator) Select(ctx context.Context, genre string, candidates []station.Station) (station.Station, []station.Station) {
	if len(candidates) == 0 {
		return station.Station{}, nil
	}

	shortlist := v.Rerank(ctx, genre, candidates)
	chosen, _ := v.Probe(ctx, shortlist)

	ordered := make([]station.Station, 0, len(candidates))
	ordered = append(ordered, chosen)
	for _, st := range candidates {
		if st.ID != chosen.ID {
			ordered = append(ordered, st)
		}
	}
	return chosen, ordered
}

func head(list []station.Station, n int) []station.Station {
	if len(list) > n {
		list = list[:n]
	}
	out := make([]station.Station, len(list))
	copy(out, list)
	return out
}
