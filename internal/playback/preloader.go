package playback

import (
	"context"
	"sync"

	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/service"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/rs/zerolog/log"
)

// Preloader fetches a random-order candidate pool for the active genre in the
// background so the next skip or failure does not wait on the directory.
type Preloader struct {
	dir Directory

	mu      sync.Mutex
	genre   string
	gen     uint64
	pending bool
	pool    []station.Station
	cancel  context.CancelFunc
}

func NewPreloader(dir Directory) *Preloader {
	return &Preloader{dir: dir}
}

// Warm starts a background fetch unless one is pending or a pool is already
// cached for the same genre and generation.
func (p *Preloader) Warm(ctx context.Context, g string, gen uint64) {
	key := genre.Key(g)

	p.mu.Lock()
	if p.genre == key && p.gen == gen && (p.pending || len(p.pool) > 0) {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	p.genre = key
	p.gen = gen
	p.pending = true
	p.pool = nil
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer cancel()

		pool, err := p.dir.Search(ctx, key, service.SearchOptions{RandomOrder: true})

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.genre != key || p.gen != gen {
			return
		}
		p.pending = false
		p.cancel = nil
		if err != nil {
			log.Debug().Err(err).Str("genre", key).Msg("Preload failed")
			return
		}
		p.pool = pool
		log.Debug().Str("genre", key).Int("count", len(pool)).Msg("Preloaded candidates")
	}()
}

// Take returns and clears the cached pool if it belongs to genre and generation.
func (p *Preloader) Take(g string, gen uint64) []station.Station {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.genre != genre.Key(g) || p.gen != gen {
		return nil
	}
	pool := p.pool
	p.pool = nil
	return pool
}

// Reset cancels any in-flight fetch and drops the cached pool.
func (p *Preloader) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.genre = ""
	p.gen = 0
	p.pending = false
	p.pool = nil
}
