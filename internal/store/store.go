// Package store persists per-genre station tiers and the global blacklist.
//
// All writes are best-effort: persistence failures are logged and swallowed,
// and corrupt values are discarded and treated as empty.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/metrics"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/rs/zerolog/log"
)

const (
	MaxRecent   = 5
	MaxRejected = 20

	keyRecent    = "cache:"
	keyVerified  = "verified:"
	keyBlacklist = "blacklist"
	keyRejected  = "rejected:"
	keyStopWords = "stopwords:"

	opTimeout = 2 * time.Second
)

var errBadShape = errors.New("stored station failed shape validation")

// Store is the Recent / Verified / Blacklist persistence layer.
type Store struct {
	kv KV
	mu sync.Mutex
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Close releases the underlying backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// Recent returns the most recently played stations for the genre, newest first.
func (s *Store) Recent(g string) []station.Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readStations(keyRecent + genre.Key(g))
}

// PutRecent moves st to the front of the genre's recent list, capped at MaxRecent.
func (s *Store) PutRecent(g string, st station.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyRecent + genre.Key(g)
	list := promote(s.readStations(key), st)
	if len(list) > MaxRecent {
		list = list[:MaxRecent]
	}
	s.writeJSON(key, list)
}

// Verified returns the genre's golden list, most recently verified first.
func (s *Store) Verified(g string) []station.Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readStations(keyVerified + genre.Key(g))
}

// PutVerified moves st to the front of the genre's verified list.
func (s *Store) PutVerified(g string, st station.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyVerified + genre.Key(g)
	s.writeJSON(key, promote(s.readStations(key), st))
	metrics.VerifiedPromotions.Inc()
}

// RemoveVerified drops the station with the given stream URL from the verified list.
func (s *Store) RemoveVerified(g, streamURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyVerified + genre.Key(g)
	list := s.readStations(key)
	filtered := slices.DeleteFunc(list, func(x station.Station) bool {
		return x.StreamURL == streamURL
	})
	s.writeJSON(key, filtered)
}

// IsBlacklisted reports whether the station ID is blacklisted.
func (s *Store) IsBlacklisted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.readIDs(), id)
}

// Blacklist adds id to the blacklist. Adding an existing ID is a no-op.
// It reports whether the ID was newly added.
func (s *Store) Blacklist(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.readIDs()
	if slices.Contains(ids, id) {
		return false
	}
	s.writeJSON(keyBlacklist, append(ids, id))
	metrics.BlacklistAdditions.Inc()
	return true
}

// Unblacklist removes id, used when a blacklisted station later plays fine.
func (s *Store) Unblacklist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.readIDs()
	if !slices.Contains(ids, id) {
		return false
	}
	s.writeJSON(keyBlacklist, slices.DeleteFunc(ids, func(x string) bool { return x == id }))
	return true
}

// BlacklistIDs returns every blacklisted station ID.
func (s *Store) BlacklistIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIDs()
}

// ClearBlacklist empties the blacklist.
func (s *Store) ClearBlacklist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delete(keyBlacklist)
}

// FilterBlacklisted returns the stations whose IDs are not blacklisted, in order.
func (s *Store) FilterBlacklisted(stations []station.Station) []station.Station {
	s.mu.Lock()
	ids := s.readIDs()
	s.mu.Unlock()

	if len(ids) == 0 {
		return stations
	}

	blocked := make(map[string]bool, len(ids))
	for _, id := range ids {
		blocked[id] = true
	}

	result := make([]station.Station, 0, len(stations))
	for _, st := range stations {
		if !blocked[st.ID] {
			result = append(result, st)
		}
	}
	return result
}

// Rejected returns the stations recently blacklisted while playing the genre.
func (s *Store) Rejected(g string) []station.Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readStations(keyRejected + genre.Key(g))
}

// PutRejected records st for later pattern analysis, capped at MaxRejected.
func (s *Store) PutRejected(g string, st station.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyRejected + genre.Key(g)
	list := promote(s.readStations(key), st)
	if len(list) > MaxRejected {
		list = list[:MaxRejected]
	}
	s.writeJSON(key, list)
}

// StopWords returns the learned stop words for the genre.
func (s *Store) StopWords(g string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var words []string
	if !s.readJSON(keyStopWords+genre.Key(g), &words) {
		return nil
	}
	return words
}

// PutStopWords merges words into the genre's learned stop words.
func (s *Store) PutStopWords(g string, words []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyStopWords + genre.Key(g)
	var existing []string
	s.readJSON(key, &existing)

	for _, w := range words {
		w = genre.Normalize(w)
		if w != "" && !slices.Contains(existing, w) {
			existing = append(existing, w)
		}
	}
	s.writeJSON(key, existing)
}

func promote(list []station.Station, st station.Station) []station.Station {
	result := make([]station.Station, 0, len(list)+1)
	result = append(result, st)
	for _, x := range list {
		if x.StreamURL != st.StreamURL {
			result = append(result, x)
		}
	}
	return result
}

func (s *Store) readStations(key string) []station.Station {
	var list []station.Station
	if !s.readJSON(key, &list) {
		return nil
	}
	for _, st := range list {
		if !st.IsPlayable() {
			log.Debug().Err(errBadShape).Str("key", key).Str("id", st.ID).Msg("Resetting corrupt store key")
			s.delete(key)
			return nil
		}
	}
	return list
}

func (s *Store) readIDs() []string {
	var ids []string
	if !s.readJSON(keyBlacklist, &ids) {
		return nil
	}
	return ids
}

func (s *Store) readJSON(key string, v any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Failed to read store key")
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Resetting unparsable store key")
		s.deleteWith(ctx, key)
		return false
	}
	return true
}

func (s *Store) writeJSON(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Failed to encode store value")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.kv.Set(ctx, key, data); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Failed to write store key")
	}
}

func (s *Store) delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	s.deleteWith(ctx, key)
}

func (s *Store) deleteWith(ctx context.Context, key string) {
	if err := s.kv.Delete(ctx, key); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Failed to delete store key")
	}
}
