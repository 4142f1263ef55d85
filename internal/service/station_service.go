// Package service turns genre keys into ranked, playable directory candidates.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/glebovdev/moodradio/internal/api"
	"github.com/glebovdev/moodradio/internal/cache"
	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const imageLoadTimeout = 15 * time.Second

var (
	// ErrNoStationsForTag is matched by every *NoStationsError.
	ErrNoStationsForTag = errors.New("no stations for tag")
	// ErrFaviconUnavailable is returned for favicons that failed to load recently.
	ErrFaviconUnavailable = errors.New("favicon unavailable")
)

// NoStationsError reports that neither the tag nor its fallback produced a candidate.
type NoStationsError struct {
	Tag      string
	Fallback string
}

func (e *NoStationsError) Error() string {
	if e.Fallback != "" {
		return fmt.Sprintf("no stations for tag %q (fallback %q also empty)", e.Tag, e.Fallback)
	}
	return fmt.Sprintf("no stations for tag %q", e.Tag)
}

func (e *NoStationsError) Is(target error) bool {
	return target == ErrNoStationsForTag
}

// Directory is the wire-level station search.
type Directory interface {
	Search(ctx context.Context, q api.SearchQuery) ([]station.DirectoryRecord, error)
}

// LearnedWords is where stop words learned from rejected stations live.
type LearnedWords interface {
	StopWords(genre string) []string
	PutStopWords(genre string, words []string)
	Rejected(genre string) []station.Station
}

// BlacklistAnalyzer extracts stop words from stations the listener rejected.
type BlacklistAnalyzer interface {
	AnalyzeBlacklist(ctx context.Context, genre string, rejected []station.Station) ([]string, error)
}

// SearchOptions tunes one Search call.
type SearchOptions struct {
	RandomOrder bool
	Limit       int
}

// StationService resolves genres to candidates and keeps the last candidate list.
type StationService struct {
	directory  Directory
	learned    LearnedWords
	analyzer   BlacklistAnalyzer
	denylist   map[string]bool
	imageCache *cache.Cache
	imageHTTP  *resty.Client
	pageSize   int

	mu       sync.RWMutex
	stations []station.Station
}

// NewStationService creates a StationService. learned and analyzer may be nil.
func NewStationService(directory Directory, learned LearnedWords, analyzer BlacklistAnalyzer) *StationService {
	imageCache, err := cache.NewCache()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize image cache, favicons will not be cached")
	}

	if imageCache != nil {
		go func() {
			if _, err := imageCache.CleanExpired(); err != nil {
				log.Debug().Err(err).Msg("Failed to clean expired cache")
			}
		}()
	}

	denylist := make(map[string]bool, len(DefaultDenylist))
	for id := range DefaultDenylist {
		denylist[id] = true
	}

	return &StationService{
		directory:  directory,
		learned:    learned,
		analyzer:   analyzer,
		denylist:   denylist,
		imageCache: imageCache,
		imageHTTP:  resty.New().SetTimeout(imageLoadTimeout),
	}
}

// AddDenylist extends the static denylist with extra station IDs.
func (s *StationService) AddDenylist(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			s.denylist[id] = true
		}
	}
}

// SetPageSize sets the per-term result limit used when a search does not set one.
func (s *StationService) SetPageSize(n int) {
	s.mu.Lock()
	s.pageSize = n
	s.mu.Unlock()
}

// Search returns the filtered, mp3-first candidates for the genre. If the genre yields
// nothing it is retried once with its fallback genre.
func (s *StationService) Search(ctx context.Context, g string, opts SearchOptions) ([]station.Station, error) {
	key := genre.Key(g)
	if opts.Limit <= 0 {
		s.mu.RLock()
		opts.Limit = s.pageSize
		s.mu.RUnlock()
	}

	stations, err := s.searchKey(ctx, key, opts)
	if err != nil {
		return nil, err
	}

	var fallback string
	if len(stations) == 0 {
		fallback = FallbackGenre(key)
		if fallback == "" {
			return nil, &NoStationsError{Tag: key}
		}

		log.Debug().Str("genre", key).Str("fallback", fallback).Msg("No stations for genre, trying fallback")
		stations, err = s.searchKey(ctx, fallback, opts)
		if err != nil {
			return nil, err
		}
		if len(stations) == 0 {
			return nil, &NoStationsError{Tag: key, Fallback: fallback}
		}
	}

	s.mu.Lock()
	s.stations = stations
	s.mu.Unlock()

	log.Debug().Str("genre", key).Str("fallback", fallback).Int("count", len(stations)).Msg("Directory search completed")
	return stations, nil
}

func (s *StationService) searchKey(ctx context.Context, key string, opts SearchOptions) ([]station.Station, error) {
	terms := SearchTerms(key)
	mapping, mapped := MappingFor(key)

	stopWords := slices.Clone(mapping.StopWords)
	if s.learned != nil {
		stopWords = append(stopWords, s.learned.StopWords(key)...)
	}

	results := make([][]station.DirectoryRecord, len(terms))
	errs := make([]error, len(terms))

	var eg errgroup.Group
	for i, term := range terms {
		eg.Go(func() error {
			results[i], errs[i] = s.directory.Search(ctx, api.SearchQuery{
				Tag:         term,
				Limit:       opts.Limit,
				RandomOrder: opts.RandomOrder,
			})
			return nil
		})
	}
	_ = eg.Wait()

	var failed int
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		// A rejected term is an answer with no stations, not an outage.
		if errors.Is(err, api.ErrDirectoryRejected) {
			log.Debug().Err(err).Str("term", terms[i]).Msg("Search term rejected")
			results[i] = nil
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}
		log.Debug().Err(err).Str("term", terms[i]).Msg("Search term failed")
	}
	if failed == len(terms) {
		return nil, fmt.Errorf("failed to search %q: %w", key, firstErr)
	}

	s.mu.RLock()
	denylist := maps.Clone(s.denylist)
	s.mu.RUnlock()

	var accepted []station.Station
	for _, records := range results {
		for _, rec := range records {
			st, err := station.FromDirectory(rec, denylist)
			if err != nil {
				continue
			}
			if !relevant(st, mapping, mapped, stopWords) {
				continue
			}
			accepted = append(accepted, st)
		}
	}

	slices.SortStableFunc(accepted, func(a, b station.Station) int {
		return mp3Rank(a) - mp3Rank(b)
	})
	return accepted, nil
}

func mp3Rank(st station.Station) int {
	if st.Format() == station.FormatMP3 {
		return 0
	}
	return 1
}

// relevant applies stop words and, for mapped genres, required tags.
func relevant(st station.Station, mapping TagMapping, mapped bool, stopWords []string) bool {
	if !mapped && len(stopWords) == 0 {
		return true
	}

	blob := st.TextBlob()
	for _, w := range stopWords {
		if w != "" && strings.Contains(blob, w) {
			return false
		}
	}

	if len(mapping.RequiredTags) == 0 {
		return true
	}
	for _, tag := range mapping.RequiredTags {
		if strings.Contains(blob, tag) {
			return true
		}
	}
	return false
}

// LearnStopWords asks the analyzer for stop words shared by the genre's rejected
// stations and persists the ones that would not block the genre itself.
func (s *StationService) LearnStopWords(ctx context.Context, g string) ([]string, error) {
	if s.learned == nil || s.analyzer == nil {
		return nil, nil
	}

	key := genre.Key(g)
	rejected := s.learned.Rejected(key)
	if len(rejected) == 0 {
		return nil, nil
	}

	words, err := s.analyzer.AnalyzeBlacklist(ctx, key, rejected)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze rejected stations: %w", err)
	}

	terms := SearchTerms(key)
	safe := make([]string, 0, len(words))
	for _, w := range words {
		w = genre.Normalize(w)
		if w == "" || blocksGenre(w, key, terms) {
			continue
		}
		safe = append(safe, w)
	}

	if len(safe) > 0 {
		s.learned.PutStopWords(key, safe)
		log.Debug().Str("genre", key).Strs("words", safe).Msg("Learned stop words")
	}
	return safe, nil
}

func blocksGenre(word, key string, terms []string) bool {
	if strings.Contains(key, word) {
		return true
	}
	for _, t := range terms {
		if strings.Contains(t, word) {
			return true
		}
	}
	return false
}

// GetCachedStations returns a copy of the last candidate list.
func (s *StationService) GetCachedStations() []station.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]station.Station, len(s.stations))
	copy(result, s.stations)
	return result
}

// LoadImage fetches a station favicon, using the disk cache when possible.
// A favicon that failed recently is not fetched again until its miss expires.
func (s *StationService) LoadImage(url string) (image.Image, error) {
	if s.imageCache != nil {
		if img := s.imageCache.GetImage(url); img != nil {
			log.Debug().Str("url", url).Msg("Image loaded from cache")
			return img, nil
		}
		if s.imageCache.IsMissing(url) {
			return nil, ErrFaviconUnavailable
		}
	}

	img, err := s.fetchImage(url)
	if err != nil {
		if s.imageCache != nil {
			if mErr := s.imageCache.MarkMissing(url); mErr != nil {
				log.Debug().Err(mErr).Str("url", url).Msg("Failed to record favicon miss")
			}
		}
		return nil, err
	}

	if s.imageCache != nil {
		go func() {
			if err := s.imageCache.SaveImage(url, img); err != nil {
				log.Debug().Err(err).Str("url", url).Msg("Failed to cache image")
			} else {
				log.Debug().Str("url", url).Msg("Image cached")
			}
		}()
	}

	return img, nil
}

func (s *StationService) fetchImage(url string) (image.Image, error) {
	resp, err := s.imageHTTP.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: status %d", ErrFaviconUnavailable, resp.StatusCode())
	}

	img, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
