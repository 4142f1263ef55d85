// Package api provides the HTTP clients for the station directory and the LLM service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/glebovdev/moodradio/internal/metrics"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	searchPath           = "/json/stations/search"
	DefaultMirrorTimeout = 2 * time.Second
	DefaultPageSize      = 30
	userAgent            = "moodradio/1"
)

// DefaultMirrors are the directory hosts in priority order.
var DefaultMirrors = []string{
	"https://de1.api.radio-browser.info",
	"https://nl1.api.radio-browser.info",
	"https://at1.api.radio-browser.info",
}

var (
	// ErrDirectoryUnreachable is returned when every mirror is down.
	ErrDirectoryUnreachable = errors.New("station directory unreachable")
	// ErrDirectoryRejected is returned when a live mirror answers a query with a 4xx.
	ErrDirectoryRejected = errors.New("station directory rejected query")
)

// SearchQuery describes one directory search by tag.
type SearchQuery struct {
	Tag         string
	Limit       int
	RandomOrder bool
}

// DirectoryClient queries the federated station directory with mirror failover.
type DirectoryClient struct {
	client  *resty.Client
	mirrors []string
	timeout time.Duration

	mu        sync.Mutex
	preferred int
}

// NewDirectoryClient creates a client over the given mirrors. Empty mirrors use DefaultMirrors.
func NewDirectoryClient(mirrors []string, timeout time.Duration) *DirectoryClient {
	if len(mirrors) == 0 {
		mirrors = DefaultMirrors
	}
	if timeout <= 0 {
		timeout = DefaultMirrorTimeout
	}

	return &DirectoryClient{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json"),
		mirrors: append([]string(nil), mirrors...),
		timeout: timeout,
	}
}

// Search runs the query against the mirrors, starting with the one that answered last.
// Transport errors, timeouts and 5xx responses move on to the next mirror. Any other
// response is the answer, so a 4xx from a live mirror is returned as
// ErrDirectoryRejected without trying the rest.
func (c *DirectoryClient) Search(ctx context.Context, q SearchQuery) ([]station.DirectoryRecord, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}

	params := map[string]string{
		"tag":         q.Tag,
		"limit":       strconv.Itoa(q.Limit),
		"hidebroken":  "true",
		"is_https":    "true",
		"lastcheckok": "1",
		"order":       "votes",
		"reverse":     "true",
	}
	if q.RandomOrder {
		params["order"] = "random"
	}

	c.mu.Lock()
	start := c.preferred
	c.mu.Unlock()

	var lastErr error
	for i := range c.mirrors {
		idx := (start + i) % len(c.mirrors)
		mirror := c.mirrors[idx]

		records, down, err := c.searchMirror(ctx, mirror, params)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if down {
			log.Debug().Err(err).Str("mirror", mirror).Str("tag", q.Tag).Msg("Directory mirror down, trying next")
			lastErr = err
			continue
		}

		c.mu.Lock()
		c.preferred = idx
		c.mu.Unlock()

		if err != nil {
			return nil, err
		}
		return records, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrDirectoryUnreachable, lastErr)
}

// searchMirror reports down=true when the mirror should be skipped.
func (c *DirectoryClient) searchMirror(ctx context.Context, mirror string, params map[string]string) ([]station.DirectoryRecord, bool, error) {
	host := mirrorHost(mirror)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.R().
		SetContext(reqCtx).
		SetQueryParams(params).
		Get(mirror + searchPath)
	if err != nil {
		metrics.DirectoryRequests.WithLabelValues(host, "transport_error").Inc()
		return nil, true, fmt.Errorf("failed to reach %s: %w", host, err)
	}

	if resp.StatusCode() >= 500 {
		metrics.DirectoryRequests.WithLabelValues(host, "server_error").Inc()
		return nil, true, fmt.Errorf("mirror %s returned status %d", host, resp.StatusCode())
	}

	if !resp.IsSuccess() {
		metrics.DirectoryRequests.WithLabelValues(host, "client_error").Inc()
		return nil, false, fmt.Errorf("%w: %s returned status %d", ErrDirectoryRejected, host, resp.StatusCode())
	}

	metrics.DirectoryRequests.WithLabelValues(host, "ok").Inc()

	var records []station.DirectoryRecord
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, false, fmt.Errorf("failed to parse directory response: %w", err)
	}
	return records, false, nil
}

func mirrorHost(mirror string) string {
	if u, err := url.Parse(mirror); err == nil && u.Host != "" {
		return u.Host
	}
	return mirror
}
