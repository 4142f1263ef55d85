// Package station defines the data structures for directory radio stations.
package station

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Audio formats guessed from a stream URL.
const (
	FormatMP3   = "mp3"
	FormatAAC   = "aac"
	FormatOGG   = "ogg"
	FormatOther = "other"
)

var (
	ErrMissingURL  = errors.New("station has no stream url")
	ErrNotHTTPS    = errors.New("stream url is not https")
	ErrPlaylistURL = errors.New("stream url is a playlist file")
	ErrDenylisted  = errors.New("station is denylisted")
	ErrMissingID   = errors.New("station has no id")
)

var playlistExtensions = []string{".m3u", ".m3u8", ".pls"}

// Station is a playable live stream resolved from the directory.
// Instances are never mutated after construction.
type Station struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	StreamURL string   `json:"stream_url" yaml:"stream_url"`
	Tags      []string `json:"tags"`
	Favicon   string   `json:"favicon,omitempty" yaml:"favicon,omitempty"`
	Country   string   `json:"country,omitempty" yaml:"country,omitempty"`
	Codec     string   `json:"codec,omitempty" yaml:"codec,omitempty"`
}

// DirectoryRecord is a raw station record as returned by the station directory.
type DirectoryRecord struct {
	StationUUID string `json:"stationuuid"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	URLResolved string `json:"url_resolved"`
	Tags        string `json:"tags"` // Comma-separated
	Favicon     string `json:"favicon"`
	Country     string `json:"country"`
	Codec       string `json:"codec"`
	SSLError    int    `json:"ssl_error"` // Non-zero when the host failed its last TLS check
}

// FromDirectory normalizes a raw directory record into a Station.
// The resolved URL is preferred, bare http is upgraded to https unless the
// directory reports the host has no working TLS, and anything that still is
// not a direct https stream is rejected.
func FromDirectory(rec DirectoryRecord, denylist map[string]bool) (Station, error) {
	if rec.StationUUID == "" {
		return Station{}, ErrMissingID
	}
	if denylist[rec.StationUUID] {
		return Station{}, fmt.Errorf("%w: %s", ErrDenylisted, rec.StationUUID)
	}

	raw := strings.TrimSpace(rec.URLResolved)
	if raw == "" {
		raw = strings.TrimSpace(rec.URL)
	}

	if rec.SSLError != 0 && hasScheme(raw, "http://") {
		return Station{}, fmt.Errorf("%w: %s has no working tls", ErrNotHTTPS, raw)
	}

	streamURL, err := NormalizeStreamURL(raw)
	if err != nil {
		return Station{}, err
	}

	return Station{
		ID:        rec.StationUUID,
		Name:      strings.TrimSpace(rec.Name),
		StreamURL: streamURL,
		Tags:      ParseTags(rec.Tags),
		Favicon:   strings.TrimSpace(rec.Favicon),
		Country:   strings.TrimSpace(rec.Country),
		Codec:     strings.ToLower(strings.TrimSpace(rec.Codec)),
	}, nil
}

// NormalizeStreamURL enforces the https-only, direct-stream invariant.
func NormalizeStreamURL(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissingURL
	}

	if hasScheme(raw, "http://") {
		raw = "https://" + raw[len("http://"):]
	}

	if !hasScheme(raw, "https://") {
		return "", fmt.Errorf("%w: %s", ErrNotHTTPS, raw)
	}
	raw = "https://" + raw[len("https://"):]

	if IsPlaylistURL(raw) {
		return "", fmt.Errorf("%w: %s", ErrPlaylistURL, raw)
	}

	return raw, nil
}

func hasScheme(raw, scheme string) bool {
	return len(raw) >= len(scheme) && strings.EqualFold(raw[:len(scheme)], scheme)
}

// IsPlaylistURL reports whether the URL points at a playlist file rather than a stream.
func IsPlaylistURL(raw string) bool {
	path := strings.ToLower(raw)
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = strings.ToLower(u.Path)
	}
	for _, ext := range playlistExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// ParseTags splits the directory's comma-separated tag string into lowercase tags.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// IsPlayable reports whether the station satisfies the stream invariant.
func (s Station) IsPlayable() bool {
	return s.ID != "" &&
		strings.HasPrefix(s.StreamURL, "https://") &&
		!IsPlaylistURL(s.StreamURL)
}

// Format guesses the audio format from the stream URL, falling back to the codec.
func (s Station) Format() string {
	return GuessFormat(s.StreamURL, s.Codec)
}

// GuessFormat returns mp3, aac, ogg or other by substring match on the URL.
func GuessFormat(streamURL, codec string) string {
	u := strings.ToLower(streamURL)
	switch {
	case strings.Contains(u, "mp3") || strings.Contains(u, "mpeg"):
		return FormatMP3
	case strings.Contains(u, "aac"):
		return FormatAAC
	case strings.Contains(u, ".ogg") || strings.Contains(u, "vorbis") || strings.Contains(u, ".opus"):
		return FormatOGG
	}

	switch strings.ToLower(codec) {
	case "mp3":
		return FormatMP3
	case "aac", "aac+", "he-aac":
		return FormatAAC
	case "ogg", "vorbis", "opus":
		return FormatOGG
	}
	return FormatOther
}

// TextBlob returns the lowercase name and tags joined for relevance matching.
func (s Station) TextBlob() string {
	return strings.ToLower(strings.Join(s.Tags, " ") + " " + s.Name)
}

// DisplayTags returns the tags joined for display, limited to max entries.
func (s Station) DisplayTags(max int) string {
	tags := s.Tags
	if max > 0 && len(tags) > max {
		tags = tags[:max]
	}
	return strings.Join(tags, ", ")
}

// Dedupe removes stations with a repeated ID, keeping the first occurrence.
func Dedupe(stations []Station) []Station {
	seen := make(map[string]bool, len(stations))
	result := make([]Station, 0, len(stations))
	for _, s := range stations {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		result = append(result, s)
	}
	return result
}
