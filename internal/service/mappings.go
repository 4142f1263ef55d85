package service

import (
	"slices"

	"github.com/glebovdev/moodradio/internal/genre"
)

// TagMapping describes how a genre key is queried and filtered.
type TagMapping struct {
	SearchTerms  []string
	StopWords    []string
	RequiredTags []string
}

var commonStopWords = []string{"news", "talk", "sport", "christian", "gospel", "religio"}

func stop(extra ...string) []string {
	return append(slices.Clone(commonStopWords), extra...)
}

var tagMappings = map[string]TagMapping{
	"lofi":          {SearchTerms: []string{"lofi", "lo-fi", "chillhop"}, StopWords: stop("country", "schlager")},
	"phonk":         {SearchTerms: []string{"phonk", "drift phonk"}, StopWords: stop("pop", "country")},
	"metal":         {SearchTerms: []string{"metal", "heavy metal"}, StopWords: stop("pop", "country"), RequiredTags: []string{"metal"}},
	"hardstyle":     {SearchTerms: []string{"hardstyle", "hardcore"}, StopWords: stop("punk")},
	"drum and bass": {SearchTerms: []string{"drum and bass", "dnb"}, StopWords: stop()},
	"liquid dnb":    {SearchTerms: []string{"liquid dnb", "liquid funk"}, StopWords: stop()},
	"hip hop":       {SearchTerms: []string{"hip hop", "hiphop", "rap"}, StopWords: stop()},
	"synthwave":     {SearchTerms: []string{"synthwave", "retrowave", "outrun"}, StopWords: stop()},
	"chiptune":      {SearchTerms: []string{"chiptune", "8bit", "video game music"}, StopWords: stop()},
	"jazz":          {SearchTerms: []string{"jazz", "smooth jazz"}, StopWords: stop(), RequiredTags: []string{"jazz"}},
	"classical":     {SearchTerms: []string{"classical", "baroque"}, StopWords: stop("pop")},
	"ambient":       {SearchTerms: []string{"ambient", "chillout"}, StopWords: stop()},
	"techno":        {SearchTerms: []string{"techno", "minimal techno"}, StopWords: stop(), RequiredTags: []string{"techno"}},
	"disco":         {SearchTerms: []string{"disco", "nu disco", "italo disco"}, StopWords: stop(), RequiredTags: []string{"disco"}},
	"funk":          {SearchTerms: []string{"funk"}, StopWords: stop(), RequiredTags: []string{"funk"}},
	"house":         {SearchTerms: []string{"house", "deep house"}, StopWords: stop(), RequiredTags: []string{"house"}},
	"deep house":    {SearchTerms: []string{"deep house"}, StopWords: stop(), RequiredTags: []string{"house"}},
	"pop":           {SearchTerms: []string{"pop", "top 40"}, StopWords: stop()},
	"motown":        {SearchTerms: []string{"motown", "oldies"}, StopWords: stop()},
	"indie pop":     {SearchTerms: []string{"indie pop", "indie"}, StopWords: stop()},
	"k-pop":         {SearchTerms: []string{"k-pop", "kpop"}, StopWords: stop()},
	"piano":         {SearchTerms: []string{"piano", "solo piano"}, StopWords: stop()},
	"soul":          {SearchTerms: []string{"soul", "neo soul"}, StopWords: stop()},
	"rnb":           {SearchTerms: []string{"rnb", "r&b"}, StopWords: stop()},
}

var fallbackGenres = map[string]string{
	"slowcore":     "ambient",
	"night drive":  "synthwave",
	"sad piano":    "piano",
	"indie folk":   "folk",
	"light jazz":   "jazz",
	"smooth jazz":  "jazz",
	"bossa nova":   "jazz",
	"soft house":   "house",
	"darksynth":    "synthwave",
	"vgm":          "chiptune",
	"retro game":   "chiptune",
	"new age":      "ambient",
	"dark ambient": "ambient",
	"liquid dnb":   "drum and bass",
	"shoegaze":     "indie",
	"post-rock":    "rock",
	"city pop":     "j-pop",
	"downtempo":    "chillout",
	"lounge":       "chillout",
	"minimal":      "techno",
	"vaporwave":    "synthwave",
}

// DefaultDenylist holds directory IDs of streams that are listed as healthy but
// never decode in the audio runtime. Config can extend it.
var DefaultDenylist = map[string]bool{}

// MappingFor returns the static mapping for a genre key.
func MappingFor(key string) (TagMapping, bool) {
	m, ok := tagMappings[genre.Key(key)]
	return m, ok
}

// SearchTerms returns the ordered directory search terms for a genre key.
func SearchTerms(key string) []string {
	key = genre.Key(key)
	if m, ok := tagMappings[key]; ok && len(m.SearchTerms) > 0 {
		return slices.Clone(m.SearchTerms)
	}
	return []string{key}
}

// FallbackGenre returns the genre to retry with when key yields nothing, or "".
func FallbackGenre(key string) string {
	return fallbackGenres[genre.Key(key)]
}
