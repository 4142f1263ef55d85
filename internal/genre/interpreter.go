package genre

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	DefaultClassifyTimeout = 8 * time.Second
	minClassifyRunes       = 12
)

var fallbackReasoning = map[string]string{
	"en": "Matched to your vibe",
	"ru": "Подобрано под настроение",
}

// MoodClassifier maps free text to a single genre using an external service.
type MoodClassifier interface {
	ClassifyMood(ctx context.Context, text, lang string) (genre, reasoning string, err error)
}

// Interpreter resolves input locally and consults a MoodClassifier
// when the local resolver only reached its fallback.
type Interpreter struct {
	resolver   *Resolver
	classifier MoodClassifier
	lang       string
	timeout    time.Duration
}

// NewInterpreter creates an Interpreter. classifier may be nil.
func NewInterpreter(resolver *Resolver, classifier MoodClassifier, lang string) *Interpreter {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	if _, ok := fallbackReasoning[lang]; !ok {
		lang = "en"
	}
	return &Interpreter{
		resolver:   resolver,
		classifier: classifier,
		lang:       lang,
		timeout:    DefaultClassifyTimeout,
	}
}

// SetTimeout overrides the classifier call timeout.
func (i *Interpreter) SetTimeout(d time.Duration) {
	if d > 0 {
		i.timeout = d
	}
}

// Interpret resolves input and override into a genre result.
func (i *Interpreter) Interpret(ctx context.Context, input, override string) Result {
	res := i.resolver.Resolve(input, override)
	if res.Category != CategoryFallback || i.classifier == nil {
		return res
	}
	if utf8.RuneCountInString(strings.TrimSpace(input)) < minClassifyRunes {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	genre, reasoning, err := i.classifier.ClassifyMood(ctx, input, i.lang)
	if err != nil {
		log.Debug().Err(err).Str("input", input).Msg("Mood classifier unavailable, keeping fallback genre")
		res.Reasoning = fallbackReasoning[i.lang]
		return res
	}

	genre = SanitizeGenre(genre)
	if genre == "" {
		res.Reasoning = fallbackReasoning[i.lang]
		return res
	}

	log.Debug().Str("input", input).Str("genre", genre).Msg("Mood classified")
	res.Genre = genre
	res.Reasoning = strings.TrimSpace(reasoning)
	if res.Reasoning == "" {
		res.Reasoning = fallbackReasoning[i.lang]
	}
	return res
}

// SanitizeGenre reduces a classifier answer to one lowercase alphanumeric token.
func SanitizeGenre(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range fields[0] {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
