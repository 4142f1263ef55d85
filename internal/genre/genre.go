// Package genre maps free-text mood or activity input to a search genre.
package genre

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/xrash/smetrics"
	"golang.org/x/text/unicode/norm"
)

// Resolution categories that are not semantic clusters.
const (
	CategoryOverride = "OVERRIDE"
	CategoryDirect   = "DIRECT"
	CategoryFallback = "FALLBACK"

	DefaultGenre = "lofi"
)

const (
	minFallbackWordLen = 4
	minFuzzyWordLen    = 5
	fuzzyThreshold     = 0.92
)

// Result is the outcome of resolving user input to a genre.
type Result struct {
	Category       string
	Genre          string
	UseRandomOrder bool
	Reasoning      string
}

type category struct {
	name    string
	pattern *regexp.Regexp
	genres  []string
}

type alias struct {
	tag     string
	aliases []string
}

// Ordered: the first matching cluster wins.
var categories = []category{
	{
		name:    "AGGRESSION",
		pattern: regexp.MustCompile(`(злюсь|злой|бесит|ярост|агресс|дедлайн|фигач|пашу|ебаш|аврал|горит|angry|rage|furious|deadline|grind|hustle|crunch)`),
		genres:  []string{"metal", "hardstyle", "phonk", "drum and bass", "industrial", "hardcore"},
	},
	{
		name:    "ROMANCE",
		pattern: regexp.MustCompile(`(свидани|любов|романти|ужин|поцелу|\bdate\b|\blove\b|romantic|dinner|candle)`),
		genres:  []string{"rnb", "soul", "smooth jazz", "bossa nova", "blues"},
	},
	{
		name:    "SLEEP_RELAX",
		pattern: regexp.MustCompile(`(сплю|спать|засыпа|сон|медит|релакс|отдыха|ванн|sleep|relax|meditat|calm|bath|nap)`),
		genres:  []string{"ambient", "chillout", "piano", "new age", "downtempo"},
	},
	{
		name:    "WORK_FOCUS",
		pattern: regexp.MustCompile(`(код|программ|офис|работ|отчет|отчёт|эксель|письма|клиент|\bcode\b|coding|programming|office|\bwork\b|\bworking\b|excel|focus)`),
		genres:  []string{"lofi", "deep house", "lounge", "chillout", "minimal"},
	},
	{
		name:    "SPORT",
		pattern: regexp.MustCompile(`(спорт|качалк|трениров|бегаю|пробежк|фитнес|\bgym\b|workout|running|training|fitness|cardio)`),
		genres:  []string{"phonk", "edm", "drum and bass", "hip hop", "techno"},
	},
	{
		name:    "HOUSEHOLD",
		pattern: regexp.MustCompile(`(уборк|убираю|мыть|мою|посуд|готовлю|кухн|глажу|стирк|ремонт|быт|cleaning|cooking|chores|kitchen|dishes|laundry)`),
		genres:  []string{"disco", "funk", "pop", "house", "motown", "indie pop"},
	},
	{
		name:    "COMMUTE",
		pattern: regexp.MustCompile(`(еду|метро|автобус|пробк|маршрутк|пешком|гуляю|дорог|электричк|commute|traffic|\bbus\b|\bwalk|subway|\bdrive\b|driving)`),
		genres:  []string{"lofi", "indie", "alternative", "shoegaze", "synthwave"},
	},
	{
		name:    "PARTY",
		pattern: regexp.MustCompile(`(туса|тусовк|вечеринк|гости|бухаю|пью|танц|пятниц|party|drink|dance|\bclub\b|friends)`),
		genres:  []string{"house", "techno", "hip hop", "rnb", "dance", "edm"},
	},
	{
		name:    "SAD",
		pattern: regexp.MustCompile(`(грустн|плохо|депресс|дождь|одинок|тоск|печал|\bsad\b|\bcry|lonely|\brain\b|heartbreak|melanchol)`),
		genres:  []string{"indie folk", "sad piano", "acoustic", "slowcore", "post-rock"},
	},
	{
		name:    "GAMING",
		pattern: regexp.MustCompile(`(игра|играю|катк|рейд|стрим|gaming|\bgame\b|\bgames\b|playing|raid|stream)`),
		genres:  []string{"chiptune", "synthwave", "vgm", "electronic", "darksynth"},
	},
	{
		name:    "STUDY",
		pattern: regexp.MustCompile(`(урок|учусь|читаю|книг|экзамен|сесси|study|reading|homework|\bbook|library|exam)`),
		genres:  []string{"classical", "baroque", "piano", "soundtrack", "ambient", "light jazz"},
	},
}

// Ordered: the first matching alias wins.
var aliases = []alias{
	{tag: "phonk", aliases: []string{"phonk", "фонк"}},
	{tag: "hardstyle", aliases: []string{"hardstyle", "хардстайл"}},
	{tag: "metal", aliases: []string{"metal", "метал", "металл"}},
	{tag: "psytrance", aliases: []string{"psytrance", "псайтранс", "психотренс"}},
	{tag: "dubstep", aliases: []string{"dubstep", "дабстеп", "дубстеп"}},
	{tag: "liquid dnb", aliases: []string{"liquid dnb", "liquid drum and bass"}},
	{tag: "drum and bass", aliases: []string{"drum and bass", "drum-n-bass", "dnb", "днб", "драмнбейс"}},
	{tag: "post-rock", aliases: []string{"post-rock", "post rock", "построк"}},
	{tag: "deep house", aliases: []string{"deep house", "deep-house", "дип хаус"}},
	{tag: "progressive", aliases: []string{"progressive", "прогрессив"}},
	{tag: "vaporwave", aliases: []string{"vaporwave", "вейпорвейв"}},
	{tag: "synthwave", aliases: []string{"synthwave", "синтвейв", "retrowave", "ретровейв"}},
	{tag: "city pop", aliases: []string{"city pop", "citypop", "сити поп"}},
	{tag: "dark ambient", aliases: []string{"dark ambient", "darkambient", "дарк эмбиент"}},
	{tag: "ambient", aliases: []string{"ambient", "эмбиент"}},
	{tag: "k-pop", aliases: []string{"k-pop", "k pop", "kpop", "кей поп", "кейпоп"}},
	{tag: "j-pop", aliases: []string{"j-pop", "j pop", "jpop", "джей поп", "джейпоп"}},
	{tag: "lofi", aliases: []string{"lofi", "lo-fi", "lo fi", "лофай", "лоуфай"}},
	{tag: "hip hop", aliases: []string{"hip hop", "hip-hop", "hiphop", "хип хоп", "хип-хоп", "рэп"}},
	{tag: "techno", aliases: []string{"techno", "техно"}},
	{tag: "chiptune", aliases: []string{"chiptune", "чиптюн", "8-bit", "8bit"}},
	{tag: "jazz", aliases: []string{"jazz", "джаз"}},
	{tag: "indie", aliases: []string{"indie", "инди"}},
	{tag: "reggae", aliases: []string{"reggae", "регги"}},
	{tag: "blues", aliases: []string{"blues", "блюз"}},
	{tag: "soul", aliases: []string{"soul", "соул"}},
	{tag: "funk", aliases: []string{"funk", "фанк"}},
	{tag: "classical", aliases: []string{"classical", "классика"}},
	{tag: "bossa nova", aliases: []string{"bossa nova", "bossanova", "босса нова"}},
}

// Quick-pick labels whose canonical key differs from the lowercased label.
var quickPicks = map[string]string{
	"lo-fi":      "lofi",
	"hip-hop":    "hip hop",
	"dnb":        "drum and bass",
	"retro game": "chiptune",
}

// QuickPicks lists the labels offered as one-key genre shortcuts.
var QuickPicks = []string{
	"LO-FI", "PHONK", "METAL", "CHIPTUNE", "SYNTHWAVE", "AMBIENT", "TECHNO",
	"RETRO GAME", "JAZZ", "SOUL", "PIANO", "HIP-HOP", "DNB", "K-POP",
}

var fillerWords = map[string]bool{
	"doing": true, "trying": true, "want": true, "need": true, "just": true,
	"some": true, "something": true, "music": true, "listen": true, "play": true,
	"playlist": true, "with": true, "that": true, "this": true, "like": true,
	"very": true, "about": true, "really": true, "while": true, "going": true,
	"хочу": true, "нужно": true, "надо": true, "просто": true, "музыка": true,
	"музыку": true, "послушать": true, "включи": true, "делаю": true,
	"пытаюсь": true, "сейчас": true, "очень": true, "что-то": true,
	"что-нибудь": true, "какую": true, "нибудь": true, "чтобы": true,
}

// Resolver turns free text into a genre. It performs no I/O.
type Resolver struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver creates a Resolver. A nil rng uses a randomly seeded source.
func NewResolver(rng *rand.Rand) *Resolver {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Resolver{rng: rng}
}

// Key normalizes a genre or tag into the key used across the store and directory.
func Key(s string) string {
	return Normalize(s)
}

// Normalize lowercases, strips punctuation except hyphens, and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CanonicalTag maps a quick-pick label to its genre key.
func CanonicalTag(label string) string {
	key := Normalize(label)
	if canonical, ok := quickPicks[key]; ok {
		return canonical
	}
	return key
}

// Resolve maps input to a genre. A non-empty override is used as the genre as is.
func (r *Resolver) Resolve(input, override string) Result {
	if tag := CanonicalTag(override); tag != "" {
		return Result{Category: CategoryOverride, Genre: tag, UseRandomOrder: true}
	}

	normalized := Normalize(input)
	words := strings.Fields(normalized)

	if tag, ok := matchAlias(normalized, words); ok {
		return Result{Category: CategoryDirect, Genre: tag}
	}

	for _, c := range categories {
		if c.pattern.MatchString(normalized) {
			return Result{Category: c.name, Genre: r.pick(c.genres), UseRandomOrder: true}
		}
	}

	if tag, ok := matchAliasFuzzy(words); ok {
		return Result{Category: CategoryDirect, Genre: tag}
	}

	return Result{Category: CategoryFallback, Genre: longestWord(words)}
}

// CategoryGenres returns the genre list of a semantic category, or nil.
func CategoryGenres(name string) []string {
	for _, c := range categories {
		if c.name == name {
			out := make([]string, len(c.genres))
			copy(out, c.genres)
			return out
		}
	}
	return nil
}

func (r *Resolver) pick(items []string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return items[r.rng.IntN(len(items))]
}

func matchAlias(normalized string, words []string) (string, bool) {
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	for _, a := range aliases {
		for _, candidate := range a.aliases {
			if strings.ContainsAny(candidate, " -") {
				if strings.Contains(normalized, candidate) {
					return a.tag, true
				}
				continue
			}
			if wordSet[candidate] {
				return a.tag, true
			}
		}
	}
	return "", false
}

// Tolerates typos in single-word genre names ("phonkk", "technoo").
func matchAliasFuzzy(words []string) (string, bool) {
	bestScore := 0.0
	bestTag := ""
	for _, w := range words {
		if utf8.RuneCountInString(w) < minFuzzyWordLen {
			continue
		}
		for _, a := range aliases {
			for _, candidate := range a.aliases {
				if strings.ContainsAny(candidate, " -") || utf8.RuneCountInString(candidate) < minFuzzyWordLen {
					continue
				}
				score := smetrics.JaroWinkler(w, candidate, 0.7, 4)
				if score >= fuzzyThreshold && score > bestScore {
					bestScore = score
					bestTag = a.tag
				}
			}
		}
	}
	return bestTag, bestTag != ""
}

func longestWord(words []string) string {
	longest := ""
	longestLen := 0
	for _, w := range words {
		if fillerWords[w] {
			continue
		}
		n := utf8.RuneCountInString(w)
		if n >= minFallbackWordLen && n > longestLen {
			longest = w
			longestLen = n
		}
	}
	if longest == "" {
		return DefaultGenre
	}
	return longest
}
