package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebovdev/moodradio/internal/station"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultLLMBaseURL = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 8 * time.Second

	completionsPath = "/chat/completions"
)

var (
	ErrLLMUnavailable = errors.New("llm service unavailable")
	ErrNoJSONObject   = errors.New("no json object in llm reply")
)

// LLMClient talks to an OpenAI-compatible chat completions endpoint.
// Every call returns ErrLLMUnavailable without network I/O when no API key is set.
type LLMClient struct {
	client *resty.Client
	apiKey string
	model  string
}

func NewLLMClient(baseURL, apiKey, model string, timeout time.Duration) *LLMClient {
	if baseURL == "" {
		baseURL = DefaultLLMBaseURL
	}
	if model == "" {
		model = DefaultLLMModel
	}
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}

	return &LLMClient{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetAuthToken(apiKey),
		apiKey: apiKey,
		model:  model,
	}
}

// Available reports whether the client has credentials.
func (c *LLMClient) Available() bool {
	return c != nil && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// completeJSON sends one prompt and decodes the first JSON object of the reply into v.
func (c *LLMClient) completeJSON(ctx context.Context, system, user string, maxTokens int, v any) error {
	if !c.Available() {
		return ErrLLMUnavailable
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: 0.3,
			MaxTokens:   maxTokens,
		}).
		Post(completionsPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: status %d", ErrLLMUnavailable, resp.StatusCode())
	}

	var completion chatResponse
	if err := json.Unmarshal(resp.Body(), &completion); err != nil {
		return fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return fmt.Errorf("%w: empty completion", ErrNoJSONObject)
	}

	obj, ok := ExtractJSONObject(completion.Choices[0].Message.Content)
	if !ok {
		return ErrNoJSONObject
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("failed to parse llm json: %w", err)
	}
	return nil
}

// Rerank asks for the IDs of the most relevant stations for the genre, best first.
func (c *LLMClient) Rerank(ctx context.Context, genre string, candidates []station.Station, limit int) ([]string, error) {
	var b strings.Builder
	for _, st := range candidates {
		fmt.Fprintf(&b, "- id=%s name=%q tags=%q\n", st.ID, st.Name, st.DisplayTags(0))
	}

	prompt := fmt.Sprintf(`Pick the %d radio stations that best fit the genre %q.
Exclude talk, news, sports and generic pop or top-40 stations unless the genre asks for them.

Stations:
%s
Reply with JSON only: {"ids": ["id1", "id2"]}`, limit, genre, b.String())

	var reply struct {
		IDs []string `json:"ids"`
	}
	if err := c.completeJSON(ctx, "You rank internet radio stations by genre relevance. Reply with JSON only.", prompt, 300, &reply); err != nil {
		return nil, err
	}
	return reply.IDs, nil
}

// ClassifyMood maps free text to one genre and a short explanation in lang.
func (c *LLMClient) ClassifyMood(ctx context.Context, text, lang string) (string, string, error) {
	language := "English"
	if lang == "ru" {
		language = "Russian"
	}

	prompt := fmt.Sprintf(`The listener said: %q
Choose ONE music genre that exists as a tag in internet radio directories and fits their mood or activity.
Reply with JSON only: {"genre": "single-word-genre", "reasoning": "one short sentence in %s"}`, text, language)

	var reply struct {
		Genre     string `json:"genre"`
		Reasoning string `json:"reasoning"`
	}
	if err := c.completeJSON(ctx, "You are a radio DJ who maps moods to genres. Reply with JSON only.", prompt, 150, &reply); err != nil {
		return "", "", err
	}
	return reply.Genre, reply.Reasoning, nil
}

// AnalyzeBlacklist asks for stop words shared by stations the listener rejected for the genre.
func (c *LLMClient) AnalyzeBlacklist(ctx context.Context, genre string, rejected []station.Station) ([]string, error) {
	if len(rejected) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for _, st := range rejected {
		tags := st.DisplayTags(0)
		if tags == "" {
			tags = "none"
		}
		fmt.Fprintf(&b, "- %q (tags: %s)\n", st.Name, tags)
	}

	prompt := fmt.Sprintf(`These radio stations were rejected while listening to %q:
%s
Find the common words in their names and tags that make them a poor fit for %q.
Reply with JSON only: {"stopWords": ["word1", "word2"]}`, genre, b.String(), genre)

	var reply struct {
		StopWords []string `json:"stopWords"`
	}
	if err := c.completeJSON(ctx, "You analyze rejected radio stations and return stop words as JSON only.", prompt, 200, &reply); err != nil {
		return nil, err
	}

	words := make([]string, 0, len(reply.StopWords))
	for _, w := range reply.StopWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && !strings.EqualFold(w, genre) {
			words = append(words, w)
		}
	}
	return words, nil
}

// ExtractJSONObject returns the first balanced {...} block in s.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
