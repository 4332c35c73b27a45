// Package generator turns a topic into a structured article using an
// OpenAI-compatible chat completion endpoint.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/content"
	"github.com/blog-cms-api/internal/models"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const promptTemplate = `Write a complete, engaging blog article about: %q.

Respond with a single JSON object and nothing else, using exactly these fields:
{
  "title": "a compelling headline",
  "excerpt": "a one or two sentence summary",
  "content": "the full article body as HTML using <h2>, <h3>, <p>, <ul>, <li>, <strong> and <em>",
  "hashtags": ["10 to 15 relevant hashtags without the # symbol"]
}`

var (
	fenceRegex   = regexp.MustCompile("(?i)```(?:json)?")
	controlRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	objectRegex  = regexp.MustCompile(`(?s)\{.*\}`)
)

// ErrEmptyResponse is returned when the endpoint answers without content
var ErrEmptyResponse = errors.New("generator returned an empty response")

// Client generates articles. The API key and model are fixed at construction.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates a client for cfg.BaseURL
func New(cfg config.GeneratorConfig, log zerolog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		api:     openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With().Str("component", "generator").Logger(),
	}
}

// Generate produces an article for topic
func (c *Client) Generate(ctx context.Context, topic string) (*models.GeneratedArticle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to generate article: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, topic)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate article: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("failed to generate article: %w", ErrEmptyResponse)
	}

	c.log.Debug().
		Str("topic", topic).
		Dur("duration", time.Since(start)).
		Int("tokens", resp.Usage.TotalTokens).
		Msg("Article generated")

	return ExtractPayload(topic, resp.Choices[0].Message.Content), nil
}

type payload struct {
	Title    string          `json:"title"`
	Excerpt  string          `json:"excerpt"`
	Content  string          `json:"content"`
	Hashtags json.RawMessage `json:"hashtags"`
}

// ExtractPayload decodes the JSON object embedded in a model response. If
// no valid object is found, the whole response becomes the article body and
// the topic becomes its title.
func ExtractPayload(topic, text string) *models.GeneratedArticle {
	cleaned := fenceRegex.ReplaceAllString(text, "")
	cleaned = strings.TrimSpace(controlRegex.ReplaceAllString(cleaned, ""))

	var p payload
	match := objectRegex.FindString(cleaned)
	if match == "" || json.Unmarshal([]byte(escapeRawControls(match)), &p) != nil {
		body := content.FormatParagraphs(cleaned)
		return &models.GeneratedArticle{
			Title:    topic,
			Content:  body,
			Excerpt:  content.Excerpt(body),
			Hashtags: []string{},
		}
	}

	article := &models.GeneratedArticle{
		Title:    strings.TrimSpace(p.Title),
		Content:  content.FormatParagraphs(p.Content),
		Excerpt:  strings.TrimSpace(p.Excerpt),
		Hashtags: content.NormalizeHashtags(decodeHashtags(p.Hashtags)),
	}
	if article.Title == "" {
		article.Title = topic
	}
	if article.Content == "" {
		article.Content = content.FormatParagraphs(cleaned)
	}
	if article.Excerpt == "" {
		article.Excerpt = content.Excerpt(article.Content)
	}
	return article
}

// escapeRawControls escapes line breaks and tabs that appear unescaped
// inside JSON string values. Whitespace between tokens is left alone.
func escapeRawControls(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			case ch == '\n':
				b.WriteString(`\n`)
				continue
			case ch == '\r':
				b.WriteString(`\r`)
				continue
			case ch == '\t':
				b.WriteString(`\t`)
				continue
			}
		} else if ch == '"' {
			inString = true
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// decodeHashtags accepts a JSON array or a comma/space separated string
func decodeHashtags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	}
	return nil
}
