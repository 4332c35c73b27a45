package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPayload_FencedJSON(t *testing.T) {
	text := "```json\n{\"title\":\"Go at Scale\",\"excerpt\":\"Short.\",\"content\":\"<h2>Intro</h2><p>Body</p>\",\"hashtags\":[\"#go\",\"Go\",\"backend\"]}\n```"

	got := ExtractPayload("scaling go", text)
	assert.Equal(t, "Go at Scale", got.Title)
	assert.Equal(t, "Short.", got.Excerpt)
	assert.Equal(t, "<h2>Intro</h2><p>Body</p>", got.Content)
	assert.Equal(t, []string{"go", "backend"}, got.Hashtags)
}

func TestExtractPayload_SurroundingProse(t *testing.T) {
	text := "Sure! Here is your article:\n{\"title\":\"\",\"content\":\"Plain body text\",\"hashtags\":\"a, b\"}\nEnjoy."

	got := ExtractPayload("Topic T", text)
	assert.Equal(t, "Topic T", got.Title)
	assert.Equal(t, "<p>Plain body text</p>", got.Content)
	assert.Equal(t, "Plain body text...", got.Excerpt)
	assert.Equal(t, []string{"a", "b"}, got.Hashtags)
}

func TestExtractPayload_ControlCharacters(t *testing.T) {
	text := "{\"title\":\"Tabs\x01\",\"content\":\"<p>x</p>\"}"

	got := ExtractPayload("t", text)
	assert.Equal(t, "Tabs", got.Title)
}

func TestExtractPayload_RawNewlinesInsideStrings(t *testing.T) {
	text := "```json\n{\"title\": \"Real Title\",\n  \"excerpt\": \"Two\tparts\",\n  \"content\": \"<p>one</p>\n<p>two</p>\",\n  \"hashtags\": [\"go\"]}\n```"

	got := ExtractPayload("topic", text)
	assert.Equal(t, "Real Title", got.Title)
	assert.Equal(t, "Two\tparts", got.Excerpt)
	assert.Equal(t, "<p>one</p>\n<p>two</p>", got.Content)
	assert.Equal(t, []string{"go"}, got.Hashtags)
}

func TestExtractPayload_FallbackDropsFences(t *testing.T) {
	text := "```json\n{\"title\": broken\n```"

	got := ExtractPayload("Fenced Topic", text)
	assert.Equal(t, "Fenced Topic", got.Title)
	assert.NotContains(t, got.Content, "```")
	assert.Equal(t, "<p>{&#34;title&#34;: broken</p>", got.Content)
}

func TestExtractPayload_Fallback(t *testing.T) {
	text := "This is not JSON at all.\n\nSecond paragraph."

	got := ExtractPayload("Fallback Topic", text)
	assert.Equal(t, "Fallback Topic", got.Title)
	assert.Equal(t, "<p>This is not JSON at all.</p><p>Second paragraph.</p>", got.Content)
	assert.True(t, strings.HasSuffix(got.Excerpt, "..."))
	assert.Empty(t, got.Hashtags)
}

func chatServer(t *testing.T, status int, content string, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]interface{}{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
}

func newTestClient(url string) *Client {
	return New(config.GeneratorConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, zerolog.Nop())
}

func TestClient_Generate(t *testing.T) {
	var calls int32
	srv := chatServer(t, http.StatusOK, `{"title":"Hello","content":"<p>World</p>","excerpt":"e","hashtags":["x"]}`, &calls)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Generate(context.Background(), "greeting")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "<p>World</p>", got.Content)
	assert.Equal(t, []string{"x"}, got.Hashtags)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_GenerateUpstreamError(t *testing.T) {
	var calls int32
	srv := chatServer(t, http.StatusTooManyRequests, "", &calls)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "greeting")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate article")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClient_GenerateEmptyContent(t *testing.T) {
	var calls int32
	srv := chatServer(t, http.StatusOK, "   ", &calls)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "greeting")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClient_GenerateCancelled(t *testing.T) {
	c := New(config.GeneratorConfig{BaseURL: "http://127.0.0.1:0", RequestsPerMinute: 1}, zerolog.Nop())
	// consume the single burst token so the next call has to wait
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Generate(ctx, "t")
	assert.Error(t, err)
}
