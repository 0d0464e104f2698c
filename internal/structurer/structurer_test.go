package structurer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/deck-generator/internal/config"
)

const validOutlineJSON = `{
	"suggested_bg_color": "0F172A",
	"slides": [
		{"title": "Paris", "bullet_points": ["Capital of France"], "visual_query": "Eiffel Tower at dusk", "accent_color": "FDE047", "layout": "center"},
		{"title": "Tokyo", "bullet_points": ["Capital of Japan"], "visual_query": "Shibuya crossing at night", "accent_color": "22D3EE", "layout": "center"}
	]
}`

func TestParseOutline(t *testing.T) {
	t.Run("bare JSON", func(t *testing.T) {
		outline, err := ParseOutline(validOutlineJSON)
		require.NoError(t, err)
		require.Len(t, outline.Slides, 2)
		assert.Equal(t, "Paris", outline.Slides[0].Title)
		assert.Equal(t, "0F172A", outline.SuggestedBGColor)
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		wrapped := "Here is your deck:\n```json\n" + validOutlineJSON + "\n```\nEnjoy!"
		outline, err := ParseOutline(wrapped)
		require.NoError(t, err)
		assert.Len(t, outline.Slides, 2)
	})

	t.Run("JSON with surrounding prose", func(t *testing.T) {
		wrapped := "Sure! " + validOutlineJSON
		outline, err := ParseOutline(wrapped)
		require.NoError(t, err)
		assert.Len(t, outline.Slides, 2)
	})

	t.Run("not JSON at all", func(t *testing.T) {
		_, err := ParseOutline("I cannot help with that.")
		assert.Error(t, err)
	})

	t.Run("empty slide list", func(t *testing.T) {
		_, err := ParseOutline(`{"slides": [], "suggested_bg_color": "000000"}`)
		assert.Error(t, err)
	})

	t.Run("slide without title", func(t *testing.T) {
		_, err := ParseOutline(`{"slides": [{"bullet_points": ["a"]}]}`)
		assert.Error(t, err)
	})

	t.Run("defaults filled in", func(t *testing.T) {
		outline, err := ParseOutline(`{"slides": [{"title": "Lone Slide"}]}`)
		require.NoError(t, err)

		slide := outline.Slides[0]
		assert.Equal(t, "Lone Slide", slide.VisualQuery)
		assert.Equal(t, "center", slide.Layout)
		assert.Equal(t, "6366f1", slide.AccentColor)
		assert.NotNil(t, slide.BulletPoints)
		assert.Equal(t, "0F172A", outline.SuggestedBGColor)
	})
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(config.Groq{
		APIKey:      "test-key",
		Model:       "llama-3.1-8b-instant",
		Temperature: 0.3,
		MaxTokens:   8000,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	c.baseURL = baseURL
	return c
}

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestStructure(t *testing.T) {
	t.Run("parses model response", func(t *testing.T) {
		var gotAuth string
		var gotReq chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			fmt.Fprint(w, chatBody(validOutlineJSON))
		}))
		defer srv.Close()

		c := testClient(t, srv.URL)
		outline, err := c.Structure(context.Background(), "1. Paris\n2. Tokyo", 2)
		require.NoError(t, err)

		assert.Len(t, outline.Slides, 2)
		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, "llama-3.1-8b-instant", gotReq.Model)
		require.Len(t, gotReq.Messages, 2)
		assert.Contains(t, gotReq.Messages[1].Content, "EXACTLY 2 slides")
	})

	t.Run("unparsable model output is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, chatBody("sorry, no JSON today"))
		}))
		defer srv.Close()

		_, err := testClient(t, srv.URL).Structure(context.Background(), "content", 3)
		assert.Error(t, err)
	})

	t.Run("API error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": {"message": "rate limit exceeded"}}`)
		}))
		defer srv.Close()

		_, err := testClient(t, srv.URL).Structure(context.Background(), "content", 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(config.Groq{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
