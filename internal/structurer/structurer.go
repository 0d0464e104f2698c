// Package structurer converts clean text into an ordered slide outline by
// calling Groq's OpenAI-compatible chat completions API and coercing the
// model output into the expected JSON shape.
package structurer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/aliskhannn/deck-generator/internal/config"
	"github.com/aliskhannn/deck-generator/internal/model"
)

const defaultBaseURL = "https://api.groq.com/openai/v1/chat/completions"

// ErrMissingAPIKey is returned by New when no Groq API key is configured.
var ErrMissingAPIKey = errors.New("groq api key is not set")

// Client calls the structuring model over HTTP.
type Client struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	baseURL     string
	httpClient  *http.Client
}

// New creates a structurer client from configuration.
func New(cfg config.Groq) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &Client{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// chat completion request/response wire shapes.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Structure asks the model to lay out the content as targetSlides slides
// and validates the returned outline. The model is expected to honor the
// target count exactly, but callers must tolerate a different length.
func (c *Client) Structure(ctx context.Context, content string, targetSlides int) (model.DeckOutline, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a professional presentation designer. You create concise, engaging slide decks."},
			{Role: "user", Content: buildPrompt(content, targetSlides)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return model.DeckOutline{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return model.DeckOutline{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.DeckOutline{}, fmt.Errorf("call structuring model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.DeckOutline{}, fmt.Errorf("read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return model.DeckOutline{}, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return model.DeckOutline{}, fmt.Errorf("structuring model error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return model.DeckOutline{}, fmt.Errorf("structuring model returned status %d", resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return model.DeckOutline{}, errors.New("structuring model returned no choices")
	}

	outline, err := ParseOutline(chatResp.Choices[0].Message.Content)
	if err != nil {
		return model.DeckOutline{}, err
	}

	return outline, nil
}

// buildPrompt formats the structuring instructions. The rules mirror the
// service contract: one slide per numbered point, exact count, JSON only.
func buildPrompt(content string, targetSlides int) string {
	return fmt.Sprintf(`Convert the following content into a professional slide deck.

Rules:
1. Create EXACTLY %d slides. One slide per numbered point when the content is enumerated; never group or summarize points.
2. Do NOT add a title slide or summary slide. Start directly with the first point.
3. Output ONLY a valid JSON object with a "slides" list and a top-level "suggested_bg_color" (a deep, dark professional hex color such as "0F172A").
4. Each slide must have:
   - "title": short, punchy heading (max 8 words) naming the slide's core subject.
   - "bullet_points": 2-3 brief points keeping every key fact; for numerical problems include both the question and the step-by-step solution.
   - "visual_query": a specific image description naming the main subject plus a style keyword. NEVER reuse the same visual_query on two slides.
   - "accent_color": a vibrant, high-contrast hex color.

Content to convert:
%s

Remember: output ONLY the complete JSON object, nothing else.`, targetSlides, content)
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseOutline extracts and validates the outline JSON from a raw model
// response, tolerating markdown code fences around the object.
func ParseOutline(response string) (model.DeckOutline, error) {
	jsonStr := response
	if m := fencedJSONRe.FindStringSubmatch(response); m != nil {
		jsonStr = m[1]
	} else if m := bareJSONRe.FindString(response); m != "" {
		jsonStr = m
	}

	var outline model.DeckOutline
	if err := json.Unmarshal([]byte(jsonStr), &outline); err != nil {
		return model.DeckOutline{}, fmt.Errorf("parse outline JSON: %w", err)
	}

	if err := validateOutline(&outline); err != nil {
		return model.DeckOutline{}, err
	}

	return outline, nil
}

// validateOutline enforces the outline shape and fills per-slide defaults.
func validateOutline(outline *model.DeckOutline) error {
	if len(outline.Slides) == 0 {
		return errors.New("outline contains no slides")
	}

	if outline.SuggestedBGColor == "" {
		outline.SuggestedBGColor = "0F172A"
	}

	for i := range outline.Slides {
		slide := &outline.Slides[i]
		if strings.TrimSpace(slide.Title) == "" {
			return fmt.Errorf("slide %d is missing a title", i)
		}
		if slide.VisualQuery == "" {
			slide.VisualQuery = slide.Title
		}
		if slide.Layout == "" {
			slide.Layout = "center"
		}
		if slide.AccentColor == "" {
			slide.AccentColor = "6366f1"
		}
		if slide.BulletPoints == nil {
			slide.BulletPoints = []string{}
		}
	}

	return nil
}
