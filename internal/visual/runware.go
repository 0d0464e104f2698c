package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/aliskhannn/deck-generator/internal/config"
)

const runwareInferenceURL = "https://api.runware.ai/v1"

// RunwareSource generates images through the Runware inference API when
// search cannot produce one.
type RunwareSource struct {
	apiKey     string
	modelID    string
	baseURL    string
	httpClient *http.Client
}

// NewRunwareSource creates a generation-backed image source. Returns nil
// when no API key is configured so the resolver can skip it.
func NewRunwareSource(cfg config.Runware) Source {
	if cfg.APIKey == "" {
		return nil
	}
	return &RunwareSource{
		apiKey:     cfg.APIKey,
		modelID:    cfg.ModelID,
		baseURL:    runwareInferenceURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the source in logs.
func (s *RunwareSource) Name() string { return "runware" }

// inferenceTask is the Runware REST task envelope.
type inferenceTask struct {
	TaskType       string `json:"taskType"`
	TaskUUID       string `json:"taskUUID"`
	PositivePrompt string `json:"positivePrompt"`
	Model          string `json:"model"`
	NumberResults  int    `json:"numberResults"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OutputType     string `json:"outputType"`
}

// Fetch generates one image for the prompt and returns its URL.
// Dimensions must be multiples of 64.
func (s *RunwareSource) Fetch(ctx context.Context, query string) (string, error) {
	tasks := []inferenceTask{{
		TaskType:       "imageInference",
		TaskUUID:       uuid.New().String(),
		PositivePrompt: query,
		Model:          s.modelID,
		NumberResults:  1,
		Width:          1280,
		Height:         704,
		OutputType:     "URL",
	}}

	body, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image generation returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read inference response: %w", err)
	}

	var result struct {
		Data []struct {
			ImageURL string `json:"imageURL"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode inference response: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0].ImageURL == "" {
		return "", errors.New("no generated image in response")
	}

	return result.Data[0].ImageURL, nil
}
