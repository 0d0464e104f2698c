package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aliskhannn/deck-generator/internal/config"
)

const serperImagesURL = "https://google.serper.dev/images"

// SerperSource finds candidate images through the Serper image search API.
type SerperSource struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSerperSource creates a search-backed image source. Returns nil when
// no API key is configured so the resolver can skip it.
func NewSerperSource(cfg config.Serper) Source {
	if cfg.APIKey == "" {
		return nil
	}
	return &SerperSource{
		apiKey:     cfg.APIKey,
		baseURL:    serperImagesURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the source in logs.
func (s *SerperSource) Name() string { return "serper" }

// Fetch returns the URL of the first search hit for the query.
func (s *SerperSource) Fetch(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search images: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image search returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}

	var result struct {
		Images []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"images"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	if len(result.Images) == 0 || result.Images[0].ImageURL == "" {
		return "", errors.New("no image results")
	}

	return result.Images[0].ImageURL, nil
}
