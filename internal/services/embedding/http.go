package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig configures an OpenAI-compatible embeddings endpoint
type HTTPConfig struct {
	URL     string // full endpoint URL, e.g. https://api.example.com/v1/embeddings
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPProvider fetches embeddings from a remote service
type HTTPProvider struct {
	cfg     HTTPConfig
	client  *http.Client
	headers map[string]string
}

// NewHTTPProvider creates a provider for the given endpoint
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	p := &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		headers: map[string]string{"Content-Type": "application/json"},
	}
	if cfg.APIKey != "" {
		p.headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return p
}

type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed requests the vector for a single word.
// A 404 or an empty result is reported as ErrUnknownWord.
func (p *HTTPProvider) Embed(ctx context.Context, word string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Input: word, Model: p.cfg.Model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range p.headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnknownWord
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, ErrUnknownWord
	}
	return out.Data[0].Embedding, nil
}

var _ Provider = (*HTTPProvider)(nil)
