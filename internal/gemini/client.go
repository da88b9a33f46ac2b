// Package gemini adapts Google's genai SDK to the agent runtime, the
// knowledge-base embedder and the document extractor.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// EmbeddingDimensions matches the knowledge_chunks.embedding column.
const EmbeddingDimensions = 768

// NewClient builds a Gemini API client. baseURL is optional and only used to
// point the SDK at a test server.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}
