package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// HTTPEmbedder calls an external OpenAI-compatible embedding service.
//
// This implementation works with Hugging Face TEI (Text Embeddings
// Inference), LocalAI, OpenAI, or any OpenAI-compatible embedding API.
// A multilingual sentence model (e.g. paraphrase-multilingual-MiniLM-L12-v2
// served by TEI) keeps the text representation language-agnostic.
type HTTPEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	cache      Cache
	logger     *slog.Logger
}

// HTTPConfig configures the HTTP embedder.
type HTTPConfig struct {
	// BaseURL is the base URL of the embedding service, e.g.
	// "http://localhost:8082" (TEI) or "https://api.openai.com/v1".
	BaseURL string

	// Model is the embedding model to use, e.g.
	// "paraphrase-multilingual-MiniLM-L12-v2" (384 dims).
	Model string

	// APIKey for authentication. Optional for local services.
	APIKey string

	// Timeout for HTTP requests (default: 30s).
	Timeout time.Duration

	// Cache for embedding results (optional but recommended).
	Cache Cache

	// Logger for degraded-path logging (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// NewHTTPEmbedder creates a new HTTP-based embedder.
func NewHTTPEmbedder(cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "dummy-key" // Local services don't need a real key
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{Timeout: timeout}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPEmbedder{
		client:     openai.NewClientWithConfig(config),
		model:      cfg.Model,
		dimensions: 384, // Detected on first call
		cache:      cfg.Cache,
		logger:     logger,
	}, nil
}

// Generate creates embeddings by calling the external HTTP service,
// consulting the cache first when one is configured.
func (h *HTTPEmbedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, len(texts))
	uncachedIndexes := []int{}
	uncachedTexts := []string{}

	if h.cache != nil {
		for i, text := range texts {
			hash := ContentHash(text)
			if cached, err := h.cache.Get(ctx, hash); err == nil {
				embeddings[i] = cached
			} else {
				uncachedIndexes = append(uncachedIndexes, i)
				uncachedTexts = append(uncachedTexts, text)
			}
		}
	} else {
		uncachedIndexes = make([]int, len(texts))
		for i := range texts {
			uncachedIndexes[i] = i
		}
		uncachedTexts = texts
	}

	if len(uncachedTexts) > 0 {
		req := openai.EmbeddingRequest{
			Input: uncachedTexts,
			Model: openai.EmbeddingModel(h.model),
		}

		resp, err := h.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embedding API call failed: %w", err)
		}

		if len(resp.Data) != len(uncachedTexts) {
			return nil, fmt.Errorf("API returned %d embeddings for %d texts", len(resp.Data), len(uncachedTexts))
		}

		for i, data := range resp.Data {
			originalIndex := uncachedIndexes[i]
			embeddings[originalIndex] = data.Embedding

			if h.dimensions == 384 && len(data.Embedding) > 0 {
				h.dimensions = len(data.Embedding)
			}

			if h.cache != nil {
				hash := ContentHash(uncachedTexts[i])
				if err := h.cache.Put(ctx, hash, data.Embedding); err != nil {
					// Cache is best-effort
					h.logger.Warn("embedding cache put failed", "hash", hash, "error", err)
				}
			}
		}
	}

	return embeddings, nil
}

// Dimensions returns the dimensionality of embeddings produced.
func (h *HTTPEmbedder) Dimensions() int {
	return h.dimensions
}

// Model returns the model identifier.
func (h *HTTPEmbedder) Model() string {
	return h.model
}

// Close releases resources (no-op for the HTTP client).
func (h *HTTPEmbedder) Close() error {
	return nil
}
