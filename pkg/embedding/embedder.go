// Package embedding provides vector representations for entities: the text
// encoder interface, precomputed graph-embedding lookups, vector math, and
// caching. It is the representation backbone of the deduplication pipeline.
package embedding

import "context"

// Embedder generates vector embeddings for text surface forms.
//
// Implementations can use different providers (OpenAI-compatible HTTP
// services, local BM25, etc.) while maintaining a consistent interface.
// All providers support batch operations natively.
type Embedder interface {
	// Generate creates embeddings for the given texts. For a single text,
	// pass a slice with one element. The result is index-aligned with the
	// input and must be deterministic for identical input.
	Generate(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of produced embeddings.
	Dimensions() int

	// Model returns the model identifier used by this embedder.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Stateful is implemented by embedders whose output depends on statistics
// accumulated across Generate calls. Batches for such embedders must be
// encoded sequentially, in a fixed order, so identical inputs produce
// identical vectors regardless of the configured parallelism.
type Stateful interface {
	// Stateful reports whether Generate results depend on prior calls.
	Stateful() bool
}

// Cache provides content-addressed caching for text embeddings.
//
// Implementations use a hash of the text content as key to enable
// deduplication across entities with identical surface forms.
type Cache interface {
	// Get retrieves a cached embedding for the given content hash.
	// Returns an error if the embedding is not present.
	Get(ctx context.Context, contentHash string) ([]float32, error)

	// Put stores an embedding under the given content hash.
	Put(ctx context.Context, contentHash string, embedding []float32) error
}
