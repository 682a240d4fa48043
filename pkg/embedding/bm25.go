package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// BM25Embedder implements pure Go lexical embeddings using BM25 weighting.
//
// It is the offline fallback when no neural embedding service is available,
// and the deterministic encoder used by the test suite. Vectors are built
// by tokenizing the surface text, hashing terms into a fixed number of
// dimensions (feature hashing), applying BM25 term weighting and L2
// normalizing for cosine compatibility.
//
// Lexical only: it rewards shared terms, not semantic similarity, which is
// adequate for surface forms built from literal values.
type BM25Embedder struct {
	dimensions int
	k1         float64 // Term frequency saturation (typically 1.2-2.0)
	b          float64 // Length normalization (typically 0.75)

	mu             sync.RWMutex
	docCount       int
	termDocCount   map[string]int
	totalDocLength int
}

// BM25Config configures the BM25 embedder.
type BM25Config struct {
	// Dimensions is the output embedding dimension (default 384, matching
	// the common sentence-encoder width so lookups can be fused directly).
	Dimensions int

	// K1 controls term frequency saturation (default 1.5).
	K1 float64

	// B controls document length normalization (default 0.75).
	B float64
}

// NewBM25Embedder creates a new BM25-based embedder.
func NewBM25Embedder(cfg BM25Config) *BM25Embedder {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.K1 == 0 {
		cfg.K1 = 1.5
	}
	if cfg.B == 0 {
		cfg.B = 0.75
	}

	return &BM25Embedder{
		dimensions:   cfg.Dimensions,
		k1:           cfg.K1,
		b:            cfg.B,
		termDocCount: make(map[string]int),
	}
}

// Generate creates BM25-weighted embeddings for the given texts. Document
// statistics accumulate across calls, so identical call sequences produce
// identical vectors.
func (e *BM25Embedder) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type docInfo struct {
		length   int
		termFreq map[string]int
	}
	docs := make([]docInfo, len(texts))

	e.mu.Lock()
	for i, text := range texts {
		tokens := tokenize(text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		docs[i] = docInfo{length: len(tokens), termFreq: tf}

		e.docCount++
		e.totalDocLength += len(tokens)
		for term := range tf {
			e.termDocCount[term]++
		}
	}

	avgDocLength := 0.0
	if e.docCount > 0 {
		avgDocLength = float64(e.totalDocLength) / float64(e.docCount)
	}
	docCount := e.docCount
	idf := func(term string) float64 {
		df := e.termDocCount[term]
		return math.Log(1 + (float64(docCount)-float64(df)+0.5)/(float64(df)+0.5))
	}

	embeddings := make([][]float32, len(texts))
	for i, doc := range docs {
		vec := make([]float32, e.dimensions)
		for term, freq := range doc.termFreq {
			lengthNorm := 1 - e.b + e.b*float64(doc.length)/math.Max(avgDocLength, 1)
			weight := idf(term) * (float64(freq) * (e.k1 + 1)) /
				(float64(freq) + e.k1*lengthNorm)
			vec[termIndex(term, e.dimensions)] += float32(weight)
		}
		embeddings[i] = Normalize(vec)
	}
	e.mu.Unlock()

	return embeddings, nil
}

// Stateful reports that vectors depend on the accumulated corpus
// statistics, so callers must encode batches in a fixed order.
func (e *BM25Embedder) Stateful() bool {
	return true
}

// Dimensions returns the output embedding dimension.
func (e *BM25Embedder) Dimensions() int {
	return e.dimensions
}

// Model returns the model identifier.
func (e *BM25Embedder) Model() string {
	return "bm25-feature-hash"
}

// Close releases resources (no-op).
func (e *BM25Embedder) Close() error {
	return nil
}

// termIndex hashes a term into a vector slot.
func termIndex(term string, dimensions int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return int(h.Sum32() % uint32(dimensions))
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
