package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semdedup/errors"
)

const (
	// TextCacheBucket stores content-addressed text embeddings.
	TextCacheBucket = "DEDUP_TEXT_EMBEDDINGS"

	// StructuralLookupBucket stores precomputed structural vectors by URI.
	StructuralLookupBucket = "DEDUP_STRUCTURAL_EMBEDDINGS"

	// RelationalLookupBucket stores precomputed relational vectors by URI.
	RelationalLookupBucket = "DEDUP_RELATIONAL_EMBEDDINGS"
)

// ContentHash generates a SHA-256 hash of text content for use as a cache
// key, giving consistent content-addressed storage across the codebase.
func ContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// NATSCache implements Cache using a NATS JetStream KV bucket, so repeated
// runs over the same graphs skip re-encoding unchanged surface forms.
type NATSCache struct {
	bucket jetstream.KeyValue
}

// NewNATSCache creates a NATS KV-backed embedding cache.
func NewNATSCache(bucket jetstream.KeyValue) *NATSCache {
	return &NATSCache{bucket: bucket}
}

// Get retrieves a cached embedding by content hash.
func (c *NATSCache) Get(ctx context.Context, contentHash string) ([]float32, error) {
	entry, err := c.bucket.Get(ctx, contentHash)
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, fmt.Errorf("cache miss: %w", errors.ErrKeyNotFound)
		}
		return nil, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err),
			"NATSCache", "Get", "get from bucket")
	}

	var embedding []float32
	if err := json.Unmarshal(entry.Value(), &embedding); err != nil {
		return nil, errors.WrapInvalid(err, "NATSCache", "Get", "unmarshal cached embedding")
	}
	return embedding, nil
}

// Put stores an embedding under the given content hash.
func (c *NATSCache) Put(ctx context.Context, contentHash string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return errors.WrapInvalid(err, "NATSCache", "Put", "marshal embedding")
	}

	if _, err := c.bucket.Put(ctx, contentHash, data); err != nil {
		return errors.WrapTransient(err, "NATSCache", "Put", "put in bucket")
	}
	return nil
}

// lookupRecord is the stored form of one precomputed vector.
type lookupRecord struct {
	URI        string    `json:"uri"`
	Vector     []float32 `json:"vector"`
	Model      string    `json:"model,omitempty"`
	Dimensions int       `json:"dimensions"`
}

// NATSLookup implements Lookup over a NATS JetStream KV bucket of
// precomputed graph-embedding vectors published by offline training jobs.
// The bucket is read-only for the duration of a pipeline run.
type NATSLookup struct {
	bucket jetstream.KeyValue
	dim    int
}

// NewNATSLookup creates a lookup over an existing KV bucket. dimensions
// declares the expected vector length; mismatching records are rejected.
func NewNATSLookup(bucket jetstream.KeyValue, dimensions int) *NATSLookup {
	return &NATSLookup{bucket: bucket, dim: dimensions}
}

// Vector returns the precomputed embedding for an entity URI. URIs are
// content-hashed to satisfy KV key character restrictions.
func (l *NATSLookup) Vector(ctx context.Context, uri string) ([]float32, bool, error) {
	entry, err := l.bucket.Get(ctx, ContentHash(uri))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err),
			"NATSLookup", "Vector", "get from bucket")
	}

	var record lookupRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, false, errors.WrapInvalid(err, "NATSLookup", "Vector", "unmarshal record")
	}

	if l.dim != 0 && len(record.Vector) != l.dim {
		return nil, false, errors.WrapInvalid(errors.ErrDimensionMismatch, "NATSLookup", "Vector",
			fmt.Sprintf("record has %d dimensions, lookup expects %d", len(record.Vector), l.dim))
	}
	return record.Vector, true, nil
}

// Dimensions returns the declared vector dimensionality.
func (l *NATSLookup) Dimensions() int {
	return l.dim
}

// Publish writes one precomputed vector into the bucket. Used by loader
// tooling, not by the pipeline itself.
func (l *NATSLookup) Publish(ctx context.Context, uri string, vector []float32, model string) error {
	if l.dim != 0 && len(vector) != l.dim {
		return errors.WrapInvalid(errors.ErrDimensionMismatch, "NATSLookup", "Publish",
			"vector length differs from declared dimensionality")
	}

	record := lookupRecord{URI: uri, Vector: vector, Model: model, Dimensions: len(vector)}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.WrapInvalid(err, "NATSLookup", "Publish", "marshal record")
	}

	if _, err := l.bucket.Put(ctx, ContentHash(uri), data); err != nil {
		return errors.WrapTransient(err, "NATSLookup", "Publish", "put record")
	}
	return nil
}
