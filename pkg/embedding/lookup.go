package embedding

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/c360/semdedup/errors"
)

// Lookup provides precomputed graph-embedding vectors indexed by entity URI.
//
// Structural and relational vectors require the entire graph topology as
// training context, so they cannot be computed per entity on demand; the
// pipeline receives them as injected, read-only lookup tables. An absent
// entity is reported via found=false and is not an error.
type Lookup interface {
	// Vector returns the embedding for an entity URI, or found=false when
	// the entity is not covered by the lookup.
	Vector(ctx context.Context, uri string) (vec []float32, found bool, err error)

	// Dimensions returns the dimensionality of stored vectors, or 0 when
	// the lookup is empty.
	Dimensions() int
}

// MemoryLookup is an in-memory Lookup, used for tests and for lookups
// deserialized from JSON exports of offline training runs.
type MemoryLookup struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	dim     int
}

// NewMemoryLookup creates an empty in-memory lookup.
func NewMemoryLookup() *MemoryLookup {
	return &MemoryLookup{vectors: make(map[string][]float32)}
}

// Set stores a vector under an entity URI. The first vector fixes the
// lookup's dimensionality; later vectors of different length are rejected.
func (m *MemoryLookup) Set(uri string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dim == 0 {
		m.dim = len(vec)
	} else if len(vec) != m.dim {
		return errors.WrapInvalid(errors.ErrDimensionMismatch, "MemoryLookup", "Set",
			"vector length differs from lookup dimensionality")
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)
	m.vectors[uri] = stored
	return nil
}

// Vector returns the stored embedding for a URI.
func (m *MemoryLookup) Vector(_ context.Context, uri string) ([]float32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vec, ok := m.vectors[uri]
	if !ok {
		return nil, false, nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true, nil
}

// Dimensions returns the lookup's vector dimensionality.
func (m *MemoryLookup) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dim
}

// Len returns the number of stored vectors.
func (m *MemoryLookup) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// LoadJSONLookup reads a JSON object mapping entity URI to vector, the
// export format of offline structural/relational training jobs.
func LoadJSONLookup(path string) (*MemoryLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Lookup", "LoadJSON", "read "+path)
	}

	var raw map[string][]float32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapInvalid(err, "Lookup", "LoadJSON", "decode "+path)
	}

	lookup := NewMemoryLookup()
	for uri, vec := range raw {
		if err := lookup.Set(uri, vec); err != nil {
			return nil, err
		}
	}
	return lookup, nil
}
