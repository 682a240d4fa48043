package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch scores zero", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
		{"empty scores zero", []float32{}, []float32{}, 0.0},
		{"zero vector scores zero", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
	assert.InDelta(t, 1.0, Magnitude(v), 1e-6)

	zero := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestFuseBoundaries(t *testing.T) {
	text := []float32{1, 0, 0}
	graph := []float32{0, 2, 0}

	// alpha=1 reduces to the unit-normalized text vector.
	fused := Fuse(1.0, text, graph)
	for i, v := range Normalize(text) {
		assert.InDelta(t, float64(v), float64(fused[i]), 1e-6)
	}

	// alpha=0 reduces to the unit-normalized graph vector.
	fused = Fuse(0.0, text, graph)
	for i, v := range Normalize(graph) {
		assert.InDelta(t, float64(v), float64(fused[i]), 1e-6)
	}

	// Mid-point mixes both unit vectors.
	fused = Fuse(0.5, text, graph)
	assert.InDelta(t, 0.5, float64(fused[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(fused[1]), 1e-6)
}

func TestMemoryLookup(t *testing.T) {
	lookup := NewMemoryLookup()
	require.NoError(t, lookup.Set("http://ex.org/a", []float32{1, 2, 3}))
	require.NoError(t, lookup.Set("http://ex.org/b", []float32{4, 5, 6}))

	// Dimensionality is fixed by the first vector.
	err := lookup.Set("http://ex.org/c", []float32{1, 2})
	require.Error(t, err)

	vec, found, err := lookup.Vector(context.Background(), "http://ex.org/a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	// Mutating the returned slice must not affect the stored vector.
	vec[0] = 99
	vec2, _, _ := lookup.Vector(context.Background(), "http://ex.org/a")
	assert.Equal(t, float32(1), vec2[0])

	_, found, err = lookup.Vector(context.Background(), "http://ex.org/missing")
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, 3, lookup.Dimensions())
	assert.Equal(t, 2, lookup.Len())
}

func TestBM25EmbedderDeterministic(t *testing.T) {
	texts := []string{
		"Type: Person. Name: John Doe.",
		"Type: Person. Name: Jane Roe.",
	}

	e1 := NewBM25Embedder(BM25Config{Dimensions: 64})
	e2 := NewBM25Embedder(BM25Config{Dimensions: 64})

	v1, err := e1.Generate(context.Background(), texts)
	require.NoError(t, err)
	v2, err := e2.Generate(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	require.Len(t, v1, 2)
	assert.Len(t, v1[0], 64)

	// Unit norm for cosine compatibility.
	assert.InDelta(t, 1.0, Magnitude(v1[0]), 1e-5)

	// Identical texts are closer than unrelated texts.
	same, err := e1.Generate(context.Background(), []string{"Type: Person. Name: John Doe."})
	require.NoError(t, err)
	simSame := CosineSimilarity(v1[0], same[0])
	simOther := CosineSimilarity(v1[0], v1[1])
	assert.Greater(t, simSame, simOther)
}

func TestContentHashStable(t *testing.T) {
	h1 := ContentHash("John Doe")
	h2 := ContentHash("John Doe")
	h3 := ContentHash("Jane Roe")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
