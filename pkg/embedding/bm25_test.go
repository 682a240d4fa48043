package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBM25IdenticalCallSequencesMatch(t *testing.T) {
	batches := [][]string{
		{"Type: Person. Name: John Doe.", "Type: Person. Name: Jane Roe."},
		{"Type: Organization. Name: Acme.", "Type: Person. Name: John Doe."},
	}

	run := func() [][]float32 {
		e := NewBM25Embedder(BM25Config{})
		var out [][]float32
		for _, batch := range batches {
			vecs, err := e.Generate(context.Background(), batch)
			require.NoError(t, err)
			out = append(out, vecs...)
		}
		return out
	}

	// Vectors depend on accumulated corpus statistics, so the same batch
	// sequence on a fresh embedder must reproduce them exactly.
	assert.Equal(t, run(), run())
}

func TestBM25ReportsStateful(t *testing.T) {
	var e Embedder = NewBM25Embedder(BM25Config{})
	s, ok := e.(Stateful)
	require.True(t, ok, "corpus-dependent encoder must declare itself stateful")
	assert.True(t, s.Stateful())
}

func TestBM25SharedTermsScoreHigher(t *testing.T) {
	e := NewBM25Embedder(BM25Config{})
	vecs, err := e.Generate(context.Background(), []string{
		"Type: Person. Name: John Doe.",
		"Type: Person. Name: John Doe.",
		"Type: Organization. Name: Acme Widgets.",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	same := CosineSimilarity(vecs[0], vecs[1])
	different := CosineSimilarity(vecs[0], vecs[2])
	assert.InDelta(t, 1.0, same, 1e-6, "identical texts in one batch encode identically")
	assert.Greater(t, same, different)
}
