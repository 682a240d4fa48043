package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/match"
	"github.com/c360/semdedup/pkg/embedding"
	"github.com/c360/semdedup/represent"
)

func population(graphID string, entities map[string]struct {
	typeName string
	vec      []float32
}) *represent.Result {
	result := &represent.Result{
		GraphID: graphID,
		ByType:  make(map[string][]*represent.EntityVectors),
	}
	for uri, spec := range entities {
		ev := &represent.EntityVectors{
			Entity: &graph.Entity{
				URI:        uri,
				GraphID:    graphID,
				Type:       spec.typeName,
				Attributes: graph.NewAttributeBag(),
			},
			Vectors: map[embedding.Kind][]float32{embedding.KindHybrid: spec.vec},
		}
		result.Entities = append(result.Entities, ev)
		result.ByType[spec.typeName] = append(result.ByType[spec.typeName], ev)
	}
	return result
}

type entitySpec = struct {
	typeName string
	vec      []float32
}

func TestScoreKeepsTopKAboveFloor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TopK = 2
	cfg.SimilarityThreshold = 0.5

	source := population("source", map[string]entitySpec{
		"http://a.example/1": {"schema:Person", []float32{1, 0, 0}},
	})
	reference := population("reference", map[string]entitySpec{
		"http://b.example/close":   {"schema:Person", []float32{0.9, 0.1, 0}},
		"http://b.example/closer":  {"schema:Person", []float32{1, 0.01, 0}},
		"http://b.example/mid":     {"schema:Person", []float32{0.7, 0.7, 0}},
		"http://b.example/distant": {"schema:Person", []float32{0, 0, 1}},
	})

	pairs, err := New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
	require.NoError(t, err)

	require.Len(t, pairs, 2, "top-k bounds retained pairs")
	assert.Equal(t, "http://b.example/closer", pairs[0].Reference.URI)
	assert.Equal(t, 1, pairs[0].Rank)
	assert.Equal(t, "http://b.example/close", pairs[1].Reference.URI)
	assert.Equal(t, 2, pairs[1].Rank)
	for _, p := range pairs {
		assert.GreaterOrEqual(t, p.Similarity, cfg.SimilarityThreshold)
		assert.Equal(t, match.StateEmbeddingScored, p.State())
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	source := population("source", map[string]entitySpec{
		"http://a.example/1": {"schema:Person", []float32{1, 0}},
		"http://a.example/2": {"schema:Person", []float32{0.7, 0.7}},
	})
	reference := population("reference", map[string]entitySpec{
		"http://b.example/1": {"schema:Person", []float32{1, 0.1}},
		"http://b.example/2": {"schema:Person", []float32{0.5, 0.9}},
	})

	prev := -1
	for i, threshold := range []float64{0.0, 0.5, 0.8, 0.95, 0.999} {
		cfg := config.DefaultConfig()
		cfg.TopK = 10
		cfg.SimilarityThreshold = threshold

		pairs, err := New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
		require.NoError(t, err)
		if i > 0 {
			assert.LessOrEqual(t, len(pairs), prev,
				"raising the floor must not grow the survivor set")
		}
		prev = len(pairs)
	}
}

func TestTypeIsolation(t *testing.T) {
	source := population("source", map[string]entitySpec{
		"http://a.example/person": {"schema:Person", []float32{1, 0}},
	})
	reference := population("reference", map[string]entitySpec{
		"http://b.example/org": {"schema:Organization", []float32{1, 0}},
	})

	cfg := config.DefaultConfig()
	cfg.SimilarityThreshold = 0

	pairs, err := New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
	require.NoError(t, err)
	assert.Empty(t, pairs, "identical vectors across incompatible types never pair")

	// Explicitly allowing the cross-type pairing admits the pair.
	cfg.AllowCrossType = []config.TypePair{{Left: "schema:Person", Right: "schema:Organization"}}
	pairs, err = New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestTieBreakByAscendingURI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TopK = 1
	cfg.SimilarityThreshold = 0

	source := population("source", map[string]entitySpec{
		"http://a.example/1": {"schema:Person", []float32{1, 0}},
	})
	// Two references with identical vectors tie exactly; the lower URI wins.
	reference := population("reference", map[string]entitySpec{
		"http://b.example/zebra": {"schema:Person", []float32{1, 0}},
		"http://b.example/aaron": {"schema:Person", []float32{1, 0}},
	})

	pairs, err := New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "http://b.example/aaron", pairs[0].Reference.URI)
}

func TestEntitiesWithoutKindVectorAreSkipped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SimilarityThreshold = 0

	source := population("source", map[string]entitySpec{
		"http://a.example/1": {"schema:Person", []float32{1, 0}},
	})
	reference := &represent.Result{
		GraphID: "reference",
		ByType: map[string][]*represent.EntityVectors{
			"schema:Person": {{
				Entity: &graph.Entity{
					URI: "http://b.example/novec", GraphID: "reference",
					Type: "schema:Person", Attributes: graph.NewAttributeBag(),
				},
				Vectors: map[embedding.Kind][]float32{}, // unmatched for hybrid
			}},
		},
	}

	pairs, err := New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestScoreDeterministicOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SimilarityThreshold = 0
	cfg.TopK = 3

	source := population("source", map[string]entitySpec{
		"http://a.example/2": {"schema:Person", []float32{0.8, 0.2}},
		"http://a.example/1": {"schema:Person", []float32{1, 0}},
		"http://a.example/3": {"schema:Organization", []float32{0, 1}},
	})
	reference := population("reference", map[string]entitySpec{
		"http://b.example/1": {"schema:Person", []float32{1, 0.1}},
		"http://b.example/2": {"schema:Person", []float32{0.6, 0.8}},
		"http://b.example/3": {"schema:Organization", []float32{0.1, 1}},
	})

	first, err := New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
	require.NoError(t, err)
	second, err := New(cfg, embedding.KindHybrid, nil, nil).Score(context.Background(), source, reference)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Source.URI, second[i].Source.URI)
		assert.Equal(t, first[i].Reference.URI, second[i].Reference.URI)
		assert.Equal(t, first[i].Similarity, second[i].Similarity)
	}
}

func TestScoreFailsWhenContextCanceled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SimilarityThreshold = 0

	source := population("source", map[string]entitySpec{
		"http://a.example/1": {"schema:Person", []float32{1, 0}},
	})
	reference := population("reference", map[string]entitySpec{
		"http://b.example/1": {"schema:Person", []float32{1, 0}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Workers racing a canceled context may drop queued buckets; that must
	// surface as a failed stage, never as a smaller successful result.
	pairs, err := New(cfg, embedding.KindHybrid, nil, nil).Score(ctx, source, reference)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Nil(t, pairs)
}
