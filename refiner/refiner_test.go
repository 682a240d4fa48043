package refiner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/match"
)

func pairWith(sourceAttrs, refAttrs map[string][]string) *match.CandidatePair {
	build := func(graphID, uri string, attrs map[string][]string) *graph.Entity {
		bag := graph.NewAttributeBag()
		// Stable insertion order for the test fixtures.
		for _, pred := range []string{"schema:name", "schema:telephone", "schema:email", "schema:active", "schema:jobTitle"} {
			for _, v := range attrs[pred] {
				bag.Add(pred, v)
			}
		}
		return &graph.Entity{URI: uri, GraphID: graphID, Type: "schema:Person", Attributes: bag}
	}
	p := &match.CandidatePair{
		Source:     build("source", "http://a.example/1", sourceAttrs),
		Reference:  build("reference", "http://b.example/1", refAttrs),
		Similarity: 0.9,
	}
	_ = p.MarkEmbeddingScored()
	return p
}

func refine(t *testing.T, cfg config.Config, pairs ...*match.CandidatePair) {
	t.Helper()
	require.NoError(t, New(cfg, nil, nil).Refine(context.Background(), pairs))
}

func TestValueSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, ValueSimilarity("John Doe", "John Doe"))
	assert.Equal(t, 1.0, ValueSimilarity("John Doe ", "john doe"), "case and whitespace normalize away")
	assert.Equal(t, 1.0, ValueSimilarity("  John   Doe", "John Doe"))

	// Near match scores the Levenshtein ratio.
	score := ValueSimilarity("John Doe", "Jon Doe")
	assert.Greater(t, score, 0.8)
	assert.Less(t, score, 1.0)

	// Contradictory booleans score near zero.
	assert.Less(t, ValueSimilarity("true", "false"), 0.35)
}

func TestAcronymExpansionLiftsScore(t *testing.T) {
	plain := levenshteinRatio("j. doe", "john doe")
	lifted := ValueSimilarity("J. Doe", "John Doe")
	assert.Greater(t, lifted, plain, "acronym check lifts the raw ratio")
	assert.Equal(t, acronymScore, lifted)
	assert.Less(t, lifted, 0.9, "initials stay below the near-exact band")

	// Not an acronym: differing full tokens.
	assert.Less(t, ValueSimilarity("Jane Doe", "John Doe"), acronymScore)
}

func TestRefineExactMatch(t *testing.T) {
	p := pairWith(
		map[string][]string{"schema:name": {"John Doe "}},
		map[string][]string{"schema:name": {"John Doe"}},
	)
	cfg := config.DefaultConfig()
	refine(t, cfg, p)

	require.True(t, p.HasLiteralScore)
	assert.Equal(t, 1.0, p.LiteralScore)
	assert.False(t, p.Flagged)
	assert.Equal(t, match.StateLiteralRefined, p.State())
	require.Len(t, p.SharedPredicates, 1)
	assert.Equal(t, "schema:name", p.SharedPredicates[0].Predicate)
}

func TestRefineFlagsBelowAdaptiveBar(t *testing.T) {
	// One shared predicate requires 0.85; initials score 0.8 and get flagged.
	p := pairWith(
		map[string][]string{"schema:name": {"J. Doe"}},
		map[string][]string{"schema:name": {"John Doe"}},
	)
	cfg := config.DefaultConfig()
	refine(t, cfg, p)

	require.True(t, p.HasLiteralScore)
	assert.InDelta(t, 0.8, p.LiteralScore, 1e-9)
	assert.True(t, p.Flagged, "below the one-predicate bar")
	assert.Equal(t, match.StatusFlagged, p.Status())
}

func TestAdaptiveBarLoosensWithMoreEvidence(t *testing.T) {
	// Identical per-predicate scores, different shared-predicate counts: the
	// pair with more corroborating predicates clears a bar the sparse pair
	// fails.
	sparse := pairWith(
		map[string][]string{"schema:name": {"J. Doe"}},
		map[string][]string{"schema:name": {"John Doe"}},
	)
	dense := pairWith(
		map[string][]string{
			"schema:name":      {"J. Doe"},
			"schema:telephone": {"K. Roe"},
			"schema:email":     {"L. Poe"},
			"schema:jobTitle":  {"M. Zoe"},
		},
		map[string][]string{
			"schema:name":      {"John Doe"},
			"schema:telephone": {"Karl Roe"},
			"schema:email":     {"Lisa Poe"},
			"schema:jobTitle":  {"Mary Zoe"},
		},
	)

	cfg := config.DefaultConfig()
	refine(t, cfg, sparse, dense)

	assert.InDelta(t, sparse.LiteralScore, dense.LiteralScore, 1e-9)
	assert.True(t, sparse.Flagged, "one shared predicate at 0.8 fails the 0.85 bar")
	assert.False(t, dense.Flagged, "four shared predicates at 0.8 clear the 0.63 bar")
}

func TestMultivaluedPredicateMatchesBestValue(t *testing.T) {
	p := pairWith(
		map[string][]string{"schema:telephone": {"+1 555 0100", "+1 555 0199"}},
		map[string][]string{"schema:telephone": {"+1 555 0199"}},
	)
	cfg := config.DefaultConfig()
	refine(t, cfg, p)

	require.Len(t, p.SharedPredicates, 1)
	assert.Equal(t, 1.0, p.SharedPredicates[0].Score, "closest value wins")
}

func TestPredicateWeightsShiftAggregate(t *testing.T) {
	attrs := func() (map[string][]string, map[string][]string) {
		return map[string][]string{
				"schema:name":  {"John Doe"},
				"schema:email": {"completely different"},
			}, map[string][]string{
				"schema:name":  {"John Doe"},
				"schema:email": {"nothing alike here"},
			}
	}

	sa, ra := attrs()
	unweighted := pairWith(sa, ra)
	cfg := config.DefaultConfig()
	refine(t, cfg, unweighted)

	sb, rb := attrs()
	weighted := pairWith(sb, rb)
	cfg.PredicateWeights = map[string]float64{"schema:name": 10}
	refine(t, cfg, weighted)

	assert.Greater(t, weighted.LiteralScore, unweighted.LiteralScore,
		"upweighting the matching predicate raises the aggregate")
}

func TestNoSharedPredicatesLeavesPairUnscored(t *testing.T) {
	p := pairWith(
		map[string][]string{"schema:name": {"John Doe"}},
		map[string][]string{"schema:email": {"jd@example.com"}},
	)
	cfg := config.DefaultConfig()
	refine(t, cfg, p)

	assert.False(t, p.HasLiteralScore)
	assert.False(t, p.Flagged)
	assert.Equal(t, match.StateLiteralRefined, p.State())
}

func TestContradictionRecordedPerPredicate(t *testing.T) {
	p := pairWith(
		map[string][]string{"schema:name": {"John Doe"}, "schema:active": {"true"}},
		map[string][]string{"schema:name": {"John Doe"}, "schema:active": {"false"}},
	)
	cfg := config.DefaultConfig()
	refine(t, cfg, p)

	require.Len(t, p.SharedPredicates, 2)
	byPred := map[string]float64{}
	for _, ps := range p.SharedPredicates {
		byPred[ps.Predicate] = ps.Score
	}
	assert.Equal(t, 1.0, byPred["schema:name"])
	assert.LessOrEqual(t, byPred["schema:active"], cfg.Classification.ConflictContradiction)
}

func TestRefineFailsWhenContextCanceled(t *testing.T) {
	p := pairWith(
		map[string][]string{"schema:name": {"John Doe"}},
		map[string][]string{"schema:name": {"John Doe"}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Pairs left unrefined by an interrupted pool must not reach the
	// classifier behind a nil error.
	err := New(config.DefaultConfig(), nil, nil).Refine(ctx, []*match.CandidatePair{p})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}
