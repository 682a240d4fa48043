package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/pkg/embedding"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.5, cfg.Alpha)
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, 2, cfg.TopK)
	assert.True(t, cfg.KindEnabled(embedding.KindHybrid))
	assert.False(t, cfg.KindEnabled(embedding.KindRelational))
}

func TestStepFuncBarFor(t *testing.T) {
	table := DefaultConfig().LiteralThresholds

	assert.Equal(t, 0.85, table.BarFor(0)) // below first band
	assert.Equal(t, 0.85, table.BarFor(1))
	assert.Equal(t, 0.75, table.BarFor(2))
	assert.Equal(t, 0.68, table.BarFor(3))
	assert.Equal(t, 0.63, table.BarFor(4))
	assert.Equal(t, 0.63, table.BarFor(17))
}

func TestStepFuncBarMonotone(t *testing.T) {
	table := DefaultConfig().LiteralThresholds
	for n := 1; n < 10; n++ {
		assert.GreaterOrEqual(t, table.BarFor(n), table.BarFor(n+1),
			"bar must not rise with more shared predicates")
	}
}

func TestStepFuncValidateRejectsNonMonotonic(t *testing.T) {
	rising := StepFunc{{MinShared: 1, Bar: 0.6}, {MinShared: 2, Bar: 0.8}}
	assert.Error(t, rising.Validate())

	unordered := StepFunc{{MinShared: 3, Bar: 0.8}, {MinShared: 2, Bar: 0.7}}
	assert.Error(t, unordered.Validate())

	assert.Error(t, StepFunc{}.Validate())
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha above one", func(c *Config) { c.Alpha = 1.5 }},
		{"zero top-k", func(c *Config) { c.TopK = 0 }},
		{"no kinds", func(c *Config) { c.EnabledKinds = nil }},
		{"unknown kind", func(c *Config) { c.EnabledKinds = []embedding.Kind{"phrenological"} }},
		{"hybrid without text", func(c *Config) {
			c.EnabledKinds = []embedding.Kind{embedding.KindStructural, embedding.KindHybrid}
		}},
		{"fusion kind not graph", func(c *Config) { c.FusionGraphKind = embedding.KindText }},
		{"negative predicate weight", func(c *Config) {
			c.PredicateWeights = map[string]float64{"schema:name": -1}
		}},
		{"bands unordered", func(c *Config) { c.Classification.SimilarLiteral = 0.99 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestCrossTypeAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowCrossType = []TypePair{{Left: "schema:Person", Right: "foaf:Person"}}

	assert.True(t, cfg.CrossTypeAllowed("schema:Person", "schema:Person"))
	assert.True(t, cfg.CrossTypeAllowed("schema:Person", "foaf:Person"))
	assert.True(t, cfg.CrossTypeAllowed("foaf:Person", "schema:Person"))
	assert.False(t, cfg.CrossTypeAllowed("schema:Person", "schema:Organization"))
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dedup.yaml")

	doc := `
alpha: 0.7
top_k: 5
literal_thresholds:
  - min_shared: 1
    bar: 0.9
  - min_shared: 3
    bar: 0.6
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Alpha)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 0.9, cfg.LiteralThresholds.BarFor(1))
	assert.Equal(t, 0.6, cfg.LiteralThresholds.BarFor(3))
	// Untouched fields keep defaults.
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dedup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alpha: 3.0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
