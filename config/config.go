// Package config defines the deduplication pipeline configuration: fusion
// weight, similarity floor, top-k, enabled embedding kinds, the adaptive
// literal-threshold table and the classification bands. Validation is
// fail-fast: a defective configuration halts the run before any pairwise
// computation begins.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/pkg/embedding"
)

// Band is one step of the adaptive literal threshold: pairs sharing at
// least MinShared predicates must reach Bar on their aggregate literal
// similarity.
type Band struct {
	MinShared int     `json:"min_shared" yaml:"min_shared"`
	Bar       float64 `json:"bar"        yaml:"bar"`
}

// StepFunc is the adaptive literal-threshold table, a monotonic step
// function over the shared-predicate count: more corroborating attributes
// lower the per-pair bar, sparse overlap raises it.
type StepFunc []Band

// BarFor returns the acceptance bar for a pair sharing n predicates.
// n below the first band uses the first band's bar.
func (s StepFunc) BarFor(n int) float64 {
	if len(s) == 0 {
		return 0
	}
	bar := s[0].Bar
	for _, band := range s {
		if n >= band.MinShared {
			bar = band.Bar
		}
	}
	return bar
}

// Validate rejects empty and non-monotonic tables: MinShared must be
// strictly increasing and Bar non-increasing.
func (s StepFunc) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("literal threshold table is empty")
	}
	for i, band := range s {
		if band.MinShared < 1 {
			return fmt.Errorf("band %d: min_shared must be >= 1, got %d", i, band.MinShared)
		}
		if band.Bar < 0 || band.Bar > 1 {
			return fmt.Errorf("band %d: bar %.3f outside [0,1]", i, band.Bar)
		}
		if i > 0 {
			if band.MinShared <= s[i-1].MinShared {
				return fmt.Errorf("band %d: min_shared %d not increasing", i, band.MinShared)
			}
			if band.Bar > s[i-1].Bar {
				return fmt.Errorf("band %d: bar %.3f rises with more shared predicates", i, band.Bar)
			}
		}
	}
	return nil
}

// Classification holds the tunable band cut points separating the four
// duplication labels. The exact values are configuration, not contract.
type Classification struct {
	// TrueDuplicateEmbedding is the embedding floor for true_duplicate.
	TrueDuplicateEmbedding float64 `json:"true_duplicate_embedding" yaml:"true_duplicate_embedding"`

	// TrueDuplicateLiteral is the literal floor for true_duplicate.
	TrueDuplicateLiteral float64 `json:"true_duplicate_literal" yaml:"true_duplicate_literal"`

	// NearExactLiteral is the literal floor for near-exact.
	NearExactLiteral float64 `json:"near_exact_literal" yaml:"near_exact_literal"`

	// SimilarLiteral is the literal floor for similar.
	SimilarLiteral float64 `json:"similar_literal" yaml:"similar_literal"`

	// ConflictContradiction is the per-predicate literal score at or below
	// which a shared value counts as an active contradiction.
	ConflictContradiction float64 `json:"conflict_contradiction" yaml:"conflict_contradiction"`
}

// TypePair allows candidate pairs across two declared entity types that
// would otherwise be isolated by type bucketing.
type TypePair struct {
	Left  string `json:"left"  yaml:"left"`
	Right string `json:"right" yaml:"right"`
}

// Config is the pipeline configuration.
type Config struct {
	// Alpha is the hybrid fusion weight: hybrid = alpha*text + (1-alpha)*graph.
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// SimilarityThreshold is the cosine floor below which pairs are
	// discarded by the scorer.
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// TopK bounds the retained candidate pairs per entity.
	TopK int `json:"top_k" yaml:"top_k"`

	// EnabledKinds lists the embedding kinds the run may use.
	EnabledKinds []embedding.Kind `json:"enabled_embedding_kinds" yaml:"enabled_embedding_kinds"`

	// FusionGraphKind selects which graph-derived kind joins the text
	// vector in hybrid fusion (structural or relational).
	FusionGraphKind embedding.Kind `json:"fusion_graph_kind" yaml:"fusion_graph_kind"`

	// LiteralThresholds is the adaptive acceptance table for the refiner.
	LiteralThresholds StepFunc `json:"literal_thresholds" yaml:"literal_thresholds"`

	// PredicateWeights optionally weights predicates in the literal
	// aggregate. Unlisted predicates weigh 1.
	PredicateWeights map[string]float64 `json:"predicate_weights,omitempty" yaml:"predicate_weights,omitempty"`

	// Classification holds the label band cut points.
	Classification Classification `json:"classification" yaml:"classification"`

	// AllowCrossType lists type pairs exempt from type isolation.
	AllowCrossType []TypePair `json:"allow_cross_type,omitempty" yaml:"allow_cross_type,omitempty"`

	// Workers bounds stage-internal parallelism (0 = NumCPU).
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the standard configuration. The fusion weight,
// similarity floor and top-k mirror the tuned operating point of the
// matching pipeline; the literal table steps down from 0.85 for
// single-predicate overlap to the 0.63 floor at four or more.
func DefaultConfig() Config {
	return Config{
		Alpha:               0.5,
		SimilarityThreshold: 0.7,
		TopK:                2,
		EnabledKinds:        []embedding.Kind{embedding.KindText, embedding.KindStructural, embedding.KindHybrid},
		FusionGraphKind:     embedding.KindStructural,
		LiteralThresholds: StepFunc{
			{MinShared: 1, Bar: 0.85},
			{MinShared: 2, Bar: 0.75},
			{MinShared: 3, Bar: 0.68},
			{MinShared: 4, Bar: 0.63},
		},
		Classification: Classification{
			TrueDuplicateEmbedding: 0.9,
			TrueDuplicateLiteral:   0.95,
			NearExactLiteral:       0.9,
			SimilarLiteral:         0.7,
			ConflictContradiction:  0.35,
		},
		Workers: 0,
	}
}

// Validate checks the configuration and returns a single fatal
// configuration error on the first defect found.
func (c Config) Validate() error {
	const component = "Config"

	if c.Alpha < 0 || c.Alpha > 1 {
		return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
			fmt.Sprintf("alpha %.3f outside [0,1]", c.Alpha))
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
			fmt.Sprintf("similarity_threshold %.3f outside [-1,1]", c.SimilarityThreshold))
	}
	if c.TopK <= 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
			fmt.Sprintf("top_k must be positive, got %d", c.TopK))
	}

	if len(c.EnabledKinds) == 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
			"enabled_embedding_kinds is empty")
	}
	enabled := make(map[embedding.Kind]bool, len(c.EnabledKinds))
	for _, kind := range c.EnabledKinds {
		if !kind.IsValid() {
			return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
				fmt.Sprintf("unknown embedding kind %q", kind))
		}
		enabled[kind] = true
	}
	if enabled[embedding.KindHybrid] {
		if !c.FusionGraphKind.IsGraph() {
			return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
				fmt.Sprintf("fusion_graph_kind %q is not a graph kind", c.FusionGraphKind))
		}
		if !enabled[embedding.KindText] || !enabled[c.FusionGraphKind] {
			return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
				"hybrid fusion requires text and the fusion graph kind to be enabled")
		}
	}

	if err := c.LiteralThresholds.Validate(); err != nil {
		return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate", err.Error())
	}

	for pred, weight := range c.PredicateWeights {
		if weight < 0 {
			return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
				fmt.Sprintf("predicate weight for %s is negative", pred))
		}
	}

	cl := c.Classification
	for name, v := range map[string]float64{
		"true_duplicate_embedding": cl.TrueDuplicateEmbedding,
		"true_duplicate_literal":   cl.TrueDuplicateLiteral,
		"near_exact_literal":       cl.NearExactLiteral,
		"similar_literal":          cl.SimilarLiteral,
		"conflict_contradiction":   cl.ConflictContradiction,
	} {
		if v < 0 || v > 1 {
			return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
				fmt.Sprintf("classification band %s %.3f outside [0,1]", name, v))
		}
	}
	if cl.TrueDuplicateLiteral < cl.NearExactLiteral ||
		cl.NearExactLiteral < cl.SimilarLiteral ||
		cl.SimilarLiteral <= cl.ConflictContradiction {
		return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
			"classification bands are not ordered true_duplicate >= near_exact >= similar > contradiction")
	}

	if c.Workers < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, component, "Validate",
			fmt.Sprintf("workers must be non-negative, got %d", c.Workers))
	}
	return nil
}

// KindEnabled reports whether a kind is in the enabled set.
func (c Config) KindEnabled(kind embedding.Kind) bool {
	for _, k := range c.EnabledKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CrossTypeAllowed reports whether candidate pairs may span the two types.
// Pairs of equal type are always allowed; the listing is unordered.
func (c Config) CrossTypeAllowed(a, b string) bool {
	if a == b {
		return true
	}
	for _, pair := range c.AllowCrossType {
		if (pair.Left == a && pair.Right == b) || (pair.Left == b && pair.Right == a) {
			return true
		}
	}
	return false
}

// Load reads and validates a YAML configuration file. Omitted fields keep
// their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WrapFatal(err, "Config", "Load", "read "+path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WrapFatal(err, "Config", "Load", "decode "+path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
