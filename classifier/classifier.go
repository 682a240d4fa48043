// Package classifier assigns each refined candidate pair a duplication
// label by combining its embedding similarity with its literal evidence,
// then formats the terminal match records. An active contradiction on a
// shared predicate forces conflict no matter how high the embedding score.
package classifier

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/match"
	"github.com/c360/semdedup/metric"
)

// Classifier labels refined pairs and builds match records.
type Classifier struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *metric.Registry

	labels *prometheus.CounterVec
}

// New creates a classifier. registry may be nil.
func New(cfg config.Config, registry *metric.Registry, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Classifier{cfg: cfg, logger: logger, registry: registry}
	c.registerMetrics()
	return c
}

func (c *Classifier) registerMetrics() {
	if c.registry == nil {
		return
	}
	labels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_records_total",
		Help: "Match records emitted by duplication type",
	}, []string{"duplication_type"})
	if c.registry.RegisterCounterVec("classifier", "dedup_records_total", labels) == nil {
		c.labels = labels
	}
}

// Classify labels every pair and returns the match records in input order.
// Input order is the scorer's deterministic order, so the output collection
// is reproducible run to run.
func (c *Classifier) Classify(_ context.Context, pairs []*match.CandidatePair) ([]match.Record, error) {
	records := make([]match.Record, 0, len(pairs))
	for _, p := range pairs {
		label := c.Label(p)
		if err := p.MarkClassified(label); err != nil {
			return nil, errors.WrapInvalid(err, "Classifier", "Classify", "pair not refined")
		}
		if c.labels != nil {
			c.labels.WithLabelValues(string(label)).Inc()
		}
		records = append(records, match.NewRecord(p))
	}

	c.logger.Info("classified pairs", "records", len(records))
	return records, nil
}

// Label decides a pair's duplication type.
//
// With literal evidence: a contradicted shared predicate forces conflict;
// otherwise high embedding plus strongly corroborating literals is a true
// duplicate, and the literal score alone separates near-exact, similar and
// conflict. Flagged pairs are capped at similar so they route to review
// instead of auto-acceptance. Without literal evidence the embedding score
// is banded the same way, but true duplicate is unreachable (exactness
// requires literal corroboration) and so is conflict: with nothing
// actively disagreeing, a weak pair is flagged for review, not declared
// contradictory.
func (c *Classifier) Label(p *match.CandidatePair) match.DuplicationType {
	bands := c.cfg.Classification

	if p.HasLiteralScore {
		if c.contradicted(p) {
			return match.Conflict
		}
		switch {
		case !p.Flagged && p.Similarity >= bands.TrueDuplicateEmbedding && p.LiteralScore >= bands.TrueDuplicateLiteral:
			return match.TrueDuplicate
		case !p.Flagged && p.LiteralScore >= bands.NearExactLiteral:
			return match.NearExact
		case p.LiteralScore >= bands.SimilarLiteral:
			return match.Similar
		default:
			return match.Conflict
		}
	}

	switch {
	case p.Similarity >= bands.NearExactLiteral:
		return match.NearExact
	case p.Similarity >= bands.SimilarLiteral:
		return match.Similar
	default:
		p.Flagged = true
		return match.Similar
	}
}

// contradicted reports whether any shared predicate actively disagrees.
func (c *Classifier) contradicted(p *match.CandidatePair) bool {
	for _, ps := range p.SharedPredicates {
		if ps.Score <= c.cfg.Classification.ConflictContradiction {
			return true
		}
	}
	return false
}
