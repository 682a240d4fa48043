// Package dedup wires the pipeline stages together: extraction,
// representation building, similarity scoring, literal refinement and
// classification, one pass per graph pair. The run either completes and
// returns a report, or fails as a whole; partial results are never emitted.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semdedup/classifier"
	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/extractor"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/match"
	"github.com/c360/semdedup/metric"
	"github.com/c360/semdedup/pkg/embedding"
	"github.com/c360/semdedup/refiner"
	"github.com/c360/semdedup/represent"
	"github.com/c360/semdedup/scorer"
)

// Report is the result of one pipeline run over a graph pair: the ordered
// match records plus the diagnostics for every skipped or degraded entity.
type Report struct {
	RunID          string             `json:"run_id"`
	SourceGraph    string             `json:"source_graph"`
	ReferenceGraph string             `json:"reference_graph"`
	Kind           embedding.Kind     `json:"embedding_kind"`
	StartedAt      time.Time          `json:"started_at"`
	Duration       time.Duration      `json:"duration"`
	Records        []match.Record     `json:"records"`
	Diagnostics    []match.Diagnostic `json:"diagnostics,omitempty"`
	EntitiesScored int                `json:"entities_scored"`
	PairsRetained  int                `json:"pairs_retained"`
}

// Pipeline runs the five stages over a graph pair. Stages are constructed
// once and reused across runs so their metrics register a single time.
type Pipeline struct {
	cfg      config.Config
	src      graph.Source
	builder  *represent.Builder
	scorer   *scorer.Scorer
	refiner  *refiner.Refiner
	class    *classifier.Classifier
	registry *metric.Registry
	logger   *slog.Logger

	runs     prometheus.Counter
	runTimer prometheus.Histogram
}

// New assembles a pipeline. The configuration is validated here; a
// defective configuration fails before any computation begins.
func New(cfg config.Config, src graph.Source, embedder embedding.Embedder,
	lookups map[embedding.Kind]embedding.Lookup, registry *metric.Registry, logger *slog.Logger) (*Pipeline, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Pipeline", "New", "graph source is required")
	}

	builder, err := represent.New(cfg, embedder, lookups, logger)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Pipeline{cfg: cfg, src: src, builder: builder, registry: registry, logger: logger}
	p.scorer = scorer.New(cfg, p.ScoringKind(), registry, logger)
	p.refiner = refiner.New(cfg, registry, logger)
	p.class = classifier.New(cfg, registry, logger)
	p.registerMetrics()
	return p, nil
}

func (p *Pipeline) registerMetrics() {
	if p.registry == nil {
		return
	}
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dedup_runs_total",
		Help: "Completed pipeline runs",
	})
	runTimer := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dedup_run_duration_seconds",
		Help:    "End to end pipeline run duration",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})
	if p.registry.RegisterCounter("pipeline", "dedup_runs_total", runs) == nil &&
		p.registry.RegisterHistogram("pipeline", "dedup_run_duration_seconds", runTimer) == nil {
		p.runs = runs
		p.runTimer = runTimer
	}
}

// ScoringKind returns the embedding kind the scorer compares on: the
// richest enabled kind, hybrid first.
func (p *Pipeline) ScoringKind() embedding.Kind {
	for _, kind := range []embedding.Kind{
		embedding.KindHybrid,
		embedding.KindText,
		embedding.KindStructural,
		embedding.KindRelational,
	} {
		if p.cfg.KindEnabled(kind) {
			return kind
		}
	}
	return embedding.KindText
}

// Run executes one pass over a graph pair and returns the report. Stage
// order is strict: each stage fully consumes its predecessor's output.
func (p *Pipeline) Run(ctx context.Context, sourceGraph, referenceGraph string) (*Report, error) {
	started := time.Now()
	report := &Report{
		RunID:          uuid.NewString(),
		SourceGraph:    sourceGraph,
		ReferenceGraph: referenceGraph,
		Kind:           p.ScoringKind(),
		StartedAt:      started.UTC(),
	}

	ex := extractor.New(p.src, p.logger)
	sourceEntities, err := ex.Extract(ctx, sourceGraph)
	if err != nil {
		return nil, err
	}
	referenceEntities, err := ex.Extract(ctx, referenceGraph)
	if err != nil {
		return nil, err
	}
	report.Diagnostics = append(report.Diagnostics, sourceEntities.Diagnostics...)
	report.Diagnostics = append(report.Diagnostics, referenceEntities.Diagnostics...)

	// An empty side means a wrong graph name far more often than a graph
	// with nothing in it; an empty report would hide that.
	if len(sourceEntities.Entities) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyPopulation, "Pipeline", "Run",
			"extract "+sourceGraph)
	}
	if len(referenceEntities.Entities) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyPopulation, "Pipeline", "Run",
			"extract "+referenceGraph)
	}

	sourceVectors, err := p.builder.Build(ctx, sourceEntities)
	if err != nil {
		return nil, err
	}
	referenceVectors, err := p.builder.Build(ctx, referenceEntities)
	if err != nil {
		return nil, err
	}
	report.Diagnostics = append(report.Diagnostics, sourceVectors.Diagnostics...)
	report.Diagnostics = append(report.Diagnostics, referenceVectors.Diagnostics...)
	report.EntitiesScored = len(sourceVectors.Entities) + len(referenceVectors.Entities)

	pairs, err := p.scorer.Score(ctx, sourceVectors, referenceVectors)
	if err != nil {
		return nil, err
	}
	report.PairsRetained = len(pairs)

	if err := p.refiner.Refine(ctx, pairs); err != nil {
		return nil, err
	}

	records, err := p.class.Classify(ctx, pairs)
	if err != nil {
		return nil, err
	}
	report.Records = records
	report.Duration = time.Since(started)

	if p.runs != nil {
		p.runs.Inc()
		p.runTimer.Observe(report.Duration.Seconds())
	}
	p.logger.Info("pipeline run complete",
		"run_id", report.RunID,
		"source", sourceGraph,
		"reference", referenceGraph,
		"records", len(report.Records),
		"diagnostics", len(report.Diagnostics),
		"duration", report.Duration)
	return report, nil
}
