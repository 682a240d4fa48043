// Package scorer computes pairwise cosine similarity between two entity
// populations, bucketed by declared type, and keeps the top-k matches per
// source entity above the similarity floor. It is purely geometric: no
// literal information is consulted here.
package scorer

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/match"
	"github.com/c360/semdedup/metric"
	"github.com/c360/semdedup/pkg/embedding"
	"github.com/c360/semdedup/pkg/worker"
	"github.com/c360/semdedup/represent"
)

// Scorer scores one embedding kind across type buckets.
type Scorer struct {
	cfg      config.Config
	kind     embedding.Kind
	logger   *slog.Logger
	registry *metric.Registry

	pairsScored  prometheus.Counter
	pairsKept    prometheus.Counter
	bucketTimers *prometheus.HistogramVec
}

// New creates a scorer for the given embedding kind. registry may be nil.
func New(cfg config.Config, kind embedding.Kind, registry *metric.Registry, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Scorer{cfg: cfg, kind: kind, logger: logger, registry: registry}
	s.registerMetrics()
	return s
}

func (s *Scorer) registerMetrics() {
	if s.registry == nil {
		return
	}
	s.pairsScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dedup_pairs_scored_total",
		Help: "Cross pairs scored by cosine similarity",
	})
	s.pairsKept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dedup_pairs_kept_total",
		Help: "Candidate pairs surviving floor and top-k selection",
	})
	s.bucketTimers = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dedup_bucket_scoring_duration_seconds",
		Help:    "Time spent scoring one type bucket",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// Metric registration conflicts are non-fatal; the scorer works unmetered.
	if s.registry.RegisterCounter("scorer", "dedup_pairs_scored_total", s.pairsScored) != nil ||
		s.registry.RegisterCounter("scorer", "dedup_pairs_kept_total", s.pairsKept) != nil ||
		s.registry.RegisterHistogramVec("scorer", "dedup_bucket_scoring_duration_seconds", s.bucketTimers) != nil {
		s.pairsScored, s.pairsKept, s.bucketTimers = nil, nil, nil
	}
}

// bucket is one unit of scoring work: all source entities of one type
// against the compatible reference entities. Each bucket owns a distinct
// output slot, so buckets run in parallel without locking.
type bucket struct {
	typeName   string
	sources    []*represent.EntityVectors
	references []*represent.EntityVectors
	out        *[]*match.CandidatePair
}

// Score computes candidate pairs between a source and a reference
// population. Pairs are emitted in deterministic order: type buckets
// ascending, then source URI ascending, then rank.
func (s *Scorer) Score(ctx context.Context, source, reference *represent.Result) ([]*match.CandidatePair, error) {
	types := make([]string, 0, len(source.ByType))
	for typeName := range source.ByType {
		types = append(types, typeName)
	}
	sort.Strings(types)

	buckets := make([]bucket, 0, len(types))
	outputs := make([][]*match.CandidatePair, len(types))
	for i, typeName := range types {
		refs := s.compatibleReferences(typeName, reference)
		if len(refs) == 0 {
			continue
		}
		buckets = append(buckets, bucket{
			typeName:   typeName,
			sources:    source.ByType[typeName],
			references: refs,
			out:        &outputs[i],
		})
	}

	pool := worker.NewPool(s.cfg.Workers, max(len(buckets), 1), func(ctx context.Context, b bucket) error {
		start := time.Now()
		*b.out = s.scoreBucket(b)
		if s.bucketTimers != nil {
			s.bucketTimers.WithLabelValues(b.typeName).Observe(time.Since(start).Seconds())
		}
		return nil
	})
	if err := pool.Start(ctx); err != nil {
		return nil, err
	}
	for _, b := range buckets {
		if err := pool.Submit(b); err != nil {
			return nil, err
		}
	}
	pool.Drain()

	// Cancellation lets workers exit before the queue empties. A truncated
	// pair set must fail the run, never pass as a successful score.
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "Scorer", "Score", "score type buckets")
	}

	var pairs []*match.CandidatePair
	for _, out := range outputs {
		pairs = append(pairs, out...)
	}

	if s.pairsKept != nil {
		s.pairsKept.Add(float64(len(pairs)))
	}
	s.logger.Info("scored populations",
		"kind", s.kind,
		"types", len(buckets),
		"pairs", len(pairs))
	return pairs, nil
}

// compatibleReferences returns reference entities whose type matches or is
// explicitly allowed cross-type, in stable type order.
func (s *Scorer) compatibleReferences(typeName string, reference *represent.Result) []*represent.EntityVectors {
	refTypes := make([]string, 0, len(reference.ByType))
	for refType := range reference.ByType {
		if s.cfg.CrossTypeAllowed(typeName, refType) {
			refTypes = append(refTypes, refType)
		}
	}
	sort.Strings(refTypes)

	var refs []*represent.EntityVectors
	for _, refType := range refTypes {
		refs = append(refs, reference.ByType[refType]...)
	}
	return refs
}

// scoreBucket scores every cross pair in one type bucket and keeps the
// top-k per source entity above the floor. Ties break by ascending
// reference URI so runs are reproducible.
func (s *Scorer) scoreBucket(b bucket) []*match.CandidatePair {
	sources := make([]*represent.EntityVectors, len(b.sources))
	copy(sources, b.sources)
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Entity.URI < sources[j].Entity.URI
	})

	var kept []*match.CandidatePair
	for _, src := range sources {
		srcVec, ok := src.Vector(s.kind)
		if !ok {
			continue
		}

		var scored []*match.CandidatePair
		for _, ref := range b.references {
			refVec, ok := ref.Vector(s.kind)
			if !ok {
				continue
			}
			sim := embedding.CosineSimilarity(srcVec, refVec)
			if s.pairsScored != nil {
				s.pairsScored.Inc()
			}
			if sim < s.cfg.SimilarityThreshold {
				continue
			}
			scored = append(scored, &match.CandidatePair{
				Source:     src.Entity,
				Reference:  ref.Entity,
				Kind:       s.kind,
				Similarity: sim,
			})
		}

		sort.Slice(scored, func(i, j int) bool {
			if scored[i].Similarity != scored[j].Similarity {
				return scored[i].Similarity > scored[j].Similarity
			}
			return scored[i].Reference.URI < scored[j].Reference.URI
		})
		if len(scored) > s.cfg.TopK {
			scored = scored[:s.cfg.TopK]
		}
		for rank, pair := range scored {
			pair.Rank = rank + 1
			// Freshly built pairs always advance cleanly.
			_ = pair.MarkEmbeddingScored()
		}
		kept = append(kept, scored...)
	}
	return kept
}
