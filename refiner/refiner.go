// Package refiner re-scores candidate pairs on literal evidence: exact and
// normalized matches, edit-distance ratio and an acronym-expansion check
// over the predicates both entities share. The acceptance bar adapts to the
// shared-predicate count; pairs failing the bar are flagged, never dropped.
package refiner

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/match"
	"github.com/c360/semdedup/metric"
	"github.com/c360/semdedup/pkg/worker"
)

// acronymScore is the floor a satisfied acronym expansion lifts a value
// comparison to. Initials carry real signal but are weaker than a full
// string match, so the lift stays below the near-exact band.
const acronymScore = 0.8

// Refiner computes literal similarity for candidate pairs in place.
type Refiner struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *metric.Registry

	pairsRefined prometheus.Counter
	pairsFlagged prometheus.Counter
}

// New creates a refiner. registry may be nil.
func New(cfg config.Config, registry *metric.Registry, logger *slog.Logger) *Refiner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Refiner{cfg: cfg, logger: logger, registry: registry}
	r.registerMetrics()
	return r
}

func (r *Refiner) registerMetrics() {
	if r.registry == nil {
		return
	}
	r.pairsRefined = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dedup_pairs_refined_total",
		Help: "Candidate pairs re-scored on literal evidence",
	})
	r.pairsFlagged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dedup_pairs_flagged_total",
		Help: "Candidate pairs demoted by the adaptive literal bar",
	})
	if r.registry.RegisterCounter("refiner", "dedup_pairs_refined_total", r.pairsRefined) != nil ||
		r.registry.RegisterCounter("refiner", "dedup_pairs_flagged_total", r.pairsFlagged) != nil {
		r.pairsRefined, r.pairsFlagged = nil, nil
	}
}

// Refine scores every pair's shared literals and applies the adaptive bar.
// Pairs refine independently, so they run on the worker pool; each pair
// owns its own score fields and no locking is needed.
func (r *Refiner) Refine(ctx context.Context, pairs []*match.CandidatePair) error {
	pool := worker.NewPool(r.cfg.Workers, max(len(pairs), 1), func(_ context.Context, p *match.CandidatePair) error {
		r.refinePair(p)
		return nil
	})
	if err := pool.Start(ctx); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := pool.Submit(p); err != nil {
			return err
		}
	}
	pool.Drain()

	// Cancellation lets workers exit with pairs still queued; those pairs
	// would reach the classifier unrefined, so the stage fails instead.
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "Refiner", "Refine", "refine candidate pairs")
	}

	flagged := 0
	for _, p := range pairs {
		if p.Flagged {
			flagged++
		}
	}
	if r.pairsRefined != nil {
		r.pairsRefined.Add(float64(len(pairs)))
		r.pairsFlagged.Add(float64(flagged))
	}
	r.logger.Info("refined pairs", "pairs", len(pairs), "flagged", flagged)
	return nil
}

func (r *Refiner) refinePair(p *match.CandidatePair) {
	shared := sharedPredicates(p)

	if len(shared) == 0 {
		// No literal evidence either way; the classifier falls back to the
		// embedding-only path.
		_ = p.MarkLiteralRefined()
		return
	}

	var weightedSum, weightTotal float64
	for _, pred := range shared {
		score := bestValueScore(p.Source.Attributes.Values(pred), p.Reference.Attributes.Values(pred))
		p.SharedPredicates = append(p.SharedPredicates, match.PredicateScore{
			Predicate: pred,
			Score:     score,
		})

		weight := 1.0
		if w, ok := r.cfg.PredicateWeights[pred]; ok {
			weight = w
		}
		weightedSum += score * weight
		weightTotal += weight
	}

	if weightTotal > 0 {
		p.LiteralScore = weightedSum / weightTotal
		p.HasLiteralScore = true
	}

	bar := r.cfg.LiteralThresholds.BarFor(len(shared))
	if p.LiteralScore < bar {
		p.Flagged = true
	}
	_ = p.MarkLiteralRefined()
}

// sharedPredicates returns the predicates present in both bags, ascending.
func sharedPredicates(p *match.CandidatePair) []string {
	var shared []string
	for _, pred := range p.Source.Attributes.Predicates() {
		if p.Reference.Attributes.Has(pred) {
			shared = append(shared, pred)
		}
	}
	sort.Strings(shared)
	return shared
}

// bestValueScore compares every source value against every reference value
// for one predicate and keeps the best score, so multivalued predicates
// match on their closest value.
func bestValueScore(sourceVals, refVals []string) float64 {
	best := 0.0
	for _, sv := range sourceVals {
		for _, rv := range refVals {
			if score := ValueSimilarity(sv, rv); score > best {
				best = score
			}
		}
	}
	return best
}

// ValueSimilarity scores two literal values in [0,1]: exact or
// case/whitespace-normalized matches score 1, acronym expansions lift the
// score to at least acronymScore, everything else scores the normalized
// Levenshtein ratio.
func ValueSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	na, nb := normalizeValue(a), normalizeValue(b)
	if na == nb {
		return 1
	}

	score := levenshteinRatio(na, nb)
	if acronymMatch(na, nb) && score < acronymScore {
		score = acronymScore
	}
	return score
}

// normalizeValue lowercases and collapses internal whitespace.
func normalizeValue(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// levenshteinRatio converts edit distance to a similarity in [0,1].
func levenshteinRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// acronymMatch reports whether one value reads as initials of the other:
// token counts agree and each token either matches outright or is a single
// initial (optionally dotted) of its counterpart, with at least one actual
// initial present. "j. doe" matches "john doe"; "jane doe" does not.
func acronymMatch(a, b string) bool {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) != len(tb) || len(ta) == 0 {
		return false
	}

	initials := 0
	for i := range ta {
		x, y := ta[i], tb[i]
		if x == y {
			continue
		}
		if isInitialOf(x, y) || isInitialOf(y, x) {
			initials++
			continue
		}
		return false
	}
	return initials > 0
}

// isInitialOf reports whether short is the one-letter initial of full.
func isInitialOf(short, full string) bool {
	short = strings.TrimSuffix(short, ".")
	if len([]rune(short)) != 1 || full == "" {
		return false
	}
	return strings.HasPrefix(full, short)
}
