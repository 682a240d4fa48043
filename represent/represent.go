// Package represent is the representation builder: it produces text,
// structural and relational vectors per entity and fuses a configured
// subset into one hybrid vector. Text vectors come from the sentence
// encoder; graph-derived vectors are read from injected precomputed
// lookups and are never computed here.
package represent

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/c360/semdedup/config"
	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/extractor"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/match"
	"github.com/c360/semdedup/pkg/embedding"
)

// encodeBatchSize bounds the number of surface forms per encoder call.
const encodeBatchSize = 64

// EntityVectors holds every vector produced for one entity. A kind absent
// from the map means the entity is unmatched for that kind.
type EntityVectors struct {
	Entity  *graph.Entity
	Vectors map[embedding.Kind][]float32
}

// Vector returns the entity's vector for a kind.
func (ev *EntityVectors) Vector(kind embedding.Kind) ([]float32, bool) {
	vec, ok := ev.Vectors[kind]
	return vec, ok
}

// Result is one graph's built representations, in extraction order.
type Result struct {
	GraphID     string
	Entities    []*EntityVectors
	ByType      map[string][]*EntityVectors
	Diagnostics []match.Diagnostic
}

// Builder synthesizes entity vectors from the text encoder and the
// precomputed graph-embedding lookups.
type Builder struct {
	cfg      config.Config
	embedder embedding.Embedder
	lookups  map[embedding.Kind]embedding.Lookup
	logger   *slog.Logger
}

// New creates a builder. The embedder may be nil when the text kind is
// disabled; lookups may omit disabled kinds.
func New(cfg config.Config, embedder embedding.Embedder, lookups map[embedding.Kind]embedding.Lookup, logger *slog.Logger) (*Builder, error) {
	if cfg.KindEnabled(embedding.KindText) && embedder == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Builder", "New",
			"text kind enabled without an embedder")
	}
	for _, kind := range cfg.EnabledKinds {
		if kind.IsGraph() && lookups[kind] == nil {
			return nil, errors.WrapFatal(errors.ErrMissingConfig, "Builder", "New",
				fmt.Sprintf("%s kind enabled without a lookup", kind))
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{cfg: cfg, embedder: embedder, lookups: lookups, logger: logger}, nil
}

// Build produces vectors for every extracted entity. Per-entity failures
// (absent lookups, dimension mismatches, empty surface forms) degrade the
// entity and are recorded as diagnostics; only encoder failures abort.
func (b *Builder) Build(ctx context.Context, extraction *extractor.Result) (*Result, error) {
	result := &Result{
		GraphID: extraction.GraphID,
		ByType:  make(map[string][]*EntityVectors),
	}

	textVecs, err := b.encodeTexts(ctx, extraction.Entities)
	if err != nil {
		return nil, err
	}

	for i, entity := range extraction.Entities {
		ev := &EntityVectors{
			Entity:  entity,
			Vectors: make(map[embedding.Kind][]float32),
		}

		if b.cfg.KindEnabled(embedding.KindText) {
			if vec := textVecs[i]; vec != nil {
				ev.Vectors[embedding.KindText] = vec
			} else {
				result.Diagnostics = append(result.Diagnostics, diag(entity,
					"empty surface form, no text vector"))
			}
		}

		for _, kind := range b.cfg.EnabledKinds {
			if !kind.IsGraph() {
				continue
			}
			vec, found, err := b.lookups[kind].Vector(ctx, entity.URI)
			if err != nil {
				return nil, errors.WrapTransient(err, "Builder", "Build",
					fmt.Sprintf("%s lookup for %s", kind, entity.URI))
			}
			if !found {
				result.Diagnostics = append(result.Diagnostics, diag(entity,
					fmt.Sprintf("absent from %s lookup", kind)))
				continue
			}
			ev.Vectors[kind] = vec
		}

		if b.cfg.KindEnabled(embedding.KindHybrid) {
			b.fuse(ev, result)
		}

		result.Entities = append(result.Entities, ev)
		result.ByType[entity.Type] = append(result.ByType[entity.Type], ev)
	}

	b.logger.Info("built representations",
		"graph", extraction.GraphID,
		"entities", len(result.Entities),
		"degraded", len(result.Diagnostics))
	return result, nil
}

// fuse builds the hybrid vector from the text vector and the configured
// graph kind. A missing side falls back to the available vector at unit
// norm; a dimension mismatch degrades the same way instead of failing.
func (b *Builder) fuse(ev *EntityVectors, result *Result) {
	text, hasText := ev.Vectors[embedding.KindText]
	graphVec, hasGraph := ev.Vectors[b.cfg.FusionGraphKind]

	switch {
	case hasText && hasGraph:
		if len(text) != len(graphVec) {
			result.Diagnostics = append(result.Diagnostics, diag(ev.Entity,
				fmt.Sprintf("fusion dimension mismatch: text %d vs %s %d",
					len(text), b.cfg.FusionGraphKind, len(graphVec))))
			ev.Vectors[embedding.KindHybrid] = embedding.Normalize(text)
			return
		}
		ev.Vectors[embedding.KindHybrid] = embedding.Fuse(b.cfg.Alpha, text, graphVec)
	case hasText:
		ev.Vectors[embedding.KindHybrid] = embedding.Normalize(text)
	case hasGraph:
		ev.Vectors[embedding.KindHybrid] = embedding.Normalize(graphVec)
	default:
		result.Diagnostics = append(result.Diagnostics, diag(ev.Entity,
			fmt.Sprintf("%v, excluded from hybrid matching", errors.ErrMissingEmbedding)))
	}
}

// encodeTexts batch-encodes non-empty surface forms. The returned slice is
// index-aligned with the entities; entries for empty surface forms are nil.
// Batches run concurrently bounded by the configured worker count, except
// for stateful encoders, which encode sequentially.
func (b *Builder) encodeTexts(ctx context.Context, entities []*graph.Entity) ([][]float32, error) {
	out := make([][]float32, len(entities))
	if !b.cfg.KindEnabled(embedding.KindText) || len(entities) == 0 {
		return out, nil
	}

	// Collect the entity indexes that actually have text.
	var indexes []int
	var texts []string
	for i, e := range entities {
		if e.SurfaceText != "" {
			indexes = append(indexes, i)
			texts = append(texts, e.SurfaceText)
		}
	}
	if len(texts) == 0 {
		return out, nil
	}

	// A stateful encoder folds every batch into its corpus statistics, so
	// batches must run one at a time in a fixed order or identical inputs
	// come back as different vectors.
	limit := b.cfg.Workers
	if s, ok := b.embedder.(embedding.Stateful); ok && s.Stateful() {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for start := 0; start < len(texts); start += encodeBatchSize {
		end := min(start+encodeBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := b.embedder.Generate(gctx, texts[start:end])
			if err != nil {
				return errors.WrapTransient(err, "Builder", "Build", "encode surface forms")
			}
			if len(vecs) != end-start {
				return errors.WrapInvalid(errors.ErrInvalidData, "Builder", "Build",
					"encoder returned misaligned batch")
			}
			for j, vec := range vecs {
				out[indexes[start+j]] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func diag(entity *graph.Entity, reason string) match.Diagnostic {
	return match.Diagnostic{
		Stage:   "represent",
		GraphID: entity.GraphID,
		Subject: entity.URI,
		Reason:  reason,
	}
}
