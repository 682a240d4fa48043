// Package extractor turns each entity's graph neighborhood into an
// attribute bag and a concatenated text surface form, grouped by declared
// type. Extraction snapshots are immutable; later stages never reach back
// into the source graph.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/match"
	"github.com/c360/semdedup/vocabulary"
)

// Result holds one graph's extracted entities in deterministic subject
// order, plus the same entities bucketed by declared type.
type Result struct {
	GraphID     string
	Entities    []*graph.Entity
	ByType      map[string][]*graph.Entity
	Diagnostics []match.Diagnostic
}

// Extractor builds entity snapshots from a graph-access collaborator.
type Extractor struct {
	src    graph.Source
	logger *slog.Logger
}

// New creates an extractor. A nil logger discards log output.
func New(src graph.Source, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{src: src, logger: logger}
}

// Extract snapshots every non-blank subject in the graph. Entities with no
// literals are still emitted with an empty bag and empty surface form; only
// a failing graph source aborts the batch.
func (e *Extractor) Extract(ctx context.Context, graphID string) (*Result, error) {
	subjects, err := e.src.Subjects(ctx, graphID)
	if err != nil {
		return nil, errors.WrapTransient(err, "Extractor", "Extract", "list subjects for "+graphID)
	}

	result := &Result{
		GraphID: graphID,
		ByType:  make(map[string][]*graph.Entity),
	}

	for _, subject := range subjects {
		entity, diags, err := e.extractEntity(ctx, graphID, subject)
		if err != nil {
			return nil, err
		}
		result.Diagnostics = append(result.Diagnostics, diags...)

		if entity.Type == "" {
			result.Diagnostics = append(result.Diagnostics, match.Diagnostic{
				Stage:   "extractor",
				GraphID: graphID,
				Subject: subject,
				Reason:  "no declared type",
			})
		}
		if entity.Attributes.Len() == 0 {
			e.logger.Debug("entity has no literals", "graph", graphID, "subject", subject)
		}

		result.Entities = append(result.Entities, entity)
		result.ByType[entity.Type] = append(result.ByType[entity.Type], entity)
	}

	e.logger.Info("extracted entities",
		"graph", graphID,
		"entities", len(result.Entities),
		"types", len(result.ByType))
	return result, nil
}

// extractEntity builds one snapshot. Direct literals land in the attribute
// bag; literals found on referenced nodes (including blank nodes) only
// contribute to the surface text.
func (e *Extractor) extractEntity(ctx context.Context, graphID, subject string) (*graph.Entity, []match.Diagnostic, error) {
	entity := &graph.Entity{
		URI:        subject,
		GraphID:    graphID,
		Attributes: graph.NewAttributeBag(),
	}

	var (
		parts   []string
		diags   []match.Diagnostic
		visited = map[string]bool{}
	)

	var traverse func(node string, direct bool) error
	traverse = func(node string, direct bool) error {
		if visited[node] {
			return nil
		}
		visited[node] = true

		pairs, err := e.src.PredicateObjects(ctx, graphID, node)
		if err != nil {
			return errors.WrapTransient(err, "Extractor", "Extract",
				fmt.Sprintf("read predicates of %s", node))
		}

		for _, po := range pairs {
			if po.Predicate == vocabulary.RDFType {
				if direct && entity.Type == "" {
					entity.Type = vocabulary.CompactPredicate(po.Object.Value)
				}
				continue
			}

			curie := vocabulary.CompactPredicate(po.Predicate)
			if vocabulary.IsWeak(curie) {
				continue
			}

			if po.Object.IsIRI {
				if err := traverse(po.Object.Value, false); err != nil {
					return err
				}
				continue
			}

			value := po.Object.Value
			if err := validateLiteral(value); err != nil {
				diags = append(diags, match.Diagnostic{
					Stage:   "extractor",
					GraphID: graphID,
					Subject: node,
					Reason:  fmt.Sprintf("%s: %v", curie, err),
				})
				continue
			}

			if direct {
				entity.Attributes.Add(curie, value)
			}
			parts = append(parts, fmt.Sprintf("%s: %s.", vocabulary.HumanLabel(curie), value))
		}
		return nil
	}

	if err := traverse(subject, true); err != nil {
		return nil, nil, err
	}

	// The type sentence leads the surface form so the encoder sees it first.
	if entity.Type != "" {
		parts = append([]string{fmt.Sprintf("Type: %s.", vocabulary.HumanLabel(entity.Type))}, parts...)
	}
	entity.SurfaceText = strings.Join(parts, " ")
	return entity, diags, nil
}

// validateLiteral rejects literal values the encoder cannot use.
func validateLiteral(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: blank value", errors.ErrMalformedLiteral)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: invalid UTF-8", errors.ErrMalformedLiteral)
	}
	return nil
}
