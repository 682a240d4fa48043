package graph

import "context"

// Source is the graph-access collaborator. Implementations expose the
// subjects of a named graph and their outgoing predicate/object pairs.
// The pipeline only reads through this interface and never mutates the
// underlying graph.
type Source interface {
	// Subjects returns all non-blank subject URIs of the named graph in
	// ascending order.
	Subjects(ctx context.Context, graphID string) ([]string, error)

	// PredicateObjects returns the outgoing predicate/object pairs of a
	// subject in stable order. An unknown subject returns an empty slice.
	PredicateObjects(ctx context.Context, graphID, subject string) ([]PredicateObject, error)
}
