package graph

import (
	"context"
	"sort"
	"sync"
)

// MemorySource is an in-memory Source used for tests and for graphs loaded
// from flat files. Safe for concurrent reads after loading.
type MemorySource struct {
	mu     sync.RWMutex
	graphs map[string]*memoryGraph
}

type memoryGraph struct {
	subjectOrder []string
	triples      map[string][]PredicateObject
}

// NewMemorySource creates an empty in-memory graph source.
func NewMemorySource() *MemorySource {
	return &MemorySource{graphs: make(map[string]*memoryGraph)}
}

// Add appends one triple to a named graph.
func (m *MemorySource) Add(graphID, subject, predicate string, object Term) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.graphs[graphID]
	if !ok {
		g = &memoryGraph{triples: make(map[string][]PredicateObject)}
		m.graphs[graphID] = g
	}
	if _, seen := g.triples[subject]; !seen {
		g.subjectOrder = append(g.subjectOrder, subject)
	}
	g.triples[subject] = append(g.triples[subject], PredicateObject{Predicate: predicate, Object: object})
}

// Subjects returns all non-blank subjects of a graph in ascending URI order.
func (m *MemorySource) Subjects(_ context.Context, graphID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, nil
	}

	subjects := make([]string, 0, len(g.subjectOrder))
	for _, s := range g.subjectOrder {
		if IRI(s).IsBlank() {
			continue
		}
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects, nil
}

// PredicateObjects returns the outgoing pairs of a subject in insertion order.
func (m *MemorySource) PredicateObjects(_ context.Context, graphID, subject string) ([]PredicateObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, nil
	}

	pairs := g.triples[subject]
	out := make([]PredicateObject, len(pairs))
	copy(out, pairs)
	return out, nil
}
