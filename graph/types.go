// Package graph provides the entity data model and the graph-access
// collaborator interface consumed by the deduplication pipeline.
package graph

import "strings"

// Term is an RDF object position value: either an IRI reference (including
// blank nodes) or a literal.
type Term struct {
	Value string `json:"value"`
	IsIRI bool   `json:"is_iri"`
	Lang  string `json:"lang,omitempty"`
}

// IsBlank reports whether the term is a blank node reference.
func (t Term) IsBlank() bool {
	return t.IsIRI && strings.HasPrefix(t.Value, "_:")
}

// IRI constructs an IRI term.
func IRI(value string) Term {
	return Term{Value: value, IsIRI: true}
}

// Literal constructs a literal term.
func Literal(value string) Term {
	return Term{Value: value}
}

// LangLiteral constructs a language-tagged literal term.
func LangLiteral(value, lang string) Term {
	return Term{Value: value, Lang: lang}
}

// PredicateObject is one outgoing predicate/object pair of a subject.
type PredicateObject struct {
	Predicate string `json:"predicate"` // full predicate IRI
	Object    Term   `json:"object"`
}

// AttributeBag holds an entity's predicate to literal-values mapping in
// first-seen predicate order. Multivalued predicates keep their values as an
// ordered sequence. Predicates with no literal are never present.
type AttributeBag struct {
	order  []string
	values map[string][]string
}

// NewAttributeBag creates an empty attribute bag.
func NewAttributeBag() *AttributeBag {
	return &AttributeBag{values: make(map[string][]string)}
}

// Add appends a literal value under a predicate, preserving insertion order.
func (b *AttributeBag) Add(predicate, value string) {
	if _, seen := b.values[predicate]; !seen {
		b.order = append(b.order, predicate)
	}
	b.values[predicate] = append(b.values[predicate], value)
}

// Values returns the ordered literal values for a predicate.
func (b *AttributeBag) Values(predicate string) []string {
	return b.values[predicate]
}

// First returns the first literal value for a predicate.
func (b *AttributeBag) First(predicate string) (string, bool) {
	vals := b.values[predicate]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Has reports whether the bag holds at least one value for the predicate.
func (b *AttributeBag) Has(predicate string) bool {
	return len(b.values[predicate]) > 0
}

// Predicates returns the predicates in insertion order.
func (b *AttributeBag) Predicates() []string {
	return b.order
}

// Len returns the number of distinct predicates in the bag.
func (b *AttributeBag) Len() int {
	return len(b.order)
}

// Entity is an immutable snapshot of one graph entity taken at extraction
// time: its URI, origin graph, declared type (compacted), attribute bag and
// the concatenated text surface form fed to the sentence encoder.
type Entity struct {
	URI         string
	GraphID     string
	Type        string
	Attributes  *AttributeBag
	SurfaceText string
}
