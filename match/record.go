package match

import (
	"strconv"

	"github.com/c360/semdedup/graph"
)

// PredicateObject is one predicate/object line of an entity snapshot.
type PredicateObject struct {
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// EntitySnapshot captures one side of a match at record-build time.
type EntitySnapshot struct {
	From       string            `json:"from"`
	Subject    string            `json:"subject"`
	Type       string            `json:"type,omitempty"`
	Predicates []PredicateObject `json:"predicates"`
}

// Record is the terminal match artifact. The embedding score is serialized
// as a string so downstream consumers compare it textually without float
// formatting drift.
type Record struct {
	Entities             []EntitySnapshot `json:"entities"`
	SimilarityScore      string           `json:"similarity_score"`
	AvgLiteralSimilarity string           `json:"avg_literal_similarity,omitempty"`
	Status               string           `json:"status,omitempty"`
	DuplicationType      DuplicationType  `json:"duplication_type"`
}

// FormatScore renders a score the way records carry it.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Snapshot flattens an entity's attribute bag into a snapshot, one
// predicate/object line per value in bag order.
func Snapshot(e *graph.Entity) EntitySnapshot {
	snap := EntitySnapshot{
		From:    e.GraphID,
		Subject: e.URI,
		Type:    e.Type,
	}
	for _, pred := range e.Attributes.Predicates() {
		for _, value := range e.Attributes.Values(pred) {
			snap.Predicates = append(snap.Predicates, PredicateObject{
				Predicate: pred,
				Object:    value,
			})
		}
	}
	return snap
}

// NewRecord builds the terminal record for a classified pair.
func NewRecord(p *CandidatePair) Record {
	rec := Record{
		Entities:        []EntitySnapshot{Snapshot(p.Source), Snapshot(p.Reference)},
		SimilarityScore: FormatScore(p.Similarity),
		DuplicationType: p.Label,
	}
	if p.HasLiteralScore {
		rec.AvgLiteralSimilarity = FormatScore(p.LiteralScore)
		rec.Status = p.Status()
	} else if p.Flagged {
		rec.Status = StatusFlagged
	}
	return rec
}
