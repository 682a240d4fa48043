// Package match holds the shared pair and record types flowing through the
// deduplication pipeline. A CandidatePair is created by the scorer, refined
// in place by the literal refiner and read by the classifier; a Record is
// the terminal, serializable artifact handed to downstream consumers.
package match

import (
	"fmt"

	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/pkg/embedding"
)

// DuplicationType is the categorical outcome of classification.
type DuplicationType string

const (
	TrueDuplicate DuplicationType = "true_duplicate"
	NearExact     DuplicationType = "near_exact"
	Similar       DuplicationType = "similar"
	Conflict      DuplicationType = "conflict"
)

// Pair status values carried into the Record.
const (
	StatusAccepted = "accepted"
	StatusFlagged  = "flagged"
)

// State tracks a pair's progress through the pipeline. Pairs only move
// forward: Unscored, EmbeddingScored, LiteralRefined, Classified.
type State int

const (
	StateUnscored State = iota
	StateEmbeddingScored
	StateLiteralRefined
	StateClassified
)

func (s State) String() string {
	switch s {
	case StateUnscored:
		return "unscored"
	case StateEmbeddingScored:
		return "embedding_scored"
	case StateLiteralRefined:
		return "literal_refined"
	case StateClassified:
		return "classified"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PredicateScore is the literal similarity computed for one shared predicate.
type PredicateScore struct {
	Predicate string  `json:"predicate"`
	Score     float64 `json:"score"`
}

// CandidatePair links a source entity to a reference entity with the scores
// accumulated along the pipeline. The entity snapshots are read-only; stages
// write only the fields they own.
type CandidatePair struct {
	Source    *graph.Entity
	Reference *graph.Entity

	// Kind is the embedding kind that produced Similarity.
	Kind embedding.Kind

	// Similarity is the raw cosine score from the scorer.
	Similarity float64

	// Rank is the pair's position among the source entity's retained
	// matches, 1-based.
	Rank int

	// LiteralScore is the weighted aggregate over shared predicates.
	// Valid only when HasLiteralScore is true (pairs with no shared
	// predicates never get one).
	LiteralScore    float64
	HasLiteralScore bool

	// SharedPredicates holds the per-predicate scores, sorted by predicate.
	SharedPredicates []PredicateScore

	// Flagged marks pairs that failed the adaptive literal bar. Flagged
	// pairs stay in the run so the classifier can route them to conflict
	// or review instead of silently dropping them.
	Flagged bool

	// Label is set by the classifier.
	Label DuplicationType

	state State
}

// State returns the pair's current pipeline state.
func (p *CandidatePair) State() State { return p.state }

// MarkEmbeddingScored advances a fresh pair past the scorer.
func (p *CandidatePair) MarkEmbeddingScored() error {
	return p.advance(StateUnscored, StateEmbeddingScored)
}

// MarkLiteralRefined advances a scored pair past the refiner.
func (p *CandidatePair) MarkLiteralRefined() error {
	return p.advance(StateEmbeddingScored, StateLiteralRefined)
}

// MarkClassified moves a refined pair to its terminal state.
func (p *CandidatePair) MarkClassified(label DuplicationType) error {
	if err := p.advance(StateLiteralRefined, StateClassified); err != nil {
		return err
	}
	p.Label = label
	return nil
}

func (p *CandidatePair) advance(from, to State) error {
	if p.state != from {
		return fmt.Errorf("pair %s/%s: cannot move %s to %s",
			p.Source.URI, p.Reference.URI, p.state, to)
	}
	p.state = to
	return nil
}

// Status returns the pair status string for the Record.
func (p *CandidatePair) Status() string {
	if p.Flagged {
		return StatusFlagged
	}
	return StatusAccepted
}

// Diagnostic records a skipped or degraded entity or pair and the reason.
// Diagnostics accompany the record set; they never halt a run.
type Diagnostic struct {
	Stage   string `json:"stage"`
	GraphID string `json:"graph_id,omitempty"`
	Subject string `json:"subject,omitempty"`
	Reason  string `json:"reason"`
}

func (d Diagnostic) String() string {
	if d.Subject == "" {
		return fmt.Sprintf("%s: %s", d.Stage, d.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Stage, d.Subject, d.Reason)
}
