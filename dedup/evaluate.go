package dedup

import (
	"github.com/c360/semdedup/match"
)

// GoldPair is one known duplicate in a gold standard, identified by the
// subject URIs on each side.
type GoldPair struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
}

// Evaluation summarizes a record set against a gold standard. A record
// counts as a predicted duplicate unless it was classified conflict.
type Evaluation struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

// Evaluate scores match records against gold pairs by subject URI.
func Evaluate(records []match.Record, gold []GoldPair) Evaluation {
	goldSet := make(map[GoldPair]bool, len(gold))
	for _, g := range gold {
		goldSet[g] = true
	}

	var eval Evaluation
	predicted := make(map[GoldPair]bool)
	for _, rec := range records {
		if rec.DuplicationType == match.Conflict || len(rec.Entities) < 2 {
			continue
		}
		key := GoldPair{Source: rec.Entities[0].Subject, Reference: rec.Entities[1].Subject}
		if predicted[key] {
			continue
		}
		predicted[key] = true

		if goldSet[key] {
			eval.TruePositives++
		} else {
			eval.FalsePositives++
		}
	}
	for g := range goldSet {
		if !predicted[g] {
			eval.FalseNegatives++
		}
	}

	if eval.TruePositives+eval.FalsePositives > 0 {
		eval.Precision = float64(eval.TruePositives) / float64(eval.TruePositives+eval.FalsePositives)
	}
	if eval.TruePositives+eval.FalseNegatives > 0 {
		eval.Recall = float64(eval.TruePositives) / float64(eval.TruePositives+eval.FalseNegatives)
	}
	if eval.Precision+eval.Recall > 0 {
		eval.F1 = 2 * eval.Precision * eval.Recall / (eval.Precision + eval.Recall)
	}
	return eval
}
