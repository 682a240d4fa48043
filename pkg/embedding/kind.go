package embedding

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the representation space a vector was derived from.
type Kind string

const (
	// KindText marks vectors from the sentence encoder over surface text.
	KindText Kind = "text"

	// KindStructural marks vectors from random-walk or matrix-factorization
	// graph embeddings over the adjacency topology.
	KindStructural Kind = "structural"

	// KindRelational marks vectors from translational or bilinear
	// knowledge-graph embeddings trained over the triples.
	KindRelational Kind = "relational"

	// KindHybrid marks vectors fused from a text and a graph vector.
	KindHybrid Kind = "hybrid"
)

// IsValid checks whether the kind is one of the defined constants.
func (k Kind) IsValid() bool {
	switch k {
	case KindText, KindStructural, KindRelational, KindHybrid:
		return true
	default:
		return false
	}
}

// IsGraph reports whether the kind is derived from graph topology rather
// than text. Only graph kinds are eligible as the fusion counterpart.
func (k Kind) IsGraph() bool {
	return k == KindStructural || k == KindRelational
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// UnmarshalJSON validates the kind while decoding.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind := Kind(s)
	if !kind.IsValid() {
		return fmt.Errorf("unknown embedding kind %q", s)
	}
	*k = kind
	return nil
}

// Vector is a fixed-length real-valued embedding tagged with its source kind.
type Vector struct {
	Kind   Kind      `json:"kind"`
	Values []float32 `json:"values"`
}

// Dim returns the vector dimensionality.
func (v Vector) Dim() int {
	return len(v.Values)
}
