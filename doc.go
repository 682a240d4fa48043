// Package semdedup finds candidate duplicate entity pairs across RDF-style
// knowledge graphs and classifies each pair into a duplication category.
//
// # Pipeline
//
// A run is one strictly ordered pass over a graph pair:
//
//	┌─────────────────────────────────────┐
//	│        Attribute Extractor          │  entity snapshots: attribute
//	│            (extractor)              │  bags + text surface forms
//	└─────────────────────────────────────┘
//	           ↓
//	┌─────────────────────────────────────┐
//	│       Representation Builder        │  text / structural / relational
//	│            (represent)              │  vectors, hybrid fusion
//	└─────────────────────────────────────┘
//	           ↓
//	┌─────────────────────────────────────┐
//	│         Similarity Scorer           │  per-type cosine buckets,
//	│             (scorer)                │  floor + top-k selection
//	└─────────────────────────────────────┘
//	           ↓
//	┌─────────────────────────────────────┐
//	│          Literal Refiner            │  exact / edit-distance /
//	│             (refiner)               │  acronym, adaptive bar
//	└─────────────────────────────────────┘
//	           ↓
//	┌─────────────────────────────────────┐
//	│       Classifier & Formatter        │  true_duplicate, near_exact,
//	│            (classifier)             │  similar, conflict
//	└─────────────────────────────────────┘
//
// The dedup package wires the stages together and emits the report; the
// cmd/semdedup binary is the batch entry point.
//
// # Representations
//
// Text vectors come from a sentence encoder (pkg/embedding, an
// OpenAI-compatible HTTP service or a lexical fallback). Structural and
// relational vectors are precomputed lookups keyed by entity URI, loaded
// from JSON exports, sqlite-vec stores or NATS KV, or trained in-process
// from the graph adjacency (pkg/graphembed). The hybrid vector is
// alpha*normalize(text) + (1-alpha)*normalize(graph).
//
// # Determinism
//
// For fixed inputs, configuration and seeds, two runs produce identical
// match records in identical order: subjects are iterated sorted, top-k
// ties break by ascending URI, and stochastic trainers are seeded.
package semdedup
