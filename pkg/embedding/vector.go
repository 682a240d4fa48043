package embedding

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
//
// Returns a value between -1 and 1, where 1 means identical direction,
// 0 means orthogonal and -1 means opposite. Mismatched or empty vectors
// score 0, keeping degenerate inputs out of the candidate set instead of
// failing the batch.
//
// Formula: cos(θ) = (A · B) / (||A|| × ||B||)
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct float64
	var magnitudeA float64
	var magnitudeB float64

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		magnitudeA += float64(a[i]) * float64(a[i])
		magnitudeB += float64(b[i]) * float64(b[i])
	}

	if magnitudeA == 0.0 || magnitudeB == 0.0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(magnitudeA) * math.Sqrt(magnitudeB))
}

// Magnitude computes the L2 norm of a vector.
func Magnitude(v []float32) float64 {
	sum := 0.0
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// Normalize returns a new vector scaled to unit length. A zero vector is
// returned as a copy unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	mag := Magnitude(v)
	if mag == 0.0 {
		copy(out, v)
		return out
	}
	for i, val := range v {
		out[i] = float32(float64(val) / mag)
	}
	return out
}

// Fuse combines a text vector and a graph vector into a hybrid vector:
//
//	hybrid = alpha*normalize(text) + (1-alpha)*normalize(graph)
//
// Both sides are unit-normalized first so the mix weight alone controls the
// text/graph balance. The inputs must share the same dimensionality; the
// caller handles mismatches before fusing.
func Fuse(alpha float64, text, graph []float32) []float32 {
	tn := Normalize(text)
	gn := Normalize(graph)

	out := make([]float32, len(tn))
	for i := range out {
		out[i] = float32(alpha*float64(tn[i]) + (1-alpha)*float64(gn[i]))
	}
	return out
}
