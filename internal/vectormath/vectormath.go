package vectormath

import "math"

// Weights of the composite recommendation score.
const (
	SimilarityWeight = 0.8
	RecencyWeight    = 0.15
)

// Cosine returns the cosine similarity of two vectors. ok is false when the
// vectors cannot be compared (either empty or of different lengths); callers
// must exclude such pairs from ranking rather than treat them as zero
// similarity. A zero norm yields 0 with ok=true to avoid division by zero.
func Cosine(a, b []float64) (similarity float64, ok bool) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, true
	}
	return dot / denom, true
}

// Score blends semantic similarity with a pre-normalized [0,1] recency
// score. The online boost flag is accepted but not folded into the result;
// callers that compute it get no boost. Kept as-is so the signal can be
// revived without changing call sites.
func Score(similarity, recencyScore float64, onlineBoost bool) float64 {
	return similarity*SimilarityWeight + recencyScore*RecencyWeight
}

// Sanitize coerces non-finite values to 0 before persistence.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
