package vectormath

import (
	"math"
	"testing"
)

func TestCosineSelfSimilarity(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0},
		{0.3, -0.7, 2.1, 5.5},
		{-1, -1, -1},
	}

	for _, v := range vectors {
		sim, ok := Cosine(v, v)
		if !ok {
			t.Fatalf("Cosine(v, v) unexpectedly undefined for %v", v)
		}
		if math.Abs(sim-1.0) > 1e-9 {
			t.Errorf("Expected cosine(v, v) ~1.0, got %v for %v", sim, v)
		}
	}
}

func TestCosineUndefined(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
	}{
		{"Both empty", nil, nil},
		{"First empty", nil, []float64{1, 2}},
		{"Second empty", []float64{1, 2}, nil},
		{"Length mismatch", []float64{1, 2, 3}, []float64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Cosine(tt.a, tt.b); ok {
				t.Errorf("Expected undefined result for %v vs %v", tt.a, tt.b)
			}
		})
	}
}

func TestCosineZeroNorm(t *testing.T) {
	sim, ok := Cosine([]float64{0, 0, 0}, []float64{1, 2, 3})
	if !ok {
		t.Fatal("Zero-norm vector should be comparable, not undefined")
	}
	if sim != 0 {
		t.Errorf("Expected 0 for zero-norm vector, got %v", sim)
	}
}

func TestCosineOrthogonalAndOpposite(t *testing.T) {
	sim, _ := Cosine([]float64{1, 0}, []float64{0, 1})
	if math.Abs(sim) > 1e-9 {
		t.Errorf("Expected ~0 for orthogonal vectors, got %v", sim)
	}

	sim, _ = Cosine([]float64{1, 2}, []float64{-1, -2})
	if math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("Expected ~-1 for opposite vectors, got %v", sim)
	}
}

func TestScoreMonotonicInSimilarity(t *testing.T) {
	recency := 0.5
	prev := math.Inf(-1)
	for sim := -1.0; sim <= 1.0; sim += 0.1 {
		s := Score(sim, recency, false)
		if s < prev {
			t.Fatalf("Score decreased from %v to %v at similarity %v", prev, s, sim)
		}
		prev = s
	}
}

func TestScoreWeights(t *testing.T) {
	if s := Score(1.0, 1.0, false); math.Abs(s-0.95) > 1e-9 {
		t.Errorf("Expected 0.95 for perfect similarity and recency, got %v", s)
	}
	if s := Score(0, 0, false); s != 0 {
		t.Errorf("Expected 0 for zero inputs, got %v", s)
	}
}

func TestScoreOnlineBoostIsNoOp(t *testing.T) {
	// The boost parameter is intentionally inert; both calls must agree.
	with := Score(0.6, 0.4, true)
	without := Score(0.6, 0.4, false)
	if with != without {
		t.Errorf("Online boost changed the score: %v vs %v", with, without)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		expected float64
	}{
		{"NaN", math.NaN(), 0},
		{"Positive infinity", math.Inf(1), 0},
		{"Negative infinity", math.Inf(-1), 0},
		{"Finite passthrough", 0.42, 0.42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
