package jobs

import (
	"math"
	"testing"
	"time"

	"peerlink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestRecencyScore(t *testing.T) {
	now := time.Now()
	window := 90 * 24 * time.Hour

	tests := []struct {
		name         string
		lastActiveAt *time.Time
		expected     float64
		tolerance    float64
	}{
		{"Active now", timePtr(now), 1.0, 0.001},
		{"Active in the future (clock skew)", timePtr(now.Add(time.Hour)), 1.0, 0.001},
		{"Half the window ago", timePtr(now.Add(-45 * 24 * time.Hour)), 0.5, 0.01},
		{"At the window edge", timePtr(now.Add(-90 * 24 * time.Hour)), 0.0, 0.001},
		{"Beyond the window", timePtr(now.Add(-365 * 24 * time.Hour)), 0.0, 0.001},
		{"Never active", nil, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := RecencyScore(tt.lastActiveAt, now, window)
			if math.Abs(score-tt.expected) > tt.tolerance {
				t.Errorf("Expected ~%.2f, got %.4f", tt.expected, score)
			}
		})
	}
}

func TestRecencyScoreDisabledWindow(t *testing.T) {
	now := time.Now()
	if score := RecencyScore(timePtr(now), now, 0); score != 0 {
		t.Errorf("Disabled window should score 0, got %v", score)
	}
}

func makeCandidate(embedding []float64, lastActive *time.Time) models.User {
	return models.User{
		ID:           primitive.NewObjectID(),
		Embedding:    embedding,
		LastActiveAt: lastActive,
	}
}

func TestRankCandidatesSortedAndBounded(t *testing.T) {
	now := time.Now()
	window := 90 * 24 * time.Hour
	target := &models.User{ID: primitive.NewObjectID(), Embedding: []float64{1, 0}}

	candidates := []models.User{
		makeCandidate([]float64{1, 0}, timePtr(now)),                       // perfect match, active
		makeCandidate([]float64{0, 1}, timePtr(now)),                       // orthogonal, active
		makeCandidate([]float64{1, 0}, timePtr(now.Add(-60*24*time.Hour))), // perfect match, stale
		makeCandidate([]float64{-1, 0}, timePtr(now)),                      // opposite, active
		makeCandidate([]float64{0.9, 0.1}, timePtr(now)),                   // near match, active
	}

	items := RankCandidates(target, candidates, now, window, 3)

	if len(items) != 3 {
		t.Fatalf("Expected items bounded to limit 3, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].RecommendationValue > items[i-1].RecommendationValue {
			t.Errorf("Items not sorted descending at position %d", i)
		}
	}
	if items[0].UserID != candidates[0].ID {
		t.Errorf("Perfect active match should rank first")
	}
}

func TestRankCandidatesExcludesUnembeddable(t *testing.T) {
	now := time.Now()
	window := 90 * 24 * time.Hour
	target := &models.User{ID: primitive.NewObjectID(), Embedding: []float64{1, 0, 0}}

	candidates := []models.User{
		makeCandidate([]float64{1, 0, 0}, timePtr(now)),
		makeCandidate(nil, timePtr(now)),           // backfill failed this cycle
		makeCandidate([]float64{1, 0}, timePtr(now)), // dimension mismatch
		makeCandidate([]float64{0, 1, 0}, timePtr(now)),
	}

	items := RankCandidates(target, candidates, now, window, 10)

	if len(items) != 2 {
		t.Fatalf("Expected 2 scorable candidates, got %d", len(items))
	}
	for _, item := range items {
		if item.UserID == candidates[1].ID || item.UserID == candidates[2].ID {
			t.Error("Uncomparable candidates must be excluded from the ranking")
		}
	}
}

func TestRankCandidatesNoTarget(t *testing.T) {
	now := time.Now()
	window := 90 * 24 * time.Hour

	recent := makeCandidate([]float64{1, 2}, timePtr(now))
	stale := makeCandidate([]float64{3, 4}, timePtr(now.Add(-80*24*time.Hour)))
	candidates := []models.User{stale, recent}

	items := RankCandidates(nil, candidates, now, window, 10)

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	// Without a target the score is recency alone
	if items[0].UserID != recent.ID {
		t.Error("Recently active candidate should rank first without a target")
	}
	if items[0].RecommendationValue < 0.99 {
		t.Errorf("Active-now candidate should score ~1.0, got %v", items[0].RecommendationValue)
	}
}

func TestRankCandidatesSanitizesScores(t *testing.T) {
	now := time.Now()
	window := 90 * 24 * time.Hour
	huge := math.MaxFloat64
	target := &models.User{ID: primitive.NewObjectID(), Embedding: []float64{huge, huge}}

	// Norm product overflows to +Inf, cosine dot overflows too; whatever
	// non-finite value falls out must be persisted as 0
	candidates := []models.User{
		makeCandidate([]float64{huge, huge}, timePtr(now)),
	}

	items := RankCandidates(target, candidates, now, window, 10)

	for _, item := range items {
		if math.IsNaN(item.RecommendationValue) || math.IsInf(item.RecommendationValue, 0) {
			t.Errorf("Non-finite recommendation value leaked: %v", item.RecommendationValue)
		}
	}
}

func TestRankCandidatesEmptyPool(t *testing.T) {
	items := RankCandidates(nil, nil, time.Now(), 90*24*time.Hour, 10)
	if len(items) != 0 {
		t.Errorf("Expected no items for an empty pool, got %d", len(items))
	}
}
