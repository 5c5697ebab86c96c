package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecommendationItem is one ranked entry in a cached recommendation list.
// Insertion order is rank order (descending recommendation value).
type RecommendationItem struct {
	UserID              primitive.ObjectID `bson:"userId" json:"user_id"`
	RecommendationValue float64            `bson:"recommendationValue" json:"recommendation_value"`
}

// Recommendation is the per-user materialized cache document. One document
// per target user; every successful compute fully replaces Items and
// refreshes CreatedAt. It is a cache, not a log.
type Recommendation struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID   `bson:"userId" json:"user_id"`
	Items     []RecommendationItem `bson:"items" json:"items"`
	CreatedAt time.Time            `bson:"createdAt" json:"created_at"`
}

// IsFresh reports whether the document is still trusted at the given
// instant under the cache TTL.
func (r *Recommendation) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.CreatedAt) <= ttl
}

// ComputeJob is the payload of a recommendation compute request. An empty
// UserID means a general, non-personalized candidate listing.
type ComputeJob struct {
	UserID string `json:"user_id,omitempty"`
	Limit  int    `json:"limit"`
}

// EmbedJob asks the worker to (re)generate the embedding for one user,
// e.g. after a profile edit. This queue retries with backoff.
type EmbedJob struct {
	UserID string `json:"user_id"`
}
