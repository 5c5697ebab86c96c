package services

import (
	"context"
	"fmt"
	"time"

	"peerlink/internal/database"
	"peerlink/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecommendationStore manages the per-user materialized recommendation
// cache documents.
type RecommendationStore struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewRecommendationStore creates a new recommendation store
func NewRecommendationStore(db *database.MongoDB) *RecommendationStore {
	return &RecommendationStore{
		db:         db,
		collection: db.Collection(database.CollectionRecommendations),
	}
}

// Get returns the cached recommendation document for a user, or nil when
// none has been computed yet.
func (s *RecommendationStore) Get(ctx context.Context, userID primitive.ObjectID) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	return &rec, nil
}

// Upsert fully replaces the cached items for a user and refreshes the
// generation timestamp. The cache is replaced, never appended to.
func (s *RecommendationStore) Upsert(ctx context.Context, userID primitive.ObjectID, items []models.RecommendationItem) error {
	if items == nil {
		items = []models.RecommendationItem{}
	}

	_, err := s.collection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{
			"userId":    userID,
			"items":     items,
			"createdAt": time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recommendation: %w", err)
	}
	return nil
}
