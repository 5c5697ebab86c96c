package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"peerlink/internal/database"
	"peerlink/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUserNotFound signals a genuinely unknown user id, distinct from a user
// that simply has no recommendations yet.
var ErrUserNotFound = errors.New("user not found")

// EligibleOrder selects the sort key for eligible-pool listings
type EligibleOrder int

const (
	OrderByID EligibleOrder = iota // stable id-ascending, for general listings
	OrderByRecency                 // most recently active first, for fallbacks
)

// UserService is the candidate repository: read access to the user-profile
// store plus write access limited to the embedding fields.
type UserService struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewUserService creates a new user service
func NewUserService(db *database.MongoDB) *UserService {
	return &UserService{
		db:         db,
		collection: db.Collection(database.CollectionUsers),
	}
}

// GetUserByID retrieves a user by their id
func (s *UserService) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUsersByIDs batch-fetches users for enrichment. Missing ids are simply
// absent from the result; callers preserve their own ordering.
func (s *UserService) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	if len(ids) == 0 {
		return map[primitive.ObjectID]*models.User{}, nil
	}

	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make(map[primitive.ObjectID]*models.User, len(ids))
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		u := user
		users[u.ID] = &u
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// ListEligible returns up to `limit` users from the eligible pool
// (access = true), excluding `excludeID` when set, starting after `cursor`
// when set. Callers request limit+1 to detect a following page.
func (s *UserService) ListEligible(ctx context.Context, excludeID, cursor *primitive.ObjectID, limit int, order EligibleOrder) ([]models.User, error) {
	filter := bson.M{"access": true}
	if excludeID != nil {
		filter["_id"] = bson.M{"$ne": *excludeID}
	}

	var sort bson.D
	switch order {
	case OrderByRecency:
		sort = bson.D{{Key: "lastActiveAt", Value: -1}, {Key: "_id", Value: 1}}
		if cursor != nil {
			// Recency ordering still pages by id; ties resolve by the id key
			cursorUser, err := s.GetUserByID(ctx, *cursor)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve cursor: %w", err)
			}
			filter["$or"] = bson.A{
				bson.M{"lastActiveAt": bson.M{"$lt": cursorUser.LastActiveAt}},
				bson.M{"lastActiveAt": cursorUser.LastActiveAt, "_id": bson.M{"$gt": *cursor}},
			}
		}
	default:
		sort = bson.D{{Key: "_id", Value: 1}}
		if cursor != nil {
			if excludeID != nil {
				filter["_id"] = bson.M{"$gt": *cursor, "$ne": *excludeID}
			} else {
				filter["_id"] = bson.M{"$gt": *cursor}
			}
		}
	}

	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	dbCursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible users: %w", err)
	}
	defer dbCursor.Close(ctx)

	var users []models.User
	if err := dbCursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode eligible users: %w", err)
	}

	return users, nil
}

// SaveEmbedding persists a computed embedding vector onto a user record.
// Regenerating the same embedding for the same text is idempotent, so
// concurrent backfills of one candidate are last-write-wins by design of
// the data, not by locking.
func (s *UserService) SaveEmbedding(ctx context.Context, userID primitive.ObjectID, embedding []float64) error {
	now := time.Now()
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"embedding":          embedding,
			"embeddingUpdatedAt": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}
