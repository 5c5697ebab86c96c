package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a member profile as stored in the users collection. This service
// reads profile text and activity signals and writes back only the embedding
// fields; profile CRUD is owned by the account service.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email       string             `bson:"email" json:"email"`
	DisplayName string             `bson:"displayName" json:"display_name"`

	// Profile fields used to build the embedding input text
	Profession    string   `bson:"profession,omitempty" json:"profession,omitempty"`
	Hobbies       []string `bson:"hobbies,omitempty" json:"hobbies,omitempty"`
	Bio           string   `bson:"bio,omitempty" json:"bio,omitempty"`
	AcademicLevel string   `bson:"academicLevel,omitempty" json:"academic_level,omitempty"`
	FieldOfStudy  string   `bson:"fieldOfStudy,omitempty" json:"field_of_study,omitempty"`

	// Access gates eligibility for the candidate pool
	Access bool `bson:"access" json:"access"`

	LastActiveAt *time.Time `bson:"lastActiveAt,omitempty" json:"last_active_at,omitempty"`

	// Embedding vector, absent until first computed
	Embedding          []float64  `bson:"embedding,omitempty" json:"-"`
	EmbeddingUpdatedAt *time.Time `bson:"embeddingUpdatedAt,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

// EmbeddingText builds the multi-line input text sent to the embedding
// service. Empty fields render as blank lines so the layout stays stable
// across profiles.
func (u *User) EmbeddingText() string {
	lines := []string{
		u.DisplayName,
		u.Profession,
		strings.Join(u.Hobbies, ", "),
		u.Bio,
		u.AcademicLevel,
		u.FieldOfStudy,
	}
	return strings.Join(lines, "\n")
}

// HasEmbedding reports whether the profile already carries a vector.
func (u *User) HasEmbedding() bool {
	return len(u.Embedding) > 0
}

// CandidateResponse is a profile row in the recommendation API response.
// RecommendationValue is nil on fallback pages, where no composite score
// has been computed yet.
type CandidateResponse struct {
	ID                  string     `json:"id"`
	DisplayName         string     `json:"display_name"`
	Profession          string     `json:"profession,omitempty"`
	Hobbies             []string   `json:"hobbies,omitempty"`
	Bio                 string     `json:"bio,omitempty"`
	AcademicLevel       string     `json:"academic_level,omitempty"`
	FieldOfStudy        string     `json:"field_of_study,omitempty"`
	LastActiveAt        *time.Time `json:"last_active_at,omitempty"`
	RecommendationValue *float64   `json:"recommendation_value,omitempty"`
}

// ToCandidateResponse converts a User to the API row shape.
func (u *User) ToCandidateResponse() CandidateResponse {
	return CandidateResponse{
		ID:            u.ID.Hex(),
		DisplayName:   u.DisplayName,
		Profession:    u.Profession,
		Hobbies:       u.Hobbies,
		Bio:           u.Bio,
		AcademicLevel: u.AcademicLevel,
		FieldOfStudy:  u.FieldOfStudy,
		LastActiveAt:  u.LastActiveAt,
	}
}
