// Package store holds user documents in three gender collections and
// resolves identities across them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/raushankrgupta/dreamsoul/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when an email or username is already taken.
	ErrDuplicate = errors.New("email or username already exists")
	// ErrCapacity is returned when an append would exceed a content cap.
	ErrCapacity = errors.New("content limit reached")
)

// Bucket is the name of a gender collection.
type Bucket string

const (
	BucketMale   Bucket = "male_users"
	BucketFemale Bucket = "female_users"
	BucketOther  Bucket = "other_users"
)

// BucketOrder is the fixed order in which buckets are searched.
var BucketOrder = []Bucket{BucketMale, BucketFemale, BucketOther}

// BucketFor maps a gender to its collection.
func BucketFor(g models.Gender) (Bucket, bool) {
	switch g {
	case models.GenderMale:
		return BucketMale, true
	case models.GenderFemale:
		return BucketFemale, true
	case models.GenderOther:
		return BucketOther, true
	}
	return "", false
}

// Match is a resolved user together with the collection that owns it.
type Match struct {
	User   *models.User
	Bucket Bucket
}

// UserStore is the credential store plus identity resolver.
type UserStore interface {
	ResolveByEmail(ctx context.Context, email string) (*Match, error)
	ResolveByUsername(ctx context.Context, username string) (*Match, error)
	SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error)

	Create(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, b Bucket, id primitive.ObjectID) error

	UpdateProfile(ctx context.Context, b Bucket, id primitive.ObjectID, p models.ProfileUpdate) (*models.User, error)
	SetProfilePicture(ctx context.Context, b Bucket, id primitive.ObjectID, url string) error
	TouchPresence(ctx context.Context, b Bucket, id primitive.ObjectID, status string, at time.Time) error

	AppendVoice(ctx context.Context, b Bucket, id primitive.ObjectID, v models.Voice, maxVoices int) error
	AppendHobby(ctx context.Context, b Bucket, id primitive.ObjectID, h models.Hobby, maxVideo int) error
	AppendThought(ctx context.Context, b Bucket, id primitive.ObjectID, t models.Thought) error
	AppendPhoto(ctx context.Context, b Bucket, id primitive.ObjectID, p models.Photo) error
	RemoveContent(ctx context.Context, b Bucket, id primitive.ObjectID, kind models.ContentType, contentID primitive.ObjectID) (models.RemovedContent, error)

	Ping(ctx context.Context) error
}

// Orphan is a blob whose delete failed after its metadata was removed.
type Orphan struct {
	ID           primitive.ObjectID `bson:"_id"`
	PublicID     string             `bson:"publicId"`
	ResourceType string             `bson:"resourceType"`
	UserID       primitive.ObjectID `bson:"userId"`
	URL          string             `bson:"url"`
	LastError    string             `bson:"lastError"`
	Attempts     int                `bson:"attempts"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// OrphanLog records failed blob deletions for later reconciliation.
type OrphanLog interface {
	Record(ctx context.Context, o Orphan) error
	// List returns up to limit orphans, oldest first, skipping those with
	// maxAttempts or more attempts. A maxAttempts of zero skips none.
	List(ctx context.Context, limit, maxAttempts int) ([]Orphan, error)
	Resolve(ctx context.Context, id primitive.ObjectID) error
	MarkAttempt(ctx context.Context, id primitive.ObjectID, lastErr string) error
}
