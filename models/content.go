package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hobby media types.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Content caps.
const (
	MaxVoices       = 5
	MaxVideoHobbies = 5
)

// ContentType names one of the per-user content lists.
type ContentType string

const (
	ContentVoice   ContentType = "voice"
	ContentHobby   ContentType = "hobby"
	ContentThought ContentType = "thought"
	ContentPhoto   ContentType = "photo"
)

// Field returns the document field holding the list, or "" for an unknown type.
func (c ContentType) Field() string {
	switch c {
	case ContentVoice:
		return "allVoices"
	case ContentHobby:
		return "allHobbies"
	case ContentThought:
		return "allThoughts"
	case ContentPhoto:
		return "allPhotos"
	}
	return ""
}

// Valid reports whether c names a content list.
func (c ContentType) Valid() bool { return c.Field() != "" }

// Voice is a recorded clip on the user's profile.
type Voice struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	URL       string             `bson:"url" json:"url"`
	Duration  string             `bson:"duration" json:"duration"`
	Plays     int                `bson:"plays" json:"plays"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Hobby is a described hobby with optional image or video media.
type Hobby struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	URL         string             `bson:"url,omitempty" json:"url,omitempty"`
	MediaType   string             `bson:"mediaType,omitempty" json:"mediaType,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Thought is a short text post. Likes and Comments are display-only.
type Thought struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	Likes     int                `bson:"likes" json:"likes"`
	Comments  int                `bson:"comments" json:"comments"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Photo is a gallery image.
type Photo struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	URL       string             `bson:"url" json:"url"`
	Caption   string             `bson:"caption" json:"caption"`
	Likes     int                `bson:"likes" json:"likes"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// RemovedContent describes a sub-document pulled from a list. URL and
// MediaType are empty for thoughts.
type RemovedContent struct {
	Found     bool
	URL       string
	MediaType string
}
