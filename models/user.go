package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender selects which collection a user document lives in.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Genders lists the buckets in resolution order.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// Valid reports whether g is one of the fixed genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Presence status values.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// DefaultProfilePicture is shown until a user uploads their own.
const DefaultProfilePicture = "https://www.pngall.com/wp-content/uploads/5/Profile.png"

// Profile constraints.
const (
	MinAge       = 18
	MaxAge       = 100
	MaxBioLength = 500
)

// InterestedInValues are the accepted interest preferences.
var InterestedInValues = []string{"male", "female", "both", "others"}

// User represents a registered user
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FullName       string             `bson:"fullName" json:"fullName"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"` // Password is not returned in JSON
	Gender         Gender             `bson:"gender" json:"gender"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
	IsUserAdmin    bool               `bson:"isUserAdmin" json:"isUserAdmin"`
	Status         string             `bson:"status" json:"status"`
	LastVisit      time.Time          `bson:"lastVisit" json:"lastVisit"`

	IsProfileComplete bool   `bson:"isProfileComplete" json:"isProfileComplete"`
	Age               int    `bson:"age,omitempty" json:"age,omitempty"`
	City              string `bson:"city,omitempty" json:"city,omitempty"`
	State             string `bson:"state,omitempty" json:"state,omitempty"`
	Country           string `bson:"country,omitempty" json:"country,omitempty"`
	InterestedIn      string `bson:"interestedIn,omitempty" json:"interestedIn,omitempty"`
	Bio               string `bson:"bio,omitempty" json:"bio,omitempty"`
	IntroVoice        string `bson:"introVoice,omitempty" json:"introVoice,omitempty"`
	IntroHobby        string `bson:"introHobby,omitempty" json:"introHobby,omitempty"`
	IntroThought      string `bson:"introThought,omitempty" json:"introThought,omitempty"`

	AllVoices   []Voice   `bson:"allVoices" json:"allVoices"`
	AllHobbies  []Hobby   `bson:"allHobbies" json:"allHobbies"`
	AllThoughts []Thought `bson:"allThoughts" json:"allThoughts"`
	AllPhotos   []Photo   `bson:"allPhotos" json:"allPhotos"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewUser returns a user with the schema defaults applied.
func NewUser(fullName, username, email, passwordHash string, gender Gender) *User {
	now := time.Now().UTC()
	return &User{
		ID:             primitive.NewObjectID(),
		FullName:       fullName,
		Username:       username,
		Email:          email,
		Password:       passwordHash,
		Gender:         gender,
		ProfilePicture: DefaultProfilePicture,
		Status:         StatusInactive,
		LastVisit:      now,
		AllVoices:      []Voice{},
		AllHobbies:     []Hobby{},
		AllThoughts:    []Thought{},
		AllPhotos:      []Photo{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CountVideoHobbies returns how many hobbies carry video media.
func (u *User) CountVideoHobbies() int {
	n := 0
	for _, h := range u.AllHobbies {
		if h.MediaType == MediaVideo {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can't mutate store-owned slices.
func (u *User) Clone() *User {
	c := *u
	c.AllVoices = append([]Voice{}, u.AllVoices...)
	c.AllHobbies = append([]Hobby{}, u.AllHobbies...)
	c.AllThoughts = append([]Thought{}, u.AllThoughts...)
	c.AllPhotos = append([]Photo{}, u.AllPhotos...)
	return &c
}

// UserSummary is one username search result.
type UserSummary struct {
	Username       string `bson:"username" json:"username"`
	FullName       string `bson:"fullName" json:"fullName"`
	ProfilePicture string `bson:"profilePicture" json:"profilePicture"`
}

// ProfileUpdate carries the fields written by profile completion.
type ProfileUpdate struct {
	Age          int
	City         string
	State        string
	Country      string
	InterestedIn string
	Bio          string
	IntroVoice   string
	IntroHobby   string
	IntroThought string
}
