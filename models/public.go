package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicUser is the projection served to unauthenticated visitors. It has no
// email or password field, so neither can leak through JSON encoding.
type PublicUser struct {
	ID                primitive.ObjectID `json:"_id"`
	FullName          string             `json:"fullName"`
	Username          string             `json:"username"`
	Gender            Gender             `json:"gender"`
	ProfilePicture    string             `json:"profilePicture"`
	IsUserAdmin       bool               `json:"isUserAdmin"`
	Status            string             `json:"status"`
	LastVisit         time.Time          `json:"lastVisit"`
	IsProfileComplete bool               `json:"isProfileComplete"`
	Age               int                `json:"age,omitempty"`
	City              string             `json:"city,omitempty"`
	State             string             `json:"state,omitempty"`
	Country           string             `json:"country,omitempty"`
	InterestedIn      string             `json:"interestedIn,omitempty"`
	Bio               string             `json:"bio,omitempty"`
	IntroVoice        string             `json:"introVoice,omitempty"`
	IntroHobby        string             `json:"introHobby,omitempty"`
	IntroThought      string             `json:"introThought,omitempty"`
	AllVoices         []Voice            `json:"allVoices"`
	AllHobbies        []Hobby            `json:"allHobbies"`
	AllThoughts       []Thought          `json:"allThoughts"`
	AllPhotos         []Photo            `json:"allPhotos"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Public returns the public-safe projection of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:                u.ID,
		FullName:          u.FullName,
		Username:          u.Username,
		Gender:            u.Gender,
		ProfilePicture:    u.ProfilePicture,
		IsUserAdmin:       u.IsUserAdmin,
		Status:            u.Status,
		LastVisit:         u.LastVisit,
		IsProfileComplete: u.IsProfileComplete,
		Age:               u.Age,
		City:              u.City,
		State:             u.State,
		Country:           u.Country,
		InterestedIn:      u.InterestedIn,
		Bio:               u.Bio,
		IntroVoice:        u.IntroVoice,
		IntroHobby:        u.IntroHobby,
		IntroThought:      u.IntroThought,
		AllVoices:         nonNil(u.AllVoices),
		AllHobbies:        nonNil(u.AllHobbies),
		AllThoughts:       nonNil(u.AllThoughts),
		AllPhotos:         nonNil(u.AllPhotos),
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
