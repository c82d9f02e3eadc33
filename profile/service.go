// Package profile serves the authenticated user's own profile and content
// lists, media uploads, and the public profile lookups.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/blob"
	"github.com/raushankrgupta/dreamsoul/models"
	"github.com/raushankrgupta/dreamsoul/store"
	"github.com/raushankrgupta/dreamsoul/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const msgUserNotFound = "User not found"

// Service is the profile service. Every method acts on the user resolved from
// the session email.
type Service struct {
	users   store.UserStore
	blobs   blob.Store
	orphans store.OrphanLog
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(users store.UserStore, blobs blob.Store, orphans store.OrphanLog, logger *zap.Logger) *Service {
	return &Service{users: users, blobs: blobs, orphans: orphans, logger: logger, now: time.Now}
}

func (s *Service) resolve(ctx context.Context, email string) (*store.Match, error) {
	m, err := s.users.ResolveByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("resolve user", err)
	}
	return m, nil
}

// storeErr classifies an error returned by a write on a resolved user.
func storeErr(op string, err error, capacityMsg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(msgUserNotFound)
	case errors.Is(err, store.ErrCapacity):
		return apperr.Capacity(capacityMsg)
	default:
		return apperr.Internal(op, err)
	}
}

// GetProfile returns the caller's full document.
func (s *Service) GetProfile(ctx context.Context, email string) (*models.User, error) {
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	return m.User, nil
}

// CompleteProfileInput is the profile completion body. Age is accepted as a
// JSON number or a numeric string.
type CompleteProfileInput struct {
	Age          json.Number `json:"age"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	Country      string      `json:"country"`
	InterestedIn string      `json:"interestedIn"`
	Bio          string      `json:"bio"`
	IntroVoice   string      `json:"introVoice"`
	IntroHobby   string      `json:"introHobby"`
	IntroThought string      `json:"introThought"`
}

func (in CompleteProfileInput) toUpdate() (models.ProfileUpdate, error) {
	p := models.ProfileUpdate{
		City:         utils.SanitizeText(in.City),
		State:        utils.SanitizeText(in.State),
		Country:      utils.SanitizeText(in.Country),
		InterestedIn: strings.ToLower(strings.TrimSpace(in.InterestedIn)),
		Bio:          utils.SanitizeText(in.Bio),
		IntroVoice:   strings.TrimSpace(in.IntroVoice),
		IntroHobby:   utils.SanitizeText(in.IntroHobby),
		IntroThought: utils.SanitizeText(in.IntroThought),
	}
	if in.Age == "" || p.City == "" || p.State == "" || p.Country == "" || p.InterestedIn == "" || p.Bio == "" {
		return p, apperr.Validation("All fields are required for profile completion")
	}

	age, err := in.Age.Int64()
	if err != nil || age < models.MinAge || age > models.MaxAge {
		return p, apperr.Validation(fmt.Sprintf("Age must be between %d and %d", models.MinAge, models.MaxAge))
	}
	p.Age = int(age)

	if !slices.Contains(models.InterestedInValues, p.InterestedIn) {
		return p, apperr.Validation("Interested in must be one of " + strings.Join(models.InterestedInValues, ", "))
	}
	if utf8.RuneCountInString(p.Bio) > models.MaxBioLength {
		return p, apperr.Validation(fmt.Sprintf("Bio must be at most %d characters", models.MaxBioLength))
	}
	return p, nil
}

// CompleteProfile writes the profile fields and marks the profile complete.
// Calling it again edits the profile.
func (s *Service) CompleteProfile(ctx context.Context, email string, in CompleteProfileInput) (*models.User, error) {
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	update, err := in.toUpdate()
	if err != nil {
		return nil, err
	}
	u, err := s.users.UpdateProfile(ctx, m.Bucket, m.User.ID, update)
	if err != nil {
		return nil, storeErr("update profile", err, "")
	}
	s.logger.Info("profile completed", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

// VoiceInput is the add-voice body.
type VoiceInput struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration string `json:"duration"`
}

// AddVoice appends a voice clip. A user holds at most models.MaxVoices.
func (s *Service) AddVoice(ctx context.Context, email string, in VoiceInput) (*models.Voice, error) {
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	v := models.Voice{
		ID:        primitive.NewObjectID(),
		Title:     utils.SanitizeText(in.Title),
		URL:       strings.TrimSpace(in.URL),
		Duration:  strings.TrimSpace(in.Duration),
		CreatedAt: s.now().UTC(),
	}
	if v.Title == "" || v.URL == "" || v.Duration == "" {
		return nil, apperr.Validation("Title, URL, and duration are required")
	}
	err = s.users.AppendVoice(ctx, m.Bucket, m.User.ID, v, models.MaxVoices)
	if err != nil {
		return nil, storeErr("add voice", err, fmt.Sprintf("You can only have up to %d voices", models.MaxVoices))
	}
	return &v, nil
}

// HobbyInput is the add-hobby body. URL and MediaType are optional.
type HobbyInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	MediaType   string `json:"mediaType"`
}

// AddHobby appends a hobby. Only video hobbies count toward the cap.
func (s *Service) AddHobby(ctx context.Context, email string, in HobbyInput) (*models.Hobby, error) {
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	h := models.Hobby{
		ID:          primitive.NewObjectID(),
		Name:        utils.SanitizeText(in.Name),
		Description: utils.SanitizeText(in.Description),
		URL:         strings.TrimSpace(in.URL),
		MediaType:   strings.ToLower(strings.TrimSpace(in.MediaType)),
		CreatedAt:   s.now().UTC(),
	}
	if h.Name == "" || h.Description == "" {
		return nil, apperr.Validation("Name and description are required")
	}
	if h.MediaType != "" && h.MediaType != models.MediaImage && h.MediaType != models.MediaVideo {
		return nil, apperr.Validation("Media type must be image or video")
	}
	err = s.users.AppendHobby(ctx, m.Bucket, m.User.ID, h, models.MaxVideoHobbies)
	if err != nil {
		return nil, storeErr("add hobby", err, fmt.Sprintf("You can only have up to %d video hobbies", models.MaxVideoHobbies))
	}
	return &h, nil
}

// ThoughtInput is the add-thought body.
type ThoughtInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Service) AddThought(ctx context.Context, email string, in ThoughtInput) (*models.Thought, error) {
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	t := models.Thought{
		ID:        primitive.NewObjectID(),
		Title:     utils.SanitizeText(in.Title),
		Content:   utils.SanitizeText(in.Content),
		CreatedAt: s.now().UTC(),
	}
	if t.Title == "" || t.Content == "" {
		return nil, apperr.Validation("Title and content are required")
	}
	if err := s.users.AppendThought(ctx, m.Bucket, m.User.ID, t); err != nil {
		return nil, storeErr("add thought", err, "")
	}
	return &t, nil
}

// PhotoInput is the add-photo body. Caption defaults to empty.
type PhotoInput struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

func (s *Service) AddPhoto(ctx context.Context, email string, in PhotoInput) (*models.Photo, error) {
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	p := models.Photo{
		ID:        primitive.NewObjectID(),
		URL:       strings.TrimSpace(in.URL),
		Caption:   utils.SanitizeText(in.Caption),
		CreatedAt: s.now().UTC(),
	}
	if p.URL == "" {
		return nil, apperr.Validation("Photo URL is required")
	}
	if err := s.users.AppendPhoto(ctx, m.Bucket, m.User.ID, p); err != nil {
		return nil, storeErr("add photo", err, "")
	}
	return &p, nil
}

// DeleteContent pulls one item from the list named by contentType. Deleting
// an id that isn't present still succeeds. The item's blob is deleted after
// the metadata; a failed blob delete is logged and recorded, never returned.
func (s *Service) DeleteContent(ctx context.Context, email, contentType, contentID string) error {
	kind := models.ContentType(contentType)
	if !kind.Valid() {
		return apperr.Validation("Invalid content type")
	}
	m, err := s.resolve(ctx, email)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(contentID)
	if err != nil {
		return apperr.Validation("Invalid content id")
	}

	removed, err := s.users.RemoveContent(ctx, m.Bucket, m.User.ID, kind, id)
	if err != nil {
		return storeErr("delete content", err, "")
	}
	if removed.Found && removed.URL != "" {
		rt := blob.ResourceImage
		if removed.MediaType == models.MediaVideo {
			rt = blob.ResourceVideo
		}
		s.deleteBlob(ctx, m.User.ID, removed.URL, rt)
	}
	return nil
}

// deleteBlob removes the object behind rawURL when this store served it and
// it sits in one of userID's folders. Lists accept any URL, including
// another user's media, which must survive.
func (s *Service) deleteBlob(ctx context.Context, userID primitive.ObjectID, rawURL string, rt blob.ResourceType) {
	publicID, ok := s.blobs.PublicID(rawURL)
	if !ok {
		s.logger.Debug("url not served by blob store, skipping delete", zap.String("url", rawURL))
		return
	}
	if !ownedBy(publicID, userID) {
		s.logger.Warn("blob outside the user's folders, skipping delete",
			zap.String("public_id", publicID),
			zap.String("user_id", userID.Hex()))
		return
	}
	err := s.blobs.Delete(ctx, publicID, rt)
	if err == nil {
		return
	}

	s.logger.Warn("blob delete failed",
		zap.String("public_id", publicID),
		zap.String("resource_type", string(rt)),
		zap.String("user_id", userID.Hex()),
		zap.Error(err))
	if s.orphans == nil {
		return
	}
	now := s.now().UTC()
	orphan := store.Orphan{
		ID:           primitive.NewObjectID(),
		PublicID:     publicID,
		ResourceType: string(rt),
		UserID:       userID,
		URL:          rawURL,
		LastError:    err.Error(),
		Attempts:     1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orphans.Record(ctx, orphan); err != nil {
		s.logger.Error("record orphaned blob", zap.String("public_id", publicID), zap.Error(err))
	}
}
