package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raushankrgupta/dreamsoul/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process UserStore with the same semantics as Mongo. It
// backs STORE_DRIVER=memory and the service tests.
type Memory struct {
	mu      sync.RWMutex
	buckets map[Bucket]map[primitive.ObjectID]*models.User
}

func NewMemory() *Memory {
	buckets := make(map[Bucket]map[primitive.ObjectID]*models.User, len(BucketOrder))
	for _, b := range BucketOrder {
		buckets[b] = make(map[primitive.ObjectID]*models.User)
	}
	return &Memory{buckets: buckets}
}

func (s *Memory) Ping(context.Context) error { return nil }

// scan returns the first user in b matching pred. Caller holds the lock.
func (s *Memory) scan(b Bucket, pred func(u *models.User) bool) (*models.User, error) {
	docs, ok := s.buckets[b]
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", b)
	}
	for _, u := range docs {
		if pred(u) {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) ResolveByEmail(ctx context.Context, email string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return firstMatch(ctx, func(_ context.Context, b Bucket) (*models.User, error) {
		return s.scan(b, func(u *models.User) bool { return u.Email == email })
	})
}

func (s *Memory) ResolveByUsername(ctx context.Context, username string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return firstMatch(ctx, func(_ context.Context, b Bucket) (*models.User, error) {
		return s.scan(b, func(u *models.User) bool { return u.Username == username })
	})
}

func (s *Memory) SearchByUsernamePrefix(_ context.Context, prefix string, limit int) ([]models.UserSummary, error) {
	limit = normalizeLimit(limit)
	lower := strings.ToLower(prefix)

	s.mu.RLock()
	defer s.mu.RUnlock()
	lists := make([][]models.UserSummary, 0, len(BucketOrder))
	for _, b := range BucketOrder {
		var found []models.UserSummary
		for _, u := range s.buckets[b] {
			if strings.HasPrefix(strings.ToLower(u.Username), lower) {
				found = append(found, models.UserSummary{
					Username:       u.Username,
					FullName:       u.FullName,
					ProfilePicture: u.ProfilePicture,
				})
			}
		}
		// a per-collection limit mirrors the query each Mongo bucket runs
		sort.Slice(found, func(i, j int) bool { return found[i].Username < found[j].Username })
		if len(found) > limit {
			found = found[:limit]
		}
		lists = append(lists, found)
	}
	return mergeSummaries(limit, lists...), nil
}

func (s *Memory) Create(_ context.Context, u *models.User) error {
	b, ok := BucketFor(u.Gender)
	if !ok {
		return fmt.Errorf("invalid gender %q", u.Gender)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, docs := range s.buckets {
		for _, other := range docs {
			if other.Email == u.Email || other.Username == u.Username {
				return ErrDuplicate
			}
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.buckets[b][u.ID] = u.Clone()
	return nil
}

func (s *Memory) Delete(_ context.Context, b Bucket, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.buckets[b]
	if !ok {
		return fmt.Errorf("unknown bucket %q", b)
	}
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	return nil
}

// mutate runs fn on the stored document under the write lock.
func (s *Memory) mutate(b Bucket, id primitive.ObjectID, fn func(u *models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.buckets[b]
	if !ok {
		return fmt.Errorf("unknown bucket %q", b)
	}
	u, ok := docs[id]
	if !ok {
		return ErrNotFound
	}
	return fn(u)
}

func (s *Memory) UpdateProfile(_ context.Context, b Bucket, id primitive.ObjectID, p models.ProfileUpdate) (*models.User, error) {
	var out *models.User
	err := s.mutate(b, id, func(u *models.User) error {
		u.Age = p.Age
		u.City = p.City
		u.State = p.State
		u.Country = p.Country
		u.InterestedIn = p.InterestedIn
		u.Bio = p.Bio
		if p.IntroVoice != "" {
			u.IntroVoice = p.IntroVoice
		}
		if p.IntroHobby != "" {
			u.IntroHobby = p.IntroHobby
		}
		if p.IntroThought != "" {
			u.IntroThought = p.IntroThought
		}
		u.IsProfileComplete = true
		u.UpdatedAt = time.Now().UTC()
		out = u.Clone()
		return nil
	})
	return out, err
}

func (s *Memory) SetProfilePicture(_ context.Context, b Bucket, id primitive.ObjectID, url string) error {
	return s.mutate(b, id, func(u *models.User) error {
		u.ProfilePicture = url
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *Memory) TouchPresence(_ context.Context, b Bucket, id primitive.ObjectID, status string, at time.Time) error {
	return s.mutate(b, id, func(u *models.User) error {
		u.Status = status
		u.LastVisit = at
		return nil
	})
}

func (s *Memory) AppendVoice(_ context.Context, b Bucket, id primitive.ObjectID, v models.Voice, maxVoices int) error {
	return s.mutate(b, id, func(u *models.User) error {
		if len(u.AllVoices) >= maxVoices {
			return ErrCapacity
		}
		u.AllVoices = append(u.AllVoices, v)
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *Memory) AppendHobby(_ context.Context, b Bucket, id primitive.ObjectID, h models.Hobby, maxVideo int) error {
	return s.mutate(b, id, func(u *models.User) error {
		if h.MediaType == models.MediaVideo && u.CountVideoHobbies() >= maxVideo {
			return ErrCapacity
		}
		u.AllHobbies = append(u.AllHobbies, h)
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *Memory) AppendThought(_ context.Context, b Bucket, id primitive.ObjectID, t models.Thought) error {
	return s.mutate(b, id, func(u *models.User) error {
		u.AllThoughts = append(u.AllThoughts, t)
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *Memory) AppendPhoto(_ context.Context, b Bucket, id primitive.ObjectID, p models.Photo) error {
	return s.mutate(b, id, func(u *models.User) error {
		u.AllPhotos = append(u.AllPhotos, p)
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *Memory) RemoveContent(_ context.Context, b Bucket, id primitive.ObjectID, kind models.ContentType, contentID primitive.ObjectID) (models.RemovedContent, error) {
	if !kind.Valid() {
		return models.RemovedContent{}, fmt.Errorf("unknown content type %q", kind)
	}
	var removed models.RemovedContent
	err := s.mutate(b, id, func(u *models.User) error {
		removed = findContent(u, kind, contentID)
		switch kind {
		case models.ContentVoice:
			u.AllVoices = without(u.AllVoices, func(v models.Voice) bool { return v.ID == contentID })
		case models.ContentHobby:
			u.AllHobbies = without(u.AllHobbies, func(h models.Hobby) bool { return h.ID == contentID })
		case models.ContentThought:
			u.AllThoughts = without(u.AllThoughts, func(t models.Thought) bool { return t.ID == contentID })
		case models.ContentPhoto:
			u.AllPhotos = without(u.AllPhotos, func(p models.Photo) bool { return p.ID == contentID })
		}
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	return removed, err
}

func without[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !match(it) {
			out = append(out, it)
		}
	}
	return out
}
