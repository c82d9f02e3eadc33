package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/models"
	"github.com/raushankrgupta/dreamsoul/store"
)

// PublicService answers unauthenticated profile lookups.
type PublicService struct {
	users store.UserStore
}

func NewPublicService(users store.UserStore) *PublicService {
	return &PublicService{users: users}
}

// GetPublicProfile returns the public projection of the user with the given
// username. It never carries email or password.
func (p *PublicService) GetPublicProfile(ctx context.Context, username string) (*models.PublicUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	m, err := p.users.ResolveByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("resolve user", err)
	}
	return m.User.Public(), nil
}

// SearchUsernames returns up to limit users whose username starts with q,
// ignoring case. An empty query returns an empty list.
func (p *PublicService) SearchUsernames(ctx context.Context, q string, limit int) ([]models.UserSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.UserSummary{}, nil
	}
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	users, err := p.users.SearchByUsernamePrefix(ctx, q, limit)
	if err != nil {
		return nil, apperr.Internal("search usernames", err)
	}
	return users, nil
}
