// Package auth implements signup, signin, Google login, signout and account
// deletion on top of the identity resolver.
package auth

import (
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"math/rand/v2"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/models"
	"github.com/raushankrgupta/dreamsoul/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MaxUsernameAttempts bounds the retries when a generated OAuth username collides.
const MaxUsernameAttempts = 5

const msgInvalidCredentials = "Invalid credentials!"

// Mailer sends transactional email.
type Mailer interface {
	SendEmail(toName, toEmail, subject, textContent, htmlContent string) error
}

// Service is the auth service.
type Service struct {
	users    store.UserStore
	tokens   *TokenIssuer
	denylist Denylist
	mailer   Mailer
	logger   *zap.Logger

	// HashCost is the bcrypt cost used for new passwords.
	HashCost int
	now      func() time.Time
}

func NewService(users store.UserStore, tokens *TokenIssuer, denylist Denylist, mailer Mailer, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		denylist: denylist,
		mailer:   mailer,
		logger:   logger,
		HashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// SignupInput is the signup request body.
type SignupInput struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Gender   string `json:"gender"`
}

// Session is the result of a successful login.
type Session struct {
	Token  string
	Claims *Claims
	User   *models.User
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a new user in the collection selected by gender.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if fullName == "" || username == "" || email == "" || in.Password == "" || in.Gender == "" {
		return nil, apperr.Validation("All fields are required!")
	}
	gender := models.Gender(in.Gender)
	if !gender.Valid() {
		return nil, apperr.Validation("Gender must be male, female, or other!")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("Invalid email address!")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.HashCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u := models.NewUser(fullName, username, email, string(hash), gender)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Email or username already exists", err)
		}
		return nil, apperr.Internal("create user", err)
	}
	s.logger.Info("user signed up", zap.String("user_id", u.ID.Hex()), zap.String("gender", string(gender)))

	s.sendBestEffort(u, "Welcome to DreamSoul",
		fmt.Sprintf("Hi %s, your DreamSoul account @%s is ready.", u.FullName, u.Username))
	return u, nil
}

// Signin checks credentials and issues a session. Unknown email and wrong
// password answer the same way.
func (s *Service) Signin(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("All fields are required!")
	}

	match, err := s.users.ResolveByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Auth(msgInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Internal("resolve user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(match.User.Password), []byte(password)); err != nil {
		return nil, apperr.Auth(msgInvalidCredentials)
	}
	return s.startSession(ctx, match)
}

// OAuthInput is the Google login payload.
type OAuthInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"googlePhotoUrl"`
}

// OAuthLogin signs in the user with the given email, creating an account on
// first login.
func (s *Service) OAuthLogin(ctx context.Context, in OAuthInput) (*Session, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperr.Validation("Email is required")
	}

	var lastErr error
	for attempt := 0; attempt < MaxUsernameAttempts; attempt++ {
		match, err := s.users.ResolveByEmail(ctx, email)
		if err == nil {
			return s.startSession(ctx, match)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Internal("resolve user", err)
		}

		u, err := s.newOAuthUser(in.Name, email, in.PhotoURL)
		if err != nil {
			return nil, err
		}
		err = s.users.Create(ctx, u)
		if err == nil {
			s.logger.Info("user created from google login", zap.String("user_id", u.ID.Hex()), zap.String("username", u.Username))
			b, _ := store.BucketFor(u.Gender)
			return s.startSession(ctx, &store.Match{User: u, Bucket: b})
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Internal("create user", err)
		}
		s.logger.Info("generated username taken, retrying", zap.String("username", u.Username), zap.Int("attempt", attempt+1))
		lastErr = err
	}
	return nil, apperr.Conflict("Could not allocate a unique username", lastErr)
}

func (s *Service) newOAuthUser(name, email, photoURL string) (*models.User, error) {
	base := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}
	username := fmt.Sprintf("%s%04d", base, rand.IntN(10000))

	// never shown to the user; the account has no password login until reset
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.HashCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	fullName := strings.TrimSpace(name)
	if fullName == "" {
		fullName = username
	}
	u := models.NewUser(fullName, username, email, string(hash), models.GenderOther)
	if photoURL = strings.TrimSpace(photoURL); photoURL != "" {
		u.ProfilePicture = photoURL
	}
	return u, nil
}

func (s *Service) startSession(ctx context.Context, match *store.Match) (*Session, error) {
	token, claims, err := s.tokens.Issue(match.User)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}

	now := s.now().UTC()
	if err := s.users.TouchPresence(ctx, match.Bucket, match.User.ID, models.StatusActive, now); err != nil {
		s.logger.Warn("update presence failed", zap.String("user_id", match.User.ID.Hex()), zap.Error(err))
	} else {
		match.User.Status = models.StatusActive
		match.User.LastVisit = now
	}
	return &Session{Token: token, Claims: claims, User: match.User}, nil
}

// Authenticate verifies a token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Internal("check denylist", err)
	}
	if revoked {
		return nil, apperr.Unauthenticated("Session has been revoked")
	}
	return claims, nil
}

// Signout revokes the session and marks the user inactive.
func (s *Service) Signout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}
	match, err := s.users.ResolveByEmail(ctx, claims.Email)
	if err != nil {
		// the account may have been deleted in another session
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("resolve user on signout", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return nil
	}
	if err := s.users.TouchPresence(ctx, match.Bucket, match.User.ID, models.StatusInactive, s.now().UTC()); err != nil {
		s.logger.Warn("update presence failed", zap.String("user_id", claims.UserID), zap.Error(err))
	}
	return nil
}

// DeleteAccount removes the caller's document after password confirmation.
func (s *Service) DeleteAccount(ctx context.Context, claims *Claims, password string) error {
	if password == "" {
		return apperr.Validation("Password is required")
	}
	match, err := s.users.ResolveByEmail(ctx, claims.Email)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Internal("resolve user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(match.User.Password), []byte(password)); err != nil {
		return apperr.Auth("Invalid password!")
	}

	if err := s.users.Delete(ctx, match.Bucket, match.User.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		return apperr.Internal("delete user", err)
	}
	if err := s.revoke(ctx, claims); err != nil {
		s.logger.Warn("revoke token after account deletion", zap.String("user_id", claims.UserID), zap.Error(err))
	}
	s.logger.Info("account deleted", zap.String("user_id", claims.UserID))

	s.sendBestEffort(match.User, "Your DreamSoul account was deleted",
		fmt.Sprintf("Hi %s, your account @%s and its content have been removed.", match.User.FullName, match.User.Username))
	return nil
}

func (s *Service) revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperr.Internal("revoke token", err)
	}
	return nil
}

func (s *Service) sendBestEffort(u *models.User, subject, text string) {
	if s.mailer == nil {
		return
	}
	html := "<p>" + stdhtml.EscapeString(text) + "</p>"
	if err := s.mailer.SendEmail(u.FullName, u.Email, subject, text, html); err != nil {
		s.logger.Warn("send email failed", zap.String("user_id", u.ID.Hex()), zap.String("subject", subject), zap.Error(err))
	}
}
