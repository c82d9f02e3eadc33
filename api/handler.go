// Package api is the HTTP edge: routing, cookies, request decoding and the
// mapping of service errors to JSON responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/auth"
	"github.com/raushankrgupta/dreamsoul/profile"
	"github.com/raushankrgupta/dreamsoul/utils"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Body limits.
const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = profile.MaxMediaBytes + 1<<20
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the edge settings that don't belong to a service.
type Options struct {
	CookieSecure bool
	TokenTTL     time.Duration
	FrontendURL  string
	// OAuth enables /auth/google/login and /auth/google/callback when set.
	OAuth *oauth2.Config
	// UserInfoURL overrides the Google userinfo endpoint.
	UserInfoURL string
	// DisableClientGoogleLogin turns POST /auth/google off. That route
	// trusts the posted email, so only the callback flow verifies it.
	DisableClientGoogleLogin bool
}

// Handler holds the services every route delegates to.
type Handler struct {
	auth     *auth.Service
	profiles *profile.Service
	public   *profile.PublicService
	store    Pinger
	opts     Options
	logger   *zap.Logger
}

func NewHandler(a *auth.Service, p *profile.Service, pub *profile.PublicService, store Pinger, opts Options, logger *zap.Logger) *Handler {
	if opts.UserInfoURL == "" {
		opts.UserInfoURL = googleUserInfoURL
	}
	return &Handler{auth: a, profiles: p, public: pub, store: store, opts: opts, logger: logger}
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation("Request body too large")
		}
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// HealthHandler pings the store.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
