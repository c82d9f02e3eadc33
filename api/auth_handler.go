package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/auth"
	"github.com/raushankrgupta/dreamsoul/utils"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookieName   = "oauth_state"
)

// GoogleOAuthConfig builds the server-side Google OAuth2 client config.
func GoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  redirectURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleLoginHandler handles the login request by redirecting to Google
func (h *Handler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Google Login API")
	defer trail.Flush()

	if h.opts.OAuth == nil {
		utils.RespondMessage(w, http.StatusNotFound, "Google login is not configured")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	trail.AddToLogMessage("Redirecting to Google Auth")
	http.Redirect(w, r, h.opts.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallbackHandler handles the callback from Google
func (h *Handler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Google Callback API")
	defer trail.Flush()

	if h.opts.OAuth == nil {
		utils.RespondMessage(w, http.StatusNotFound, "Google login is not configured")
		return
	}

	state := r.FormValue("state")
	expected, err := r.Cookie(stateCookieName)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected.Value)) != 1 {
		trail.AddToLogMessage("Invalid state")
		utils.RespondMessage(w, http.StatusBadRequest, "State invalid")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth/google", MaxAge: -1})

	code := r.FormValue("code")
	if code == "" {
		trail.AddToLogMessage("Code not found in callback")
		utils.RespondMessage(w, http.StatusBadRequest, "Code not found")
		return
	}

	token, err := h.opts.OAuth.Exchange(r.Context(), code)
	if err != nil {
		trail.AddToLogMessage("Failed to exchange token")
		utils.RespondError(w, h.logger, apperr.Internal("exchange oauth code", err))
		return
	}

	info, err := h.fetchGoogleUser(r, token)
	if err != nil {
		trail.AddToLogMessage("Failed to get user info")
		utils.RespondError(w, h.logger, apperr.Internal("fetch google user", err))
		return
	}
	if !info.VerifiedEmail {
		utils.RespondMessage(w, http.StatusBadRequest, "Google account email is not verified")
		return
	}

	sess, err := h.auth.OAuthLogin(r.Context(), auth.OAuthInput{Name: info.Name, Email: info.Email, PhotoURL: info.Picture})
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}

	trail.AddToLogMessage("Successfully retrieved user info from Google")
	h.logger.Info("google login", zap.String("user_id", sess.User.ID.Hex()))
	h.setSessionCookie(w, sess.Token)
	http.Redirect(w, r, h.opts.FrontendURL, http.StatusSeeOther)
}

func (h *Handler) fetchGoogleUser(r *http.Request, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.opts.OAuth.Client(r.Context(), token)
	resp, err := client.Get(h.opts.UserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}
