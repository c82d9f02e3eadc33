package api

import (
	"net/http"
	"time"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/auth"
	"github.com/raushankrgupta/dreamsoul/utils"
)

// SigninRequest represents the payload for user login
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DeleteAccountRequest carries the password confirmation.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// SignupHandler handles user registration
func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Signup API")
	defer trail.Flush()

	var req auth.SignupInput
	if err := decodeJSON(w, r, &req); err != nil {
		trail.AddToLogMessage("invalid request body")
		utils.RespondError(w, h.logger, err)
		return
	}

	u, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		trail.AddToLogMessage("signup rejected")
		utils.RespondError(w, h.logger, err)
		return
	}

	trail.AddToLogMessage("user created " + u.ID.Hex())
	utils.RespondJSON(w, http.StatusOK, "Signup successful!")
}

// SigninHandler handles user login and sets the session cookie
func (h *Handler) SigninHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Signin API")
	defer trail.Flush()

	var req SigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}

	sess, err := h.auth.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		trail.AddToLogMessage("signin rejected")
		utils.RespondError(w, h.logger, err)
		return
	}

	trail.AddToLogMessage("session issued for " + sess.User.ID.Hex())
	h.setSessionCookie(w, sess.Token)
	utils.RespondJSON(w, http.StatusOK, sess.User)
}

// GoogleHandler logs in with a profile the client already obtained from
// Google, creating the account on first use. The email is taken as posted.
func (h *Handler) GoogleHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Google API")
	defer trail.Flush()

	if h.opts.DisableClientGoogleLogin {
		trail.AddToLogMessage("client google login disabled")
		utils.RespondMessage(w, http.StatusNotFound, "Google login is not configured")
		return
	}

	var req auth.OAuthInput
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}

	sess, err := h.auth.OAuthLogin(r.Context(), req)
	if err != nil {
		trail.AddToLogMessage("google login failed")
		utils.RespondError(w, h.logger, err)
		return
	}

	trail.AddToLogMessage("session issued for " + sess.User.ID.Hex())
	h.setSessionCookie(w, sess.Token)
	utils.RespondJSON(w, http.StatusOK, sess.User)
}

// SignoutHandler revokes the current token, if any, and clears the cookie.
func (h *Handler) SignoutHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Signout API")
	defer trail.Flush()

	if token := tokenFrom(r); token != "" {
		claims, err := h.auth.Authenticate(r.Context(), token)
		switch {
		case err == nil:
			if err := h.auth.Signout(r.Context(), claims); err != nil {
				utils.RespondError(w, h.logger, err)
				return
			}
			trail.AddToLogMessage("token revoked")
		case apperr.Is(err, apperr.KindUnauthenticated):
			trail.AddToLogMessage("stale token, clearing cookie only")
		default:
			utils.RespondError(w, h.logger, err)
			return
		}
	}

	h.clearSessionCookie(w)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User has been signed out"})
}

// DeleteAccountHandler removes the caller's account after password confirmation.
func (h *Handler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Delete Account API")
	defer trail.Flush()

	claims, _ := ClaimsFrom(r.Context())
	var req DeleteAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), claims, req.Password); err != nil {
		trail.AddToLogMessage("delete rejected")
		utils.RespondError(w, h.logger, err)
		return
	}

	trail.AddToLogMessage("account deleted " + claims.UserID)
	h.clearSessionCookie(w)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Account has been deleted"})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.opts.TokenTTL / time.Second),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
