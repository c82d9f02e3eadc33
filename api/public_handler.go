package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/raushankrgupta/dreamsoul/utils"
)

// PublicProfileHandler returns a user's profile without email or password
func (h *Handler) PublicProfileHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.public.GetPublicProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

// maxSearchLimit caps ?limit= on username search.
const maxSearchLimit = 50

// SearchUsersHandler lists users whose username starts with ?q=
func (h *Handler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	users, err := h.public.SearchUsernames(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"users": users})
}
