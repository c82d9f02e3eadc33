package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/raushankrgupta/dreamsoul/profile"
	"github.com/raushankrgupta/dreamsoul/utils"
)

func sessionEmail(r *http.Request) string {
	c, _ := ClaimsFrom(r.Context())
	if c == nil {
		return ""
	}
	return c.Email
}

// GetProfileHandler returns the caller's full profile
func (h *Handler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.profiles.GetProfile(r.Context(), sessionEmail(r))
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

// CompleteProfileHandler fills in or edits the caller's profile fields
func (h *Handler) CompleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Complete Profile API")
	defer trail.Flush()

	var req profile.CompleteProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	u, err := h.profiles.CompleteProfile(r.Context(), sessionEmail(r), req)
	if err != nil {
		trail.AddToLogMessage("profile update rejected")
		utils.RespondError(w, h.logger, err)
		return
	}
	trail.AddToLogMessage("profile updated " + u.ID.Hex())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile completed successfully",
		"user":    u,
	})
}

func (h *Handler) AddVoiceHandler(w http.ResponseWriter, r *http.Request) {
	var req profile.VoiceInput
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	v, err := h.profiles.AddVoice(r.Context(), sessionEmail(r), req)
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Voice added successfully", "voice": v})
}

func (h *Handler) AddHobbyHandler(w http.ResponseWriter, r *http.Request) {
	var req profile.HobbyInput
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	hb, err := h.profiles.AddHobby(r.Context(), sessionEmail(r), req)
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Hobby added successfully", "hobby": hb})
}

func (h *Handler) AddThoughtHandler(w http.ResponseWriter, r *http.Request) {
	var req profile.ThoughtInput
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	t, err := h.profiles.AddThought(r.Context(), sessionEmail(r), req)
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Thought added successfully", "thought": t})
}

func (h *Handler) AddPhotoHandler(w http.ResponseWriter, r *http.Request) {
	var req profile.PhotoInput
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	p, err := h.profiles.AddPhoto(r.Context(), sessionEmail(r), req)
	if err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Photo added successfully", "photo": p})
}

// DeleteContentHandler removes one voice, hobby, thought or photo
func (h *Handler) DeleteContentHandler(w http.ResponseWriter, r *http.Request) {
	trail := utils.NewLogTrail(h.logger, "Delete Content API")
	defer trail.Flush()

	contentType := chi.URLParam(r, "contentType")
	contentID := chi.URLParam(r, "contentId")
	trail.AddToLogMessage("deleting " + contentType + " " + contentID)

	if err := h.profiles.DeleteContent(r.Context(), sessionEmail(r), contentType, contentID); err != nil {
		utils.RespondError(w, h.logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "message": contentType + " deleted successfully"})
}
