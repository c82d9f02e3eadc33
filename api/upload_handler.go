package api

import (
	"errors"
	"net/http"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/profile"
	"github.com/raushankrgupta/dreamsoul/utils"
)

// Multipart field names.
const (
	fieldPhoto          = "photo"
	fieldVoice          = "voice"
	fieldHobbyMedia     = "media"
	fieldProfilePicture = "profilePicture"
)

// readUpload runs fn on the single file sent under field. The file is
// spooled by multipart, never loaded whole by the handler.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, field string, fn func(f *profile.File) (*profile.UploadResult, error)) {
	trail := utils.NewLogTrail(h.logger, "Upload API "+field)
	defer trail.Flush()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(profile.MaxImageBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			utils.RespondError(w, h.logger, apperr.Validation("File too large"))
			return
		}
		utils.RespondError(w, h.logger, apperr.Validation("No file uploaded"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(field)
	if err != nil {
		trail.AddToLogMessage("missing file field")
		utils.RespondError(w, h.logger, apperr.Validation("No file uploaded"))
		return
	}
	defer file.Close()

	res, err := fn(&profile.File{
		Body:        file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		trail.AddToLogMessage("upload rejected")
		utils.RespondError(w, h.logger, err)
		return
	}
	trail.AddToLogMessage("uploaded " + res.URL)
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) UploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	h.readUpload(w, r, fieldPhoto, func(f *profile.File) (*profile.UploadResult, error) {
		return h.profiles.UploadPhoto(r.Context(), sessionEmail(r), f)
	})
}

func (h *Handler) UploadVoiceHandler(w http.ResponseWriter, r *http.Request) {
	h.readUpload(w, r, fieldVoice, func(f *profile.File) (*profile.UploadResult, error) {
		return h.profiles.UploadVoice(r.Context(), sessionEmail(r), f)
	})
}

func (h *Handler) UploadHobbyMediaHandler(w http.ResponseWriter, r *http.Request) {
	h.readUpload(w, r, fieldHobbyMedia, func(f *profile.File) (*profile.UploadResult, error) {
		return h.profiles.UploadHobbyMedia(r.Context(), sessionEmail(r), f)
	})
}

func (h *Handler) UploadProfilePictureHandler(w http.ResponseWriter, r *http.Request) {
	h.readUpload(w, r, fieldProfilePicture, func(f *profile.File) (*profile.UploadResult, error) {
		return h.profiles.UploadProfilePicture(r.Context(), sessionEmail(r), f)
	})
}
