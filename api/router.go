package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raushankrgupta/dreamsoul/utils"
	"go.uber.org/zap"
)

// RouterDeps are the pieces of the edge that live outside Handler.
type RouterDeps struct {
	CORSOrigin  string
	AuthLimiter *IPRateLimiter
	Metrics     *Metrics
	Logger      *zap.Logger
}

// NewRouter wires every route onto a chi mux.
func NewRouter(h *Handler, deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(utils.LatencyMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(CORS(deps.CORSOrigin))

	r.Get("/healthz", h.HealthHandler)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/auth", func(ar chi.Router) {
		if deps.AuthLimiter != nil {
			ar.Use(deps.AuthLimiter.Middleware)
		}
		ar.Post("/signup", h.SignupHandler)
		ar.Post("/signin", h.SigninHandler)
		ar.Post("/google", h.GoogleHandler)
		ar.Get("/google/login", h.GoogleLoginHandler)
		ar.Get("/google/callback", h.GoogleCallbackHandler)
		ar.Get("/signout", h.SignoutHandler)
		ar.With(h.RequireAuth).Delete("/delete-account", h.DeleteAccountHandler)
	})

	r.Route("/profile", func(pr chi.Router) {
		pr.Get("/public/{username}", h.PublicProfileHandler)
		pr.Get("/search", h.SearchUsersHandler)

		pr.Group(func(ar chi.Router) {
			ar.Use(h.RequireAuth)
			ar.Get("/me", h.GetProfileHandler)
			ar.Post("/complete", h.CompleteProfileHandler)

			ar.Post("/upload/photo", h.UploadPhotoHandler)
			ar.Post("/upload/voice", h.UploadVoiceHandler)
			ar.Post("/upload/hobby", h.UploadHobbyMediaHandler)
			ar.Post("/upload/profile-picture", h.UploadProfilePictureHandler)

			ar.Post("/voices", h.AddVoiceHandler)
			ar.Post("/hobbies", h.AddHobbyHandler)
			ar.Post("/thoughts", h.AddThoughtHandler)
			ar.Post("/photos", h.AddPhotoHandler)

			ar.Delete("/{contentType}/{contentId}", h.DeleteContentHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondMessage(w, http.StatusNotFound, "Route not found")
	})
	return r
}
