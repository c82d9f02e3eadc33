package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/raushankrgupta/dreamsoul/apperr"
	"go.uber.org/zap"
)

// RespondJSON sends a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// headers are already sent, nothing left but to log
		zap.L().Warn("encode JSON response", zap.Error(err))
	}
}

// ErrorBody is the single shape every failed request answers with.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RespondError maps err to its status and writes {success:false, message}.
// Unclassified errors become a generic 500 and are logged at Error level.
func RespondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperr.StatusOf(err)
	message := "Internal Server Error"
	if e, ok := apperr.As(err); ok && status < http.StatusInternalServerError {
		message = e.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.Int("status", status), zap.String("reason", message))
	}
	RespondJSON(w, status, ErrorBody{Success: false, Message: message})
}

// RespondMessage writes an error-shaped body with an explicit status.
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Success: false, Message: message})
}

// LatencyMiddleware logs the duration and status of each request
func LatencyMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
