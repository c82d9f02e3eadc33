package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperr.Validation("Photo URL is required"), http.StatusBadRequest, "Photo URL is required"},
		{"not found", apperr.NotFound("User not found"), http.StatusNotFound, "User not found"},
		{"conflict", apperr.Conflict("Email or username already exists", errors.New("dup")), http.StatusConflict, "Email or username already exists"},
		{"internal hides detail", apperr.Internal("db exploded", errors.New("x")), http.StatusInternalServerError, "Internal Server Error"},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, zap.NewNop(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success {
				t.Error("success = true")
			}
			if body.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMsg)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := map[string]string{
		"":                                  "",
		"  plain  ":                         "plain",
		"<b>bold</b> move":                  "bold move",
		"<script>alert(1)</script>hi":       "hi",
		"Tom & Jerry's \"show\"":            "Tom & Jerry's \"show\"",
		"<a href=\"javascript:x\">link</a>": "link",
	}
	for in, want := range tests {
		if got := SanitizeText(in); got != want {
			t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLogTrail(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	trail := NewLogTrail(zap.New(core), "Signup API")
	trail.AddToLogMessage("invalid request body")
	trail.AddToLogMessage("rejected")
	trail.Flush()

	if got := trail.String(); got != "invalid request body; rejected" {
		t.Errorf("String() = %q", got)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api"] != "Signup API" || fields["steps"] != "invalid request body; rejected" {
		t.Errorf("fields = %v", fields)
	}
}
