package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-auth-otp/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// IdentityEnvelope wraps the identity endpoint response.
type IdentityEnvelope struct {
	ID string `json:"id"`
}

// SessionEnvelope is returned when the dynamic code step completes. The
// token itself travels in the session cookie.
type SessionEnvelope struct {
	Message      string `json:"message"`
	SessionToken string `json:"session_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// decodeValid decodes the JSON body into dst and runs struct validation.
// It writes the error response itself and reports false on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}
