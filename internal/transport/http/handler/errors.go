package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-auth-otp/internal/domain"
)

const (
	msgInvalidCredentials = "Invalid username or password."
	msgInvalidDynamicCode = "Invalid or expired dynamic code."
	msgUserNotFound       = "User not found."
	msgUsernameTaken      = "Username already exists."
	msgPhoneNumberTaken   = "Phone number already registered."
)

// httpError maps a service error to a status and a client-safe message.
// Unmapped errors are logged and reported as 500.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, domain.ErrInvalidOrExpiredChallenge):
		writeError(w, http.StatusUnauthorized, msgInvalidDynamicCode)
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrIdentityNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, domain.ErrUsernameTaken):
		writeError(w, http.StatusConflict, msgUsernameTaken)
	case errors.Is(err, domain.ErrPhoneNumberTaken):
		writeError(w, http.StatusConflict, msgPhoneNumberTaken)
	case errors.Is(err, domain.ErrDuplicateIdentity), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad request")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
