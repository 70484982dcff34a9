package handler

import (
	"net/http"
	"time"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/transport/http/middleware"
)

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles the two-step login, logout and identity endpoints.
type AuthHandler struct {
	svc    auth.Service
	cookie CookieConfig
}

func NewAuthHandler(svc auth.Service, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeValid(w, r, &req) {
		return
	}
	resp, err := h.svc.LoginStart(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) VerifyDynamicCode(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyDynamicCodeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	resp, err := h.svc.VerifyChallenge(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(resp.SessionToken, int(h.cookie.MaxAge.Seconds())))
	writeJSON(w, http.StatusOK, SessionEnvelope{
		Message:      "Login successful.",
		SessionToken: resp.SessionToken,
		ExpiresAt:    resp.ExpiresAt.Unix(),
	})
}

// Logout clears the session cookie. Tokens are stateless, so nothing is
// revoked server side.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Logged out."})
}

func (h *AuthHandler) Identity(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, IdentityEnvelope{ID: id.UserID})
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteNoneMode,
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if !c.Secure {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}
