package handler

import (
	"net/http"

	"github.com/go-auth-otp/internal/application/user"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles registration and profile endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdatePhoneNumber(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePhoneNumberRequest
	if !decodeValid(w, r, &req) {
		return
	}
	u, err := h.svc.UpdatePhoneNumber(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
