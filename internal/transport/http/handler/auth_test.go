package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-auth-otp/internal/application/auth"
	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) LoginStart(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*domain.LoginResponse); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) VerifyChallenge(ctx context.Context, req domain.VerifyDynamicCodeRequest) (*domain.SessionResponse, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*domain.SessionResponse); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Identity(ctx context.Context, token string) (*domain.Identity, error) {
	args := m.Called(ctx, token)
	if id, _ := args.Get(0).(*domain.Identity); id != nil {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func newAuthHandler(svc auth.Service) *AuthHandler {
	return NewAuthHandler(svc, CookieConfig{Secure: true, MaxAge: time.Hour})
}

func sessionCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLogin_OK(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.LoginRequest{Username: "alice", Password: "Secr3t!pw"}
	svc.On("LoginStart", mock.Anything, req).Return(&domain.LoginResponse{
		Message: auth.MessageDynamicCodeRequired, PreAuthToken: "pre-auth",
	}, nil)

	rr := httptest.NewRecorder()
	newAuthHandler(svc).Login(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login", jsonBody(t, req)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pre_auth_token":"pre-auth"`)
	assert.Contains(t, rr.Body.String(), auth.MessageDynamicCodeRequired)
}

func TestLogin_InvalidCredentialsIsGeneric(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.LoginRequest{Username: "alice", Password: "wrong"}
	svc.On("LoginStart", mock.Anything, req).Return(nil, fmt.Errorf("wrong password for u-1: %w", domain.ErrInvalidCredentials))

	rr := httptest.NewRecorder()
	newAuthHandler(svc).Login(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login", jsonBody(t, req)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, msgInvalidCredentials, env.Error)
	assert.NotContains(t, env.Error, "u-1")
}

func TestLogin_MissingFields(t *testing.T) {
	svc := new(mockAuthSvc)
	rr := httptest.NewRecorder()
	newAuthHandler(svc).Login(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login", jsonBody(t, map[string]string{"username": "alice"})))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestVerifyDynamicCode_SetsCookie(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.VerifyDynamicCodeRequest{PreAuthToken: "pre-auth", DynamicCode: "482913"}
	exp := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	svc.On("VerifyChallenge", mock.Anything, req).Return(&domain.SessionResponse{SessionToken: "session", ExpiresAt: exp}, nil)

	rr := httptest.NewRecorder()
	newAuthHandler(svc).VerifyDynamicCode(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login/dynamic-code", jsonBody(t, req)))

	assert.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookieFrom(rr)
	require.NotNil(t, c)
	assert.Equal(t, "session", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestVerifyDynamicCode_Rejected(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.VerifyDynamicCodeRequest{PreAuthToken: "pre-auth", DynamicCode: "000000"}
	svc.On("VerifyChallenge", mock.Anything, req).Return(nil, domain.ErrInvalidOrExpiredChallenge)

	rr := httptest.NewRecorder()
	newAuthHandler(svc).VerifyDynamicCode(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login/dynamic-code", jsonBody(t, req)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, msgInvalidDynamicCode, decodeEnvelope(t, rr).Error)
	assert.Nil(t, sessionCookieFrom(rr))
}

func TestVerifyDynamicCode_NonNumericCode(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.VerifyDynamicCodeRequest{PreAuthToken: "pre-auth", DynamicCode: "12ab56"}

	rr := httptest.NewRecorder()
	newAuthHandler(svc).VerifyDynamicCode(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login/dynamic-code", jsonBody(t, req)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestVerifyDynamicCode_IdentityGone(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.VerifyDynamicCodeRequest{PreAuthToken: "pre-auth", DynamicCode: "482913"}
	svc.On("VerifyChallenge", mock.Anything, req).Return(nil, domain.ErrIdentityNotFound)

	rr := httptest.NewRecorder()
	newAuthHandler(svc).VerifyDynamicCode(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login/dynamic-code", jsonBody(t, req)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVerifyDynamicCode_InternalErrorHidden(t *testing.T) {
	svc := new(mockAuthSvc)
	req := domain.VerifyDynamicCodeRequest{PreAuthToken: "pre-auth", DynamicCode: "482913"}
	svc.On("VerifyChallenge", mock.Anything, req).Return(nil, errors.New("redis: connection refused"))

	rr := httptest.NewRecorder()
	newAuthHandler(svc).VerifyDynamicCode(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login/dynamic-code", jsonBody(t, req)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal error", decodeEnvelope(t, rr).Error)
}

func TestLogout_ClearsCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	newAuthHandler(new(mockAuthSvc)).Logout(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookieFrom(rr)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestIdentity_FromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/identity", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.IdentityKey, &domain.Identity{UserID: "u-1"}))

	rr := httptest.NewRecorder()
	newAuthHandler(new(mockAuthSvc)).Identity(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"u-1"}`, rr.Body.String())
}

func TestSessionCookie_InsecureFallsBackToLax(t *testing.T) {
	h := NewAuthHandler(new(mockAuthSvc), CookieConfig{Secure: false, MaxAge: time.Hour})
	c := h.sessionCookie("v", 10)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}
