package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-auth-otp/internal/domain"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
)

const MessageDynamicCodeRequired = "Dynamic code required. Check your registered phone number."

type Service interface {
	LoginStart(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	VerifyChallenge(ctx context.Context, req domain.VerifyDynamicCodeRequest) (*domain.SessionResponse, error)
	Identity(ctx context.Context, sessionToken string) (*domain.Identity, error)
}

type codeHasher interface {
	Hash(plain string) (string, error)
}

type secretHasher interface {
	codeHasher
	passwordComparer
}

type codeStore interface {
	GenerateCode() (string, error)
	Store(ctx context.Context, ownerID, hashedCode string, ttl time.Duration) error
	Verify(ctx context.Context, ownerID, candidate string) (bool, error)
}

type tokenProvider interface {
	IssuePreAuth(userID string) (string, error)
	VerifyPreAuth(token string) (*jwtinfra.PreAuthClaims, error)
	IssueSession(userID, username string) (string, time.Time, error)
	VerifySession(token string) (*jwtinfra.SessionClaims, error)
}

type codeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

type service struct {
	users       userStore
	credentials *CredentialVerifier
	hasher      codeHasher
	codes       codeStore
	tokens      tokenProvider
	sender      codeSender
	codeTTL     time.Duration
}

type ServiceDeps struct {
	UserRepo   userStore
	Hasher     secretHasher
	CodeStore  codeStore
	Tokens     tokenProvider
	CodeSender codeSender
	CodeTTL    time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:       deps.UserRepo,
		credentials: NewCredentialVerifier(deps.UserRepo, deps.Hasher),
		hasher:      deps.Hasher,
		codes:       deps.CodeStore,
		tokens:      deps.Tokens,
		sender:      deps.CodeSender,
		codeTTL:     deps.CodeTTL,
	}
}

func (s *service) LoginStart(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	u, err := s.credentials.Verify(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			slog.Warn("login rejected", "username", req.Username, "err", err)
		}
		return nil, err
	}

	code, err := s.codes.GenerateCode()
	if err != nil {
		return nil, err
	}
	hashed, err := s.hasher.Hash(code)
	if err != nil {
		return nil, fmt.Errorf("hash dynamic code: %w", err)
	}
	if err := s.codes.Store(ctx, u.UserID, hashed, s.codeTTL); err != nil {
		return nil, err
	}
	if err := s.sender.SendCode(ctx, u.PhoneNumber, code); err != nil {
		return nil, fmt.Errorf("deliver dynamic code: %w", err)
	}

	preAuth, err := s.tokens.IssuePreAuth(u.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue pre-auth token: %w", err)
	}
	slog.Info("dynamic code challenge issued", "user_id", u.UserID)
	return &domain.LoginResponse{Message: MessageDynamicCodeRequired, PreAuthToken: preAuth}, nil
}

func (s *service) VerifyChallenge(ctx context.Context, req domain.VerifyDynamicCodeRequest) (*domain.SessionResponse, error) {
	claims, err := s.tokens.VerifyPreAuth(req.PreAuthToken)
	if err != nil {
		return nil, fmt.Errorf("pre-auth token: %v: %w", err, domain.ErrInvalidOrExpiredChallenge)
	}
	userID := claims.Subject

	ok, err := s.codes.Verify(ctx, userID, req.DynamicCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Warn("dynamic code rejected", "user_id", userID)
		return nil, fmt.Errorf("dynamic code for %s: %w", userID, domain.ErrInvalidOrExpiredChallenge)
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrIdentityNotFound)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	token, expiresAt, err := s.tokens.IssueSession(u.UserID, u.Username)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	slog.Info("login completed", "user_id", u.UserID)
	return &domain.SessionResponse{SessionToken: token, ExpiresAt: expiresAt}, nil
}

func (s *service) Identity(_ context.Context, sessionToken string) (*domain.Identity, error) {
	claims, err := s.tokens.VerifySession(sessionToken)
	if err != nil {
		return nil, fmt.Errorf("session token: %v: %w", err, domain.ErrUnauthorized)
	}
	return &domain.Identity{UserID: claims.Subject, Username: claims.Username}, nil
}
