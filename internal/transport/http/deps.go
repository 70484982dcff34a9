package http

import (
	"context"
	"time"

	"github.com/go-auth-otp/internal/domain"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	"github.com/go-auth-otp/internal/transport/http/handler"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	ChangePhoneNumber(ctx context.Context, userID, from, to string) error
}

// DynamicCodeStore is the minimal interface the router requires from the one-time code store.
type DynamicCodeStore interface {
	GenerateCode() (string, error)
	Store(ctx context.Context, ownerID, hashedCode string, ttl time.Duration) error
	Verify(ctx context.Context, ownerID, candidate string) (bool, error)
}

// Hasher hashes and compares passwords and dynamic codes.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) (bool, error)
}

// CodeSender delivers a dynamic code out of band.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo     UserRepository
	CodeStore    DynamicCodeStore
	Hasher       Hasher
	CodeSender   CodeSender
	JWTProvider  *jwtinfra.Provider
	HealthChecks map[string]handler.Checker
}
