package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-auth-otp/internal/domain"
)

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type passwordComparer interface {
	Compare(hash, plain string) (bool, error)
}

type passwordHasher interface {
	Hash(plain string) (string, error)
	passwordComparer
}

// dummyPassword backs the compare run for unknown usernames.
const dummyPassword = "unknown-user-placeholder"

// CredentialVerifier checks a username and password against the stored hash.
type CredentialVerifier struct {
	users  userStore
	hasher passwordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(users userStore, hasher passwordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the matching user. An unknown username and a wrong password
// both wrap domain.ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			v.compareDummy(password)
			return nil, fmt.Errorf("unknown username: %w", domain.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	ok, err := v.hasher.Compare(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("wrong password for %s: %w", u.UserID, domain.ErrInvalidCredentials)
	}
	return u, nil
}

func (v *CredentialVerifier) compareDummy(password string) {
	v.dummyOnce.Do(func() {
		h, err := v.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Warn("could not build placeholder hash", "err", err)
			return
		}
		v.dummyHash = h
	})
	if v.dummyHash != "" {
		_, _ = v.hasher.Compare(v.dummyHash, password)
	}
}
