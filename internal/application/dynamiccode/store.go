// Package dynamiccode issues and checks the one-time codes of the second
// login factor. Each owner has at most one pending code; a newer code replaces
// the older one and a code is consumed by the first successful check.
package dynamiccode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/clock"
	pkgtoken "github.com/go-auth-otp/internal/pkg/token"
)

// Backend persists at most one record per owner.
type Backend interface {
	Put(ctx context.Context, c *domain.DynamicCode, ttl time.Duration) error
	// Get returns domain.ErrNotFound when the owner has no record.
	Get(ctx context.Context, ownerID string) (*domain.DynamicCode, error)
	// DeleteIf removes the record only while it still holds hashedCode and
	// reports whether it did.
	DeleteIf(ctx context.Context, ownerID, hashedCode string) (bool, error)
}

type codeComparer interface {
	Compare(hash, plain string) (bool, error)
}

type Store struct {
	backend Backend
	hasher  codeComparer
	clock   clock.Clocker
}

func NewStore(backend Backend, hasher codeComparer, clk clock.Clocker) *Store {
	return &Store{backend: backend, hasher: hasher, clock: clk}
}

// GenerateCode returns a fresh six-digit code.
func (s *Store) GenerateCode() (string, error) {
	return pkgtoken.NewDynamicCode()
}

// Store saves hashedCode for ownerID, replacing any pending code.
func (s *Store) Store(ctx context.Context, ownerID, hashedCode string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("dynamic code ttl must be positive, got %s", ttl)
	}
	c := &domain.DynamicCode{
		OwnerID:    ownerID,
		HashedCode: hashedCode,
		ExpiresAt:  s.clock.Now().Add(ttl),
	}
	if err := s.backend.Put(ctx, c, ttl); err != nil {
		return fmt.Errorf("store dynamic code: %w", err)
	}
	return nil
}

// Verify checks candidate against the owner's pending code. A match consumes
// the code. A mismatch leaves it in place until it expires. Missing and
// expired codes report false without error.
func (s *Store) Verify(ctx context.Context, ownerID, candidate string) (bool, error) {
	c, err := s.backend.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load dynamic code: %w", err)
	}

	if c.Expired(s.clock.Now()) {
		if _, err := s.backend.DeleteIf(ctx, ownerID, c.HashedCode); err != nil {
			slog.Warn("failed to delete expired dynamic code", "user_id", ownerID, "err", err)
		}
		return false, nil
	}

	ok, err := s.hasher.Compare(c.HashedCode, candidate)
	if err != nil {
		return false, fmt.Errorf("compare dynamic code: %w", err)
	}
	if !ok {
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}
	deleted, err := s.backend.DeleteIf(ctx, ownerID, c.HashedCode)
	if err != nil {
		return false, fmt.Errorf("consume dynamic code: %w", err)
	}
	// Lost the race to a concurrent verify or a newer code.
	return deleted, nil
}

// Pending reports whether ownerID has a live code.
func (s *Store) Pending(ctx context.Context, ownerID string) (bool, error) {
	c, err := s.backend.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load dynamic code: %w", err)
	}
	return !c.Expired(s.clock.Now()), nil
}
