package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/go-auth-otp/internal/pkg/id"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdatePhoneNumber(ctx context.Context, userID string, req domain.UpdatePhoneNumberRequest) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	// ChangePhoneNumber fails with domain.ErrPhoneNumberTaken when another
	// user claims to first.
	ChangePhoneNumber(ctx context.Context, userID, from, to string) error
}

type passwordHasher interface {
	Hash(plain string) (string, error)
}

type service struct {
	repo   userStore
	hasher passwordHasher
	clock  clock.Clocker
}

type ServiceDeps struct {
	UserRepo userStore
	Hasher   passwordHasher
	Clock    clock.Clocker
}

func NewService(deps ServiceDeps) Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &service{repo: deps.UserRepo, hasher: deps.Hasher, clock: clk}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := s.ensureFree(ctx, s.repo.GetByUsername, req.Username, domain.ErrUsernameTaken); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.repo.GetByPhoneNumber, req.PhoneNumber, domain.ErrPhoneNumberTaken); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	u := &domain.User{
		UserID:       id.NewAt(now),
		Username:     req.Username,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("user registered", "user_id", u.UserID)
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdatePhoneNumber(ctx context.Context, userID string, req domain.UpdatePhoneNumberRequest) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.PhoneNumber == req.PhoneNumber {
		return u, nil
	}
	if err := s.ensureFree(ctx, s.repo.GetByPhoneNumber, req.PhoneNumber, domain.ErrPhoneNumberTaken); err != nil {
		return nil, err
	}
	if err := s.repo.ChangePhoneNumber(ctx, userID, u.PhoneNumber, req.PhoneNumber); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) ensureFree(
	ctx context.Context,
	lookup func(context.Context, string) (*domain.User, error),
	value string,
	taken error,
) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("uniqueness check: %w", err)
	}
}
