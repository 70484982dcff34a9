package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrExpiredChallenge covers a bad pre-auth token and a wrong, used or expired code.
	ErrInvalidOrExpiredChallenge = errors.New("invalid or expired dynamic code")
	ErrIdentityNotFound          = errors.New("identity not found")
	ErrDuplicateIdentity         = errors.New("duplicate identity")
)

// Duplicate identity variants, distinguished so registration can say which field clashed.
var (
	ErrUsernameTaken    = fmt.Errorf("%w: username", ErrDuplicateIdentity)
	ErrPhoneNumberTaken = fmt.Errorf("%w: phone number", ErrDuplicateIdentity)
)
