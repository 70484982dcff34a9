package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-otp/internal/config"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/golang-jwt/jwt/v5"
)

// PurposeDynamicCode marks a pre-auth token that may only be exchanged,
// together with a dynamic code, for a session token.
const PurposeDynamicCode = "dynamic_code_verification"

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// PreAuthClaims is the payload of the short-lived token handed out after the
// password step.
type PreAuthClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionClaims is the payload of the session token. It never carries a purpose.
type SessionClaims struct {
	Username string `json:"username"`
	Purpose  string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with one secret per token purpose.
type Provider struct {
	preAuthSecret []byte
	preAuthExpiry time.Duration
	sessionSecret []byte
	sessionExpiry time.Duration
	clock         clock.Clocker
	parser        *jwt.Parser
}

func NewProvider(cfg config.JWTConfig, clk clock.Clocker) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("jwt provider: %w", err)
	}
	return &Provider{
		preAuthSecret: []byte(cfg.PreAuthSecret),
		preAuthExpiry: cfg.PreAuthExpiry,
		sessionSecret: []byte(cfg.SessionSecret),
		sessionExpiry: cfg.SessionExpiry,
		clock:         clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

func (p *Provider) SessionExpiry() time.Duration { return p.sessionExpiry }

func (p *Provider) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := p.clock.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssuePreAuth signs a pre-auth token for userID with the pre-auth secret.
func (p *Provider) IssuePreAuth(userID string) (string, error) {
	claims := PreAuthClaims{
		Purpose:          PurposeDynamicCode,
		RegisteredClaims: p.registered(userID, p.preAuthExpiry),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.preAuthSecret)
}

// IssueSession signs a session token and returns it with its expiry.
func (p *Provider) IssueSession(userID, username string) (string, time.Time, error) {
	claims := SessionClaims{
		Username:         username,
		RegisteredClaims: p.registered(userID, p.sessionExpiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.sessionSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// VerifyPreAuth checks signature, expiry and purpose of a pre-auth token.
func (p *Provider) VerifyPreAuth(tokenStr string) (*PreAuthClaims, error) {
	claims := &PreAuthClaims{}
	if err := p.parse(tokenStr, claims, p.preAuthSecret); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeDynamicCode {
		return nil, fmt.Errorf("purpose %q: %w", claims.Purpose, ErrTokenInvalid)
	}
	return claims, nil
}

// VerifySession checks signature and expiry of a session token and rejects
// any token carrying a purpose tag.
func (p *Provider) VerifySession(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := p.parse(tokenStr, claims, p.sessionSecret); err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, fmt.Errorf("purpose %q on session token: %w", claims.Purpose, ErrTokenInvalid)
	}
	return claims, nil
}

func (p *Provider) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	token, err := p.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%v: %w", err, ErrTokenExpired)
		}
		return fmt.Errorf("%v: %w", err, ErrTokenInvalid)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return fmt.Errorf("missing subject: %w", ErrTokenInvalid)
	}
	return nil
}
