package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sessionSecret = "session-secret-0123456789abcdef0123"
	preAuthSecret = "pre-auth-secret-0123456789abcdef012"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", sessionSecret)
	t.Setenv("JWT_TEMP_SECRET", preAuthSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, time.Hour, cfg.JWT.SessionExpiry)
	assert.Equal(t, 5*time.Minute, cfg.JWT.PreAuthExpiry)
	assert.Equal(t, 5*time.Minute, cfg.DynamicCode.TTL)
	assert.Equal(t, "memory", cfg.DynamicCode.Backend)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "log", cfg.OTPDelivery)
	assert.True(t, cfg.CookieSecure)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", sessionSecret)
	t.Setenv("JWT_TEMP_SECRET", preAuthSecret)
	t.Setenv("TOKEN_EXPIRATION_DURATION", "12")
	t.Setenv("DYNAMIC_CODE_TTL", "90s")
	t.Setenv("DYNAMIC_CODE_BACKEND", "redis")
	t.Setenv("COOKIE_SECURE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.JWT.SessionExpiry)
	assert.Equal(t, 90*time.Second, cfg.DynamicCode.TTL)
	assert.Equal(t, "redis", cfg.DynamicCode.Backend)
	assert.False(t, cfg.CookieSecure)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_TEMP_SECRET", preAuthSecret)

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_OTPDeliveryOutsideDevelopment(t *testing.T) {
	t.Setenv("JWT_SECRET", sessionSecret)
	t.Setenv("JWT_TEMP_SECRET", preAuthSecret)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sns", cfg.OTPDelivery)

	t.Setenv("OTP_DELIVERY", "log")
	_, err = Load()
	assert.ErrorContains(t, err, "OTP_DELIVERY=log")
}

func TestLoad_UnknownOTPDelivery(t *testing.T) {
	t.Setenv("JWT_SECRET", sessionSecret)
	t.Setenv("JWT_TEMP_SECRET", preAuthSecret)
	t.Setenv("OTP_DELIVERY", "carrier-pigeon")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown OTP_DELIVERY")
}

func TestLoad_NonPositiveCodeTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", sessionSecret)
	t.Setenv("JWT_TEMP_SECRET", preAuthSecret)
	t.Setenv("DYNAMIC_CODE_TTL", "-1m")

	_, err := Load()
	assert.ErrorContains(t, err, "DYNAMIC_CODE_TTL")
}

func TestJWTConfigValidate(t *testing.T) {
	base := JWTConfig{
		SessionSecret: sessionSecret,
		SessionExpiry: time.Hour,
		PreAuthSecret: preAuthSecret,
		PreAuthExpiry: 5 * time.Minute,
	}
	require.NoError(t, base.Validate())

	short := base
	short.PreAuthSecret = "too-short"
	assert.ErrorContains(t, short.Validate(), "at least 32 bytes")

	shared := base
	shared.PreAuthSecret = base.SessionSecret
	assert.ErrorContains(t, shared.Validate(), "must differ")

	zero := base
	zero.PreAuthExpiry = 0
	assert.Error(t, zero.Validate())
}
