package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	JWT            JWTConfig
	DynamicCode    DynamicCodeConfig
	Redis          RedisConfig
	BcryptCost     int
	OTPDelivery    string // "log" | "sns"
	SNSRegion      string
	AllowedOrigins []string // CORS allowed origins
	CookieSecure   bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users        string
	DynamicCodes string
}

// JWTConfig carries one secret and lifetime per token purpose.
type JWTConfig struct {
	SessionSecret string
	SessionExpiry time.Duration
	PreAuthSecret string
	PreAuthExpiry time.Duration
}

// DynamicCodeConfig selects the OTP store backend and the code lifetime.
type DynamicCodeConfig struct {
	Backend string // "memory" | "redis" | "dynamo"
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	minSecretLen = 32
	envDev       = "development"
)

// Load reads all configuration from environment variables and checks the
// token secrets.
func Load() (*Config, error) {
	appEnv := getEnv("APP_ENV", envDev)
	defaultDelivery := "sns"
	if appEnv == envDev {
		defaultDelivery = "log"
	}
	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         appEnv,
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:        getEnv("DYNAMO_TABLE_USERS", "users"),
			DynamicCodes: getEnv("DYNAMO_TABLE_DYNAMIC_CODES", "dynamic_codes"),
		},
		JWT: JWTConfig{
			SessionSecret: getEnv("JWT_SECRET", ""),
			SessionExpiry: time.Duration(getEnvInt("TOKEN_EXPIRATION_DURATION", 1)) * time.Hour,
			PreAuthSecret: getEnv("JWT_TEMP_SECRET", ""),
			PreAuthExpiry: getEnvDuration("PRE_AUTH_TOKEN_TTL", 5*time.Minute),
		},
		DynamicCode: DynamicCodeConfig{
			Backend: getEnv("DYNAMIC_CODE_BACKEND", "memory"),
			TTL:     getEnvDuration("DYNAMIC_CODE_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		BcryptCost:     getEnvInt("BCRYPT_SALT_ROUNDS", 10),
		OTPDelivery:    getEnv("OTP_DELIVERY", defaultDelivery),
		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		CookieSecure:   getEnvBool("COOKIE_SECURE", true),
	}
	if err := cfg.JWT.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateDynamicCode(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateDynamicCode rejects a code lifetime that cannot expire and keeps the
// log sender, which prints codes in clear, out of non-development environments.
func (c *Config) validateDynamicCode() error {
	if c.DynamicCode.TTL <= 0 {
		return errors.New("DYNAMIC_CODE_TTL must be positive")
	}
	switch c.OTPDelivery {
	case "sns":
	case "log":
		if c.AppEnv != envDev {
			return fmt.Errorf("OTP_DELIVERY=log is only allowed when APP_ENV=%s", envDev)
		}
	default:
		return fmt.Errorf("unknown OTP_DELIVERY %q", c.OTPDelivery)
	}
	return nil
}

// Validate rejects missing, short or shared token secrets.
func (c JWTConfig) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.PreAuthSecret == "" {
		return errors.New("JWT_TEMP_SECRET environment variable is required")
	}
	if len(c.SessionSecret) < minSecretLen || len(c.PreAuthSecret) < minSecretLen {
		return errors.New("JWT_SECRET and JWT_TEMP_SECRET must be at least 32 bytes")
	}
	if c.SessionSecret == c.PreAuthSecret {
		return errors.New("JWT_SECRET and JWT_TEMP_SECRET must differ")
	}
	if c.SessionExpiry <= 0 || c.PreAuthExpiry <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
