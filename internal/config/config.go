package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	// BaseURL is the externally reachable origin of this deployment.
	// Webhook and browser-return URLs are derived from it, never hard-coded.
	BaseURL string

	// ProductionDomain is the apex domain that resolves to live mode.
	// StagingMarker forces sandbox for preview deployments regardless of
	// credential presence.
	ProductionDomain string
	StagingMarker    string

	Card  CardConfig
	Email EmailConfig

	AdminEmail string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// InitiateRate/InitiateBurst bound payment initiations per client.
	// ConfirmLockTTL bounds how long the webhook and recovery paths can
	// hold the per-order dispatch lock.
	InitiateRate   float64
	InitiateBurst  int
	ConfirmLockTTL time.Duration

	InitiateTimeout    time.Duration
	RecoveryTierBudget time.Duration
	RemoteTierBudget   time.Duration
}

// CardConfig carries the card processor endpoints and per-environment
// credential material. Sandbox and live hosts are distinct and never
// interchangeable.
type CardConfig struct {
	SandboxURL string
	LiveURL    string

	SandboxSignature string
	SandboxAPIKey    string

	LiveSignature    string
	LiveAPIKey       string
	LivePublicKeyPEM string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "checkout"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		BaseURL:          strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		ProductionDomain: strings.TrimSpace(getenv("PRODUCTION_DOMAIN", "luminacare.ro")),
		StagingMarker:    strings.TrimSpace(getenv("STAGING_MARKER", "preview")),

		Card: CardConfig{
			SandboxURL:       getenv("CARD_SANDBOX_URL", "https://sandbox.cardgateway.example/order/card"),
			LiveURL:          getenv("CARD_LIVE_URL", "https://secure.cardgateway.example/order/card"),
			SandboxSignature: strings.TrimSpace(getenv("CARD_SANDBOX_SIGNATURE", "")),
			SandboxAPIKey:    strings.TrimSpace(getenv("CARD_SANDBOX_API_KEY", "")),
			LiveSignature:    strings.TrimSpace(getenv("CARD_LIVE_SIGNATURE", "")),
			LiveAPIKey:       strings.TrimSpace(getenv("CARD_LIVE_API_KEY", "")),
			LivePublicKeyPEM: getenv("CARD_LIVE_PUBLIC_KEY", ""),
		},

		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "comenzi@luminacare.ro"),
		},

		AdminEmail: getenv("ADMIN_EMAIL", "admin@luminacare.ro"),

		DBType:     getenv("DATABASE_TYPE", "sqlite"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "checkout"),
		DBUser:     getenv("DATABASE_USER", "checkout"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		InitiateRate:   getenvFloat("INITIATE_RATE", 1),
		InitiateBurst:  getenvInt("INITIATE_BURST", 5),
		ConfirmLockTTL: getenvDuration("CONFIRM_LOCK_TTL", 30*time.Second),

		InitiateTimeout:    getenvDuration("CARD_INITIATE_TIMEOUT", 10*time.Second),
		RecoveryTierBudget: getenvDuration("RECOVERY_TIER_BUDGET", 2*time.Second),
		RemoteTierBudget:   getenvDuration("RECOVERY_REMOTE_BUDGET", 5*time.Second),
	}

	return cfg
}

// HasLiveCredentials reports whether live-mode signature and key material are
// both present. Live mode must never be resolved without them.
func (c Config) HasLiveCredentials() bool {
	return c.Card.LiveSignature != "" && c.Card.LiveAPIKey != ""
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
