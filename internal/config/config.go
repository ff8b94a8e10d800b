package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings. Loaded once at startup from the
// environment and treated as immutable afterwards.
type Config struct {
	// Server
	Port    string
	BaseURL string

	// Database
	DBDSN string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Shop
	ShopCurrency      string
	ShopSuccessURL    string
	ShopCancelURL     string
	ReconcileInterval time.Duration

	// Auth throttling
	RateLimitPerMinute int
	LockoutMaxFailures int
	LockoutDuration    time.Duration

	// Tokens
	JWTSecret              string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	EmailVerificationTTL   time.Duration
	PasswordResetTTL       time.Duration

	// SMTP
	SMTPAddr     string
	SMTPFrom     string
	SMTPFromName string
}

// Load reads the configuration from environment variables.
// Missing required variables are collected and reported in one error.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.DBDSN = required("DB_DSN")
	cfg.StripeSecretKey = required("STRIPE_SECRET_KEY")
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.ShopSuccessURL = required("SHOP_SUCCESS_URL")
	cfg.ShopCancelURL = required("SHOP_CANCEL_URL")
	cfg.JWTSecret = required("JWT_SECRET")

	cfg.Port = getEnv("PORT", "8080")
	cfg.BaseURL = getEnv("BASE_URL", "http://localhost:"+cfg.Port)
	cfg.ShopCurrency = strings.ToLower(getEnv("SHOP_CURRENCY", "usd"))

	var err error
	if cfg.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	if cfg.LockoutMaxFailures, err = getInt("LOCKOUT_MAX_FAILURES", 5); err != nil {
		return nil, err
	}
	if cfg.LockoutDuration, err = getDuration("LOCKOUT_DURATION", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EmailVerificationTTL, err = getDuration("EMAIL_VERIFICATION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PasswordResetTTL, err = getDuration("PASSWORD_RESET_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.SMTPAddr = getEnv("SMTP_ADDR", "localhost:1025")
	cfg.SMTPFrom = getEnv("SMTP_FROM", "no-reply@solacestudio.dev")
	cfg.SMTPFromName = getEnv("SMTP_FROM_NAME", "SolaceStudio")

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
