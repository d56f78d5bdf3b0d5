// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	Development = "development"
	Production  = "production"

	// DevJWTSecret is only acceptable outside production.
	DevJWTSecret = "salonhub-dev-secret-change-me"

	minProductionSecretLen = 32
)

type RateLimitOptions struct {
	Storage        string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"`
	RPS            int    `env:"RATE_LIMIT_RPS" envDefault:"20"`
	Burst          int    `env:"RATE_LIMIT_BURST" envDefault:"40"`
	LoginPerMinute int    `env:"RATE_LIMIT_LOGIN_PER_MINUTE" envDefault:"10"`
	RedisURL       string `env:"RATE_LIMIT_REDIS_URL"`
}

func (r *RateLimitOptions) Validate() error {
	if r.RPS <= 0 || r.Burst <= 0 {
		return fmt.Errorf("rate limit RPS and burst must be positive, got %d/%d", r.RPS, r.Burst)
	}
	if r.LoginPerMinute <= 0 {
		return fmt.Errorf("login rate limit must be positive, got %d", r.LoginPerMinute)
	}
	switch r.Storage {
	case "memory":
	case "redis":
		if r.RedisURL == "" {
			return errors.New("RATE_LIMIT_REDIS_URL is required when RATE_LIMIT_STORAGE is redis")
		}
	default:
		return fmt.Errorf("rate limit storage must be memory or redis, got %q", r.Storage)
	}
	return nil
}

type SMTPOptions struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@salonhub.io"`
}

func (s SMTPOptions) Enabled() bool { return s.Host != "" }

type AMQPOptions struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"notifications"`
}

func (a AMQPOptions) Enabled() bool { return a.URL != "" }

type OutboxOptions struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	MaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"10"`
	MaxBackoff   time.Duration `env:"OUTBOX_MAX_BACKOFF" envDefault:"5m"`
}

type Config struct {
	Environment  string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"salonhub-dev-secret-change-me"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"8h"`
	TokenIssuer  string        `env:"TOKEN_ISSUER" envDefault:"salonhub"`
	TOTPIssuer   string        `env:"TOTP_ISSUER" envDefault:"SalonHub"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// Proxies allowed to set X-Forwarded-For, as CIDRs or bare addresses.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Optional platform operator created on startup when missing.
	SuperAdminEmail    string `env:"SUPERADMIN_EMAIL"`
	SuperAdminPassword string `env:"SUPERADMIN_PASSWORD"`

	RateLimit RateLimitOptions
	SMTP      SMTPOptions
	AMQP      AMQPOptions
	Outbox    OutboxOptions
}

func (c *Config) IsProduction() bool { return c.Environment == Production }

// Load reads optional env files, parses the environment and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES; a bare address is a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid prefix %q", raw)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", raw)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Validate fails fast on settings that must never reach a running server.
func (c *Config) Validate() error {
	var errs []error
	switch c.Environment {
	case Development, Production:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be %s or %s, got %q", Development, Production, c.Environment))
	}
	secret := strings.TrimSpace(c.JWTSecret)
	if secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if c.Outbox.BatchSize <= 0 || c.Outbox.MaxAttempts <= 0 || c.Outbox.PollInterval <= 0 {
		errs = append(errs, errors.New("outbox batch size, max attempts and poll interval must be positive"))
	}
	if c.SuperAdminEmail != "" && len(c.SuperAdminPassword) < 8 {
		errs = append(errs, errors.New("SUPERADMIN_PASSWORD must be at least 8 characters when SUPERADMIN_EMAIL is set"))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.IsProduction() {
		if secret == DevJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET uses the development default in production"))
		} else if len(secret) < minProductionSecretLen {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen))
		}
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
		if c.SMTP.Enabled() && c.SMTP.Password == "" {
			errs = append(errs, errors.New("SMTP_PASSWORD is required when SMTP_HOST is set in production"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
