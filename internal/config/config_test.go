package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, "memory", cfg.RateLimit.Storage)
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TOKEN_TTL=2h\nCORS_ALLOWED_ORIGINS=https://a.example,https://b.example\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TOKEN_TTL")
		os.Unsetenv("CORS_ALLOWED_ORIGINS")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestProductionRejectsDefaultSecret(t *testing.T) {
	t.Setenv("APP_ENV", Production)
	t.Setenv("DATABASE_URL", "postgres://localhost/salonhub")

	_, err := Load(filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development default")
}

func TestProductionRejectsShortSecretAndMissingDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = Production
	cfg.JWTSecret = "short"
	cfg.DatabaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestProductionAcceptsExplicitSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = Production
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.DatabaseURL = "postgres://localhost/salonhub"
	assert.NoError(t, cfg.Validate())
}

func TestRateLimitValidate(t *testing.T) {
	r := RateLimitOptions{Storage: "redis", RPS: 1, Burst: 1, LoginPerMinute: 1}
	assert.Error(t, r.Validate())
	r.RedisURL = "redis://localhost:6379/0"
	assert.NoError(t, r.Validate())
	r.Storage = "disk"
	assert.Error(t, r.Validate())
}

func validConfig() Config {
	return Config{
		Environment:  Development,
		JWTSecret:    DevJWTSecret,
		TokenTTL:     8 * time.Hour,
		MaxBodyBytes: 1 << 20,
		RateLimit:    RateLimitOptions{Storage: "memory", RPS: 10, Burst: 10, LoginPerMinute: 5},
		Outbox:       OutboxOptions{PollInterval: time.Second, BatchSize: 10, MaxAttempts: 3, MaxBackoff: time.Minute},
	}
}

func TestSuperAdminBootstrapNeedsPassword(t *testing.T) {
	t.Setenv("SUPERADMIN_EMAIL", "root@salonhub.test")
	t.Setenv("SUPERADMIN_PASSWORD", "short")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPERADMIN_PASSWORD")

	t.Setenv("SUPERADMIN_PASSWORD", "long-enough-password")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "root@salonhub.test", cfg.SuperAdminEmail)
}

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg := validConfig()
	cfg.TrustedProxies = []string{"10.0.0.0/8", " 192.0.2.7 ", "", "2001:db8::/32"}
	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.7/32", prefixes[1].String())
	assert.NoError(t, cfg.Validate())

	cfg.TrustedProxies = []string{"proxy.internal"}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}
