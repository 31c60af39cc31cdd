package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 4*1024*1024, cfg.BodyLimitBytes)
	require.Equal(t, 60, cfg.RateLimit.Max)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 20*time.Second, cfg.Provider.Timeout)
	require.Equal(t, 1, cfg.Provider.MaxAttempts)
	require.Equal(t, 100, cfg.ImportBatchSize)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, "admin", cfg.Auth.AdminUsername)
	require.Equal(t, []byte("s3cret"), cfg.Auth.Secret())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "fallback")
	t.Setenv("BODY_LIMIT_MB", "2")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("PROVIDER_MAX_ATTEMPTS", "3")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("DB_DSN", "postgres://u:p@localhost/panel")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, []byte("fallback"), cfg.Auth.Secret())
	require.Equal(t, 2*1024*1024, cfg.BodyLimitBytes)
	require.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	require.Equal(t, 3, cfg.Provider.MaxAttempts)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	require.Equal(t, "postgres://u:p@localhost/panel", cfg.Database.ConnString())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestConnStringFromParts(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "panel", SSLMode: "disable", TimeZone: "UTC"}
	require.Equal(t, "host=db user=u password=p dbname=panel port=5432 sslmode=disable TimeZone=UTC", d.ConnString())
}
