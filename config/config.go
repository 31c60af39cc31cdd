package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	DSN      string `env:"DSN"`
	Host     string `env:"HOST" envDefault:"db"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	TimeZone string `env:"TIMEZONE" envDefault:"UTC"`
}

// ConnString returns DSN if set, otherwise a libpq keyword/value string.
func (d DatabaseConfig) ConnString() string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone)
}

type AuthConfig struct {
	JWTSecret         string        `env:"JWT_SECRET_KEY"`
	JWTSecretFallback string        `env:"JWT_SECRET"`
	AdminUsername     string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword     string        `env:"ADMIN_PASSWORD"`
	TokenTTL          time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// Secret prefers JWT_SECRET_KEY and falls back to JWT_SECRET.
func (a AuthConfig) Secret() []byte {
	if s := strings.TrimSpace(a.JWTSecret); s != "" {
		return []byte(s)
	}
	return []byte(strings.TrimSpace(a.JWTSecretFallback))
}

type ProviderConfig struct {
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"20s"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"1"`
	RetryInitial time.Duration `env:"RETRY_INITIAL" envDefault:"500ms"`
}

type RateLimitConfig struct {
	Max    int           `env:"MAX" envDefault:"60"`
	Window time.Duration `env:"WINDOW" envDefault:"60s"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`  // trace|debug|info|warn|error
	Format string `env:"FORMAT" envDefault:"json"` // json|console
}

type Config struct {
	Port           string `env:"PORT" envDefault:"8080"`
	Env            string `env:"APP_ENV" envDefault:"production"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`

	// Fiber's default BodyLimit is 4MB; BODY_LIMIT_BYTES wins over BODY_LIMIT_MB.
	BodyLimitBytes int `env:"BODY_LIMIT_BYTES"`
	BodyLimitMB    int `env:"BODY_LIMIT_MB" envDefault:"4"`

	ImportBatchSize int `env:"SERVICE_IMPORT_BATCH_SIZE" envDefault:"100"`

	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Auth      AuthConfig
	Provider  ProviderConfig `envPrefix:"PROVIDER_"`
	Log       LogConfig      `envPrefix:"LOG_"`
}

// Load reads an optional .env file and then parses the process environment.
func Load() (Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BodyLimitBytes <= 0 {
		if c.BodyLimitMB <= 0 {
			c.BodyLimitMB = 4
		}
		c.BodyLimitBytes = c.BodyLimitMB * 1024 * 1024
	}
	if c.ImportBatchSize <= 0 {
		c.ImportBatchSize = 100
	}
	if c.Provider.MaxAttempts <= 0 {
		c.Provider.MaxAttempts = 1
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		c.AllowedOrigins = "*"
	}
}

func (c Config) Validate() error {
	if len(c.Auth.Secret()) == 0 {
		return errors.New("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}
