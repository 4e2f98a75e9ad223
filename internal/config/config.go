package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/mcoot/fiteval/internal/api"
	"github.com/mcoot/fiteval/internal/api/handler"
	"github.com/mcoot/fiteval/internal/services/auth"
	"github.com/mcoot/fiteval/internal/services/evaluation"
	"github.com/mcoot/fiteval/internal/services/upload"
	"github.com/mcoot/fiteval/internal/storage/postgres"
	redisstorage "github.com/mcoot/fiteval/internal/storage/redis"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config is the complete server configuration, read from the environment
type Config struct {
	LogLevel string `env:"LOG_LEVEL, default=info"`

	HTTP      HTTPConfig          `env:", prefix=HTTP_"`
	Auth      auth.Config         `env:", prefix=AUTH_"`
	Upload    upload.Config       `env:", prefix=UPLOAD_"`
	Evaluator evaluation.Config   `env:", prefix=EVALUATOR_"`
	Store     StoreConfig         `env:", prefix=STORE_"`
	Redis     redisstorage.Config `env:", prefix=REDIS_"`
	Database  postgres.Config     `env:", prefix=DATABASE_"`
}

// HTTPConfig groups the listener, cookie and redirect settings
type HTTPConfig struct {
	Server    api.ServerConfig
	Cookie    handler.CookieConfig
	LoginPath string `env:"LOGIN_PATH, default=/login.html"`
}

// StoreConfig selects where credentials and sessions live
type StoreConfig struct {
	Credentials string `env:"CREDENTIALS, default=file"`
	Sessions    string `env:"SESSIONS, default=memory"`
	// UsersFile is the JSON credential file used by the file backend
	UsersFile string `env:"USERS_FILE, default=users.json"`
}

// Load reads configuration from the process environment
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through the given lookuper
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch c.Store.Credentials {
	case StoreMemory, StoreFile, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("invalid STORE_CREDENTIALS %q", c.Store.Credentials)
	}
	switch c.Store.Sessions {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("invalid STORE_SESSIONS %q", c.Store.Sessions)
	}
	if c.Store.Credentials == StoreFile && c.Store.UsersFile == "" {
		return fmt.Errorf("STORE_USERS_FILE is required for the file credential store")
	}
	if c.uses(StorePostgres) && c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for the postgres store")
	}
	if c.Evaluator.Command == "" {
		return fmt.Errorf("EVALUATOR_COMMAND must not be empty")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) uses(backend string) bool {
	return c.Store.Credentials == backend || c.Store.Sessions == backend
}

// ParseLevel maps a LOG_LEVEL value onto a slog level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
