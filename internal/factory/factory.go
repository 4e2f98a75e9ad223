package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/fiteval/internal/dependencies/clock"
	"github.com/mcoot/fiteval/internal/dependencies/random"
	"github.com/mcoot/fiteval/internal/services/auth"
	"github.com/mcoot/fiteval/internal/services/evaluation"
	"github.com/mcoot/fiteval/internal/services/upload"
	"github.com/mcoot/fiteval/internal/storage"
	"github.com/mcoot/fiteval/internal/storage/file"
	"github.com/mcoot/fiteval/internal/storage/memory"
	"github.com/mcoot/fiteval/internal/storage/postgres"
	redisstorage "github.com/mcoot/fiteval/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeFile     = "file"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Credentials storage.CredentialStore
	Sessions    storage.SessionStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService *auth.Service
	Receiver    *upload.Receiver
	Invoker     *evaluation.Invoker
	Evaluator   *evaluation.Service

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// CredentialStorage selects the credential backend; defaults to "memory"
	CredentialStorage string
	// SessionStorage selects the session backend ("memory", "redis" or "postgres"); defaults to "memory"
	SessionStorage string
	// UsersFile is the credential file (required if CredentialStorage is "file")
	UsersFile string
	// RedisConfig holds Redis connection settings (required if either backend is "redis")
	RedisConfig *redisstorage.Config
	// DatabaseConfig holds PostgreSQL settings (required if either backend is "postgres")
	DatabaseConfig *postgres.Config

	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig      auth.Config
	UploadConfig    upload.Config
	EvaluatorConfig evaluation.Config
}

// New creates a new application with all dependencies wired.
// Call Close on the result to release store connections.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	b := &backends{cfg: cfg}

	credentials, err := b.credentialStore(ctx)
	if err != nil {
		b.close()
		return nil, err
	}
	sessions, err := b.sessionStore(ctx)
	if err != nil {
		b.close()
		return nil, err
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	uploadCfg := cfg.UploadConfig
	if uploadCfg.Dir == "" {
		uploadCfg = upload.DefaultConfig()
	}

	app, err := newWithDependencies(credentials, sessions, clock.New(), random.New(), authCfg, uploadCfg, cfg.EvaluatorConfig, logger)
	if err != nil {
		b.close()
		return nil, err
	}
	app.closers = b.closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	credentials storage.CredentialStore,
	sessions storage.SessionStore,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	uploadCfg upload.Config,
	evalCfg evaluation.Config,
	logger *slog.Logger,
) (*App, error) {
	receiver, err := upload.New(uploadCfg, rnd, logger)
	if err != nil {
		return nil, fmt.Errorf("create upload receiver: %w", err)
	}

	invoker := evaluation.NewInvoker(evalCfg, logger)

	return &App{
		Credentials: credentials,
		Sessions:    sessions,
		Clock:       clk,
		Random:      rnd,
		AuthService: auth.New(credentials, sessions, clk, rnd, logger, authCfg),
		Receiver:    receiver,
		Invoker:     invoker,
		Evaluator:   evaluation.NewService(invoker, evalCfg, logger),
	}, nil
}

// Close releases every store connection opened by New
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// backends opens each networked store at most once so credentials and
// sessions can share a connection
type backends struct {
	cfg      Config
	redis    *redisstorage.Storage
	postgres *postgres.Storage
	closers  []io.Closer
}

func (b *backends) credentialStore(ctx context.Context) (storage.CredentialStore, error) {
	switch kind := orMemory(b.cfg.CredentialStorage); kind {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeFile:
		if b.cfg.UsersFile == "" {
			return nil, errors.New("UsersFile required when CredentialStorage is file")
		}
		return file.New(b.cfg.UsersFile)
	case StorageTypeRedis:
		return b.redisStore()
	case StorageTypePostgres:
		return b.postgresStore(ctx)
	default:
		return nil, fmt.Errorf("invalid CredentialStorage %q: must be 'memory', 'file', 'redis' or 'postgres'", kind)
	}
}

func (b *backends) sessionStore(ctx context.Context) (storage.SessionStore, error) {
	switch kind := orMemory(b.cfg.SessionStorage); kind {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		return b.redisStore()
	case StorageTypePostgres:
		return b.postgresStore(ctx)
	default:
		return nil, fmt.Errorf("invalid SessionStorage %q: must be 'memory', 'redis' or 'postgres'", kind)
	}
}

func (b *backends) redisStore() (*redisstorage.Storage, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	if b.cfg.RedisConfig == nil {
		return nil, errors.New("RedisConfig required when a store is redis")
	}
	store, err := redisstorage.New(*b.cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	b.redis = store
	b.closers = append(b.closers, store)
	return store, nil
}

func (b *backends) postgresStore(ctx context.Context) (*postgres.Storage, error) {
	if b.postgres != nil {
		return b.postgres, nil
	}
	if b.cfg.DatabaseConfig == nil {
		return nil, errors.New("DatabaseConfig required when a store is postgres")
	}
	store, err := postgres.New(ctx, *b.cfg.DatabaseConfig)
	if err != nil {
		return nil, err
	}
	b.postgres = store
	b.closers = append(b.closers, store)
	return store, nil
}

func (b *backends) close() {
	for _, c := range b.closers {
		_ = c.Close()
	}
}

func orMemory(kind string) string {
	if kind == "" {
		return StorageTypeMemory
	}
	return kind
}
