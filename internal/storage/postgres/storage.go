package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/storage"
	"github.com/mcoot/fiteval/internal/storage/postgres/migrations"
)

// Config holds PostgreSQL connection settings
type Config struct {
	DSN             string        `env:"DSN"`
	MaxConns        int32         `env:"MAX_CONNS, default=10"`
	MinConns        int32         `env:"MIN_CONNS, default=1"`
	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME, default=30m"`
	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME, default=5m"`
	Migrate         bool          `env:"MIGRATE, default=true"`
}

// Storage is a PostgreSQL implementation of the credential and session stores
type Storage struct {
	pool *pgxpool.Pool
}

// Ensure Storage implements the interfaces
var (
	_ storage.CredentialStore = (*Storage)(nil)
	_ storage.SessionStore    = (*Storage)(nil)
)

// New opens a pgx pool, verifies connectivity and applies migrations if enabled
func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.DSN == "" {
		return nil, errors.New("empty database dsn")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Storage{pool: pool}
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithPool wraps an existing pool without running migrations
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Migrate applies the embedded goose migrations
func (s *Storage) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer func() { _ = db.Close() }()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Credential operations

func (s *Storage) GetCredential(ctx context.Context, username string) (*model.Credential, error) {
	const q = `SELECT username, password_hash, created_at FROM credentials WHERE username = $1`
	var c model.Credential
	if err := s.pool.QueryRow(ctx, q, username).Scan(&c.Username, &c.PasswordHash, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCredentialNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Storage) CreateCredential(ctx context.Context, cred *model.Credential) error {
	const q = `INSERT INTO credentials (username, password_hash, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING`
	tag, err := s.pool.Exec(ctx, q, cred.Username, cred.PasswordHash, cred.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCredentialExists
	}
	return nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	const q = `INSERT INTO sessions (token, username, created_at, expires_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE SET username = EXCLUDED.username, expires_at = EXCLUDED.expires_at`
	_, err := s.pool.Exec(ctx, q, session.Token, session.Username, session.CreatedAt, session.ExpiresAt)
	return err
}

func (s *Storage) GetSession(ctx context.Context, token string) (*model.Session, error) {
	const q = `SELECT token, username, created_at, expires_at FROM sessions WHERE token = $1`
	var sess model.Session
	if err := s.pool.QueryRow(ctx, q, token).Scan(&sess.Token, &sess.Username, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
