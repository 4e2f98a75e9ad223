package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fiteval/internal/dependencies/clock"
	"github.com/mcoot/fiteval/internal/dependencies/random"
	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)

// maxPasswordBytes is the bcrypt input limit
const maxPasswordBytes = 72

const (
	tokenPrefix = "sess_"
	tokenBytes  = 32
)

// Service handles signup, login and session validation
type Service struct {
	credentials storage.CredentialStore
	sessions    storage.SessionStore
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger

	sessionDuration time.Duration
	bcryptCost      int

	// dummyHash is compared against when the user is unknown so both
	// failure paths spend the same bcrypt time
	dummyHash []byte
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration `env:"SESSION_DURATION, default=24h"`
	BcryptCost      int           `env:"BCRYPT_COST, default=10"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL, default=5m"`
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
		JanitorInterval: 5 * time.Minute,
	}
}

// New creates a new auth Service
func New(
	credentials storage.CredentialStore,
	sessions storage.SessionStore,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	// Only fails for an out-of-range cost, which is excluded above
	dummy, _ := bcrypt.GenerateFromPassword([]byte("fiteval-dummy-password"), cfg.BcryptCost)

	return &Service{
		credentials:     credentials,
		sessions:        sessions,
		clock:           clock,
		random:          random,
		logger:          logger,
		sessionDuration: cfg.SessionDuration,
		bcryptCost:      cfg.BcryptCost,
		dummyHash:       dummy,
	}
}

// Signup creates a credential for username.
// Concurrent signups for the same name are settled by the store; the loser gets ErrUsernameExists.
func (s *Service) Signup(ctx context.Context, username, password string) error {
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	cred := &model.Credential{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}

	if err := s.credentials.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, model.ErrCredentialExists) {
			return ErrUsernameExists
		}
		return fmt.Errorf("create credential: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed up", "username", username)
	return nil
}

// Login verifies the password and creates a session.
// Unknown user and wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	cred, err := s.credentials.GetCredential(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrCredentialNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	session := &model.Session{
		Token:     tokenPrefix + s.random.Token(tokenBytes),
		Username:  cred.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "username", cred.Username)
	return session, nil
}

// Authenticate returns the live session for token
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.clock.Now()) {
		return nil, ErrInvalidSession
	}
	return session, nil
}

// Logout destroys the session for token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions(ctx context.Context) (int, error) {
	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.clock.Now())
	if err != nil {
		return removed, fmt.Errorf("delete expired sessions: %w", err)
	}
	if removed > 0 {
		s.logger.DebugContext(ctx, "expired sessions removed", "count", removed)
	}
	return removed, nil
}

// RunJanitor calls CleanExpiredSessions every interval until ctx is done
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}
