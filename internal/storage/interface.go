package storage

import (
	"context"
	"time"

	"github.com/mcoot/fiteval/internal/model"
)

// CredentialStore persists login credentials.
// Implementations must make CreateCredential an atomic insert-if-absent.
type CredentialStore interface {
	// GetCredential returns model.ErrCredentialNotFound for unknown usernames
	GetCredential(ctx context.Context, username string) (*model.Credential, error)

	// CreateCredential returns model.ErrCredentialExists if the username is taken
	CreateCredential(ctx context.Context, cred *model.Credential) error
}

// SessionStore persists authenticated sessions
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.Session) error
	// GetSession returns model.ErrSessionNotFound for unknown tokens
	GetSession(ctx context.Context, token string) (*model.Session, error)
	// DeleteSession is a no-op for unknown tokens
	DeleteSession(ctx context.Context, token string) error
	// DeleteExpiredSessions removes sessions expired at now and returns how many were removed
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}
