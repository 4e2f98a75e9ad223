package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/storage"
)

// Storage is an in-memory implementation of the credential and session stores.
// Everything is lost on restart.
type Storage struct {
	mu sync.RWMutex

	credentials map[string]*model.Credential
	sessions    map[string]*model.Session
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		credentials: make(map[string]*model.Credential),
		sessions:    make(map[string]*model.Session),
	}
}

// Ensure Storage implements the interfaces
var (
	_ storage.CredentialStore = (*Storage)(nil)
	_ storage.SessionStore    = (*Storage)(nil)
)

// Credential operations

func (s *Storage) GetCredential(ctx context.Context, username string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[username]
	if !ok {
		return nil, model.ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

func (s *Storage) CreateCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[cred.Username]; ok {
		return model.ErrCredentialExists
	}
	c := *cred
	s.credentials[cred.Username] = &c
	return nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := *session
	s.sessions[session.Token] = &sess
	return nil
}

func (s *Storage) GetSession(ctx context.Context, token string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	sess := *session
	return &sess, nil
}

func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}
