package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fiteval/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Credential tests

func (s *StorageSuite) TestCreateAndGetCredential() {
	cred := &model.Credential{Username: "alice", PasswordHash: "hash", CreatedAt: s.now}

	err := s.storage.CreateCredential(s.ctx, cred)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetCredential(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("alice", retrieved.Username)
	s.Equal("hash", retrieved.PasswordHash)
	s.True(s.now.Equal(retrieved.CreatedAt))
}

func (s *StorageSuite) TestGetCredentialNotFound() {
	_, err := s.storage.GetCredential(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *StorageSuite) TestCreateCredentialRejectsDuplicate() {
	_ = s.storage.CreateCredential(s.ctx, &model.Credential{Username: "alice", PasswordHash: "first"})

	err := s.storage.CreateCredential(s.ctx, &model.Credential{Username: "alice", PasswordHash: "second"})
	s.ErrorIs(err, model.ErrCredentialExists)

	retrieved, _ := s.storage.GetCredential(s.ctx, "alice")
	s.Equal("first", retrieved.PasswordHash)
}

func (s *StorageSuite) TestCredentialHasNoTTL() {
	_ = s.storage.CreateCredential(s.ctx, &model.Credential{Username: "alice", PasswordHash: "hash"})

	s.Equal(time.Duration(0), s.mini.TTL(credentialKey("alice")))
}

func (s *StorageSuite) TestCreateCredentialConcurrentOnlyOneWins() {
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.storage.CreateCredential(s.ctx, &model.Credential{Username: "alice", PasswordHash: "h"}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

// Session tests

func (s *StorageSuite) TestSaveAndGetSession() {
	session := &model.Session{Token: "sess_1", Username: "alice", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour)}

	err := s.storage.SaveSession(s.ctx, session)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetSession(s.ctx, "sess_1")
	s.Require().NoError(err)
	s.Equal("alice", retrieved.Username)
}

func (s *StorageSuite) TestSessionHasTTL() {
	session := &model.Session{Token: "sess_1", Username: "alice", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour)}
	_ = s.storage.SaveSession(s.ctx, session)

	s.Equal(time.Hour, s.mini.TTL(sessionKey("sess_1")))
}

func (s *StorageSuite) TestSessionExpiresWithTTL() {
	session := &model.Session{Token: "sess_1", Username: "alice", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour)}
	_ = s.storage.SaveSession(s.ctx, session)

	s.mini.FastForward(time.Hour + time.Second)

	_, err := s.storage.GetSession(s.ctx, "sess_1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestGetSessionNotFound() {
	_, err := s.storage.GetSession(s.ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestDeleteSession() {
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "sess_1", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour)})

	s.Require().NoError(s.storage.DeleteSession(s.ctx, "sess_1"))
	s.Require().NoError(s.storage.DeleteSession(s.ctx, "sess_1"))

	_, err := s.storage.GetSession(s.ctx, "sess_1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestDeleteExpiredSessions() {
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "old", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour)})
	_ = s.storage.SaveSession(s.ctx, &model.Session{Token: "new", CreatedAt: s.now, ExpiresAt: s.now.Add(3 * time.Hour)})

	removed, err := s.storage.DeleteExpiredSessions(s.ctx, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, removed)

	s.False(s.mini.Exists(sessionKey("old")))
	s.True(s.mini.Exists(sessionKey("new")))
}

func (s *StorageSuite) TestDeleteExpiredSessionsIgnoresCredentials() {
	_ = s.storage.CreateCredential(s.ctx, &model.Credential{Username: "alice", PasswordHash: "hash"})

	removed, err := s.storage.DeleteExpiredSessions(s.ctx, s.now.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Equal(0, removed)
	s.True(s.mini.Exists(credentialKey("alice")))
}
