package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"ticket-admission/internal/cache"
	"ticket-admission/internal/status"
	"ticket-admission/models"
	"ticket-admission/utils"
)

// SessionRepo is the durable session record store.
type SessionRepo interface {
	Find(ctx context.Context, userID string) (*models.ActiveSession, error)
	Upsert(ctx context.Context, id string, session models.ActiveSession) error
	Delete(ctx context.Context, userID string) error
}

// SessionService enforces one active session per user. A new login
// bumps the token version, which invalidates every credential issued
// under the previous version as soon as the cache entry is evicted or
// expires.
//
// Validation reads go through the fail-fast cache; login and logout
// evictions go through the circuit-broken store so an unhealthy Redis
// cannot block credential changes.
type SessionService struct {
	sessions SessionRepo
	reads    *cache.SessionCache
	writes   *cache.SafeStore
}

func NewSessionService(sessions SessionRepo, reads *cache.SessionCache, writes *cache.SafeStore) *SessionService {
	return &SessionService{
		sessions: sessions,
		reads:    reads,
		writes:   writes,
	}
}

// Credential is what the client holds after login. Token is shown once
// and stored only as a bcrypt hash.
type Credential struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	TokenVersion int64  `json:"token_version"`
	Token        string `json:"token"`
}

// Login issues a fresh session for the user, replacing any previous
// one. The previous session's cache entry is evicted so its version
// stops validating immediately.
func (s *SessionService) Login(ctx context.Context, userID string) (*Credential, error) {
	version := int64(1)
	if existing, err := s.sessions.Find(ctx, userID); err == nil {
		version = existing.TokenVersion + 1
	} else if !errors.Is(err, status.ErrNotFoundSession) {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	sessionID, err := utils.GenerateCode(8)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	token, err := utils.GenerateCode(16)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	session := models.ActiveSession{
		UserID:       userID,
		SessionID:    sessionID,
		TokenVersion: version,
		TokenHash:    string(hash),
	}

	recordID, err := utils.GenerateCode(8)
	if err != nil {
		return nil, fmt.Errorf("generate record id: %w", err)
	}
	if err := s.sessions.Upsert(ctx, recordID, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.writes.Delete(ctx, cache.SessionKey(userID))
	s.reads.Set(ctx, &session)

	return &Credential{
		UserID:       userID,
		SessionID:    sessionID,
		TokenVersion: version,
		Token:        token,
	}, nil
}

// Validate checks the presented session id and token version against
// the current session. ErrTemporarilyUnavailable passes through from
// the cache; callers answer 503, not 401, in that case.
func (s *SessionService) Validate(ctx context.Context, userID, sessionID string, tokenVersion int64) error {
	session, err := s.reads.Get(ctx, userID)
	if errors.Is(err, status.ErrNotFoundSession) {
		return status.ErrInvalidSession
	}
	if err != nil {
		return err
	}
	if session.SessionID != sessionID || session.TokenVersion != tokenVersion {
		return status.ErrInvalidSession
	}
	return nil
}

// VerifyToken proves possession of the raw token against the durable
// hash. Used at credential exchange, not on the per-request path.
func (s *SessionService) VerifyToken(ctx context.Context, userID, token string) (*models.ActiveSession, error) {
	session, err := s.sessions.Find(ctx, userID)
	if errors.Is(err, status.ErrNotFoundSession) {
		return nil, status.ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(session.TokenHash), []byte(token)) != nil {
		return nil, status.ErrInvalidSession
	}
	return session, nil
}

// Logout removes the session everywhere. The durable delete is the
// authority; the eviction is best effort and bounded by the cache TTL.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.writes.Delete(ctx, cache.SessionKey(userID))
	return nil
}
