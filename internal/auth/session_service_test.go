package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ticket-admission/internal/cache"
	"ticket-admission/internal/status"
	"ticket-admission/models"
	"ticket-admission/monitoring"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.ActiveSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.ActiveSession{}}
}

func (f *fakeSessionRepo) Find(ctx context.Context, userID string) (*models.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[userID]
	if !ok {
		return nil, status.ErrNotFoundSession
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) Upsert(ctx context.Context, id string, session models.ActiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.UserID] = &session
	return nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
	return nil
}

func newTestSessionService(t *testing.T) (*SessionService, *fakeSessionRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newFakeSessionRepo()
	monitor := monitoring.NewMonitor()
	reads := cache.NewSessionCache(client, repo, monitor, time.Hour, 0.1)
	writes := cache.NewSafeStore(client, monitor, time.Second)
	return NewSessionService(repo, reads, writes), repo
}

func TestLoginIssuesValidCredential(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestSessionService(t)

	cred, err := svc.Login(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", cred.UserID)
	assert.NotEmpty(t, cred.SessionID)
	assert.NotEmpty(t, cred.Token)
	assert.EqualValues(t, 1, cred.TokenVersion)

	require.NoError(t, svc.Validate(ctx, "alice", cred.SessionID, cred.TokenVersion))

	// the stored hash matches the issued token and nothing else
	stored, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.TokenHash), []byte(cred.Token)))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(stored.TokenHash), []byte("guess")))
}

func TestSecondLoginInvalidatesFirstCredential(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSessionService(t)

	first, err := svc.Login(ctx, "alice")
	require.NoError(t, err)

	second, err := svc.Login(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.TokenVersion)

	err = svc.Validate(ctx, "alice", first.SessionID, first.TokenVersion)
	assert.ErrorIs(t, err, status.ErrInvalidSession)

	require.NoError(t, svc.Validate(ctx, "alice", second.SessionID, second.TokenVersion))
}

func TestValidateRejectsForgedCredential(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSessionService(t)

	cred, err := svc.Login(ctx, "alice")
	require.NoError(t, err)

	err = svc.Validate(ctx, "alice", "forged", cred.TokenVersion)
	assert.ErrorIs(t, err, status.ErrInvalidSession)

	err = svc.Validate(ctx, "alice", cred.SessionID, cred.TokenVersion+1)
	assert.ErrorIs(t, err, status.ErrInvalidSession)

	err = svc.Validate(ctx, "nobody", cred.SessionID, cred.TokenVersion)
	assert.ErrorIs(t, err, status.ErrInvalidSession)
}

func TestVerifyToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSessionService(t)

	cred, err := svc.Login(ctx, "alice")
	require.NoError(t, err)

	session, err := svc.VerifyToken(ctx, "alice", cred.Token)
	require.NoError(t, err)
	assert.Equal(t, cred.SessionID, session.SessionID)

	_, err = svc.VerifyToken(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, status.ErrInvalidSession)

	_, err = svc.VerifyToken(ctx, "nobody", cred.Token)
	assert.ErrorIs(t, err, status.ErrInvalidSession)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestSessionService(t)

	cred, err := svc.Login(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "alice"))

	_, err = repo.Find(ctx, "alice")
	assert.ErrorIs(t, err, status.ErrNotFoundSession)

	err = svc.Validate(ctx, "alice", cred.SessionID, cred.TokenVersion)
	assert.ErrorIs(t, err, status.ErrInvalidSession)
}
