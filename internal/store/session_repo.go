package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"ticket-admission/internal/status"
	"ticket-admission/models"
)

// SessionRepo is the durable side of the session credential: the
// record CacheGuard falls back to on a cache miss.
type SessionRepo struct {
	db dbx.Builder
}

func NewSessionRepo(db dbx.Builder) *SessionRepo {
	return &SessionRepo{db: db}
}

type sessionRow struct {
	UserID       string `db:"user_id"`
	SessionID    string `db:"session_id"`
	TokenVersion int64  `db:"token_version"`
	TokenHash    string `db:"token_hash"`
}

func (r *SessionRepo) Find(ctx context.Context, userID string) (*models.ActiveSession, error) {
	var row sessionRow
	err := r.db.Select("user_id", "session_id", "token_version", "token_hash").
		From("active_sessions").
		Where(dbx.HashExp{"user_id": userID}).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFoundSession
	}
	if err != nil {
		return nil, err
	}
	return &models.ActiveSession{
		UserID:       row.UserID,
		SessionID:    row.SessionID,
		TokenVersion: row.TokenVersion,
		TokenHash:    row.TokenHash,
	}, nil
}

// Upsert replaces the user's active session. One active session per
// user: a new login invalidates the previous device.
func (r *SessionRepo) Upsert(ctx context.Context, id string, session models.ActiveSession) error {
	now := types.NowDateTime()
	_, err := r.db.NewQuery(`
		INSERT INTO active_sessions (id, user_id, session_id, token_version, token_hash, created, updated)
		VALUES ({:id}, {:user}, {:session}, {:version}, {:hash}, {:now}, {:now})
		ON CONFLICT(user_id) DO UPDATE SET
			session_id={:session}, token_version={:version}, token_hash={:hash}, updated={:now}`).
		Bind(dbx.Params{
			"id":      id,
			"user":    session.UserID,
			"session": session.SessionID,
			"version": session.TokenVersion,
			"hash":    session.TokenHash,
			"now":     now,
		}).Execute()
	return err
}

func (r *SessionRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Delete("active_sessions", dbx.HashExp{"user_id": userID}).Execute()
	return err
}
