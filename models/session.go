package models

// ActiveSession is the durable record of which session/token-version is
// currently valid for a user. The cache projection ("sessionID:version")
// may lag or be absent; the durable row is the source of truth.
type ActiveSession struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	TokenVersion int64  `json:"token_version"`
	TokenHash    string `json:"-"`
}
