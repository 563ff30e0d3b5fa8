package handlers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-admission/internal/auth"
)

const (
	headerUserID       = "X-User-Id"
	headerSessionID    = "X-Session-Id"
	headerTokenVersion = "X-Token-Version"
)

type SessionHandler struct {
	sessions *auth.SessionService
}

func NewSessionHandler(sessions *auth.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Login issues a fresh credential and invalidates the previous one.
func (h *SessionHandler) Login(e *core.RequestEvent) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("invalid request body", err)
	}
	if req.UserID == "" {
		return apis.NewBadRequestError("user_id is required", nil)
	}

	cred, err := h.sessions.Login(e.Request.Context(), req.UserID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, cred)
}

// Logout drops the user's session.
func (h *SessionHandler) Logout(e *core.RequestEvent) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("invalid request body", err)
	}
	if req.UserID == "" {
		return apis.NewBadRequestError("user_id is required", nil)
	}

	if err := h.sessions.Logout(e.Request.Context(), req.UserID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"user_id": req.UserID})
}

// RequireSession validates the session headers before the wrapped
// handler runs. A degraded cache answers 503, not 401, so clients back
// off instead of re-authenticating.
func (h *SessionHandler) RequireSession(next func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		userID := e.Request.Header.Get(headerUserID)
		sessionID := e.Request.Header.Get(headerSessionID)
		versionStr := e.Request.Header.Get(headerTokenVersion)
		if userID == "" || sessionID == "" || versionStr == "" {
			return apis.NewUnauthorizedError("missing session credentials", nil)
		}

		version, err := strconv.ParseInt(versionStr, 10, 64)
		if err != nil {
			return apis.NewUnauthorizedError("malformed token version", nil)
		}

		if err := h.sessions.Validate(e.Request.Context(), userID, sessionID, version); err != nil {
			return apiError(err)
		}
		return next(e)
	}
}
