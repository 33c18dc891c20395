// Package auth serves the device code sign-in, session and logout endpoints
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/common"
	"github.com/wrale/friendsweep/internal/deviceflow"
	"github.com/wrale/friendsweep/internal/platform"
	"github.com/wrale/friendsweep/internal/session"
	"github.com/wrale/friendsweep/internal/validation"
)

// Flow issues device codes and waits for the user to approve them
type Flow interface {
	RequestDeviceCode(ctx context.Context) (*platform.DeviceAuthorization, error)
	ResolveDeviceCode(ctx context.Context, deviceCode string) (*deviceflow.Authorization, error)
}

// Sessions creates and validates local sessions
type Sessions interface {
	Create(ctx context.Context, auth *deviceflow.Authorization) (*session.Session, error)
	Validate(ctx context.Context, id string) (*session.Session, error)
}

// Logouter ends a session
type Logouter interface {
	Logout(ctx context.Context, sessionID string) error
}

// Config contains handler dependencies
type Config struct {
	Flow         Flow
	Sessions     Sessions
	Logouter     Logouter
	CookieSecure bool
	Logger       *slog.Logger
}

// Handler serves the /api/auth endpoints
type Handler struct {
	flow         Flow
	sessions     Sessions
	logouter     Logouter
	cookieSecure bool
	logger       *slog.Logger
}

// SessionView is what a client learns about its session. The access token
// never leaves the server.
type SessionView struct {
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// New creates the auth handler
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		flow:         cfg.Flow,
		sessions:     cfg.Sessions,
		logouter:     cfg.Logouter,
		cookieSecure: cfg.CookieSecure,
		logger:       logger,
	}
}

// DeviceCode issues a new device authorization
func (h *Handler) DeviceCode(w http.ResponseWriter, r *http.Request) {
	auth, err := h.flow.RequestDeviceCode(r.Context())
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, auth)
}

// Verify blocks until the device code is approved or the attempt ends,
// then opens a session and sets the session cookie
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req validation.VerifyRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}

	auth, err := h.flow.ResolveDeviceCode(r.Context(), req.DeviceCode)
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}

	sess, err := h.sessions.Create(r.Context(), auth)
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}

	common.SetSessionCookie(w, sess.ID, auth.ExpiresIn, h.cookieSecure)
	common.WriteJSON(w, http.StatusOK, viewOf(sess))
}

// Session reports the caller's live session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Validate(r.Context(), common.SessionID(r))
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, viewOf(sess))
}

// Logout ends the caller's session. The cookie is cleared even when the
// session store fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.logouter.Logout(r.Context(), common.SessionID(r))
	common.ClearSessionCookie(w, h.cookieSecure)
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func viewOf(sess *session.Session) SessionView {
	return SessionView{
		AccountID:   sess.AccountID,
		DisplayName: sess.DisplayName,
		ExpiresAt:   sess.ExpiresAt,
	}
}
