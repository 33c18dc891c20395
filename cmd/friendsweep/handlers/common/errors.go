package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wrale/friendsweep/internal/deviceflow"
	"github.com/wrale/friendsweep/internal/friends"
	"github.com/wrale/friendsweep/internal/history"
	"github.com/wrale/friendsweep/internal/platform"
	"github.com/wrale/friendsweep/internal/session"
	"github.com/wrale/friendsweep/internal/validation"
)

// Error codes carried in ErrorResponse
const (
	ErrorCodeInvalidRequest  = "invalid_request"
	ErrorCodeUnauthenticated = "unauthenticated"
	ErrorCodeSessionExpired  = "session_expired"
	ErrorCodeReauthenticate  = "reauthenticate"
	ErrorCodeAccessDenied    = "access_denied"
	ErrorCodeExpiredToken    = "expired_token"
	ErrorCodePollingTimeout  = "polling_timeout"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeAlreadyRestored = "already_restored"
	ErrorCodeUpstreamError   = "upstream_error"
	ErrorCodeUpstreamTimeout = "upstream_unavailable"
	ErrorCodeServerError     = "server_error"
)

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// SetJSONHeaders sets the headers shared by all JSON responses
func SetJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
}

// WriteJSON sends v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	SetJSONHeaders(w)

	body, err := json.Marshal(v)
	if err != nil {
		WriteJSONError(w, err)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// WriteError sends an error response with an explicit status
func WriteError(w http.ResponseWriter, status int, code string, description string) {
	WriteJSON(w, status, ErrorResponse{
		Error:            code,
		ErrorDescription: strings.TrimSpace(description),
	})
}

// WriteJSONError handles JSON encoding failures with a standardized response
func WriteJSONError(w http.ResponseWriter, err error) {
	SetJSONHeaders(w)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"server_error","error_description":"Failed to encode response"}`))
}

// Classify maps a domain error to its HTTP status, error code and a
// description that is safe to show to the caller
func Classify(err error) (int, string, string) {
	var (
		vErr         *validation.ValidationError
		upstreamErr  *platform.UpstreamError
		transportErr *platform.TransportError
	)

	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, ErrorCodeInvalidRequest, vErr.Error()
	case errors.Is(err, friends.ErrNoFriendIDs), errors.Is(err, deviceflow.ErrInvalidDeviceCode):
		return http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error()

	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorCodeUnauthenticated, "Not authenticated"
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized, ErrorCodeSessionExpired, "Session expired, please sign in again"

	case errors.Is(err, deviceflow.ErrAuthorizationDenied):
		return http.StatusBadRequest, ErrorCodeAccessDenied, "The authorization request was denied"
	case errors.Is(err, deviceflow.ErrAuthorizationExpired):
		return http.StatusBadRequest, ErrorCodeExpiredToken, "The device code has expired"
	case errors.Is(err, deviceflow.ErrPollingTimedOut):
		return http.StatusRequestTimeout, ErrorCodePollingTimeout, "Authorization was not completed in time"

	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, ErrorCodeNotFound, "Removal record not found"
	case errors.Is(err, history.ErrAlreadyRestored):
		return http.StatusConflict, ErrorCodeAlreadyRestored, "Removal record was already restored"

	case errors.As(err, &upstreamErr):
		if upstreamErr.Status == http.StatusUnauthorized {
			return http.StatusUnauthorized, ErrorCodeReauthenticate, "Platform rejected the session, please sign in again"
		}
		return http.StatusBadGateway, ErrorCodeUpstreamError, upstreamErr.Op + " failed"
	case errors.Is(err, deviceflow.ErrInvalidTokenResponse):
		return http.StatusBadGateway, ErrorCodeUpstreamError, "Unexpected token response"
	case errors.As(err, &transportErr):
		return http.StatusGatewayTimeout, ErrorCodeUpstreamTimeout, transportErr.Op + " did not complete"
	}

	return http.StatusInternalServerError, ErrorCodeServerError, "Internal server error"
}

// WriteDomainError classifies err and writes the matching response. Server
// side failures are logged.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code, description := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}
	WriteError(w, status, code, description)
}
