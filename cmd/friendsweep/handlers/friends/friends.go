// Package friends serves the friends list, bulk removal, history and
// restore endpoints
package friends

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/common"
	"github.com/wrale/friendsweep/internal/history"
	"github.com/wrale/friendsweep/internal/platform"
	"github.com/wrale/friendsweep/internal/validation"
)

// Coordinator runs friends operations for a session
type Coordinator interface {
	ListFriends(ctx context.Context, sessionID string) (*platform.FriendsSummary, error)
	RemoveMany(ctx context.Context, sessionID string, friendIDs []string) (int, error)
	History(ctx context.Context, sessionID string) ([]history.Entry, error)
	RestoreOwned(ctx context.Context, sessionID, historyID string) (*history.Entry, error)
}

// Handler serves the /api/friends endpoints
type Handler struct {
	coordinator Coordinator
	logger      *slog.Logger
}

// RemoveResponse reports a fully successful removal batch
type RemoveResponse struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
}

// RestoreResponse carries the restored history entry
type RestoreResponse struct {
	Success bool           `json:"success"`
	Entry   *history.Entry `json:"entry"`
}

// New creates the friends handler
func New(coordinator Coordinator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{coordinator: coordinator, logger: logger}
}

// List returns the friends summary of the caller's account
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	summary, err := h.coordinator.ListFriends(r.Context(), common.SessionID(r))
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, summary)
}

// Remove deletes the listed friendships
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	var req validation.RemoveFriendsRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}

	removed, err := h.coordinator.RemoveMany(r.Context(), common.SessionID(r), req.FriendIDs)
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, RemoveResponse{Success: true, Removed: removed})
}

// History lists the caller's removals, most recent first
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.coordinator.History(r.Context(), common.SessionID(r))
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	common.WriteJSON(w, http.StatusOK, entries)
}

// Restore marks one of the caller's removals as restored
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateHistoryID(id); err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}

	entry, err := h.coordinator.RestoreOwned(r.Context(), common.SessionID(r), id)
	if err != nil {
		common.WriteDomainError(w, r, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, RestoreResponse{Success: true, Entry: entry})
}
