package health

import (
	"context"
	"net/http"

	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/common"
)

// Checker is implemented by every store the service depends on
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// Component names a checked dependency
type Component struct {
	Name    string
	Checker Checker
}

// Handler processes health check requests
type Handler struct {
	components []Component
	version    string
}

// Response represents the health check response
type Response struct {
	Status  string         `json:"status"`
	Version string         `json:"version,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// New creates a new health check handler
func New(components ...Component) *Handler {
	return &Handler{
		components: components,
		version:    "unknown",
	}
}

// WithVersion sets the version for health check responses
func (h *Handler) WithVersion(version string) *Handler {
	h.version = version
	return h
}

// ServeHTTP handles health check requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Status:  "healthy",
		Version: h.version,
		Details: make(map[string]any, len(h.components)),
	}

	for _, c := range h.components {
		if err := c.Checker.CheckHealth(r.Context()); err != nil {
			response.Status = "unhealthy"
			response.Details[c.Name] = map[string]any{
				"status":  "unhealthy",
				"message": err.Error(),
			}
			continue
		}
		response.Details[c.Name] = map[string]any{
			"status": "healthy",
		}
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	common.WriteJSON(w, status, response)
}
