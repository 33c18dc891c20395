package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockChecker struct {
	err error
}

func (m mockChecker) CheckHealth(ctx context.Context) error {
	return m.err
}

func TestHealthHandler(t *testing.T) {
	version := "1.0.0"

	tests := []struct {
		name     string
		sessions error
		history  error
		wantCode int
		wantBody Response
	}{
		{
			name:     "healthy system",
			wantCode: http.StatusOK,
			wantBody: Response{
				Status:  "healthy",
				Version: version,
				Details: map[string]any{
					"sessions": map[string]any{"status": "healthy"},
					"history":  map[string]any{"status": "healthy"},
				},
			},
		},
		{
			name:     "session store unhealthy",
			sessions: errors.New("redis unavailable"),
			wantCode: http.StatusServiceUnavailable,
			wantBody: Response{
				Status:  "unhealthy",
				Version: version,
				Details: map[string]any{
					"sessions": map[string]any{
						"status":  "unhealthy",
						"message": "redis unavailable",
					},
					"history": map[string]any{"status": "healthy"},
				},
			},
		},
		{
			name:     "history store unhealthy",
			history:  errors.New("connection refused"),
			wantCode: http.StatusServiceUnavailable,
			wantBody: Response{
				Status:  "unhealthy",
				Version: version,
				Details: map[string]any{
					"sessions": map[string]any{"status": "healthy"},
					"history": map[string]any{
						"status":  "unhealthy",
						"message": "connection refused",
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := New(
				Component{Name: "sessions", Checker: mockChecker{err: tt.sessions}},
				Component{Name: "history", Checker: mockChecker{err: tt.history}},
			).WithVersion(version)

			req := httptest.NewRequest("GET", "/health", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if got := w.Code; got != tt.wantCode {
				t.Errorf("Health handler status = %v, want %v", got, tt.wantCode)
			}
			if got := w.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Health handler Cache-Control = %v, want no-store", got)
			}
			if got := w.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Health handler Content-Type = %v, want application/json", got)
			}

			var got Response
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("Health handler response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
