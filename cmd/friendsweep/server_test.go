package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/auth"
	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/common"
	friendsapi "github.com/wrale/friendsweep/cmd/friendsweep/handlers/friends"
	"github.com/wrale/friendsweep/cmd/friendsweep/handlers/health"
	"github.com/wrale/friendsweep/internal/deviceflow"
	"github.com/wrale/friendsweep/internal/friends"
	"github.com/wrale/friendsweep/internal/history"
	"github.com/wrale/friendsweep/internal/metrics"
	"github.com/wrale/friendsweep/internal/platform"
	"github.com/wrale/friendsweep/internal/session"
)

// instantClock advances on Sleep instead of blocking
type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

// fakePlatform serves the account and friends endpoints the client calls
type fakePlatform struct {
	mu           sync.Mutex
	pendingPolls int
	polls        int
	removed      []string
	killed       []string
}

func (p *fakePlatform) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func (p *fakePlatform) removedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.removed...)
}

func (p *fakePlatform) killedTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.killed...)
}

func (p *fakePlatform) handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/account/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")

		if r.Form.Get("grant_type") == "client_credentials" {
			_, _ = io.WriteString(w, `{"access_token":"client-token","token_type":"bearer","expires_in":3600}`)
			return
		}

		p.mu.Lock()
		p.polls++
		pending := p.polls <= p.pendingPolls
		p.mu.Unlock()

		if pending {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"errorCode":"errors.com.epicgames.account.oauth.authorization_pending"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"user-token","account_id":"acct-1","displayName":"Player One","expires_in":7200}`)
	})

	r.Post("/account/api/oauth/deviceAuthorization", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"device_code":"dev-1","user_code":"ABCD1234","verification_uri":"https://example.com/activate","verification_uri_complete":"https://example.com/activate?userCode=ABCD1234","expires_in":600,"interval":5}`)
	})

	r.Delete("/account/api/oauth/sessions/kill/{token}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.killed = append(p.killed, chi.URLParam(r, "token"))
		p.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/friends/api/v1/{account}/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"friends":[{"accountId":"f1","displayName":"Friend One"},{"accountId":"f2","displayName":"Friend Two"}]}`)
	})

	r.Delete("/friends/api/v1/{account}/friends/{friend}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.removed = append(p.removed, chi.URLParam(r, "friend"))
		p.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

type testApp struct {
	server   *httptest.Server
	client   *http.Client
	platform *fakePlatform
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fake := &fakePlatform{pendingPolls: 2}
	upstream := httptest.NewServer(fake.handler())
	t.Cleanup(upstream.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{ClientID: "client", ClientSecret: "secret", SessionStore: storeMemory}

	client, err := platform.NewClient(platform.Config{
		Credential:        platform.ClientCredential{ID: cfg.ClientID, Secret: cfg.ClientSecret},
		AccountServiceURL: upstream.URL,
		FriendsServiceURL: upstream.URL,
		Timeout:           time.Second,
	}, platform.WithLogger(log))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	flow := deviceflow.NewFlow(client,
		deviceflow.WithClock(&instantClock{now: time.Now()}),
		deviceflow.WithLogger(log),
		deviceflow.WithMetrics(collector),
	)
	sessionStore := session.NewMemoryStore()
	historyStore := history.NewMemoryStore()
	sessions := session.NewManager(sessionStore, session.WithLogger(log))
	coordinator := friends.NewCoordinator(sessions, client, historyStore,
		friends.WithLogger(log),
		friends.WithMetrics(collector),
	)

	srv := newServer(cfg, dependencies{
		flow:        flow,
		sessions:    sessions,
		coordinator: coordinator,
		health: []health.Component{
			{Name: "sessions", Checker: sessionStore},
			{Name: "history", Checker: historyStore},
		},
		metrics: metrics.Handler(reg),
		logger:  log,
	})

	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}

	return &testApp{
		server:   ts,
		client:   &http.Client{Jar: jar},
		platform: fake,
	}
}

func (a *testApp) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest(%s %s) error = %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s decoding body: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestSignInRemoveRestoreLogout(t *testing.T) {
	app := newTestApp(t)

	var code platform.DeviceAuthorization
	if status := app.do(t, http.MethodPost, "/api/auth/device-code", "", &code); status != http.StatusOK {
		t.Fatalf("device-code status = %d", status)
	}
	if code.DeviceCode != "dev-1" || code.UserCode != "ABCD1234" {
		t.Fatalf("device code = %+v", code)
	}

	var view auth.SessionView
	if status := app.do(t, http.MethodPost, "/api/auth/verify", `{"device_code":"dev-1"}`, &view); status != http.StatusOK {
		t.Fatalf("verify status = %d", status)
	}
	if view.AccountID != "acct-1" || view.DisplayName != "Player One" {
		t.Errorf("session view = %+v", view)
	}
	if got := app.platform.pollCount(); got != 3 {
		t.Errorf("token polls = %d, want 3", got)
	}

	if status := app.do(t, http.MethodGet, "/api/auth/session", "", &view); status != http.StatusOK {
		t.Fatalf("session status = %d", status)
	}

	var summary platform.FriendsSummary
	if status := app.do(t, http.MethodGet, "/api/friends", "", &summary); status != http.StatusOK {
		t.Fatalf("friends status = %d", status)
	}
	if len(summary.Friends) != 2 {
		t.Fatalf("friends = %+v", summary.Friends)
	}

	var removed friendsapi.RemoveResponse
	if status := app.do(t, http.MethodDelete, "/api/friends/remove", `{"friendIds":["f1","f2","f1"]}`, &removed); status != http.StatusOK {
		t.Fatalf("remove status = %d", status)
	}
	if diff := cmp.Diff(friendsapi.RemoveResponse{Success: true, Removed: 2}, removed); diff != "" {
		t.Errorf("remove response mismatch (-want +got):\n%s", diff)
	}

	var entries []history.Entry
	if status := app.do(t, http.MethodGet, "/api/friends/history", "", &entries); status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	if len(entries) != 2 {
		t.Fatalf("history = %+v", entries)
	}
	names := map[string]string{}
	for _, e := range entries {
		names[e.FriendAccountID] = e.FriendDisplayName
	}
	if diff := cmp.Diff(map[string]string{"f1": "Friend One", "f2": "Friend Two"}, names); diff != "" {
		t.Errorf("display names mismatch (-want +got):\n%s", diff)
	}

	restorePath := "/api/friends/history/" + entries[0].ID + "/restore"
	var restored friendsapi.RestoreResponse
	if status := app.do(t, http.MethodPost, restorePath, "", &restored); status != http.StatusOK {
		t.Fatalf("restore status = %d", status)
	}
	if restored.Entry == nil || !restored.Entry.Restored() {
		t.Errorf("restore response = %+v", restored)
	}

	var errResp common.ErrorResponse
	if status := app.do(t, http.MethodPost, restorePath, "", &errResp); status != http.StatusConflict {
		t.Errorf("second restore status = %d, want 409", status)
	}
	if errResp.Error != common.ErrorCodeAlreadyRestored {
		t.Errorf("second restore error = %q", errResp.Error)
	}

	var ok map[string]bool
	if status := app.do(t, http.MethodPost, "/api/auth/logout", "", &ok); status != http.StatusOK || !ok["success"] {
		t.Fatalf("logout status = %d body = %v", status, ok)
	}
	if diff := cmp.Diff([]string{"user-token"}, app.platform.killedTokens()); diff != "" {
		t.Errorf("killed sessions mismatch (-want +got):\n%s", diff)
	}

	if status := app.do(t, http.MethodGet, "/api/auth/session", "", &errResp); status != http.StatusUnauthorized {
		t.Errorf("session after logout status = %d, want 401", status)
	}
}

func TestRoutesWithoutSession(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/auth/session", ""},
		{http.MethodGet, "/api/friends", ""},
		{http.MethodDelete, "/api/friends/remove", `{"friendIds":["f1"]}`},
		{http.MethodGet, "/api/friends/history", ""},
		{http.MethodPost, "/api/friends/history/6f1c2c1e-8a1b-4f4e-9d2a-0b1c2d3e4f50/restore", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var errResp common.ErrorResponse
			if status := app.do(t, tt.method, tt.path, tt.body, &errResp); status != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", status)
			}
			if errResp.Error != common.ErrorCodeUnauthenticated {
				t.Errorf("error = %q, want %q", errResp.Error, common.ErrorCodeUnauthenticated)
			}
		})
	}

	if got := app.platform.removedIDs(); len(got) != 0 {
		t.Errorf("removals without a session: %v", got)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	app := newTestApp(t)

	var ok map[string]bool
	if status := app.do(t, http.MethodPost, "/api/auth/logout", "", &ok); status != http.StatusOK || !ok["success"] {
		t.Errorf("logout status = %d body = %v", status, ok)
	}
	if got := app.platform.killedTokens(); len(got) != 0 {
		t.Errorf("killed sessions = %v, want none", got)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	app := newTestApp(t)

	var resp health.Response
	if status := app.do(t, http.MethodGet, "/health", "", &resp); status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}
	if resp.Status != "healthy" || len(resp.Details) != 2 {
		t.Errorf("health = %+v", resp)
	}

	res, err := app.client.Get(app.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", res.StatusCode)
	}
}
