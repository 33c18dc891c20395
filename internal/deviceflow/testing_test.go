package deviceflow

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/wrale/friendsweep/internal/platform"
)

var errGatewayDown = errors.New("gateway down")

// fakeClock advances only when Sleep is called
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) elapsed(since time.Time) time.Duration {
	return c.Now().Sub(since)
}

// fakeGateway replays scripted poll answers and then keeps answering pending
type fakeGateway struct {
	mu        sync.Mutex
	responses []*platform.PollResponse
	pollErr   error
	polls     int

	clientTokenErr error
	deviceCodeErr  error
	authorization  *platform.DeviceAuthorization
	gotClientToken string
}

func (g *fakeGateway) GetClientToken(ctx context.Context) (string, error) {
	if g.clientTokenErr != nil {
		return "", g.clientTokenErr
	}
	return "client-token", nil
}

func (g *fakeGateway) CreateDeviceCode(ctx context.Context, clientToken string) (*platform.DeviceAuthorization, error) {
	g.gotClientToken = clientToken
	if g.deviceCodeErr != nil {
		return nil, g.deviceCodeErr
	}
	return g.authorization, nil
}

func (g *fakeGateway) PollToken(ctx context.Context, deviceCode string) (*platform.PollResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.polls++
	if g.pollErr != nil {
		return nil, g.pollErr
	}
	if len(g.responses) == 0 {
		return pending(), nil
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

func pollResponse(status int, body string) *platform.PollResponse {
	return &platform.PollResponse{StatusCode: status, Body: []byte(body)}
}

func pending() *platform.PollResponse {
	return pollResponse(http.StatusBadRequest, `{"error":"authorization_pending"}`)
}

func slowDown() *platform.PollResponse {
	return pollResponse(http.StatusBadRequest, `{"error":"slow_down"}`)
}

func success() *platform.PollResponse {
	return pollResponse(http.StatusOK, `{"access_token":"user-token","account_id":"acct-1","displayName":"Player","expires_in":7200}`)
}

type recordingMetrics struct {
	mu          sync.Mutex
	polls       []string
	resolutions []string
}

func (m *recordingMetrics) ObservePoll(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls = append(m.polls, outcome)
}

func (m *recordingMetrics) ObserveResolution(state string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions = append(m.resolutions, state)
}
