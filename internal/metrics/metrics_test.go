package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wrale/friendsweep/internal/deviceflow"
	"github.com/wrale/friendsweep/internal/friends"
)

// Compile-time checks that the collector plugs into both recorders
var (
	_ deviceflow.MetricsRecorder = (*Collector)(nil)
	_ friends.MetricsRecorder    = (*Collector)(nil)
)

func TestObservePoll(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObservePoll("pending")
	c.ObservePoll("pending")
	c.ObservePoll("slow_down")

	if got := testutil.ToFloat64(c.polls.WithLabelValues("pending")); got != 2 {
		t.Errorf("pending polls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.polls.WithLabelValues("slow_down")); got != 1 {
		t.Errorf("slow_down polls = %v, want 1", got)
	}
}

func TestObserveResolution(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveResolution("resolved", 30*time.Second)
	c.ObserveResolution("timed_out", 10*time.Minute)

	if got := testutil.ToFloat64(c.resolutions.WithLabelValues("resolved")); got != 1 {
		t.Errorf("resolved = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.resolutionDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestObserveRemoval(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveRemoval("removed", 3)
	c.ObserveRemoval("failed", 5)

	if got := testutil.ToFloat64(c.removedFriends); got != 3 {
		t.Errorf("friends removed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.removals.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed batches = %v, want 1", got)
	}
}

func TestObserveRestoreAndRevoke(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveRestore("already_restored")
	c.ObserveRevokeFailure(context.Background(), errors.New("boom"))

	if got := testutil.ToFloat64(c.restores.WithLabelValues("already_restored")); got != 1 {
		t.Errorf("already_restored = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.revokeFailures); got != 1 {
		t.Errorf("revoke failures = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObservePoll("resolved")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `friendsweep_device_polls_total{outcome="resolved"} 1`) {
		t.Errorf("metrics output missing poll counter:\n%s", body)
	}
}
