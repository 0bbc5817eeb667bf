package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/drivercopilot/platform/internal/capture"
	"github.com/drivercopilot/platform/internal/metrics"
	"github.com/drivercopilot/platform/internal/offer"
	"github.com/drivercopilot/platform/internal/session"
	"github.com/drivercopilot/platform/internal/settings"
)

type stubSampler struct{}

func (stubSampler) Sample() ([]byte, bool, error) { return nil, false, capture.ErrUnavailable }
func (stubSampler) Close()                        {}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, []byte) offer.Offer { return offer.Invalid() }

type stubNotifier struct{}

func (stubNotifier) Notify(offer.Offer, offer.Evaluation) {}

func newTestServer(t *testing.T, acquire session.AcquireFunc) (*Server, *session.Monitor, *settings.Store) {
	t.Helper()
	if acquire == nil {
		acquire = func() (session.Sampler, error) { return stubSampler{}, nil }
	}
	m := metrics.New()
	monitor := session.New(acquire, stubAnalyzer{}, stubNotifier{}, m, time.Minute, offer.DefaultThresholds())
	t.Cleanup(monitor.Stop)
	store := settings.NewStore(t.TempDir())
	return New(monitor, store, m), monitor, store
}

func decodeBody[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	snap := decodeBody[session.Snapshot](t, rec.Body)
	if snap.State != "idle" {
		t.Errorf("State = %q, want idle", snap.State)
	}
	if snap.Thresholds != offer.DefaultThresholds() {
		t.Errorf("Thresholds = %+v, want defaults", snap.Thresholds)
	}
}

func TestMonitorStartAndConflict(t *testing.T) {
	srv, monitor, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/monitor/start", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, want 200", rec.Code)
	}
	if monitor.State() != session.Active {
		t.Fatalf("monitor state = %v, want Active", monitor.State())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/monitor/start", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", rec.Code)
	}
}

func TestMonitorStartPermissionDenied(t *testing.T) {
	srv, _, _ := newTestServer(t, func() (session.Sampler, error) {
		return nil, capture.ErrPermissionDenied
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/monitor/start", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec.Body)
	if body["status"] != session.StatusPermissionDenied {
		t.Errorf("status line = %q, want %q", body["status"], session.StatusPermissionDenied)
	}
}

func TestMonitorStop(t *testing.T) {
	srv, monitor, _ := newTestServer(t, nil)
	h := srv.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/monitor/start", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/monitor/stop", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", rec.Code)
	}
	if monitor.State() != session.StoppedByUser {
		t.Errorf("monitor state = %v, want StoppedByUser", monitor.State())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, monitor, store := newTestServer(t, nil)
	h := srv.Handler()

	want := offer.Thresholds{MinRatePerKm: 650, MaxTotalKm: 30}
	payload, _ := json.Marshal(want)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/settings", strings.NewReader(string(payload))))
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, want 200", rec.Code)
	}

	if got := monitor.Thresholds(); got != want {
		t.Errorf("monitor thresholds = %+v, want %+v", got, want)
	}
	if got := store.Load(); got != want {
		t.Errorf("persisted thresholds = %+v, want %+v", got, want)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/settings", nil))
	if got := decodeBody[offer.Thresholds](t, rec.Body); got != want {
		t.Errorf("GET settings = %+v, want %+v", got, want)
	}
}

func TestSettingsRejectsBadPayloads(t *testing.T) {
	srv, monitor, _ := newTestServer(t, nil)
	h := srv.Handler()

	for _, body := range []string{"not json", `{"minRatePerKm":-5,"maxTotalKm":20}`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/settings", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("put %q status = %d, want 400", body, rec.Code)
		}
	}
	if monitor.Thresholds() != offer.DefaultThresholds() {
		t.Error("rejected payloads must not change thresholds")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "copilot_ticks_total") {
		t.Error("metrics output should expose copilot_ticks_total")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("preflight should set Access-Control-Allow-Origin")
	}
}

func TestWebSocketSnapshotAndCommands(t *testing.T) {
	srv, monitor, _ := newTestServer(t, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	// The first frame is the current snapshot.
	var snap snapshotMessage
	if err := wsjson.Read(ctx, conn, &snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Type != "snapshot" || snap.State != "idle" {
		t.Fatalf("snapshot = %+v, want idle snapshot", snap)
	}

	if err := wsjson.Write(ctx, conn, Command{Type: "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for monitor.State() != session.Active {
		if time.Now().After(deadline) {
			t.Fatal("start command should activate the monitor")
		}
		time.Sleep(5 * time.Millisecond)
	}

	th := offer.Thresholds{MinRatePerKm: 900, MaxTotalKm: 18}
	if err := wsjson.Write(ctx, conn, Command{Type: "set_thresholds", Thresholds: &th}); err != nil {
		t.Fatalf("write set_thresholds: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for monitor.Thresholds() != th {
		if time.Now().After(deadline) {
			t.Fatal("set_thresholds command should update the monitor")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{}
	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d should be allowed", i)
		}
	}
	if rl.allow() {
		t.Error("message over the window limit should be rejected")
	}
}
