// Package server provides the HTTP and WebSocket control surface
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/drivercopilot/platform/internal/metrics"
	"github.com/drivercopilot/platform/internal/offer"
	"github.com/drivercopilot/platform/internal/session"
	"github.com/drivercopilot/platform/internal/settings"
	"github.com/drivercopilot/platform/internal/trace"
)

// Command is an inbound WebSocket message.
type Command struct {
	Type       string            `json:"type"` // "start", "stop", "set_thresholds"
	Thresholds *offer.Thresholds `json:"thresholds,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type snapshotMessage struct {
	Type string `json:"type"`
	session.Snapshot
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server exposes the monitoring session over REST and pushes its status and
// offer events to every connected WebSocket client.
type Server struct {
	monitor    *session.Monitor
	store      *settings.Store
	metrics    *metrics.Metrics
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server and starts the event broadcaster.
func New(monitor *session.Monitor, store *settings.Store, m *metrics.Metrics) *Server {
	s := &Server{
		monitor:    monitor,
		store:      store,
		metrics:    m,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	go s.broadcastEvents()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/monitor/start", s.handleMonitorStart)
	mux.HandleFunc("POST /api/monitor/stop", s.handleMonitorStop)
	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("PUT /api/settings", s.handleSettingsPut)

	// Prometheus scrape endpoint
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.monitor.Snapshot())
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	if err := s.startMonitor(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		writeJSONStatus(w, status, map[string]string{"error": err.Error(), "status": s.monitor.Status()})
		return
	}
	writeJSON(w, s.monitor.Snapshot())
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	s.monitor.Stop()
	writeJSON(w, s.monitor.Snapshot())
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.monitor.Thresholds())
}

func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var t offer.Thresholds
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "invalid settings payload"})
		return
	}
	if err := s.applyThresholds(r.Context(), t); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, t)
}

// startMonitor launches the session on a background context so it survives
// the request; the trace context is carried over for log correlation.
func (s *Server) startMonitor(reqCtx context.Context) error {
	ctx := context.Background()
	if tc, ok := trace.FromContext(reqCtx); ok {
		ctx = trace.WithContext(ctx, tc)
	}
	return s.monitor.Start(ctx)
}

var errInvalidThresholds = errors.New("thresholds must be non-negative")

func (s *Server) applyThresholds(ctx context.Context, t offer.Thresholds) error {
	if t.MinRatePerKm < 0 || t.MaxTotalKm < 0 {
		return errInvalidThresholds
	}
	s.monitor.SetThresholds(t)
	if err := s.store.Save(t); err != nil {
		// The session already runs with the new values; persistence is
		// best-effort.
		trace.Logger(ctx).Warn("failed to persist settings", "error", err)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Bring the new client up to date before any events flow.
	_ = wsjson.Write(baseCtx, conn, snapshotMessage{Type: "snapshot", Snapshot: s.monitor.Snapshot()})

	for {
		var cmd Command
		if err := wsjson.Read(baseCtx, conn, &cmd); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, errorMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		s.handleCommand(baseCtx, conn, cmd)
	}
}

func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, cmd Command) {
	ctx, span := trace.StartSpan(ctx, "ws_command")
	defer span.End()
	span.SetAttr("command", cmd.Type)
	log := trace.Logger(ctx)

	switch cmd.Type {
	case "start":
		if err := s.startMonitor(ctx); err != nil {
			log.Warn("start command failed", "error", err)
			_ = wsjson.Write(ctx, conn, errorMessage{Type: "error", Message: err.Error()})
		}
	case "stop":
		s.monitor.Stop()
	case "set_thresholds":
		if cmd.Thresholds == nil {
			_ = wsjson.Write(ctx, conn, errorMessage{Type: "error", Message: "missing thresholds"})
			return
		}
		if err := s.applyThresholds(ctx, *cmd.Thresholds); err != nil {
			_ = wsjson.Write(ctx, conn, errorMessage{Type: "error", Message: err.Error()})
			return
		}
		// Thresholds changes do not produce session events; push the
		// re-evaluated snapshot so clients refresh the verdict.
		_ = wsjson.Write(ctx, conn, snapshotMessage{Type: "snapshot", Snapshot: s.monitor.Snapshot()})
	default:
		log.Debug("unknown command", "type", cmd.Type)
	}
}

// broadcastEvents fans session events out to every connected client.
func (s *Server) broadcastEvents() {
	for evt := range s.monitor.Events() {
		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn, e session.Event) {
				_ = wsjson.Write(context.Background(), c, e)
			}(conn, evt)
		}
		s.mu.RUnlock()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
