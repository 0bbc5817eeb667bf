// Package session runs the capture-analyze-dedup-notify loop
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"strconv"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/drivercopilot/platform/internal/analysis"
	"github.com/drivercopilot/platform/internal/capture"
	"github.com/drivercopilot/platform/internal/metrics"
	"github.com/drivercopilot/platform/internal/notify"
	"github.com/drivercopilot/platform/internal/offer"
	"github.com/drivercopilot/platform/internal/syncx"
	"github.com/drivercopilot/platform/internal/trace"
)

// State is the monitoring session lifecycle state.
type State int

const (
	Idle State = iota
	RequestingCapture
	Active
	StoppedByUser
	StoppedBySource
	Errored
)

func (s State) String() string {
	return [...]string{"idle", "requesting-capture", "active", "stopped-by-user", "stopped-by-source", "error"}[s]
}

// ErrAlreadyRunning is returned by Start while a session is live.
var ErrAlreadyRunning = errors.New("monitoring already running")

// Sampler is the capture surface the session drives, one frame per tick.
type Sampler interface {
	Sample() (data []byte, changed bool, err error)
	Close()
}

// AcquireFunc obtains the capture source; it fails with
// capture.ErrPermissionDenied when the user or OS refuses.
type AcquireFunc func() (Sampler, error)

// Event is pushed to the control surface on status changes and accepted
// offers.
type Event struct {
	Type       string            `json:"type"` // "status" or "offer"
	State      string            `json:"state"`
	Status     string            `json:"status"`
	Offer      *offer.Offer      `json:"offer,omitempty"`
	Evaluation *offer.Evaluation `json:"evaluation,omitempty"`
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	State      string            `json:"state"`
	Status     string            `json:"status"`
	Thresholds offer.Thresholds  `json:"thresholds"`
	Offer      *offer.Offer      `json:"offer,omitempty"`
	Evaluation *offer.Evaluation `json:"evaluation,omitempty"`
}

// Monitor owns the monitoring session: at most one live capture/analysis
// loop, the last accepted offer with its evaluation, and the dedup state.
// All pipeline steps run on one goroutine; thresholds may change from any
// goroutine and are applied before the next evaluation.
type Monitor struct {
	acquire  AcquireFunc
	analyzer analysis.Analyzer
	notifier notify.Notifier
	metrics  *metrics.Metrics
	interval time.Duration

	thresholds *syncx.RWGuard[offer.Thresholds]

	mu        sync.RWMutex
	state     State
	status    string
	lastOffer *offer.Offer
	lastEval  *offer.Evaluation
	sampler   Sampler
	cancel    context.CancelFunc
	stopCh    chan struct{}
	gen       uint64 // bumped on teardown; stale analysis results are discarded
	lastHash  *goimagehash.ImageHash

	tracker offer.Tracker
	events  chan Event
}

// New creates a monitor in the Idle state.
func New(acquire AcquireFunc, analyzer analysis.Analyzer, notifier notify.Notifier, m *metrics.Metrics, interval time.Duration, initial offer.Thresholds) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		acquire:    acquire,
		analyzer:   analyzer,
		notifier:   notifier,
		metrics:    m,
		interval:   interval,
		thresholds: syncx.NewGuard(initial),
		state:      Idle,
		status:     StatusReady,
		events:     make(chan Event, EventBuffer),
	}
}

// Events returns the channel of status/offer events.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns the human-readable status line.
func (m *Monitor) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Thresholds returns the current acceptability bounds.
func (m *Monitor) Thresholds() offer.Thresholds {
	return m.thresholds.Get()
}

// Snapshot returns the session state for display.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		State:      m.state.String(),
		Status:     m.status,
		Thresholds: m.thresholds.Get(),
	}
	if m.lastOffer != nil {
		o := *m.lastOffer
		ev := *m.lastEval
		snap.Offer = &o
		snap.Evaluation = &ev
	}
	return snap
}

// SetThresholds swaps the acceptability bounds and re-evaluates the last
// accepted offer against them. Re-evaluation updates the displayed
// classification only; it never notifies.
func (m *Monitor) SetThresholds(t offer.Thresholds) {
	m.thresholds.Set(t)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastOffer == nil {
		return
	}
	ev := offer.Evaluate(*m.lastOffer, t)
	m.lastEval = &ev
}

// Start acquires the capture source and begins the sampling loop. From any
// stopped or error state it re-enters the requesting phase; starting a live
// session is an error.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == RequestingCapture || m.state == Active {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.state = RequestingCapture
	m.status = StatusRequesting
	m.mu.Unlock()
	m.emitStatus()

	sampler, err := m.acquire()
	if err != nil {
		m.mu.Lock()
		m.state = Errored
		m.status = StatusPermissionDenied
		m.mu.Unlock()
		m.emitStatus()
		trace.Logger(ctx).Warn("capture acquisition failed", "error", err)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})

	m.mu.Lock()
	m.sampler = sampler
	m.cancel = cancel
	m.stopCh = stopCh
	m.state = Active
	m.status = StatusScanning
	m.lastOffer = nil
	m.lastEval = nil
	m.lastHash = nil
	gen := m.gen
	m.mu.Unlock()

	m.tracker.Reset()
	m.metrics.SessionActive.Store(1)
	m.emitStatus()
	trace.Logger(ctx).Info("monitoring started", "interval", m.interval)

	go m.run(runCtx, stopCh, gen)
	return nil
}

// Stop ends the session at the user's request. It synchronously cancels the
// timer and releases the capture source; an analysis result that arrives
// afterwards is dropped.
func (m *Monitor) Stop() {
	m.teardown(StoppedByUser, StatusStopped)
}

func (m *Monitor) run(ctx context.Context, stopCh <-chan struct{}, gen uint64) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.tick(ctx, gen)
			if m.State() != Active {
				return
			}
		}
	}
}

// tick executes one pass of the pipeline: sample, analyze, dedup, evaluate,
// notify. Every failure is absorbed into a status line; the loop itself
// never dies from a bad tick.
func (m *Monitor) tick(ctx context.Context, gen uint64) {
	ctx, span := trace.StartSpan(ctx, "monitor_tick")
	defer span.End()
	log := trace.Logger(ctx)
	m.metrics.Ticks.Add(1)

	m.mu.RLock()
	sampler := m.sampler
	m.mu.RUnlock()
	if sampler == nil {
		return
	}

	frame, changed, err := sampler.Sample()
	switch {
	case errors.Is(err, capture.ErrSourceEnded):
		log.Info("capture source ended")
		m.teardown(StoppedBySource, StatusStopped)
		return
	case err != nil:
		m.metrics.SamplesUnavailable.Add(1)
		m.setStatus(StatusPausedBySystem)
		return
	}

	if !changed || m.shouldSkipAnalysis(frame) {
		m.metrics.FramesSkipped.Add(1)
		return
	}

	m.metrics.AnalysisCalls.Add(1)
	result := m.analyzer.Analyze(ctx, frame)
	span.SetAttr("valid", result.Valid)

	// The session may have been stopped while the call was in flight;
	// a late result must not touch session state.
	if !m.liveGeneration(gen) {
		m.metrics.ResultsDiscarded.Add(1)
		log.Debug("discarding analysis result from stopped session")
		return
	}

	if !result.Valid {
		m.metrics.AnalysisInvalid.Add(1)
		m.setStatus(StatusSearching)
		return
	}

	if !m.tracker.ShouldAccept(result) {
		m.metrics.OffersDuplicate.Add(1)
		m.setStatus(StatusWaiting)
		return
	}

	m.tracker.RecordAccepted(result)
	ev := offer.Evaluate(result, m.thresholds.Get())

	m.mu.Lock()
	m.lastOffer = &result
	m.lastEval = &ev
	m.status = fmt.Sprintf("✅ Offer: %s%s", result.Currency, strconv.FormatFloat(result.TotalPrice, 'f', -1, 64))
	m.mu.Unlock()

	m.metrics.OffersAccepted.Add(1)
	log.Info("offer accepted",
		"price", result.TotalPrice,
		"totalKm", result.TotalKm,
		"ratePerKm", ev.RatePerKm,
		"acceptable", ev.OverallAcceptable)

	m.notifier.Notify(result, ev)
	m.metrics.NotificationsSent.Add(1)

	m.emit(Event{Type: "offer", State: Active.String(), Status: m.Status(), Offer: &result, Evaluation: &ev})
}

// shouldSkipAnalysis computes a perceptual hash and skips the vision call
// when the frame is near-identical to the previous one. An unchanged screen
// cannot carry a new offer fingerprint, so skipping never alters alerting.
func (m *Monitor) shouldSkipAnalysis(frame []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return false
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastHash == nil {
		m.lastHash = hash
		return false
	}

	dist, err := m.lastHash.Distance(hash)
	if err != nil {
		m.lastHash = hash
		return false
	}
	if dist <= MaxHashDistance {
		return true
	}

	m.lastHash = hash
	return false
}

// liveGeneration reports whether the session that issued gen is still live.
func (m *Monitor) liveGeneration(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen == gen && m.state == Active
}

// teardown releases all session resources and lands in a terminal state.
// Safe to call from both the run goroutine (source ended) and outside it
// (user stop); only the first caller acts.
func (m *Monitor) teardown(to State, status string) {
	m.mu.Lock()
	if m.state != Active && m.state != RequestingCapture {
		m.mu.Unlock()
		return
	}
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	if m.sampler != nil {
		m.sampler.Close()
		m.sampler = nil
	}
	m.state = to
	m.status = status
	m.mu.Unlock()

	m.tracker.Reset()
	m.metrics.SessionActive.Store(0)
	m.emitStatus()
}

func (m *Monitor) setStatus(status string) {
	m.mu.Lock()
	if m.status == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	m.mu.Unlock()
	m.emitStatus()
}

func (m *Monitor) emitStatus() {
	m.mu.RLock()
	evt := Event{Type: "status", State: m.state.String(), Status: m.status}
	m.mu.RUnlock()
	m.emit(evt)
}

// emit never blocks; a slow consumer loses events, not the pipeline.
func (m *Monitor) emit(evt Event) {
	select {
	case m.events <- evt:
	default:
	}
}
