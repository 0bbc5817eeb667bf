// Package metrics exposes monitoring-loop counters to Prometheus. Counters
// are plain atomics bumped from the session's single goroutine; Prometheus
// reads them through GaugeFunc collectors on a private registry.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Tick pipeline counters
	Ticks              atomic.Uint64
	SamplesUnavailable atomic.Uint64
	FramesSkipped      atomic.Uint64 // perceptual-hash skips

	// Analysis counters
	AnalysisCalls    atomic.Uint64
	AnalysisInvalid  atomic.Uint64
	ResultsDiscarded atomic.Uint64 // stale results after stop

	// Offer counters
	OffersAccepted  atomic.Uint64
	OffersDuplicate atomic.Uint64

	// Notification counters
	NotificationsSent atomic.Uint64

	// Session state
	SessionActive atomic.Uint64 // 0 = inactive, 1 = active

	registry *prometheus.Registry
}

// New creates a Metrics instance with Prometheus collectors registered.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"copilot_ticks_total", "Total monitoring ticks executed", m.Ticks.Load},
		{"copilot_samples_unavailable_total", "Ticks skipped because the source produced no frame", m.SamplesUnavailable.Load},
		{"copilot_frames_skipped_total", "Frames skipped as perceptually identical to the previous one", m.FramesSkipped.Load},
		{"copilot_analysis_calls_total", "Analysis service calls made", m.AnalysisCalls.Load},
		{"copilot_analysis_invalid_total", "Analysis results with no parseable offer", m.AnalysisInvalid.Load},
		{"copilot_results_discarded_total", "Analysis results discarded after session stop", m.ResultsDiscarded.Load},
		{"copilot_offers_accepted_total", "Distinct offers accepted", m.OffersAccepted.Load},
		{"copilot_offers_duplicate_total", "Offers rejected as duplicates of the last accepted one", m.OffersDuplicate.Load},
		{"copilot_notifications_sent_total", "User notifications emitted", m.NotificationsSent.Load},
		{"copilot_session_active", "Monitoring session active (0=inactive, 1=active)", m.SessionActive.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
