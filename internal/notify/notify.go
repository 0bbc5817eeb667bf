// Package notify emits the user-visible alert for a newly accepted offer.
// Alerts fire once per accepted offer, never per sample or re-evaluation;
// when the platform has no alerting capability the notifier is a silent
// no-op, never an error.
package notify

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/drivercopilot/platform/internal/offer"
)

// Notifier alerts the user about an accepted, evaluated offer.
type Notifier interface {
	Notify(o offer.Offer, ev offer.Evaluation)
}

// Desktop sends native desktop notifications. Availability is probed once at
// construction; Notify does nothing when the platform tool is missing.
type Desktop struct {
	available bool
}

// NewDesktop probes the platform alert tool and returns the notifier.
func NewDesktop() *Desktop {
	ok := alertAvailable()
	if !ok {
		slog.Warn("desktop notifications unavailable, alerts disabled")
	}
	return &Desktop{available: ok}
}

// Available reports whether alerts will actually be shown.
func (d *Desktop) Available() bool {
	return d.available
}

// Notify shows the verdict alert for an offer.
func (d *Desktop) Notify(o offer.Offer, ev offer.Evaluation) {
	if !d.available {
		return
	}
	if err := sendAlert(Title(ev), Body(o, ev)); err != nil {
		slog.Debug("notification failed", "error", err)
	}
}

// Title is the alert headline, reflecting the overall verdict.
func Title(ev offer.Evaluation) string {
	if ev.OverallAcceptable {
		return "✅ Profitable ride"
	}
	return "❌ Not recommended"
}

// Body summarizes currency, price, distance and rate per km (rounded to an
// integer), e.g. "$5500 | 11.7km | $470/km".
func Body(o offer.Offer, ev offer.Evaluation) string {
	return fmt.Sprintf("%s%s | %skm | %s%.0f/km",
		o.Currency, formatNum(o.TotalPrice),
		formatNum(o.TotalKm),
		o.Currency, ev.RatePerKm)
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
