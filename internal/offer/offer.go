// Package offer holds the ride-offer data model: the offer extracted from one
// analyzed frame, the user's acceptability thresholds, the derived
// profitability evaluation, and the dedup fingerprint.
//
// The fingerprint is intentionally coarse: it covers only the price/distance/
// time totals, not the currency or the pickup/trip split. Two visually
// distinct offers with identical totals are treated as the same offer. This is
// a known limitation carried over from the product's original behavior.
package offer

import "strconv"

// DefaultCurrency is used whenever the analysis service returns no currency.
const DefaultCurrency = "$"

// Offer is a single parsed ride quote.
// TotalKm and TotalMinutes are always the sums of their components; they are
// computed by New and never supplied independently.
type Offer struct {
	Valid bool `json:"valid"`

	TotalPrice float64 `json:"totalPrice"`
	Currency   string  `json:"currency"`

	PickupKm float64 `json:"pickupKm"`
	TripKm   float64 `json:"tripKm"`
	TotalKm  float64 `json:"totalKm"`

	PickupMinutes float64 `json:"pickupMinutes"`
	TripMinutes   float64 `json:"tripMinutes"`
	TotalMinutes  float64 `json:"totalMinutes"`
}

// New builds a valid offer, deriving the distance and time totals.
func New(price, pickupKm, tripKm, pickupMinutes, tripMinutes float64, currency string) Offer {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Offer{
		Valid:         true,
		TotalPrice:    price,
		Currency:      currency,
		PickupKm:      pickupKm,
		TripKm:        tripKm,
		TotalKm:       pickupKm + tripKm,
		PickupMinutes: pickupMinutes,
		TripMinutes:   tripMinutes,
		TotalMinutes:  pickupMinutes + tripMinutes,
	}
}

// Invalid returns the sentinel offer produced when no ride offer was detected
// or the analysis call failed: all numerics zero, default currency.
func Invalid() Offer {
	return Offer{Currency: DefaultCurrency}
}

// Fingerprint is the dedup identity of an offer.
type Fingerprint string

// Fingerprint derives the dedup key from the price/distance/time totals.
func (o Offer) Fingerprint() Fingerprint {
	return Fingerprint(formatNum(o.TotalPrice) + "-" + formatNum(o.TotalKm) + "-" + formatNum(o.TotalMinutes))
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
