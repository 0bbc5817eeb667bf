// Package analysis is the boundary to the external vision service. It turns
// an encoded frame into a ride offer and never lets a failure escape: any
// error on the wire, in the model, or in the response becomes the invalid
// offer, so the monitoring loop survives every bad sample.
package analysis

import (
	"context"
	"encoding/json"

	"github.com/drivercopilot/platform/internal/offer"
)

// Analyzer extracts a ride offer from a JPEG frame. Implementations must not
// return errors; a failed analysis is reported as offer.Invalid().
type Analyzer interface {
	Analyze(ctx context.Context, imageJPEG []byte) offer.Offer
}

// RawResult mirrors the JSON object the vision model is asked to produce.
// Field names are part of the external contract and must not change.
type RawResult struct {
	Valid         bool    `json:"valid"`
	TotalPrice    float64 `json:"totalPrice"`
	PickupKm      float64 `json:"pickupKm"`
	TripKm        float64 `json:"tripKm"`
	PickupMinutes float64 `json:"pickupMinutes"`
	TripMinutes   float64 `json:"tripMinutes"`
	Currency      string  `json:"currency"`
}

// Normalize converts a raw model response into the Offer shape: missing
// numerics are already zero from JSON decoding, missing currency defaults,
// and the distance/time totals are recomputed from their components.
func Normalize(raw RawResult) offer.Offer {
	if !raw.Valid {
		return offer.Invalid()
	}
	return offer.New(raw.TotalPrice, raw.PickupKm, raw.TripKm, raw.PickupMinutes, raw.TripMinutes, raw.Currency)
}

// Parse decodes a model response body into an offer. Malformed JSON yields
// the invalid offer and the decode error for logging.
func Parse(body []byte) (offer.Offer, error) {
	var raw RawResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return offer.Invalid(), err
	}
	return Normalize(raw), nil
}
