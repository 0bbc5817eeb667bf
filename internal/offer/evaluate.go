package offer

// Thresholds are the user-configured acceptability bounds.
type Thresholds struct {
	MinRatePerKm float64 `json:"minRatePerKm"`
	MaxTotalKm   float64 `json:"maxTotalKm"`
}

// DefaultThresholds returns the shipped defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MinRatePerKm: 1000, MaxTotalKm: 20}
}

// Evaluation is the profitability classification of an offer under a set of
// thresholds. It has no lifecycle of its own: always recompute, never store
// partially.
type Evaluation struct {
	RatePerKm   float64 `json:"ratePerKm"`
	RatePerHour float64 `json:"ratePerHour"`

	RateAcceptable     bool `json:"rateAcceptable"`
	DistanceAcceptable bool `json:"distanceAcceptable"`
	OverallAcceptable  bool `json:"overallAcceptable"`
}

// Evaluate classifies an offer against the thresholds. Pure and total over
// non-negative inputs: divisors are floored at 1 so a zero distance or
// duration never divides by zero.
func Evaluate(o Offer, t Thresholds) Evaluation {
	ratePerKm := o.TotalPrice / floorAtOne(o.TotalKm)
	ratePerHour := o.TotalPrice / floorAtOne(o.TotalMinutes) * 60

	rateOK := ratePerKm >= t.MinRatePerKm
	distOK := o.TotalKm <= t.MaxTotalKm

	return Evaluation{
		RatePerKm:          ratePerKm,
		RatePerHour:        ratePerHour,
		RateAcceptable:     rateOK,
		DistanceAcceptable: distOK,
		OverallAcceptable:  rateOK && distOK,
	}
}

func floorAtOne(f float64) float64 {
	if f < 1 {
		return 1
	}
	return f
}
