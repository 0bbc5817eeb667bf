package offer

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestEvaluateRejectsLowRate(t *testing.T) {
	o := New(5500, 1.5, 10.2, 5, 25, "$")
	ev := Evaluate(o, Thresholds{MinRatePerKm: 1000, MaxTotalKm: 20})

	if !almostEqual(o.TotalKm, 11.7) {
		t.Errorf("TotalKm = %v, want 11.7", o.TotalKm)
	}
	if !almostEqual(ev.RatePerKm, 5500/11.7) {
		t.Errorf("RatePerKm = %v, want %v", ev.RatePerKm, 5500/11.7)
	}
	if ev.RateAcceptable {
		t.Error("RateAcceptable should be false at min 1000/km")
	}
	if !ev.DistanceAcceptable {
		t.Error("DistanceAcceptable should be true at 11.7km <= 20km")
	}
	if ev.OverallAcceptable {
		t.Error("OverallAcceptable should be false")
	}
}

func TestEvaluateAcceptsGoodRate(t *testing.T) {
	o := New(5500, 1.5, 10.2, 5, 25, "$")
	ev := Evaluate(o, Thresholds{MinRatePerKm: 400, MaxTotalKm: 20})

	if !ev.RateAcceptable {
		t.Error("RateAcceptable should be true at min 400/km")
	}
	if !ev.OverallAcceptable {
		t.Error("OverallAcceptable should be true")
	}
}

func TestEvaluateRejectsLongDistance(t *testing.T) {
	o := New(9000, 2, 28, 10, 40, "$")
	ev := Evaluate(o, Thresholds{MinRatePerKm: 100, MaxTotalKm: 20})

	if !ev.RateAcceptable {
		t.Error("RateAcceptable should be true")
	}
	if ev.DistanceAcceptable {
		t.Error("DistanceAcceptable should be false at 30km > 20km")
	}
	if ev.OverallAcceptable {
		t.Error("OverallAcceptable should be false")
	}
}

func TestEvaluateZeroDistanceUsesDivisorOne(t *testing.T) {
	o := New(500, 0, 0, 0, 0, "$")
	ev := Evaluate(o, DefaultThresholds())

	if ev.RatePerKm != 500 {
		t.Errorf("RatePerKm = %v, want 500 (divisor floored at 1)", ev.RatePerKm)
	}
	if ev.RatePerHour != 500*60 {
		t.Errorf("RatePerHour = %v, want %v", ev.RatePerHour, 500*60)
	}
}

func TestEvaluateRatePerHour(t *testing.T) {
	o := New(5500, 1.5, 10.2, 5, 25, "$")
	ev := Evaluate(o, DefaultThresholds())

	want := 5500.0 / 30.0 * 60.0
	if !almostEqual(ev.RatePerHour, want) {
		t.Errorf("RatePerHour = %v, want %v", ev.RatePerHour, want)
	}
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	if th.MinRatePerKm != 1000 {
		t.Errorf("MinRatePerKm = %v, want 1000", th.MinRatePerKm)
	}
	if th.MaxTotalKm != 20 {
		t.Errorf("MaxTotalKm = %v, want 20", th.MaxTotalKm)
	}
}
