// Package scoring computes per-placement velocity, ROI and overall scores
// and groups placements by service line.
package scoring

import "math"

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// Status records which path produced a score.
type Status string

const (
	// StatusComputed means the score came from the formula.
	StatusComputed Status = "computed"
	// StatusDefaulted means input was missing or invalid and the score fell
	// back to 0.
	StatusDefaulted Status = "defaulted"
	// StatusAnomaly means a data-quality special case decided the score.
	StatusAnomaly Status = "anomaly"
)

// Result is a score plus the path that produced it.
type Result struct {
	Value  int    `json:"value"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Defaulted reports whether the value is a fallback for bad input.
func (r Result) Defaulted() bool { return r.Status == StatusDefaulted }

func computed(v int) Result { return Result{Value: v, Status: StatusComputed} }

func defaulted(reason string) Result {
	return Result{Value: MinScore, Status: StatusDefaulted, Reason: reason}
}

// Round rounds half up (toward +Inf), so 2.5 → 3 and -2.5 → -2. Values
// outside the int range saturate; NaN rounds to 0.
func Round(x float64) int {
	r := math.Floor(x + 0.5)
	switch {
	case math.IsNaN(r):
		return 0
	case r >= math.MaxInt:
		return math.MaxInt
	case r <= math.MinInt:
		return math.MinInt
	}
	return int(r)
}

// clampRound clamps x into [lo, hi] and rounds it. Clamping happens on the
// float so huge inputs cannot overflow the conversion.
func clampRound(x float64, lo, hi int) int {
	return Round(math.Max(float64(lo), math.Min(float64(hi), x)))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
