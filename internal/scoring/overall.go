package scoring

// Weights are the relative contributions of velocity and ROI to the overall
// score. They need not sum to 1.
type Weights struct {
	Velocity float64 `json:"velocity"`
	ROI      float64 `json:"roi"`
}

// DefaultWeights favor ROI 60/40.
var DefaultWeights = Weights{Velocity: 0.4, ROI: 0.6}

// normalized returns weights summing to 1. Negative or NaN weights count as
// 0 and an all-zero pair splits evenly.
func (w Weights) normalized() (velocity, roi float64) {
	velocity, roi = w.Velocity, w.ROI
	if !(velocity > 0) {
		velocity = 0
	}
	if !(roi > 0) {
		roi = 0
	}
	sum := velocity + roi
	if sum == 0 || !finite(sum) {
		return 0.5, 0.5
	}
	return velocity / sum, roi / sum
}

// Overall combines a velocity and ROI score into one weighted score.
func Overall(velocity, roi int, w Weights) int {
	wv, wr := w.normalized()
	return clampRound(float64(velocity)*wv+float64(roi)*wr, MinScore, MaxScore)
}
