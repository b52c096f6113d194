// Package analytics builds the read-only dashboard reports over scored
// placements: service-line attribution, velocity, ROI and the executive
// summary.
package analytics

import (
	"math"
	"time"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
)

// Engine builds reports. The zero value is not usable; call New.
type Engine struct {
	weights scoring.Weights
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights sets the overall-score weights used when scoring batches.
func WithWeights(w scoring.Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithClock sets the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine with default weights and the wall clock.
func New(opts ...Option) *Engine {
	e := &Engine{
		weights: scoring.DefaultWeights,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the engine's overall-score weights.
func (e *Engine) Weights() scoring.Weights { return e.weights }

// maxPercent bounds percentages derived from tiny denominators.
const maxPercent = 1_000_000_000

// percent returns round(part/whole*100) clamped to ±maxPercent, or 0 when
// whole is 0 or the ratio is not a number.
func percent(part, whole float64) int {
	if whole == 0 {
		return 0
	}
	pct := part / whole * 100
	if math.IsNaN(pct) {
		return 0
	}
	return scoring.Round(math.Max(-maxPercent, math.Min(maxPercent, pct)))
}

// mean returns the rounded mean of scores, or 0 for none.
func mean(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return scoring.Round(float64(sum) / float64(len(scores)))
}

// groups collects values under string keys, remembering first-seen order.
type groups[T any] struct {
	keys []string
	vals map[string][]T
}

func newGroups[T any]() *groups[T] {
	return &groups[T]{vals: make(map[string][]T)}
}

func (g *groups[T]) add(key string, v T) {
	if _, ok := g.vals[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.vals[key] = append(g.vals[key], v)
}
