package scoring

import (
	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
)

// ROI scores the return on a placement. With attributed cost, every 5
// points of ROI percentage is one score point. Without cost data the margin
// percentage is doubled, so a 50% margin scores 100. A nil attribution is
// treated as zero cost.
func ROI(p *model.Placement, a *model.Attribution) Result {
	if p == nil {
		return defaulted("missing placement")
	}

	revenue := p.RevenueValue()
	margin := p.MarginValue()
	marketing, sales := a.Costs()
	totalCost := marketing + sales

	var score float64
	if totalCost <= 0 {
		var marginPct float64
		if revenue != 0 {
			marginPct = margin / revenue * 100
		}
		score = marginPct * 2
	} else {
		roi := (revenue - totalCost) / totalCost * 100
		score = roi / 5
	}

	if !finite(score) {
		zap.L().Warn("scoring: non-finite roi",
			zap.String("placement_id", p.ID),
			zap.Float64("revenue", revenue),
			zap.Float64("margin", margin),
			zap.Float64("total_cost", totalCost),
		)
		return defaulted("non-finite roi")
	}

	return computed(clampRound(score, MinScore, MaxScore))
}
