package scoring

import (
	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
)

const (
	// velocityFloor is the lowest score a valid fill can get.
	velocityFloor = 10
	// velocityDecayPerDay is the number of points lost per day to fill.
	velocityDecayPerDay = 2.0
)

// Velocity scores how quickly job was filled by placement. Same-day fills
// score 100, each elapsed day costs 2 points, and the score bottoms out at
// 10. A fill recorded before the job opened scores 100.
func Velocity(p *model.Placement, j *model.Job) Result {
	if p == nil || j == nil {
		return defaulted("missing placement or job")
	}

	filled, err := model.ParseTimestamp(p.FillTimestamp())
	if err != nil {
		zap.L().Warn("scoring: invalid fill date",
			zap.String("placement_id", p.ID),
			zap.Error(err),
		)
		return defaulted("invalid fill date")
	}
	opened, err := model.ParseTimestamp(j.OpenTimestamp())
	if err != nil {
		zap.L().Warn("scoring: invalid job open date",
			zap.String("placement_id", p.ID),
			zap.String("job_id", j.ID),
			zap.Error(err),
		)
		return defaulted("invalid job open date")
	}

	daysToFill := filled.Sub(opened).Hours() / 24
	if daysToFill < 0 {
		zap.L().Warn("scoring: placement filled before job opened",
			zap.String("placement_id", p.ID),
			zap.String("job_id", j.ID),
			zap.Float64("days_to_fill", daysToFill),
		)
		return Result{Value: MaxScore, Status: StatusAnomaly, Reason: "filled before job opened"}
	}

	return computed(clampRound(MaxScore-daysToFill*velocityDecayPerDay, velocityFloor, MaxScore))
}
