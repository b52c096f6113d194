package scoring

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
)

// Scores holds the per-record results of a batch run.
type Scores struct {
	PlacementID string `json:"placementId"`
	Velocity    Result `json:"velocity"`
	ROI         Result `json:"roi"`
	Overall     int    `json:"overall"`
}

// Batch scores every placement and returns copies with VelocityScore,
// ROIScore and OverallScore set, in input order.
func Batch(placements []model.Placement, w Weights) []model.Placement {
	out, _ := BatchResults(placements, w)
	return out
}

// BatchResults is Batch plus the per-record results.
func BatchResults(placements []model.Placement, w Weights) ([]model.Placement, []Scores) {
	out := make([]model.Placement, len(placements))
	results := make([]Scores, len(placements))

	for i := range placements {
		p := placements[i]
		vel := guard("velocity", p.ID, func() Result { return Velocity(&p, p.Job) })
		roi := guard("roi", p.ID, func() Result { return ROI(&p, p.Attribution) })
		overall := Overall(vel.Value, roi.Value, w)

		p.VelocityScore = model.Int(vel.Value)
		p.ROIScore = model.Int(roi.Value)
		p.OverallScore = model.Int(overall)
		out[i] = p
		results[i] = Scores{PlacementID: p.ID, Velocity: vel, ROI: roi, Overall: overall}
	}
	return out, results
}

// guard runs one score calculation, turning a panic into a defaulted
// result so a single record never aborts the batch.
func guard(kind, placementID string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("scoring: recovered from fault",
				zap.String("kind", kind),
				zap.String("placement_id", placementID),
				zap.Any("panic", r),
			)
			res = defaulted(fmt.Sprintf("%s fault: %v", kind, r))
		}
	}()
	return fn()
}
