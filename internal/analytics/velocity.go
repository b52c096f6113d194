package analytics

import (
	"sort"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
)

// VelocitySummary is the headline velocity figure.
type VelocitySummary struct {
	OverallAverageVelocity int          `json:"overallAverageVelocity"`
	TotalPlacements        int          `json:"totalPlacements"`
	Tier                   scoring.Tier `json:"tier"`
}

// LineVelocity is the average velocity of one service line.
type LineVelocity struct {
	ServiceLine     string       `json:"serviceLine"`
	AverageVelocity int          `json:"averageVelocity"`
	PlacementCount  int          `json:"placementCount"`
	Tier            scoring.Tier `json:"tier"`
}

// MonthVelocity is one point of the monthly trend.
type MonthVelocity struct {
	Month           string `json:"month"`
	AverageVelocity int    `json:"averageVelocity"`
	PlacementCount  int    `json:"placementCount"`
}

// VelocityReport is the placement-velocity dashboard.
type VelocityReport struct {
	Summary       VelocitySummary `json:"summary"`
	ByServiceLine []LineVelocity  `json:"byServiceLine"`
	Trend         []MonthVelocity `json:"trend"`
	Distribution  Distribution    `json:"distribution"`
}

// Velocity scores the placements and builds the velocity report. The trend
// is bucketed by the UTC calendar month of each fill date; placements with
// no parsable fill date are left out of the trend only.
func (e *Engine) Velocity(placements []model.Placement) VelocityReport {
	scored := scoring.Batch(placements, e.weights)

	all := make([]int, 0, len(scored))
	byLine := newGroups[int]()
	byMonth := newGroups[int]()
	for i := range scored {
		p := &scored[i]
		v := *p.VelocityScore
		all = append(all, v)
		byLine.add(p.Line(), v)

		if at, err := model.ParseTimestamp(p.FillTimestamp()); err == nil {
			byMonth.add(at.UTC().Format("2006-01"), v)
		}
	}

	report := VelocityReport{
		ByServiceLine: make([]LineVelocity, 0, len(byLine.keys)),
		Trend:         make([]MonthVelocity, 0, len(byMonth.keys)),
		Distribution:  ScoreDistribution(all),
	}
	for _, line := range byLine.keys {
		scores := byLine.vals[line]
		avg := mean(scores)
		report.ByServiceLine = append(report.ByServiceLine, LineVelocity{
			ServiceLine:     line,
			AverageVelocity: avg,
			PlacementCount:  len(scores),
			Tier:            scoring.TierOf(avg),
		})
	}

	months := append([]string(nil), byMonth.keys...)
	sort.Strings(months)
	for _, m := range months {
		scores := byMonth.vals[m]
		report.Trend = append(report.Trend, MonthVelocity{
			Month:           m,
			AverageVelocity: mean(scores),
			PlacementCount:  len(scores),
		})
	}

	overall := mean(all)
	report.Summary = VelocitySummary{
		OverallAverageVelocity: overall,
		TotalPlacements:        len(all),
		Tier:                   scoring.TierOf(overall),
	}
	return report
}
