package scoring

import "github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"

// LineSummary aggregates the placements of one service line.
type LineSummary struct {
	ServiceLine     string  `json:"serviceLine"`
	PlacementCount  int     `json:"placementCount"`
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalMargin     float64 `json:"totalMargin"`
	AverageVelocity int     `json:"averageVelocity"`
}

// ServiceLineAttribution groups placements by service line in order of
// first appearance. AverageVelocity only counts placements that already
// carry a VelocityScore.
func ServiceLineAttribution(placements []model.Placement) []LineSummary {
	var (
		lines    []LineSummary
		velSum   []int
		velCount []int
		pos      = make(map[string]int)
	)

	for i := range placements {
		p := &placements[i]
		name := p.Line()
		idx, ok := pos[name]
		if !ok {
			idx = len(lines)
			pos[name] = idx
			lines = append(lines, LineSummary{ServiceLine: name})
			velSum = append(velSum, 0)
			velCount = append(velCount, 0)
		}

		lines[idx].PlacementCount++
		lines[idx].TotalRevenue += p.RevenueValue()
		lines[idx].TotalMargin += p.MarginValue()
		if p.VelocityScore != nil {
			velSum[idx] += *p.VelocityScore
			velCount[idx]++
		}
	}

	for i := range lines {
		if velCount[i] > 0 {
			lines[i].AverageVelocity = Round(float64(velSum[i]) / float64(velCount[i]))
		}
	}
	return lines
}

// AttributionByLine is ServiceLineAttribution keyed by service line.
func AttributionByLine(placements []model.Placement) map[string]LineSummary {
	lines := ServiceLineAttribution(placements)
	out := make(map[string]LineSummary, len(lines))
	for _, l := range lines {
		out[l.ServiceLine] = l
	}
	return out
}
