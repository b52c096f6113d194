package analytics

import (
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
)

// ROISummary totals revenue and cost across all placements.
type ROISummary struct {
	TotalRevenue    float64      `json:"totalRevenue"`
	TotalMargin     float64      `json:"totalMargin"`
	TotalCost       float64      `json:"totalCost"`
	OverallROI      int          `json:"overallROI"`
	AverageROIScore int          `json:"averageROIScore"`
	Tier            scoring.Tier `json:"tier"`
}

// LineROI is the return of one service line.
type LineROI struct {
	ServiceLine     string  `json:"serviceLine"`
	Revenue         float64 `json:"revenue"`
	Cost            float64 `json:"cost"`
	ROI             int     `json:"roi"`
	AverageROIScore int     `json:"averageROIScore"`
	PlacementCount  int     `json:"placementCount"`
}

// CostBreakdown splits total cost by source.
type CostBreakdown struct {
	MarketingCost float64 `json:"marketingCost"`
	SalesCost     float64 `json:"salesCost"`
}

// ROIReport is the ROI dashboard.
type ROIReport struct {
	Summary       ROISummary    `json:"summary"`
	ByServiceLine []LineROI     `json:"byServiceLine"`
	CostBreakdown CostBreakdown `json:"costBreakdown"`
	Distribution  Distribution  `json:"distribution"`
}

type lineTotals struct {
	revenue float64
	cost    float64
	scores  []int
}

// ROI scores the placements and builds the ROI report. Placements without
// attribution contribute zero cost.
func (e *Engine) ROI(placements []model.Placement) ROIReport {
	scored := scoring.Batch(placements, e.weights)

	var (
		summary   ROISummary
		breakdown CostBreakdown
		all       = make([]int, 0, len(scored))
		order     []string
		lines     = make(map[string]*lineTotals)
	)
	for i := range scored {
		p := &scored[i]
		marketing, sales := p.Attribution.Costs()
		cost := marketing + sales
		score := *p.ROIScore

		summary.TotalRevenue += p.RevenueValue()
		summary.TotalMargin += p.MarginValue()
		summary.TotalCost += cost
		breakdown.MarketingCost += marketing
		breakdown.SalesCost += sales
		all = append(all, score)

		name := p.Line()
		lt, ok := lines[name]
		if !ok {
			lt = &lineTotals{}
			lines[name] = lt
			order = append(order, name)
		}
		lt.revenue += p.RevenueValue()
		lt.cost += cost
		lt.scores = append(lt.scores, score)
	}

	summary.OverallROI = percent(summary.TotalRevenue-summary.TotalCost, summary.TotalCost)
	summary.AverageROIScore = mean(all)
	summary.Tier = scoring.TierOf(summary.AverageROIScore)

	report := ROIReport{
		Summary:       summary,
		ByServiceLine: make([]LineROI, 0, len(order)),
		CostBreakdown: breakdown,
		Distribution:  ScoreDistribution(all),
	}
	for _, name := range order {
		lt := lines[name]
		report.ByServiceLine = append(report.ByServiceLine, LineROI{
			ServiceLine:     name,
			Revenue:         lt.revenue,
			Cost:            lt.cost,
			ROI:             percent(lt.revenue-lt.cost, lt.cost),
			AverageROIScore: mean(lt.scores),
			PlacementCount:  len(lt.scores),
		})
	}
	return report
}
