package analytics

import (
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
)

// AttributionSummary totals revenue and margin across service lines.
type AttributionSummary struct {
	TotalRevenue            float64 `json:"totalRevenue"`
	TotalMargin             float64 `json:"totalMargin"`
	TotalPlacements         int     `json:"totalPlacements"`
	AverageMarginPercentage int     `json:"averageMarginPercentage"`
}

// ServiceLineShare is a service line's summary plus its revenue share.
type ServiceLineShare struct {
	scoring.LineSummary
	RevenuePercentage int `json:"revenuePercentage"`
}

// ChartData holds parallel series in service-line order.
type ChartData struct {
	Labels     []string  `json:"labels"`
	Revenue    []float64 `json:"revenue"`
	Placements []int     `json:"placements"`
}

// AttributionReport is the service-line attribution dashboard.
type AttributionReport struct {
	Summary      AttributionSummary `json:"summary"`
	ServiceLines []ServiceLineShare `json:"serviceLines"`
	ChartData    ChartData          `json:"chartData"`
}

// Attribution builds the service-line attribution report. Velocity
// averages only reflect placements that already carry a velocity score.
func (e *Engine) Attribution(placements []model.Placement) AttributionReport {
	lines := scoring.ServiceLineAttribution(placements)

	var summary AttributionSummary
	for _, l := range lines {
		summary.TotalRevenue += l.TotalRevenue
		summary.TotalMargin += l.TotalMargin
		summary.TotalPlacements += l.PlacementCount
	}
	summary.AverageMarginPercentage = percent(summary.TotalMargin, summary.TotalRevenue)

	report := AttributionReport{
		Summary:      summary,
		ServiceLines: make([]ServiceLineShare, 0, len(lines)),
		ChartData: ChartData{
			Labels:     make([]string, 0, len(lines)),
			Revenue:    make([]float64, 0, len(lines)),
			Placements: make([]int, 0, len(lines)),
		},
	}
	for _, l := range lines {
		report.ServiceLines = append(report.ServiceLines, ServiceLineShare{
			LineSummary:       l,
			RevenuePercentage: percent(l.TotalRevenue, summary.TotalRevenue),
		})
		report.ChartData.Labels = append(report.ChartData.Labels, l.ServiceLine)
		report.ChartData.Revenue = append(report.ChartData.Revenue, l.TotalRevenue)
		report.ChartData.Placements = append(report.ChartData.Placements, l.PlacementCount)
	}
	return report
}
