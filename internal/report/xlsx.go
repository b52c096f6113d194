// Package report renders dashboards to spreadsheet files.
package report

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/analytics"
)

// Sheet names, in workbook order.
const (
	SheetOverview     = "Overview"
	SheetServiceLines = "Service Lines"
	SheetVelocity     = "Velocity Trend"
	SheetROI          = "ROI"
	SheetDistribution = "Distribution"
)

// WriteXLSX writes r to path as a workbook.
func WriteXLSX(path string, r analytics.ExecutiveReport) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// Write streams the workbook for r to w.
func Write(w io.Writer, r analytics.ExecutiveReport) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

func build(r analytics.ExecutiveReport) (*xlsx.File, error) {
	f := xlsx.NewFile()
	for _, s := range []struct {
		name string
		fill func(*xlsx.Sheet, analytics.ExecutiveReport)
	}{
		{SheetOverview, overview},
		{SheetServiceLines, serviceLines},
		{SheetVelocity, velocityTrend},
		{SheetROI, roi},
		{SheetDistribution, distribution},
	} {
		sheet, err := f.AddSheet(s.name)
		if err != nil {
			return nil, eris.Wrapf(err, "report: add sheet %s", s.name)
		}
		s.fill(sheet, r)
	}
	return f, nil
}

func overview(sh *xlsx.Sheet, r analytics.ExecutiveReport) {
	header(sh, "Metric", "Value")
	o := r.Overview
	pair(sh, "Generated At", o.GeneratedAt.Format(time.RFC3339))
	pairInt(sh, "Total Jobs", o.TotalJobs)
	pairInt(sh, "Total Placements", o.TotalPlacements)
	pairInt(sh, "Fill Rate %", o.FillRate)
	pairFloat(sh, "Total Revenue", r.Attribution.Summary.TotalRevenue)
	pairFloat(sh, "Total Margin", r.Attribution.Summary.TotalMargin)
	pairInt(sh, "Average Margin %", r.Attribution.Summary.AverageMarginPercentage)
	pairInt(sh, "Average Velocity", r.Velocity.Summary.OverallAverageVelocity)
	pair(sh, "Velocity Tier", string(r.Velocity.Summary.Tier))
	pairInt(sh, "Overall ROI %", r.ROI.Summary.OverallROI)
	pairInt(sh, "Average ROI Score", r.ROI.Summary.AverageROIScore)
	pair(sh, "ROI Tier", string(r.ROI.Summary.Tier))
}

func serviceLines(sh *xlsx.Sheet, r analytics.ExecutiveReport) {
	header(sh, "Service Line", "Placements", "Revenue", "Margin", "Revenue %", "Average Velocity")
	for _, l := range r.Attribution.ServiceLines {
		row := sh.AddRow()
		row.AddCell().SetString(l.ServiceLine)
		row.AddCell().SetInt(l.PlacementCount)
		row.AddCell().SetFloat(l.TotalRevenue)
		row.AddCell().SetFloat(l.TotalMargin)
		row.AddCell().SetInt(l.RevenuePercentage)
		row.AddCell().SetInt(l.AverageVelocity)
	}
}

func velocityTrend(sh *xlsx.Sheet, r analytics.ExecutiveReport) {
	header(sh, "Month", "Average Velocity", "Placements")
	for _, m := range r.Velocity.Trend {
		row := sh.AddRow()
		row.AddCell().SetString(m.Month)
		row.AddCell().SetInt(m.AverageVelocity)
		row.AddCell().SetInt(m.PlacementCount)
	}
}

func roi(sh *xlsx.Sheet, r analytics.ExecutiveReport) {
	header(sh, "Service Line", "Placements", "Revenue", "Cost", "ROI %", "Average ROI Score")
	for _, l := range r.ROI.ByServiceLine {
		row := sh.AddRow()
		row.AddCell().SetString(l.ServiceLine)
		row.AddCell().SetInt(l.PlacementCount)
		row.AddCell().SetFloat(l.Revenue)
		row.AddCell().SetFloat(l.Cost)
		row.AddCell().SetInt(l.ROI)
		row.AddCell().SetInt(l.AverageROIScore)
	}
	sh.AddRow()
	pairFloat(sh, "Marketing Cost", r.ROI.CostBreakdown.MarketingCost)
	pairFloat(sh, "Sales Cost", r.ROI.CostBreakdown.SalesCost)
}

func distribution(sh *xlsx.Sheet, r analytics.ExecutiveReport) {
	header(sh, "Bucket", "Velocity", "ROI")
	vel := r.Velocity.Distribution.Buckets()
	ret := r.ROI.Distribution.Buckets()
	for _, label := range analytics.Labels() {
		row := sh.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetInt(vel[label])
		row.AddCell().SetInt(ret[label])
	}
}

func header(sh *xlsx.Sheet, names ...string) {
	row := sh.AddRow()
	for _, n := range names {
		c := row.AddCell()
		c.SetString(n)
		c.GetStyle().Font.Bold = true
	}
}

func pair(sh *xlsx.Sheet, k, v string) {
	row := sh.AddRow()
	row.AddCell().SetString(k)
	row.AddCell().SetString(v)
}

func pairInt(sh *xlsx.Sheet, k string, v int) {
	row := sh.AddRow()
	row.AddCell().SetString(k)
	row.AddCell().SetInt(v)
}

func pairFloat(sh *xlsx.Sheet, k string, v float64) {
	row := sh.AddRow()
	row.AddCell().SetString(k)
	row.AddCell().SetFloat(v)
}
