package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/analytics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/dataset"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
)

var (
	scoreInput string
	scoreJSON  bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an offline dataset and print the executive report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("score"); err != nil {
			return err
		}
		ds, err := dataset.Load(scoreInput)
		if err != nil {
			return err
		}
		engine := analytics.New(analytics.WithWeights(weights(cfg)))
		return runScore(cmd.OutOrStdout(), engine, ds, scoreJSON)
	},
}

// scoreOutput is the --json document.
type scoreOutput struct {
	Scores []scoring.Scores          `json:"scores"`
	Report analytics.ExecutiveReport `json:"report"`
}

func runScore(w io.Writer, engine *analytics.Engine, ds *dataset.Dataset, asJSON bool) error {
	attached := ds.Attached()
	_, results := scoring.BatchResults(attached, engine.Weights())
	report := engine.Executive(attached, ds.Jobs)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scoreOutput{Scores: results, Report: report})
	}
	printReport(w, report)
	return nil
}

func printReport(w io.Writer, r analytics.ExecutiveReport) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Jobs: %d  Placements: %d  Fill rate: %d%%\n",
		r.Overview.TotalJobs, r.Overview.TotalPlacements, r.Overview.FillRate)
	p.Fprintf(w, "Revenue: %.2f  Margin: %.2f (%d%%)\n",
		r.Attribution.Summary.TotalRevenue, r.Attribution.Summary.TotalMargin,
		r.Attribution.Summary.AverageMarginPercentage)
	p.Fprintf(w, "Velocity: %d (%s)\n",
		r.Velocity.Summary.OverallAverageVelocity, r.Velocity.Summary.Tier)
	p.Fprintf(w, "ROI: %d%%  Score: %d (%s)\n",
		r.ROI.Summary.OverallROI, r.ROI.Summary.AverageROIScore, r.ROI.Summary.Tier)

	if len(r.Attribution.ServiceLines) > 0 {
		p.Fprintln(w, "\nService lines:")
		for _, l := range r.Attribution.ServiceLines {
			p.Fprintf(w, "  %-24s %5d placements  %14.2f revenue  %3d%%\n",
				l.ServiceLine, l.PlacementCount, l.TotalRevenue, l.RevenuePercentage)
		}
	}
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInput, "input", "", "dataset file (.json, .yaml)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print scores and report as JSON")
	_ = scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}
