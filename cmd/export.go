package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/analytics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/dataset"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/report"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/trackerrms"
)

var (
	exportInput string
	exportLive  bool
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the executive report to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("score"); err != nil {
			return err
		}

		var (
			ds  *dataset.Dataset
			err error
		)
		switch {
		case exportLive:
			src := initSource(cfg)
			if src == nil {
				return eris.New("trackerrms.api_key is required for --live")
			}
			ds, err = fetchDataset(cmd.Context(), src)
		case exportInput != "":
			ds, err = dataset.Load(exportInput)
		default:
			return eris.New("one of --input or --live is required")
		}
		if err != nil {
			return err
		}

		engine := analytics.New(analytics.WithWeights(weights(cfg)))
		r := engine.Executive(ds.Attached(), ds.Jobs)
		if err := report.WriteXLSX(exportOut, r); err != nil {
			return err
		}

		zap.L().Info("report exported",
			zap.String("path", exportOut),
			zap.Int("placements", r.Overview.TotalPlacements),
		)
		return nil
	},
}

// fetchDataset pulls a live snapshot from TrackerRMS.
func fetchDataset(ctx context.Context, src trackerrms.Client) (*dataset.Dataset, error) {
	jobs, err := src.ListJobs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "export: fetch jobs")
	}
	placements, err := src.ListPlacements(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "export: fetch placements")
	}
	return &dataset.Dataset{Jobs: jobs, Placements: placements}, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "", "dataset file (.json, .yaml)")
	exportCmd.Flags().BoolVar(&exportLive, "live", false, "fetch jobs and placements from TrackerRMS")
	exportCmd.Flags().StringVar(&exportOut, "out", "revenue-attribution.xlsx", "output workbook path")
	exportCmd.MarkFlagsMutuallyExclusive("input", "live")
	rootCmd.AddCommand(exportCmd)
}
