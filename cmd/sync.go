package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var syncPortal string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Score TrackerRMS placements and upsert them as CRM deals",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		if syncPortal == "" && cfg.CRM.Provider == "hubspot" && cfg.HubSpot.AccessToken == "" {
			return eris.New("--portal is required for oauth-connected hubspot portals")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		o, err := env.builder(cfg)(ctx, syncPortal)
		if err != nil {
			return err
		}
		sum, err := o.Run(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncPortal, "portal", "", "CRM portal id to sync")
	rootCmd.AddCommand(syncCmd)
}
