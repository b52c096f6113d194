package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/config"
)

var (
	cfg *config.Config

	configPath string
	logLevel   string
	crmFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "revattr",
	Short: "TrackerRMS revenue attribution for HubSpot",
	Long:  "Scores TrackerRMS placements for fill velocity and ROI, builds attribution dashboards, and syncs scored deals into HubSpot or Salesforce.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFrom(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyOverrides(c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.String("crm", cfg.CRM.Provider),
			zap.String("store", cfg.Store.Driver),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyOverrides lets persistent flags win over file and environment.
func applyOverrides(c *config.Config) {
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if crmFlag != "" {
		c.CRM.Provider = crmFlag
	}
}

func init() {
	rootCmd.SilenceUsage = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&crmFlag, "crm", "", "deal backend override (hubspot, salesforce)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
