package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/api"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/syncer"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/webhook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard, sync and webhook API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		launcher := syncer.NewLauncher(env.builder(cfg), 15*time.Minute)

		deps := api.Deps{
			Engine:         env.Engine,
			Source:         env.Source,
			Auth:           env.Auth,
			Launcher:       launcher,
			Metrics:        env.Metrics,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}
		if cfg.HubSpot.ClientSecret != "" {
			deps.Verifier = webhook.NewVerifier(cfg.HubSpot.ClientSecret, cfg.Server.BaseURL,
				webhook.WithMaxAge(time.Duration(cfg.HubSpot.WebhookMaxAgeSecs)*time.Second))
		} else {
			zap.L().Warn("hubspot client secret not set; webhooks disabled")
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.New(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		launcher.Wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
