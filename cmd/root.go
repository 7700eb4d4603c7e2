// Package cmd defines and implements the CLI commands for the capitol-pdfs
// executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/app"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/config"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/logging"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/metrics"
)

var (
	cfgFile            string
	sessionID          string
	dataDir            string
	legislatureOrdinal int
	sessionOrdinal     int
)

// appKeyType is the key for storing the App in the context.
type appKeyType struct{}

var appKey appKeyType

// newApp is the application factory. It's a variable so tests can replace
// it with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capitol-pdfs",
		Short: "Mirrors legislative session PDFs for the Capitol Tracker.",
		Long: `capitol-pdfs fetches bill amendments, fiscal notes, and legal review
notes from the legislature's document API, compresses them with
ghostscript, generates the document index the tracker frontend reads,
and syncs everything to the deployment bucket.`,

		// Runs after flags are parsed but before the subcommand's RunE;
		// builds the service container and injects it into the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			logging.L = logger
			metrics.Init()

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml)")
	cmd.PersistentFlags().StringVar(&sessionID, "session", "", "legislative session ID (overrides config)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "local data directory (overrides config)")
	cmd.PersistentFlags().IntVar(&legislatureOrdinal, "legislature", 0, "legislature ordinal, e.g. 69 (overrides config)")
	cmd.PersistentFlags().IntVar(&sessionOrdinal, "session-ordinal", 0, "session ordinal, e.g. 20251 (overrides config)")

	cmd.AddCommand(
		newFetchCmd(),
		newCompressCmd(),
		newIndexCmd(),
		newDeployCmd(),
		newMirrorCmd(),
		newServeCmd(),
	)
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if sessionID != "" {
		cfg.Session.ID = sessionID
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	if legislatureOrdinal > 0 {
		cfg.Session.LegislatureOrdinal = legislatureOrdinal
	}
	if sessionOrdinal > 0 {
		cfg.Session.SessionOrdinal = sessionOrdinal
	}
	return cfg, nil
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger()
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("command execution failed", zap.Error(err))
	}
}
