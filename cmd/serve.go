package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/api"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/app"
)

// newServeCmd creates the 'serve' subcommand. It hosts the status API and
// metrics endpoint, and optionally runs the mirror pipeline on an interval.
func newServeCmd() *cobra.Command {
	var (
		interval   time.Duration
		skipDeploy bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API, optionally mirroring on an interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runs := api.NewMemoryRunStore(0)
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", appInstance.Config().Server.Port),
				Handler:           api.NewServer(runs, logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("status server listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			if interval > 0 {
				go mirrorLoop(ctx, appInstance, runs, interval, skipDeploy)
			}

			select {
			case err := <-serveErr:
				return fmt.Errorf("status server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown status server: %w", err)
			}
			logger.Info("status server stopped")
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "when set, run the mirror pipeline on this interval")
	cmd.Flags().BoolVar(&skipDeploy, "skip-deploy", false, "interval runs skip the deploy stage")
	return cmd
}

// mirrorLoop runs the pipeline on a ticker until the context ends. Failed
// runs are recorded and the loop keeps going; a transient API outage should
// not take the service down.
func mirrorLoop(ctx context.Context, appInstance *app.App, runs *api.MemoryRunStore, interval time.Duration, skipDeploy bool) {
	logger := appInstance.Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		run, err := runMirror(ctx, appInstance, skipDeploy)
		if run.ID != "" {
			runs.Add(run)
		}
		if err != nil {
			logger.Error("scheduled mirror run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
