package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/app"
	"github.com/mtfreepress/capitol-pdf-mirror/internal/pipeline"
)

// newMirrorCmd creates the 'mirror' subcommand, which runs the full
// fetch, compress, index, deploy pipeline as one recorded run.
func newMirrorCmd() *cobra.Command {
	var skipDeploy bool
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Run the full fetch, compress, index, deploy pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			run, err := runMirror(cmd.Context(), appInstance, skipDeploy)
			if err != nil {
				return err
			}
			appInstance.Logger().Info("mirror run finished",
				zap.String("run_id", run.ID),
				zap.String("outcome", run.Outcome),
				zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipDeploy, "skip-deploy", false, "run fetch, compress, and index without touching the bucket")
	return cmd
}

// runMirror executes one full pipeline run.
func runMirror(ctx context.Context, appInstance *app.App, skipDeploy bool) (pipeline.Run, error) {
	fetchStage, err := appInstance.FetchStage()
	if err != nil {
		return pipeline.Run{}, fmt.Errorf("build fetch stage: %w", err)
	}
	compressStage := appInstance.CompressStage(false)
	indexStage := appInstance.IndexStage()

	stages := []pipeline.Stage{
		pipeline.Wrap(fetchStage.Name(), fetchStage.Run),
		pipeline.Wrap(compressStage.Name(), compressStage.Run),
		pipeline.Wrap(indexStage.Name(), indexStage.Run),
	}
	if !skipDeploy {
		deployStage := appInstance.DeployStage(false)
		stages = append(stages, pipeline.Wrap(deployStage.Name(), deployStage.Run))
	}
	return appInstance.Runner().Execute(ctx, stages...)
}
