package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDeployCmd creates the 'deploy' subcommand, which syncs the data
// directory to the bucket and invalidates the CDN when anything changed.
func newDeployCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Sync the data directory to the deployment bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := appInstance.DeployStage(dryRun).Run(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("deploy finished",
				zap.Int("uploaded", result.Uploaded),
				zap.Int("deleted", result.Deleted),
				zap.Int("skipped", result.Skipped),
				zap.Int64("bytes_uploaded", result.BytesUploaded),
				zap.Bool("invalidated", result.Invalidated),
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the sync plan without writing to the bucket")
	return cmd
}
