package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newFetchCmd creates the 'fetch' subcommand, which downloads the session's
// bills list and every new or updated document PDF.
func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download bill amendments, fiscal notes, and legal notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			stage, err := appInstance.FetchStage()
			if err != nil {
				return fmt.Errorf("build fetch stage: %w", err)
			}
			result, err := stage.Run(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("fetch finished",
				zap.Int("bills", result.Bills),
				zap.Int("downloaded", result.Downloaded),
				zap.Int("skipped", result.Skipped),
				zap.Int("removed", result.Removed),
				zap.Int64("bytes", result.Bytes),
			)
			return nil
		},
	}
}
