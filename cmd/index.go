package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newIndexCmd creates the 'index' subcommand, which regenerates the
// document index artifacts from the files on disk.
func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Generate the document index metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := appInstance.IndexStage().Run(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("index finished",
				zap.Int("bills", result.Bills),
				zap.Int("documents", result.Documents),
			)
			return nil
		},
	}
}
