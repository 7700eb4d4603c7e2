package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCompressCmd creates the 'compress' subcommand, which shrinks downloaded
// PDFs in place with ghostscript.
func newCompressCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Compress downloaded PDFs with ghostscript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			result, err := appInstance.CompressStage(dryRun).Run(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("compress finished",
				zap.Int("found", result.Found),
				zap.Int("compressed", result.Compressed),
				zap.Int("unchanged", result.Unchanged),
				zap.Int("skipped", result.Skipped),
				zap.Int("errors", result.Errors),
				zap.Int64("saved_bytes", result.SavedBytes),
			)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be compressed without modifying files")
	return cmd
}
