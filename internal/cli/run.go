package cli

import (
	"github.com/spf13/cobra"

	"paddlecast/internal/app"
)

var runDryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and publish the forecast once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{DryRun: runDryRun})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Rebuild the forecast on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the document to stdout instead of publishing it")
}
