package cli

import (
	"github.com/spf13/cobra"

	"paddlecast/internal/app"
)

var (
	exportFromDB  bool
	exportPath    string
	exportDate    string
	exportPNGPath string
	exportCSVPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export windows as CSV and a day's tide chart as PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			FromDB:  exportFromDB,
			Path:    exportPath,
			Date:    exportDate,
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportFromDB, "db", false, "Read the artifact mirrored in the database")
	exportCmd.Flags().StringVar(&exportPath, "path", "", "Artifact path (defaults to output.path)")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Local date to export (defaults to the first day)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
}
