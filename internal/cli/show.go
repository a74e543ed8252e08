package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paddlecast/internal/app"
)

var (
	showFromDB   bool
	showPath     string
	showDate     string
	showMinScore float64
	showRuns     bool
	showLimit    int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display windows from the published forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showRuns && showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			FromDB:   showFromDB,
			Path:     showPath,
			Date:     showDate,
			MinScore: showMinScore,
			Runs:     showRuns,
			Limit:    showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showFromDB, "db", false, "Read the artifact mirrored in the database")
	showCmd.Flags().StringVar(&showPath, "path", "", "Artifact path (defaults to output.path)")
	showCmd.Flags().StringVar(&showDate, "date", "", "Only show this local date (YYYY-MM-DD)")
	showCmd.Flags().Float64Var(&showMinScore, "min-score", 0, "Hide windows scoring below this")
	showCmd.Flags().BoolVar(&showRuns, "runs", false, "List recent builds from the database")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of runs to display")
}
