package cli

import (
	"github.com/spf13/cobra"

	"paddlecast/internal/app"
)

var (
	scoreWind      float64
	scoreGust      float64
	scoreTemp      float64
	scoreForecasts []string
	scorePrecip    []float64
	scoreSunset    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an ad-hoc window with the configured rules",
	Example: `  paddlecast score --wind 3 --gust 7 --temp 52 --forecast "Light Rain" --precip 40
  paddlecast score --wind 1.5 --temp 70 --sunset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScoreOptions{
			WindMph:     scoreWind,
			TempF:       scoreTemp,
			Forecasts:   scoreForecasts,
			PrecipProbs: scorePrecip,
			Sunset:      scoreSunset,
		}
		if cmd.Flags().Changed("gust") {
			gust := scoreGust
			opts.GustMph = &gust
		}
		return getApp().Score(opts)
	},
}

func init() {
	scoreCmd.Flags().Float64Var(&scoreWind, "wind", 0, "Average wind speed (mph)")
	scoreCmd.Flags().Float64Var(&scoreGust, "gust", 0, "Average gust speed (mph); omit when untracked")
	scoreCmd.Flags().Float64Var(&scoreTemp, "temp", 65, "Average temperature (F)")
	scoreCmd.Flags().StringArrayVar(&scoreForecasts, "forecast", nil, "Short forecast text (repeatable)")
	scoreCmd.Flags().Float64SliceVar(&scorePrecip, "precip", nil, "Precipitation probabilities (%)")
	scoreCmd.Flags().BoolVar(&scoreSunset, "sunset", false, "Window touches the pre-sunset band")
}
