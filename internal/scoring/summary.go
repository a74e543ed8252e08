package scoring

import (
	"fmt"
	"math"
	"strings"
)

// severeKeywords rank forecast texts that should headline a summary, most
// severe first.
var severeKeywords = []string{"thunder", "dense fog", "fog", "rain", "showers", "drizzle"}

// Summarize builds "<label>, <wind> (<n> mph)" for a window.
func Summarize(forecasts []string, avgWindMph float64) string {
	label := headline(forecasts)
	if label == "" {
		label = "Clear"
	}
	return fmt.Sprintf("%s, %s (%d mph)", label, windText(avgWindMph), int(math.Round(avgWindMph)))
}

func headline(forecasts []string) string {
	for _, kw := range severeKeywords {
		for _, f := range forecasts {
			if strings.Contains(strings.ToLower(f), kw) {
				return strings.TrimSpace(f)
			}
		}
	}

	counts := make(map[string]int)
	for _, f := range forecasts {
		if f = strings.TrimSpace(f); f != "" {
			counts[f]++
		}
	}
	best := ""
	for _, f := range forecasts {
		f = strings.TrimSpace(f)
		if f != "" && counts[f] > counts[best] {
			best = f
		}
	}
	return best
}

func windText(mph float64) string {
	switch {
	case mph < 1:
		return "calm winds"
	case mph < 6:
		return "light winds"
	default:
		return "breezy"
	}
}
