package alerting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"paddlecast/internal/forecast"
)

// Digest lists the best upcoming windows of one run.
type Digest struct {
	Location    string
	GeneratedAt time.Time
	MinScore    float64
	Windows     []forecast.Window
}

// Empty reports whether there is nothing worth sending.
func (d Digest) Empty() bool {
	return len(d.Windows) == 0
}

// Fingerprint identifies the digest content so an unchanged digest is not
// resent on every scheduled run.
func (d Digest) Fingerprint() string {
	parts := make([]string, 0, len(d.Windows))
	for _, w := range d.Windows {
		parts = append(parts, fmt.Sprintf("%d/%d/%.1f", w.Start.Unix(), w.End.Unix(), w.Score))
	}
	return d.Location + "|" + strings.Join(parts, ",")
}

// SelectWindows picks windows ending after now with score >= minScore, best
// first. Equal scores keep chronological order. limit <= 0 means no limit.
func SelectWindows(days []forecast.Day, now time.Time, minScore float64, limit int) []forecast.Window {
	var picked []forecast.Window
	for _, d := range days {
		for _, w := range d.Windows {
			if w.Score < minScore || !w.End.After(now) {
				continue
			}
			picked = append(picked, w)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].Score != picked[j].Score {
			return picked[i].Score > picked[j].Score
		}
		return picked[i].Start.Before(picked[j].Start)
	})
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

func renderMessage(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[PaddleCast] %s\n", d.Location)
	fmt.Fprintf(&b, "%d window(s) scoring %.1f or better:\n", len(d.Windows), d.MinScore)
	for _, w := range d.Windows {
		fmt.Fprintf(&b, "%s %s-%s  %.1f/5  tide %.2f ft  %s\n",
			w.Start.Format("Mon Jan 2"),
			w.Start.Format("15:04"),
			w.End.Format("15:04"),
			w.Score,
			w.AvgTideFt,
			w.Conditions,
		)
	}
	fmt.Fprintf(&b, "Generated %s UTC", d.GeneratedAt.UTC().Format(time.RFC3339))
	return b.String()
}
