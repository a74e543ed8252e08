package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"paddlecast/internal/artifact"
	"paddlecast/internal/storage"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	// FromDB reads the mirrored artifact instead of the published file.
	FromDB bool
	Path   string
	Date   string
	// MinScore hides windows scoring below it.
	MinScore float64
	// Runs lists recent build attempts from the database instead.
	Runs  bool
	Limit int
}

// Show prints the windows of the current artifact.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.Runs {
		return a.showRuns(ctx, opts.Limit)
	}

	doc, err := a.loadDocument(ctx, opts.FromDB, opts.Path)
	if err != nil {
		return err
	}
	return renderWindows(a.Out, doc, opts.Date, opts.MinScore)
}

func (a *App) loadDocument(ctx context.Context, fromDB bool, path string) (artifact.Document, error) {
	if !fromDB {
		if path == "" {
			path = a.Config.Output.Path
		}
		return artifact.ReadFile(path)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return artifact.Document{}, err
	}
	if store == nil {
		return artifact.Document{}, errors.New("database not configured; cannot read mirrored artifact")
	}
	defer closeStore()

	rec, err := store.LatestArtifact(ctx, a.Config.Location.Name)
	if err != nil {
		return artifact.Document{}, err
	}
	return artifact.Parse(rec.Payload)
}

func (a *App) showRuns(ctx context.Context, limit int) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	defer closeStore()

	runs, err := store.ListRecentRuns(ctx, a.Config.Location.Name, limit)
	if err != nil {
		return err
	}
	return renderRuns(a.Out, runs)
}

func renderWindows(out io.Writer, doc artifact.Document, date string, minScore float64) error {
	fmt.Fprintf(out, "%s  generated %s  weather %s\n", doc.Location, doc.GeneratedAt, doc.WeatherSource)

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tWindow\tTide ft\tWind mph\tGust mph\tScore\tConditions")

	shown := 0
	for _, day := range doc.Days {
		if date != "" && day.Date != date {
			continue
		}
		for _, w := range day.Windows {
			if w.Score < minScore {
				continue
			}
			gust := "-"
			if w.AvgWindGustMph != nil {
				gust = fmt.Sprintf("%.1f", *w.AvgWindGustMph)
			}
			fmt.Fprintf(writer, "%s\t%s-%s\t%.2f\t%.1f\t%s\t%.1f\t%s\n",
				day.Date,
				clock(w.Start),
				clock(w.End),
				w.AvgTideFt,
				w.AvgWindMph,
				gust,
				w.Score,
				sanitizeInline(w.Conditions),
			)
			shown++
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	if shown == 0 {
		fmt.Fprintln(out, "no windows found")
	}
	return nil
}

func renderRuns(out io.Writer, runs []storage.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Started (UTC)\tDuration\tStatus\tWeather\tWindows\tError")
	for _, run := range runs {
		source := "-"
		if run.WeatherSource != nil {
			source = *run.WeatherSource
		}
		errMsg := ""
		if run.Error != nil {
			errMsg = sanitizeInline(*run.Error)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			run.Status,
			source,
			run.WindowCount,
			errMsg,
		)
	}
	return writer.Flush()
}

// clock renders the local HH:MM of an RFC3339 stamp, or the raw value when
// it does not parse.
func clock(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return t.Format("15:04")
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
