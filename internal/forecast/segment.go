package forecast

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Segmenter turns a tide series into bounded-duration candidate windows.
//
// A run opens at the first sample at or above the threshold and closes at the
// last such sample, so run boundaries always sit on sample timestamps. Runs
// shorter than the minimum duration are discarded; longer runs are cut into
// consecutive blocks from the run start, and a trailing remainder survives
// only when it is itself long enough.
type Segmenter struct {
	cfg RunConfig
}

// NewSegmenter binds a Segmenter to cfg.
func NewSegmenter(cfg RunConfig) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Runs returns the maximal contiguous runs of samples at or above the
// threshold.
func (s *Segmenter) Runs(points []TidePoint) ([][]TidePoint, error) {
	if err := checkOrdered(points); err != nil {
		return nil, err
	}

	var (
		runs    [][]TidePoint
		current []TidePoint
	)
	for _, p := range points {
		if p.HeightFt >= s.cfg.MinTideFt {
			current = append(current, p)
			continue
		}
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs, nil
}

// Segment returns window stubs carrying Start, End and AvgTideFt, ordered by
// start.
func (s *Segmenter) Segment(points []TidePoint) ([]Window, error) {
	runs, err := s.Runs(points)
	if err != nil {
		return nil, err
	}

	minDur := s.cfg.MinDuration()
	block := s.cfg.WindowBlock()

	windows := make([]Window, 0, len(runs))
	for _, run := range runs {
		start := run[0].Time
		end := run[len(run)-1].Time
		if end.Sub(start) < minDur {
			continue
		}

		for cursor := start; cursor.Before(end); {
			chunkEnd := cursor.Add(block)
			if chunkEnd.After(end) {
				chunkEnd = end
			}
			if chunkEnd.Sub(cursor) < minDur {
				break
			}
			windows = append(windows, Window{
				Start:     cursor,
				End:       chunkEnd,
				AvgTideFt: meanHeight(run, cursor, chunkEnd),
			})
			cursor = chunkEnd
		}
	}
	return windows, nil
}

func meanHeight(run []TidePoint, from, to time.Time) float64 {
	heights := make([]float64, 0, len(run))
	for _, p := range run {
		if p.Time.Before(from) || p.Time.After(to) {
			continue
		}
		heights = append(heights, p.HeightFt)
	}
	if len(heights) == 0 {
		return 0
	}
	return stat.Mean(heights, nil)
}

func checkOrdered(points []TidePoint) error {
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Time, points[i].Time
		if cur.Equal(prev) {
			return &DataError{Series: "tides", Index: i, Time: cur, Reason: "duplicate timestamp"}
		}
		if cur.Before(prev) {
			return &DataError{Series: "tides", Index: i, Time: cur, Reason: "timestamps out of order"}
		}
	}
	return nil
}
