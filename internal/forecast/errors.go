package forecast

import (
	"fmt"
	"strings"
	"time"
)

// DataError reports an ordering violation in an ingested series.
type DataError struct {
	Series string
	Index  int
	Time   time.Time
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s series invalid at index %d (%s): %s", e.Series, e.Index, e.Time.Format(time.RFC3339), e.Reason)
}

// DataFetchError reports an unreachable upstream or a non-2xx response.
type DataFetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *DataFetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	b.WriteString(" fetch failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " [%s]", e.URL)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// DataShapeError reports a missing or malformed upstream field.
type DataShapeError struct {
	Source    string
	Field     string
	StationID string
	From      time.Time
	To        time.Time
	Err       error
}

func (e *DataShapeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: malformed field %q", e.Source, e.Field)
	if e.StationID != "" {
		fmt.Fprintf(&b, " station=%s", e.StationID)
	}
	if !e.From.IsZero() || !e.To.IsZero() {
		fmt.Fprintf(&b, " range=%s..%s", e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DataShapeError) Unwrap() error { return e.Err }

// ConfigError reports an invalid setting. It is raised before any fetch.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}
