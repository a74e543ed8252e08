package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PublishedArtifact is the mirrored copy of the latest document for one
// location. Payload holds the exact bytes written to disk.
type PublishedArtifact struct {
	Location      string
	RunID         string
	GeneratedAt   time.Time
	WeatherSource string
	DayCount      int
	WindowCount   int
	BestScore     *decimal.Decimal
	Payload       json.RawMessage
	UpdatedAt     time.Time
}

// RunStatus values recorded per build.
const (
	RunStatusPublished = "published"
	RunStatusFailed    = "failed"
)

// RunRecord audits one build attempt.
type RunRecord struct {
	RunID         string
	Location      string
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        string
	WeatherSource *string
	WindowCount   int
	Error         *string
}
