package interfaces

import (
	"context"
	"time"

	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
)

// ReadingRepository is the append-only persistence boundary for
// readings. Reads are consistent with insertion order by recorded_at.
// Append failures are always surfaced to the caller.
type ReadingRepository interface {
	// CreateReading appends one reading and returns it with its
	// store-assigned identifier.
	CreateReading(ctx context.Context, reading envmodels.Reading) (*envmodels.Reading, error)

	// GetRecentReadings returns at most limit readings, newest first.
	GetRecentReadings(ctx context.Context, limit int) ([]envmodels.Reading, error)

	// GetLatestReading returns the most recent reading, or (nil, nil)
	// when the store is empty.
	GetLatestReading(ctx context.Context) (*envmodels.Reading, error)

	// GetReadingsByTimeRange returns readings with start <= recorded_at < end,
	// oldest first.
	GetReadingsByTimeRange(ctx context.Context, start, end time.Time) ([]envmodels.Reading, error)
}
