package implementation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
)

func storeReading(t *testing.T, repo *MemoryReadingRepository, temperature float64, recordedAt time.Time) envmodels.Reading {
	t.Helper()
	stored, err := repo.CreateReading(context.Background(), envmodels.Reading{
		Temperature: temperature,
		Humidity:    50,
		RecordedAt:  recordedAt,
		Source:      envmodels.DefaultSource,
	})
	require.NoError(t, err)
	return *stored
}

func TestMemoryRepo_CreateAssignsID(t *testing.T) {
	repo := NewMemoryReadingRepository()
	stored := storeReading(t, repo, 21, time.Now())

	assert.False(t, stored.ID.IsZero())
	assert.Equal(t, 1, repo.Count())
}

func TestMemoryRepo_RecentNewestFirstAndLimited(t *testing.T) {
	repo := NewMemoryReadingRepository()
	base := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		storeReading(t, repo, float64(20+i), base.Add(time.Duration(i)*time.Minute))
	}

	readings, err := repo.GetRecentReadings(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, 24.0, readings[0].Temperature)
	assert.Equal(t, 23.0, readings[1].Temperature)
	assert.Equal(t, 22.0, readings[2].Temperature)
}

func TestMemoryRepo_DuplicateTimestampsKeptAsDistinctRows(t *testing.T) {
	repo := NewMemoryReadingRepository()
	at := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	storeReading(t, repo, 21, at)
	storeReading(t, repo, 21, at)

	readings, err := repo.GetRecentReadings(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, readings, 2)
}

func TestMemoryRepo_LatestEmptyStore(t *testing.T) {
	repo := NewMemoryReadingRepository()

	reading, err := repo.GetLatestReading(context.Background())
	require.NoError(t, err)
	assert.Nil(t, reading)
}

func TestMemoryRepo_LatestPicksNewestByRecordedAt(t *testing.T) {
	repo := NewMemoryReadingRepository()
	base := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	// Out-of-order arrival: the newest recorded_at wins, not the last insert.
	storeReading(t, repo, 25, base.Add(time.Hour))
	storeReading(t, repo, 20, base)

	reading, err := repo.GetLatestReading(context.Background())
	require.NoError(t, err)
	require.NotNil(t, reading)
	assert.Equal(t, 25.0, reading.Temperature)
}

func TestMemoryRepo_TimeRangeHalfOpenAscending(t *testing.T) {
	repo := NewMemoryReadingRepository()
	base := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	storeReading(t, repo, 18, base.Add(-time.Minute)) // before window
	storeReading(t, repo, 20, base)                   // window start is inclusive
	storeReading(t, repo, 22, base.Add(time.Hour))
	storeReading(t, repo, 24, base.Add(24*time.Hour)) // window end is exclusive

	readings, err := repo.GetReadingsByTimeRange(context.Background(), base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 20.0, readings[0].Temperature)
	assert.Equal(t, 22.0, readings[1].Temperature)
}
