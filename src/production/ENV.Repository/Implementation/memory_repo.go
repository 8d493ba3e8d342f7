package implementation

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
)

// MemoryReadingRepository keeps readings in process memory. It backs the
// test suite and local development without a Mongo instance, with the
// same ordering semantics as the Mongo repository.
type MemoryReadingRepository struct {
	mu       sync.RWMutex
	readings []envmodels.Reading
}

func NewMemoryReadingRepository() *MemoryReadingRepository {
	return &MemoryReadingRepository{}
}

func (r *MemoryReadingRepository) CreateReading(_ context.Context, reading envmodels.Reading) (*envmodels.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reading.ID = primitive.NewObjectID()
	r.readings = append(r.readings, reading)
	return &reading, nil
}

func (r *MemoryReadingRepository) GetRecentReadings(_ context.Context, limit int) ([]envmodels.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedDesc()
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (r *MemoryReadingRepository) GetLatestReading(_ context.Context) (*envmodels.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.readings) == 0 {
		return nil, nil
	}
	latest := r.sortedDesc()[0]
	return &latest, nil
}

func (r *MemoryReadingRepository) GetReadingsByTimeRange(_ context.Context, start, end time.Time) ([]envmodels.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []envmodels.Reading
	for _, reading := range r.readings {
		if !reading.RecordedAt.Before(start) && reading.RecordedAt.Before(end) {
			out = append(out, reading)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

// Count reports the number of stored readings. Tests use it to assert
// the store was or was not touched.
func (r *MemoryReadingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.readings)
}

// sortedDesc returns a copy ordered newest first, ties keeping
// insertion order.
func (r *MemoryReadingRepository) sortedDesc() []envmodels.Reading {
	sorted := make([]envmodels.Reading, len(r.readings))
	copy(sorted, r.readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.After(sorted[j].RecordedAt)
	})
	return sorted
}
