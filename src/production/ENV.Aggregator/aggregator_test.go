package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
)

func reading(temperature, humidity float64, recordedAt time.Time) envmodels.Reading {
	return envmodels.Reading{Temperature: temperature, Humidity: humidity, RecordedAt: recordedAt}
}

func TestCompute_EmptyWindow(t *testing.T) {
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	window := Compute(nil, start, end)

	assert.Equal(t, 0, window.Count)
	assert.True(t, window.Start.Equal(start))
	assert.True(t, window.End.Equal(end))
	assert.Nil(t, window.Temperature.Min)
	assert.Nil(t, window.Temperature.Max)
	assert.Nil(t, window.Temperature.Avg)
	assert.Nil(t, window.Humidity.Min)
	assert.Nil(t, window.Humidity.Max)
	assert.Nil(t, window.Humidity.Avg)
}

func TestCompute_MinMaxAvg(t *testing.T) {
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	readings := []envmodels.Reading{
		reading(20, 40, start.Add(1*time.Hour)),
		reading(25, 50, start.Add(2*time.Hour)),
		reading(30, 60, start.Add(3*time.Hour)),
	}

	window := Compute(readings, start, end)

	require.Equal(t, 3, window.Count)
	assert.Equal(t, 20.0, *window.Temperature.Min)
	assert.Equal(t, 30.0, *window.Temperature.Max)
	assert.Equal(t, 25.0, *window.Temperature.Avg)
	assert.Equal(t, 40.0, *window.Humidity.Min)
	assert.Equal(t, 60.0, *window.Humidity.Max)
	assert.Equal(t, 50.0, *window.Humidity.Avg)
}

func TestCompute_AvgRoundedExtremaUnrounded(t *testing.T) {
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	readings := []envmodels.Reading{
		reading(20.333, 40.111, start),
		reading(20.334, 40.112, start.Add(time.Minute)),
		reading(20.335, 40.113, start.Add(2*time.Minute)),
	}

	window := Compute(readings, start, start.Add(time.Hour))

	// min/max keep the raw sensor resolution, only the average is rounded.
	assert.Equal(t, 20.333, *window.Temperature.Min)
	assert.Equal(t, 20.335, *window.Temperature.Max)
	assert.Equal(t, 20.33, *window.Temperature.Avg)
	assert.Equal(t, 40.11, *window.Humidity.Avg)
}

func TestCompute_SingleReading(t *testing.T) {
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	window := Compute([]envmodels.Reading{reading(-12.5, 87, start)}, start, start.Add(time.Hour))

	assert.Equal(t, 1, window.Count)
	assert.Equal(t, -12.5, *window.Temperature.Min)
	assert.Equal(t, -12.5, *window.Temperature.Max)
	assert.Equal(t, -12.5, *window.Temperature.Avg)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	readings := []envmodels.Reading{
		reading(30, 60, start.Add(3*time.Hour)),
		reading(20, 40, start.Add(1*time.Hour)),
		reading(25, 50, start.Add(2*time.Hour)),
	}

	Compute(readings, start, start.Add(24*time.Hour))

	assert.Equal(t, 30.0, readings[0].Temperature)
	assert.Equal(t, 20.0, readings[1].Temperature)
	assert.Equal(t, 25.0, readings[2].Temperature)
}
