package aggregator

import (
	"time"

	"github.com/montanaflynn/stats"

	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
)

// avgPrecision is the number of decimal places kept on averages.
// Extrema are reported unrounded.
const avgPrecision = 2

// Compute derives window statistics from readings already restricted to
// [start, end). The input is neither mutated nor reordered. An empty
// input yields Count 0 with nil extrema.
func Compute(readings []envmodels.Reading, start, end time.Time) envmodels.StatsWindow {
	window := envmodels.StatsWindow{
		Count: len(readings),
		Start: start,
		End:   end,
	}
	if len(readings) == 0 {
		return window
	}

	temperatures := make([]float64, 0, len(readings))
	humidities := make([]float64, 0, len(readings))
	for _, r := range readings {
		temperatures = append(temperatures, r.Temperature)
		humidities = append(humidities, r.Humidity)
	}

	window.Temperature = metricStats(temperatures)
	window.Humidity = metricStats(humidities)
	return window
}

func metricStats(values []float64) envmodels.MetricStats {
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	mean, _ := stats.Mean(values)
	avg, _ := stats.Round(mean, avgPrecision)
	return envmodels.MetricStats{Min: &min, Max: &max, Avg: &avg}
}
