package envmodels

import "time"

// MetricStats holds extrema and average for one measured quantity.
// All three are nil over an empty window.
type MetricStats struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
	Avg *float64 `json:"avg"`
}

// StatsWindow is a derived view over the readings whose recorded_at
// falls within [Start, End). It is computed on read and never persisted.
type StatsWindow struct {
	Count       int         `json:"count"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Temperature MetricStats `json:"temperature"`
	Humidity    MetricStats `json:"humidity"`
}
