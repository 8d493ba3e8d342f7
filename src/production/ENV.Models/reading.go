package envmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Accepted sensor ranges. Pushes outside these bounds are rejected
// before they reach the store.
const (
	MinTemperature = -50.0 // °C
	MaxTemperature = 100.0 // °C
	MinHumidity    = 0.0   // %RH
	MaxHumidity    = 100.0 // %RH
)

// DefaultSource tags readings whose push carries no source field.
const DefaultSource = "thingspeak"

// Reading is one timestamped temperature/humidity observation. Readings
// are immutable once stored and carry no uniqueness key: duplicate
// pushes for the same moment land as distinct rows.
type Reading struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Temperature float64            `bson:"temperature" json:"temperature"`
	Humidity    float64            `bson:"humidity" json:"humidity"`
	RecordedAt  time.Time          `bson:"recorded_at" json:"recorded_at"`
	Source      string             `bson:"source" json:"source"`
}
