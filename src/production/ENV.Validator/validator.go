package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
)

// Error codes, one per check. A payload is reported against the first
// check it fails, so callers always see the same code for the same input.
const (
	CodeMissingField = "missing_field"
	CodeNotANumber   = "not_a_number"
	CodeOutOfRange   = "out_of_range"
)

// ValidationError describes the first constraint a push payload violated.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Clock supplies the time substituted when a payload carries no usable
// created_at. Injectable so tests can pin it.
type Clock func() time.Time

// Validator turns a loosely-typed push payload into a well-formed
// Reading. It performs no I/O.
type Validator struct {
	now Clock
}

func New() *Validator {
	return &Validator{now: time.Now}
}

func NewWithClock(now Clock) *Validator {
	return &Validator{now: now}
}

// check inspects one aspect of the payload. Checks run in a fixed order
// and the chain short-circuits on the first failure.
type check func(p envmodels.PushPayload) *ValidationError

// Validate runs the check chain: presence, numeric coercion, range.
// The timestamp step never fails; bad or absent created_at values fall
// back to the validator's clock.
func (v *Validator) Validate(p envmodels.PushPayload) (*envmodels.Reading, *ValidationError) {
	checks := []check{checkPresence, checkNumeric, checkRange}
	for _, c := range checks {
		if verr := c(p); verr != nil {
			return nil, verr
		}
	}

	temperature, _ := coerceNumber(p.Temperature)
	humidity, _ := coerceNumber(p.Humidity)

	source := p.Source
	if source == "" {
		source = envmodels.DefaultSource
	}

	return &envmodels.Reading{
		Temperature: temperature,
		Humidity:    humidity,
		RecordedAt:  v.recordedAt(p.CreatedAt),
		Source:      source,
	}, nil
}

func checkPresence(p envmodels.PushPayload) *ValidationError {
	if p.Temperature == nil {
		return &ValidationError{Code: CodeMissingField, Field: "temperature", Message: "temperature is required"}
	}
	if p.Humidity == nil {
		return &ValidationError{Code: CodeMissingField, Field: "humidity", Message: "humidity is required"}
	}
	return nil
}

func checkNumeric(p envmodels.PushPayload) *ValidationError {
	if _, ok := coerceNumber(p.Temperature); !ok {
		return &ValidationError{Code: CodeNotANumber, Field: "temperature", Message: "temperature must be a finite number"}
	}
	if _, ok := coerceNumber(p.Humidity); !ok {
		return &ValidationError{Code: CodeNotANumber, Field: "humidity", Message: "humidity must be a finite number"}
	}
	return nil
}

func checkRange(p envmodels.PushPayload) *ValidationError {
	temperature, _ := coerceNumber(p.Temperature)
	if temperature < envmodels.MinTemperature || temperature > envmodels.MaxTemperature {
		return &ValidationError{
			Code:    CodeOutOfRange,
			Field:   "temperature",
			Message: fmt.Sprintf("temperature %g outside accepted range [%g, %g]", temperature, envmodels.MinTemperature, envmodels.MaxTemperature),
		}
	}
	humidity, _ := coerceNumber(p.Humidity)
	if humidity < envmodels.MinHumidity || humidity > envmodels.MaxHumidity {
		return &ValidationError{
			Code:    CodeOutOfRange,
			Field:   "humidity",
			Message: fmt.Sprintf("humidity %g outside accepted range [%g, %g]", humidity, envmodels.MinHumidity, envmodels.MaxHumidity),
		}
	}
	return nil
}

// coerceNumber accepts the representations firmware actually sends:
// JSON numbers, json.Number and numeric strings. NaN and infinities
// are rejected.
func coerceNumber(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, isFinite(n)
	case float32:
		return float64(n), isFinite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && isFinite(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && isFinite(f)
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// recordedAt parses the producer timestamp, trying RFC3339 first and a
// few formats older firmware revisions emit. Anything unparseable is
// replaced with the current ingestion time.
func (v *Validator) recordedAt(createdAt string) time.Time {
	s := strings.TrimSpace(createdAt)
	if s == "" {
		return v.now()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return v.now()
}
