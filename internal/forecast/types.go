package forecast

import (
	"fmt"
	"math"
	"time"
)

// Status values reported in a Summary. Provider failures are reported as
// data, never as panics or transport-level errors to callers.
const (
	StatusSuccess         = "Success"
	StatusForecast        = "Success - Forecast Data"
	StatusClimate         = "Success - Climate Projection Data"
	StatusHistorical      = "Success - Climate Context"
	StatusError           = "Error"
	StatusCriticalFailure = "CRITICAL FAILURE"
)

// SentinelMissing is the value upstream sources use to mark absent
// observations. It must never reach callers.
const SentinelMissing = -999.0

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String renders coordinates the way they appear in request logs and
// synthesized location names.
func (c Coordinates) String() string {
	return fmt.Sprintf("Lat:%g, Lon:%g", c.Latitude, c.Longitude)
}

// Measurement is a single weather variable with its unit and display label.
// Value is nil when the upstream source had no data for the requested point.
type Measurement struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
	Label string   `json:"label"`
}

// Conditions groups the variables every provider reports.
type Conditions struct {
	Temperature   Measurement `json:"temperature"`
	Precipitation Measurement `json:"precipitation"`
	WindSpeed     Measurement `json:"windSpeed"`
}

// QuickEvaluation is a coarse yes/no reading of the conditions, used by the
// event favorability check and the client map overlay.
type QuickEvaluation struct {
	IsHot   bool `json:"isHot"`
	IsRainy bool `json:"isRainy"`
}

// Evaluation thresholds for QuickEvaluation.
const (
	hotThresholdC    = 30.0
	rainyThresholdMM = 5.0
)

// Evaluate derives a QuickEvaluation from conditions. Missing variables
// evaluate to false.
func Evaluate(c Conditions) QuickEvaluation {
	var eval QuickEvaluation
	if c.Temperature.Value != nil {
		eval.IsHot = *c.Temperature.Value > hotThresholdC
	}
	if c.Precipitation.Value != nil {
		eval.IsRainy = *c.Precipitation.Value > rainyThresholdMM
	}
	return eval
}

// Query echoes back what was asked, so a Summary is self-describing.
type Query struct {
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"`
	Model     string  `json:"modelUsed,omitempty"`
}

// Summary is the uniform result shape for every temporal range and every
// provider. A failed lookup still produces a Summary with Status set to an
// error value and Message describing the failure.
type Summary struct {
	Query           Query            `json:"query"`
	Conditions      Conditions       `json:"weatherConditions"`
	QuickEvaluation *QuickEvaluation `json:"quickEvaluation,omitempty"`
	Source          string           `json:"forecastSource"`
	Confidence      string           `json:"predictionConfidence,omitempty"`
	Status          string           `json:"status"`
	Message         string           `json:"message,omitempty"`
}

// OK reports whether the summary carries usable data.
func (s *Summary) OK() bool {
	return s != nil && s.Status != StatusError && s.Status != StatusCriticalFailure
}

// CleanValue normalizes a raw provider reading. The -999 sentinel and NaN
// become nil; valid readings are rounded to two decimal places.
func CleanValue(raw *float64) *float64 {
	if raw == nil {
		return nil
	}
	v := *raw
	if v == SentinelMissing || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	rounded := math.Round(v*100) / 100
	return &rounded
}

// ErrorSummary builds the uniform error-as-data result for a failed lookup.
func ErrorSummary(coords Coordinates, date time.Time, err error) *Summary {
	return &Summary{
		Query: Query{
			Location:  coords.String(),
			Latitude:  coords.Latitude,
			Longitude: coords.Longitude,
			Date:      date.Format("2006-01-02"),
		},
		Status:  StatusError,
		Message: fmt.Sprintf("Failed to retrieve weather data. %v", err),
	}
}
