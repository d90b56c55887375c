package weather

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionFog     Condition = "fog"
	ConditionStorm   Condition = "storm"
)

// DataKind says whether a request is for current, forecast or historical data.
type DataKind string

const (
	KindCurrent    DataKind = "current"
	KindForecast   DataKind = "forecast"
	KindHistorical DataKind = "historical"
)

// Coordinates is a resolved point on the globe.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Validate checks that the coordinates are within range.
func (c Coordinates) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid coordinates %s: %w", c, err)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Location is a place we fetch weather for: coordinates plus an optional display label.
type Location struct {
	Label       string      `json:"label,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// Key returns a canonical string key for logging this location.
func (l Location) Key() string {
	if l.Label != "" {
		return l.Label
	}
	return l.Coordinates.String()
}

// TimeSpec is either Now or a concrete instant. The zero value is Now.
type TimeSpec struct {
	instant *time.Time
}

// Now returns the TimeSpec for current conditions.
func Now() TimeSpec {
	return TimeSpec{}
}

// At returns a TimeSpec for a concrete instant.
func At(t time.Time) TimeSpec {
	return TimeSpec{instant: &t}
}

// IsNow reports whether the spec is the Now sentinel.
func (s TimeSpec) IsNow() bool {
	return s.instant == nil
}

// Instant returns the concrete instant. ok is false for Now.
func (s TimeSpec) Instant() (t time.Time, ok bool) {
	if s.instant == nil {
		return time.Time{}, false
	}
	return *s.instant, true
}

func (s TimeSpec) String() string {
	if s.instant == nil {
		return "now"
	}
	return s.instant.Format(time.RFC3339)
}

// CapabilityDescriptor is the static capability profile of a provider.
type CapabilityDescriptor struct {
	Supports           []DataKind    `json:"supports"`
	HistoricalAllowed  bool          `json:"historicalAllowed"`
	MaxForecastHorizon time.Duration `json:"maxForecastHorizon"`

	// HistoricalSince is the earliest servable historical instant. Zero means unbounded.
	HistoricalSince time.Time `json:"historicalSince,omitempty"`
}

// Has reports whether kind is in the supported set.
func (d CapabilityDescriptor) Has(kind DataKind) bool {
	for _, k := range d.Supports {
		if k == kind {
			return true
		}
	}
	return false
}

// WeatherPoint is a single normalized observation or forecast step.
// Optional fields are nil when the provider does not expose them.
type WeatherPoint struct {
	Timestamp        time.Time `json:"timestamp"`
	TemperatureC     float64   `json:"temperatureC"`
	Condition        Condition `json:"condition"`
	WindSpeedMS      *float64  `json:"windSpeedMs,omitempty"`
	WindDirectionDeg *float64  `json:"windDirectionDeg,omitempty"`
	HumidityPct      *float64  `json:"humidityPct,omitempty"`
	PrecipitationMM  *float64  `json:"precipitationMm,omitempty"`
}

// WeatherReport is the canonical result handed to renderers.
// Points are sorted ascending by timestamp; Current reports hold exactly one point.
type WeatherReport struct {
	Provider      string         `json:"provider"`
	LocationLabel string         `json:"location"`
	Coordinates   Coordinates    `json:"coordinates"`
	Kind          DataKind       `json:"kind"`
	Points        []WeatherPoint `json:"points"`
}

// Float returns a pointer to v, for populating optional WeatherPoint fields.
func Float(v float64) *float64 {
	return &v
}
