package weather

import (
	"fmt"
	"strings"
)

// The canonical units are °C, m/s, % and mm. The converters below take the unit
// label a provider reports alongside its values.

// ToCelsius converts a temperature reported in unit to °C.
func ToCelsius(v float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "°c", "c", "celsius":
		return v, nil
	case "°f", "f", "fahrenheit":
		return (v - 32) * 5 / 9, nil
	case "k", "kelvin":
		return v - 273.15, nil
	default:
		return 0, fmt.Errorf("unknown temperature unit %q", unit)
	}
}

// ToMetersPerSecond converts a speed reported in unit to m/s.
func ToMetersPerSecond(v float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "m/s", "ms":
		return v, nil
	case "km/h", "kmh", "kph":
		return v / 3.6, nil
	case "mph", "mp/h":
		return v * 0.44704, nil
	case "kn", "kt", "knots":
		return v * 0.514444, nil
	default:
		return 0, fmt.Errorf("unknown speed unit %q", unit)
	}
}

// ToMillimeters converts a precipitation amount reported in unit to mm.
func ToMillimeters(v float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "mm":
		return v, nil
	case "inch", "in", "\"":
		return v * 25.4, nil
	case "cm":
		return v * 10, nil
	default:
		return 0, fmt.Errorf("unknown precipitation unit %q", unit)
	}
}

// CompassPoint returns the 16-point compass label for a wind direction in degrees.
func CompassPoint(deg float64) string {
	points := [...]string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

	d := float64(int(deg*100)%36000) / 100
	if d < 0 {
		d += 360
	}
	idx := int((d+11.25)/22.5) % len(points)
	return points[idx]
}
