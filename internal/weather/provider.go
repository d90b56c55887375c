package weather

import (
	"context"
	"time"
)

// RawResponse is a provider reply as received, plus the request it answers.
type RawResponse struct {
	Body        []byte
	Coordinates Coordinates
	Spec        TimeSpec
	FetchedAt   time.Time
}

// Provider abstracts a weather data source (e.g. Open-Meteo, MET Norway).
//
// Fetch issues exactly one logical request and returns a *TransportError on failure.
// Normalize maps the reply into the canonical model and returns a *NormalizationError
// on failure. Normalize may return points in payload order; Service.GetWeather sorts
// them. Neither is meant to be called directly: Service.GetWeather runs
// classification and capability validation first.
type Provider interface {
	Name() string
	Capabilities() CapabilityDescriptor
	Fetch(ctx context.Context, coords Coordinates, spec TimeSpec, kind DataKind) (RawResponse, error)
	Normalize(raw RawResponse, kind DataKind) (WeatherReport, error)
}
