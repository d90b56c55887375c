package providers

import (
	"time"

	"github.com/i474232898/weather-cli/internal/weather"
)

const (
	OpenMeteoName = "open-meteo"
	MetNoName     = "met-no"
)

var descriptors = map[string]weather.CapabilityDescriptor{
	OpenMeteoName: {
		Supports:           []weather.DataKind{weather.KindCurrent, weather.KindForecast, weather.KindHistorical},
		HistoricalAllowed:  true,
		MaxForecastHorizon: 16 * 24 * time.Hour,
		HistoricalSince:    time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
	},
	// Locationforecast publishes roughly nine days ahead and keeps no archive.
	MetNoName: {
		Supports:           []weather.DataKind{weather.KindCurrent, weather.KindForecast},
		HistoricalAllowed:  false,
		MaxForecastHorizon: 9 * 24 * time.Hour,
	},
}

// Describe returns the static capability profile for a provider name.
// Unknown names yield an empty descriptor; name resolution happens in weather.Service.
func Describe(name string) weather.CapabilityDescriptor {
	return descriptors[weather.CanonicalName(name)]
}

// Default builds every built-in provider around one shared HTTP configuration.
func Default(cfg HTTPClientConfig) []weather.Provider {
	return []weather.Provider{
		NewOpenMeteoProvider(cfg),
		NewMetNoProvider(cfg),
	}
}
