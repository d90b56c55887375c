package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-cli/internal/logger"
	"github.com/i474232898/weather-cli/internal/weather"
)

var errMissingAPIKey = errors.New("google geocoder requires an API key")

// Google geocodes with the Google Maps Geocoding API.
type Google struct{}

// NewGoogle configures the geocoder package with apiKey. The key is process wide.
func NewGoogle(apiKey string) (*Google, error) {
	if apiKey == "" {
		return nil, errMissingAPIKey
	}
	geocoder.ApiKey = apiKey
	return &Google{}, nil
}

func (g *Google) Forward(ctx context.Context, address string) (weather.Location, error) {
	if err := ctx.Err(); err != nil {
		return weather.Location{}, err
	}

	loc, err := geocoder.Geocoding(geocoder.Address{Street: address})
	if err != nil {
		return weather.Location{}, fmt.Errorf("%w: %q: %v", ErrNotFound, address, err)
	}

	return weather.Location{
		Label:       address,
		Coordinates: weather.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude},
	}, nil
}

func (g *Google) Reverse(ctx context.Context, coords weather.Coordinates) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	addrs, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	})
	if err != nil {
		return "", fmt.Errorf("google reverse geocoding %s: %w", coords, err)
	}
	for _, a := range addrs {
		if a.FormattedAddress != "" {
			return a.FormattedAddress, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, coords)
}

// Options selects and configures a backend.
type Options struct {
	Backend      string
	GoogleAPIKey string
	NominatimURL string
	UserAgent    string
	Client       *http.Client
	Logger       logger.Logger
}

// New builds the configured backend. An empty backend means Nominatim.
func New(opts Options) (Geocoder, error) {
	switch opts.Backend {
	case "", "nominatim":
		return NewNominatim(opts.NominatimURL, opts.UserAgent, opts.Client, opts.Logger), nil
	case "google":
		return NewGoogle(opts.GoogleAPIKey)
	default:
		return nil, fmt.Errorf("unknown geocoder %q", opts.Backend)
	}
}
