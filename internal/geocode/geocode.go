package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-cli/internal/weather"
)

var (
	// ErrNotFound is returned when an address does not match any place.
	ErrNotFound = errors.New("no matching location")
	// ErrInvalidCoordinates means a "lat,lon" input is out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Geocoder turns addresses into coordinates and back.
type Geocoder interface {
	Forward(ctx context.Context, address string) (weather.Location, error)
	Reverse(ctx context.Context, coords weather.Coordinates) (string, error)
}

// Resolve turns user input into a Location. Input of the form "lat,lon" is used
// as is and reverse geocoded for a label; anything else is forward geocoded.
// A failed reverse lookup is not an error: the label falls back to the coordinates.
func Resolve(ctx context.Context, g Geocoder, input string) (weather.Location, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return weather.Location{}, fmt.Errorf("%w: empty address", ErrNotFound)
	}

	coords, ok, err := ParseCoordinates(input)
	if err != nil {
		return weather.Location{}, err
	}
	if ok {
		label := coords.String()
		if g != nil {
			if name, rerr := g.Reverse(ctx, coords); rerr == nil && name != "" {
				label = name
			}
		}
		return weather.Location{Label: label, Coordinates: coords}, nil
	}

	if g == nil {
		return weather.Location{}, fmt.Errorf("%w: %q (no geocoder configured)", ErrNotFound, input)
	}
	loc, err := g.Forward(ctx, input)
	if err != nil {
		return weather.Location{}, err
	}
	if err := loc.Coordinates.Validate(); err != nil {
		return weather.Location{}, fmt.Errorf("%w: geocoder answered %v", ErrInvalidCoordinates, err)
	}
	if loc.Label == "" {
		loc.Label = input
	}
	return loc, nil
}

// ParseCoordinates recognises "lat,lon". ok is false when input does not look
// like a coordinate pair; err is set when it does but the values are out of range.
func ParseCoordinates(input string) (weather.Coordinates, bool, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return weather.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return weather.Coordinates{}, false, nil
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return weather.Coordinates{}, false, nil
	}

	c := weather.Coordinates{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return weather.Coordinates{}, true, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return c, true, nil
}
