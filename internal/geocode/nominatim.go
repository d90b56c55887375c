package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/i474232898/weather-cli/internal/logger"
	"github.com/i474232898/weather-cli/internal/weather"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim geocodes against the OpenStreetMap Nominatim API. The usage policy
// requires an identifying User-Agent.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       logger.Logger
}

func NewNominatim(baseURL, userAgent string, client *http.Client, log logger.Logger) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    client,
		log:       log.WithField("geocoder", "nominatim"),
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (n *Nominatim) Forward(ctx context.Context, address string) (weather.Location, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := n.get(ctx, "/search", q, &places); err != nil {
		return weather.Location{}, err
	}
	if len(places) == 0 {
		return weather.Location{}, fmt.Errorf("%w: %q", ErrNotFound, address)
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return weather.Location{}, fmt.Errorf("nominatim: bad latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return weather.Location{}, fmt.Errorf("nominatim: bad longitude %q: %w", p.Lon, err)
	}

	return weather.Location{
		Label:       p.DisplayName,
		Coordinates: weather.Coordinates{Latitude: lat, Longitude: lon},
	}, nil
}

func (n *Nominatim) Reverse(ctx context.Context, coords weather.Coordinates) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	q.Set("format", "jsonv2")

	var place nominatimPlace
	if err := n.get(ctx, "/reverse", q, &place); err != nil {
		return "", err
	}
	if place.Error != "" || place.DisplayName == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, coords)
	}
	return place.DisplayName, nil
}

func (n *Nominatim) get(ctx context.Context, path string, q url.Values, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("nominatim: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	n.log.Debugf("GET %s", req.URL.Redacted())
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nominatim: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("nominatim: decode: %w", err)
	}
	return nil
}
