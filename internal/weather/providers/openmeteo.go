package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-cli/internal/weather"
)

const openMeteoVariables = "temperature_2m,relative_humidity_2m,precipitation,weather_code,wind_speed_10m,wind_direction_10m"

// openMeteoLocalTime is the timestamp layout returned with timezone=auto.
const openMeteoLocalTime = "2006-01-02T15:04"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key. Past dates go to the archive API once they are older
// than archiveDelay; more recent days are still served by the forecast API.
type OpenMeteoProvider struct {
	name         string
	forecastURL  string
	archiveURL   string
	archiveDelay time.Duration
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
	now          func() time.Time
}

func NewOpenMeteoProvider(cfg HTTPClientConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:         OpenMeteoName,
		forecastURL:  "https://api.open-meteo.com/v1/forecast",
		archiveURL:   "https://archive-api.open-meteo.com/v1/archive",
		archiveDelay: 5 * 24 * time.Hour,
		httpCfg:      cfg,
		circuit:      newCircuitBreaker(OpenMeteoName, cfg.logger()),
		now:          time.Now,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Capabilities() weather.CapabilityDescriptor {
	return Describe(p.name)
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, coords weather.Coordinates, spec weather.TimeSpec, kind weather.DataKind) (weather.RawResponse, error) {
	now := p.now()

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	values.Set("timezone", "auto")
	values.Set("wind_speed_unit", "ms")

	endpoint := p.forecastURL
	switch kind {
	case weather.KindCurrent:
		values.Set("current", openMeteoVariables)
	case weather.KindForecast, weather.KindHistorical:
		t, ok := spec.Instant()
		if !ok {
			return weather.RawResponse{}, weather.NetworkError(p.name, fmt.Errorf("%s request without a date", kind))
		}
		day := t.Format(time.DateOnly)
		values.Set("hourly", openMeteoVariables)
		values.Set("start_date", day)
		values.Set("end_date", day)

		if kind == weather.KindHistorical && t.Before(now.Add(-p.archiveDelay)) {
			endpoint = p.archiveURL
		}
	default:
		return weather.RawResponse{}, weather.NetworkError(p.name, fmt.Errorf("unknown data kind %q", kind))
	}

	body, err := doRequest(ctx, p.name, p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	})
	if err != nil {
		return weather.RawResponse{}, err
	}

	return weather.RawResponse{
		Body:        body,
		Coordinates: coords,
		Spec:        spec,
		FetchedAt:   now,
	}, nil
}

type openMeteoPayload struct {
	UTCOffsetSeconds *int              `json:"utc_offset_seconds"`
	Current          *openMeteoCurrent `json:"current"`
	CurrentUnits     map[string]string `json:"current_units"`
	Hourly           *openMeteoHourly  `json:"hourly"`
	HourlyUnits      map[string]string `json:"hourly_units"`
}

type openMeteoCurrent struct {
	Time          *string  `json:"time"`
	Temperature   *float64 `json:"temperature_2m"`
	Humidity      *float64 `json:"relative_humidity_2m"`
	Precipitation *float64 `json:"precipitation"`
	WeatherCode   *int     `json:"weather_code"`
	WindSpeed     *float64 `json:"wind_speed_10m"`
	WindDirection *float64 `json:"wind_direction_10m"`
}

type openMeteoHourly struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m"`
	Humidity      []*float64 `json:"relative_humidity_2m"`
	Precipitation []*float64 `json:"precipitation"`
	WeatherCode   []*int     `json:"weather_code"`
	WindSpeed     []*float64 `json:"wind_speed_10m"`
	WindDirection []*float64 `json:"wind_direction_10m"`
}

func (p *OpenMeteoProvider) Normalize(raw weather.RawResponse, kind weather.DataKind) (weather.WeatherReport, error) {
	var payload openMeteoPayload
	if err := decodeStrict(p.name, raw.Body, &payload); err != nil {
		return weather.WeatherReport{}, err
	}

	zone := time.UTC
	if payload.UTCOffsetSeconds != nil {
		zone = time.FixedZone("", *payload.UTCOffsetSeconds)
	}

	var (
		points []weather.WeatherPoint
		err    error
	)
	if kind == weather.KindCurrent {
		var pt weather.WeatherPoint
		pt, err = p.normalizeCurrent(payload, zone)
		points = []weather.WeatherPoint{pt}
	} else {
		points, err = p.normalizeHourly(payload, zone)
	}
	if err != nil {
		return weather.WeatherReport{}, err
	}

	return weather.WeatherReport{
		Provider:    p.name,
		Coordinates: raw.Coordinates,
		Kind:        kind,
		Points:      points,
	}, nil
}

func (p *OpenMeteoProvider) normalizeCurrent(payload openMeteoPayload, zone *time.Location) (weather.WeatherPoint, error) {
	c := payload.Current
	if c == nil {
		return weather.WeatherPoint{}, weather.MissingField(p.name, "current")
	}
	if c.Time == nil {
		return weather.WeatherPoint{}, weather.MissingField(p.name, "current.time")
	}
	if c.Temperature == nil {
		return weather.WeatherPoint{}, weather.MissingField(p.name, "current.temperature_2m")
	}

	return p.buildPoint("current", payload.CurrentUnits, zone, *c.Time, *c.Temperature,
		c.WeatherCode, c.WindSpeed, c.WindDirection, c.Humidity, c.Precipitation)
}

func (p *OpenMeteoProvider) normalizeHourly(payload openMeteoPayload, zone *time.Location) ([]weather.WeatherPoint, error) {
	h := payload.Hourly
	if h == nil {
		return nil, weather.MissingField(p.name, "hourly")
	}
	if len(h.Time) == 0 {
		return nil, weather.MissingField(p.name, "hourly.time")
	}
	if h.Temperature == nil {
		return nil, weather.MissingField(p.name, "hourly.temperature_2m")
	}

	n := len(h.Time)
	if len(h.Temperature) != n {
		return nil, weather.Malformed(p.name, "hourly.temperature_2m has %d values for %d timestamps", len(h.Temperature), n)
	}
	lengths := map[string]int{
		"relative_humidity_2m": len(h.Humidity),
		"precipitation":        len(h.Precipitation),
		"weather_code":         len(h.WeatherCode),
		"wind_speed_10m":       len(h.WindSpeed),
		"wind_direction_10m":   len(h.WindDirection),
	}
	for field, l := range lengths {
		// Absent optional series decode as nil and report length 0.
		if l != 0 && l != n {
			return nil, weather.Malformed(p.name, "hourly.%s has %d values for %d timestamps", field, l, n)
		}
	}

	points := make([]weather.WeatherPoint, 0, n)
	for i, ts := range h.Time {
		if h.Temperature[i] == nil {
			return nil, weather.MissingField(p.name, fmt.Sprintf("hourly.temperature_2m[%d]", i))
		}

		pt, err := p.buildPoint("hourly", payload.HourlyUnits, zone, ts, *h.Temperature[i],
			intAt(h.WeatherCode, i), floatAt(h.WindSpeed, i), floatAt(h.WindDirection, i),
			floatAt(h.Humidity, i), floatAt(h.Precipitation, i))
		if err != nil {
			return nil, err
		}
		points = append(points, pt)
	}

	return points, nil
}

func (p *OpenMeteoProvider) buildPoint(
	section string,
	units map[string]string,
	zone *time.Location,
	ts string,
	temperature float64,
	code *int,
	windSpeed, windDirection, humidity, precipitation *float64,
) (weather.WeatherPoint, error) {
	t, err := time.ParseInLocation(openMeteoLocalTime, ts, zone)
	if err != nil {
		return weather.WeatherPoint{}, weather.Malformed(p.name, "%s.time %q: %v", section, ts, err)
	}

	temp, err := weather.ToCelsius(temperature, units["temperature_2m"])
	if err != nil {
		return weather.WeatherPoint{}, weather.Malformed(p.name, "%s.temperature_2m: %v", section, err)
	}
	wind, err := convertOptional(windSpeed, units["wind_speed_10m"], weather.ToMetersPerSecond)
	if err != nil {
		return weather.WeatherPoint{}, weather.Malformed(p.name, "%s.wind_speed_10m: %v", section, err)
	}
	precip, err := convertOptional(precipitation, units["precipitation"], weather.ToMillimeters)
	if err != nil {
		return weather.WeatherPoint{}, weather.Malformed(p.name, "%s.precipitation: %v", section, err)
	}

	cond := weather.ConditionUnknown
	if code != nil {
		cond = mapOpenMeteoCondition(*code)
	}

	return weather.WeatherPoint{
		Timestamp:        t,
		TemperatureC:     temp,
		Condition:        cond,
		WindSpeedMS:      wind,
		WindDirectionDeg: copyFloat(windDirection),
		HumidityPct:      copyFloat(humidity),
		PrecipitationMM:  precip,
	}, nil
}

// mapOpenMeteoCondition maps WMO weather interpretation codes.
func mapOpenMeteoCondition(code int) weather.Condition {
	switch {
	case code == 0 || code == 1:
		return weather.ConditionClear
	case code == 2 || code == 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95 && code <= 99:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func convertOptional(v *float64, unit string, conv func(float64, string) (float64, error)) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	out, err := conv(*v, unit)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return weather.Float(*v)
}

func floatAt(vs []*float64, i int) *float64 {
	if i >= len(vs) {
		return nil
	}
	return vs[i]
}

func intAt(vs []*int, i int) *int {
	if i >= len(vs) {
		return nil
	}
	return vs[i]
}
