package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-cli/internal/weather"
)

const defaultMetNoUserAgent = "weather-cli github.com/i474232898/weather-cli"

// MetNoProvider implements the weather.Provider interface for the MET Norway
// Locationforecast 2.0 API. The terms of service require an identifying
// User-Agent and at most four decimals in coordinates.
type MetNoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewMetNoProvider(cfg HTTPClientConfig) *MetNoProvider {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultMetNoUserAgent
	}

	return &MetNoProvider{
		name:    MetNoName,
		baseURL: "https://api.met.no/weatherapi/locationforecast/2.0/compact",
		httpCfg: cfg,
		circuit: newCircuitBreaker(MetNoName, cfg.logger()),
		now:     time.Now,
	}
}

func (p *MetNoProvider) Name() string {
	return p.name
}

func (p *MetNoProvider) Capabilities() weather.CapabilityDescriptor {
	return Describe(p.name)
}

func (p *MetNoProvider) Fetch(ctx context.Context, coords weather.Coordinates, spec weather.TimeSpec, kind weather.DataKind) (weather.RawResponse, error) {
	now := p.now()

	values := url.Values{}
	values.Set("lat", formatMetNoCoordinate(coords.Latitude))
	values.Set("lon", formatMetNoCoordinate(coords.Longitude))

	body, err := doRequest(ctx, p.name, p.httpCfg, p.circuit, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
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

func formatMetNoCoordinate(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

type metNoPayload struct {
	Properties *struct {
		Meta struct {
			Units map[string]string `json:"units"`
		} `json:"meta"`
		Timeseries []metNoStep `json:"timeseries"`
	} `json:"properties"`
}

type metNoStep struct {
	Time *string `json:"time"`
	Data struct {
		Instant struct {
			Details struct {
				AirTemperature    *float64 `json:"air_temperature"`
				RelativeHumidity  *float64 `json:"relative_humidity"`
				WindSpeed         *float64 `json:"wind_speed"`
				WindFromDirection *float64 `json:"wind_from_direction"`
			} `json:"details"`
		} `json:"instant"`
		Next1Hours *metNoPeriod `json:"next_1_hours"`
		Next6Hours *metNoPeriod `json:"next_6_hours"`
	} `json:"data"`
}

type metNoPeriod struct {
	Summary struct {
		SymbolCode string `json:"symbol_code"`
	} `json:"summary"`
	Details struct {
		PrecipitationAmount *float64 `json:"precipitation_amount"`
	} `json:"details"`
}

func (p *MetNoProvider) Normalize(raw weather.RawResponse, kind weather.DataKind) (weather.WeatherReport, error) {
	var payload metNoPayload
	if err := decodeStrict(p.name, raw.Body, &payload); err != nil {
		return weather.WeatherReport{}, err
	}
	if payload.Properties == nil {
		return weather.WeatherReport{}, weather.MissingField(p.name, "properties")
	}
	steps := payload.Properties.Timeseries
	if len(steps) == 0 {
		return weather.WeatherReport{}, weather.MissingField(p.name, "properties.timeseries")
	}

	times := make([]time.Time, len(steps))
	for i, s := range steps {
		if s.Time == nil {
			return weather.WeatherReport{}, weather.MissingField(p.name, fmt.Sprintf("properties.timeseries[%d].time", i))
		}
		t, err := time.Parse(time.RFC3339, *s.Time)
		if err != nil {
			return weather.WeatherReport{}, weather.Malformed(p.name, "properties.timeseries[%d].time %q: %v", i, *s.Time, err)
		}
		times[i] = t
	}

	var selected []int
	zone := time.UTC
	switch kind {
	case weather.KindCurrent:
		selected = []int{currentStep(times, raw.FetchedAt)}
	case weather.KindForecast:
		day, ok := raw.Spec.Instant()
		if !ok {
			return weather.WeatherReport{}, weather.Malformed(p.name, "forecast response without a requested date")
		}
		zone = day.Location()
		want := day.Format(time.DateOnly)
		for i, t := range times {
			if t.In(zone).Format(time.DateOnly) == want {
				selected = append(selected, i)
			}
		}
		if len(selected) == 0 {
			return weather.WeatherReport{}, weather.MissingField(p.name, fmt.Sprintf("properties.timeseries[%s]", want))
		}
	default:
		return weather.WeatherReport{}, weather.Malformed(p.name, "cannot normalize %s data", kind)
	}

	units := payload.Properties.Meta.Units
	points := make([]weather.WeatherPoint, 0, len(selected))
	for _, i := range selected {
		pt, err := p.buildPoint(i, steps[i], times[i].In(zone), units)
		if err != nil {
			return weather.WeatherReport{}, err
		}
		points = append(points, pt)
	}

	return weather.WeatherReport{
		Provider:    p.name,
		Coordinates: raw.Coordinates,
		Kind:        kind,
		Points:      points,
	}, nil
}

// currentStep picks the latest step not after at, or the earliest step if all are later.
func currentStep(times []time.Time, at time.Time) int {
	best, earliest := -1, 0
	for i, t := range times {
		if t.Before(times[earliest]) {
			earliest = i
		}
		if !t.After(at) && (best < 0 || t.After(times[best])) {
			best = i
		}
	}
	if best < 0 {
		return earliest
	}
	return best
}

func (p *MetNoProvider) buildPoint(i int, s metNoStep, ts time.Time, units map[string]string) (weather.WeatherPoint, error) {
	d := s.Data.Instant.Details
	if d.AirTemperature == nil {
		return weather.WeatherPoint{}, weather.MissingField(p.name, fmt.Sprintf("properties.timeseries[%d].data.instant.details.air_temperature", i))
	}

	temp, err := weather.ToCelsius(*d.AirTemperature, units["air_temperature"])
	if err != nil {
		return weather.WeatherPoint{}, weather.Malformed(p.name, "air_temperature: %v", err)
	}
	wind, err := convertOptional(d.WindSpeed, units["wind_speed"], weather.ToMetersPerSecond)
	if err != nil {
		return weather.WeatherPoint{}, weather.Malformed(p.name, "wind_speed: %v", err)
	}

	period := s.Data.Next1Hours
	if period == nil {
		period = s.Data.Next6Hours
	}

	cond := weather.ConditionUnknown
	var precip *float64
	if period != nil {
		cond = mapMetNoSymbol(period.Summary.SymbolCode)
		precip, err = convertOptional(period.Details.PrecipitationAmount, units["precipitation_amount"], weather.ToMillimeters)
		if err != nil {
			return weather.WeatherPoint{}, weather.Malformed(p.name, "precipitation_amount: %v", err)
		}
	}

	return weather.WeatherPoint{
		Timestamp:        ts,
		TemperatureC:     temp,
		Condition:        cond,
		WindSpeedMS:      wind,
		WindDirectionDeg: copyFloat(d.WindFromDirection),
		HumidityPct:      copyFloat(d.RelativeHumidity),
		PrecipitationMM:  precip,
	}, nil
}

// mapMetNoSymbol maps a MET symbol code such as "lightrainshowers_day".
func mapMetNoSymbol(code string) weather.Condition {
	if i := strings.IndexByte(code, '_'); i >= 0 {
		code = code[:i]
	}

	switch {
	case code == "":
		return weather.ConditionUnknown
	case strings.Contains(code, "thunder"):
		return weather.ConditionStorm
	case containsAny(code, "snow", "sleet"):
		return weather.ConditionSnow
	case strings.Contains(code, "rain"):
		return weather.ConditionRain
	case code == "fog":
		return weather.ConditionFog
	case code == "clearsky" || code == "fair":
		return weather.ConditionClear
	case code == "cloudy" || code == "partlycloudy":
		return weather.ConditionCloudy
	default:
		return weather.ConditionUnknown
	}
}
