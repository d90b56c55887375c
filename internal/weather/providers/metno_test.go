package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-cli/internal/weather"
)

const metNoFixture = `{
  "type": "Feature",
  "geometry": {"type": "Point", "coordinates": [6.56, 53.22, 2]},
  "properties": {
    "meta": {
      "updated_at": "2024-06-15T11:30:00Z",
      "units": {"air_temperature": "celsius", "precipitation_amount": "mm", "relative_humidity": "%", "wind_from_direction": "degrees", "wind_speed": "m/s"}
    },
    "timeseries": [
      {"time": "2024-06-15T13:00:00Z", "data": {"instant": {"details": {"air_temperature": 17.9, "wind_speed": 4.1}}, "next_1_hours": {"summary": {"symbol_code": "rain"}, "details": {"precipitation_amount": 0.8}}}},
      {"time": "2024-06-15T11:00:00Z", "data": {"instant": {"details": {"air_temperature": 16.2, "wind_speed": 3.0}}, "next_1_hours": {"summary": {"symbol_code": "clearsky_day"}, "details": {"precipitation_amount": 0}}}},
      {"time": "2024-06-15T12:00:00Z", "data": {"instant": {"details": {"air_temperature": 17.1, "relative_humidity": 71.5, "wind_speed": 3.4, "wind_from_direction": 225}}, "next_1_hours": {"summary": {"symbol_code": "partlycloudy_day"}, "details": {"precipitation_amount": 0.1}}}},
      {"time": "2024-06-19T23:00:00Z", "data": {"instant": {"details": {"air_temperature": 12.0}}, "next_6_hours": {"summary": {"symbol_code": "fog"}, "details": {"precipitation_amount": 0}}}},
      {"time": "2024-06-20T06:00:00Z", "data": {"instant": {"details": {"air_temperature": 14.5}}, "next_6_hours": {"summary": {"symbol_code": "heavysnowshowers_night"}, "details": {"precipitation_amount": 2.5}}}},
      {"time": "2024-06-20T00:00:00Z", "data": {"instant": {"details": {"air_temperature": 11.0}}, "next_6_hours": {"summary": {"symbol_code": "lightrainandthunder"}, "details": {"precipitation_amount": 1.2}}}},
      {"time": "2024-06-21T00:00:00Z", "data": {"instant": {"details": {"air_temperature": 10.0}}}}
    ]
  }
}`

func newTestMetNo(baseURL string, cfg HTTPClientConfig) *MetNoProvider {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 5 * time.Second}
	}
	p := NewMetNoProvider(cfg)
	p.baseURL = baseURL + "/weatherapi/locationforecast/2.0/compact"
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestMetNo_HistoricalRejectedWithoutRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(metNoFixture))
	}))
	defer srv.Close()

	svc := newTestService(newTestMetNo(srv.URL, HTTPClientConfig{}))
	_, err := svc.GetWeather(context.Background(), "met-no", groningen,
		weather.At(time.Date(2023, 2, 24, 0, 0, 0, 0, time.UTC)))

	var ce *weather.CapabilityError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, weather.ErrUnsupported)
	assert.Equal(t, weather.KindHistorical, ce.Kind)
	assert.Equal(t, "met-no", ce.Provider)
	assert.Zero(t, atomic.LoadInt32(&hits), "no request may be issued")
}

func TestMetNo_CurrentPicksLatestStepNotAfterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weatherapi/locationforecast/2.0/compact", r.URL.Path)
		assert.Equal(t, "weather-cli github.com/i474232898/weather-cli", r.Header.Get("User-Agent"))
		assert.Equal(t, "53.2235", r.URL.Query().Get("lat"))
		assert.Equal(t, "6.56", r.URL.Query().Get("lon"))
		w.Write([]byte(metNoFixture))
	}))
	defer srv.Close()

	loc := weather.Location{Coordinates: weather.Coordinates{Latitude: 53.223512, Longitude: 6.56}}
	svc := newTestService(newTestMetNo(srv.URL, HTTPClientConfig{}))

	report, err := svc.GetWeather(context.Background(), "met_no", loc, weather.Now())
	require.NoError(t, err)

	assert.Equal(t, "met-no", report.Provider)
	assert.Equal(t, weather.KindCurrent, report.Kind)
	assert.Equal(t, "53.2235,6.5600", report.LocationLabel)
	require.Len(t, report.Points, 1)

	pt := report.Points[0]
	assert.True(t, pt.Timestamp.Equal(fixedNow))
	assert.Equal(t, 17.1, pt.TemperatureC)
	assert.Equal(t, weather.ConditionCloudy, pt.Condition)
	require.NotNil(t, pt.HumidityPct)
	assert.Equal(t, 71.5, *pt.HumidityPct)
	require.NotNil(t, pt.WindDirectionDeg)
	assert.Equal(t, 225.0, *pt.WindDirectionDeg)
	require.NotNil(t, pt.PrecipitationMM)
	assert.Equal(t, 0.1, *pt.PrecipitationMM)
}

func TestMetNo_CustomUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme-weather/2.0 ops@example.com", r.Header.Get("User-Agent"))
		w.Write([]byte(metNoFixture))
	}))
	defer srv.Close()

	p := newTestMetNo(srv.URL, HTTPClientConfig{UserAgent: "acme-weather/2.0 ops@example.com"})
	_, err := p.Fetch(context.Background(), groningen.Coordinates, weather.Now(), weather.KindCurrent)
	require.NoError(t, err)
}

func TestMetNo_ForecastKeepsRequestedDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(metNoFixture))
	}))
	defer srv.Close()

	svc := newTestService(newTestMetNo(srv.URL, HTTPClientConfig{}))
	report, err := svc.GetWeather(context.Background(), "met-no", groningen,
		weather.At(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	assert.Equal(t, weather.KindForecast, report.Kind)
	require.Len(t, report.Points, 2)
	assert.Equal(t, 11.0, report.Points[0].TemperatureC)
	assert.Equal(t, weather.ConditionStorm, report.Points[0].Condition)
	assert.Equal(t, 14.5, report.Points[1].TemperatureC)
	assert.Equal(t, weather.ConditionSnow, report.Points[1].Condition)
	for _, pt := range report.Points {
		assert.Equal(t, "2024-06-20", pt.Timestamp.Format(time.DateOnly))
		assert.Nil(t, pt.WindSpeedMS)
	}
}

func TestMetNo_ForecastUsesRequestedZone(t *testing.T) {
	p := newTestMetNo("http://unused", HTTPClientConfig{})
	// 2024-06-19T23:00Z is already June 20 at UTC+2.
	zone := time.FixedZone("CEST", 2*3600)
	raw := weather.RawResponse{
		Body: []byte(metNoFixture),
		Spec: weather.At(time.Date(2024, 6, 20, 0, 0, 0, 0, zone)),
	}

	report, err := p.Normalize(raw, weather.KindForecast)
	require.NoError(t, err)
	require.Len(t, report.Points, 3)
	assert.Equal(t, weather.ConditionFog, report.Points[0].Condition)
}

func TestMetNo_ForecastDayAbsent(t *testing.T) {
	p := newTestMetNo("http://unused", HTTPClientConfig{})
	raw := weather.RawResponse{
		Body: []byte(metNoFixture),
		Spec: weather.At(time.Date(2024, 6, 23, 0, 0, 0, 0, time.UTC)),
	}

	_, err := p.Normalize(raw, weather.KindForecast)
	var ne *weather.NormalizationError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, weather.ErrMissingField)
	assert.Equal(t, "properties.timeseries[2024-06-23]", ne.Field)
}

func TestMetNo_NormalizeMissingFields(t *testing.T) {
	p := newTestMetNo("http://unused", HTTPClientConfig{})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"no properties", `{"type":"Feature"}`, "properties"},
		{"empty timeseries", `{"properties":{"timeseries":[]}}`, "properties.timeseries"},
		{"no time", `{"properties":{"timeseries":[{"data":{"instant":{"details":{"air_temperature":1}}}}]}}`, "properties.timeseries[0].time"},
		{"no temperature", `{"properties":{"timeseries":[{"time":"2024-06-15T12:00:00Z","data":{"instant":{"details":{}}}}]}}`, "properties.timeseries[0].data.instant.details.air_temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := weather.RawResponse{Body: []byte(tt.body), FetchedAt: fixedNow}
			_, err := p.Normalize(raw, weather.KindCurrent)

			var ne *weather.NormalizationError
			require.ErrorAs(t, err, &ne)
			assert.ErrorIs(t, err, weather.ErrMissingField)
			assert.Equal(t, tt.field, ne.Field)
		})
	}
}

func TestMetNo_NormalizeMalformed(t *testing.T) {
	p := newTestMetNo("http://unused", HTTPClientConfig{})

	bodies := map[string]string{
		"not json":     `Too Many Requests`,
		"bad time":     `{"properties":{"timeseries":[{"time":"noon","data":{"instant":{"details":{"air_temperature":1}}}}]}}`,
		"unknown unit": `{"properties":{"meta":{"units":{"air_temperature":"rankine"}},"timeseries":[{"time":"2024-06-15T12:00:00Z","data":{"instant":{"details":{"air_temperature":1}}}}]}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := p.Normalize(weather.RawResponse{Body: []byte(body), FetchedAt: fixedNow}, weather.KindCurrent)
			assert.ErrorIs(t, err, weather.ErrMalformedPayload)
		})
	}
}

func TestMetNo_CurrentBeforeFirstStep(t *testing.T) {
	p := newTestMetNo("http://unused", HTTPClientConfig{})
	raw := weather.RawResponse{Body: []byte(metNoFixture), FetchedAt: fixedNow.Add(-24 * time.Hour)}

	report, err := p.Normalize(raw, weather.KindCurrent)
	require.NoError(t, err)
	require.Len(t, report.Points, 1)
	assert.Equal(t, 16.2, report.Points[0].TemperatureC)
}

func TestFormatMetNoCoordinate(t *testing.T) {
	assert.Equal(t, "53.22", formatMetNoCoordinate(53.22))
	assert.Equal(t, "6.56", formatMetNoCoordinate(6.56))
	assert.Equal(t, "59.9139", formatMetNoCoordinate(59.913868))
	assert.Equal(t, "-0.1278", formatMetNoCoordinate(-0.12776))
}

func TestMapMetNoSymbol(t *testing.T) {
	cases := map[string]weather.Condition{
		"clearsky_day":               weather.ConditionClear,
		"fair_night":                 weather.ConditionClear,
		"partlycloudy_polartwilight": weather.ConditionCloudy,
		"cloudy":                     weather.ConditionCloudy,
		"fog":                        weather.ConditionFog,
		"lightrainshowers_day":       weather.ConditionRain,
		"heavysleet":                 weather.ConditionSnow,
		"snowshowersandthunder_day":  weather.ConditionStorm,
		"heavyrainandthunder":        weather.ConditionStorm,
		"":                           weather.ConditionUnknown,
		"somethingnew_day":           weather.ConditionUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, mapMetNoSymbol(code), "symbol %q", code)
	}
}
