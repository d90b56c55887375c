package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
	name string
	desc CapabilityDescriptor
}

func (m *mockProvider) Name() string                       { return m.name }
func (m *mockProvider) Capabilities() CapabilityDescriptor { return m.desc }

func (m *mockProvider) Fetch(ctx context.Context, coords Coordinates, spec TimeSpec, kind DataKind) (RawResponse, error) {
	args := m.Called(ctx, coords, spec, kind)
	return args.Get(0).(RawResponse), args.Error(1)
}

func (m *mockProvider) Normalize(raw RawResponse, kind DataKind) (WeatherReport, error) {
	args := m.Called(raw, kind)
	if fn, ok := args.Get(0).(func(RawResponse, DataKind) WeatherReport); ok {
		return fn(raw, kind), args.Error(1)
	}
	return args.Get(0).(WeatherReport), args.Error(1)
}

var groningen = Location{Label: "Groningen", Coordinates: Coordinates{Latitude: 53.22, Longitude: 6.56}}

func newTestService(providers ...Provider) *Service {
	return NewService(providers, WithClock(func() time.Time { return testNow }))
}

func point(ts time.Time, temp float64) WeatherPoint {
	return WeatherPoint{Timestamp: ts, TemperatureC: temp, Condition: ConditionClear}
}

func TestGetWeather_UnknownProvider(t *testing.T) {
	p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
	svc := newTestService(p)

	_, err := svc.GetWeather(context.Background(), "unknown-xyz", groningen, Now())

	var upe *UnknownProviderError
	require.ErrorAs(t, err, &upe)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, "unknown-xyz", upe.Name)
	assert.Equal(t, []string{"open-meteo"}, upe.Available)
	p.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetWeather_CapabilityRejectionSkipsFetch(t *testing.T) {
	p := &mockProvider{name: "met-no", desc: forecastOnlyDescriptor()}
	svc := newTestService(p)

	spec := At(time.Date(2023, 2, 24, 0, 0, 0, 0, time.UTC))
	_, err := svc.GetWeather(context.Background(), "met-no", groningen, spec)

	var ce *CapabilityError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, KindHistorical, ce.Kind)
	assert.Equal(t, "met-no", ce.Provider)
	p.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	p.AssertNotCalled(t, "Normalize", mock.Anything, mock.Anything)
}

func TestGetWeather_BeyondHorizonSkipsFetch(t *testing.T) {
	p := &mockProvider{name: "met-no", desc: forecastOnlyDescriptor()}
	svc := newTestService(p)

	_, err := svc.GetWeather(context.Background(), "met-no", groningen, At(testNow.AddDate(0, 0, 30)))

	assert.ErrorIs(t, err, ErrDateOutOfRange)
	p.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetWeather_Success(t *testing.T) {
	p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
	svc := newTestService(p)

	day := time.Date(2023, 2, 24, 0, 0, 0, 0, time.UTC)
	spec := At(day)
	raw := RawResponse{Body: []byte(`{}`), Coordinates: groningen.Coordinates, Spec: spec, FetchedAt: testNow}

	p.On("Fetch", mock.Anything, groningen.Coordinates, spec, KindHistorical).Return(raw, nil).Once()
	p.On("Normalize", raw, KindHistorical).Return(WeatherReport{
		Points: []WeatherPoint{
			point(day.Add(2*time.Hour), 3),
			point(day, 1),
			point(day.Add(time.Hour), 2),
		},
	}, nil).Once()

	report, err := svc.GetWeather(context.Background(), "Open_Meteo", groningen, spec)
	require.NoError(t, err)

	assert.Equal(t, "open-meteo", report.Provider)
	assert.Equal(t, KindHistorical, report.Kind)
	assert.Equal(t, "Groningen", report.LocationLabel)
	assert.Equal(t, groningen.Coordinates, report.Coordinates)
	require.Len(t, report.Points, 3)
	for i := 1; i < len(report.Points); i++ {
		assert.True(t, report.Points[i-1].Timestamp.Before(report.Points[i].Timestamp))
	}
	p.AssertExpectations(t)
}

func TestGetWeather_LabelFallsBackToCoordinates(t *testing.T) {
	p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
	svc := newTestService(p)

	p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, KindCurrent).Return(RawResponse{}, nil)
	p.On("Normalize", mock.Anything, KindCurrent).Return(WeatherReport{Points: []WeatherPoint{point(testNow, 10)}}, nil)

	report, err := svc.GetWeather(context.Background(), "open-meteo", Location{Coordinates: groningen.Coordinates}, Now())
	require.NoError(t, err)
	assert.Equal(t, "53.2200,6.5600", report.LocationLabel)
}

func TestGetWeather_TransportErrors(t *testing.T) {
	t.Run("typed error passes through", func(t *testing.T) {
		p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
		svc := newTestService(p)
		p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(RawResponse{}, StatusError("open-meteo", 503, "busy"))

		_, err := svc.GetWeather(context.Background(), "open-meteo", groningen, Now())

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 503, te.StatusCode)
		assert.ErrorIs(t, err, ErrHTTPStatus)
		p.AssertNotCalled(t, "Normalize", mock.Anything, mock.Anything)
	})

	t.Run("untyped error becomes network error", func(t *testing.T) {
		p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
		svc := newTestService(p)
		p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(RawResponse{}, context.DeadlineExceeded)

		_, err := svc.GetWeather(context.Background(), "open-meteo", groningen, Now())

		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.Zero(t, te.StatusCode)
	})
}

func TestGetWeather_NormalizationErrors(t *testing.T) {
	t.Run("missing field", func(t *testing.T) {
		p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
		svc := newTestService(p)
		p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(RawResponse{}, nil)
		p.On("Normalize", mock.Anything, mock.Anything).Return(WeatherReport{}, MissingField("open-meteo", "current.temperature_2m"))

		_, err := svc.GetWeather(context.Background(), "open-meteo", groningen, Now())

		var ne *NormalizationError
		require.ErrorAs(t, err, &ne)
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Equal(t, "current.temperature_2m", ne.Field)
	})

	t.Run("untyped error becomes malformed", func(t *testing.T) {
		p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
		svc := newTestService(p)
		p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(RawResponse{}, nil)
		p.On("Normalize", mock.Anything, mock.Anything).Return(WeatherReport{}, errors.New("boom"))

		_, err := svc.GetWeather(context.Background(), "open-meteo", groningen, Now())
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("empty report", func(t *testing.T) {
		p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
		svc := newTestService(p)
		p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(RawResponse{}, nil)
		p.On("Normalize", mock.Anything, mock.Anything).Return(WeatherReport{}, nil)

		_, err := svc.GetWeather(context.Background(), "open-meteo", groningen, At(testNow.Add(time.Hour)))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("current with several points", func(t *testing.T) {
		p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
		svc := newTestService(p)
		p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(RawResponse{}, nil)
		p.On("Normalize", mock.Anything, mock.Anything).Return(WeatherReport{
			Points: []WeatherPoint{point(testNow, 1), point(testNow.Add(time.Hour), 2)},
		}, nil)

		_, err := svc.GetWeather(context.Background(), "open-meteo", groningen, Now())
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestGetWeather_Idempotent(t *testing.T) {
	p := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
	svc := newTestService(p)

	spec := At(testNow.Add(48 * time.Hour))
	p.On("Fetch", mock.Anything, mock.Anything, mock.Anything, KindForecast).Return(RawResponse{}, nil)
	p.On("Normalize", mock.Anything, KindForecast).Return(func(RawResponse, DataKind) WeatherReport {
		return WeatherReport{Points: []WeatherPoint{
			{Timestamp: testNow.Add(49 * time.Hour), TemperatureC: 4, Condition: ConditionRain, PrecipitationMM: Float(1.2)},
			{Timestamp: testNow.Add(48 * time.Hour), TemperatureC: 3, Condition: ConditionCloudy},
		}}
	}, nil)

	first, err := svc.GetWeather(context.Background(), "open-meteo", groningen, spec)
	require.NoError(t, err)
	second, err := svc.GetWeather(context.Background(), "open-meteo", groningen, spec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Nil(t, first.Points[0].PrecipitationMM)
	assert.NotNil(t, first.Points[1].PrecipitationMM)
}

func TestServiceRegistry(t *testing.T) {
	a := &mockProvider{name: "open-meteo", desc: fullDescriptor()}
	b := &mockProvider{name: "met-no", desc: forecastOnlyDescriptor()}
	dup := &mockProvider{name: "OPEN_METEO"}

	svc := newTestService(a, b, dup)
	assert.Equal(t, []string{"open-meteo", "met-no"}, svc.Providers())

	desc, err := svc.Describe("met_no")
	require.NoError(t, err)
	assert.False(t, desc.Has(KindHistorical))

	_, err = svc.Describe("nope")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
