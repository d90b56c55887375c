package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-cli/internal/weather"
	"github.com/i474232898/weather-cli/internal/when"
)

var validate = validator.New()

// Options configures the API handlers.
type Options struct {
	// DefaultProvider is used when the provider query parameter is omitted.
	DefaultProvider string
	// Now is the clock used to resolve relative dates; defaults to time.Now.
	Now func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	v1 := app.Group("/api/v1")

	v1.Get("/providers", func(c *fiber.Ctx) error {
		out := make([]providerResponse, 0, len(service.Providers()))
		for _, name := range service.Providers() {
			desc, err := service.Describe(name)
			if err != nil {
				return err
			}
			out = append(out, newProviderResponse(name, desc, name == weather.CanonicalName(opts.DefaultProvider)))
		}
		return c.JSON(fiber.Map{"providers": out})
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		var q weatherQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if q.Provider == "" {
			q.Provider = opts.DefaultProvider
		}

		spec, err := when.Parse(q.Date, opts.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := weather.Location{
			Label:       q.Label,
			Coordinates: weather.Coordinates{Latitude: *q.Lat, Longitude: *q.Lon},
		}

		report, err := service.GetWeather(c.UserContext(), q.Provider, loc, spec)
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"requestId": requestID(c),
			"report":    report,
		})
	})
}

// weatherQuery holds query parameters for the weather endpoint.
type weatherQuery struct {
	Provider string   `query:"provider"`
	Lat      *float64 `query:"lat" validate:"required,gte=-90,lte=90"`
	Lon      *float64 `query:"lon" validate:"required,gte=-180,lte=180"`
	Label    string   `query:"label" validate:"max=200"`
	Date     string   `query:"date"`
}

func (q *weatherQuery) bind(c *fiber.Ctx) error {
	if err := c.QueryParser(q); err != nil {
		return errors.New("lat and lon must be decimal degrees")
	}
	return validate.Struct(q)
}

type providerResponse struct {
	Name              string             `json:"name"`
	Supports          []weather.DataKind `json:"supports"`
	HistoricalAllowed bool               `json:"historicalAllowed"`
	MaxForecastDays   int                `json:"maxForecastDays"`
	HistoricalSince   string             `json:"historicalSince,omitempty"`
	Default           bool               `json:"default"`
}

func newProviderResponse(name string, d weather.CapabilityDescriptor, isDefault bool) providerResponse {
	r := providerResponse{
		Name:              name,
		Supports:          d.Supports,
		HistoricalAllowed: d.HistoricalAllowed,
		MaxForecastDays:   int(d.MaxForecastHorizon.Hours() / 24),
		Default:           isDefault,
	}
	if !d.HistoricalSince.IsZero() {
		r.HistoricalSince = d.HistoricalSince.Format(time.DateOnly)
	}
	return r
}

// errorResponse maps dispatcher errors onto HTTP statuses.
func errorResponse(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "internal"

	var (
		unknown *weather.UnknownProviderError
		capErr  *weather.CapabilityError
		trErr   *weather.TransportError
		normErr *weather.NormalizationError
	)
	switch {
	case errors.As(err, &unknown):
		status, code = fiber.StatusBadRequest, "unknown_provider"
	case errors.As(err, &capErr):
		status, code = fiber.StatusUnprocessableEntity, "unsupported"
		if errors.Is(err, weather.ErrDateOutOfRange) {
			code = "date_out_of_range"
		}
	case errors.As(err, &trErr):
		status, code = fiber.StatusBadGateway, "transport"
	case errors.As(err, &normErr):
		status, code = fiber.StatusBadGateway, "normalization"
	}

	return c.Status(status).JSON(fiber.Map{
		"error":     true,
		"code":      code,
		"message":   err.Error(),
		"requestId": requestID(c),
	})
}
