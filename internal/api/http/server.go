package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/i474232898/weather-cli/internal/logger"
	"github.com/i474232898/weather-cli/internal/weather"
)

const requestIDKey = "request_id"

// NewApp builds the Fiber app serving the weather API.
func NewApp(service *weather.Service, opts Options, log logger.Logger) *fiber.App {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithField("component", "http")

	app := fiber.New(fiber.Config{
		AppName:               "weather-cli",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":     true,
				"message":   err.Error(),
				"requestId": requestID(c),
			})
		},
	})

	app.Use(requestIDMiddleware())
	app.Use(loggingMiddleware(log))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "weather-cli",
			"providers": service.Providers(),
		})
	})

	RegisterRoutes(app, service, opts)
	return app
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(fiber.HeaderXRequestID, id)
		return c.Next()
	}
}

func loggingMiddleware(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		entry := log.WithFields(map[string]interface{}{
			"request_id": requestID(c),
			"status":     status,
			"latency":    time.Since(start).String(),
		})
		if status >= fiber.StatusInternalServerError {
			entry.Warnf("%s %s", c.Method(), c.OriginalURL())
		} else {
			entry.Infof("%s %s", c.Method(), c.OriginalURL())
		}
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
