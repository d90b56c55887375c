package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/i474232898/weather-cli/internal/config"
	"github.com/i474232898/weather-cli/internal/geocode"
	"github.com/i474232898/weather-cli/internal/logger"
	"github.com/i474232898/weather-cli/internal/weather"
	"github.com/i474232898/weather-cli/internal/weather/providers"
)

// App holds everything the commands need.
type App struct {
	Config   *config.Config
	Service  *weather.Service
	Geocoder geocode.Geocoder
	Log      logger.Logger
	Out      io.Writer
	ErrOut   io.Writer
	Now      func() time.Time
	Version  string
}

// Bootstrap loads configuration and wires logger, providers, service and geocoder.
func Bootstrap(version string) (*App, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir, version)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	// Shared HTTP client for outbound provider and geocoder calls.
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	provs := providers.Default(providers.HTTPClientConfig{
		Client:    client,
		UserAgent: cfg.UserAgent,
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.HTTPRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		Logger: log,
	})
	service := weather.NewService(provs, weather.WithLogger(log))

	geo, err := geocode.New(geocode.Options{
		Backend:      cfg.Geocoder,
		GoogleAPIKey: cfg.GoogleAPIKey,
		NominatimURL: cfg.NominatimURL,
		UserAgent:    cfg.UserAgent,
		Client:       client,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"version":  version,
		"provider": cfg.Provider,
		"config":   cfg.Path,
	}).Debug("bootstrapped")

	return &App{
		Config:   cfg,
		Service:  service,
		Geocoder: geo,
		Log:      log,
		Out:      os.Stdout,
		ErrOut:   os.Stderr,
		Now:      time.Now,
		Version:  version,
	}, nil
}
