package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/weather-cli/internal/cli"
	"github.com/i474232898/weather-cli/internal/render"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	app, err := cli.Bootstrap(version)
	if err != nil {
		render.New(os.Stderr).Error("failed to start: "+err.Error(), "check the config file and WEATHER_* environment variables")
		stop()
		os.Exit(1)
	}

	code := cli.Run(ctx, app, os.Args[1:])
	stop()
	os.Exit(code)
}
