package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-cli/internal/geocode"
	"github.com/i474232898/weather-cli/internal/render"
	"github.com/i474232898/weather-cli/internal/weather"
	"github.com/i474232898/weather-cli/internal/when"
)

// Exit codes, one per error family.
const (
	exitOK = iota
	exitGeneric
	exitUnknownProvider
	exitCapability
	exitTransport
	exitNormalization
	exitLocation
)

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "weather",
		Short:         "Current, forecast and historical weather from public providers",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("json", false, "Output in JSON format")

	root.AddCommand(newGetCmd(app))
	root.AddCommand(newConfigureCmd(app))
	root.AddCommand(newProvidersCmd(app))
	root.AddCommand(newWatchCmd(app))
	root.AddCommand(newServeCmd(app))
	root.AddCommand(newVersionCmd(app))

	root.SetOut(app.Out)
	root.SetErr(app.ErrOut)
	return root
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, app *App, args []string) int {
	root := NewRootCmd(app)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	headline, hint, code := explain(app, err)
	render.New(app.ErrOut).Error(headline, hint)
	app.Log.WithField("exit_code", code).Errorf("command failed: %v", err)
	return code
}

// explain turns an error into a message, a hint and an exit code.
func explain(app *App, err error) (string, string, int) {
	var (
		unknown *weather.UnknownProviderError
		capErr  *weather.CapabilityError
		trErr   *weather.TransportError
		normErr *weather.NormalizationError
	)

	switch {
	case errors.As(err, &unknown):
		return err.Error(), "run `weather providers` to list them", exitUnknownProvider

	case errors.As(err, &capErr):
		hint := ""
		if alts := alternatives(app, capErr); len(alts) > 0 {
			hint = fmt.Sprintf("try --provider %s", strings.Join(alts, " or --provider "))
		}
		return err.Error(), hint, exitCapability

	case errors.As(err, &trErr):
		hint := "check your network connection and try again"
		if trErr.StatusCode == 429 {
			hint = "the provider is rate limiting requests, wait a moment"
		}
		return err.Error(), hint, exitTransport

	case errors.As(err, &normErr):
		return err.Error(), "the provider answered in an unexpected format; run with WEATHER_LOG_LEVEL=debug for details", exitNormalization

	case errors.Is(err, geocode.ErrNotFound), errors.Is(err, geocode.ErrInvalidCoordinates):
		return err.Error(), "pass a place name or coordinates as \"lat,lon\"", exitLocation

	case errors.Is(err, when.ErrUnparseable):
		return err.Error(), "use \"now\", \"tomorrow\" or a date such as 2023-02-24", exitGeneric

	default:
		return err.Error(), "", exitGeneric
	}
}

// alternatives lists other providers that can serve the rejected request.
func alternatives(app *App, capErr *weather.CapabilityError) []string {
	var out []string
	for _, name := range app.Service.Providers() {
		if name == capErr.Provider {
			continue
		}
		desc, err := app.Service.Describe(name)
		if err != nil || !desc.Has(capErr.Kind) {
			continue
		}
		if capErr.Kind == weather.KindHistorical && !desc.HistoricalSince.IsZero() &&
			!capErr.Requested.IsZero() && capErr.Requested.Before(desc.HistoricalSince) {
			continue
		}
		if capErr.Kind == weather.KindForecast && capErr.Requested.Sub(app.Now()) > desc.MaxForecastHorizon {
			continue
		}
		out = append(out, name)
	}
	return out
}

func tryJSON(cmd *cobra.Command, v interface{}) (bool, error) {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	if !jsonFlag {
		return false, nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return true, err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return true, err
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "weather-cli %s\n", app.Version)
		},
	}
}
