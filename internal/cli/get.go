package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-cli/internal/geocode"
	"github.com/i474232898/weather-cli/internal/render"
	"github.com/i474232898/weather-cli/internal/weather"
	"github.com/i474232898/weather-cli/internal/when"
)

func newGetCmd(app *App) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "get <address> [date]",
		Short: "Show the weather for an address or \"lat,lon\"",
		Long: `Show the weather for an address or "lat,lon" coordinates.

The date defaults to "now" (current conditions). A future date shows the
hourly forecast for that day, a past date the historical record.`,
		Example: `  weather get "Groningen, Netherlands"
  weather get 53.22,6.56 2023-02-24 --provider open-meteo
  weather get Oslo tomorrow -p met-no --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := "now"
			if len(args) == 2 {
				date = args[1]
			}

			report, err := fetch(cmd.Context(), app, provider, args[0], date)
			if err != nil {
				return err
			}

			if ok, err := tryJSON(cmd, report); ok {
				return err
			}
			return render.New(cmd.OutOrStdout()).Report(report)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Weather provider (defaults to the configured one)")
	return cmd
}

// fetch resolves provider, date and location, then asks the service.
// The provider name is checked first so a typo fails before any network call.
func fetch(ctx context.Context, app *App, provider, address, date string) (weather.WeatherReport, error) {
	if provider == "" {
		provider = app.Config.Provider
	}
	if _, err := app.Service.Describe(provider); err != nil {
		return weather.WeatherReport{}, err
	}

	spec, err := when.Parse(date, app.Now())
	if err != nil {
		return weather.WeatherReport{}, err
	}

	loc, err := geocode.Resolve(ctx, app.Geocoder, address)
	if err != nil {
		return weather.WeatherReport{}, err
	}

	return app.Service.GetWeather(ctx, provider, loc, spec)
}
