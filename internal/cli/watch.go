package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-cli/internal/geocode"
	"github.com/i474232898/weather-cli/internal/render"
	"github.com/i474232898/weather-cli/internal/scheduler"
	"github.com/i474232898/weather-cli/internal/when"
)

func newWatchCmd(app *App) *cobra.Command {
	var (
		provider string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <address> [date]",
		Short: "Refresh the weather for an address periodically",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if provider == "" {
				provider = app.Config.Provider
			}
			if interval <= 0 {
				interval = app.Config.WatchInterval
			}
			if _, err := app.Service.Describe(provider); err != nil {
				return err
			}

			date := "now"
			if len(args) == 2 {
				date = args[1]
			}
			spec, err := when.Parse(date, app.Now())
			if err != nil {
				return err
			}
			loc, err := geocode.Resolve(ctx, app.Geocoder, args[0])
			if err != nil {
				return err
			}

			out := render.New(cmd.OutOrStdout())
			errOut := render.New(cmd.ErrOrStderr())

			sched := scheduler.New(interval, app.Config.HTTPTimeout*2, app.Log)
			err = sched.Start(ctx, func(ctx context.Context) error {
				report, err := app.Service.GetWeather(ctx, provider, loc, spec)
				if err != nil {
					headline, hint, _ := explain(app, err)
					errOut.Error(headline, hint)
					return err
				}
				if ok, err := tryJSON(cmd, report); ok {
					return err
				}
				return out.Report(report)
			})
			if err != nil {
				return err
			}
			defer sched.Stop()

			app.Log.Infof("watching %s every %s", loc.Key(), interval)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Weather provider (defaults to the configured one)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Refresh interval (defaults to watch_interval)")
	return cmd
}
