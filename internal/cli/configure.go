package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-cli/internal/render"
	"github.com/i474232898/weather-cli/internal/weather"
)

func newConfigureCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "configure <provider>",
		Short: "Set the default weather provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Service.Describe(args[0]); err != nil {
				return err
			}

			name := weather.CanonicalName(args[0])
			if err := app.Config.SaveProvider(name); err != nil {
				return err
			}

			render.New(cmd.OutOrStdout()).Success(fmt.Sprintf("default provider set to %s", name))
			return nil
		},
	}
}

func newProvidersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers and what they can serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def := weather.CanonicalName(app.Config.Provider)

			var infos []render.ProviderInfo
			for _, name := range app.Service.Providers() {
				desc, err := app.Service.Describe(name)
				if err != nil {
					return err
				}
				infos = append(infos, render.ProviderInfo{Name: name, Capabilities: desc, Default: name == def})
			}

			if ok, err := tryJSON(cmd, infos); ok {
				return err
			}
			return render.New(cmd.OutOrStdout()).Providers(infos)
		},
	}
}
