package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/cabalfmt/internal/formatter"
	"github.com/temirov/cabalfmt/internal/services/api"
)

const (
	apiUse              = "api"
	apiShortDescription = "serve formatting over HTTP"
	apiLongDescription  = `Run an HTTP server exposing cabal-fmt.
GET /capabilities lists the commands. POST /commands/format accepts {"path": "...", "text": "..."}
and answers {"output": "..."}; failures reported by cabal-fmt answer 422.`
	apiUsageExample = `  cabalfmt api --address 127.0.0.1:7357
  curl -s -d '{"text": "name: foo\nversion: 0.1\n"}' http://127.0.0.1:7357/commands/format`

	addressFlagName           = "address"
	addressFlagDescription    = "listen address"
	defaultAPIAddress         = "127.0.0.1:7357"
	apiListeningMessageFormat = "cabalfmt api listening on %s\n"
)

func createAPICommand(app *application) *cobra.Command {
	var address string

	apiCommand := &cobra.Command{
		Use:     apiUse,
		Short:   apiShortDescription,
		Long:    apiLongDescription,
		Example: apiUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			configuration, providerErr := app.configurationProvider(command)
			if providerErr != nil {
				return providerErr
			}
			service := app.formatterService(configuration, formatter.NewLogNotifier(app.logger))
			server := api.NewServer(api.Config{
				Address:      address,
				Capabilities: []api.Capability{api.FormatCapability()},
				Executors: map[string]api.CommandExecutor{
					api.FormatCommandName: api.NewFormatExecutor(service),
				},
				Logger: app.logger,
			})
			return server.Run(command.Context(), func(boundAddress string) {
				fmt.Fprintf(command.OutOrStdout(), apiListeningMessageFormat, boundAddress)
			})
		},
	}
	apiCommand.Flags().StringVar(&address, addressFlagName, defaultAPIAddress, addressFlagDescription)
	return apiCommand
}
