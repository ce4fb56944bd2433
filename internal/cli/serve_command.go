package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/lsp"
	"github.com/temirov/cabalfmt/internal/utils"
	"github.com/temirov/cabalfmt/internal/watcher"
)

const (
	serveUse              = "serve"
	serveShortDescription = "run the language server on standard input and output"
	serveLongDescription  = `Run a Language Server Protocol server speaking JSON-RPC over standard input and output.
The server formats .cabal documents on textDocument/formatting and, when auto_format is enabled,
rewrites manifests of eligible workspace folders when their Haskell sources change.
Editor settings under the "cabal-fmt" section (binaryPath, indent, autoFormat) override file configuration.`
	serveUsageExample = `  # Neovim
  vim.lsp.start({ name = "cabalfmt", cmd = { "cabalfmt", "serve" } })`
)

func createServeCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:     serveUse,
		Short:   serveShortDescription,
		Long:    serveLongDescription,
		Example: serveUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			fileConfiguration, providerErr := app.configurationProvider(command)
			if providerErr != nil {
				return providerErr
			}
			sessionConfiguration := config.NewSessionProvider(fileConfiguration)
			notifier := lsp.NewClientNotifier(app.logger)
			service := app.formatterService(sessionConfiguration, notifier)
			coordinator := watcher.NewCoordinator(command.Context(), watcher.Options{
				Formatter:     service,
				Configuration: sessionConfiguration,
				Notifier:      notifier,
				Logger:        app.logger,
				Debounce:      defaultWatchDebounce,
			})

			server := lsp.NewServer(lsp.Options{
				Formatter: service,
				Folders:   coordinator,
				Settings:  sessionConfiguration,
				Notifier:  notifier,
				Logger:    app.logger,
				Version:   utils.GetApplicationVersion(),
			})
			app.logger.Info("language server started", zap.String("version", utils.GetApplicationVersion()))
			return server.Serve(command.Context(), stdioStream{Reader: command.InOrStdin(), Writer: command.OutOrStdout()})
		},
	}
}
