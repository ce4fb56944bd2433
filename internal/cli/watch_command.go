package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/formatter"
	"github.com/temirov/cabalfmt/internal/watcher"
)

const (
	watchUse              = "watch [folders...]"
	watchShortDescription = "rewrite manifests when Haskell sources change"
	watchLongDescription  = `Watch workspace folders and run cabal-fmt on every .cabal manifest above a changed
Haskell source. Folders without a manifest, or with an hpack package.yaml, are skipped.
auto_format is forced on for this command. Runs until interrupted.`
	watchUsageExample = `  # Watch the current project
  cabalfmt watch

  # Watch two packages with a longer debounce
  cabalfmt watch --debounce 1s ./core ./server`

	debounceFlagName        = "debounce"
	debounceFlagDescription = "wait this long after the last change before formatting"
	defaultWatchDebounce    = 200 * time.Millisecond
	defaultWatchFolder      = "."

	noEligibleFoldersMessage = "no folder to watch: each needs a .cabal manifest and no package.yaml"
	watchingMessageFormat    = "watching %d folder(s), press Ctrl+C to stop\n"
)

func createWatchCommand(app *application) *cobra.Command {
	var debounce time.Duration

	watchCommand := &cobra.Command{
		Use:     watchUse,
		Short:   watchShortDescription,
		Long:    watchLongDescription,
		Example: watchUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			fileConfiguration, providerErr := app.configurationProvider(command)
			if providerErr != nil {
				return providerErr
			}
			forcedConfiguration := config.ProviderFunc(func() (config.FormatterConfiguration, error) {
				current, currentErr := fileConfiguration.Current()
				if currentErr != nil {
					return config.FormatterConfiguration{}, currentErr
				}
				return current.Merge(config.FormatterConfiguration{AutoFormat: config.BoolValue(true)}), nil
			})
			notifier := formatter.NewLogNotifier(app.logger)
			coordinator := watcher.NewCoordinator(command.Context(), watcher.Options{
				Formatter:     app.formatterService(forcedConfiguration, notifier),
				Configuration: forcedConfiguration,
				Notifier:      notifier,
				Logger:        app.logger,
				Debounce:      debounce,
			})

			folders := arguments
			if len(folders) == 0 {
				folders = []string{defaultWatchFolder}
			}
			var addErrors error
			for _, folder := range folders {
				if addErr := coordinator.Add(folder); addErr != nil {
					addErrors = multierr.Append(addErrors, addErr)
				} else if !coordinator.Watching(folder) {
					app.logger.Warn("skipping folder", zap.String("folder", folder))
				}
			}
			if addErrors != nil {
				return multierr.Append(addErrors, coordinator.Close())
			}
			if coordinator.ActiveWatches() == 0 {
				return multierr.Append(errors.New(noEligibleFoldersMessage), coordinator.Close())
			}

			fmt.Fprintf(command.ErrOrStderr(), watchingMessageFormat, coordinator.ActiveWatches())
			<-command.Context().Done()
			return coordinator.Close()
		},
	}
	watchCommand.Flags().DurationVar(&debounce, debounceFlagName, defaultWatchDebounce, debounceFlagDescription)
	return watchCommand
}
