// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/formatter"
	"github.com/temirov/cabalfmt/internal/resolver"
	"github.com/temirov/cabalfmt/internal/services/clipboard"
	"github.com/temirov/cabalfmt/internal/utils"
)

const (
	configFlagName         = "config"
	binaryFlagName         = "binary"
	indentFlagName         = "indent"
	logLevelFlagName       = "log-level"
	versionFlagName        = "version"
	versionTemplate        = utils.ApplicationName + " version: %s\n"
	defaultLogLevel        = "info"
	rootUse                = utils.ApplicationName
	rootShortDescription   = "cabal-fmt for editors, scripts and watched workspaces"
	rootLongDescription    = `cabalfmt runs cabal-fmt on .cabal manifests.
It serves formatting to editors over the Language Server Protocol, formats single files,
rewrites manifests when Haskell sources change and exposes formatting over HTTP.
Configuration is read from ~/.cabalfmt/.cabalfmt.yaml, ./.cabalfmt.yaml and CABALFMT_* environment variables; flags override all of them.`
	configFlagDescription   = "configuration file to use instead of ./.cabalfmt.yaml"
	binaryFlagDescription   = "path to the cabal-fmt executable"
	indentFlagDescription   = "indentation width passed to cabal-fmt"
	logLevelFlagDescription = "minimum log level (debug, info, warn, error)"
	versionFlagDescription  = "display application version"

	invalidLogLevelMessageFormat = "invalid log level '%s': %w"
	workingDirectoryErrorFormat  = "unable to determine working directory: %w"
)

// Execute runs the cabalfmt application until ctx is cancelled or the command finishes.
func Execute(ctx context.Context) error {
	rootCommand := newRootCommand(newDefaultEnvironment())
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// environment carries the process-level collaborators commands depend on.
type environment struct {
	copier           clipboard.Copier
	resolver         formatter.BinaryResolver
	workingDirectory func() (string, error)
}

func newDefaultEnvironment() environment {
	return environment{
		copier:           clipboard.NewSystemClipboard(),
		resolver:         resolver.New(),
		workingDirectory: os.Getwd,
	}
}

// application holds the state shared by all subcommands of one invocation.
type application struct {
	environment    environment
	configFilePath string
	binaryPath     string
	indent         int
	logLevel       string
	logger         *zap.Logger
}

// newRootCommand builds the root Cobra command.
func newRootCommand(env environment) *cobra.Command {
	app := &application{environment: env, logger: zap.NewNop()}
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				return nil
			}
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				// --version short-circuits whichever subcommand was selected.
				command.RunE = func(*cobra.Command, []string) error { return nil }
				return nil
			}
			return app.initializeLogger()
		},
	}
	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&app.configFilePath, configFlagName, utils.EmptyString, configFlagDescription)
	persistentFlags.StringVar(&app.binaryPath, binaryFlagName, utils.EmptyString, binaryFlagDescription)
	persistentFlags.IntVar(&app.indent, indentFlagName, 0, indentFlagDescription)
	persistentFlags.StringVar(&app.logLevel, logLevelFlagName, defaultLogLevel, logLevelFlagDescription)
	registerBooleanFlag(persistentFlags, &showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.AddCommand(
		createServeCommand(app),
		createFormatCommand(app),
		createWatchCommand(app),
		createAPICommand(app),
		createInitCommand(app),
		createConfigCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func (app *application) initializeLogger() error {
	var level zapcore.Level
	if parseErr := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(app.logLevel)))); parseErr != nil {
		return fmt.Errorf(invalidLogLevelMessageFormat, app.logLevel, parseErr)
	}
	logger, loggerErr := utils.NewLeveledLogger(level)
	if loggerErr != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerErr)
	}
	app.logger = logger
	return nil
}

// overrides collects the configuration flags the user actually set.
func (app *application) overrides(command *cobra.Command) config.FormatterConfiguration {
	var overrides config.FormatterConfiguration
	flags := command.Flags()
	if flags.Changed(binaryFlagName) {
		overrides.BinaryPath = config.StringValue(app.binaryPath)
	}
	if flags.Changed(indentFlagName) {
		overrides.Indent = config.IntValue(app.indent)
	}
	return overrides
}

// configurationProvider re-reads files and the environment on every call and applies flag overrides.
func (app *application) configurationProvider(command *cobra.Command) (config.Provider, error) {
	workingDirectory, workingDirectoryErr := app.environment.workingDirectory()
	if workingDirectoryErr != nil {
		return nil, fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryErr)
	}
	provider := config.NewFileProvider(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: app.configFilePath,
	}, app.overrides(command))
	if _, loadErr := provider.Current(); loadErr != nil {
		return nil, loadErr
	}
	return provider, nil
}

func (app *application) formatterService(configuration config.Provider, notifier formatter.Notifier) *formatter.Service {
	return formatter.NewService(formatter.Dependencies{
		Configuration: configuration,
		Resolver:      app.environment.resolver,
		Notifier:      notifier,
		Logger:        app.logger,
	})
}

// stdioStream joins a reader and a writer into the stream the language server speaks over.
type stdioStream struct {
	io.Reader
	io.Writer
}

func (stream stdioStream) Close() error {
	var closeErr error
	if closer, closable := stream.Reader.(io.Closer); closable {
		closeErr = closer.Close()
	}
	if closer, closable := stream.Writer.(io.Closer); closable {
		if writerErr := closer.Close(); writerErr != nil && closeErr == nil {
			closeErr = writerErr
		}
	}
	return closeErr
}
