package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/cabalfmt/internal/config"
)

const (
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write a commented default configuration to ./.cabalfmt.yaml,
or to ~/.cabalfmt/.cabalfmt.yaml with --global. Existing files are kept unless --force is given.`

	globalFlagName           = "global"
	globalFlagDescription    = "write the global configuration file"
	forceFlagName            = "force"
	forceFlagDescription     = "overwrite an existing configuration file"
	initializedMessageFormat = "wrote %s\n"
)

func createInitCommand(app *application) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			workingDirectory, workingDirectoryErr := app.environment.workingDirectory()
			if workingDirectoryErr != nil {
				return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryErr)
			}
			scope := config.ScopeProject
			if global {
				scope = config.ScopeUser
			}
			writtenPath, initErr := config.WriteTemplate(config.TemplateRequest{
				Scope:            scope,
				Overwrite:        force,
				ProjectDirectory: workingDirectory,
			})
			if initErr != nil {
				return initErr
			}
			fmt.Fprintf(command.OutOrStdout(), initializedMessageFormat, writtenPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}
