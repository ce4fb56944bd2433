package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/temirov/cabalfmt/internal/formatter"
)

const (
	formatUse              = "format <file>"
	formatShortDescription = "format one .cabal file"
	formatLongDescription  = `Format a .cabal file with cabal-fmt and print the result.
Use --write to rewrite the file in place and --copy to also place the result on the clipboard.
Pass - to read the manifest from standard input.`
	formatUsageExample = `  # Print the formatted manifest
  cabalfmt format mypackage.cabal

  # Rewrite it with a four space indent
  cabalfmt format --write --indent 4 mypackage.cabal`

	writeFlagName        = "write"
	writeFlagDescription = "rewrite the file in place"
	copyFlagName         = "copy"
	copyFlagDescription  = "copy the formatted manifest to the clipboard"
	standardInputPath    = "-"

	writeStandardInputMessage  = "--write cannot be used when reading from standard input"
	readInputErrorFormat       = "read %s: %w"
	rewroteFileMessageFormat   = "rewrote %s\n"
	unchangedFileMessageFormat = "%s already formatted\n"
)

func createFormatCommand(app *application) *cobra.Command {
	var writeInPlace bool
	var copyToClipboard bool

	formatCommand := &cobra.Command{
		Use:     formatUse,
		Short:   formatShortDescription,
		Long:    formatLongDescription,
		Example: formatUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			configuration, providerErr := app.configurationProvider(command)
			if providerErr != nil {
				return providerErr
			}
			service := app.formatterService(configuration, formatter.NewLogNotifier(app.logger))
			target := arguments[0]

			if writeInPlace {
				if target == standardInputPath {
					return errors.New(writeStandardInputMessage)
				}
				changed, formatErr := service.FormatFile(command.Context(), target)
				if formatErr != nil {
					return formatErr
				}
				if changed {
					fmt.Fprintf(command.ErrOrStderr(), rewroteFileMessageFormat, target)
				} else {
					fmt.Fprintf(command.ErrOrStderr(), unchangedFileMessageFormat, target)
				}
				if copyToClipboard {
					formatted, readErr := os.ReadFile(target)
					if readErr != nil {
						return fmt.Errorf(readInputErrorFormat, target, readErr)
					}
					return app.environment.copier.Copy(string(formatted))
				}
				return nil
			}

			document, documentErr := readDocument(command, target)
			if documentErr != nil {
				return documentErr
			}
			formatted, formatErr := service.Format(command.Context(), document)
			if formatErr != nil {
				return formatErr
			}
			if _, printErr := io.WriteString(command.OutOrStdout(), formatted); printErr != nil {
				return printErr
			}
			if copyToClipboard {
				return app.environment.copier.Copy(formatted)
			}
			return nil
		},
	}
	registerBooleanFlag(formatCommand.Flags(), &writeInPlace, writeFlagName, false, writeFlagDescription)
	registerBooleanFlag(formatCommand.Flags(), &copyToClipboard, copyFlagName, false, copyFlagDescription)
	return formatCommand
}

func readDocument(command *cobra.Command, target string) (formatter.Document, error) {
	if target == standardInputPath {
		content, readErr := io.ReadAll(command.InOrStdin())
		if readErr != nil {
			return formatter.Document{}, fmt.Errorf(readInputErrorFormat, "standard input", readErr)
		}
		return formatter.Document{Text: string(content)}, nil
	}
	content, readErr := os.ReadFile(target)
	if readErr != nil {
		return formatter.Document{}, fmt.Errorf(readInputErrorFormat, target, readErr)
	}
	return formatter.Document{Path: target, Text: string(content)}, nil
}
