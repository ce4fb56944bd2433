package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	configUse              = "config"
	configShortDescription = "print the effective configuration"
	configLongDescription  = `Print the configuration after merging ~/.cabalfmt/.cabalfmt.yaml, ./.cabalfmt.yaml,
CABALFMT_* environment variables and flags, together with the cabal-fmt executable it resolves to.`
	encodeConfigurationErrorFormat = "encode configuration: %w"
)

// effectiveConfiguration is the YAML document printed by the config command.
type effectiveConfiguration struct {
	BinaryPath     string `yaml:"binary_path"`
	Indent         *int   `yaml:"indent,omitempty"`
	AutoFormat     bool   `yaml:"auto_format"`
	ResolvedBinary string `yaml:"resolved_binary,omitempty"`
	ResolveError   string `yaml:"resolve_error,omitempty"`
}

func createConfigCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
		Long:  configLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			provider, providerErr := app.configurationProvider(command)
			if providerErr != nil {
				return providerErr
			}
			configuration, loadErr := provider.Current()
			if loadErr != nil {
				return loadErr
			}
			effective := effectiveConfiguration{
				BinaryPath: configuration.OverridePath(),
				Indent:     configuration.Indent,
				AutoFormat: configuration.AutoFormatEnabled(),
			}
			if binary, resolveErr := app.environment.resolver.Resolve(configuration); resolveErr != nil {
				effective.ResolveError = resolveErr.Error()
			} else {
				effective.ResolvedBinary = binary
			}

			encoder := yaml.NewEncoder(command.OutOrStdout())
			encoder.SetIndent(2)
			if encodeErr := encoder.Encode(effective); encodeErr != nil {
				return fmt.Errorf(encodeConfigurationErrorFormat, encodeErr)
			}
			return encoder.Close()
		},
	}
}
