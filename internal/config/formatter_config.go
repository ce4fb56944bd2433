// Package config loads the formatter configuration from files, the environment,
// command line flags and editor settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/cabalfmt/internal/utils"
)

const (
	// BinaryPathKey names the override path of the formatter executable.
	BinaryPathKey = "binary_path"
	// IndentKey names the indentation width passed to the formatter.
	IndentKey = "indent"
	// AutoFormatKey names the flag gating the auto-format watcher.
	AutoFormatKey = "auto_format"
)

// LoadOptions controls how configuration files are discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// FormatterConfiguration holds the user-facing formatter options.
// Fields are pointers so that unset values do not shadow lower layers when merged.
type FormatterConfiguration struct {
	BinaryPath *string `mapstructure:"binary_path" yaml:"binary_path,omitempty"`
	Indent     *int    `mapstructure:"indent" yaml:"indent,omitempty"`
	AutoFormat *bool   `mapstructure:"auto_format" yaml:"auto_format,omitempty"`
}

// OverridePath returns the configured executable path with surrounding whitespace removed.
// An empty result means no override.
func (configuration FormatterConfiguration) OverridePath() string {
	if configuration.BinaryPath == nil {
		return utils.EmptyString
	}
	return strings.TrimSpace(*configuration.BinaryPath)
}

// IndentWidth reports the configured indentation width and whether one was set.
func (configuration FormatterConfiguration) IndentWidth() (int, bool) {
	if configuration.Indent == nil {
		return 0, false
	}
	return *configuration.Indent, true
}

// AutoFormatEnabled reports whether the watcher should rewrite manifests.
func (configuration FormatterConfiguration) AutoFormatEnabled() bool {
	return configuration.AutoFormat != nil && *configuration.AutoFormat
}

// Merge overlays override onto the receiver returning the combined configuration.
func (configuration FormatterConfiguration) Merge(override FormatterConfiguration) FormatterConfiguration {
	result := configuration
	if override.BinaryPath != nil {
		result.BinaryPath = cloneString(override.BinaryPath)
	}
	if override.Indent != nil {
		result.Indent = cloneInt(override.Indent)
	}
	if override.AutoFormat != nil {
		result.AutoFormat = cloneBool(override.AutoFormat)
	}
	return result
}

// Validate rejects values the formatter cannot accept.
func (configuration FormatterConfiguration) Validate() error {
	if width, configured := configuration.IndentWidth(); configured && width < 0 {
		return fmt.Errorf("%s must not be negative, got %d", IndentKey, width)
	}
	return nil
}

// LoadFormatterConfiguration merges the global file, the local file and the environment, in that order.
func LoadFormatterConfiguration(options LoadOptions) (FormatterConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return FormatterConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged FormatterConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalConfig, loadErr := loadConfigurationFromPath(GlobalConfigPath(homeDirectory))
		if loadErr != nil {
			return FormatterConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localConfig, loadErr := loadConfigurationFromPath(resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath))
	if loadErr != nil {
		return FormatterConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	environmentConfig, environmentErr := loadEnvironmentConfiguration()
	if environmentErr != nil {
		return FormatterConfiguration{}, environmentErr
	}
	merged = merged.Merge(environmentConfig)

	if validationErr := merged.Validate(); validationErr != nil {
		return FormatterConfiguration{}, validationErr
	}
	return merged, nil
}

// GlobalConfigPath returns the location of the global configuration file under homeDirectory.
func GlobalConfigPath(homeDirectory string) string {
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

func loadConfigurationFromPath(path string) (FormatterConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return FormatterConfiguration{}, nil
		}
		return FormatterConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return FormatterConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return FormatterConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var configuration FormatterConfiguration
	if decodeErr := reader.Unmarshal(&configuration); decodeErr != nil {
		return FormatterConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return configuration, nil
}

func loadEnvironmentConfiguration() (FormatterConfiguration, error) {
	reader := viper.New()
	reader.SetEnvPrefix(utils.EnvironmentPrefix)
	for _, key := range []string{BinaryPathKey, IndentKey, AutoFormatKey} {
		if bindErr := reader.BindEnv(key); bindErr != nil {
			return FormatterConfiguration{}, fmt.Errorf("bind environment for %s: %w", key, bindErr)
		}
	}
	var configuration FormatterConfiguration
	if decodeErr := reader.Unmarshal(&configuration); decodeErr != nil {
		return FormatterConfiguration{}, fmt.Errorf("decode environment configuration: %w", decodeErr)
	}
	return configuration, nil
}

// StringValue returns a pointer to value for use in configuration literals.
func StringValue(value string) *string {
	return &value
}

// IntValue returns a pointer to value for use in configuration literals.
func IntValue(value int) *int {
	return &value
}

// BoolValue returns a pointer to value for use in configuration literals.
func BoolValue(value bool) *bool {
	return &value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
