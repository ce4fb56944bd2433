package utils

// EmptyString represents a reusable empty string constant.
const EmptyString = ""

const (
	// ApplicationName is the command name used in help output and version strings.
	ApplicationName = "cabalfmt"
	// ConfigFileName is the configuration file looked up in the working directory and the global directory.
	ConfigFileName = ".cabalfmt.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".cabalfmt"
	// EnvironmentPrefix prefixes environment variables recognized by the configuration loader.
	EnvironmentPrefix = "CABALFMT"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

const (
	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes the fatal log line emitted when a command fails.
	ApplicationExecutionFailedMessage = "cabalfmt failed"
)
