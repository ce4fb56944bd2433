package formatter

import (
	"fmt"
	"strings"
)

// SpawnError reports that the formatter process could not be started.
type SpawnError struct {
	Binary string
	Cause  error
}

// Error returns the error string.
func (spawnError *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", spawnError.Binary, spawnError.Cause)
}

// Unwrap exposes the underlying start failure.
func (spawnError *SpawnError) Unwrap() error {
	return spawnError.Cause
}

// FormatterError reports a run that produced no formatted output.
// Message holds the formatter's standard error verbatim apart from temporary
// paths, which are scrubbed.
type FormatterError struct {
	Document string
	ExitCode int
	Message  string
}

// Error returns the error string.
func (formatterError *FormatterError) Error() string {
	stderr := strings.TrimSpace(formatterError.Message)
	if stderr == "" {
		return fmt.Sprintf("cabal-fmt produced no output for %s (exit code %d)", formatterError.Document, formatterError.ExitCode)
	}
	return fmt.Sprintf("cabal-fmt failed for %s: %s", formatterError.Document, stderr)
}
