package formatter

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/temirov/cabalfmt/internal/config"
)

const indentFlag = "--indent"

// InvocationRequest separates the file the process reads from the name users see.
type InvocationRequest struct {
	InputPath          string
	NominalDisplayPath string
	ExtraArgs          []string
}

// Arguments returns the command line: the extra arguments followed by the input path.
func (request InvocationRequest) Arguments() []string {
	arguments := make([]string, 0, len(request.ExtraArgs)+1)
	arguments = append(arguments, request.ExtraArgs...)
	return append(arguments, request.InputPath)
}

// DisplayName is the base name shown in diagnostics.
func (request InvocationRequest) DisplayName() string {
	return displayName(request.NominalDisplayPath)
}

// FormattingArguments translates configured options into formatter flags.
func FormattingArguments(configuration config.FormatterConfiguration) []string {
	width, configured := configuration.IndentWidth()
	if !configured {
		return nil
	}
	return []string{indentFlag, strconv.Itoa(width)}
}

// Reconcile turns a finished process into replacement text or a failure.
// Non-empty standard output is the complete new document whatever the exit code;
// empty standard output is a failure described by standard error.
func Reconcile(outcome Outcome, request InvocationRequest) (string, error) {
	formatted := outcome.Stdout()
	if len(formatted) > 0 {
		return string(formatted), nil
	}
	return "", &FormatterError{
		Document: request.DisplayName(),
		ExitCode: outcome.ExitCode,
		Message:  ScrubTemporaryPath(string(outcome.Stderr()), request),
	}
}

// ScrubTemporaryPath replaces the temporary input path, and then its base name,
// with the document's base name.
func ScrubTemporaryPath(message string, request InvocationRequest) string {
	if request.InputPath == "" || request.InputPath == request.NominalDisplayPath {
		return message
	}
	name := request.DisplayName()
	scrubbed := strings.ReplaceAll(message, request.InputPath, name)
	if temporaryName := filepath.Base(request.InputPath); temporaryName != name {
		scrubbed = strings.ReplaceAll(scrubbed, temporaryName, name)
	}
	return scrubbed
}

func displayName(path string) string {
	if path == "" {
		return untitledDocumentName
	}
	return filepath.Base(path)
}
