// Package formatter runs cabal-fmt against document text and turns its output
// into replacement text.
package formatter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/resolver"
)

const (
	formattingNoticeFormat       = "Formatting %s"
	unknownBinaryMessageFormat   = "Path to cabal-fmt is set to an unknown place: %s"
	missingBinaryMessage         = "Unable to call cabal-fmt: it is not on PATH and no binary path is configured"
	spawnFailureMessageFormat    = "Failed to call cabal-fmt: %v"
	formatterStderrMessageFormat = "Stderr from cabal-fmt: %s"
	genericFailureMessageFormat  = "cabal-fmt: %v"
)

// BinaryResolver picks the executable for a configuration.
type BinaryResolver interface {
	Resolve(configuration config.FormatterConfiguration) (string, error)
}

// Document is editor text together with the path of the file it belongs to.
// Text may contain unsaved edits.
type Document struct {
	Path string
	Text string
}

// Dependencies wires a Service.
type Dependencies struct {
	Configuration config.Provider
	Resolver      BinaryResolver
	Runner        Runner
	Notifier      Notifier
	Logger        *zap.Logger
}

// Service is the formatter invocation pipeline: resolve the binary, run it on a
// temporary copy of the document and reconcile the result.
type Service struct {
	configuration config.Provider
	resolver      BinaryResolver
	runner        Runner
	notifier      Notifier
	logger        *zap.Logger
}

// NewService creates a Service. Missing dependencies get production defaults.
func NewService(dependencies Dependencies) *Service {
	service := &Service{
		configuration: dependencies.Configuration,
		resolver:      dependencies.Resolver,
		runner:        dependencies.Runner,
		notifier:      dependencies.Notifier,
		logger:        dependencies.Logger,
	}
	if service.configuration == nil {
		service.configuration = config.StaticProvider{}
	}
	if service.resolver == nil {
		service.resolver = resolver.New()
	}
	if service.runner == nil {
		service.runner = ProcessRunner{}
	}
	if service.notifier == nil {
		service.notifier = nopNotifier{}
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service
}

// Configuration returns the configuration in effect for the next invocation.
func (service *Service) Configuration() (config.FormatterConfiguration, error) {
	return service.configuration.Current()
}

// Format returns the formatted text of document. Every failure is reported to
// the notifier before it is returned.
func (service *Service) Format(ctx context.Context, document Document) (string, error) {
	formatted, formatErr := service.format(ctx, document)
	if formatErr != nil {
		service.logger.Warn("format failed", zap.String("document", document.Path), zap.Error(formatErr))
		service.notifier.Error(NotificationMessage(formatErr))
		return "", formatErr
	}
	return formatted, nil
}

func (service *Service) format(ctx context.Context, document Document) (string, error) {
	if document.Path != "" && !filepath.IsAbs(document.Path) {
		absolutePath, absoluteErr := filepath.Abs(document.Path)
		if absoluteErr != nil {
			return "", fmt.Errorf("resolve document path %s: %w", document.Path, absoluteErr)
		}
		document.Path = absolutePath
	}
	configuration, configurationErr := service.configuration.Current()
	if configurationErr != nil {
		return "", fmt.Errorf("load configuration: %w", configurationErr)
	}
	binary, resolveErr := service.resolver.Resolve(configuration)
	if resolveErr != nil {
		return "", resolveErr
	}

	service.notifier.Info(fmt.Sprintf(formattingNoticeFormat, displayName(document.Path)))

	var formatted string
	copyErr := withTemporaryCopy(document.Path, document.Text, func(temporaryPath string) error {
		request := InvocationRequest{
			InputPath:          temporaryPath,
			NominalDisplayPath: document.Path,
			ExtraArgs:          FormattingArguments(configuration),
		}
		outcome, runErr := service.runner.Run(ctx, Invocation{
			Binary:    binary,
			Arguments: request.Arguments(),
			Directory: workingDirectory(document.Path),
		})
		if runErr != nil {
			return runErr
		}
		service.logger.Debug("cabal-fmt exited",
			zap.String("document", document.Path),
			zap.String("binary", binary),
			zap.Int("exit_code", outcome.ExitCode))
		// Output wins over the exit status; a crash that still printed something is reported as success.
		if outcome.ExitCode != 0 && len(outcome.Stdout()) > 0 {
			service.logger.Warn("cabal-fmt exited with a non-zero status but produced output; using the output",
				zap.String("document", document.Path),
				zap.Int("exit_code", outcome.ExitCode))
		}
		reconciled, reconcileErr := Reconcile(outcome, request)
		if reconcileErr != nil {
			return reconcileErr
		}
		formatted = reconciled
		return nil
	})
	if copyErr != nil {
		return "", copyErr
	}
	return formatted, nil
}

// FormatFile formats the file at path and rewrites it in place when the text changed.
func (service *Service) FormatFile(ctx context.Context, path string) (bool, error) {
	fileInformation, statErr := os.Stat(path)
	if statErr != nil {
		service.notifier.Error(fmt.Sprintf(genericFailureMessageFormat, statErr))
		return false, fmt.Errorf("stat %s: %w", path, statErr)
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		service.notifier.Error(fmt.Sprintf(genericFailureMessageFormat, readErr))
		return false, fmt.Errorf("read %s: %w", path, readErr)
	}
	formatted, formatErr := service.Format(ctx, Document{Path: path, Text: string(content)})
	if formatErr != nil {
		return false, formatErr
	}
	if formatted == string(content) {
		return false, nil
	}
	if writeErr := os.WriteFile(path, []byte(formatted), fileInformation.Mode().Perm()); writeErr != nil {
		service.notifier.Error(fmt.Sprintf(genericFailureMessageFormat, writeErr))
		return false, fmt.Errorf("write %s: %w", path, writeErr)
	}
	service.logger.Info("rewrote manifest", zap.String("manifest", path))
	return true, nil
}

// NotificationMessage renders err for display to the user.
func NotificationMessage(err error) string {
	var configurationError *resolver.ConfigurationError
	var spawnError *SpawnError
	var formatterError *FormatterError
	switch {
	case errors.As(err, &configurationError):
		return fmt.Sprintf(unknownBinaryMessageFormat, configurationError.Path)
	case errors.Is(err, resolver.ErrFormatterNotFound):
		return missingBinaryMessage
	case errors.As(err, &spawnError):
		return fmt.Sprintf(spawnFailureMessageFormat, spawnError.Cause)
	case errors.As(err, &formatterError):
		stderr := strings.TrimSpace(formatterError.Message)
		if stderr == "" {
			return fmt.Sprintf(formatterStderrMessageFormat, formatterError.Error())
		}
		return fmt.Sprintf(formatterStderrMessageFormat, stderr)
	default:
		return fmt.Sprintf(genericFailureMessageFormat, err)
	}
}

func workingDirectory(documentPath string) string {
	if documentPath == "" {
		return ""
	}
	directory := filepath.Dir(documentPath)
	if fileInformation, statErr := os.Stat(directory); statErr != nil || !fileInformation.IsDir() {
		return ""
	}
	return directory
}
