package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/temirov/cabalfmt/internal/formatter"
)

const (
	// FormatCommandName is the route segment of the format command.
	FormatCommandName = "format"
	// FormatCommandDescription documents the format command in the capability list.
	FormatCommandDescription = "Format cabal manifest text with cabal-fmt"
)

// DocumentFormatter formats document text.
type DocumentFormatter interface {
	Format(ctx context.Context, document formatter.Document) (string, error)
}

// FormatRequest is the body of the format command. Path names the manifest the
// text belongs to and may be empty for untitled text. A non-empty Path must be
// absolute and its directory must exist, since cabal-fmt runs there.
type FormatRequest struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// NewFormatExecutor runs requests through documentFormatter. Malformed bodies and
// unusable paths map to 400,
// failures reported by cabal-fmt to 422 and everything else to 500.
func NewFormatExecutor(documentFormatter DocumentFormatter) CommandExecutor {
	return CommandExecutorFunc(func(ctx context.Context, request CommandRequest) (CommandResponse, error) {
		var formatRequest FormatRequest
		decoder := json.NewDecoder(bytes.NewReader(request.Payload))
		decoder.DisallowUnknownFields()
		if decodeErr := decoder.Decode(&formatRequest); decodeErr != nil {
			return CommandResponse{}, NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf("decode format request: %w", decodeErr))
		}
		if pathErr := validateDocumentPath(formatRequest.Path); pathErr != nil {
			return CommandResponse{}, NewCommandExecutionError(http.StatusBadRequest, pathErr)
		}
		formatted, formatErr := documentFormatter.Format(ctx, formatter.Document{Path: formatRequest.Path, Text: formatRequest.Text})
		if formatErr != nil {
			var formatterError *formatter.FormatterError
			if errors.As(formatErr, &formatterError) {
				return CommandResponse{}, NewCommandExecutionError(http.StatusUnprocessableEntity, errors.New(formatter.NotificationMessage(formatErr)))
			}
			return CommandResponse{}, NewCommandExecutionError(http.StatusInternalServerError, errors.New(formatter.NotificationMessage(formatErr)))
		}
		return CommandResponse{Output: formatted}, nil
	})
}

func validateDocumentPath(path string) error {
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path %q is not absolute", path)
	}
	directory := filepath.Dir(path)
	directoryInformation, statErr := os.Stat(directory)
	if statErr != nil {
		return fmt.Errorf("path directory %s: %w", directory, statErr)
	}
	if !directoryInformation.IsDir() {
		return fmt.Errorf("path directory %s is not a directory", directory)
	}
	return nil
}

// FormatCapability describes the format command.
func FormatCapability() Capability {
	return Capability{Name: FormatCommandName, Description: FormatCommandDescription}
}
