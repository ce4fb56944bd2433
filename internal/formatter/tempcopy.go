package formatter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	untitledDocumentName  = "untitled.cabal"
	manifestExtension     = ".cabal"
	temporaryNameInfix    = ".cabal-fmt-"
	temporaryNamePrefix   = "."
	temporaryFileWildcard = "*"
)

// withTemporaryCopy writes text to a uniquely named file next to documentPath,
// hands its path to use and removes it on every return path.
// The system temporary directory is used when the document directory is unusable.
func withTemporaryCopy(documentPath string, text string, use func(temporaryPath string) error) (resultErr error) {
	temporaryFile, createErr := createTemporaryCopy(documentPath)
	if createErr != nil {
		return createErr
	}
	temporaryPath := temporaryFile.Name()
	defer func() {
		removeErr := os.Remove(temporaryPath)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && resultErr == nil {
			resultErr = fmt.Errorf("remove temporary copy %s: %w", temporaryPath, removeErr)
		}
	}()

	_, writeErr := temporaryFile.WriteString(text)
	closeErr := temporaryFile.Close()
	if writeErr != nil {
		return fmt.Errorf("write temporary copy %s: %w", temporaryPath, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close temporary copy %s: %w", temporaryPath, closeErr)
	}
	return use(temporaryPath)
}

func createTemporaryCopy(documentPath string) (*os.File, error) {
	pattern := temporaryPattern(documentPath)
	if documentPath != "" {
		documentDirectory := filepath.Dir(documentPath)
		if temporaryFile, createErr := os.CreateTemp(documentDirectory, pattern); createErr == nil {
			return temporaryFile, nil
		}
	}
	temporaryFile, createErr := os.CreateTemp("", pattern)
	if createErr != nil {
		return nil, fmt.Errorf("create temporary copy of %s: %w", displayName(documentPath), createErr)
	}
	return temporaryFile, nil
}

// temporaryPattern yields names such as ".foo.cabal-fmt-123456.cabal" so the copy
// keeps the manifest extension and stays hidden in directory listings.
func temporaryPattern(documentPath string) string {
	baseName := displayName(documentPath)
	extension := filepath.Ext(baseName)
	if extension == "" {
		extension = manifestExtension
	}
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	return temporaryNamePrefix + stem + temporaryNameInfix + temporaryFileWildcard + extension
}
