package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/temirov/cabalfmt/internal/utils"
)

// Scope selects which configuration file WriteTemplate creates.
type Scope int

const (
	// ScopeProject is ./.cabalfmt.yaml in the project directory.
	ScopeProject Scope = iota
	// ScopeUser is ~/.cabalfmt/.cabalfmt.yaml.
	ScopeUser
)

const (
	configurationTemplate = `# Path to the cabal-fmt executable. ${HOME}, ${home} and a leading ~ expand
# to the home directory. Leave empty to look cabal-fmt up on PATH.
binary_path: ""
# Indentation width passed to cabal-fmt as --indent.
indent: 2
# Rewrite .cabal manifests when Haskell sources in a watched folder change.
auto_format: false
`
	templateFileMode      = 0o600
	userDirectoryMode     = 0o755
	projectDirectoryError = "locate project directory: %w"
	userDirectoryError    = "locate home directory: %w"
	unknownScopeError     = "unknown configuration scope %d"
)

// ErrConfigurationExists is returned when the destination exists and overwriting was not requested.
var ErrConfigurationExists = errors.New("configuration file already exists")

// TemplateRequest describes a WriteTemplate call. ProjectDirectory defaults to the
// process working directory and HomeDirectory to os.UserHomeDir.
type TemplateRequest struct {
	Scope            Scope
	Overwrite        bool
	ProjectDirectory string
	HomeDirectory    func() (string, error)
}

// WriteTemplate writes the commented default configuration and returns its path.
func WriteTemplate(request TemplateRequest) (string, error) {
	destination, destinationErr := request.destination()
	if destinationErr != nil {
		return "", destinationErr
	}
	if request.Scope == ScopeUser {
		if mkdirErr := os.MkdirAll(filepath.Dir(destination), userDirectoryMode); mkdirErr != nil {
			return "", fmt.Errorf("create %s: %w", filepath.Dir(destination), mkdirErr)
		}
	}
	if writeErr := writeTemplateFile(destination, request.Overwrite); writeErr != nil {
		return "", writeErr
	}
	return destination, nil
}

func (request TemplateRequest) destination() (string, error) {
	switch request.Scope {
	case ScopeProject:
		directory := request.ProjectDirectory
		if directory == "" {
			current, currentErr := os.Getwd()
			if currentErr != nil {
				return "", fmt.Errorf(projectDirectoryError, currentErr)
			}
			directory = current
		}
		return filepath.Join(directory, utils.ConfigFileName), nil
	case ScopeUser:
		homeDirectory := request.HomeDirectory
		if homeDirectory == nil {
			homeDirectory = os.UserHomeDir
		}
		home, homeErr := homeDirectory()
		if homeErr != nil {
			return "", fmt.Errorf(userDirectoryError, homeErr)
		}
		return GlobalConfigPath(home), nil
	default:
		return "", fmt.Errorf(unknownScopeError, request.Scope)
	}
}

// writeTemplateFile creates path exclusively unless overwrite is set, so an existing
// file is never truncated by a refused write.
func writeTemplateFile(path string, overwrite bool) (err error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, openErr := os.OpenFile(path, flags, templateFileMode)
	if errors.Is(openErr, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigurationExists, path)
	}
	if openErr != nil {
		return fmt.Errorf("open %s: %w", path, openErr)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	if _, writeErr := file.WriteString(configurationTemplate); writeErr != nil {
		return fmt.Errorf("write %s: %w", path, writeErr)
	}
	return nil
}
