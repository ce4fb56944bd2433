// Package resolver decides which cabal-fmt executable an invocation runs.
package resolver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/temirov/cabalfmt/internal/config"
)

// ExecutableName is the formatter looked up on PATH when no override is configured.
const ExecutableName = "cabal-fmt"

const homePrefix = "~"

var homePlaceholders = []string{"${HOME}", "${home}"}

// LookupFunc reports the location of an invocable command.
type LookupFunc func(file string) (string, error)

// HomeDirectoryFunc reports the current user's home directory.
type HomeDirectoryFunc func() (string, error)

// Resolver picks the formatter executable for one invocation.
// An explicit override wins over PATH discovery when it is set.
type Resolver struct {
	lookup        LookupFunc
	homeDirectory HomeDirectoryFunc
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithLookup replaces the executable lookup, exec.LookPath by default.
func WithLookup(lookup LookupFunc) Option {
	return func(resolver *Resolver) {
		resolver.lookup = lookup
	}
}

// WithHomeDirectory replaces the home directory source, os.UserHomeDir by default.
func WithHomeDirectory(homeDirectory HomeDirectoryFunc) Option {
	return func(resolver *Resolver) {
		resolver.homeDirectory = homeDirectory
	}
}

// New creates a Resolver.
func New(options ...Option) *Resolver {
	resolver := &Resolver{
		lookup:        exec.LookPath,
		homeDirectory: os.UserHomeDir,
	}
	for _, option := range options {
		option(resolver)
	}
	return resolver
}

// Resolve returns the executable to run for the given configuration.
// A non-empty override that is not invocable fails with *ConfigurationError;
// it never falls back to PATH.
func (resolver *Resolver) Resolve(configuration config.FormatterConfiguration) (string, error) {
	overridePath := configuration.OverridePath()
	if needsHomeExpansion(overridePath) {
		homeDirectory, homeErr := resolver.homeDirectory()
		if homeErr != nil {
			return "", fmt.Errorf("resolve home directory for %s: %w", overridePath, homeErr)
		}
		overridePath = ExpandHome(overridePath, homeDirectory)
	}
	if overridePath != "" {
		if _, lookupErr := resolver.lookup(overridePath); lookupErr != nil {
			return "", &ConfigurationError{Path: overridePath, Cause: lookupErr}
		}
		return anchorRelativePath(overridePath)
	}

	discoveredPath, lookupErr := resolver.lookup(ExecutableName)
	if lookupErr != nil {
		return "", fmt.Errorf("%w: %v", ErrFormatterNotFound, lookupErr)
	}
	return discoveredPath, nil
}

// anchorRelativePath makes a relative override such as ./bin/cabal-fmt absolute so the
// process working directory chosen at spawn time cannot change what it names.
// Bare command names are left for PATH lookup.
func anchorRelativePath(path string) (string, error) {
	if filepath.IsAbs(path) || !strings.ContainsAny(path, `/`+string(filepath.Separator)) {
		return path, nil
	}
	absolutePath, absoluteErr := filepath.Abs(path)
	if absoluteErr != nil {
		return "", &ConfigurationError{Path: path, Cause: absoluteErr}
	}
	return absolutePath, nil
}

func needsHomeExpansion(path string) bool {
	if strings.HasPrefix(path, homePrefix) {
		return true
	}
	for _, placeholder := range homePlaceholders {
		if strings.Contains(path, placeholder) {
			return true
		}
	}
	return false
}

// ExpandHome replaces ${HOME}, ${home} and a leading ~ with homeDirectory.
func ExpandHome(path string, homeDirectory string) string {
	expanded := path
	for _, placeholder := range homePlaceholders {
		expanded = strings.ReplaceAll(expanded, placeholder, homeDirectory)
	}
	if strings.HasPrefix(expanded, homePrefix) {
		expanded = homeDirectory + strings.TrimPrefix(expanded, homePrefix)
	}
	return expanded
}
