package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// ManifestExtension identifies the project manifests cabal-fmt rewrites.
	ManifestExtension = ".cabal"
	// ConflictingMarkerFile marks hpack projects whose manifest is generated and must not be rewritten.
	ConflictingMarkerFile = "package.yaml"

	hiddenNamePrefix = "."
)

// SourceExtensions are the Haskell source files whose changes trigger a reformat.
var SourceExtensions = []string{".hs", ".lhs", ".hsc", ".hsig", ".hs-boot"}

var skippedDirectoryNames = map[string]struct{}{
	".git":          {},
	".stack-work":   {},
	"dist":          {},
	"dist-newstyle": {},
	"node_modules":  {},
}

// IsSourceFile reports whether path names a Haskell source file.
func IsSourceFile(path string) bool {
	extension := filepath.Ext(path)
	for _, sourceExtension := range SourceExtensions {
		if extension == sourceExtension {
			return true
		}
	}
	return false
}

// DiscoverManifests lists the manifests below folder in lexical order.
// Build output, VCS directories and hidden files are skipped.
func DiscoverManifests(folder string) ([]string, error) {
	var manifests []string
	walkErr := filepath.WalkDir(folder, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == folder {
				return err
			}
			return nil
		}
		if entry.IsDir() {
			if path != folder && skipDirectory(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(entry.Name()) == ManifestExtension && !strings.HasPrefix(entry.Name(), hiddenNamePrefix) {
			manifests = append(manifests, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("discover manifests in %s: %w", folder, walkErr)
	}
	sort.Strings(manifests)
	return manifests, nil
}

// Eligible reports whether folder should be watched: it holds at least one
// manifest and no conflicting marker at its root.
func Eligible(folder string) (bool, error) {
	if _, statErr := os.Stat(filepath.Join(folder, ConflictingMarkerFile)); statErr == nil {
		return false, nil
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return false, fmt.Errorf("inspect %s: %w", filepath.Join(folder, ConflictingMarkerFile), statErr)
	}
	manifests, discoverErr := DiscoverManifests(folder)
	if discoverErr != nil {
		return false, discoverErr
	}
	return len(manifests) > 0, nil
}

// ManifestsAffectedBy returns the manifests whose directory contains changedPath.
func ManifestsAffectedBy(manifests []string, changedPath string) []string {
	var affected []string
	for _, manifest := range manifests {
		if isWithin(filepath.Dir(manifest), changedPath) {
			affected = append(affected, manifest)
		}
	}
	return affected
}

func isWithin(directory string, path string) bool {
	relative, relErr := filepath.Rel(directory, path)
	if relErr != nil {
		return false
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)) && !filepath.IsAbs(relative)
}

func skipDirectory(name string) bool {
	if _, skipped := skippedDirectoryNames[name]; skipped {
		return true
	}
	return strings.HasPrefix(name, hiddenNamePrefix)
}

// folderIdentity normalizes a folder path into the key used for registrations.
func folderIdentity(folder string) (string, error) {
	absolute, absErr := filepath.Abs(folder)
	if absErr != nil {
		return "", fmt.Errorf("resolve folder %s: %w", folder, absErr)
	}
	return filepath.Clean(absolute), nil
}
