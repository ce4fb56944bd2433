// Package watcher rewrites cabal manifests when Haskell sources in a workspace folder change.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/formatter"
)

// FileFormatter rewrites a manifest on disk.
type FileFormatter interface {
	FormatFile(ctx context.Context, path string) (bool, error)
}

// Options wires a Coordinator.
type Options struct {
	Formatter     FileFormatter
	Configuration config.Provider
	Notifier      formatter.Notifier
	Logger        *zap.Logger
	// Debounce batches bursts of events; zero reacts to every event.
	Debounce time.Duration
}

// Coordinator owns the folder to watch registrations. Add, Remove, Refresh and
// Close are the only operations that change them.
type Coordinator struct {
	options       Options
	rootContext   context.Context
	cancel        context.CancelFunc
	mutex         sync.Mutex
	registrations map[string]*registration
	closed        bool
}

// registration holds the watch of one folder, nil when the folder is not watched.
type registration struct {
	folder string
	watch  *folderWatch
}

// NewCoordinator creates a Coordinator. Watches stop when ctx is cancelled or Close is called.
func NewCoordinator(ctx context.Context, options Options) *Coordinator {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Configuration == nil {
		options.Configuration = config.StaticProvider{}
	}
	rootContext, cancel := context.WithCancel(ctx)
	return &Coordinator{
		options:       options,
		rootContext:   rootContext,
		cancel:        cancel,
		registrations: map[string]*registration{},
	}
}

// Add registers folder and starts watching it when it is eligible and auto-format is enabled.
// Adding a folder that is already registered does nothing.
func (coordinator *Coordinator) Add(folder string) error {
	identity, identityErr := folderIdentity(folder)
	if identityErr != nil {
		return identityErr
	}
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	if coordinator.closed {
		return fmt.Errorf("add %s: coordinator closed", identity)
	}
	if _, registered := coordinator.registrations[identity]; registered {
		return nil
	}
	entry := &registration{folder: identity}
	coordinator.registrations[identity] = entry
	return coordinator.reconcileLocked(entry)
}

// Remove disposes the watch of folder and forgets the folder.
func (coordinator *Coordinator) Remove(folder string) error {
	identity, identityErr := folderIdentity(folder)
	if identityErr != nil {
		return identityErr
	}
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	entry, registered := coordinator.registrations[identity]
	if !registered {
		return nil
	}
	delete(coordinator.registrations, identity)
	return entry.dispose()
}

// Refresh re-evaluates every registered folder against the current configuration.
func (coordinator *Coordinator) Refresh() error {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	var combined error
	for _, identity := range coordinator.sortedFoldersLocked() {
		combined = multierr.Append(combined, coordinator.reconcileLocked(coordinator.registrations[identity]))
	}
	return combined
}

// Close disposes every watch. The coordinator cannot be used afterwards.
func (coordinator *Coordinator) Close() error {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	if coordinator.closed {
		return nil
	}
	coordinator.closed = true
	coordinator.cancel()
	var combined error
	for identity, entry := range coordinator.registrations {
		combined = multierr.Append(combined, entry.dispose())
		delete(coordinator.registrations, identity)
	}
	return combined
}

// Folders lists the registered folders.
func (coordinator *Coordinator) Folders() []string {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	return coordinator.sortedFoldersLocked()
}

// Watching reports whether folder currently has an active watch.
func (coordinator *Coordinator) Watching(folder string) bool {
	identity, identityErr := folderIdentity(folder)
	if identityErr != nil {
		return false
	}
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	entry, registered := coordinator.registrations[identity]
	return registered && entry.watch != nil
}

// ActiveWatches counts the folders with an active watch.
func (coordinator *Coordinator) ActiveWatches() int {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	count := 0
	for _, entry := range coordinator.registrations {
		if entry.watch != nil {
			count++
		}
	}
	return count
}

// reconcileLocked starts or stops the watch of entry so it matches configuration and eligibility.
func (coordinator *Coordinator) reconcileLocked(entry *registration) error {
	wanted, decideErr := coordinator.shouldWatch(entry.folder)
	if decideErr != nil {
		return multierr.Append(decideErr, entry.dispose())
	}
	if !wanted {
		return entry.dispose()
	}
	if entry.watch != nil {
		return nil
	}
	folder := entry.folder
	watch, startErr := startFolderWatch(coordinator.rootContext, folder, coordinator.options.Debounce, func(ctx context.Context, changedPaths []string) {
		coordinator.reformat(ctx, folder, changedPaths)
	}, coordinator.options.Logger)
	if startErr != nil {
		return startErr
	}
	entry.watch = watch
	coordinator.options.Logger.Info("watching folder", zap.String("folder", folder))
	return nil
}

func (coordinator *Coordinator) shouldWatch(folder string) (bool, error) {
	configuration, configurationErr := coordinator.options.Configuration.Current()
	if configurationErr != nil {
		return false, fmt.Errorf("load configuration for %s: %w", folder, configurationErr)
	}
	if !configuration.AutoFormatEnabled() {
		return false, nil
	}
	return Eligible(folder)
}

// reformat runs on the watch goroutine of folder; it must not take the coordinator mutex.
func (coordinator *Coordinator) reformat(ctx context.Context, folder string, changedPaths []string) {
	manifests, discoverErr := DiscoverManifests(folder)
	if discoverErr != nil {
		coordinator.options.Logger.Error("discover manifests", zap.String("folder", folder), zap.Error(discoverErr))
		if coordinator.options.Notifier != nil {
			coordinator.options.Notifier.Error(formatter.NotificationMessage(discoverErr))
		}
		return
	}

	targets := map[string]struct{}{}
	for _, changedPath := range changedPaths {
		for _, manifest := range ManifestsAffectedBy(manifests, changedPath) {
			targets[manifest] = struct{}{}
		}
	}
	orderedTargets := make([]string, 0, len(targets))
	for manifest := range targets {
		orderedTargets = append(orderedTargets, manifest)
	}
	sort.Strings(orderedTargets)

	var combined error
	for _, manifest := range orderedTargets {
		if ctx.Err() != nil {
			return
		}
		if _, formatErr := coordinator.options.Formatter.FormatFile(ctx, manifest); formatErr != nil {
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", manifest, formatErr))
		}
	}
	if combined != nil {
		coordinator.options.Logger.Warn("auto-format failed",
			zap.String("folder", folder),
			zap.Int("failures", len(multierr.Errors(combined))),
			zap.Error(combined))
	}
}

func (coordinator *Coordinator) sortedFoldersLocked() []string {
	folders := make([]string, 0, len(coordinator.registrations))
	for identity := range coordinator.registrations {
		folders = append(folders, identity)
	}
	sort.Strings(folders)
	return folders
}

func (entry *registration) dispose() error {
	if entry.watch == nil {
		return nil
	}
	watch := entry.watch
	entry.watch = nil
	return watch.Close()
}
