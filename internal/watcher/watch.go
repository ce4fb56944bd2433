package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const relevantOperations = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// changeHandler receives the batch of source paths that changed below a folder.
type changeHandler func(ctx context.Context, changedPaths []string)

// folderWatch observes every directory below one workspace folder.
type folderWatch struct {
	folder   string
	notifier *fsnotify.Watcher
	debounce time.Duration
	onChange changeHandler
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func startFolderWatch(ctx context.Context, folder string, debounce time.Duration, onChange changeHandler, logger *zap.Logger) (*folderWatch, error) {
	notifier, createErr := fsnotify.NewWatcher()
	if createErr != nil {
		return nil, fmt.Errorf("create watcher for %s: %w", folder, createErr)
	}
	watchContext, cancel := context.WithCancel(ctx)
	watch := &folderWatch{
		folder:   folder,
		notifier: notifier,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if _, addErr := watch.addTree(folder); addErr != nil {
		cancel()
		_ = notifier.Close()
		return nil, addErr
	}
	go watch.run(watchContext)
	return watch, nil
}

// addTree watches directory and its subdirectories and returns the source files already present.
func (watch *folderWatch) addTree(directory string) ([]string, error) {
	var existingSources []string
	walkErr := filepath.WalkDir(directory, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == directory {
				return err
			}
			return nil
		}
		if !entry.IsDir() {
			if IsSourceFile(path) {
				existingSources = append(existingSources, path)
			}
			return nil
		}
		if path != watch.folder && skipDirectory(entry.Name()) {
			return filepath.SkipDir
		}
		if addErr := watch.notifier.Add(path); addErr != nil {
			return fmt.Errorf("watch %s: %w", path, addErr)
		}
		return nil
	})
	return existingSources, walkErr
}

func (watch *folderWatch) run(ctx context.Context) {
	defer close(watch.done)

	pending := map[string]struct{}{}
	var timer *time.Timer
	var timerChannel <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		changedPaths := make([]string, 0, len(pending))
		for path := range pending {
			changedPaths = append(changedPaths, path)
		}
		sort.Strings(changedPaths)
		pending = map[string]struct{}{}
		watch.onChange(ctx, changedPaths)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-watch.notifier.Events:
			if !open {
				return
			}
			if !watch.collect(event, pending) {
				continue
			}
			if watch.debounce <= 0 {
				flush()
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(watch.debounce)
			timerChannel = timer.C
		case <-timerChannel:
			timerChannel = nil
			flush()
		case watchErr, open := <-watch.notifier.Errors:
			if !open {
				return
			}
			watch.logger.Warn("file watcher error", zap.String("folder", watch.folder), zap.Error(watchErr))
		}
	}
}

// collect records the source paths touched by event and reports whether any were added.
func (watch *folderWatch) collect(event fsnotify.Event, pending map[string]struct{}) bool {
	if event.Op&relevantOperations == 0 {
		return false
	}
	added := false
	if event.Has(fsnotify.Create) {
		if fileInformation, statErr := os.Stat(event.Name); statErr == nil && fileInformation.IsDir() {
			if skipDirectory(filepath.Base(event.Name)) {
				return false
			}
			existingSources, addErr := watch.addTree(event.Name)
			if addErr != nil {
				watch.logger.Warn("watch new directory", zap.String("folder", watch.folder), zap.Error(addErr))
			}
			for _, source := range existingSources {
				pending[source] = struct{}{}
				added = true
			}
			return added
		}
	}
	if IsSourceFile(event.Name) {
		pending[event.Name] = struct{}{}
		added = true
	}
	return added
}

func (watch *folderWatch) Close() error {
	watch.cancel()
	closeErr := watch.notifier.Close()
	<-watch.done
	if closeErr != nil {
		return fmt.Errorf("close watcher for %s: %w", watch.folder, closeErr)
	}
	return nil
}
