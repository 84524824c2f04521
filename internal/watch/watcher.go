package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumescope/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches a fixed set of files and calls onChange, debounced,
// after any of them is written, created or renamed.
type FileWatcher struct {
	mu sync.Mutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// NewFileWatcher creates a watcher for the given files. Empty paths are ignored.
func NewFileWatcher(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *FileWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	return &FileWatcher{
		name:          name,
		files:         slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == "" }),
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching. It is an error to start a watcher twice.
func (w *FileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("%s watcher is already running", w.name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = watcher

	if err := w.updateModTimes(); err != nil {
		w.closeWatcher()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, file := range w.files {
		if err := w.addFile(file); err != nil && w.logger != nil {
			w.logger.Warn("Failed to watch file", "watcher", w.name, "file", file, "error", err)
		}
	}

	w.running = true
	go w.loop()

	if w.logger != nil {
		w.logger.Info("File watcher started",
			"watcher", w.name,
			"files", w.files,
			"debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher and waits for its event loop to exit.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false
	w.mu.Unlock()

	<-w.done

	if err := w.fsWatcher.Close(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to close file system watcher", "watcher", w.name)
		}
		return err
	}

	if w.logger != nil {
		w.logger.Info("File watcher stopped", "watcher", w.name)
	}
	return nil
}

// IsRunning returns whether the watcher is currently running
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Files returns the watched paths
func (w *FileWatcher) Files() []string {
	return slices.Clone(w.files)
}

func (w *FileWatcher) closeWatcher() {
	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil && w.logger != nil {
			w.logger.LogError(err, "Failed to close file watcher during cleanup", "watcher", w.name)
		}
	}
}

// addFile watches the file and its directory so atomic rename-over writes are seen.
func (w *FileWatcher) addFile(file string) error {
	dir := filepath.Dir(file)
	if err := w.fsWatcher.Add(file); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to watch file %s: %w", file, err)
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		return nil
	}

	if err := w.fsWatcher.Add(dir); err != nil && w.logger != nil {
		w.logger.Warn("Failed to watch directory for atomic writes", "directory", dir, "error", err)
	}
	return nil
}

func (w *FileWatcher) updateModTimes() error {
	for _, file := range w.files {
		stat, err := os.Stat(file)
		if err == nil {
			w.lastModTime[file] = stat.ModTime()
			continue
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged is only called from the event loop goroutine.
func (w *FileWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, exists := w.lastModTime[file]; exists {
				delete(w.lastModTime, file)
				return true
			}
		}
		return false
	}

	lastMod, exists := w.lastModTime[file]
	if !exists || stat.ModTime().After(lastMod) {
		w.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (w *FileWatcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.isRelevant(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "File watcher error", "watcher", w.name)
			}

		case <-w.reloadChan:
			if slices.ContainsFunc(w.files, w.hasFileChanged) {
				if w.logger != nil {
					w.logger.Info("Watched files changed, reloading", "watcher", w.name)
				}
				w.onChange()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *FileWatcher) isRelevant(event fsnotify.Event) bool {
	matched := slices.ContainsFunc(w.files, func(file string) bool {
		return event.Name == file || filepath.Base(event.Name) == filepath.Base(file)
	})
	return matched && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *FileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
