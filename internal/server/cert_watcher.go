package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sreekeshm77/ATS-project/internal/errors"
)

// CertWatcher observes the certificate files on disk and invokes a reload
// callback when any of them change. Events are debounced and checked
// against file modification times so editors and atomic renames do not
// trigger repeated reloads.
type CertWatcher struct {
	certFile string
	keyFile  string
	caFile   string

	onReload func()
	logger   *errors.Logger

	// Modification times from the last check, keyed by path
	lastMod map[string]time.Time

	fsw      *fsnotify.Watcher
	debounce time.Duration
	timer    *time.Timer

	stopCh  chan struct{}
	checkCh chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewCertWatcher builds a watcher for the given certificate paths. Empty
// paths are skipped. A zero debounce falls back to one second.
func NewCertWatcher(certFile, keyFile, caFile string, debounce time.Duration, onReload func(), logger *errors.Logger) *CertWatcher {
	if debounce == 0 {
		debounce = time.Second
	}
	return &CertWatcher{
		certFile: certFile,
		keyFile:  keyFile,
		caFile:   caFile,
		onReload: onReload,
		logger:   logger,
		lastMod:  make(map[string]time.Time),
		debounce: debounce,
		stopCh:   make(chan struct{}),
		checkCh:  make(chan struct{}, 1),
	}
}

// Start registers the watched paths with fsnotify and launches the event
// loop.
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	cw.fsw = fsw

	if err := cw.snapshotModTimes(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil && cw.logger != nil {
			cw.logger.LogError(closeErr, "Failed to close watcher after startup failure")
		}
		return fmt.Errorf("failed to record initial modification times: %w", err)
	}

	files := cw.GetWatchedFiles()
	for _, f := range files {
		if err := cw.watchPath(f); err != nil && cw.logger != nil {
			cw.logger.Warn("Could not watch certificate file", "file", f, "error", err)
		}
	}

	cw.running = true
	go cw.run()

	if cw.logger != nil {
		cw.logger.Info("Certificate watcher started", "files", files, "debounce_delay", cw.debounce)
	}
	return nil
}

// Stop shuts the event loop down and releases the fsnotify watcher.
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}
	close(cw.stopCh)

	if cw.timer != nil {
		cw.timer.Stop()
	}
	if cw.fsw != nil {
		if err := cw.fsw.Close(); err != nil {
			if cw.logger != nil {
				cw.logger.LogError(err, "Failed to close fsnotify watcher")
			}
			return err
		}
	}
	cw.running = false

	if cw.logger != nil {
		cw.logger.Info("Certificate watcher stopped")
	}
	return nil
}

// watchPath registers a file and its parent directory. The directory watch
// catches atomic replacements, where the new content is written to a temp
// name and renamed over the original.
func (cw *CertWatcher) watchPath(file string) error {
	parent := filepath.Dir(file)
	if err := cw.fsw.Add(parent); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", parent, err)
	}
	if err := cw.fsw.Add(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}
	return nil
}

// snapshotModTimes records the current modification time of every watched
// file. Missing files are tolerated; they may appear later.
func (cw *CertWatcher) snapshotModTimes() error {
	for _, file := range cw.GetWatchedFiles() {
		fi, err := os.Stat(file)
		switch {
		case os.IsNotExist(err):
			continue
		case err != nil:
			return fmt.Errorf("stat %s: %w", file, err)
		}
		cw.lastMod[file] = fi.ModTime()
	}
	return nil
}

// changed reports whether file was modified or deleted since the last
// check, updating the stored modification time as a side effect.
func (cw *CertWatcher) changed(file string) bool {
	fi, err := os.Stat(file)
	switch {
	case os.IsNotExist(err):
		if _, known := cw.lastMod[file]; known {
			delete(cw.lastMod, file)
			return true
		}
		return false
	case err != nil:
		return false
	}

	last, known := cw.lastMod[file]
	if !known || fi.ModTime().After(last) {
		cw.lastMod[file] = fi.ModTime()
		return true
	}
	return false
}

func (cw *CertWatcher) anyChanged() bool {
	return slices.ContainsFunc(cw.GetWatchedFiles(), cw.changed)
}

// maybeReload fires the reload callback when any watched file actually
// changed since the last check.
func (cw *CertWatcher) maybeReload() {
	if !cw.anyChanged() {
		return
	}
	if cw.logger != nil {
		cw.logger.Info("Certificate files changed on disk, reloading")
	}
	cw.onReload()
}

// run drains fsnotify events until Stop is called. Relevant events arm the
// debounce timer; the timer pushes into checkCh, where the modification
// times decide whether a reload actually happens.
func (cw *CertWatcher) run() {
	for {
		select {
		case event, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			if cw.relevant(event) {
				cw.armDebounce()
			}

		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			if cw.logger != nil {
				cw.logger.LogError(err, "Certificate watcher error")
			}

		case <-cw.checkCh:
			cw.maybeReload()

		case <-cw.stopCh:
			return
		}
	}
}

// reloadOps are the event kinds that can change certificate content.
const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// relevant filters events down to writes, creates and renames touching one
// of the watched files. Directory watches deliver events for neighboring
// files too, so the name check matters.
func (cw *CertWatcher) relevant(event fsnotify.Event) bool {
	watched := slices.ContainsFunc(cw.GetWatchedFiles(), func(file string) bool {
		return event.Name == file || filepath.Base(event.Name) == filepath.Base(file)
	})
	return watched && event.Op&reloadOps != 0
}

// armDebounce restarts the debounce timer. When it fires, a single reload
// check is queued; the buffered channel collapses bursts into one check.
func (cw *CertWatcher) armDebounce() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, func() {
		select {
		case cw.checkCh <- struct{}{}:
		default:
		}
	})
}

// IsRunning reports whether the event loop is active.
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.running
}

// GetWatchedFiles lists the non-empty certificate paths under watch.
func (cw *CertWatcher) GetWatchedFiles() []string {
	files := make([]string, 0, 3)
	for _, file := range []string{cw.certFile, cw.keyFile, cw.caFile} {
		if file != "" {
			files = append(files, file)
		}
	}
	return files
}
