package model

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher triggers Loader reloads. File artifacts are watched with fsnotify;
// anything else is polled.
type Watcher struct {
	loader   *Loader
	path     string
	interval time.Duration
}

// NewWatcher returns a watcher for src. interval is only used for sources
// that are not files.
func NewWatcher(loader *Loader, src Source, interval time.Duration) *Watcher {
	w := &Watcher{loader: loader, interval: interval}
	if fs, ok := src.(*FileSource); ok {
		w.path = filepath.Clean(fs.Path())
	}
	return w
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.path != "" {
		return w.watchFile(ctx)
	}
	return w.poll(ctx)
}

func (w *Watcher) poll(ctx context.Context) error {
	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = w.loader.Load(ctx) // logged and kept in metadata
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) watchFile(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory so atomic rename-over-file deploys are seen.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	slog.Info("watching model artifact", "path", w.path)

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("model watcher error", "error", err)
		case <-timer.C:
			_ = w.loader.Load(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}
