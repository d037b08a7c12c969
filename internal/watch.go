package internal

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 100 * time.Millisecond

// ignoredWatchDirs are never watched.
var ignoredWatchDirs = []string{".git", "node_modules", "vendor", "tmp", "dist"}

// watchConfig configures the source watcher used in development mode.
type watchConfig struct {
	dir        string
	extensions []string
	debounce   time.Duration
}

// watchSource reports the first change to a watched source file.
// The returned channel receives the changed path once and is then closed.
// Watching stops when ctx is done.
func watchSource(ctx context.Context, cfg watchConfig, logger *slog.Logger) (<-chan string, error) {
	if cfg.dir == "" {
		cfg.dir = "."
	}
	if len(cfg.extensions) == 0 {
		cfg.extensions = []string{".go"}
	}
	if cfg.debounce <= 0 {
		cfg.debounce = defaultWatchDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addWatchTree(w, cfg.dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	changed := make(chan string, 1)
	go func() {
		defer close(changed)
		defer w.Close()

		var timer <-chan time.Time
		var pending string
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if isWatchableDir(ev.Name) {
						_ = addWatchTree(w, ev.Name)
						continue
					}
				}
				if ev.Has(fsnotify.Chmod) || !hasExtension(ev.Name, cfg.extensions) || strings.HasSuffix(ev.Name, "_test.go") {
					continue
				}
				pending = ev.Name
				timer = time.After(cfg.debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("file watcher error", slog.Any("error", err))
			case <-timer:
				changed <- pending
				return
			}
		}
	}()
	return changed, nil
}

func addWatchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipWatchDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func isWatchableDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir() && !skipWatchDir(filepath.Base(p))
}

func skipWatchDir(name string) bool {
	return strings.HasPrefix(name, ".") || slices.Contains(ignoredWatchDirs, name)
}

func hasExtension(p string, exts []string) bool {
	return slices.Contains(exts, filepath.Ext(p))
}
