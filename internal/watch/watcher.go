// Package watch re-runs synchronization when the registry file or a
// migration file changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a burst of events triggers a run.
const DefaultDebounce = 200 * time.Millisecond

// Config selects what the watcher observes.
type Config struct {
	MigrationsDir string
	RegistryFile  string
	Extension     string
	Debounce      time.Duration
}

// Watch observes the migration tree and the registry file until ctx is
// cancelled, calling run once after each debounced burst of relevant
// events. run is never called concurrently with itself.
//
// New directories created at runtime are automatically added to the watch
// list. The registry file is watched through its parent directory so that
// editors replacing the file on save are still seen.
func Watch(ctx context.Context, cfg Config, logger *slog.Logger, run func()) error {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	root, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("watch: resolve migrations dir: %w", err)
	}
	registry := ""
	if cfg.RegistryFile != "" {
		if registry, err = filepath.Abs(cfg.RegistryFile); err != nil {
			return fmt.Errorf("watch: resolve registry: %w", err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if registry != "" && !strings.HasPrefix(registry, root+string(os.PathSeparator)) {
		if err := w.Add(filepath.Dir(registry)); err != nil {
			return fmt.Errorf("watch: registry dir: %w", err)
		}
	}

	logger.Info("watcher: started", slog.String("root", root), slog.String("registry", registry))

	f := filter{root: root, registry: registry, ext: cfg.Extension}

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(cfg.Debounce)
			fire = timer.C
		} else {
			timer.Reset(cfg.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			run()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					schedule()
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 || !f.relevant(ev.Name) {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// filter decides which paths can affect a synchronize run.
type filter struct {
	root     string
	registry string
	ext      string
}

func (f filter) relevant(path string) bool {
	if path == f.registry {
		return true
	}
	if !strings.HasPrefix(path, f.root+string(os.PathSeparator)) {
		return false
	}
	ext := f.ext
	if ext == "" {
		ext = ".php"
	}
	return strings.HasSuffix(path, ext)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
