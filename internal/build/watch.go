package build

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch rebuilds whenever the source tree changes, until ctx is done.
// Changes arriving within debounce of each other trigger a single build. A
// failed build is logged and the watch continues.
func (p *Pipeline) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := p.addWatches(watcher); err != nil {
		return err
	}

	if err := p.Run(ctx); err != nil {
		p.logger.WithError(err).Error("Initial build failed")
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if p.ignored(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// New directories need their own watch
				_ = p.addWatchesBelow(watcher, event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.WithError(err).Warn("Watcher error")

		case <-fire:
			fire = nil
			p.logger.Info("Source changed, rebuilding")
			if err := p.Run(ctx); err != nil {
				p.logger.WithError(err).Error("Rebuild failed")
			}
		}
	}
}

func (p *Pipeline) addWatches(watcher *fsnotify.Watcher) error {
	return p.addWatchesBelow(watcher, p.opts.Source)
}

func (p *Pipeline) addWatchesBelow(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != p.opts.Source && p.ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// ignored reports whether a change to path must not trigger a build
func (p *Pipeline) ignored(path string) bool {
	target, err := filepath.Abs(p.opts.Target)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if abs == target || strings.HasPrefix(abs, target+string(filepath.Separator)) {
		return true
	}

	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
