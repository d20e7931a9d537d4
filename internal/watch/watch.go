// Package watch reports changes to FITS files under a folder tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/verte-zerg/darkcmp/internal/ingest"
)

// DefaultDebounce groups bursts of events, such as a capture program
// writing a batch of frames, into one change.
const DefaultDebounce = 500 * time.Millisecond

// Options controls a watch.
type Options struct {
	Extensions []string
	Debounce   time.Duration
	// OnError receives watcher errors; the watch keeps running.
	OnError func(error)
}

// Watch monitors root and its subdirectories and calls onChange once per
// burst of FITS file creations, writes, removals, or renames. New
// subdirectories are watched as they appear. It runs until ctx is cancelled.
func Watch(ctx context.Context, root string, opts Options, onChange func()) error {
	exts := ingest.NormalizeExtensions(opts.Extensions)
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			// Best-effort watcher close.
			_ = cerr
		}
	}()

	if err := addTree(watcher, root); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
		} else {
			timer.Reset(debounce)
		}
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := addTree(watcher, event.Name); err != nil {
					report(opts.OnError, err)
				}
				// Frames may have landed before the directory was added.
				schedule()
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if ingest.Matches(event.Name, exts) {
				schedule()
			}

		case <-fire:
			fire = nil
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(opts.OnError, err)
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func report(onError func(error), err error) {
	if onError != nil {
		onError(err)
	}
}
