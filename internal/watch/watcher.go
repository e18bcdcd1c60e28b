// Package watch reruns generation when the sources of the annotated
// packages change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits for more events before
// running.
const DefaultDebounce = 200 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Dirs are the directories watched, usually the package directories.
	Dirs []string
	// Ignore lists base names whose changes never trigger a run, such as the
	// generated file itself.
	Ignore []string
	// Files lists paths watched besides the .go files of Dirs, such as the
	// config file.
	Files    []string
	Debounce time.Duration
	Logger   zerolog.Logger
}

// Watcher batches file system events and runs a callback once things
// settle.
type Watcher struct {
	opts    Options
	files   map[string]bool
	watcher *fsnotify.Watcher
}

// New creates a Watcher. It watches the directories of opts.Dirs and
// opts.Files; directories that are added more than once are watched once.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		opts:    opts,
		files:   make(map[string]bool, len(opts.Files)),
		watcher: fw,
	}

	dirs := slices.Clone(opts.Dirs)

	for _, f := range opts.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("absolute path: %w", err)
		}

		w.files[abs] = true
		dirs = append(dirs, filepath.Dir(abs))
	}

	slices.Sort(dirs)

	// Directories, not files: editors that save atomically replace the file.
	for _, dir := range slices.Compact(dirs) {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch directory %s: %w", dir, err)
		}
	}

	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls fn after every batch of relevant changes until ctx is done. An
// error from fn is logged and watching goes on.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	w.opts.Logger.Info().Strs("dirs", w.opts.Dirs).Msg("watching for changes")

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if !w.relevant(event) {
				continue
			}

			w.opts.Logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("source changed")

			timer.Reset(w.opts.Debounce)

		case <-timer.C:
			if err := fn(ctx); err != nil {
				w.opts.Logger.Error().Err(err).Msg("regeneration failed")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.opts.Logger.Error().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}

	if abs, err := filepath.Abs(event.Name); err == nil && w.files[abs] {
		return true
	}

	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, ".go") || strings.HasSuffix(base, "_test.go") {
		return false
	}

	if strings.HasSuffix(base, ".unformatted.go") {
		return false
	}

	return !slices.Contains(w.opts.Ignore, base)
}
