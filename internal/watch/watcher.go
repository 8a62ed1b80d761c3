// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a task when the project's sources change.
//
// Filesystem events are filtered through doublestar patterns and pushed into
// a capacity-one queue. A single consumer goroutine drains the queue and
// invokes the callback, so two runs never overlap: changes that arrive while
// a run is in flight collapse into exactly one follow-up run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores are excluded on top of Config.Ignore: VCS metadata, editor
// swap and backup files, OS metadata.
var defaultIgnores = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.#*",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns select the paths (relative to BaseDir, slash-separated)
		// that trigger a run. Empty means every non-ignored path.
		Patterns []string

		// Ignore lists additional patterns that never trigger a run, such as
		// the staging directory.
		Ignore []string

		// Debounce delays a run until events have been quiet for this long.
		// Zero triggers on the first event of a burst.
		Debounce time.Duration

		// ClearScreen writes an ANSI clear sequence to Stdout before each run.
		ClearScreen bool

		// SkipInitialRun suppresses the run performed when watching starts.
		SkipInitialRun bool

		// BaseDir is the watched root. Empty means the working directory.
		BaseDir string

		// OnChange receives the sorted set of changed paths, or nil for the
		// initial run. Errors are logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error

		Stdout io.Writer
		// Stderr receives log output when Logger is nil.
		Stderr io.Writer
		Logger *log.Logger
	}

	// Watcher monitors a directory tree. Run may be called once.
	Watcher struct {
		cfg     Config
		fsw     *fsnotify.Watcher
		ignores []string
		stdout  io.Writer
		logger  *log.Logger
		baseDir string
		started atomic.Bool

		mu      sync.Mutex
		pending map[string]struct{}
		queue   chan struct{}
	}
)

// New resolves BaseDir, validates every pattern and registers all
// non-ignored directories below BaseDir with fsnotify.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		stderr := cfg.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		logger = log.NewWithOptions(stderr, log.Options{Prefix: "watch"})
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		ignores: slices.Concat(defaultIgnores, cfg.Ignore),
		stdout:  stdout,
		logger:  logger,
		baseDir: absBase,
		pending: make(map[string]struct{}),
		queue:   make(chan struct{}, 1),
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// BaseDir returns the absolute watched root.
func (w *Watcher) BaseDir() string { return w.baseDir }

// Run blocks until ctx is canceled or fsnotify reports a fatal error. A run
// in progress when ctx is canceled is awaited before Run returns. Clean
// cancellation yields nil.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "err", err)
		}
	}()

	runCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Go(func() { w.consume(runCtx) })
	defer func() {
		stop()
		wg.Wait()
	}()

	if !w.cfg.SkipInitialRun {
		w.signal()
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			rel = filepath.ToSlash(rel)
			if w.isIgnored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if !w.matchesPatterns(rel) {
				continue
			}

			w.mu.Lock()
			w.pending[rel] = struct{}{}
			w.mu.Unlock()

			switch {
			case w.cfg.Debounce <= 0:
				w.signal()
			case debounce == nil:
				debounce = time.AfterFunc(w.cfg.Debounce, w.signal)
			default:
				debounce.Reset(w.cfg.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// signal enqueues a run unless one is already queued.
func (w *Watcher) signal() {
	select {
	case w.queue <- struct{}{}:
	default:
	}
}

// consume is the only goroutine that invokes OnChange.
func (w *Watcher) consume(ctx context.Context) {
	initial := !w.cfg.SkipInitialRun
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.queue:
		}

		w.mu.Lock()
		changed := slices.Sorted(maps.Keys(w.pending))
		clear(w.pending)
		w.mu.Unlock()

		if len(changed) == 0 && !initial {
			continue
		}
		initial = false
		if ctx.Err() != nil {
			return
		}

		if w.cfg.ClearScreen {
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}
		if w.cfg.OnChange == nil {
			continue
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("run failed, waiting for changes", "err", err)
		}
	}
}

func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil //nolint:nilerr // keep watching the rest of the tree
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // not below the base directory
		}
		if rel != "." && w.isIgnoredDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || w.isIgnoredDir(filepath.ToSlash(rel)) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("add new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) isIgnoredDir(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if doublestar.MatchUnvalidated(pat, rel) {
			return true
		}
	}
	return false
}

// isFatal reports whether an fsnotify error means events are being lost.
func isFatal(err error) bool {
	for _, errno := range fatalErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}
