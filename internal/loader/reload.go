package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// ReloadOptions configures a Reloader.
type ReloadOptions struct {
	// Debounce is how long the file must stay quiet before a reload.
	Debounce time.Duration
	// OnReload is called after each successful swap with the new library
	// and its generation (1 for the initial load).
	OnReload func(lib *Library, generation int)
	// OnError receives reload and watch failures. The previous generation
	// stays active.
	OnError func(err error)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// LoaderOptions are passed to every Open.
	LoaderOptions []Option
}

// DefaultReloadOptions returns the default reload options.
func DefaultReloadOptions() ReloadOptions {
	return ReloadOptions{
		Debounce: 200 * time.Millisecond,
	}
}

// WithDefaults fills zero fields with defaults.
func (o ReloadOptions) WithDefaults() ReloadOptions {
	if o.Debounce <= 0 {
		o.Debounce = DefaultReloadOptions().Debounce
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Reloader keeps the latest build of a library loaded and swaps it in when
// the file changes on disk.
//
// Each generation is loaded from a private copy of the file: most dynamic
// loaders return the already-mapped image for a path they have open, so
// reopening the original path would hand back the stale code.
type Reloader struct {
	path      string
	opts      ReloadOptions
	shadowDir string

	reloadMu sync.Mutex

	mu         sync.RWMutex
	current    *Library
	generation int
	closed     bool
}

// NewReloader loads the first generation of the library at path.
func NewReloader(path string, opts ReloadOptions) (*Reloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, bridgeerrors.LoadError(path, err)
	}

	shadowDir, err := os.MkdirTemp("", "ffibridge-reload-*")
	if err != nil {
		return nil, bridgeerrors.LoadError(path, fmt.Errorf("create shadow directory: %w", err))
	}

	r := &Reloader{
		path:      abs,
		opts:      opts.WithDefaults(),
		shadowDir: shadowDir,
	}
	if _, err := r.Reload(); err != nil {
		_ = os.RemoveAll(shadowDir)
		return nil, err
	}
	return r, nil
}

// Path returns the watched library path.
func (r *Reloader) Path() string {
	return r.path
}

// Current returns the active library generation.
func (r *Reloader) Current() *Library {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Generation returns the number of successful loads.
func (r *Reloader) Generation() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Reload opens a fresh copy of the library and makes it current. The
// previous generation is closed after the swap, once its in-flight calls
// have returned. On failure the previous generation stays current.
func (r *Reloader) Reload() (*Library, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.mu.RLock()
	closed, next := r.closed, r.generation+1
	r.mu.RUnlock()
	if closed {
		return nil, bridgeerrors.New(bridgeerrors.ErrCodeLibraryClosed, "reloader is closed", nil)
	}

	shadow := filepath.Join(r.shadowDir, fmt.Sprintf("%d-%s", next, filepath.Base(r.path)))
	if err := copyFile(r.path, shadow); err != nil {
		return nil, bridgeerrors.LoadError(r.path, err)
	}

	opts := append([]Option{}, r.opts.LoaderOptions...)
	opts = append(opts, withCleanup(func() { _ = os.Remove(shadow) }))
	lib, err := Open(shadow, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = lib.Close()
		return nil, bridgeerrors.New(bridgeerrors.ErrCodeLibraryClosed, "reloader is closed", nil)
	}
	old := r.current
	r.current = lib
	r.generation++
	generation := r.generation
	r.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			r.opts.Logger.Warn("failed to close previous generation",
				slog.String("path", r.path),
				slog.String("error", err.Error()))
		}
	}

	r.opts.Logger.Info("library loaded",
		slog.String("path", r.path),
		slog.Int("generation", generation))
	if r.opts.OnReload != nil {
		r.opts.OnReload(lib, generation)
	}
	return lib, nil
}

// Run watches the library file and reloads it after writes settle. It
// blocks until ctx is cancelled or the watcher fails to start.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// Watch the directory: builds often replace the file by rename, which
	// drops a watch placed on the file itself.
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.opts.Debounce)
			} else {
				timer.Reset(r.opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if _, err := os.Stat(r.path); err != nil {
				continue
			}
			if _, err := r.Reload(); err != nil {
				r.reportError(err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.reportError(err)
		}
	}
}

// Close unloads the current generation and removes the private copies.
func (r *Reloader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	lib := r.current
	r.current = nil
	r.mu.Unlock()

	var err error
	if lib != nil {
		err = lib.Close()
	}
	if rmErr := os.RemoveAll(r.shadowDir); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

func (r *Reloader) reportError(err error) {
	r.opts.Logger.Warn("library reload failed",
		slog.String("path", r.path),
		slog.String("error", err.Error()))
	if r.opts.OnError != nil {
		r.opts.OnError(err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
