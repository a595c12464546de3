package loader

import (
	"fmt"
	"log/slog"
	"sync"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// Library is a shared library opened at runtime.
type Library struct {
	path    string
	handle  uintptr
	strict  bool
	logger  *slog.Logger
	mu      sync.RWMutex
	closed  bool
	cleanup func()
}

// Option configures Open.
type Option func(*Library)

// WithStrictSignatures rejects symbols that export no signature tag.
func WithStrictSignatures(strict bool) Option {
	return func(l *Library) {
		l.strict = strict
	}
}

// WithLogger sets the logger used for load and resolve events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// withCleanup registers fn to run after the library is closed.
func withCleanup(fn func()) Option {
	return func(l *Library) {
		l.cleanup = fn
	}
}

// Open loads the shared library at path. A missing file, an invalid image
// or an OS rejection fail with ERR_401_LOAD_FAILED.
func Open(path string, opts ...Option) (*Library, error) {
	lib := &Library{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(lib)
	}

	if path == "" {
		return nil, bridgeerrors.LoadError(path, fmt.Errorf("empty library path"))
	}

	handle, err := openLibrary(path)
	if err != nil {
		if lib.cleanup != nil {
			lib.cleanup()
		}
		return nil, bridgeerrors.LoadError(path, err)
	}
	lib.handle = handle

	lib.logger.Debug("library opened", slog.String("path", path))
	return lib, nil
}

// Path returns the path the library was opened from.
func (l *Library) Path() string {
	return l.path
}

// Closed reports whether Close has been called.
func (l *Library) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Close waits for in-flight invocations to finish, then unloads the library.
// Subsequent calls return nil.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	err := closeLibrary(l.handle)
	l.handle = 0
	if l.cleanup != nil {
		l.cleanup()
	}
	l.logger.Debug("library closed", slog.String("path", l.path))
	if err != nil {
		return bridgeerrors.InternalError("failed to close library "+l.path, err)
	}
	return nil
}

// Has reports whether the library exports name.
func (l *Library) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	addr, err := lookupSymbol(l.handle, name)
	return err == nil && addr != 0
}

// Signature returns the signature tag exported for name, if any.
func (l *Library) Signature(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return "", false
	}
	return l.signatureLocked(name)
}

func (l *Library) signatureLocked(name string) (string, bool) {
	addr, err := lookupSymbol(l.handle, name+signatureSuffix)
	if err != nil || addr == 0 {
		return "", false
	}
	return readCString(addr)
}

func (l *Library) closedError() error {
	return bridgeerrors.New(bridgeerrors.ErrCodeLibraryClosed,
		"library "+l.path+" is closed", nil).
		WithDetail("path", l.path)
}

// checkSignature compares the exported tag of name with want. Called with
// the read lock held.
func (l *Library) checkSignature(name, want string) error {
	got, ok := l.signatureLocked(name)
	if !ok {
		if l.strict {
			return bridgeerrors.New(bridgeerrors.ErrCodeSignatureMismatch,
				fmt.Sprintf("symbol %s exports no signature tag", name), nil).
				WithDetail("expected", want).
				WithSuggestion("Export " + name + signatureSuffix + " or disable strict signatures")
		}
		l.logger.Warn("calling symbol without signature tag",
			slog.String("symbol", name),
			slog.String("assumed", want),
			slog.String("path", l.path))
		return nil
	}

	if got != want {
		return bridgeerrors.New(bridgeerrors.ErrCodeSignatureMismatch,
			fmt.Sprintf("symbol %s has signature %s, caller expects %s", name, got, want), nil).
			WithDetail("exported", got).
			WithDetail("expected", want).
			WithDetail("path", l.path)
	}
	return nil
}
