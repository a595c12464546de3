package loader

import (
	"fmt"
	"log/slog"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// Symbol is a function of Go type F resolved from a Library. It is valid
// only while the library is loaded.
type Symbol[F any] struct {
	lib       *Library
	name      string
	signature string
	fn        F
}

// Resolve looks up name in lib and binds it to the function type F.
//
// Errors: ERR_404 if lib is closed, ERR_402 if the symbol is missing,
// ERR_403 if the exported signature tag disagrees with F (or is absent in
// strict mode), ERR_601 if F cannot be expressed as a C signature.
func Resolve[F any](lib *Library, name string) (sym *Symbol[F], err error) {
	sig, err := signatureFor[F]()
	if err != nil {
		return nil, bridgeerrors.InternalError("cannot bind "+name, err)
	}

	lib.mu.RLock()
	defer lib.mu.RUnlock()

	if lib.closed {
		return nil, lib.closedError()
	}

	addr, err := lookupSymbol(lib.handle, name)
	if err == nil && addr == 0 {
		err = fmt.Errorf("symbol %s resolved to nil", name)
	}
	if err != nil {
		return nil, bridgeerrors.SymbolNotFoundError(name, lib.path, err)
	}

	if err := lib.checkSignature(name, sig); err != nil {
		return nil, err
	}

	// RegisterFunc panics on argument kinds it cannot marshal.
	defer func() {
		if r := recover(); r != nil {
			sym = nil
			err = bridgeerrors.InternalError("cannot bind "+name, fmt.Errorf("%v", r))
		}
	}()

	var fn F
	bindFunc(&fn, addr)

	lib.logger.Debug("symbol resolved",
		slog.String("symbol", name),
		slog.String("signature", sig),
		slog.String("path", lib.path))

	return &Symbol[F]{lib: lib, name: name, signature: sig, fn: fn}, nil
}

// Name returns the symbol name.
func (s *Symbol[F]) Name() string {
	return s.name
}

// Signature returns the signature derived from F.
func (s *Symbol[F]) Signature() string {
	return s.signature
}

// Library returns the owning library.
func (s *Symbol[F]) Library() *Library {
	return s.lib
}

// Invoke runs call with the bound function while holding the library's
// read lock, so Close cannot unload it mid-call. After Close it returns
// ERR_404_LIBRARY_CLOSED without calling.
func (s *Symbol[F]) Invoke(call func(F) error) error {
	s.lib.mu.RLock()
	defer s.lib.mu.RUnlock()

	if s.lib.closed {
		return s.lib.closedError()
	}
	return call(s.fn)
}
