//go:build !cgo

package native

import (
	"errors"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// CgoEnabled reports whether the link-time paths were compiled in.
const CgoEnabled = false

var errNoCgo = errors.New("binary built with CGO_ENABLED=0")

// SourceAdd is unavailable without cgo.
func SourceAdd(_, _ int32, _ *buffer.Buffer) (int32, error) {
	return 0, SourceCheck()
}

// StaticAdd is unavailable without cgo.
func StaticAdd(_, _ int32, _ *buffer.Buffer) (int32, error) {
	return 0, StaticCheck()
}

// SourceCheck reports the missing inline C symbol.
func SourceCheck() error {
	return bridgeerrors.LinkError(SymbolSource, errNoCgo).
		WithSuggestion("Rebuild with CGO_ENABLED=1 and a C compiler on PATH")
}

// StaticCheck reports the missing archive symbol.
func StaticCheck() error {
	return bridgeerrors.LinkError(SymbolStatic, errNoCgo).
		WithSuggestion("Rebuild with CGO_ENABLED=1 and a C compiler on PATH")
}
