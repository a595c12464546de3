//go:build !cgo || !extlink

package native

import (
	"errors"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// DynamicLinked reports whether libexternal_dy was linked at build time.
const DynamicLinked = false

// StaticArchive reports whether staticlib_add comes from the
// libexternal_static.a produced by `ffibridge build`. When false it comes
// from staticlib.c, which cgo archives with this package.
const StaticArchive = false

// DynamicAdd is unavailable unless the binary was built with -tags extlink.
func DynamicAdd(_, _ int32, _ *buffer.Buffer) (int32, error) {
	return 0, DynamicCheck()
}

// DynamicCheck reports why cdylib_add is not linked.
func DynamicCheck() error {
	return bridgeerrors.LinkError(SymbolDynamic, errors.New("built without -tags extlink")).
		WithSuggestion("Run 'ffibridge build' then 'go build -tags extlink ./cmd/ffibridge'")
}
