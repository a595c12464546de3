// Package native holds the link-time linkage paths.
//
// Three symbols are resolved by the linker rather than at runtime:
//
//   - add: C source embedded in this package's cgo preamble and compiled
//     as part of `go build`.
//   - staticlib_add: with `-tags extlink`, taken from libexternal_static.a
//     built by `ffibridge build`. Without the tag, staticlib.c is compiled
//     by cgo into the package archive instead. Either way the linker
//     resolves it under its unmangled name.
//   - cdylib_add: exported by libexternal_dy, linked at build time when the
//     binary is built with `-tags extlink` after `ffibridge build`.
//
// Every function uses the hardened ABI from internal/csrc/src/ffibridge.h:
// the buffer capacity travels with the pointer and the callee reports the
// length it needed, so an undersized buffer surfaces as
// ERR_501_BUFFER_OVERFLOW instead of a memory overrun.
package native

// Exported symbol names, one per linkage path. They must stay unique across
// every library linked into one binary.
const (
	SymbolSource  = "add"
	SymbolStatic  = "staticlib_add"
	SymbolDynamic = "cdylib_add"
)

// Origins embedded in the messages each symbol writes.
const (
	OriginSource  = "C source"
	OriginStatic  = "C staticlib"
	OriginDynamic = "C cdylib"
)
