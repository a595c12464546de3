// Package loader opens shared libraries at runtime and calls their exported
// functions through purego, without cgo.
//
// A Library moves through three states: not yet opened, loaded, closed.
// Symbols resolved from a Library are only valid while it is loaded; after
// Close every Invoke fails with ERR_404_LIBRARY_CLOSED instead of calling
// into unmapped memory.
//
// Signatures are checked when the library cooperates: for a symbol "foo"
// the library may export a NUL-terminated string "foo_signature" such as
// "i32(i32,i32,ptr,usize,ptr)". Resolve compares it with the signature
// derived from the Go function type. Libraries that export no tag are
// trusted in lenient mode and rejected in strict mode.
package loader
