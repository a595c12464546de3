//go:build cgo && extlink

package native

/*
#cgo CFLAGS: -I${SRCDIR}/../csrc/src
#cgo LDFLAGS: ${SRCDIR}/../../build/lib/libexternal_static.a
#cgo LDFLAGS: -L${SRCDIR}/../../build/lib -lexternal_dy -Wl,-rpath,${SRCDIR}/../../build/lib
#include "ffibridge.h"

extern int32_t cdylib_add(int32_t a, int32_t b, char *buf, size_t capacity, size_t *needed);
*/
import "C"

import (
	"unsafe"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
)

// DynamicLinked reports whether libexternal_dy was linked at build time.
const DynamicLinked = true

// StaticArchive reports whether staticlib_add comes from the
// libexternal_static.a produced by `ffibridge build`.
const StaticArchive = true

// DynamicAdd calls cdylib_add through the shared library linked at build time.
func DynamicAdd(a, b int32, buf *buffer.Buffer) (int32, error) {
	var needed C.size_t
	sum := C.cdylib_add(C.int32_t(a), C.int32_t(b), (*C.char)(unsafe.Pointer(buf.Ptr())), C.size_t(buf.Capacity()), &needed)
	return int32(sum), buf.CheckFit(int(needed))
}

// DynamicCheck always succeeds in extlink builds.
func DynamicCheck() error { return nil }
