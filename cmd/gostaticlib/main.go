// Command gostaticlib is built with -buildmode=c-archive into
// libgostaticlib.a, exporting gostaticlib_add with the hardened add ABI
// for C programs that link it statically.
package main

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"os"
	"unsafe"

	"github.com/Aman-CERP/ffibridge/internal/compute"
)

// Origin tags messages written by this library.
const Origin = "Go staticlib"

//export gostaticlib_add
func gostaticlib_add(a, b C.int32_t, buf *C.char, capacity C.size_t, needed *C.size_t) C.int32_t {
	return C.int32_t(compute.ComputeRaw(int32(a), int32(b), unsafe.Pointer(buf),
		uintptr(capacity), (*uintptr)(unsafe.Pointer(needed)), Origin, os.Stdout))
}

func main() {}
