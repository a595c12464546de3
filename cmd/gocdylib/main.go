// Command gocdylib is built with -buildmode=c-shared into libgocdylib, a
// shared library exporting gocdylib_add with the hardened add ABI for C
// hosts.
//
// The library embeds its own Go runtime, so it is meant for non-Go hosts;
// loading it into another Go process is unsupported.
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
const Origin = "Go cdylib"

//export gocdylib_add
func gocdylib_add(a, b C.int32_t, buf *C.char, capacity C.size_t, needed *C.size_t) C.int32_t {
	return C.int32_t(compute.ComputeRaw(int32(a), int32(b), unsafe.Pointer(buf),
		uintptr(capacity), (*uintptr)(unsafe.Pointer(needed)), Origin, os.Stdout))
}

func main() {}
