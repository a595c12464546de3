//go:build cgo

package native

/*
#include <inttypes.h>
#include <stdio.h>
#include <stdlib.h>
#include <string.h>

static int32_t add(int32_t a, int32_t b, char *buf, size_t capacity, size_t *needed)
{
	const char *fmt = "[C source] Hello %s, the result (%" PRId32 " + %" PRId32 ") is %" PRId32 "!";
	int32_t sum = (int32_t)((uint32_t)a + (uint32_t)b);
	size_t len;
	char *label;
	int n;

	*needed = 0;
	if (buf == NULL || capacity == 0)
		return sum;

	len = strnlen(buf, capacity);
	label = malloc(len + 1);
	if (label == NULL)
		return sum;
	memcpy(label, buf, len);
	label[len] = '\0';

	n = snprintf(NULL, 0, fmt, label, a, b, sum);
	if (n >= 0) {
		*needed = (size_t)n;
		if ((size_t)n + 1 <= capacity)
			snprintf(buf, capacity, fmt, label, a, b, sum);
	}

	free(label);
	return sum;
}

extern int32_t staticlib_add(int32_t a, int32_t b, char *buf, size_t capacity, size_t *needed);
*/
import "C"

import (
	"unsafe"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
)

// CgoEnabled reports whether the link-time paths were compiled in.
const CgoEnabled = true

// SourceAdd calls the C function compiled from this package's preamble.
func SourceAdd(a, b int32, buf *buffer.Buffer) (int32, error) {
	var needed C.size_t
	sum := C.add(C.int32_t(a), C.int32_t(b), (*C.char)(unsafe.Pointer(buf.Ptr())), C.size_t(buf.Capacity()), &needed)
	return int32(sum), buf.CheckFit(int(needed))
}

// StaticAdd calls staticlib_add, resolved from the package archive.
func StaticAdd(a, b int32, buf *buffer.Buffer) (int32, error) {
	var needed C.size_t
	sum := C.staticlib_add(C.int32_t(a), C.int32_t(b), (*C.char)(unsafe.Pointer(buf.Ptr())), C.size_t(buf.Capacity()), &needed)
	return int32(sum), buf.CheckFit(int(needed))
}

// SourceCheck always succeeds when cgo is enabled.
func SourceCheck() error { return nil }

// StaticCheck always succeeds when cgo is enabled.
func StaticCheck() error { return nil }
