// Package compute is the Go rendition of the native computation unit:
// add two signed 32-bit integers, greet the label found in the caller's
// buffer, and overwrite the buffer with a message carrying the label and
// the sum.
//
// The C rendition lives in internal/csrc and internal/native; both produce
// byte-identical messages so every linkage path can be checked the same way.
package compute

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unsafe"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
)

// Sum adds a and b with two's-complement wraparound.
func Sum(a, b int32) int32 {
	return a + b
}

// Greeting is the diagnostic line emitted before a call returns.
func Greeting(origin, label string) string {
	return fmt.Sprintf("[%s] Hello %s", origin, label)
}

// Origin extracts "origin" from a message of the form "[origin] ...".
func Origin(msg string) (string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", false
	}
	end := strings.IndexByte(msg, ']')
	if end < 1 {
		return "", false
	}
	return msg[1:end], true
}

// Format renders the message written back into the caller's buffer.
func Format(origin, label string, a, b, sum int32) string {
	return fmt.Sprintf("[%s] Hello %s, the result (%d + %d) is %d!", origin, label, a, b, sum)
}

// Overhead is the number of message bytes that are not the label, i.e. the
// smallest capacity that fits a call is len(label) + Overhead(...) + 1.
func Overhead(origin string, a, b int32) int {
	return len(Format(origin, "", a, b, Sum(a, b)))
}

// Compute runs the unit against a Go-owned buffer. The greeting goes to diag
// (nil discards it). On overflow the sum is still returned together with
// ERR_501_BUFFER_OVERFLOW and the buffer keeps the label.
func Compute(a, b int32, buf *buffer.Buffer, origin string, diag io.Writer) (int32, error) {
	label := buf.String()
	sum := Sum(a, b)

	if diag != nil {
		_, _ = fmt.Fprintln(diag, Greeting(origin, label))
	}

	if err := buf.Fill(Format(origin, label, a, b, sum)); err != nil {
		return sum, err
	}
	return sum, nil
}

// ComputeRaw runs the unit against foreign memory using the hardened C
// contract: p points at capacity bytes holding a NUL-terminated label, the
// full message length is stored in *needed (when non-nil), and the message
// is written only if it fits with its terminator.
//
// This backs the //export functions of the Go-built C libraries.
func ComputeRaw(a, b int32, p unsafe.Pointer, capacity uintptr, needed *uintptr, origin string, diag io.Writer) int32 {
	sum := Sum(a, b)
	if p == nil || capacity == 0 {
		if needed != nil {
			*needed = 0
		}
		return sum
	}

	region := unsafe.Slice((*byte)(p), capacity)
	label := region
	if i := bytes.IndexByte(region, 0); i >= 0 {
		label = region[:i]
	}

	if diag != nil {
		_, _ = fmt.Fprintln(diag, Greeting(origin, string(label)))
	}

	msg := Format(origin, string(label), a, b, sum)
	if needed != nil {
		*needed = uintptr(len(msg))
	}
	if uintptr(len(msg))+1 > capacity {
		return sum
	}

	n := copy(region, msg)
	region[n] = 0
	return sum
}
