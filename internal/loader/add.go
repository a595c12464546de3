package loader

import (
	"runtime"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
)

// AddFunc is the hardened add signature "i32(i32,i32,ptr,usize,ptr)".
type AddFunc func(a, b int32, buf *byte, capacity uintptr, needed *uintptr) int32

// PlainFunc is the two-integer signature "i32(i32,i32)".
type PlainFunc func(a, b int32) int32

// CallAdd invokes sym against buf. The sum is returned even when the
// message did not fit; in that case the error is ERR_501_BUFFER_OVERFLOW
// and buf still holds the label.
func CallAdd(sym *Symbol[AddFunc], a, b int32, buf *buffer.Buffer) (int32, error) {
	var (
		sum    int32
		needed uintptr
	)
	err := sym.Invoke(func(fn AddFunc) error {
		sum = fn(a, b, buf.Ptr(), uintptr(buf.Capacity()), &needed)
		runtime.KeepAlive(buf)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := buf.CheckFit(int(needed)); err != nil {
		return sum, err
	}
	return sum, nil
}

// CallPlain invokes a two-integer symbol.
func CallPlain(sym *Symbol[PlainFunc], a, b int32) (int32, error) {
	var sum int32
	err := sym.Invoke(func(fn PlainFunc) error {
		sum = fn(a, b)
		return nil
	})
	return sum, err
}
