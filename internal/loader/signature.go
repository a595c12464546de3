package loader

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// maxSignatureLen bounds the scan for the terminator of a signature tag.
const maxSignatureLen = 256

// signatureSuffix is appended to a symbol name to find its signature tag.
const signatureSuffix = "_signature"

// SignatureOf renders the C signature of a Go function type in the tag
// notation, e.g. func(int32, int32, *byte, uintptr, *uintptr) int32 becomes
// "i32(i32,i32,ptr,usize,ptr)".
func SignatureOf(t reflect.Type) (string, error) {
	if t == nil || t.Kind() != reflect.Func {
		return "", fmt.Errorf("not a function type: %v", t)
	}
	if t.IsVariadic() {
		return "", fmt.Errorf("variadic functions are not supported: %v", t)
	}
	if t.NumOut() > 1 {
		return "", fmt.Errorf("at most one result is supported: %v", t)
	}

	ret := "void"
	if t.NumOut() == 1 {
		code, err := typeCode(t.Out(0))
		if err != nil {
			return "", err
		}
		ret = code
	}

	args := make([]string, t.NumIn())
	for i := range args {
		code, err := typeCode(t.In(i))
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = code
	}

	return ret + "(" + strings.Join(args, ",") + ")", nil
}

// signatureFor is SignatureOf for the type parameter F.
func signatureFor[F any]() (string, error) {
	return SignatureOf(reflect.TypeOf((*F)(nil)).Elem())
}

func typeCode(t reflect.Type) (string, error) {
	switch t.Kind() {
	case reflect.Int8:
		return "i8", nil
	case reflect.Int16:
		return "i16", nil
	case reflect.Int32:
		return "i32", nil
	case reflect.Int64:
		return "i64", nil
	case reflect.Uint8:
		return "u8", nil
	case reflect.Uint16:
		return "u16", nil
	case reflect.Uint32:
		return "u32", nil
	case reflect.Uint64:
		return "u64", nil
	case reflect.Int:
		return "isize", nil
	case reflect.Uint, reflect.Uintptr:
		return "usize", nil
	case reflect.Float32:
		return "f32", nil
	case reflect.Float64:
		return "f64", nil
	case reflect.Bool:
		return "bool", nil
	case reflect.String:
		return "str", nil
	case reflect.Pointer, reflect.UnsafePointer:
		return "ptr", nil
	default:
		return "", fmt.Errorf("unsupported type %v", t)
	}
}

// readCString copies the NUL-terminated string at addr, scanning at most
// maxSignatureLen bytes. ok is false when no terminator was found.
func readCString(addr uintptr) (s string, ok bool) {
	if addr == 0 {
		return "", false
	}
	// Converting through a pointer-to-uintptr keeps the conversion opaque to
	// the uintptr-to-Pointer rule; addr is C memory, never moved by the GC.
	p := *(*unsafe.Pointer)(unsafe.Pointer(&addr))
	raw := unsafe.Slice((*byte)(p), maxSignatureLen)
	for i, c := range raw {
		if c == 0 {
			return string(raw[:i]), true
		}
	}
	return "", false
}
