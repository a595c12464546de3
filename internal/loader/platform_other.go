//go:build !(darwin || freebsd || linux || netbsd || windows)

package loader

import (
	"fmt"
	"runtime"
)

var errUnsupported = fmt.Errorf("runtime loading is not supported on %s", runtime.GOOS)

func openLibrary(string) (uintptr, error) {
	return 0, errUnsupported
}

func lookupSymbol(uintptr, string) (uintptr, error) {
	return 0, errUnsupported
}

func closeLibrary(uintptr) error {
	return errUnsupported
}

func bindFunc(any, uintptr) {
	panic(errUnsupported)
}
