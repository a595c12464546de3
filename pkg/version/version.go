// Package version provides build and version information for ffibridge.
package version

import (
	"fmt"
	"runtime"

	"github.com/Aman-CERP/ffibridge/internal/native"
)

// Version is set via ldflags at build time:
//
//	-X github.com/Aman-CERP/ffibridge/pkg/version.Version=$(VERSION)
var Version = "dev"

var (
	// Commit is the git commit hash, set via ldflags.
	Commit = "unknown"

	// Date is the RFC3339 build date, set via ldflags.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	Date          string `json:"date"`
	GoVersion     string `json:"go_version"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Cgo           bool   `json:"cgo"`
	DynamicLinked bool   `json:"dynamic_linked"`
}

// String returns a one-line version string with build details.
func String() string {
	return fmt.Sprintf("ffibridge %s (commit: %s, built: %s, go: %s, cgo: %t, extlink: %t)",
		Version, Commit, Date, GoVersion, native.CgoEnabled, native.DynamicLinked)
}

// Short returns just the version string.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:       Version,
		Commit:        Commit,
		Date:          Date,
		GoVersion:     GoVersion,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		Cgo:           native.CgoEnabled,
		DynamicLinked: native.DynamicLinked,
	}
}

// Fingerprint identifies this binary's build configuration. It changes
// whenever a rebuild could change what the host toolchain must provide.
func Fingerprint() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/cgo=%t/extlink=%t",
		Version, Commit, GoVersion, runtime.GOOS, runtime.GOARCH,
		native.CgoEnabled, native.DynamicLinked)
}
