package toolchain

import (
	"fmt"
	"runtime"
)

// Kind is the type of library artifact a build step produces.
type Kind int

const (
	// Static is an archive resolved and copied into the consumer at link time.
	Static Kind = iota
	// Shared is a shared object loaded at program start or on demand.
	Shared
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Shared:
		return "shared"
	default:
		return "unknown"
	}
}

// GoBuildMode returns the -buildmode that produces this kind from a Go main package.
func (k Kind) GoBuildMode() string {
	if k == Shared {
		return "c-shared"
	}
	return "c-archive"
}

// ArtifactName returns the platform file name for a library:
//
//	static: libNAME.a (unix), NAME.lib (windows)
//	shared: libNAME.so (linux and other unix), libNAME.dylib (darwin), NAME.dll (windows)
func ArtifactName(name string, kind Kind, goos string) string {
	switch kind {
	case Static:
		if goos == "windows" {
			return name + ".lib"
		}
		return "lib" + name + ".a"
	case Shared:
		switch goos {
		case "windows":
			return name + ".dll"
		case "darwin", "ios":
			return "lib" + name + ".dylib"
		default:
			return "lib" + name + ".so"
		}
	default:
		panic(fmt.Sprintf("toolchain: unknown artifact kind %d", int(kind)))
	}
}

// HostArtifactName is ArtifactName for the running platform.
func HostArtifactName(name string, kind Kind) string {
	return ArtifactName(name, kind, runtime.GOOS)
}
