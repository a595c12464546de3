// Package csrc embeds the C sources of the external libraries so the build
// step can compile them from any installed binary, not only a source tree.
package csrc

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed src/*.c src/*.h
var sources embed.FS

// Library describes one external C library produced by the build step.
type Library struct {
	// Name is the artifact base name (libexternal_dy.so, libexternal_static.a).
	Name string
	// Sources are the translation units, relative to the extracted directory.
	Sources []string
	// Shared selects a shared object instead of an archive.
	Shared bool
	// Symbols are the functions the library exports with the add signature.
	Symbols []string
}

// Header is the public header shared by every library.
const Header = "ffibridge.h"

// RuntimeLibrary is the library the runtime path loads by default.
const RuntimeLibrary = "external_dy"

// Libraries lists the external libraries in build order.
func Libraries() []Library {
	return []Library{
		{
			Name:    "external_static",
			Sources: []string{"external_static.c"},
			Symbols: []string{"staticlib_add"},
		},
		{
			Name:    "external_dy",
			Sources: []string{"external_dy.c"},
			Shared:  true,
			Symbols: []string{"cdylib_add", "dyloading_add"},
		},
	}
}

// Lookup returns the library with the given name.
func Lookup(name string) (Library, bool) {
	for _, lib := range Libraries() {
		if lib.Name == name {
			return lib, true
		}
	}
	return Library{}, false
}

// read returns the content of one embedded source file.
func read(name string) ([]byte, error) {
	data, err := sources.ReadFile("src/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded source %s: %w", name, err)
	}
	return data, nil
}

// Extract writes every embedded source and header into dir.
func Extract(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create source directory: %w", err)
	}

	return fs.WalkDir(sources, "src", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := read(d.Name())
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, filepath.Base(path))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("write source %s: %w", dst, err)
		}
		return nil
	})
}
