package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/internal/csrc"
	"github.com/Aman-CERP/ffibridge/internal/toolchain"
)

// buildExternalDy compiles libexternal_dy into a temp dir and returns its
// path. Skips the test when no C compiler is available.
func buildExternalDy(t *testing.T) string {
	t.Helper()
	cc, err := toolchain.FindCompiler("")
	if err != nil {
		t.Skipf("no C compiler available: %v", err)
	}

	b := toolchain.NewBuilder(t.TempDir(), cc)
	src := t.TempDir()
	require.NoError(t, csrc.Extract(src))
	art, err := b.BuildShared(context.Background(), "external_dy", src, filepath.Join(src, "external_dy.c"))
	require.NoError(t, err)
	return art.Path
}

// buildUntagged compiles a library exporting "untagged" with no signature tag.
func buildUntagged(t *testing.T) string {
	t.Helper()
	cc, err := toolchain.FindCompiler("")
	if err != nil {
		t.Skipf("no C compiler available: %v", err)
	}

	src := t.TempDir()
	file := filepath.Join(src, "untagged.c")
	require.NoError(t, os.WriteFile(file, []byte(
		"#include <stdint.h>\nint32_t untagged(int32_t a, int32_t b) { return a + b; }\n"), 0o644))

	art, err := toolchain.NewBuilder(t.TempDir(), cc).BuildShared(context.Background(), "untagged", src, file)
	require.NoError(t, err)
	return art.Path
}
