package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/internal/config"
	"github.com/Aman-CERP/ffibridge/internal/native"
	"github.com/Aman-CERP/ffibridge/internal/toolchain"
)

// isolate points HOME and XDG_CONFIG_HOME at a temp dir, clears every
// FFIBRIDGE_* override and returns a fresh project directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("NO_COLOR", "1")
	for _, name := range config.EnvVars() {
		t.Setenv(name, "")
	}
	return t.TempDir()
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func requireCgo(t *testing.T) {
	t.Helper()
	if !native.CgoEnabled {
		t.Skip("binary built without cgo")
	}
}

// buildLibraries runs `ffibridge build` into <project>/build, skipping the
// test when no C compiler is available.
func buildLibraries(t *testing.T, project string) string {
	t.Helper()
	if _, err := toolchain.FindCompiler(""); err != nil {
		t.Skip("no C compiler available")
	}
	_, stderr, err := execute(t, "build", "-C", project, "--no-wait")
	require.NoError(t, err, stderr)
	return toolchain.NewBuilder(filepath.Join(project, "build"), nil).RuntimeLibraryPath()
}
