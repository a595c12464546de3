package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/internal/config"
	"github.com/Aman-CERP/ffibridge/internal/driver"
	"github.com/Aman-CERP/ffibridge/internal/preflight"
	"github.com/Aman-CERP/ffibridge/pkg/version"
)

const (
	sourceBlock = "[Go] Calling function in C source code\n" +
		"[C source] Hello Lucy\n" +
		"[C source] Hello Lucy, the result (1 + 2) is 3!\n" +
		"[Go] Result from C source code: 3\n\n"
	staticBlock = "[Go] Calling function in static library\n" +
		"[C staticlib] Hello Chen\n" +
		"[C staticlib] Hello Chen, the result (3 + 4) is 7!\n" +
		"[Go] Result from static library: 7\n\n"
	runtimeBlock = "[Go] Calling function in dynamic loading library\n" +
		"[External dyloading] Hello Jack\n" +
		"[External dyloading] Hello Jack, the result (8 + 9) is 17!\n" +
		"[Go] Result from dynamic loading library: 17\n\n"
)

func TestRun_LinkedPaths(t *testing.T) {
	requireCgo(t)
	project := isolate(t)

	// When: running only the paths compiled into the binary
	out, _, err := execute(t, "run", "-C", project, "--skip-check", "--no-history",
		"--path", "source", "--path", "static")

	// Then: both reports are printed in order
	require.NoError(t, err)
	assert.Equal(t, sourceBlock+staticBlock, out)
}

func TestRun_AllPaths(t *testing.T) {
	requireCgo(t)
	project := isolate(t)
	buildLibraries(t, project)

	// When: running the reference calls
	out, _, err := execute(t, "run", "-C", project, "--skip-check", "--no-history")

	// Then: every available path reports, the dynamic one is skipped or linked
	require.NoError(t, err)
	assert.Contains(t, out, sourceBlock)
	assert.Contains(t, out, staticBlock)
	assert.Contains(t, out, runtimeBlock)
	assert.Contains(t, out, "dynamic library")
}

func TestRun_JSONAndHistory(t *testing.T) {
	requireCgo(t)
	project := isolate(t)

	// Given: a run recorded in history
	out, _, err := execute(t, "run", "-C", project, "--skip-check", "--json", "--path", "source")
	require.NoError(t, err)

	var results []driver.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, driver.StatusOK, results[0].Status)
	assert.Equal(t, int32(3), results[0].Sum)
	assert.Equal(t, "[C source] Hello Lucy, the result (1 + 2) is 3!", results[0].Message)

	// When: listing history
	out, _, err = execute(t, "history", "-C", project, "--json")
	require.NoError(t, err)

	// Then: the call is there with the same run ID
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, results[0].RunID, entries[0]["run_id"])
	assert.Equal(t, "source", entries[0]["path"])

	// And: stats count it
	out, _, err = execute(t, "history", "-C", project, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "source")

	// And: pruning to zero removes it
	out, _, err = execute(t, "history", "-C", project, "--prune", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 entries")

	out, _, err = execute(t, "history", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, out, "No results recorded yet")
}

func TestRun_BufferTooSmall(t *testing.T) {
	requireCgo(t)
	project := isolate(t)

	// When: the buffer holds the label but not the message
	_, _, err := execute(t, "run", "-C", project, "--skip-check", "--no-history",
		"--path", "source", "--capacity", "16")

	// Then: the run fails with an overflow
	assert.ErrorContains(t, err, "ERR_501")
}

func TestRun_ConfiguredCalls(t *testing.T) {
	requireCgo(t)
	project := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(project, ".ffibridge.yaml"), []byte(`
driver:
  calls:
    - path: static
      label: Ada
      a: 2147483647
      b: 1
`), 0o644))

	out, _, err := execute(t, "run", "-C", project, "--skip-check", "--no-history")
	require.NoError(t, err)
	assert.Contains(t, out, "[C staticlib] Hello Ada, the result (2147483647 + 1) is -2147483648!")
	assert.Contains(t, out, "[Go] Result from static library: -2147483648")
}

func TestRun_GoBaselinePath(t *testing.T) {
	// Given: a project calling only the in-process Go path
	project := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(project, ".ffibridge.yaml"), []byte(`
driver:
  calls:
    - path: go
      label: Ada
      a: 5
      b: 6
`), 0o644))

	// When: running
	out, _, err := execute(t, "run", "-C", project, "--skip-check", "--no-history")

	// Then: the report has the same four-line shape as the C paths
	require.NoError(t, err)
	assert.Equal(t, "[Go] Calling function in Go code\n"+
		"[Go] Hello Ada\n"+
		"[Go] Hello Ada, the result (5 + 6) is 11!\n"+
		"[Go] Result from Go code: 11\n\n", out)
}

func TestRun_MissingRuntimeLibraryFails(t *testing.T) {
	requireCgo(t)
	project := isolate(t)

	_, _, err := execute(t, "run", "-C", project, "--skip-check", "--no-history",
		"--path", "runtime", "--library", filepath.Join(project, "missing.so"))
	assert.ErrorContains(t, err, "ERR_401")
}

func TestRun_FirstRunCheck(t *testing.T) {
	requireCgo(t)
	project := isolate(t)
	buildLibraries(t, project)
	buildDir := filepath.Join(project, "build")
	require.True(t, preflight.NeedsCheck(buildDir, version.Fingerprint()))

	// When: running without --skip-check
	_, stderr, err := execute(t, "run", "-C", project, "--no-history", "--path", "source")

	// Then: the checks pass once and are remembered
	require.NoError(t, err, stderr)
	assert.False(t, preflight.NeedsCheck(buildDir, version.Fingerprint()))
}

func TestSelectCalls(t *testing.T) {
	cfg := config.NewConfig()
	assert.Equal(t, driver.DefaultCalls(), selectCalls(cfg, nil))

	got := selectCalls(cfg, []string{"runtime", "source"})
	require.Len(t, got, 2)
	assert.Equal(t, "source", got[0].Path)
	assert.Equal(t, "runtime", got[1].Path)

	cfg.Driver.Calls = []config.CallConfig{{Path: "static", Label: "X", A: 1, B: 1}}
	assert.Equal(t, []driver.Call{{Path: "static", Label: "X", A: 1, B: 1}}, selectCalls(cfg, nil))
}
