package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/internal/preflight"
)

type doctorJSON struct {
	Status string `json:"status"`
	Checks []struct {
		Name     string `json:"name"`
		Status   string `json:"status"`
		Message  string `json:"message"`
		Required bool   `json:"required"`
	} `json:"checks"`
}

func TestDoctorCmd_JSON(t *testing.T) {
	// Given: an empty project
	project := isolate(t)

	// When: running doctor with JSON output
	stdout, _, err := execute(t, "doctor", "-C", project, "--json")

	// Then: every check is reported, in order
	var report doctorJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &report), stdout)

	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"cgo", "compiler", "archiver", "build_dir",
		"disk_space", "artifacts", "runtime_library", "dynamic_link",
	}, names)
	assert.Contains(t, []string{"ready", "ready_with_warnings", "failed"}, report.Status)

	// And: the exit status follows the summary
	if report.Status == "failed" {
		assert.Error(t, err)
	} else {
		assert.NoError(t, err)
	}
}

func TestDoctorCmd_BuiltLibraries(t *testing.T) {
	requireCgo(t)
	project := isolate(t)
	buildLibraries(t, project)

	stdout, stderr, err := execute(t, "doctor", "-C", project, "--verbose")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "ffibridge doctor")
	assert.Contains(t, stdout, "dyloading_add i32(i32,i32,ptr,usize,ptr)")
	assert.Contains(t, stdout, "Status: ")

	// A clean doctor run doubles as the first-run check.
	_, err = os.Stat(filepath.Join(project, "build", preflight.MarkerFile))
	assert.NoError(t, err)
}

func TestDoctorCmd_MissingRuntimeLibraryRequired(t *testing.T) {
	project := isolate(t)
	t.Setenv("FFIBRIDGE_RUNTIME_LIBRARY", filepath.Join(project, "missing.so"))

	stdout, _, err := execute(t, "doctor", "-C", project, "--json")
	require.Error(t, err)

	var report doctorJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "failed", report.Status)
	for _, c := range report.Checks {
		if c.Name == "runtime_library" {
			assert.Equal(t, "fail", c.Status)
			assert.True(t, c.Required)
		}
	}
}
