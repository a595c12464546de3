package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/internal/native"
	"github.com/Aman-CERP/ffibridge/internal/toolchain"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_JSON(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "cgo", Status: StatusWarn, Message: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"cgo","status":"warn","message":"m","required":false}`, string(data))
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail", CheckResult{Status: StatusFail}, false},
		{"required warn", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_Options(t *testing.T) {
	// Given: custom options
	buf := &bytes.Buffer{}
	checker := New(
		WithVerbose(true),
		WithOutput(buf),
		WithCompiler("clang"),
		WithBuildDir("out"),
		WithRuntime("/tmp/lib.so", "my_add", true, true),
	)

	// Then: options are applied
	assert.True(t, checker.verbose)
	assert.Equal(t, buf, checker.output)
	assert.Equal(t, "clang", checker.compiler)
	assert.Equal(t, "out", checker.buildDir)
	assert.Equal(t, "/tmp/lib.so", checker.runtimeLibrary)
	assert.Equal(t, "my_add", checker.runtimeSymbol)
	assert.True(t, checker.strict)
	assert.True(t, checker.runtimeOptional)
}

func TestChecker_HasCriticalFailures(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected bool
	}{
		{"no results", nil, false},
		{"all pass", []CheckResult{{Status: StatusPass, Required: true}}, false},
		{"optional failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail}}, false},
		{"required failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail, Required: true}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.HasCriticalFailures(tt.results))
		})
	}
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected string
	}{
		{"all pass", []CheckResult{{Status: StatusPass}, {Status: StatusPass}}, "ready"},
		{"with warnings", []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}, "ready_with_warnings"},
		{"critical failure", []CheckResult{{Status: StatusWarn}, {Status: StatusFail, Required: true}}, "failed"},
		{"optional failure", []CheckResult{{Status: StatusFail}}, "ready_with_warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.SummaryStatus(tt.results))
		})
	}
}

func TestChecker_CheckWritePermissions(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		result := New().CheckWritePermissions(t.TempDir())
		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, "build_dir", result.Name)
		assert.True(t, result.Required)
		assert.Empty(t, result.Details)
	})

	t.Run("directory not yet created", func(t *testing.T) {
		root := t.TempDir()
		result := New().CheckWritePermissions(filepath.Join(root, "build", "out"))
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Details, root)
	})

	t.Run("read-only directory", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("root can write anywhere")
		}
		dir := filepath.Join(t.TempDir(), "readonly")
		require.NoError(t, os.Mkdir(dir, 0o555))
		defer func() { _ = os.Chmod(dir, 0o755) }()

		result := New().CheckWritePermissions(dir)
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Message, "permission denied")
	})
}

func TestChecker_CheckArtifacts_Missing(t *testing.T) {
	result := New(WithBuildDir(t.TempDir())).CheckArtifacts()

	assert.Equal(t, StatusFail, result.Status)
	assert.False(t, result.IsCritical())
	assert.Contains(t, result.Message, "ERR_203")
	assert.Contains(t, result.Details, "ffibridge build")
}

func TestChecker_CheckRuntimeLibrary_Missing(t *testing.T) {
	tests := []struct {
		name     string
		optional bool
		critical bool
	}{
		{"required", false, true},
		{"optional", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a build directory without the shared library
			dir := t.TempDir()
			checker := New(WithBuildDir(dir), WithRuntime("", "dyloading_add", false, tt.optional))

			// When: probing the runtime library
			result := checker.CheckRuntimeLibrary()

			// Then: the load fails and criticality follows the optional flag
			assert.Equal(t, StatusFail, result.Status)
			assert.Equal(t, tt.critical, result.IsCritical())
			assert.Contains(t, result.Message, "ERR_401")
			assert.Contains(t, result.Details, dir)
		})
	}
}

func TestChecker_BuiltArtifacts(t *testing.T) {
	cc, err := toolchain.FindCompiler("")
	if err != nil {
		t.Skip("no C compiler available")
	}

	// Given: a freshly built build directory
	dir := t.TempDir()
	_, err = toolchain.NewBuilder(dir, cc, toolchain.WithoutLockWait()).BuildAll(context.Background())
	require.NoError(t, err)

	checker := New(WithBuildDir(dir), WithRuntime("", "dyloading_add", true, false))

	// Then: artifacts and the runtime library pass
	assert.Equal(t, StatusPass, checker.CheckArtifacts().Status)

	result := checker.CheckRuntimeLibrary()
	assert.Equal(t, StatusPass, result.Status, result.Message)
	assert.Equal(t, "dyloading_add i32(i32,i32,ptr,usize,ptr)", result.Message)

	// And: a symbol that is not exported fails
	missing := New(WithBuildDir(dir), WithRuntime("", "nope_add", false, false)).CheckRuntimeLibrary()
	assert.Equal(t, StatusFail, missing.Status)
	assert.Contains(t, missing.Message, "ERR_402")
}

func TestChecker_RunAll_ReturnsAllChecks(t *testing.T) {
	// Given: a checker on an empty build directory
	checker := New(WithBuildDir(t.TempDir()))

	// When: running all checks
	results := checker.RunAll(context.Background())

	// Then: every check reports in order
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"cgo", "compiler", "archiver", "build_dir", "disk_space",
		"artifacts", "runtime_library", "dynamic_link",
	}, names)
}

func TestChecker_PrintResults(t *testing.T) {
	// Given: some check results
	results := []CheckResult{
		{Name: "compiler", Status: StatusPass, Message: "/usr/bin/cc"},
		{Name: "dynamic_link", Status: StatusWarn, Message: "not linked", Details: "Rebuild with -tags extlink"},
		{Name: "cgo", Status: StatusFail, Message: "disabled", Required: true},
	}

	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf), WithVerbose(true))

	// When: printing results
	checker.PrintResults(results)

	// Then: each result is marked and the summary is failed
	out := buf.String()
	assert.Contains(t, out, "✓ compiler: /usr/bin/cc")
	assert.Contains(t, out, "! dynamic_link: not linked")
	assert.Contains(t, out, "Rebuild with -tags extlink")
	assert.Contains(t, out, "✗ cgo: disabled")
	assert.Contains(t, out, "Status: FAILED")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 bytes"},
		{2048, "2.0 KB"},
		{50 * 1024 * 1024, "50.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatBytes(tt.in))
		})
	}
}

func TestCheckDynamicLink_MatchesBuildTags(t *testing.T) {
	result := New().CheckDynamicLink()

	assert.Equal(t, "dynamic_link", result.Name)
	assert.False(t, result.Required)
	switch {
	case !native.DynamicLinked:
		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Details, "-tags extlink")
	case native.StaticArchive:
		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, "linked with libexternal_static.a", result.Message)
	default:
		assert.Equal(t, StatusPass, result.Status)
	}
}
