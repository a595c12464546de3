package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/internal/native"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	if Version == "dev" {
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got %s", Version)
}

func TestString_ReturnsFormattedString(t *testing.T) {
	// When: calling String()
	str := String()

	// Then: it names the program and its build details
	assert.Contains(t, str, "ffibridge "+Version)
	assert.Contains(t, str, "commit")
	assert.Contains(t, str, GoVersion)
	assert.Contains(t, str, "cgo:")
}

func TestShort_ReturnsVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo_ReturnsInfo(t *testing.T) {
	info := GetInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.Equal(t, Date, info.Date)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.Equal(t, native.CgoEnabled, info.Cgo)
	assert.Equal(t, native.DynamicLinked, info.DynamicLinked)
}

func TestGetInfo_IsJSONSerializable(t *testing.T) {
	// When: serializing GetInfo() to JSON
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	// Then: every field is present under its snake_case key
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	for _, key := range []string{"version", "commit", "date", "go_version", "os", "arch", "cgo", "dynamic_linked"} {
		assert.Contains(t, parsed, key)
	}
}

func TestFingerprint(t *testing.T) {
	// Given: the current fingerprint
	before := Fingerprint()
	assert.Contains(t, before, runtime.GOOS+"/"+runtime.GOARCH)

	// When: the version changes
	old := Version
	Version = "9.9.9"
	t.Cleanup(func() { Version = old })

	// Then: the fingerprint changes
	assert.NotEqual(t, before, Fingerprint())
}
