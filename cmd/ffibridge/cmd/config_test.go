package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ffibridge/configs"
	"github.com/Aman-CERP/ffibridge/internal/config"
)

func TestConfigInit_Project(t *testing.T) {
	// Given: an empty project
	project := isolate(t)
	path := filepath.Join(project, ".ffibridge.yaml")

	// When: running config init
	out, _, err := execute(t, "config", "init", "-C", project)

	// Then: the project template is written
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.ProjectConfigTemplate, string(data))

	// When: running it again without --force
	require.NoError(t, os.WriteFile(path, []byte("buffer:\n  capacity: 64\n"), 0o644))
	out, _, err = execute(t, "config", "init", "-C", project)

	// Then: the file is kept
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "buffer:\n  capacity: 64\n", string(data))

	// When: forcing
	out, _, err = execute(t, "config", "init", "-C", project, "--force")

	// Then: a backup holds the old content
	require.NoError(t, err)
	assert.Contains(t, out, "Backup:")
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	data, err = os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "buffer:\n  capacity: 64\n", string(data))
}

func TestConfigInit_User(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "config", "init", "--user")
	require.NoError(t, err)

	data, err := os.ReadFile(config.GetUserConfigPath())
	require.NoError(t, err)
	assert.Equal(t, configs.UserConfigTemplate, string(data))
}

func TestConfigShow(t *testing.T) {
	// Given: a project config raising the buffer capacity
	project := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(project, ".ffibridge.yaml"),
		[]byte("buffer:\n  capacity: 4096\n"), 0o644))

	t.Run("merged json", func(t *testing.T) {
		out, _, err := execute(t, "config", "show", "-C", project, "--json")
		require.NoError(t, err)

		var cfg config.Config
		require.NoError(t, json.Unmarshal([]byte(out), &cfg))
		assert.Equal(t, 4096, cfg.Buffer.Capacity)
		assert.Equal(t, config.DefaultSymbol, cfg.Runtime.Symbol)
	})

	t.Run("defaults yaml", func(t *testing.T) {
		out, _, err := execute(t, "config", "show", "-C", project, "--source", "defaults")
		require.NoError(t, err)
		assert.Contains(t, out, "# Source: defaults")
		assert.Contains(t, out, "capacity: 1024")
	})

	t.Run("missing user config", func(t *testing.T) {
		out, _, err := execute(t, "config", "show", "--source", "user")
		require.NoError(t, err)
		assert.Contains(t, out, "No user configuration file found")
	})

	t.Run("unknown source", func(t *testing.T) {
		_, _, err := execute(t, "config", "show", "--source", "remote")
		assert.ErrorContains(t, err, "unknown source")
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("FFIBRIDGE_BUFFER_CAPACITY", "256")
		out, _, err := execute(t, "config", "show", "-C", project, "--json")
		require.NoError(t, err)
		assert.Contains(t, out, `"capacity": 256`)
	})
}

func TestConfigShow_InvalidProjectConfig(t *testing.T) {
	project := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(project, ".ffibridge.yaml"),
		[]byte("buffer:\n  capacity: 1\n"), 0o644))

	_, _, err := execute(t, "config", "show", "-C", project)
	assert.ErrorContains(t, err, "ERR_102")
}

func TestConfigSchema(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "ffibridge configuration", schema["title"])
}

func TestConfigValidate(t *testing.T) {
	project := isolate(t)

	good := filepath.Join(project, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(configs.ProjectConfigTemplate), 0o644))
	out, _, err := execute(t, "config", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(project, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("runtime:\n  symbol: \"not an ident\"\n"), 0o644))
	_, _, err = execute(t, "config", "validate", bad)
	assert.ErrorContains(t, err, "ERR_102")

	_, _, err = execute(t, "config", "validate", filepath.Join(project, "missing.yaml"))
	assert.ErrorContains(t, err, "ERR_101")
}

func TestConfigPath(t *testing.T) {
	project := isolate(t)
	out, _, err := execute(t, "config", "path", "-C", project)
	require.NoError(t, err)
	assert.Contains(t, out, config.GetUserConfigPath())
	assert.Contains(t, out, "(not created)")
	assert.Contains(t, out, "FFIBRIDGE_BUFFER_CAPACITY")
}
