// Package config loads ffibridge configuration.
//
// Values are applied in order of increasing precedence:
//
//  1. Built-in defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/ffibridge/config.yaml)
//  3. Project config (.ffibridge.yaml or .ffibridge.yml)
//  4. FFIBRIDGE_* environment variables
//
// Each YAML layer only overrides the keys it sets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ffibridge configuration.
type Config struct {
	Version int           `yaml:"version" json:"version" validate:"gte=0" jsonschema:"description=Configuration format version"`
	Buffer  BufferConfig  `yaml:"buffer" json:"buffer"`
	Build   BuildConfig   `yaml:"build" json:"build"`
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`
	Driver  DriverConfig  `yaml:"driver" json:"driver"`
	History HistoryConfig `yaml:"history" json:"history"`
	Log     LogConfig     `yaml:"log" json:"log"`
}

// BufferConfig configures the shared output buffer.
type BufferConfig struct {
	// Capacity is the buffer size in bytes, terminator included.
	Capacity int `yaml:"capacity" json:"capacity" validate:"min=2,max=1048576" jsonschema:"description=Output buffer size in bytes including the NUL terminator,minimum=2,default=1024"`
}

// BuildConfig configures `ffibridge build`.
type BuildConfig struct {
	// Dir receives lib/ and include/.
	Dir string `yaml:"dir" json:"dir" validate:"required" jsonschema:"description=Build output directory,default=build"`
	// CC overrides compiler discovery.
	CC string `yaml:"cc" json:"cc,omitempty" jsonschema:"description=C compiler; empty probes $CC then cc gcc clang"`
	// CFlags are appended to every compile.
	CFlags []string `yaml:"cflags,omitempty" json:"cflags,omitempty" jsonschema:"description=Extra C compiler flags"`
	// Go also builds the Go c-archive and c-shared libraries.
	Go bool `yaml:"go" json:"go" jsonschema:"description=Also build the Go-exported C libraries"`
}

// RuntimeConfig configures the runtime loading path.
type RuntimeConfig struct {
	// Library is the shared library to load. Empty means the one produced
	// by `ffibridge build` in Build.Dir.
	Library string `yaml:"library" json:"library,omitempty" jsonschema:"description=Shared library loaded at runtime; empty uses the build output"`
	// Symbol is the exported add function to call.
	Symbol string `yaml:"symbol" json:"symbol" validate:"required,cident" jsonschema:"description=Exported symbol to call,default=dyloading_add"`
	// StrictSignatures rejects symbols that export no signature tag.
	StrictSignatures bool `yaml:"strict_signatures" json:"strict_signatures" jsonschema:"description=Reject symbols without a signature tag"`
	// CacheSize is the number of libraries kept open.
	CacheSize int `yaml:"cache_size" json:"cache_size" validate:"min=1,max=256" jsonschema:"description=Open library cache size,default=8"`
	// WatchDebounce is the quiet period before `watch` reloads.
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce" validate:"duration" jsonschema:"description=Quiet period before a hot reload (Go duration),default=200ms"`
}

// DriverConfig configures `ffibridge run`.
type DriverConfig struct {
	Parallel bool `yaml:"parallel" json:"parallel" jsonschema:"description=Run calls concurrently"`
	// Optional paths are skipped instead of failing the run when they are
	// not linked or cannot be loaded.
	Optional []string     `yaml:"optional" json:"optional" validate:"dive,oneof=source dynamic static runtime go" jsonschema:"description=Paths whose link or load errors are skipped"`
	Calls    []CallConfig `yaml:"calls,omitempty" json:"calls,omitempty" validate:"dive" jsonschema:"description=Calls to run; empty runs the four reference calls"`
}

// CallConfig is one configured call.
type CallConfig struct {
	Path  string `yaml:"path" json:"path" validate:"required,oneof=source dynamic static runtime go" jsonschema:"enum=source,enum=dynamic,enum=static,enum=runtime,enum=go"`
	Label string `yaml:"label" json:"label" validate:"nonul"`
	A     int32  `yaml:"a" json:"a"`
	B     int32  `yaml:"b" json:"b"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" jsonschema:"description=Record results in the history database,default=true"`
	// Path of the SQLite database. Relative paths are resolved against
	// the project directory.
	Path string `yaml:"path" json:"path" jsonschema:"description=History database path,default=.ffibridge/history.db"`
	// Keep is the number of entries retained; 0 keeps everything.
	Keep int `yaml:"keep" json:"keep" validate:"gte=0" jsonschema:"description=Entries retained after each run (0 keeps all),default=1000"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=warn"`
}

// Defaults.
const (
	DefaultBufferCapacity = 1024
	DefaultBuildDir       = "build"
	DefaultSymbol         = "dyloading_add"
	DefaultCacheSize      = 8
	DefaultWatchDebounce  = "200ms"
	DefaultHistoryPath    = ".ffibridge/history.db"
	DefaultHistoryKeep    = 1000
	DefaultLogLevel       = "warn"
)

// ProjectFileNames are the project config names, in lookup order.
var ProjectFileNames = []string{".ffibridge.yaml", ".ffibridge.yml"}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Buffer: BufferConfig{
			Capacity: DefaultBufferCapacity,
		},
		Build: BuildConfig{
			Dir: DefaultBuildDir,
		},
		Runtime: RuntimeConfig{
			Symbol:        DefaultSymbol,
			CacheSize:     DefaultCacheSize,
			WatchDebounce: DefaultWatchDebounce,
		},
		Driver: DriverConfig{
			// The build-time dynamic link needs -tags extlink.
			Optional: []string{"dynamic"},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath,
			Keep:    DefaultHistoryKeep,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// GetUserConfigPath returns the user configuration file path:
//   - $XDG_CONFIG_HOME/ffibridge/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/ffibridge/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ffibridge", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ffibridge", "config.yaml")
	}
	return filepath.Join(home, ".config", "ffibridge", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// FindProjectConfig returns the project config file in dir, or "".
func FindProjectConfig(dir string) string {
	for _, name := range ProjectFileNames {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// Load loads configuration for the project in dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if path := FindProjectConfig(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults, then the file at path, then env overrides. The
// user and project configs are not consulted.
func LoadFile(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, notFoundError(path)
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path on top of c; keys absent from the file keep their
// current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return invalidError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return invalidError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("file", path)
	}
	return nil
}

// envOverrides maps FFIBRIDGE_* variables to setters.
var envOverrides = map[string]func(c *Config, v string) error{
	"FFIBRIDGE_BUFFER_CAPACITY": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Buffer.Capacity = n
		return nil
	},
	"FFIBRIDGE_BUILD_DIR": func(c *Config, v string) error {
		c.Build.Dir = v
		return nil
	},
	"FFIBRIDGE_CC": func(c *Config, v string) error {
		c.Build.CC = v
		return nil
	},
	"FFIBRIDGE_RUNTIME_LIBRARY": func(c *Config, v string) error {
		c.Runtime.Library = v
		return nil
	},
	"FFIBRIDGE_RUNTIME_SYMBOL": func(c *Config, v string) error {
		c.Runtime.Symbol = v
		return nil
	},
	"FFIBRIDGE_STRICT_SIGNATURES": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Runtime.StrictSignatures = b
		return nil
	},
	"FFIBRIDGE_PARALLEL": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Driver.Parallel = b
		return nil
	},
	"FFIBRIDGE_OPTIONAL": func(c *Config, v string) error {
		c.Driver.Optional = splitList(v)
		return nil
	},
	"FFIBRIDGE_HISTORY_ENABLED": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.History.Enabled = b
		return nil
	},
	"FFIBRIDGE_HISTORY_PATH": func(c *Config, v string) error {
		c.History.Path = v
		return nil
	},
	"FFIBRIDGE_LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = strings.ToLower(v)
		return nil
	},
}

// EnvVars returns the names of every supported environment override.
func EnvVars() []string {
	names := make([]string, 0, len(envOverrides))
	for name := range envOverrides {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// applyEnvOverrides applies FFIBRIDGE_* variables. Malformed values are a
// config error rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	for name, set := range envOverrides {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if err := set(c, strings.TrimSpace(v)); err != nil {
			return invalidError(fmt.Sprintf("invalid value for %s: %q", name, v), err).
				WithDetail("env", name)
		}
	}
	return nil
}

// WatchDebounceDuration parses Runtime.WatchDebounce. Validate guarantees
// it parses.
func (c *Config) WatchDebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Runtime.WatchDebounce)
	if err != nil {
		return 0
	}
	return d
}

// ResolveHistoryPath returns History.Path, resolved against dir when relative.
func (c *Config) ResolveHistoryPath(dir string) string {
	if filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(dir, c.History.Path)
}

// ResolveBuildDir returns Build.Dir, resolved against dir when relative.
func (c *Config) ResolveBuildDir(dir string) string {
	if filepath.IsAbs(c.Build.Dir) {
		return c.Build.Dir
	}
	return filepath.Join(dir, c.Build.Dir)
}

// IsOptional reports whether path is listed in Driver.Optional.
func (c *Config) IsOptional(path string) bool {
	for _, p := range c.Driver.Optional {
		if p == path {
			return true
		}
	}
	return false
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
