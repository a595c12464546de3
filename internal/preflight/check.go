package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
	"github.com/Aman-CERP/ffibridge/internal/loader"
	"github.com/Aman-CERP/ffibridge/internal/native"
	"github.com/Aman-CERP/ffibridge/internal/output"
	"github.com/Aman-CERP/ffibridge/internal/toolchain"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical problem.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status as its name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose         bool
	output          io.Writer
	compiler        string
	buildDir        string
	runtimeLibrary  string
	runtimeSymbol   string
	strict          bool
	runtimeOptional bool
	logger          *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints check details.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithCompiler sets the preferred C compiler.
func WithCompiler(cc string) Option {
	return func(c *Checker) {
		c.compiler = cc
	}
}

// WithBuildDir sets the directory the build step writes to.
func WithBuildDir(dir string) Option {
	return func(c *Checker) {
		c.buildDir = dir
	}
}

// WithRuntime sets the library and symbol the runtime path calls. An
// empty library means the shared library in the build directory. When
// optional is true a failing runtime check is not critical.
func WithRuntime(library, symbol string, strict, optional bool) Option {
	return func(c *Checker) {
		c.runtimeLibrary = library
		c.runtimeSymbol = symbol
		c.strict = strict
		c.runtimeOptional = optional
	}
}

// WithLogger sets the logger used while probing the runtime library.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output:        os.Stdout,
		buildDir:      "build",
		runtimeSymbol: "dyloading_add",
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs all preflight checks in a fixed order.
func (c *Checker) RunAll(_ context.Context) []CheckResult {
	return []CheckResult{
		c.CheckCgo(),
		c.CheckCompiler(),
		c.CheckArchiver(),
		c.CheckWritePermissions(c.buildDir),
		c.CheckDiskSpace(c.buildDir),
		c.CheckArtifacts(),
		c.CheckRuntimeLibrary(),
		c.CheckDynamicLink(),
	}
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "failed", "ready_with_warnings" or "ready".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	out := output.New(c.output)
	out.Header("ffibridge doctor")
	out.Newline()

	for _, r := range results {
		msg := r.Name + ": " + r.Message
		switch {
		case r.Status == StatusPass:
			out.Success(msg)
		case r.IsCritical():
			out.Error(msg)
		default:
			out.Warning(msg)
		}
		if c.verbose && r.Details != "" {
			out.Dim(r.Details)
		}
	}

	out.Newline()
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))
}

// CheckCgo reports whether the link-time paths are compiled in.
func (c *Checker) CheckCgo() CheckResult {
	result := CheckResult{Name: "cgo", Required: true}
	if !native.CgoEnabled {
		result.Status = StatusFail
		result.Message = "binary built with CGO_ENABLED=0; only the runtime path works"
		return result
	}
	result.Status = StatusPass
	result.Message = "enabled"
	return result
}

// CheckCompiler looks for a C compiler.
func (c *Checker) CheckCompiler() CheckResult {
	result := CheckResult{Name: "compiler", Required: true}
	cc, err := toolchain.FindCompiler(c.compiler)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		result.Details = suggestionOf(err)
		return result
	}
	result.Status = StatusPass
	result.Message = cc.Path
	if len(cc.CFlags) > 0 {
		result.Details = "flags: " + strings.Join(cc.CFlags, " ")
	}
	return result
}

// CheckArchiver looks for the archiver used for static libraries.
func (c *Checker) CheckArchiver() CheckResult {
	result := CheckResult{Name: "archiver", Required: true}
	name := os.Getenv("AR")
	if name == "" {
		name = "ar"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s not found on PATH", name)
		result.Details = "Install binutils or set AR"
		return result
	}
	result.Status = StatusPass
	result.Message = path
	return result
}

// CheckWritePermissions checks that the build directory, or the nearest
// existing parent it would be created under, is writable.
func (c *Checker) CheckWritePermissions(path string) CheckResult {
	result := CheckResult{Name: "build_dir", Required: true}

	dir := existingAncestor(path)
	f, err := os.CreateTemp(dir, ".ffibridge-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "writable"
	if dir != filepath.Clean(path) {
		result.Details = fmt.Sprintf("%s will be created under %s", path, dir)
	}
	return result
}

// CheckArtifacts checks that the build step has produced every library.
func (c *Checker) CheckArtifacts() CheckResult {
	result := CheckResult{Name: "artifacts", Required: false}
	if err := toolchain.NewBuilder(c.buildDir, nil).Verify(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		result.Details = suggestionOf(err)
		return result
	}
	result.Status = StatusPass
	result.Message = "built in " + c.buildDir
	return result
}

// CheckRuntimeLibrary opens the runtime library and resolves the add symbol,
// including its signature tag.
func (c *Checker) CheckRuntimeLibrary() CheckResult {
	result := CheckResult{Name: "runtime_library", Required: !c.runtimeOptional}

	path := c.runtimeLibrary
	if path == "" {
		path = toolchain.NewBuilder(c.buildDir, nil).RuntimeLibraryPath()
	}
	result.Details = path

	lib, err := loader.Open(path,
		loader.WithStrictSignatures(c.strict),
		loader.WithLogger(c.logger))
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	defer func() { _ = lib.Close() }()

	sym, err := loader.Resolve[loader.AddFunc](lib, c.runtimeSymbol)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	if sig, ok := lib.Signature(c.runtimeSymbol); ok {
		result.Message = fmt.Sprintf("%s %s", sym.Name(), sig)
	} else {
		result.Status = StatusWarn
		result.Message = sym.Name() + " exports no signature tag"
	}
	return result
}

// CheckDynamicLink reports whether the built libraries were linked into
// this binary.
func (c *Checker) CheckDynamicLink() CheckResult {
	result := CheckResult{Name: "dynamic_link", Required: false}
	if !native.DynamicLinked {
		result.Status = StatusWarn
		result.Message = "not linked; the dynamic path is skipped"
		result.Details = "Rebuild with -tags extlink after 'ffibridge build'"
		return result
	}
	result.Status = StatusPass
	result.Message = "linked"
	if native.StaticArchive {
		result.Message = "linked with libexternal_static.a"
	}
	return result
}

func existingAncestor(path string) string {
	dir := filepath.Clean(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func suggestionOf(err error) string {
	var be *bridgeerrors.BridgeError
	if errors.As(err, &be) {
		return be.Suggestion
	}
	return ""
}
