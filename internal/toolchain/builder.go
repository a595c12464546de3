// Package toolchain compiles the embedded C sources and the Go-exported
// libraries into platform artifacts.
//
// The build directory layout is:
//
//	<dir>/lib/libexternal_static.a
//	<dir>/lib/libexternal_dy.so
//	<dir>/lib/libgostaticlib.a   (BuildGo)
//	<dir>/lib/libgocdylib.so     (BuildGo)
//	<dir>/include/ffibridge.h
//
// Every failure is reported as an ERR_2XX build error carrying the tool
// output in its details.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Aman-CERP/ffibridge/internal/csrc"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// Artifact is one produced library file.
type Artifact struct {
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Path     string        `json:"path"`
	Symbols  []string      `json:"symbols,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Builder compiles libraries into Dir.
type Builder struct {
	dir      string
	cc       *Compiler
	cflags   []string
	goBin    string
	logger   *slog.Logger
	lockWait bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCFlags appends compiler flags to every C compile.
func WithCFlags(flags ...string) BuilderOption {
	return func(b *Builder) {
		b.cflags = append(b.cflags, flags...)
	}
}

// WithGoBinary sets the go command used by BuildGo. Defaults to "go".
func WithGoBinary(path string) BuilderOption {
	return func(b *Builder) {
		b.goBin = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithoutLockWait makes builds fail immediately when another process holds
// the build directory lock instead of waiting for it.
func WithoutLockWait() BuilderOption {
	return func(b *Builder) {
		b.lockWait = false
	}
}

// NewBuilder creates a builder that writes into dir using compiler cc.
func NewBuilder(dir string, cc *Compiler, opts ...BuilderOption) *Builder {
	b := &Builder{
		dir:      dir,
		cc:       cc,
		goBin:    "go",
		logger:   slog.Default(),
		lockWait: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LibDir returns the directory holding built libraries.
func (b *Builder) LibDir() string {
	return filepath.Join(b.dir, "lib")
}

// IncludeDir returns the directory holding the public header.
func (b *Builder) IncludeDir() string {
	return filepath.Join(b.dir, "include")
}

// LibraryPath returns where the named library of the given kind is written.
func (b *Builder) LibraryPath(name string, kind Kind) string {
	return filepath.Join(b.LibDir(), HostArtifactName(name, kind))
}

// RuntimeLibraryPath returns where csrc.RuntimeLibrary is written.
func (b *Builder) RuntimeLibraryPath() string {
	lib, _ := csrc.Lookup(csrc.RuntimeLibrary)
	return b.LibraryPath(lib.Name, kindOf(lib))
}

func kindOf(lib csrc.Library) Kind {
	if lib.Shared {
		return Shared
	}
	return Static
}

// BuildAll extracts the embedded C sources and compiles every library
// listed by csrc.Libraries.
func (b *Builder) BuildAll(ctx context.Context) ([]Artifact, error) {
	unlock, err := b.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	srcDir, err := os.MkdirTemp("", "ffibridge-src-*")
	if err != nil {
		return nil, bridgeerrors.BuildError("failed to create source directory", err)
	}
	defer func() { _ = os.RemoveAll(srcDir) }()

	if err := csrc.Extract(srcDir); err != nil {
		return nil, bridgeerrors.BuildError("failed to extract C sources", err)
	}
	if err := b.installHeader(srcDir); err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(csrc.Libraries()))
	for _, lib := range csrc.Libraries() {
		sources := make([]string, len(lib.Sources))
		for i, s := range lib.Sources {
			sources[i] = filepath.Join(srcDir, s)
		}

		var art Artifact
		if lib.Shared {
			art, err = b.BuildShared(ctx, lib.Name, srcDir, sources...)
		} else {
			art, err = b.BuildStatic(ctx, lib.Name, srcDir, sources...)
		}
		if err != nil {
			return artifacts, err
		}
		art.Symbols = lib.Symbols
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

// BuildStatic compiles sources to objects and archives them into lib<name>.a.
func (b *Builder) BuildStatic(ctx context.Context, name, includeDir string, sources ...string) (Artifact, error) {
	start := time.Now()
	if b.cc.Archiver == "" {
		return Artifact{}, bridgeerrors.New(bridgeerrors.ErrCodeCompilerNotFound,
			"no archiver found for static library "+name, nil).
			WithSuggestion("Install binutils (ar) or set AR")
	}
	if err := os.MkdirAll(b.LibDir(), 0o755); err != nil {
		return Artifact{}, bridgeerrors.BuildError("failed to create library directory", err)
	}

	objDir, err := os.MkdirTemp("", "ffibridge-obj-*")
	if err != nil {
		return Artifact{}, bridgeerrors.BuildError("failed to create object directory", err)
	}
	defer func() { _ = os.RemoveAll(objDir) }()

	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		obj := filepath.Join(objDir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".o")
		args := b.compileArgs(includeDir)
		args = append(args, "-fPIC", "-c", src, "-o", obj)
		if err := b.run(ctx, b.cc.Path, args...); err != nil {
			return Artifact{}, err
		}
		objects = append(objects, obj)
	}

	out := b.LibraryPath(name, Static)
	_ = os.Remove(out)
	if err := b.run(ctx, b.cc.Archiver, append([]string{"rcs", out}, objects...)...); err != nil {
		return Artifact{}, err
	}

	return b.finish(name, Static, out, start)
}

// BuildShared compiles sources into a shared library.
func (b *Builder) BuildShared(ctx context.Context, name, includeDir string, sources ...string) (Artifact, error) {
	start := time.Now()
	if err := os.MkdirAll(b.LibDir(), 0o755); err != nil {
		return Artifact{}, bridgeerrors.BuildError("failed to create library directory", err)
	}

	out := b.LibraryPath(name, Shared)
	args := b.compileArgs(includeDir)
	if runtime.GOOS == "darwin" {
		args = append(args, "-dynamiclib", "-install_name", "@rpath/"+filepath.Base(out))
	} else {
		args = append(args, "-shared")
	}
	args = append(args, "-fPIC", "-o", out)
	args = append(args, sources...)

	if err := b.run(ctx, b.cc.Path, args...); err != nil {
		return Artifact{}, err
	}

	return b.finish(name, Shared, out, start)
}

// BuildGo builds a Go main package with -buildmode=c-archive or c-shared.
// The artifact base name is the last element of pkg.
func (b *Builder) BuildGo(ctx context.Context, pkg string, kind Kind) (Artifact, error) {
	unlock, err := b.lock()
	if err != nil {
		return Artifact{}, err
	}
	defer unlock()

	start := time.Now()
	if err := os.MkdirAll(b.LibDir(), 0o755); err != nil {
		return Artifact{}, bridgeerrors.BuildError("failed to create library directory", err)
	}

	name := filepath.Base(pkg)
	out := b.LibraryPath(name, kind)
	if err := b.runEnv(ctx, []string{"CGO_ENABLED=1", "CC=" + b.cc.Path},
		b.goBin, "build", "-buildmode="+kind.GoBuildMode(), "-o", out, pkg); err != nil {
		return Artifact{}, err
	}

	art, err := b.finish(name, kind, out, start)
	if err != nil {
		return art, err
	}
	art.Symbols = []string{name + "_add"}
	return art, nil
}

// Verify returns ERR_203 for the first library that has not been built.
func (b *Builder) Verify() error {
	for _, lib := range csrc.Libraries() {
		path := b.LibraryPath(lib.Name, kindOf(lib))
		if _, err := os.Stat(path); err != nil {
			return bridgeerrors.New(bridgeerrors.ErrCodeArtifactMissing,
				fmt.Sprintf("library %s has not been built", lib.Name), err).
				WithDetail("path", path).
				WithSuggestion("Run 'ffibridge build'")
		}
	}
	return nil
}

func (b *Builder) installHeader(srcDir string) error {
	if err := os.MkdirAll(b.IncludeDir(), 0o755); err != nil {
		return bridgeerrors.BuildError("failed to create include directory", err)
	}
	data, err := os.ReadFile(filepath.Join(srcDir, csrc.Header))
	if err != nil {
		return bridgeerrors.BuildError("failed to read header", err)
	}
	if err := os.WriteFile(filepath.Join(b.IncludeDir(), csrc.Header), data, 0o644); err != nil {
		return bridgeerrors.BuildError("failed to install header", err)
	}
	return nil
}

func (b *Builder) compileArgs(includeDir string) []string {
	args := make([]string, 0, len(b.cc.CFlags)+len(b.cflags)+4)
	args = append(args, b.cc.CFlags...)
	args = append(args, "-O2", "-I"+includeDir)
	return append(args, b.cflags...)
}

func (b *Builder) finish(name string, kind Kind, out string, start time.Time) (Artifact, error) {
	if _, err := os.Stat(out); err != nil {
		return Artifact{}, bridgeerrors.New(bridgeerrors.ErrCodeArtifactMissing,
			fmt.Sprintf("build of %s produced no artifact", name), err).
			WithDetail("path", out)
	}

	art := Artifact{
		Name:     name,
		Kind:     kind.String(),
		Path:     out,
		Duration: time.Since(start),
	}
	b.logger.Info("library built",
		slog.String("name", name),
		slog.String("kind", art.Kind),
		slog.String("path", out),
		slog.Duration("duration", art.Duration))
	return art, nil
}

func (b *Builder) run(ctx context.Context, name string, args ...string) error {
	return b.runEnv(ctx, nil, name, args...)
}

func (b *Builder) runEnv(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	b.logger.Debug("running build command",
		slog.String("tool", filepath.Base(name)),
		slog.String("args", strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return bridgeerrors.BuildError("build cancelled", ctx.Err())
		}
		return bridgeerrors.BuildError(fmt.Sprintf("%s failed", filepath.Base(name)), err).
			WithDetail("command", name+" "+strings.Join(args, " ")).
			WithDetail("output", strings.TrimSpace(output.String()))
	}
	return nil
}

func (b *Builder) lock() (func(), error) {
	l := NewDirLock(b.dir)
	if b.lockWait {
		if err := l.Lock(); err != nil {
			return nil, bridgeerrors.BuildError("failed to lock build directory", err)
		}
	} else {
		ok, err := l.TryLock()
		if err != nil {
			return nil, bridgeerrors.BuildError("failed to lock build directory", err)
		}
		if !ok {
			return nil, bridgeerrors.BuildError("build directory is locked by another build", nil).
				WithDetail("lock", l.Path())
		}
	}
	return func() { _ = l.Unlock() }, nil
}
