package driver

import (
	"fmt"
	"io"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	"github.com/Aman-CERP/ffibridge/internal/compute"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
	"github.com/Aman-CERP/ffibridge/internal/native"
)

// Path names.
const (
	PathSource  = "source"
	PathDynamic = "dynamic"
	PathStatic  = "static"
	PathRuntime = "runtime"
	PathGo      = "go"
)

// OriginGo is the origin written by the in-process Go path.
const OriginGo = "Go"

// Path is one way of reaching an add function across the language boundary.
type Path interface {
	// Name is the short identifier used in configuration and history.
	Name() string
	// Description is the human label printed around each call.
	Description() string
	// Symbol is the exported function the path calls.
	Symbol() string
	// Add calls the function with buf holding the label. The callee's
	// greeting is written to diag.
	Add(a, b int32, buf *buffer.Buffer, diag io.Writer) (int32, error)
}

// Checker is implemented by paths that can verify availability before the
// first call, e.g. that a symbol was linked or a library can be loaded.
type Checker interface {
	Check() error
}

type nativePath struct {
	name        string
	description string
	symbol      string
	origin      string
	add         func(a, b int32, buf *buffer.Buffer) (int32, error)
	check       func() error
}

// SourcePath calls the C function compiled from inline source by cgo.
func SourcePath() Path {
	return &nativePath{
		name:        PathSource,
		description: "C source code",
		symbol:      native.SymbolSource,
		origin:      native.OriginSource,
		add:         native.SourceAdd,
		check:       native.SourceCheck,
	}
}

// DynamicPath calls cdylib_add from the shared library linked at build time.
func DynamicPath() Path {
	return &nativePath{
		name:        PathDynamic,
		description: "dynamic library",
		symbol:      native.SymbolDynamic,
		origin:      native.OriginDynamic,
		add:         native.DynamicAdd,
		check:       native.DynamicCheck,
	}
}

// StaticPath calls staticlib_add from the archive linked at link time.
func StaticPath() Path {
	return &nativePath{
		name:        PathStatic,
		description: "static library",
		symbol:      native.SymbolStatic,
		origin:      native.OriginStatic,
		add:         native.StaticAdd,
		check:       native.StaticCheck,
	}
}

// GoPath computes in-process with no language boundary. It is the baseline
// when comparing call overhead across the other paths.
func GoPath() Path {
	return &nativePath{
		name:        PathGo,
		description: "Go code",
		symbol:      "compute.Compute",
		origin:      OriginGo,
		add: func(a, b int32, buf *buffer.Buffer) (int32, error) {
			return compute.Compute(a, b, buf, OriginGo, nil)
		},
		check: func() error { return nil },
	}
}

func (p *nativePath) Name() string        { return p.name }
func (p *nativePath) Description() string { return p.description }
func (p *nativePath) Symbol() string      { return p.symbol }
func (p *nativePath) Check() error        { return p.check() }

func (p *nativePath) Add(a, b int32, buf *buffer.Buffer, diag io.Writer) (int32, error) {
	label := buf.String()
	sum, err := p.add(a, b, buf)
	greet(diag, p.origin, label, buf, err)
	return sum, err
}

// greet writes the callee's greeting once the callee has run. The origin is
// taken from the message when one was written.
func greet(diag io.Writer, fallback, label string, buf *buffer.Buffer, err error) {
	if diag == nil {
		return
	}
	if err != nil && !isOverflow(err) {
		return
	}
	origin := fallback
	if err == nil {
		origin = originOf(buf.String(), fallback)
	}
	_, _ = fmt.Fprintln(diag, compute.Greeting(origin, label))
}

func originOf(msg, fallback string) string {
	if origin, ok := compute.Origin(msg); ok {
		return origin
	}
	return fallback
}

func isOverflow(err error) bool {
	return bridgeerrors.GetCode(err) == bridgeerrors.ErrCodeBufferOverflow
}
