// Package driver runs add calls across every linkage path and reports the
// results in a fixed, human-readable shape:
//
//	[Go] Calling function in C source code
//	[C source] Hello Lucy
//	[C source] Hello Lucy, the result (1 + 2) is 3!
//	[Go] Result from C source code: 3
//
// The greeting line goes to a separate diagnostics writer when one is set.
// Calls never share a buffer, so they can run in parallel; output is always
// printed in call order.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// Call is one invocation of a path.
type Call struct {
	Path  string `json:"path" yaml:"path"`
	Label string `json:"label" yaml:"label"`
	A     int32  `json:"a" yaml:"a"`
	B     int32  `json:"b" yaml:"b"`
}

// DefaultCalls returns the four reference calls in their canonical order.
func DefaultCalls() []Call {
	return []Call{
		{Path: PathSource, Label: "Lucy", A: 1, B: 2},
		{Path: PathDynamic, Label: "Lee", A: 1, B: 2},
		{Path: PathStatic, Label: "Chen", A: 3, B: 4},
		{Path: PathRuntime, Label: "Jack", A: 8, B: 9},
	}
}

// Status is the outcome of one call.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one call.
type Result struct {
	RunID       string        `json:"run_id"`
	Path        string        `json:"path"`
	Description string        `json:"description"`
	Symbol      string        `json:"symbol"`
	Label       string        `json:"label"`
	A           int32         `json:"a"`
	B           int32         `json:"b"`
	Sum         int32         `json:"sum"`
	Message     string        `json:"message,omitempty"`
	Greeting    string        `json:"greeting,omitempty"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	StartedAt   time.Time     `json:"started_at"`

	err error
}

// Err returns the error behind a skipped or failed result.
func (r Result) Err() error {
	return r.err
}

// Recorder receives every finished result.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Driver runs calls against a fixed set of paths.
type Driver struct {
	paths    map[string]Path
	order    []string
	out      io.Writer
	diag     io.Writer
	capacity int
	parallel bool
	optional map[string]bool
	recorder Recorder
	logger   *slog.Logger
	quiet    bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithOutput sets where the three report lines per call are written.
// Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) { d.out = w }
}

// WithDiagnostics sends callee greetings to w instead of inlining them in
// the output.
func WithDiagnostics(w io.Writer) Option {
	return func(d *Driver) { d.diag = w }
}

// WithCapacity sets the buffer capacity for every call.
func WithCapacity(n int) Option {
	return func(d *Driver) { d.capacity = n }
}

// WithParallel runs calls concurrently.
func WithParallel(parallel bool) Option {
	return func(d *Driver) { d.parallel = parallel }
}

// WithOptional marks paths whose link, load or symbol errors are recorded
// as skipped instead of aborting the run.
func WithOptional(names ...string) Option {
	return func(d *Driver) {
		for _, n := range names {
			d.optional[n] = true
		}
	}
}

// WithRecorder sets the result recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithQuiet suppresses the report lines; results are still returned and
// recorded.
func WithQuiet(quiet bool) Option {
	return func(d *Driver) { d.quiet = quiet }
}

// New creates a driver over paths. Later paths replace earlier ones with
// the same name.
func New(paths []Path, opts ...Option) *Driver {
	d := &Driver{
		paths:    make(map[string]Path, len(paths)),
		out:      os.Stdout,
		capacity: buffer.DefaultCapacity,
		optional: make(map[string]bool),
		logger:   slog.Default(),
	}
	for _, p := range paths {
		if _, dup := d.paths[p.Name()]; !dup {
			d.order = append(d.order, p.Name())
		}
		d.paths[p.Name()] = p
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Paths returns the registered path names in registration order.
func (d *Driver) Paths() []string {
	return append([]string(nil), d.order...)
}

// Path returns the path registered under name.
func (d *Driver) Path(name string) (Path, bool) {
	p, ok := d.paths[name]
	return p, ok
}

// Check verifies every path named by calls. Errors from optional paths are
// returned in skipped, keyed by path name; the first error from a required
// path is returned as err.
func (d *Driver) Check(calls []Call) (skipped map[string]error, err error) {
	skipped = make(map[string]error)
	for _, call := range calls {
		p, ok := d.paths[call.Path]
		if !ok {
			return skipped, bridgeerrors.ConfigError(fmt.Sprintf("unknown path %q", call.Path), nil).
				WithSuggestion("Use one of: source, dynamic, static, runtime, go")
		}
		if _, done := skipped[call.Path]; done {
			continue
		}
		c, ok := p.(Checker)
		if !ok {
			continue
		}
		if cerr := c.Check(); cerr != nil {
			if d.skippable(call.Path, cerr) {
				skipped[call.Path] = cerr
				continue
			}
			return skipped, cerr
		}
	}
	return skipped, nil
}

// Run executes calls and prints their reports in order. It stops at the
// first error that is not skippable and returns the results gathered so
// far together with that error.
func (d *Driver) Run(ctx context.Context, calls []Call) ([]Result, error) {
	skipped, err := d.Check(calls)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	d.logger.Info("run started",
		slog.String("run_id", runID),
		slog.Int("calls", len(calls)),
		slog.Bool("parallel", d.parallel))

	if d.parallel {
		return d.runParallel(ctx, runID, calls, skipped)
	}
	return d.runSequential(ctx, runID, calls, skipped)
}

func (d *Driver) runSequential(ctx context.Context, runID string, calls []Call, skipped map[string]error) ([]Result, error) {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, diag := d.execute(runID, call, skipped)
		d.report(res, diag)
		d.record(ctx, res)
		results = append(results, res)

		if res.Status == StatusFailed {
			return results, res.err
		}
	}
	return results, nil
}

func (d *Driver) runParallel(ctx context.Context, runID string, calls []Call, skipped map[string]error) ([]Result, error) {
	results := make([]Result, len(calls))
	diags := make([]*bytes.Buffer, len(calls))
	ran := make([]bool, len(calls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, diag := d.execute(runID, call, skipped)

			mu.Lock()
			results[i], diags[i], ran[i] = res, diag, true
			mu.Unlock()

			if res.Status == StatusFailed {
				return res.err
			}
			return nil
		})
	}
	err := g.Wait()

	out := make([]Result, 0, len(calls))
	for i := range calls {
		if !ran[i] {
			continue
		}
		d.report(results[i], diags[i])
		d.record(ctx, results[i])
		out = append(out, results[i])
	}
	return out, err
}

// execute performs one call. Greetings are captured so they can be placed
// deterministically when the report is printed.
func (d *Driver) execute(runID string, call Call, skipped map[string]error) (Result, *bytes.Buffer) {
	p := d.paths[call.Path]
	res := Result{
		RunID:       runID,
		Path:        p.Name(),
		Description: p.Description(),
		Symbol:      p.Symbol(),
		Label:       call.Label,
		A:           call.A,
		B:           call.B,
		StartedAt:   time.Now(),
	}
	diag := &bytes.Buffer{}

	if err, ok := skipped[call.Path]; ok {
		return d.skip(res, err), diag
	}

	buf, err := buffer.New(call.Label, d.capacity)
	if err != nil {
		return d.fail(res, err), diag
	}

	sum, err := p.Add(call.A, call.B, buf, diag)
	res.Duration = time.Since(res.StartedAt)
	res.Sum = sum
	res.Greeting = trimNewline(diag.String())
	if err != nil {
		if d.skippable(call.Path, err) {
			return d.skip(res, err), diag
		}
		return d.fail(res, err), diag
	}

	res.Message = buf.String()
	res.Status = StatusOK
	d.logger.Debug("call finished",
		slog.String("path", res.Path),
		slog.String("symbol", res.Symbol),
		slog.Int("sum", int(sum)),
		slog.Duration("duration", res.Duration))
	return res, diag
}

func (d *Driver) skip(res Result, err error) Result {
	res.Status = StatusSkipped
	res.err = err
	res.Error = err.Error()
	res.ErrorCode = bridgeerrors.GetCode(err)
	d.logger.Warn("path skipped",
		slog.String("path", res.Path),
		slog.String("error", res.Error))
	return res
}

func (d *Driver) fail(res Result, err error) Result {
	res.Status = StatusFailed
	res.err = err
	res.Error = err.Error()
	res.ErrorCode = bridgeerrors.GetCode(err)
	d.logger.Error("call failed",
		slog.String("path", res.Path),
		slog.String("error", res.Error))
	return res
}

// skippable reports whether err may be downgraded to a skip for path.
// Only optional paths qualify, and only when the symbol is unlinked or the
// library or symbol is missing. A signature mismatch or closed library
// always fails.
func (d *Driver) skippable(path string, err error) bool {
	if !d.optional[path] {
		return false
	}
	switch bridgeerrors.GetCode(err) {
	case bridgeerrors.ErrCodeLinkUnresolved, bridgeerrors.ErrCodeLoadFailed, bridgeerrors.ErrCodeSymbolNotFound:
		return true
	default:
		return false
	}
}

func (d *Driver) report(res Result, diag *bytes.Buffer) {
	if d.diag != nil && diag.Len() > 0 {
		_, _ = d.diag.Write(diag.Bytes())
	}
	if d.quiet {
		return
	}

	switch res.Status {
	case StatusSkipped:
		_, _ = fmt.Fprintf(d.out, "[Go] Skipping %s: %s\n\n", res.Description, res.Error)
		return
	case StatusFailed:
		_, _ = fmt.Fprintf(d.out, "[Go] Calling function in %s\n", res.Description)
		if d.diag == nil && diag.Len() > 0 {
			_, _ = d.out.Write(diag.Bytes())
		}
		_, _ = fmt.Fprintf(d.out, "[Go] Call to %s failed: %s\n\n", res.Description, res.Error)
		return
	}

	_, _ = fmt.Fprintf(d.out, "[Go] Calling function in %s\n", res.Description)
	if d.diag == nil && diag.Len() > 0 {
		_, _ = d.out.Write(diag.Bytes())
	}
	_, _ = fmt.Fprintln(d.out, res.Message)
	_, _ = fmt.Fprintf(d.out, "[Go] Result from %s: %d\n\n", res.Description, res.Sum)
}

func (d *Driver) record(ctx context.Context, res Result) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, res); err != nil {
		d.logger.Warn("failed to record result",
			slog.String("path", res.Path),
			slog.String("error", err.Error()))
	}
}

// Close releases paths that hold resources, such as loaded libraries.
func (d *Driver) Close() error {
	var first error
	for _, name := range d.order {
		if c, ok := d.paths[name].(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
