package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/config"
	"github.com/Aman-CERP/ffibridge/internal/driver"
	"github.com/Aman-CERP/ffibridge/internal/history"
	"github.com/Aman-CERP/ffibridge/internal/loader"
	"github.com/Aman-CERP/ffibridge/internal/preflight"
	"github.com/Aman-CERP/ffibridge/internal/toolchain"
	"github.com/Aman-CERP/ffibridge/pkg/version"
)

type runFlags struct {
	parallel  bool
	jsonOut   bool
	capacity  int
	library   string
	symbol    string
	noHistory bool
	skipCheck bool
	paths     []string
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Call the add function through every linkage path",
		Long: `Run the configured calls (by default the four reference calls, one per
path) and print, for each call:

  [Go] Calling function in <path>
  <greeting from the callee>
  <message written into the buffer>
  [Go] Result from <path>: <sum>

Paths listed in driver.optional are skipped when they are not linked or
cannot be loaded. Any other failure stops the run and exits non-zero.`,
		Example: `  # Reference run
  ffibridge run

  # Concurrent calls, results as JSON
  ffibridge run --parallel --json

  # Call a different runtime library
  ffibridge run --library ./build/lib/libexternal_dy.so --symbol cdylib_add`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts, f)
		},
	}

	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "Run calls concurrently")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().IntVar(&f.capacity, "capacity", 0, "Buffer capacity in bytes (default from config)")
	cmd.Flags().StringVar(&f.library, "library", "", "Shared library for the runtime path")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Symbol for the runtime path")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record results")
	cmd.Flags().BoolVar(&f.skipCheck, "skip-check", false, "Skip the first-run preflight checks")
	cmd.Flags().StringSliceVar(&f.paths, "path", nil, "Only run calls on these paths")

	return cmd
}

func runRun(cmd *cobra.Command, opts *rootOptions, f runFlags) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Driver.Parallel = f.parallel
	}
	if f.capacity > 0 {
		cfg.Buffer.Capacity = f.capacity
	}
	if f.library != "" {
		cfg.Runtime.Library = f.library
	}
	if f.symbol != "" {
		cfg.Runtime.Symbol = f.symbol
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !f.skipCheck {
		if err := firstRunCheck(cmd, opts, cfg); err != nil {
			return err
		}
	}

	cache, err := loader.NewCache(cfg.Runtime.CacheSize,
		loader.WithStrictSignatures(cfg.Runtime.StrictSignatures),
		loader.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	runtimePath, err := driver.NewRuntimePath(runtimeLibrary(opts, cfg), cfg.Runtime.Symbol, cache)
	if err != nil {
		return err
	}

	driverOpts := []driver.Option{
		driver.WithOutput(cmd.OutOrStdout()),
		driver.WithCapacity(cfg.Buffer.Capacity),
		driver.WithParallel(cfg.Driver.Parallel),
		driver.WithOptional(cfg.Driver.Optional...),
		driver.WithLogger(slog.Default()),
		driver.WithQuiet(f.jsonOut),
	}

	if cfg.History.Enabled && !f.noHistory {
		store, err := history.Open(cfg.ResolveHistoryPath(opts.projectDir()))
		if err != nil {
			return err
		}
		defer func() {
			if cfg.History.Keep > 0 {
				if _, err := store.Prune(cmd.Context(), cfg.History.Keep); err != nil {
					slog.Warn("failed to prune history", slog.String("error", err.Error()))
				}
			}
			_ = store.Close()
		}()
		driverOpts = append(driverOpts, driver.WithRecorder(store))
	}

	d := driver.New([]driver.Path{
		driver.SourcePath(),
		driver.DynamicPath(),
		driver.StaticPath(),
		runtimePath,
		driver.GoPath(),
	}, driverOpts...)
	defer func() { _ = d.Close() }()
	defer cache.Purge()

	results, runErr := d.Run(cmd.Context(), selectCalls(cfg, f.paths))

	if f.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if results == nil {
			results = []driver.Result{}
		}
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	}
	return runErr
}

// selectCalls returns the configured calls, or the reference calls, filtered
// to paths when any are given.
func selectCalls(cfg *config.Config, paths []string) []driver.Call {
	calls := driver.DefaultCalls()
	if len(cfg.Driver.Calls) > 0 {
		calls = make([]driver.Call, 0, len(cfg.Driver.Calls))
		for _, c := range cfg.Driver.Calls {
			calls = append(calls, driver.Call{Path: c.Path, Label: c.Label, A: c.A, B: c.B})
		}
	}
	if len(paths) == 0 {
		return calls
	}

	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p] = true
	}
	filtered := calls[:0]
	for _, c := range calls {
		if keep[c.Path] {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// runtimeLibrary is Runtime.Library or the shared library in the build dir.
func runtimeLibrary(opts *rootOptions, cfg *config.Config) string {
	if cfg.Runtime.Library != "" {
		return cfg.Runtime.Library
	}
	return toolchain.NewBuilder(opts.buildDir(cfg), nil).RuntimeLibraryPath()
}

// firstRunCheck runs the preflight checks once per build configuration.
// Only critical failures stop the run; the marker is written on success.
func firstRunCheck(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) error {
	buildDir := opts.buildDir(cfg)
	fingerprint := version.Fingerprint()
	if !preflight.NeedsCheck(buildDir, fingerprint) {
		return nil
	}

	checker := newChecker(cmd, opts, cfg)
	results := checker.RunAll(cmd.Context())
	if checker.HasCriticalFailures(results) {
		checker.PrintResults(results)
		return fmt.Errorf("preflight checks failed; fix the issues above or pass --skip-check")
	}
	if err := preflight.MarkPassed(buildDir, fingerprint); err != nil {
		slog.Warn("failed to write preflight marker", slog.String("error", err.Error()))
	}
	return nil
}
