package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/config"
	"github.com/Aman-CERP/ffibridge/internal/driver"
	"github.com/Aman-CERP/ffibridge/internal/preflight"
	"github.com/Aman-CERP/ffibridge/pkg/version"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the host can build and load the libraries",
		Long: `Run diagnostics for every linkage path.

Checks:
  - cgo compiled into this binary
  - C compiler and archiver on PATH
  - build directory writable, with free disk space
  - libraries built by 'ffibridge build'
  - runtime library loads and exports the add symbol with its signature tag
  - shared library linked at build time (-tags extlink)

Exits non-zero when a required check fails.`,
		Example: `  ffibridge doctor
  ffibridge doctor --verbose
  ffibridge doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

type doctorReport struct {
	Status  string                  `json:"status"`
	Version version.BuildInfo       `json:"version"`
	Checks  []preflight.CheckResult `json:"checks"`
}

func runDoctor(cmd *cobra.Command, opts *rootOptions, verbose, jsonOutput bool) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	checker := newChecker(cmd, opts, cfg, preflight.WithVerbose(verbose), preflight.WithOutput(cmd.OutOrStdout()))
	results := checker.RunAll(cmd.Context())

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(doctorReport{
			Status:  checker.SummaryStatus(results),
			Version: version.GetInfo(),
			Checks:  results,
		}); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("doctor found critical failures")
	}

	if err := preflight.MarkPassed(opts.buildDir(cfg), version.Fingerprint()); err != nil {
		slog.Warn("failed to write preflight marker", slog.String("error", err.Error()))
	}
	return nil
}

// newChecker configures a preflight checker from cfg. Output defaults to
// stderr; extra options are applied last.
func newChecker(cmd *cobra.Command, opts *rootOptions, cfg *config.Config, extra ...preflight.Option) *preflight.Checker {
	options := []preflight.Option{
		preflight.WithOutput(cmd.ErrOrStderr()),
		preflight.WithCompiler(cfg.Build.CC),
		preflight.WithBuildDir(opts.buildDir(cfg)),
		preflight.WithRuntime(runtimeLibrary(opts, cfg), cfg.Runtime.Symbol,
			cfg.Runtime.StrictSignatures, cfg.IsOptional(driver.PathRuntime)),
		preflight.WithLogger(slog.Default()),
	}
	return preflight.New(append(options, extra...)...)
}
