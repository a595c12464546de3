// Package cmd provides the CLI commands for ffibridge.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/config"
	"github.com/Aman-CERP/ffibridge/internal/logging"
	"github.com/Aman-CERP/ffibridge/internal/profiling"
	"github.com/Aman-CERP/ffibridge/pkg/version"
)

// rootOptions holds the persistent flags and per-invocation state shared
// by every subcommand.
type rootOptions struct {
	debug      bool
	configFile string
	dir        string
	profile    profiling.Options

	stderr         io.Writer
	cfg            *config.Config
	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the ffibridge CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{stderr: os.Stderr}

	cmd := &cobra.Command{
		Use:   "ffibridge",
		Short: "Call native code from Go through four linkage paths",
		Long: `ffibridge exercises one computation across four ways of reaching
native code from Go:

  source   C compiled into the binary by cgo
  dynamic  a shared library linked at build time (-tags extlink)
  static   a C archive linked at build time
  runtime  a shared library opened by path while running

Run 'ffibridge build' once to produce the libraries, then 'ffibridge run'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("ffibridge version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.ffibridge/logs/")
	pf.StringVar(&opts.configFile, "config", "", "Load only this config file (plus environment overrides)")
	pf.StringVarP(&opts.dir, "dir", "C", ".", "Project directory")
	pf.StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	pf.StringVar(&opts.profile.Heap, "profile-mem", "", "Write heap profile to file")
	pf.StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = opts.start
	cmd.PersistentPostRunE = opts.stop

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newCallCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// start sets up logging and profiling. The log level comes from --debug or,
// failing that, from the config; a config that does not load is reported
// later by the command that needs it.
func (o *rootOptions) start(cmd *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.Stderr = cmd.ErrOrStderr()
	if o.debug {
		logCfg = logging.DebugConfig()
		logCfg.Stderr = cmd.ErrOrStderr()
	} else if cfg, err := o.config(); err == nil {
		logCfg.Level = cfg.Log.Level
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)
	if o.debug {
		slog.Info("debug logging enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Version),
			slog.String("command", cmd.CommandPath()))
	}

	if o.profile.Enabled() {
		session, err := profiling.Start(o.profile)
		if err != nil {
			return err
		}
		o.profiler = session
	}
	return nil
}

func (o *rootOptions) stop(_ *cobra.Command, _ []string) error {
	err := o.profiler.Stop()
	o.profiler = nil
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
	return err
}

// config loads the configuration once per invocation.
func (o *rootOptions) config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load(o.projectDir())
	}
	if err != nil {
		return nil, err
	}
	o.cfg = cfg
	return cfg, nil
}

func (o *rootOptions) projectDir() string {
	dir, err := filepath.Abs(o.dir)
	if err != nil {
		return o.dir
	}
	return dir
}

func (o *rootOptions) buildDir(cfg *config.Config) string {
	return cfg.ResolveBuildDir(o.projectDir())
}
