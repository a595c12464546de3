package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/logging"
	"github.com/Aman-CERP/ffibridge/internal/output"
)

type logsFlags struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd(_ *rootOptions) *cobra.Command {
	var f logsFlags

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the debug log",
		Long: `Show the JSON log written by commands run with --debug
(~/.ffibridge/logs/ffibridge.log), formatted one entry per line.

Use -f to follow new entries as they are written.`,
		Example: `  ffibridge logs
  ffibridge logs -n 200 --level warn
  ffibridge logs -f --filter dyloading`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, f)
		},
	}

	cmd.Flags().BoolVarP(&f.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&f.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&f.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&f.filter, "filter", "", "Only show lines matching this regular expression")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&f.file, "file", "", "Log file path")

	return cmd
}

func runLogs(cmd *cobra.Command, f logsFlags) error {
	path, err := logging.FindLogFile(f.file)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if f.filter != "" {
		pattern, err = regexp.Compile(f.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	w := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   f.level,
		Pattern: pattern,
		Color:   !f.noColor && output.IsTTY(w) && !output.NoColor(),
	}, w)

	entries, err := viewer.Tail(path, f.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries...)

	if !f.follow {
		return nil
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Following %s (Ctrl-C to stop)\n", path)
	return viewer.Follow(cmd.Context(), path)
}
