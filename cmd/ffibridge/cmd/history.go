package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/history"
	"github.com/Aman-CERP/ffibridge/internal/output"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
		stats      bool
		prune      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded call results",
		Long: `Show the results recorded by 'ffibridge run', newest first.

--stats prints ok/skipped/failed counts per path. --prune N deletes all
but the newest N entries.`,
		Example: `  ffibridge history
  ffibridge history --limit 50 --json
  ffibridge history --stats
  ffibridge history --prune 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.ResolveHistoryPath(opts.projectDir()))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			switch {
			case cmd.Flags().Changed("prune"):
				n, err := store.Prune(ctx, prune)
				if err != nil {
					return err
				}
				out.Successf("Removed %d entries", n)
				return nil

			case stats:
				ps, err := store.Stats(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return encodeJSON(cmd, ps)
				}
				rows := make([][]string, 0, len(ps))
				for _, s := range ps {
					rows = append(rows, []string{s.Path, strconv.Itoa(s.OK), strconv.Itoa(s.Skipped), strconv.Itoa(s.Failed)})
				}
				out.Table([]string{"PATH", "OK", "SKIPPED", "FAILED"}, rows)
				return nil
			}

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []history.Entry{}
				}
				return encodeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				out.Dim("No results recorded yet; run 'ffibridge run'")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				result := strconv.Itoa(int(e.Sum))
				if e.Status != "ok" {
					result = e.ErrorCode
				}
				rows = append(rows, []string{
					e.RecordedAt.Local().Format(time.DateTime),
					e.Path,
					e.Label,
					fmt.Sprintf("%d + %d", e.A, e.B),
					result,
					e.Status,
					e.Duration.Round(time.Microsecond).String(),
				})
			}
			out.Table([]string{"TIME", "PATH", "LABEL", "CALL", "RESULT", "STATUS", "DURATION"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Number of entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show per-path counts")
	cmd.Flags().IntVar(&prune, "prune", 0, "Keep only the newest N entries")

	return cmd
}

func encodeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
