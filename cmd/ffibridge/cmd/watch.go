package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	"github.com/Aman-CERP/ffibridge/internal/compute"
	"github.com/Aman-CERP/ffibridge/internal/loader"
	"github.com/Aman-CERP/ffibridge/internal/output"
)

type watchFlags struct {
	library string
	symbol  string
	label   string
	a, b    int32
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var f watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the runtime library whenever it is rebuilt",
		Long: `Load the runtime library, call its add function, then keep watching the
file. Each time it is rewritten (for example by 'ffibridge build' in another
terminal) the new build is loaded alongside the old one, swapped in, and
called again. Calls in flight finish on the generation they started on.

Stop with Ctrl-C.`,
		Example: `  ffibridge watch
  ffibridge watch --library ./build/lib/libexternal_dy.so --symbol cdylib_add --label Lee`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, opts, f)
		},
	}

	cmd.Flags().StringVar(&f.library, "library", "", "Shared library to watch (default from config)")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Symbol to call after each load (default from config)")
	cmd.Flags().StringVar(&f.label, "label", "Jack", "Label written into the buffer")
	cmd.Flags().Int32Var(&f.a, "a", 8, "First operand")
	cmd.Flags().Int32Var(&f.b, "b", 9, "Second operand")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *rootOptions, f watchFlags) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	if f.library != "" {
		cfg.Runtime.Library = f.library
	}
	if f.symbol == "" {
		f.symbol = cfg.Runtime.Symbol
	}
	path := runtimeLibrary(opts, cfg)
	out := output.New(cmd.OutOrStdout())

	reloadOpts := loader.ReloadOptions{
		Debounce: cfg.WatchDebounceDuration(),
		Logger:   slog.Default(),
		LoaderOptions: []loader.Option{
			loader.WithStrictSignatures(cfg.Runtime.StrictSignatures),
			loader.WithLogger(slog.Default()),
		},
		OnReload: func(lib *loader.Library, generation int) {
			out.Successf("Loaded generation %d of %s", generation, path)
			if err := callGeneration(cmd.OutOrStdout(), lib, f, cfg.Buffer.Capacity); err != nil {
				out.Error(err.Error())
			}
		},
		OnError: func(err error) {
			out.Warningf("Reload failed, keeping the previous generation: %v", err)
		},
	}

	reloader, err := loader.NewReloader(path, reloadOpts)
	if err != nil {
		return err
	}
	defer func() { _ = reloader.Close() }()

	out.Dim("Watching for changes; press Ctrl-C to stop")
	if err := reloader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// callGeneration calls the watched symbol on lib and prints the greeting,
// message and sum.
func callGeneration(w io.Writer, lib *loader.Library, f watchFlags, capacity int) error {
	sym, err := loader.Resolve[loader.AddFunc](lib, f.symbol)
	if err != nil {
		return err
	}
	buf, err := buffer.New(f.label, capacity)
	if err != nil {
		return err
	}
	sum, err := loader.CallAdd(sym, f.a, f.b, buf)
	if err != nil {
		return err
	}
	if origin, ok := compute.Origin(buf.String()); ok {
		_, _ = fmt.Fprintln(w, compute.Greeting(origin, f.label))
	}
	_, _ = fmt.Fprintln(w, buf.String())
	_, err = fmt.Fprintf(w, "[Go] Result from %s: %d\n", f.symbol, sum)
	return err
}
