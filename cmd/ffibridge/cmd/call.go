package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/buffer"
	"github.com/Aman-CERP/ffibridge/internal/compute"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
	"github.com/Aman-CERP/ffibridge/internal/loader"
)

// Signatures accepted by `call --signature`.
const (
	signatureAdd   = "add"
	signaturePlain = "plain"
)

type callFlags struct {
	symbol     string
	signature  string
	label      string
	capacity   int
	strict     bool
	jsonOutput bool
}

type callResult struct {
	Library   string `json:"library"`
	Symbol    string `json:"symbol"`
	Signature string `json:"signature"`
	A         int32  `json:"a"`
	B         int32  `json:"b"`
	Sum       int32  `json:"sum"`
	Greeting  string `json:"greeting,omitempty"`
	Message   string `json:"message,omitempty"`
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	var f callFlags

	cmd := &cobra.Command{
		Use:   "call LIBRARY A B",
		Short: "Load a shared library and call one exported function",
		Long: `Open LIBRARY at runtime, resolve a symbol and call it with A and B.

--signature add    int32_t f(int32_t, int32_t, char *buf, size_t capacity, size_t *needed)
--signature plain  int32_t f(int32_t, int32_t)

With the add signature the buffer is seeded with --label; the callee's
greeting and the message it writes back are printed before the sum.`,
		Example: `  ffibridge call build/lib/libexternal_dy.so 8 9
  ffibridge call build/lib/libexternal_dy.so 1 2 --symbol cdylib_add --label Lee
  ffibridge call build/lib/libexternal_dy.so 2 3 --symbol dylib_call --signature plain`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseInt32(args[1])
			if err != nil {
				return err
			}
			b, err := parseInt32(args[2])
			if err != nil {
				return err
			}
			return runCall(cmd, opts, args[0], a, b, f)
		},
	}

	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Symbol to call (default from config)")
	cmd.Flags().StringVar(&f.signature, "signature", signatureAdd, "Function signature: add or plain")
	cmd.Flags().StringVar(&f.label, "label", "Go", "Label written into the buffer")
	cmd.Flags().IntVar(&f.capacity, "capacity", 0, "Buffer capacity in bytes (default from config)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Require a signature tag")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print the result as JSON")

	return cmd
}

func runCall(cmd *cobra.Command, opts *rootOptions, library string, a, b int32, f callFlags) error {
	if f.signature != signatureAdd && f.signature != signaturePlain {
		return bridgeerrors.ConfigError(fmt.Sprintf("unknown signature %q", f.signature), nil).
			WithSuggestion("Use --signature add or --signature plain")
	}
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	if f.symbol == "" {
		f.symbol = cfg.Runtime.Symbol
	}
	if f.capacity <= 0 {
		f.capacity = cfg.Buffer.Capacity
	}

	lib, err := loader.Open(library,
		loader.WithStrictSignatures(f.strict || cfg.Runtime.StrictSignatures),
		loader.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	res := callResult{Library: library, Symbol: f.symbol, Signature: f.signature, A: a, B: b}

	switch f.signature {
	case signatureAdd:
		sym, err := loader.Resolve[loader.AddFunc](lib, f.symbol)
		if err != nil {
			return err
		}
		buf, err := buffer.New(f.label, f.capacity)
		if err != nil {
			return err
		}
		if !f.jsonOutput {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[Go] Calling %s in %s\n", f.symbol, library)
		}
		sum, err := loader.CallAdd(sym, a, b, buf)
		if err != nil {
			return err
		}
		res.Sum = sum
		res.Message = buf.String()
		if origin, ok := compute.Origin(res.Message); ok {
			res.Greeting = compute.Greeting(origin, f.label)
		}
	case signaturePlain:
		sym, err := loader.Resolve[loader.PlainFunc](lib, f.symbol)
		if err != nil {
			return err
		}
		if !f.jsonOutput {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[Go] Calling %s in %s\n", f.symbol, library)
		}
		sum, err := loader.CallPlain(sym, a, b)
		if err != nil {
			return err
		}
		res.Sum = sum
	}

	if f.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if res.Greeting != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Greeting)
	}
	if res.Message != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "[Go] Result from %s: %d\n", f.symbol, res.Sum)
	return err
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, bridgeerrors.ConfigError(fmt.Sprintf("%q is not a 32-bit integer", s), err)
	}
	return int32(v), nil
}
