package cmd

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ffibridge/internal/output"
	"github.com/Aman-CERP/ffibridge/internal/preflight"
	"github.com/Aman-CERP/ffibridge/internal/toolchain"
)

// Go packages built into C libraries by `build --go`.
var goLibraries = []struct {
	pkg  string
	kind toolchain.Kind
}{
	{"github.com/Aman-CERP/ffibridge/cmd/gostaticlib", toolchain.Static},
	{"github.com/Aman-CERP/ffibridge/cmd/gocdylib", toolchain.Shared},
}

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var (
		outDir     string
		cc         string
		withGo     bool
		jsonOutput bool
		noWait     bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the C libraries (and optionally the Go-exported ones)",
		Long: `Compile the embedded C sources into the build directory:

  <dir>/lib/libexternal_static.a   linked by the static path (-tags extlink)
  <dir>/lib/libexternal_dy.so      linked by the dynamic path (-tags extlink),
                                   loaded by the runtime path
  <dir>/include/ffibridge.h

With --go, also build libgostaticlib.a and libgocdylib.so from the Go
packages in cmd/ (requires the ffibridge source tree and a Go toolchain).`,
		Example: `  ffibridge build
  ffibridge build --out out --cc clang
  ffibridge build --go`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Build.Dir = outDir
			}
			if cc != "" {
				cfg.Build.CC = cc
			}
			if cmd.Flags().Changed("go") {
				cfg.Build.Go = withGo
			}

			compiler, err := toolchain.FindCompiler(cfg.Build.CC)
			if err != nil {
				return err
			}
			builderOpts := []toolchain.BuilderOption{
				toolchain.WithCFlags(cfg.Build.CFlags...),
				toolchain.WithLogger(slog.Default()),
			}
			if noWait {
				builderOpts = append(builderOpts, toolchain.WithoutLockWait())
			}
			dir := opts.buildDir(cfg)
			builder := toolchain.NewBuilder(dir, compiler, builderOpts...)

			artifacts, err := builder.BuildAll(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Build.Go {
				for _, lib := range goLibraries {
					art, err := builder.BuildGo(cmd.Context(), lib.pkg, lib.kind)
					if err != nil {
						return err
					}
					artifacts = append(artifacts, art)
				}
			}

			// A new build invalidates earlier preflight results.
			if err := preflight.ClearMarker(dir); err != nil {
				slog.Warn("failed to clear preflight marker", slog.String("error", err.Error()))
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(artifacts)
			}
			printArtifacts(output.New(cmd.OutOrStdout()), compiler, artifacts)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Build directory (default from config)")
	cmd.Flags().StringVar(&cc, "cc", "", "C compiler to use")
	cmd.Flags().BoolVar(&withGo, "go", false, "Also build the Go-exported C libraries")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print artifacts as JSON")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Fail instead of waiting for another build")

	return cmd
}

func printArtifacts(out *output.Writer, compiler *toolchain.Compiler, artifacts []toolchain.Artifact) {
	out.Successf("Built %d libraries with %s", len(artifacts), compiler.Path)
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		rows = append(rows, []string{
			a.Name,
			a.Kind,
			a.Path,
			strings.Join(a.Symbols, ", "),
			a.Duration.Round(time.Millisecond).String(),
		})
	}
	out.Table([]string{"LIBRARY", "KIND", "PATH", "SYMBOLS", "TIME"}, rows)
	out.Dim("Link the static and dynamic paths into the binary with: go build -tags extlink ./cmd/ffibridge")
}
