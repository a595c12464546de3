package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/ffibridge/configs"
	"github.com/Aman-CERP/ffibridge/internal/config"
	"github.com/Aman-CERP/ffibridge/internal/output"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage ffibridge configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/ffibridge/config.yaml)
  3. Project config (.ffibridge.yaml)
  4. Environment variables (FFIBRIDGE_*)`,
		Example: `  # Create .ffibridge.yaml in the project
  ffibridge config init

  # Show effective configuration
  ffibridge config show

  # JSON Schema for editor completion
  ffibridge config schema > ffibridge.schema.json`,
	}

	cmd.AddCommand(newConfigInitCmd(opts))
	cmd.AddCommand(newConfigShowCmd(opts))
	cmd.AddCommand(newConfigPathCmd(opts))
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var (
		user  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from the template",
		Long: `Write the project configuration template to .ffibridge.yaml, or with
--user the user template to ~/.config/ffibridge/config.yaml.

An existing file is kept unless --force is given; then it is backed up
first (the newest three backups are kept).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(opts.projectDir(), config.ProjectFileNames[0])
			template := configs.ProjectConfigTemplate
			if user {
				path = config.GetUserConfigPath()
				template = configs.UserConfigTemplate
			}
			return runConfigInit(output.New(cmd.OutOrStdout()), path, template, force)
		},
	}

	cmd.Flags().BoolVar(&user, "user", false, "Create the user configuration instead")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (after a backup)")

	return cmd
}

func runConfigInit(out *output.Writer, path, template string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("", "Location: %s", path)
			out.Dim("Use --force to replace it with the template (a backup is kept)")
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("", "Backup: %s", backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Statusf("", "Location: %s", path)
	out.Dim("Run 'ffibridge config show' to verify")
	return nil
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources.

--source user or project shows defaults plus that one file plus
environment overrides; --source defaults shows the built-in defaults.`,
		Example: `  ffibridge config show
  ffibridge config show --json
  ffibridge config show --source project`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, desc, err := configFromSource(opts, source)
			if err != nil {
				return err
			}
			if cfg == nil {
				out := output.New(cmd.OutOrStdout())
				out.Warningf("No %s configuration file found", source)
				out.Dim("Run 'ffibridge config init' to create one")
				return nil
			}

			if jsonOutput {
				return encodeJSON(cmd, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# Source: %s\n%s", desc, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

// configFromSource loads the configuration named by source. A nil config
// with a nil error means the requested file does not exist.
func configFromSource(opts *rootOptions, source string) (*config.Config, string, error) {
	switch source {
	case "merged":
		cfg, err := opts.config()
		if err != nil {
			return nil, "", err
		}
		if opts.configFile != "" {
			return cfg, "file (" + opts.configFile + ") + env", nil
		}
		return cfg, "merged (defaults + user + project + env)", nil
	case "user":
		path := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			return nil, "", nil
		}
		cfg, err := config.LoadFile(path)
		return cfg, "user (" + path + ")", err
	case "project":
		path := config.FindProjectConfig(opts.projectDir())
		if path == "" {
			return nil, "", nil
		}
		cfg, err := config.LoadFile(path)
		return cfg, "project (" + path + ")", err
	case "defaults":
		return config.NewConfig(), "defaults", nil
	default:
		return nil, "", fmt.Errorf("unknown source %q (use merged, user, project or defaults)", source)
	}
}

func newConfigPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project := config.FindProjectConfig(opts.projectDir())
			if project == "" {
				project = filepath.Join(opts.projectDir(), config.ProjectFileNames[0]) + " (not created)"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user:    %s\nproject: %s\nenv:     %s\n",
				config.GetUserConfigPath(), project, strings.Join(config.EnvVars(), " "))
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadFile(args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("%s is valid", args[0])
			return nil
		},
	}
}
