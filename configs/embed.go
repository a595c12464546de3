// Package configs embeds the configuration templates written by
// `ffibridge config init`.
//
// Templates:
//   - project-config.example.yaml: .ffibridge.yaml in the project root
//     (calls, optional paths, runtime library)
//   - user-config.example.yaml: $XDG_CONFIG_HOME/ffibridge/config.yaml
//     (compiler, log level, history)
//
// Both are parsed in tests so a template can never drift from the config
// schema.
package configs

import _ "embed"

// ProjectConfigTemplate is written by `ffibridge config init`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is written by `ffibridge config init --user`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
