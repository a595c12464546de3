package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-10-19T10:11:12.000Z","level":"DEBUG","msg":"symbol resolved","symbol":"dyloading_add"}
{"time":"2026-10-19T10:11:13.000Z","level":"INFO","msg":"run finished","run":"r1"}
{"time":"2026-10-19T10:11:14.000Z","level":"WARN","msg":"path skipped","path":"dynamic"}
{"time":"2026-10-19T10:11:15.000Z","level":"ERROR","msg":"call failed","path":"runtime"}
`

func TestLogsCmd(t *testing.T) {
	project := isolate(t)
	logFile := filepath.Join(project, "ffibridge.log")
	require.NoError(t, os.WriteFile(logFile, []byte(sampleLog), 0o644))

	tests := []struct {
		name      string
		args      []string
		wantLines int
		contains  []string
		excludes  []string
	}{
		{
			name:      "all entries",
			args:      nil,
			wantLines: 4,
			contains:  []string{"symbol resolved", "call failed"},
		},
		{
			name:      "last two",
			args:      []string{"-n", "2"},
			wantLines: 2,
			contains:  []string{"path skipped", "call failed"},
			excludes:  []string{"run finished"},
		},
		{
			name:      "level filter",
			args:      []string{"--level", "warn"},
			wantLines: 2,
			excludes:  []string{"symbol resolved", "run finished"},
		},
		{
			name:      "pattern filter",
			args:      []string{"--filter", "dyloading"},
			wantLines: 1,
			contains:  []string{"symbol=dyloading_add"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"logs", "--no-color", "--file", logFile}, tt.args...)
			stdout, _, err := execute(t, args...)
			require.NoError(t, err)

			lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
			assert.Len(t, lines, tt.wantLines)
			for _, s := range tt.contains {
				assert.Contains(t, stdout, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, stdout, s)
			}
		})
	}
}

func TestLogsCmd_Errors(t *testing.T) {
	project := isolate(t)
	logFile := filepath.Join(project, "ffibridge.log")
	require.NoError(t, os.WriteFile(logFile, []byte(sampleLog), 0o644))

	_, _, err := execute(t, "logs", "--file", filepath.Join(project, "missing.log"))
	assert.Error(t, err)

	_, _, err = execute(t, "logs", "--file", logFile, "--filter", "(")
	assert.ErrorContains(t, err, "invalid filter pattern")
}
