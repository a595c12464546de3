package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_PlainMessages(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Success("built") }, "✓ built\n"},
		{"successf", func(w *Writer) { w.Successf("built %d libraries", 2) }, "✓ built 2 libraries\n"},
		{"warning", func(w *Writer) { w.Warning("skipped") }, "! skipped\n"},
		{"error", func(w *Writer) { w.Errorf("failed: %s", "cc") }, "✗ failed: cc\n"},
		{"status without icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"dim", func(w *Writer) { w.Dim("hint") }, "   hint\n"},
		{"header", func(w *Writer) { w.Header("Doctor") }, "Doctor\n"},
		{"code", func(w *Writer) { w.Code("a\nb") }, "\n  a\n  b\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.write(NewWithColor(&buf, false))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestNew_NonTTYHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	assert.False(t, w.Color())
	assert.Same(t, &buf, w.Out())
}

func TestIsTTY_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	assert.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, IsTTY(f))
}

func TestNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, NoColor())
}

func TestWriter_Table(t *testing.T) {
	var buf bytes.Buffer
	NewWithColor(&buf, false).Table([]string{"PATH", "SUM"}, [][]string{{"source", "3"}, {"runtime", "17"}})

	out := buf.String()
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "runtime")
	assert.Contains(t, out, "17")
	assert.Contains(t, out, "╭")
}
