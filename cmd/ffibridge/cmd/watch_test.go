package cmd

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the watcher goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCmd_InitialLoad(t *testing.T) {
	// Given: built libraries and an already cancelled context
	project := isolate(t)
	buildLibraries(t, project)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: watching
	var stdout syncBuffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"watch", "-C", project})
	err := root.ExecuteContext(ctx)

	// Then: the first generation is loaded and called before the watcher stops
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Loaded generation 1 of ")
	assert.Contains(t, stdout.String(), "[External dyloading] Hello Jack\n[External dyloading] Hello Jack, the result (8 + 9) is 17!")
	assert.Contains(t, stdout.String(), "[Go] Result from dyloading_add: 17")
}

func TestWatchCmd_ReloadsOnRewrite(t *testing.T) {
	project := isolate(t)
	lib := buildLibraries(t, project)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout syncBuffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"watch", "-C", project, "--symbol", "cdylib_add", "--a", "1", "--b", "2"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(stdout.String()), []byte("Loaded generation 1"))
	}, 5*time.Second, 20*time.Millisecond)

	// When: the library file is rewritten in place
	data, err := os.ReadFile(lib)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lib, data, 0o755))

	// Then: a second generation is loaded and called
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(stdout.String()), []byte("Loaded generation 2"))
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, stdout.String(), "[C cdylib] Hello Jack, the result (1 + 2) is 3!")
}
