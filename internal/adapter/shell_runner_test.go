//go:build unix

package adapter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalShellRunnerAdapter_Run_Success(t *testing.T) {
	runner := NewLocalShellRunnerAdapter()

	execution := runner.Run(context.Background(), t.TempDir(), "echo out; echo err >&2", time.Second)

	require.NoError(t, execution.Err)
	assert.Equal(t, 0, execution.ExitCode)
	assert.False(t, execution.TimedOut)
	assert.Equal(t, "out\n", execution.Stdout)
	assert.Equal(t, "err\n", execution.Stderr)
	assert.Positive(t, execution.Duration)
}

func TestLocalShellRunnerAdapter_Run_NonzeroExit(t *testing.T) {
	runner := NewLocalShellRunnerAdapter()

	execution := runner.Run(context.Background(), t.TempDir(), "exit 3", time.Second)

	require.NoError(t, execution.Err)
	assert.Equal(t, 3, execution.ExitCode)
	assert.False(t, execution.TimedOut)
}

func TestLocalShellRunnerAdapter_Run_CommandNotFound(t *testing.T) {
	runner := NewLocalShellRunnerAdapter()

	execution := runner.Run(context.Background(), t.TempDir(), "definitely-not-a-command-xyz", time.Second)

	// The shell itself ran; a missing command is a verdict, not a fault.
	require.NoError(t, execution.Err)
	assert.Equal(t, 127, execution.ExitCode)
}

func TestLocalShellRunnerAdapter_Run_TimeoutKillsProcessGroup(t *testing.T) {
	runner := NewLocalShellRunnerAdapter()

	start := time.Now()
	execution := runner.Run(context.Background(), t.TempDir(), "sleep 30 & sleep 30", 100*time.Millisecond)

	assert.True(t, execution.TimedOut)
	// SIGTERM reaches the whole group; nothing waits out the full sleep.
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestLocalShellRunnerAdapter_Run_ZeroTimeoutMeansNoDeadline(t *testing.T) {
	runner := NewLocalShellRunnerAdapter()

	execution := runner.Run(context.Background(), t.TempDir(), "sleep 0.2; echo done", 0)

	require.NoError(t, execution.Err)
	assert.False(t, execution.TimedOut)
	assert.Equal(t, "done\n", execution.Stdout)
}

func TestLocalShellRunnerAdapter_Run_CancelledContext(t *testing.T) {
	runner := NewLocalShellRunnerAdapter()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	execution := runner.Run(ctx, t.TempDir(), "sleep 30", 0)

	require.Error(t, execution.Err)
	assert.ErrorIs(t, execution.Err, context.Canceled)
}

func TestBoundedBuffer_CapsRetainedBytes(t *testing.T) {
	buf := newBoundedBuffer(8)

	n, err := buf.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = buf.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "01234567", buf.String())
	assert.Equal(t, 5, buf.dropped)
}

func TestLocalShellRunnerAdapter_Run_CapturesBoundedOutput(t *testing.T) {
	runner := NewLocalShellRunnerAdapter()

	// Emits ~2 MiB; retention must stop at the cap without failing the command.
	execution := runner.Run(context.Background(), t.TempDir(),
		"yes 0123456789012345678901234567890123456789 | head -c 2097152", 10*time.Second)

	require.NoError(t, execution.Err)
	assert.Equal(t, 0, execution.ExitCode)
	assert.Len(t, execution.Stdout, MaxCaptureBytes)
	assert.True(t, strings.HasPrefix(execution.Stdout, "0123456789"))
}
