package adapter

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// MaxCaptureBytes caps how much of each output stream is retained per
// command, so chatty test suites cannot grow memory without bound.
const MaxCaptureBytes = 1 << 20

// killGracePeriod is how long a terminated process group gets to shut down
// before it is force-killed.
const killGracePeriod = 5 * time.Second

// Execution is the structured outcome of one supervised command.
type Execution struct {
	ExitCode int
	Duration time.Duration
	TimedOut bool
	Stdout   string
	Stderr   string
	// Err is set when the supervisor itself failed: the command could not
	// start (not found, permission denied) or the context was cancelled.
	// Callers must treat it as an internal fault, never as a test verdict.
	Err error
}

// ShellRunnerAdapter abstracts supervised shell command execution.
type ShellRunnerAdapter interface {
	// Run executes command via the shell in workDir. A timeout of zero means
	// no deadline. On timeout the command's entire process group is
	// terminated; no descendant processes survive the call.
	Run(ctx context.Context, workDir, command string, timeout time.Duration) Execution
}

// LocalShellRunnerAdapter provides a concrete implementation using os/exec
// with process-group lifecycle control.
type LocalShellRunnerAdapter struct{}

// NewLocalShellRunnerAdapter constructs a LocalShellRunnerAdapter.
func NewLocalShellRunnerAdapter() *LocalShellRunnerAdapter {
	return &LocalShellRunnerAdapter{}
}

// Run executes the command and waits for the process group to be fully gone
// before returning.
func (a *LocalShellRunnerAdapter) Run(ctx context.Context, workDir, command string, timeout time.Duration) Execution {
	cmd := exec.Command(shellPath, shellFlag, command)
	cmd.Dir = workDir

	stdout := newBoundedBuffer(MaxCaptureBytes)
	stderr := newBoundedBuffer(MaxCaptureBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// The command leads its own process group so a timeout can reach every
	// descendant, not just the direct child.
	setProcessGroup(cmd)

	start := time.Now()

	if err := cmd.Start(); err != nil {
		slog.Error("command failed to start", "command", command, "error", err)
		return Execution{ExitCode: -1, Err: err}
	}

	done := make(chan error, 1)

	go func() {
		done <- cmd.Wait()
	}()

	var (
		waitErr  error
		timedOut bool
		ctxErr   error
	)

	deadline := newDeadline(timeout)
	defer deadline.Stop()

	select {
	case waitErr = <-done:
	case <-ctx.Done():
		ctxErr = ctx.Err()
		a.terminateGroup(cmd, done, &waitErr)
	case <-deadline.C():
		timedOut = true

		slog.Debug("command deadline exceeded", "command", command, "timeout", timeout)
		a.terminateGroup(cmd, done, &waitErr)
	}

	execution := Execution{
		ExitCode: exitCode(cmd, waitErr),
		Duration: time.Since(start),
		TimedOut: timedOut,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Err:      ctxErr,
	}

	return execution
}

// terminateGroup signals the whole process group, waits out the grace
// period, then force-kills any survivors and reaps the child.
func (a *LocalShellRunnerAdapter) terminateGroup(cmd *exec.Cmd, done <-chan error, waitErr *error) {
	if err := terminateProcessGroup(cmd); err != nil {
		slog.Warn("failed to signal process group", "pid", cmd.Process.Pid, "error", err)
	}

	grace := time.NewTimer(killGracePeriod)
	defer grace.Stop()

	select {
	case *waitErr = <-done:
		return
	case <-grace.C:
	}

	if err := killProcessGroup(cmd); err != nil {
		slog.Warn("failed to kill process group", "pid", cmd.Process.Pid, "error", err)
	}

	*waitErr = <-done
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		return -1
	}

	return 0
}

// deadline wraps an optional timer; a zero timeout never fires.
type deadline struct {
	timer *time.Timer
}

func newDeadline(timeout time.Duration) *deadline {
	if timeout <= 0 {
		return &deadline{}
	}

	return &deadline{timer: time.NewTimer(timeout)}
}

func (d *deadline) C() <-chan time.Time {
	if d.timer == nil {
		return nil
	}

	return d.timer.C
}

func (d *deadline) Stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}

// boundedBuffer retains at most limit bytes and discards the rest, counting
// how much was dropped. Writes never fail so the child is never blocked.
type boundedBuffer struct {
	mu      sync.Mutex
	buf     []byte
	limit   int
	dropped int
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - len(b.buf)
	if remaining > 0 {
		take := min(remaining, len(p))
		b.buf = append(b.buf, p[:take]...)
		b.dropped += len(p) - take
	} else {
		b.dropped += len(p)
	}

	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return string(b.buf)
}
