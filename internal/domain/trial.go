package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// DefaultBuildTimeout bounds the per-trial build step.
const DefaultBuildTimeout = 60 * time.Second

// ErrWorkspaceCorrupted marks a failed restoration. A corrupted shared tree
// invalidates every subsequent trial, so callers must stop the run.
var ErrWorkspaceCorrupted = errors.New("workspace restoration failed")

// TrialConfig carries the commands and limits for one run's trials.
type TrialConfig struct {
	// BuildCmd is the incremental build command; empty skips the build phase.
	BuildCmd string
	// TestCmd is the test command whose exit code decides the verdict.
	TestCmd string
	// Timeout bounds the test phase; zero means no deadline.
	Timeout time.Duration
	// BuildTimeout bounds the build phase.
	BuildTimeout time.Duration
	// Debug retains subprocess output in the outcome.
	Debug bool
}

// TrialRunner executes the end-to-end trial for one mutant.
type TrialRunner interface {
	// Run returns the mutant's outcome. The error is non-nil only when the
	// workspace could not be restored, which is fatal to the whole run.
	Run(ctx context.Context, mutant m.MutantRecord) (m.TrialOutcome, error)
}

// Trial drives one mutant through apply → build → test → restore.
type Trial struct {
	workspace Workspace
	runner    adapter.ShellRunnerAdapter
	cfg       TrialConfig
}

// NewTrial constructs a Trial from a workspace, a shell runner and the run
// configuration.
func NewTrial(workspace Workspace, runner adapter.ShellRunnerAdapter, cfg TrialConfig) *Trial {
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = DefaultBuildTimeout
	}

	return &Trial{workspace: workspace, runner: runner, cfg: cfg}
}

// Run executes the trial state machine. Restoration runs on every exit
// path, including panics inside the phases.
func (t *Trial) Run(ctx context.Context, mutant m.MutantRecord) (outcome m.TrialOutcome, err error) {
	started := time.Now()

	lease, applyErr := t.workspace.Apply(ctx, mutant)
	if applyErr != nil {
		slog.Error("mutant apply failed", "mutant", mutant.ID, "error", applyErr)
		return t.outcome(mutant, m.InternalError, started, adapter.Execution{Err: applyErr}), nil
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = t.outcome(mutant, m.InternalError, started,
				adapter.Execution{Err: fmt.Errorf("trial panic: %v", recovered)})
		}

		if releaseErr := lease.Release(); releaseErr != nil {
			err = fmt.Errorf("%w: mutant %s still applied to %s: %v",
				ErrWorkspaceCorrupted, mutant.ID, mutant.TargetPath, releaseErr)
		}
	}()

	if t.cfg.BuildCmd != "" {
		build := t.runner.Run(ctx, string(lease.Dir), t.cfg.BuildCmd, t.cfg.BuildTimeout)

		switch {
		case build.Err != nil:
			slog.Error("build could not run", "mutant", mutant.ID, "error", build.Err)
			return t.outcome(mutant, m.InternalError, started, build), nil
		case build.TimedOut || build.ExitCode != 0:
			// A mutant that does not compile is not a useful artifact.
			slog.Debug("mutant failed to build", "mutant", mutant.ID, "exit_code", build.ExitCode)
			return t.outcome(mutant, m.BuildFailed, started, build), nil
		}
	}

	test := t.runner.Run(ctx, string(lease.Dir), t.cfg.TestCmd, t.cfg.Timeout)

	switch {
	case test.Err != nil:
		slog.Error("test command could not run", "mutant", mutant.ID, "error", test.Err)
		return t.outcome(mutant, m.InternalError, started, test), nil
	case test.TimedOut:
		slog.Debug("test timed out", "mutant", mutant.ID, "timeout", t.cfg.Timeout)
		return t.outcome(mutant, m.TimedOut, started, test), nil
	case test.ExitCode == 0:
		// The suite passed with the mutant applied: undetected.
		return t.outcome(mutant, m.Survived, started, test), nil
	default:
		return t.outcome(mutant, m.Killed, started, test), nil
	}
}

func (t *Trial) outcome(mutant m.MutantRecord, status m.TrialStatus, started time.Time, execution adapter.Execution) m.TrialOutcome {
	out := m.TrialOutcome{
		MutantID: mutant.ID,
		Status:   status,
		Duration: time.Since(started),
		Err:      execution.Err,
	}

	if t.cfg.Debug {
		out.Stdout = execution.Stdout
		out.Stderr = execution.Stderr
	}

	return out
}

var _ TrialRunner = (*Trial)(nil)
