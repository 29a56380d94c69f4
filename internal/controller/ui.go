// Package controller provides output adapters for displaying mutation trial
// progress and results.
package controller

import (
	"context"
	"os"

	"golang.org/x/term"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// StartOption is a functional option for the Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	total int
}

// WithTotalTrials tells the UI how many trials the run will schedule.
func WithTotalTrials(total int) StartOption {
	return func(c *StartConfig) {
		c.total = total
	}
}

// UI defines the interface for displaying trial runs. Implementations can
// use different output methods (plain text, TUI).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	DisplayRecoveryInfo(ctx context.Context, restored []m.Path)
	DisplayConcurrencyInfo(ctx context.Context, jobs, total int, isolated bool)
	DisplayStartingTrialInfo(ctx context.Context, mutant m.MutantRecord)
	DisplayCompletedTrialInfo(ctx context.Context, mutant m.MutantRecord, outcome m.TrialOutcome, completed, total, undetected int)
	DisplaySummary(ctx context.Context, resultSet *m.ResultSet)
	DisplayResultSet(ctx context.Context, resultSet *m.ResultSet)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
