package domain

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	"gambitrun.dev/pkg/gambitrun/internal/controller"
)

// Scheduler runs trials for a catalog over a bounded worker pool. Mutants
// are dispatched in catalog (FIFO) order; completion order is not defined
// and does not affect the persisted result.
type Scheduler struct {
	trial      TrialRunner
	aggregator *Aggregator
	ui         controller.UI
	jobs       int
}

// NewScheduler constructs a Scheduler. A non-positive jobs count falls back
// to the logical core count.
func NewScheduler(trial TrialRunner, aggregator *Aggregator, ui controller.UI, jobs int) *Scheduler {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	return &Scheduler{trial: trial, aggregator: aggregator, ui: ui, jobs: jobs}
}

// Run executes every catalog mutant and aggregates the outcomes. The first
// fatal error (workspace corruption, double-counted outcome, cancellation)
// stops dispatch and is returned after in-flight trials settle.
func (s *Scheduler) Run(ctx context.Context, catalog *adapter.MutantCatalog) error {
	records := catalog.Records()
	total := len(records)

	slog.Info("scheduling trials", "mutants", total, "jobs", s.jobs)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.jobs)

	for _, record := range records {
		currentRecord := record

		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			s.ui.DisplayStartingTrialInfo(groupCtx, currentRecord)

			outcome, err := s.trial.Run(groupCtx, currentRecord)
			if err != nil {
				return err
			}

			if err := groupCtx.Err(); err != nil {
				// The trial was cut short by cancellation; its outcome is
				// not a verdict.
				return err
			}

			if err := s.aggregator.Add(outcome); err != nil {
				return err
			}

			completed, undetected := s.aggregator.Progress()
			s.ui.DisplayCompletedTrialInfo(groupCtx, currentRecord, outcome, completed, total, undetected)

			return nil
		})
	}

	return group.Wait()
}
