package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	"gambitrun.dev/pkg/gambitrun/internal/controller"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// RunArgs contains the arguments for a full mutation trial run.
type RunArgs struct {
	GambitDir   m.Path
	ProjectRoot m.Path
	Output      m.Path
	TestCmd     string
	BuildCmd    string
	Timeout     time.Duration
	Jobs        int
	Debug       bool
	Uncaught    bool
	Isolated    bool
}

// Orchestrator sequences a run: crash recovery, baseline gates, catalog
// load, scheduling and result persistence.
type Orchestrator interface {
	Run(ctx context.Context, args RunArgs) (*m.ResultSet, error)
	Recover(ctx context.Context, projectRoot m.Path) ([]m.Path, error)
}

type orchestrator struct {
	fs           adapter.ProjectFSAdapter
	runner       adapter.ShellRunnerAdapter
	catalogStore adapter.CatalogStore
	resultStore  adapter.ResultStore
	ui           controller.UI
}

// NewOrchestrator constructs an Orchestrator backed by the provided
// adapters and UI.
func NewOrchestrator(
	fs adapter.ProjectFSAdapter,
	runner adapter.ShellRunnerAdapter,
	catalogStore adapter.CatalogStore,
	resultStore adapter.ResultStore,
	ui controller.UI,
) Orchestrator {
	return &orchestrator{
		fs:           fs,
		runner:       runner,
		catalogStore: catalogStore,
		resultStore:  resultStore,
		ui:           ui,
	}
}

// Run executes the whole mutation trial pipeline and returns the persisted
// result set.
func (o *orchestrator) Run(ctx context.Context, args RunArgs) (*m.ResultSet, error) {
	workspace := o.newWorkspace(args)

	restored, err := workspace.Recover()
	if err != nil {
		return nil, fmt.Errorf("crash recovery: %w", err)
	}

	o.ui.DisplayRecoveryInfo(ctx, restored)

	if err := o.baselineGates(ctx, args); err != nil {
		return nil, err
	}

	catalog, err := o.loadCatalog(args)
	if err != nil {
		return nil, err
	}

	trial := NewTrial(workspace, o.runner, TrialConfig{
		BuildCmd: args.BuildCmd,
		TestCmd:  args.TestCmd,
		Timeout:  args.Timeout,
		Debug:    args.Debug,
	})

	aggregator := NewAggregator()
	scheduler := NewScheduler(trial, aggregator, o.ui, args.Jobs)

	if err := o.ui.Start(ctx, controller.WithTotalTrials(catalog.Len())); err != nil {
		return nil, err
	}

	o.ui.DisplayConcurrencyInfo(ctx, scheduler.jobs, catalog.Len(), args.Isolated)

	started := time.Now()
	schedErr := scheduler.Run(ctx, catalog)

	o.ui.Close(ctx)

	if schedErr != nil {
		// Whatever stopped the run, sweep the journal so no mutant stays
		// applied in the shared tree.
		if _, recoverErr := workspace.Recover(); recoverErr != nil {
			slog.Error("cleanup sweep failed after aborted run", "error", recoverErr)
		}

		if errors.Is(schedErr, ErrWorkspaceCorrupted) {
			return nil, schedErr
		}

		return nil, fmt.Errorf("run aborted: %w", schedErr)
	}

	resultSet := aggregator.Finalize(catalog, time.Since(started))
	o.enrichDiffs(resultSet, catalog, args.ProjectRoot)

	if err := o.resultStore.Save(args.Output, resultSet); err != nil {
		return nil, err
	}

	o.ui.DisplaySummary(ctx, resultSet)
	slog.Info("run complete", "total", resultSet.Total, "killed", resultSet.Killed,
		"reported", len(resultSet.Entries), "output", args.Output)

	return resultSet, nil
}

// Recover performs only the crash-recovery sweep for projectRoot.
func (o *orchestrator) Recover(ctx context.Context, projectRoot m.Path) ([]m.Path, error) {
	workspace := NewSharedTreeWorkspace(o.fs, projectRoot)

	restored, err := workspace.Recover()
	if err != nil {
		return restored, err
	}

	o.ui.DisplayRecoveryInfo(ctx, restored)

	return restored, nil
}

func (o *orchestrator) newWorkspace(args RunArgs) Workspace {
	if args.Isolated {
		return NewIsolatedCopyWorkspace(o.fs, args.ProjectRoot)
	}

	return NewSharedTreeWorkspace(o.fs, args.ProjectRoot)
}

// baselineGates verifies the unmutated project builds and passes its tests.
// Scheduling trials against a broken baseline would report every mutant as
// killed.
func (o *orchestrator) baselineGates(ctx context.Context, args RunArgs) error {
	if args.BuildCmd != "" {
		build := o.runner.Run(ctx, string(args.ProjectRoot), args.BuildCmd, DefaultBuildTimeout)

		if build.Err != nil {
			return fmt.Errorf("baseline build could not run: %w", build.Err)
		}

		if build.TimedOut || build.ExitCode != 0 {
			return fmt.Errorf("baseline build failed (exit %d): fix the build before running mutation trials", build.ExitCode)
		}
	}

	test := o.runner.Run(ctx, string(args.ProjectRoot), args.TestCmd, args.Timeout)

	if test.Err != nil {
		return fmt.Errorf("baseline test could not run: %w", test.Err)
	}

	if test.TimedOut {
		return fmt.Errorf("baseline test suite exceeded the %.1fs timeout on unmutated code", args.Timeout.Seconds())
	}

	if test.ExitCode != 0 {
		return fmt.Errorf("baseline test suite failed (exit %d): the suite must pass on unmutated code", test.ExitCode)
	}

	return nil
}

func (o *orchestrator) loadCatalog(args RunArgs) (*adapter.MutantCatalog, error) {
	catalog, err := o.catalogStore.Load(args.GambitDir)
	if err != nil {
		return nil, err
	}

	if catalog.Len() == 0 {
		return nil, fmt.Errorf("no mutants found in %s", args.GambitDir)
	}

	if !args.Uncaught {
		return catalog, nil
	}

	prior, err := o.resultStore.Load(args.Output)
	if err != nil {
		return nil, fmt.Errorf("uncaught mode needs a prior result set: %w", err)
	}

	filtered, err := catalog.Filter(prior.UndetectedIDs())
	if err != nil {
		return nil, err
	}

	if filtered.Len() == 0 {
		return nil, fmt.Errorf("uncaught mode: no prior undetected mutants present in %s", args.GambitDir)
	}

	slog.Info("uncaught mode restricting catalog", "selected", filtered.Len(), "catalog", catalog.Len())

	return filtered, nil
}

// enrichDiffs fills in unified diffs for reportable entries whose manifest
// carried none, so the report is reviewable without the gambit directory.
func (o *orchestrator) enrichDiffs(resultSet *m.ResultSet, catalog *adapter.MutantCatalog, projectRoot m.Path) {
	for i, entry := range resultSet.Entries {
		if entry.Diff != "" {
			continue
		}

		record, ok := catalog.Get(entry.MutantID)
		if !ok {
			continue
		}

		original, err := o.fs.ReadFile(o.fs.JoinPath(string(projectRoot), string(record.TargetPath)))
		if err != nil {
			continue
		}

		mutated, err := o.fs.ReadFile(record.MutantPath)
		if err != nil {
			continue
		}

		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(original)),
			B:        difflib.SplitLines(string(mutated)),
			FromFile: string(record.TargetPath),
			ToFile:   record.Name,
			Context:  3,
		})
		if err != nil {
			continue
		}

		resultSet.Entries[i].Diff = diff
	}
}
