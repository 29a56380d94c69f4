package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gambitrun.dev/pkg/gambitrun/internal/controller"
	"gambitrun.dev/pkg/gambitrun/internal/domain"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// orchestratorMock records the arguments the CLI hands to the engine.
type orchestratorMock struct {
	runArgs     domain.RunArgs
	runCalls    int
	runResult   *m.ResultSet
	runErr      error
	recoverRoot m.Path
	restored    []m.Path
}

func (o *orchestratorMock) Run(_ context.Context, args domain.RunArgs) (*m.ResultSet, error) {
	o.runArgs = args
	o.runCalls++

	return o.runResult, o.runErr
}

func (o *orchestratorMock) Recover(_ context.Context, projectRoot m.Path) ([]m.Path, error) {
	o.recoverRoot = projectRoot

	return o.restored, nil
}

// uiMock records which result sets were displayed.
type uiMock struct {
	displayed *m.ResultSet
}

func (u *uiMock) Start(_ context.Context, _ ...controller.StartOption) error { return nil }
func (u *uiMock) Close(_ context.Context)                                    {}
func (u *uiMock) DisplayRecoveryInfo(_ context.Context, _ []m.Path)          {}
func (u *uiMock) DisplayConcurrencyInfo(_ context.Context, _, _ int, _ bool) {}
func (u *uiMock) DisplayStartingTrialInfo(_ context.Context, _ m.MutantRecord) {
}
func (u *uiMock) DisplayCompletedTrialInfo(_ context.Context, _ m.MutantRecord, _ m.TrialOutcome, _, _, _ int) {
}
func (u *uiMock) DisplaySummary(_ context.Context, _ *m.ResultSet) {}
func (u *uiMock) DisplayResultSet(_ context.Context, resultSet *m.ResultSet) {
	u.displayed = resultSet
}

func swapOrchestrator(t *testing.T, mock domain.Orchestrator) {
	t.Helper()

	previous := orchestrator
	orchestrator = mock

	t.Cleanup(func() { orchestrator = previous })
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

func TestRootCmd_ShowsHelpWithoutSubcommand(t *testing.T) {
	output, err := executeRoot(t)
	require.NoError(t, err)

	assert.Contains(t, output, "gambitrun")
	assert.Contains(t, output, "Available Commands")
}

func TestRunCmd_RequiresTestCmd(t *testing.T) {
	mock := &orchestratorMock{}
	swapOrchestrator(t, mock)

	_, err := executeRoot(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test command is required")
	assert.Zero(t, mock.runCalls)
}

func TestRunCmd_PassesFlagsToEngine(t *testing.T) {
	mock := &orchestratorMock{runResult: &m.ResultSet{}}
	swapOrchestrator(t, mock)

	_, err := executeRoot(t, "run",
		"--test-cmd", "forge test",
		"--build-cmd", "forge build",
		"--gambit-dir", "out/gambit",
		"--project-root", "proj",
		"--timeout", "2.5",
		"--jobs", "3",
		"--uncaught",
		"--isolated",
		"--output", "res.json",
	)
	require.NoError(t, err)

	require.Equal(t, 1, mock.runCalls)
	assert.Equal(t, "forge test", mock.runArgs.TestCmd)
	assert.Equal(t, "forge build", mock.runArgs.BuildCmd)
	assert.Equal(t, m.Path("out/gambit"), mock.runArgs.GambitDir)
	assert.Equal(t, m.Path("proj"), mock.runArgs.ProjectRoot)
	assert.Equal(t, m.Path("res.json"), mock.runArgs.Output)
	assert.Equal(t, 2500*time.Millisecond, mock.runArgs.Timeout)
	assert.Equal(t, 3, mock.runArgs.Jobs)
	assert.True(t, mock.runArgs.Uncaught)
	assert.True(t, mock.runArgs.Isolated)
}

func TestRecoverCmd_DelegatesToEngine(t *testing.T) {
	mock := &orchestratorMock{restored: []m.Path{"src/Calc.sol"}}
	swapOrchestrator(t, mock)

	_, err := executeRoot(t, "recover", "--project-root", "proj")
	require.NoError(t, err)

	assert.Equal(t, m.Path("proj"), mock.recoverRoot)
}

func TestRecoverCmd_ReportsNothingToRecover(t *testing.T) {
	mock := &orchestratorMock{}
	swapOrchestrator(t, mock)

	output, err := executeRoot(t, "recover")
	require.NoError(t, err)

	assert.Contains(t, output, "Nothing to recover")
}
