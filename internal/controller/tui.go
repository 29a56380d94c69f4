package controller

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

var (
	tuiTitleStyle  = lipgloss.NewStyle().Bold(true)
	tuiStatusStyle = lipgloss.NewStyle().Faint(true)
	tuiAlertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// trialCompletedMsg updates the progress view after one trial.
type trialCompletedMsg struct {
	mutantID   string
	status     m.TrialStatus
	completed  int
	total      int
	undetected int
}

// runFinishedMsg tells the program to quit.
type runFinishedMsg struct{}

// TUI implements UI with an interactive Bubble Tea progress display.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the progress program.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	config := StartConfig{}
	for _, option := range options {
		option(&config)
	}

	model := newTrialProgressModel(config.total)
	t.program = tea.NewProgram(model, tea.WithOutput(t.output))
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)

		if _, err := t.program.Run(); err != nil {
			fmt.Fprintf(t.output, "progress display error: %v\n", err)
		}
	}()

	return nil
}

// Close stops the progress program and waits for it to exit.
func (t *TUI) Close(_ context.Context) {
	if t.program == nil {
		return
	}

	t.program.Send(runFinishedMsg{})
	<-t.done
	t.program = nil
}

// DisplayRecoveryInfo reports files restored from a crashed run's journal.
func (t *TUI) DisplayRecoveryInfo(ctx context.Context, restored []m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	for _, path := range restored {
		fmt.Fprintf(t.output, "Recovered %s from a previous interrupted run\n", path)
	}
}

// DisplayConcurrencyInfo shows the run's concurrency settings.
func (t *TUI) DisplayConcurrencyInfo(ctx context.Context, jobs, total int, isolated bool) {
	if err := ctx.Err(); err != nil {
		return
	}

	mode := "shared tree"
	if isolated {
		mode = "isolated copies"
	}

	fmt.Fprintln(t.output, tuiTitleStyle.Render(
		fmt.Sprintf("Running %d mutants with %d worker(s), %s", total, jobs, mode)))
}

// DisplayStartingTrialInfo is a no-op; the bar only advances on completion.
func (t *TUI) DisplayStartingTrialInfo(_ context.Context, _ m.MutantRecord) {}

// DisplayCompletedTrialInfo advances the progress bar.
func (t *TUI) DisplayCompletedTrialInfo(ctx context.Context, mutant m.MutantRecord, outcome m.TrialOutcome, completed, total, undetected int) {
	if err := ctx.Err(); err != nil {
		return
	}

	if t.program == nil {
		return
	}

	t.program.Send(trialCompletedMsg{
		mutantID:   mutant.ID,
		status:     outcome.Status,
		completed:  completed,
		total:      total,
		undetected: undetected,
	})
}

// DisplaySummary prints the end-of-run counters after the program exited.
func (t *TUI) DisplaySummary(ctx context.Context, resultSet *m.ResultSet) {
	if err := ctx.Err(); err != nil {
		return
	}

	undetected := len(resultSet.UndetectedIDs())

	fmt.Fprintf(t.output, "\nDone. %d out of %d mutants were NOT detected by the test suite.\n",
		undetected, resultSet.Total)
	fmt.Fprintf(t.output, "Detection rate: %.1f%%\n", resultSet.DetectionRate()*100)

	if resultSet.Elapsed > 0 {
		fmt.Fprintf(t.output, "Elapsed time: %.2fs\n", resultSet.Elapsed.Seconds())
	}

	if len(resultSet.Entries) > 0 {
		fmt.Fprintf(t.output, "\n%s", renderResultTable(resultSet))
	}
}

// DisplayResultSet renders the persisted artifact without interactivity.
func (t *TUI) DisplayResultSet(ctx context.Context, resultSet *m.ResultSet) {
	if err := ctx.Err(); err != nil {
		return
	}

	fmt.Fprintf(t.output, "\n=== Undetected mutants ===\n\n%s", renderResultTable(resultSet))
}

// trialProgressModel is the Bubble Tea model behind the progress bar.
type trialProgressModel struct {
	bar        progress.Model
	completed  int
	total      int
	undetected int
	lastLine   string
	finished   bool
}

func newTrialProgressModel(total int) trialProgressModel {
	return trialProgressModel{
		bar:   progress.New(progress.WithDefaultGradient()),
		total: total,
	}
}

// Init implements tea.Model.
func (p trialProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p trialProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case trialCompletedMsg:
		p.completed = msg.completed
		p.total = msg.total
		p.undetected = msg.undetected
		p.lastLine = fmt.Sprintf("%s -> %s", msg.mutantID, statusLabel(msg.status))

		return p, nil

	case runFinishedMsg:
		p.finished = true
		return p, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return p, tea.Quit
		}

		return p, nil

	case tea.WindowSizeMsg:
		p.bar.Width = msg.Width - 4
		return p, nil

	default:
		return p, nil
	}
}

// View implements tea.Model.
func (p trialProgressModel) View() string {
	if p.finished {
		return ""
	}

	percent := 0.0
	if p.total > 0 {
		percent = float64(p.completed) / float64(p.total)
	}

	var view strings.Builder

	view.WriteString(p.bar.ViewAs(percent))
	view.WriteString(fmt.Sprintf("  %d/%d", p.completed, p.total))

	if p.undetected > 0 {
		view.WriteString("  " + tuiAlertStyle.Render(fmt.Sprintf("undetected: %d", p.undetected)))
	}

	if p.lastLine != "" {
		view.WriteString("\n" + tuiStatusStyle.Render(p.lastLine))
	}

	view.WriteString("\n")

	return view.String()
}

var _ UI = (*TUI)(nil)
