package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// progressBarWidth is the character width of the plain-text progress bar.
const progressBarWidth = 30

// SimpleUI implements UI by printing plain lines through a cobra Command.
type SimpleUI struct {
	cmd   *cobra.Command
	total int
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	config := StartConfig{}
	for _, option := range options {
		option(&config)
	}

	s.total = config.total

	return nil
}

// Close finalizes the UI (no-op for SimpleUI).
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayRecoveryInfo reports files restored from a crashed run's journal.
func (s *SimpleUI) DisplayRecoveryInfo(ctx context.Context, restored []m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	for _, path := range restored {
		s.printf("Recovered %s from a previous interrupted run\n", path)
	}
}

// DisplayConcurrencyInfo shows the run's concurrency settings.
func (s *SimpleUI) DisplayConcurrencyInfo(ctx context.Context, jobs, total int, isolated bool) {
	if err := ctx.Err(); err != nil {
		return
	}

	mode := "shared tree"
	if isolated {
		mode = "isolated copies"
	}

	s.printf("Running %d mutants with %d worker(s), %s\n", total, jobs, mode)
}

// DisplayStartingTrialInfo shows info about a trial starting.
func (s *SimpleUI) DisplayStartingTrialInfo(ctx context.Context, mutant m.MutantRecord) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayCompletedTrialInfo prints a progress line after each trial.
func (s *SimpleUI) DisplayCompletedTrialInfo(ctx context.Context, mutant m.MutantRecord, outcome m.TrialOutcome, completed, total, undetected int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s  Undetected: %d  (%s -> %s)\n",
		progressBar(completed, total), undetected, mutant.ID, statusLabel(outcome.Status))
}

// DisplaySummary prints the end-of-run counters and undetected table.
func (s *SimpleUI) DisplaySummary(ctx context.Context, resultSet *m.ResultSet) {
	if err := ctx.Err(); err != nil {
		return
	}

	undetected := len(resultSet.UndetectedIDs())

	s.printf("\nDone. %d out of %d mutants were NOT detected by the test suite.\n",
		undetected, resultSet.Total)
	s.printf("Detection rate: %.1f%%\n", resultSet.DetectionRate()*100)

	if resultSet.Elapsed > 0 {
		s.printf("Elapsed time: %.2fs\n", resultSet.Elapsed.Seconds())
	}

	if len(resultSet.Entries) > 0 {
		s.printf("\n%s", renderResultTable(resultSet))
	}
}

// DisplayResultSet pretty-prints a persisted result artifact, including the
// per-mutant diffs.
func (s *SimpleUI) DisplayResultSet(ctx context.Context, resultSet *m.ResultSet) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n=== Undetected mutants ===\n\n%s", renderResultTable(resultSet))

	for _, entry := range resultSet.Entries {
		s.printf("\nMutant %s (%s)\n", entry.MutantID, statusLabelName(entry.Status))

		if entry.Description != "" {
			s.printf("  Description: %s\n", entry.Description)
		}

		s.printf("  File: %s", entry.TargetPath)

		if entry.Line > 0 {
			s.printf(":%d", entry.Line)
		}

		s.printf("\n")

		if entry.Diff != "" {
			s.printf("  Diff:\n")

			for _, line := range bytes.Split([]byte(entry.Diff), []byte("\n")) {
				s.printf("    %s\n", line)
			}
		}

		if entry.Error != "" {
			s.printf("  Error: %s\n", entry.Error)
		}
	}

	s.printf("\nTotal undetected: %d of %d\n", len(resultSet.UndetectedIDs()), resultSet.Total)
}

func renderResultTable(resultSet *m.ResultSet) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"ID", "Status", "File", "Line", "Description"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
	})

	for _, entry := range resultSet.Entries {
		line := ""
		if entry.Line > 0 {
			line = fmt.Sprintf("%d", entry.Line)
		}

		table.Append([]string{
			entry.MutantID,
			entry.Status,
			string(entry.TargetPath),
			line,
			entry.Description,
		})
	}

	table.SetFooter([]string{
		"Total", fmt.Sprintf("%d", len(resultSet.Entries)), "", "",
		fmt.Sprintf("killed %d / %d", resultSet.Killed, resultSet.Total),
	})

	table.Render()

	return tableBuffer.String()
}

func statusLabel(status m.TrialStatus) string {
	name := status.String()

	switch status {
	case m.Killed:
		return color.Green.Sprint(name)
	case m.Survived:
		return color.Red.Sprint(name)
	case m.TimedOut:
		return color.Yellow.Sprint(name)
	case m.BuildFailed:
		return color.Magenta.Sprint(name)
	default:
		return color.Bold.Sprint(name)
	}
}

func statusLabelName(name string) string {
	if status, ok := m.ParseTrialStatus(name); ok {
		return statusLabel(status)
	}

	return name
}

func progressBar(current, total int) string {
	filled := 0
	if total > 0 {
		filled = progressBarWidth * current / total
	}

	bar := make([]byte, progressBarWidth)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '-'
		}
	}

	return fmt.Sprintf("[%s] %d/%d", bar, current, total)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

var _ UI = (*SimpleUI)(nil)
