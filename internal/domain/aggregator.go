package domain

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// Aggregator collects trial outcomes from concurrent workers. Appends are
// linearizable and keyed by mutant ID, so no outcome is lost or counted
// twice regardless of completion order.
type Aggregator struct {
	mu         sync.Mutex
	outcomes   map[string]m.TrialOutcome
	undetected int
}

// NewAggregator constructs an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{outcomes: map[string]m.TrialOutcome{}}
}

// Add records one outcome. A second outcome for the same mutant is a
// programming error and is rejected.
func (a *Aggregator) Add(outcome m.TrialOutcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.outcomes[outcome.MutantID]; exists {
		return fmt.Errorf("duplicate outcome for mutant %s", outcome.MutantID)
	}

	a.outcomes[outcome.MutantID] = outcome

	if outcome.Status.Undetected() {
		a.undetected++
	}

	return nil
}

// Progress returns the completed and undetected counts so far.
func (a *Aggregator) Progress() (completed, undetected int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.outcomes), a.undetected
}

// Finalize builds the persisted result set: one entry per reportable
// outcome, joined with its catalog record and sorted by mutant ID. The
// order is deterministic for a fixed catalog even though execution is not.
func (a *Aggregator) Finalize(catalog *adapter.MutantCatalog, elapsed time.Duration) *m.ResultSet {
	a.mu.Lock()
	defer a.mu.Unlock()

	resultSet := &m.ResultSet{
		Total:   len(a.outcomes),
		Elapsed: elapsed,
		Entries: []m.ResultEntry{},
	}

	for id, outcome := range a.outcomes {
		if outcome.Status == m.Killed {
			resultSet.Killed++
			continue
		}

		entry := m.ResultEntry{
			MutantID:   id,
			Status:     outcome.Status.String(),
			DurationMS: outcome.Duration.Milliseconds(),
			Stdout:     outcome.Stdout,
			Stderr:     outcome.Stderr,
		}

		if outcome.Err != nil {
			entry.Error = outcome.Err.Error()
		}

		if record, ok := catalog.Get(id); ok {
			entry.Name = record.Name
			entry.TargetPath = record.TargetPath
			entry.Line = record.Line
			entry.Description = record.Description
			entry.Diff = record.Diff
		}

		resultSet.Entries = append(resultSet.Entries, entry)
	}

	sort.Slice(resultSet.Entries, func(i, j int) bool {
		return lessMutantID(resultSet.Entries[i].MutantID, resultSet.Entries[j].MutantID)
	})

	return resultSet
}

// lessMutantID orders numeric IDs numerically and everything else
// lexicographically, so "10" sorts after "9" when the generator emits
// numbered mutants.
func lessMutantID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)

	if errA == nil && errB == nil {
		return na < nb
	}

	return a < b
}
