package model

import "time"

// ResultEntry is one persisted row of a run's result artifact, keyed by
// mutant ID and mapped back to the source location for human review.
type ResultEntry struct {
	MutantID    string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	TargetPath  Path   `json:"original"`
	Line        int    `json:"line,omitempty"`
	Description string `json:"description,omitempty"`
	Diff        string `json:"diff,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
}

// ResultSet is the run's single persisted artifact: reportable entries
// sorted by mutant ID, plus whole-run counters.
type ResultSet struct {
	Entries []ResultEntry `json:"results"`
	Total   int           `json:"total"`
	Killed  int           `json:"killed"`
	Elapsed time.Duration `json:"-"`
}

// UndetectedIDs returns the IDs of entries whose status means the suite did
// not catch the mutant. Used by the uncaught-only re-run mode.
func (rs *ResultSet) UndetectedIDs() []string {
	var ids []string

	for _, entry := range rs.Entries {
		status, ok := ParseTrialStatus(entry.Status)
		if !ok {
			continue
		}

		if status.Undetected() {
			ids = append(ids, entry.MutantID)
		}
	}

	return ids
}

// DetectionRate returns the fraction of decided mutants that were killed.
// BuildFailed and InternalError trials are excluded from the denominator.
func (rs *ResultSet) DetectionRate() float64 {
	decided := rs.Killed

	for _, entry := range rs.Entries {
		status, ok := ParseTrialStatus(entry.Status)
		if !ok {
			continue
		}

		if status.Undetected() {
			decided++
		}
	}

	if decided == 0 {
		return 0
	}

	return float64(rs.Killed) / float64(decided)
}
