package model

import "time"

// TrialStatus represents the outcome class of a single mutation trial.
type TrialStatus int

const (
	// Killed indicates the test suite detected the mutant (nonzero exit).
	Killed TrialStatus = iota
	// Survived indicates the test suite passed with the mutant applied.
	Survived
	// TimedOut indicates the test command exceeded the trial deadline.
	TimedOut
	// BuildFailed indicates the mutant did not compile.
	BuildFailed
	// InternalError indicates the trial itself failed (apply error, command
	// could not start). Never conflated with a surviving mutant.
	InternalError
)

var statusNames = map[TrialStatus]string{
	Killed:        "killed",
	Survived:      "survived",
	TimedOut:      "timed_out",
	BuildFailed:   "build_failed",
	InternalError: "internal_error",
}

func (s TrialStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return "unknown"
}

// Reportable reports whether a trial with this status belongs in the
// persisted result artifact. Killed mutants are the expected case and are
// only counted, not listed.
func (s TrialStatus) Reportable() bool {
	return s != Killed
}

// Undetected reports whether the status means the suite failed to catch the
// mutant. TimedOut counts: a suite that cannot terminate in bounded time has
// not confirmed a kill.
func (s TrialStatus) Undetected() bool {
	return s == Survived || s == TimedOut
}

// ParseTrialStatus maps the persisted status name back to its TrialStatus.
func ParseTrialStatus(name string) (TrialStatus, bool) {
	for status, n := range statusNames {
		if n == name {
			return status, true
		}
	}

	return InternalError, false
}

// TrialOutcome is the result of one end-to-end mutation trial. Produced
// exactly once per mutant per run, immutable thereafter.
type TrialOutcome struct {
	MutantID string
	Status   TrialStatus
	Duration time.Duration
	// Stdout and Stderr are only populated when debug capture is enabled.
	Stdout string
	Stderr string
	// Err carries the underlying fault for InternalError outcomes.
	Err error
}
