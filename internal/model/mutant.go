// Package model defines the data structures for mutation trial runs.
package model

// Path represents a file system path.
type Path string

// MutantRecord describes one mutant from the generator's results manifest.
// Records are immutable once loaded and shared read-only between workers.
type MutantRecord struct {
	// ID is the unique, stable identifier of the mutant across runs.
	ID string `json:"id"`
	// Name is the mutant file name relative to the gambit output directory.
	Name string `json:"name"`
	// TargetPath is the source file the mutant replaces, relative to the
	// project root.
	TargetPath Path `json:"original"`
	// MutantPath is the absolute location of the mutated content.
	MutantPath Path `json:"-"`
	// Description is the generator's human-readable mutation summary.
	Description string `json:"description,omitempty"`
	// Diff is the generator-supplied unified diff, when present.
	Diff string `json:"diff,omitempty"`
	// Line is the 1-based mutated line, 0 when unknown.
	Line int `json:"line,omitempty"`
}
