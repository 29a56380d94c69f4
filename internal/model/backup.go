package model

import "time"

// BackupRecord is the write-ahead record persisted immediately before a
// mutant overwrites its target file. At most one record per target path may
// exist at any instant; a record found on startup means a prior run died
// with the mutant still applied and the original must be restored first.
type BackupRecord struct {
	TargetPath     Path      `yaml:"target_path"`
	OriginalSHA256 string    `yaml:"original_sha256"`
	AppliedMutant  string    `yaml:"applied_mutant"`
	AppliedAt      time.Time `yaml:"applied_at"`
}
