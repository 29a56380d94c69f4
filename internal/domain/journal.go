package domain

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// JournalDirName is the directory, under the project root, that holds
// write-ahead backup records while a mutant is live in the shared tree.
const JournalDirName = ".gambitrun-journal"

const (
	recordSuffix   = ".yaml"
	originalSuffix = ".orig"
)

// BackupJournal persists a BackupRecord plus the original file bytes before
// a mutant overwrites its target. An entry that still exists on startup
// means a prior run died mid-trial and the target must be restored before
// any new trial runs.
type BackupJournal struct {
	fs  adapter.ProjectFSAdapter
	dir m.Path
}

// NewBackupJournal constructs a journal rooted at dir.
func NewBackupJournal(fs adapter.ProjectFSAdapter, dir m.Path) *BackupJournal {
	return &BackupJournal{fs: fs, dir: dir}
}

// entryKey derives the stable file name for a target path. Hashing keeps
// nested target paths flat inside the journal directory.
func entryKey(target m.Path) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(target)))
}

// Write persists the original bytes and then the record. The record file is
// written last so its presence guarantees the original bytes are complete.
func (j *BackupJournal) Write(record m.BackupRecord, original []byte) error {
	if err := j.fs.MkdirAll(j.dir, 0o750); err != nil {
		return fmt.Errorf("create journal dir %s: %w", j.dir, err)
	}

	key := entryKey(record.TargetPath)

	recordPath := j.fs.JoinPath(string(j.dir), key+recordSuffix)
	if _, err := j.fs.FileInfo(recordPath); err == nil {
		return fmt.Errorf("backup record already exists for %s", record.TargetPath)
	}

	originalPath := j.fs.JoinPath(string(j.dir), key+originalSuffix)
	if err := j.fs.WriteFile(originalPath, original, 0o600); err != nil {
		return fmt.Errorf("write journal original %s: %w", originalPath, err)
	}

	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode backup record: %w", err)
	}

	if err := j.fs.WriteFile(recordPath, data, 0o600); err != nil {
		return fmt.Errorf("write backup record %s: %w", recordPath, err)
	}

	slog.Debug("backup record written", "target", record.TargetPath, "mutant", record.AppliedMutant)

	return nil
}

// Remove discards the entry for target. The record file goes first so a
// crash between the two deletes leaves no record pointing at missing bytes.
func (j *BackupJournal) Remove(target m.Path) error {
	key := entryKey(target)

	if err := j.fs.Remove(j.fs.JoinPath(string(j.dir), key+recordSuffix)); err != nil {
		return fmt.Errorf("remove backup record for %s: %w", target, err)
	}

	if err := j.fs.Remove(j.fs.JoinPath(string(j.dir), key+originalSuffix)); err != nil {
		return fmt.Errorf("remove journal original for %s: %w", target, err)
	}

	return nil
}

// Entries returns every backup record currently in the journal.
func (j *BackupJournal) Entries() ([]m.BackupRecord, error) {
	dirEntries, err := j.fs.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read journal dir %s: %w", j.dir, err)
	}

	var records []m.BackupRecord

	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}

		data, err := j.fs.ReadFile(j.fs.JoinPath(string(j.dir), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read backup record %s: %w", entry.Name(), err)
		}

		var record m.BackupRecord
		if err := yaml.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parse backup record %s: %w", entry.Name(), err)
		}

		records = append(records, record)
	}

	return records, nil
}

// Original returns the pre-mutation bytes stored for record.
func (j *BackupJournal) Original(record m.BackupRecord) ([]byte, error) {
	path := j.fs.JoinPath(string(j.dir), entryKey(record.TargetPath)+originalSuffix)

	data, err := j.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal original for %s: %w", record.TargetPath, err)
	}

	return data, nil
}
