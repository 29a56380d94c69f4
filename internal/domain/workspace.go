// Package domain implements the mutation trial engine: workspace guarding,
// trial execution, scheduling and result aggregation.
package domain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// Lease grants exclusive access to a project tree with exactly one mutant
// applied. Dir is the directory the build and test commands must run in.
// Release restores the pre-trial state; it is idempotent and must be called
// on every exit path of a trial.
type Lease struct {
	Dir m.Path

	release    func() error
	once       sync.Once
	releaseErr error
}

// Release undoes the mutant application. A non-nil error means the project
// tree could not be restored and the run must stop.
func (l *Lease) Release() error {
	l.once.Do(func() {
		l.releaseErr = l.release()
	})

	return l.releaseErr
}

// Workspace applies one mutant at a time into a project tree and guarantees
// restoration of the original state.
type Workspace interface {
	// Apply installs the mutant's content and returns a lease. The lease
	// holds any exclusivity the implementation requires until Release.
	Apply(ctx context.Context, mutant m.MutantRecord) (*Lease, error)

	// Recover restores any state a crashed run left applied, returning the
	// target paths that were restored. Called before any trial runs.
	Recover() ([]m.Path, error)
}

// SharedTreeWorkspace mutates the caller's project tree in place. A
// write-ahead backup journal makes every application recoverable, and the
// whole apply→test→restore window is exclusive because all trials build
// against the same artifacts.
type SharedTreeWorkspace struct {
	fs          adapter.ProjectFSAdapter
	projectRoot m.Path
	journal     *BackupJournal

	// treeMu serializes the full critical section across workers.
	treeMu sync.Mutex
	// pathMu guards the one-backup-per-path invariant independently of the
	// tree-wide policy above.
	pathMu    sync.Mutex
	pathLocks map[m.Path]*sync.Mutex
}

// NewSharedTreeWorkspace constructs a SharedTreeWorkspace for projectRoot
// with its journal at <projectRoot>/.gambitrun-journal.
func NewSharedTreeWorkspace(fs adapter.ProjectFSAdapter, projectRoot m.Path) *SharedTreeWorkspace {
	return &SharedTreeWorkspace{
		fs:          fs,
		projectRoot: projectRoot,
		journal:     NewBackupJournal(fs, fs.JoinPath(string(projectRoot), JournalDirName)),
		pathLocks:   map[m.Path]*sync.Mutex{},
	}
}

func (w *SharedTreeWorkspace) lockForPath(path m.Path) *sync.Mutex {
	w.pathMu.Lock()
	defer w.pathMu.Unlock()

	lock, ok := w.pathLocks[path]
	if !ok {
		lock = &sync.Mutex{}
		w.pathLocks[path] = lock
	}

	return lock
}

// Apply overwrites the mutant's target file after journaling the original
// bytes. The returned lease keeps the tree exclusive until Release.
func (w *SharedTreeWorkspace) Apply(ctx context.Context, mutant m.MutantRecord) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mutated, err := w.fs.ReadFile(mutant.MutantPath)
	if err != nil {
		return nil, fmt.Errorf("read mutant content %s: %w", mutant.MutantPath, err)
	}

	target := w.fs.JoinPath(string(w.projectRoot), string(mutant.TargetPath))

	info, err := w.fs.FileInfo(target)
	if err != nil {
		return nil, fmt.Errorf("target file %s: %w", target, err)
	}

	w.treeMu.Lock()
	pathLock := w.lockForPath(mutant.TargetPath)
	pathLock.Lock()

	unlock := func() {
		pathLock.Unlock()
		w.treeMu.Unlock()
	}

	original, err := w.fs.ReadFile(target)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("read original %s: %w", target, err)
	}

	record := m.BackupRecord{
		TargetPath:     mutant.TargetPath,
		OriginalSHA256: fmt.Sprintf("%x", sha256.Sum256(original)),
		AppliedMutant:  mutant.ID,
		AppliedAt:      time.Now().UTC(),
	}

	if err := w.journal.Write(record, original); err != nil {
		unlock()
		return nil, err
	}

	if err := w.fs.WriteFile(target, mutated, info.Mode()); err != nil {
		// The overwrite failed, so the original is still intact.
		if removeErr := w.journal.Remove(mutant.TargetPath); removeErr != nil {
			slog.Warn("failed to discard backup record", "target", mutant.TargetPath, "error", removeErr)
		}

		unlock()

		return nil, fmt.Errorf("write mutant to %s: %w", target, err)
	}

	slog.Debug("mutant applied", "mutant", mutant.ID, "target", target)

	return &Lease{
		Dir: w.projectRoot,
		release: func() error {
			defer unlock()
			return w.restore(target, mutant.TargetPath, original, info.Mode())
		},
	}, nil
}

// restore writes the original bytes back, verifies them, and discards the
// backup record.
func (w *SharedTreeWorkspace) restore(target, targetPath m.Path, original []byte, mode os.FileMode) error {
	if err := w.fs.WriteFile(target, original, mode); err != nil {
		return fmt.Errorf("restore %s: %w", target, err)
	}

	restored, err := w.fs.ReadFile(target)
	if err != nil {
		return fmt.Errorf("verify restored %s: %w", target, err)
	}

	if !bytes.Equal(restored, original) {
		return fmt.Errorf("restored content mismatch for %s", target)
	}

	if err := w.journal.Remove(targetPath); err != nil {
		return err
	}

	slog.Debug("original restored", "target", target)

	return nil
}

// Recover replays any leftover journal entries, restoring the targets a
// crashed run left mutated.
func (w *SharedTreeWorkspace) Recover() ([]m.Path, error) {
	records, err := w.journal.Entries()
	if err != nil {
		return nil, err
	}

	var restored []m.Path

	for _, record := range records {
		original, err := w.journal.Original(record)
		if err != nil {
			return restored, err
		}

		target := w.fs.JoinPath(string(w.projectRoot), string(record.TargetPath))

		sum := fmt.Sprintf("%x", sha256.Sum256(original))
		if sum != record.OriginalSHA256 {
			return restored, fmt.Errorf("journal original for %s is corrupt (checksum mismatch)", record.TargetPath)
		}

		if err := w.fs.WriteFile(target, original, 0o600); err != nil {
			return restored, fmt.Errorf("recover %s: %w", target, err)
		}

		if err := w.journal.Remove(record.TargetPath); err != nil {
			return restored, err
		}

		slog.Info("recovered mutated file from journal",
			"target", record.TargetPath, "mutant", record.AppliedMutant, "applied_at", record.AppliedAt)

		restored = append(restored, record.TargetPath)
	}

	return restored, nil
}

// IsolatedCopyWorkspace clones the project tree into a temporary directory
// per trial, so builds and tests of different mutants never share files.
// Restoration is dropping the copy; the shared tree is never touched.
type IsolatedCopyWorkspace struct {
	fs          adapter.ProjectFSAdapter
	projectRoot m.Path
}

// NewIsolatedCopyWorkspace constructs an IsolatedCopyWorkspace for
// projectRoot.
func NewIsolatedCopyWorkspace(fs adapter.ProjectFSAdapter, projectRoot m.Path) *IsolatedCopyWorkspace {
	return &IsolatedCopyWorkspace{fs: fs, projectRoot: projectRoot}
}

// Apply copies the project into a fresh temp dir and writes the mutant
// there.
func (w *IsolatedCopyWorkspace) Apply(ctx context.Context, mutant m.MutantRecord) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mutated, err := w.fs.ReadFile(mutant.MutantPath)
	if err != nil {
		return nil, fmt.Errorf("read mutant content %s: %w", mutant.MutantPath, err)
	}

	tmpDir, err := w.fs.CreateTempDir("gambitrun-trial-*")
	if err != nil {
		return nil, fmt.Errorf("create trial dir: %w", err)
	}

	cleanup := func() error {
		return w.fs.RemoveAll(tmpDir)
	}

	if err := w.fs.CopyDir(w.projectRoot, tmpDir); err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("copy project to %s: %w", tmpDir, err)
	}

	target := w.fs.JoinPath(string(tmpDir), string(mutant.TargetPath))

	info, err := w.fs.FileInfo(target)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("target file %s: %w", target, err)
	}

	if err := w.fs.WriteFile(target, mutated, info.Mode()); err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("write mutant to %s: %w", target, err)
	}

	slog.Debug("mutant applied in isolated copy", "mutant", mutant.ID, "dir", tmpDir)

	return &Lease{Dir: tmpDir, release: cleanup}, nil
}

// Recover is a no-op: isolated copies live under the OS temp dir and never
// mutate the shared tree.
func (w *IsolatedCopyWorkspace) Recover() ([]m.Path, error) {
	return nil, nil
}

var (
	_ Workspace = (*SharedTreeWorkspace)(nil)
	_ Workspace = (*IsolatedCopyWorkspace)(nil)
)
