package domain

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// testProject lays out a minimal project plus one mutant file and returns
// the project root and the mutant record.
func testProject(t *testing.T, originalContent, mutantContent string) (m.Path, m.MutantRecord) {
	t.Helper()

	projectRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectRoot, "src"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(projectRoot, "src", "Calc.sol"), []byte(originalContent), 0o600))

	mutantDir := t.TempDir()
	mutantPath := filepath.Join(mutantDir, "Calc.sol")
	require.NoError(t, os.WriteFile(mutantPath, []byte(mutantContent), 0o600))

	return m.Path(projectRoot), m.MutantRecord{
		ID:         "1",
		Name:       "mutants/1/Calc.sol",
		TargetPath: "src/Calc.sol",
		MutantPath: m.Path(mutantPath),
	}
}

func readTarget(t *testing.T, projectRoot m.Path, target m.Path) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(string(projectRoot), string(target)))
	require.NoError(t, err)

	return string(data)
}

func TestSharedTreeWorkspace_ApplyAndRelease(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")
	workspace := NewSharedTreeWorkspace(adapter.NewLocalProjectFSAdapter(), projectRoot)

	lease, err := workspace.Apply(context.Background(), mutant)
	require.NoError(t, err)
	assert.Equal(t, projectRoot, lease.Dir)

	// The mutant is live and the journal holds the original.
	assert.Equal(t, "mutated\n", readTarget(t, projectRoot, mutant.TargetPath))

	entries, err := workspace.journal.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, mutant.ID, entries[0].AppliedMutant)

	require.NoError(t, lease.Release())

	assert.Equal(t, "original\n", readTarget(t, projectRoot, mutant.TargetPath))

	entries, err = workspace.journal.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSharedTreeWorkspace_ReleaseIsIdempotent(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")
	workspace := NewSharedTreeWorkspace(adapter.NewLocalProjectFSAdapter(), projectRoot)

	lease, err := workspace.Apply(context.Background(), mutant)
	require.NoError(t, err)

	require.NoError(t, lease.Release())
	require.NoError(t, lease.Release())
}

func TestSharedTreeWorkspace_Apply_MissingTarget(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")
	mutant.TargetPath = "src/DoesNotExist.sol"

	workspace := NewSharedTreeWorkspace(adapter.NewLocalProjectFSAdapter(), projectRoot)

	_, err := workspace.Apply(context.Background(), mutant)
	require.Error(t, err)
}

func TestSharedTreeWorkspace_Apply_CancelledContext(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")
	workspace := NewSharedTreeWorkspace(adapter.NewLocalProjectFSAdapter(), projectRoot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := workspace.Apply(ctx, mutant)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSharedTreeWorkspace_SerializesTrials(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")

	other := mutant
	other.ID = "2"

	workspace := NewSharedTreeWorkspace(adapter.NewLocalProjectFSAdapter(), projectRoot)

	lease, err := workspace.Apply(context.Background(), mutant)
	require.NoError(t, err)

	applied := make(chan struct{})

	go func() {
		defer close(applied)

		secondLease, applyErr := workspace.Apply(context.Background(), other)
		assert.NoError(t, applyErr)
		assert.NoError(t, secondLease.Release())
	}()

	// The second apply must not get in while the first lease is held.
	select {
	case <-applied:
		t.Fatal("second apply completed while the first lease was held")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, lease.Release())

	select {
	case <-applied:
	case <-time.After(5 * time.Second):
		t.Fatal("second apply never ran after release")
	}

	assert.Equal(t, "original\n", readTarget(t, projectRoot, mutant.TargetPath))
}

func TestSharedTreeWorkspace_Recover_RestoresCrashedRun(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")
	fs := adapter.NewLocalProjectFSAdapter()

	// Simulate a crash: journal the original, overwrite the target, and never
	// release.
	crashed := NewSharedTreeWorkspace(fs, projectRoot)
	_, err := crashed.Apply(context.Background(), mutant)
	require.NoError(t, err)
	assert.Equal(t, "mutated\n", readTarget(t, projectRoot, mutant.TargetPath))

	// A fresh process starts up and sweeps the journal.
	workspace := NewSharedTreeWorkspace(fs, projectRoot)

	restored, err := workspace.Recover()
	require.NoError(t, err)
	assert.Equal(t, []m.Path{mutant.TargetPath}, restored)
	assert.Equal(t, "original\n", readTarget(t, projectRoot, mutant.TargetPath))

	// Idempotent: a second sweep finds nothing.
	restored, err = workspace.Recover()
	require.NoError(t, err)
	assert.Empty(t, restored)
}

func TestSharedTreeWorkspace_Recover_DetectsCorruptBackup(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")
	fs := adapter.NewLocalProjectFSAdapter()

	crashed := NewSharedTreeWorkspace(fs, projectRoot)
	_, err := crashed.Apply(context.Background(), mutant)
	require.NoError(t, err)

	// Corrupt the journaled original bytes.
	key := fmt.Sprintf("%x", sha256.Sum256([]byte(mutant.TargetPath)))
	originalPath := filepath.Join(string(projectRoot), JournalDirName, key+originalSuffix)
	require.NoError(t, os.WriteFile(originalPath, []byte("tampered\n"), 0o600))

	workspace := NewSharedTreeWorkspace(fs, projectRoot)

	_, err = workspace.Recover()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestIsolatedCopyWorkspace_ApplyAndRelease(t *testing.T) {
	projectRoot, mutant := testProject(t, "original\n", "mutated\n")
	workspace := NewIsolatedCopyWorkspace(adapter.NewLocalProjectFSAdapter(), projectRoot)

	lease, err := workspace.Apply(context.Background(), mutant)
	require.NoError(t, err)
	require.NotEqual(t, projectRoot, lease.Dir)

	// The copy carries the mutant; the shared tree is untouched.
	data, err := os.ReadFile(filepath.Join(string(lease.Dir), string(mutant.TargetPath)))
	require.NoError(t, err)
	assert.Equal(t, "mutated\n", string(data))
	assert.Equal(t, "original\n", readTarget(t, projectRoot, mutant.TargetPath))

	require.NoError(t, lease.Release())

	_, err = os.Stat(string(lease.Dir))
	assert.True(t, os.IsNotExist(err), "trial copy must be dropped on release")
}

func TestIsolatedCopyWorkspace_RecoverIsNoop(t *testing.T) {
	projectRoot, _ := testProject(t, "original\n", "mutated\n")
	workspace := NewIsolatedCopyWorkspace(adapter.NewLocalProjectFSAdapter(), projectRoot)

	restored, err := workspace.Recover()
	require.NoError(t, err)
	assert.Empty(t, restored)
}
