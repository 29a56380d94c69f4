package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	"gambitrun.dev/pkg/gambitrun/internal/controller"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// resultStoreMock serves a canned result set.
type resultStoreMock struct {
	resultSet  *m.ResultSet
	loadErr    error
	loadedPath m.Path
}

func (s *resultStoreMock) Save(_ m.Path, _ *m.ResultSet) error {
	return errors.New("not implemented")
}

func (s *resultStoreMock) Load(path m.Path) (*m.ResultSet, error) {
	s.loadedPath = path

	return s.resultSet, s.loadErr
}

func swapResultStore(t *testing.T, mock adapter.ResultStore) {
	t.Helper()

	previous := resultStore
	resultStore = mock

	t.Cleanup(func() { resultStore = previous })
}

func swapUI(t *testing.T, mock controller.UI) {
	t.Helper()

	previous := ui
	ui = mock

	t.Cleanup(func() { ui = previous })
}

func TestReportCmd_DisplaysPersistedResults(t *testing.T) {
	resultSet := &m.ResultSet{
		Total:  2,
		Killed: 1,
		Entries: []m.ResultEntry{
			{MutantID: "2", Status: "survived", TargetPath: "src/Calc.sol"},
		},
	}

	store := &resultStoreMock{resultSet: resultSet}
	display := &uiMock{}
	swapResultStore(t, store)
	swapUI(t, display)

	_, err := executeRoot(t, "report", "--output", "some_results.json")
	require.NoError(t, err)

	assert.Equal(t, m.Path("some_results.json"), store.loadedPath)
	assert.Equal(t, resultSet, display.displayed)
}

func TestReportCmd_MissingArtifact(t *testing.T) {
	store := &resultStoreMock{loadErr: errors.New("read result set: no such file")}
	swapResultStore(t, store)
	swapUI(t, &uiMock{})

	_, err := executeRoot(t, "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read result set")
}
