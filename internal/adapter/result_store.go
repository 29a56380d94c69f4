package adapter

import (
	"encoding/json"
	"fmt"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// ResultStore persists and loads the run's result artifact.
type ResultStore interface {
	Save(path m.Path, resultSet *m.ResultSet) error
	Load(path m.Path) (*m.ResultSet, error)
}

// JSONResultStore stores the ResultSet as an indented JSON document.
type JSONResultStore struct {
	fs ProjectFSAdapter
}

// NewJSONResultStore constructs a JSONResultStore backed by the provided
// filesystem adapter.
func NewJSONResultStore(fs ProjectFSAdapter) *JSONResultStore {
	return &JSONResultStore{fs: fs}
}

// Save writes the result set to path.
func (s *JSONResultStore) Save(path m.Path, resultSet *m.ResultSet) error {
	data, err := json.MarshalIndent(resultSet, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result set: %w", err)
	}

	data = append(data, '\n')

	if err := s.fs.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write result set %s: %w", path, err)
	}

	return nil
}

// Load reads a previously persisted result set from path.
func (s *JSONResultStore) Load(path m.Path) (*m.ResultSet, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result set %s: %w", path, err)
	}

	var resultSet m.ResultSet
	if err := json.Unmarshal(data, &resultSet); err != nil {
		return nil, fmt.Errorf("parse result set %s: %w", path, err)
	}

	return &resultSet, nil
}

var _ ResultStore = (*JSONResultStore)(nil)
