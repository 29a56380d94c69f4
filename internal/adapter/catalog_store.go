package adapter

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/elliotchance/orderedmap/v2"

	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// manifestName is the results file the external mutation generator writes
// into its output directory.
const manifestName = "gambit_results.json"

// MutantCatalog is the ordered, read-only set of mutants for one run.
// Iteration order is manifest order; lookup is by mutant ID.
type MutantCatalog struct {
	records *orderedmap.OrderedMap[string, m.MutantRecord]
}

// NewMutantCatalog builds a catalog from records, preserving their order.
// Duplicate IDs are rejected: outcomes are keyed by ID and a collision would
// double-count.
func NewMutantCatalog(records []m.MutantRecord) (*MutantCatalog, error) {
	catalog := &MutantCatalog{records: orderedmap.NewOrderedMap[string, m.MutantRecord]()}

	for _, record := range records {
		if _, exists := catalog.records.Get(record.ID); exists {
			return nil, fmt.Errorf("duplicate mutant id %q in manifest", record.ID)
		}

		catalog.records.Set(record.ID, record)
	}

	return catalog, nil
}

// Len returns the number of mutants in the catalog.
func (c *MutantCatalog) Len() int {
	return c.records.Len()
}

// Get returns the record for the given mutant ID.
func (c *MutantCatalog) Get(id string) (m.MutantRecord, bool) {
	return c.records.Get(id)
}

// Records returns all records in manifest order.
func (c *MutantCatalog) Records() []m.MutantRecord {
	records := make([]m.MutantRecord, 0, c.records.Len())
	for el := c.records.Front(); el != nil; el = el.Next() {
		records = append(records, el.Value)
	}

	return records
}

// Filter returns a new catalog restricted to the given IDs, keeping the
// original manifest order. IDs not present in the catalog are ignored.
func (c *MutantCatalog) Filter(ids []string) (*MutantCatalog, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var records []m.MutantRecord

	for el := c.records.Front(); el != nil; el = el.Next() {
		if _, ok := wanted[el.Key]; ok {
			records = append(records, el.Value)
		}
	}

	return NewMutantCatalog(records)
}

// CatalogStore loads the external generator's results manifest.
type CatalogStore interface {
	// Load parses <gambitDir>/gambit_results.json and resolves each mutant's
	// content path. Missing manifest or mutant files are fatal.
	Load(gambitDir m.Path) (*MutantCatalog, error)
}

// GambitCatalogStore is the concrete CatalogStore for gambit output
// directories.
type GambitCatalogStore struct {
	fs ProjectFSAdapter
}

// NewGambitCatalogStore constructs a GambitCatalogStore backed by the
// provided filesystem adapter.
func NewGambitCatalogStore(fs ProjectFSAdapter) *GambitCatalogStore {
	return &GambitCatalogStore{fs: fs}
}

// manifestEntry mirrors one element of gambit_results.json. The generator
// writes IDs as JSON numbers; older outputs omit them entirely.
type manifestEntry struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Original    string      `json:"original"`
	Description string      `json:"description"`
	Diff        string      `json:"diff"`
	Line        int         `json:"line"`
}

// Load reads and validates the manifest.
func (s *GambitCatalogStore) Load(gambitDir m.Path) (*MutantCatalog, error) {
	manifestPath := filepath.Join(string(gambitDir), manifestName)

	data, err := s.fs.ReadFile(m.Path(manifestPath))
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}

	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", manifestPath, err)
	}

	records := make([]m.MutantRecord, 0, len(entries))

	for _, entry := range entries {
		record, err := s.recordFromEntry(gambitDir, entry)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return NewMutantCatalog(records)
}

func (s *GambitCatalogStore) recordFromEntry(gambitDir m.Path, entry manifestEntry) (m.MutantRecord, error) {
	if entry.Name == "" {
		return m.MutantRecord{}, fmt.Errorf("manifest entry missing name")
	}

	if entry.Original == "" {
		return m.MutantRecord{}, fmt.Errorf("manifest entry %q missing original path", entry.Name)
	}

	id := entry.ID.String()
	if id == "" {
		// Older gambit outputs carry no ID field; the mutant file name is
		// unique within one output directory and stable across runs.
		id = entry.Name
	}

	mutantPath := s.fs.JoinPath(string(gambitDir), entry.Name)

	info, err := s.fs.FileInfo(mutantPath)
	if err != nil {
		return m.MutantRecord{}, fmt.Errorf("mutant file for %q: %w", entry.Name, err)
	}

	if info.IsDir() {
		return m.MutantRecord{}, fmt.Errorf("mutant path %s is a directory", mutantPath)
	}

	return m.MutantRecord{
		ID:          id,
		Name:        entry.Name,
		TargetPath:  m.Path(entry.Original),
		MutantPath:  mutantPath,
		Description: entry.Description,
		Diff:        entry.Diff,
		Line:        entry.Line,
	}, nil
}

var _ CatalogStore = (*GambitCatalogStore)(nil)
