package artifact

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/matzehuels/votemap/pkg/buildinfo"
)

// Index is the cross-department manifest written once all departments of a
// run have finished.
type Index struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Generator   string       `json:"generator"`
	Departments []IndexEntry `json:"departments"`
}

// IndexEntry describes one department of the run.
type IndexEntry struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Artifacts []string `json:"artifacts"`
	HasMap    bool     `json:"has_map"`
	HasODD    bool     `json:"has_odd"`
	Warnings  int      `json:"warnings"`
	Error     string   `json:"error,omitempty"`
}

// NewIndex returns an index with entries sorted by department code.
func NewIndex(runID string, at time.Time, entries []IndexEntry) *Index {
	sorted := append([]IndexEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	for i := range sorted {
		if sorted[i].Artifacts == nil {
			sorted[i].Artifacts = []string{}
		}
	}
	return &Index{
		RunID:       runID,
		GeneratedAt: at.UTC(),
		Generator:   buildinfo.Short(),
		Departments: sorted,
	}
}

// Department returns the entry for code.
func (idx *Index) Department(code string) (IndexEntry, bool) {
	for _, e := range idx.Departments {
		if e.Code == code {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// WriteIndex writes idx to root/index.json.
func WriteIndex(root string, idx *Index) error {
	return WriteJSON(filepath.Join(root, FileIndex), idx, true)
}

// ReadIndex reads root/index.json.
func ReadIndex(root string) (*Index, error) {
	var idx Index
	if err := ReadJSON(filepath.Join(root, FileIndex), &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}
