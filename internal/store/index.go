package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Index persists the complete record set of a Store. Save always receives
// every record and replaces whatever was stored before.
type Index interface {
	Load() ([]Record, error)
	Save(records []Record) error
	Close() error
}

// Backend names accepted by OpenIndex.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// OpenIndex opens the index for backend at path, creating the parent
// directory when needed.
func OpenIndex(backend, path string) (Index, error) {
	switch backend {
	case BackendJSON, BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	switch backend {
	case BackendJSON:
		return NewJSONIndex(path), nil
	case BackendSQLite:
		return OpenSQLiteIndex(path)
	case BackendMemory:
		return NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %q", backend)
	}
}

// MemoryIndex keeps records in memory only.
type MemoryIndex struct {
	records []Record
	saves   int
}

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Load() ([]Record, error) {
	return append([]Record(nil), m.records...), nil
}

func (m *MemoryIndex) Save(records []Record) error {
	m.records = append([]Record(nil), records...)
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryIndex) Saves() int { return m.saves }

func (m *MemoryIndex) Close() error { return nil }
