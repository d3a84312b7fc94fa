package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONIndex stores records as one JSON array in a single file:
//
//	[{"id": "...", "text": "...", "embedding": [...], "metadata": {...}}, ...]
//
// Writes go to a temporary file that is renamed over the index.
type JSONIndex struct {
	path string
}

// NewJSONIndex returns an index backed by path. The file is created on
// the first Save.
func NewJSONIndex(path string) *JSONIndex {
	return &JSONIndex{path: path}
}

// Path returns the index file location.
func (j *JSONIndex) Path() string { return j.path }

func (j *JSONIndex) Load() ([]Record, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", j.path, err)
	}
	return records, nil
}

func (j *JSONIndex) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func (j *JSONIndex) Close() error { return nil }
