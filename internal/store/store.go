// Package store keeps chunk embeddings in memory, answers brute-force
// cosine similarity queries and persists the whole record set to a single
// local index after every change.
//
// One Store owns its index location. Goroutines within a process may share
// a Store; separate processes writing the same index are not coordinated
// and the last writer wins.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"

	"kbase/internal/chunker"
)

// DefaultResults is the number of results Search returns when n <= 0.
const DefaultResults = 5

// KeyContentHash is the metadata key the ingestion layer uses to remember
// the digest of a document's source.
const KeyContentHash = "content_hash"

var (
	// ErrStoreConsistency is returned when chunks and embeddings disagree in length.
	ErrStoreConsistency = errors.New("chunks and embeddings length mismatch")

	// ErrDimensionMismatch is returned when a vector does not match the store's dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyDocumentName is returned when a document name is empty.
	ErrEmptyDocumentName = errors.New("document name is empty")
)

// Store is the vector store.
type Store struct {
	mu      sync.RWMutex
	index   Index
	records []Record
	logger  *slog.Logger
}

// Open loads every record from index into memory.
func Open(index Index, logger *slog.Logger) (*Store, error) {
	records, err := index.Load()
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if err := checkDimensions(records); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	logger.Debug("store opened", "records", len(records))
	return &Store{index: index, records: records, logger: logger}, nil
}

// AddDocuments replaces every record of documentName with one record per
// chunk and persists the result. It returns the number of records added.
func (s *Store) AddDocuments(chunks []chunker.Chunk, embeddings [][]float32, documentName string) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("%w: %d chunks, %d embeddings", ErrStoreConsistency, len(chunks), len(embeddings))
	}
	if documentName == "" {
		return 0, ErrEmptyDocumentName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.without(documentName)

	dim := dimension(kept)
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return 0, fmt.Errorf("%w: empty embedding for chunk %d", ErrDimensionMismatch, i)
		}
		if dim == 0 {
			dim = len(emb)
		}
		if len(emb) != dim {
			return 0, fmt.Errorf("%w: chunk %d has %d dimensions, store has %d", ErrDimensionMismatch, i, len(emb), dim)
		}
	}

	for i, c := range chunks {
		meta := make(map[string]string, len(c.Metadata)+1)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta[chunker.KeyDocumentName] = documentName

		kept = append(kept, Record{
			ID:        documentName + "_" + strconv.Itoa(i),
			Text:      c.Text,
			Embedding: embeddings[i],
			Metadata:  meta,
		})
	}

	if err := s.index.Save(kept); err != nil {
		return 0, fmt.Errorf("save index: %w", err)
	}
	replaced := len(s.records) + len(chunks) - len(kept)
	s.records = kept

	s.logger.Debug("document stored", "document", documentName, "chunks", len(chunks), "replaced", replaced)
	return len(chunks), nil
}

// Search ranks every record by cosine distance to query and returns the n
// closest, nearest first. An empty store yields an empty result.
func (s *Store) Search(query []float32, n int) ([]SearchResult, error) {
	if n <= 0 {
		n = DefaultResults
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []SearchResult{}, nil
	}
	if dim := dimension(s.records); len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d", ErrDimensionMismatch, len(query), dim)
	}

	results := make([]SearchResult, len(s.records))
	for i, r := range s.records {
		results[i] = SearchResult{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Distance: 1 - CosineSimilarity(query, r.Embedding),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if n < len(results) {
		results = results[:n]
	}
	return results, nil
}

// ListDocuments returns the number of records per document name.
func (s *Store) ListDocuments() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make(map[string]int)
	for _, r := range s.records {
		docs[r.DocumentName()]++
	}
	return docs
}

// DeleteDocument removes every record of documentName. The index is only
// rewritten when something was removed.
func (s *Store) DeleteDocument(documentName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.without(documentName)
	deleted := len(s.records) - len(kept)
	if deleted == 0 {
		return 0, nil
	}

	if err := s.index.Save(kept); err != nil {
		return 0, fmt.Errorf("save index: %w", err)
	}
	s.records = kept

	s.logger.Debug("document deleted", "document", documentName, "chunks", deleted)
	return deleted, nil
}

// Reset clears the store and persists the empty state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Save([]Record{}); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	s.records = nil

	s.logger.Debug("store reset")
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dimension returns the embedding dimensionality, or 0 for an empty store.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dimension(s.records)
}

// DocumentHash returns the content hash recorded for documentName, or ""
// when the document is unknown or was stored without one.
func (s *Store) DocumentHash(documentName string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.DocumentName() == documentName {
			return r.Metadata[KeyContentHash]
		}
	}
	return ""
}

// Close releases the index.
func (s *Store) Close() error {
	return s.index.Close()
}

// without returns a new slice holding every record not owned by documentName.
func (s *Store) without(documentName string) []Record {
	kept := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.DocumentName() != documentName {
			kept = append(kept, r)
		}
	}
	return kept
}

// CosineSimilarity returns dot(a,b) / (|a| |b|) for vectors of equal
// length. A zero vector on either side has similarity 0 with everything,
// including another zero vector.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func dimension(records []Record) int {
	if len(records) == 0 {
		return 0
	}
	return len(records[0].Embedding)
}

func checkDimensions(records []Record) error {
	dim := dimension(records)
	for _, r := range records {
		if len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %q has %d dimensions, expected %d", ErrDimensionMismatch, r.ID, len(r.Embedding), dim)
		}
	}
	return nil
}
