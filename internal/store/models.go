package store

import "kbase/internal/chunker"

// Record is a chunk persisted with its embedding. IDs are derived from the
// document name and the chunk's position, so re-ingesting a document with
// the same chunking yields the same IDs.
type Record struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata"`
}

// DocumentName returns the owning document's name.
func (r Record) DocumentName() string { return r.Metadata[chunker.KeyDocumentName] }

// SearchResult is a record ranked against a query. Distance is
// 1 - cosine similarity, in [0, 2].
type SearchResult struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float64
}

// DocumentName returns the owning document's name.
func (r SearchResult) DocumentName() string { return r.Metadata[chunker.KeyDocumentName] }

// Section returns the section title of the matched chunk.
func (r SearchResult) Section() string { return r.Metadata[chunker.KeySection] }

// Similarity returns 1 - Distance.
func (r SearchResult) Similarity() float64 { return 1 - r.Distance }
