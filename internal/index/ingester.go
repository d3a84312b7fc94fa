// Package index turns files and directories into stored, embedded chunks.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"kbase/internal/chunker"
	"kbase/internal/embedder"
	"kbase/internal/store"
)

var (
	// ErrNotFound is returned when the path to ingest does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrNoChunks is returned when a document yields no chunks.
	ErrNoChunks = errors.New("no chunks produced")
)

// Result describes one ingested document.
type Result struct {
	DocumentName string
	Chunks       int
	Sections     []string
	// Skipped is set when the stored copy already matched the content.
	Skipped bool
}

// Ingester chunks, embeds and stores documents.
type Ingester struct {
	store    *store.Store
	embedder embedder.Embedder
	chunker  *chunker.Chunker
	registry *chunker.Registry
	logger   *slog.Logger
	workers  int
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithWorkers sets how many goroutines read and chunk files in IngestDir.
// Non-positive values select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.workers = n
		}
	}
}

// WithRegistry replaces the format registry used to select files in IngestDir.
func WithRegistry(r *chunker.Registry) Option {
	return func(in *Ingester) { in.registry = r }
}

// NewIngester creates an Ingester writing into st.
func NewIngester(st *store.Store, emb embedder.Embedder, ch *chunker.Chunker, logger *slog.Logger, opts ...Option) *Ingester {
	in := &Ingester{
		store:    st,
		embedder: emb,
		chunker:  ch,
		registry: chunker.NewRegistry(),
		logger:   logger,
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestFile reads path and stores it under its base file name.
func (in *Ingester) IngestFile(ctx context.Context, path string, force bool) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return in.IngestText(ctx, string(src), filepath.Base(path), force)
}

// IngestText chunks text, embeds every chunk in one request and replaces
// the stored copy of documentName. Unless force is set, a document whose
// content hash matches the stored one is left untouched.
func (in *Ingester) IngestText(ctx context.Context, text, documentName string, force bool) (*Result, error) {
	hash := ContentHash([]byte(text))
	if !force && in.store.DocumentHash(documentName) == hash {
		in.logger.Debug("document unchanged", "document", documentName)
		return &Result{
			DocumentName: documentName,
			Chunks:       in.store.ListDocuments()[documentName],
			Skipped:      true,
		}, nil
	}

	chunks := in.prepare(text, documentName, hash)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChunks, documentName)
	}

	embeddings, err := in.embedder.EmbedDocuments(ctx, texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", documentName, err)
	}

	n, err := in.store.AddDocuments(chunks, embeddings, documentName)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", documentName, err)
	}

	in.logger.Info("document ingested", "document", documentName, "chunks", n)
	return &Result{
		DocumentName: documentName,
		Chunks:       n,
		Sections:     sections(chunks),
	}, nil
}

// prepare chunks text and stamps every chunk with the content hash.
func (in *Ingester) prepare(text, documentName, hash string) []chunker.Chunk {
	chunks := in.chunker.Chunk(text, documentName)
	for i := range chunks {
		chunks[i].Metadata[store.KeyContentHash] = hash
	}
	return chunks
}

// ContentHash returns the hex SHA-256 digest of src.
func ContentHash(src []byte) string {
	h := sha256.Sum256(src)
	return hex.EncodeToString(h[:])
}

func texts(chunks []chunker.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// sections returns the distinct section titles in chunk order.
func sections(chunks []chunker.Chunk) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range chunks {
		s := c.Section()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
