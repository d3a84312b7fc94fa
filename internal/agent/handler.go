package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"kbase/internal/embedder"
	"kbase/internal/index"
	"kbase/internal/rag"
	"kbase/internal/store"
)

const previewLength = 300

// Handler executes requests against the knowledge base.
type Handler struct {
	store    *store.Store
	embedder embedder.Embedder
	ingester *index.Ingester
	rag      *rag.Orchestrator
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(st *store.Store, emb embedder.Embedder, in *index.Ingester, orch *rag.Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{store: st, embedder: emb, ingester: in, rag: orch, logger: logger}
}

// Handle executes r and returns its outcome as text for the model or the
// user. Failures are reported in the returned text.
func (h *Handler) Handle(ctx context.Context, r Request) string {
	h.logger.Debug("handling request", "tool", r.Tool())

	switch r := r.(type) {
	case AddDocument:
		return h.add(ctx, r)
	case Search:
		return h.search(ctx, r)
	case ListDocuments:
		return h.list()
	case DeleteDocument:
		return h.delete(r)
	case RagQuery:
		return h.ask(ctx, r)
	case Reset:
		return h.reset()
	default:
		panic(fmt.Sprintf("agent: unhandled request %T", r))
	}
}

func (h *Handler) add(ctx context.Context, r AddDocument) string {
	res, err := h.ingester.IngestFile(ctx, r.Path, false)
	switch {
	case errors.Is(err, index.ErrNotFound):
		return fmt.Sprintf("[Error] File does not exist: %s", r.Path)
	case errors.Is(err, index.ErrNoChunks):
		return fmt.Sprintf("[Error] No chunks could be extracted from: %s", r.Path)
	case err != nil:
		h.logger.Error("add document failed", "path", r.Path, "error", err)
		return fmt.Sprintf("[Error] Could not add %s: %v", r.Path, err)
	}

	if res.Skipped {
		return fmt.Sprintf("[Document unchanged] %s\nAlready stored with %d chunks.", res.DocumentName, res.Chunks)
	}
	return fmt.Sprintf("[Document added] %s\nChunks: %d\nSections: %s",
		res.DocumentName, res.Chunks, strings.Join(res.Sections, ", "))
}

func (h *Handler) search(ctx context.Context, r Search) string {
	n := r.N
	if n <= 0 {
		n = store.DefaultResults
	}

	vec, err := h.embedder.EmbedQuery(ctx, r.Query)
	if err != nil {
		return fmt.Sprintf("[Search error] %v", err)
	}
	results, err := h.store.Search(vec, n)
	if err != nil {
		return fmt.Sprintf("[Search error] %v", err)
	}
	if len(results) == 0 {
		return "[No results] The knowledge base has no documents."
	}

	parts := []string{fmt.Sprintf("[Search results] query: '%s' (top %d)", r.Query, len(results))}
	for i, res := range results {
		parts = append(parts, fmt.Sprintf("\n--- Result %d (similarity: %.3f) ---\nsource: %s\ncontent:\n%s",
			i+1, res.Similarity(), rag.Source(res), Preview(res.Text, previewLength)))
	}
	return strings.Join(parts, "\n")
}

func (h *Handler) list() string {
	docs := h.store.ListDocuments()
	if len(docs) == 0 {
		return "[Documents] The knowledge base is empty."
	}

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := []string{fmt.Sprintf("[Documents] %d stored", len(docs))}
	total := 0
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("  - %s (%d chunks)", name, docs[name]))
		total += docs[name]
	}
	parts = append(parts, fmt.Sprintf("\nTotal: %d documents, %d chunks", len(docs), total))
	return strings.Join(parts, "\n")
}

func (h *Handler) delete(r DeleteDocument) string {
	n, err := h.store.DeleteDocument(r.Name)
	if err != nil {
		return fmt.Sprintf("[Error] Could not delete '%s': %v", r.Name, err)
	}
	if n == 0 {
		return fmt.Sprintf("[Delete] Document '%s' not found.", r.Name)
	}
	return fmt.Sprintf("[Deleted] '%s' (%d chunks removed)", r.Name, n)
}

func (h *Handler) ask(ctx context.Context, r RagQuery) string {
	ans, err := h.rag.Query(ctx, r.Question)
	if err != nil {
		h.logger.Error("rag query failed", "error", err)
		return fmt.Sprintf("[Error] %v", err)
	}
	if ans.NoResults {
		return "[RAG] " + ans.Text
	}
	return ans.Render()
}

func (h *Handler) reset() string {
	if err := h.store.Reset(); err != nil {
		return fmt.Sprintf("[Error] Could not reset the knowledge base: %v", err)
	}
	return "[Reset] All knowledge base data was deleted."
}

// Preview shortens s to max runes, appending "..." when it was cut.
func Preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
