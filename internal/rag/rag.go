// Package rag answers questions from the knowledge base: it embeds the
// question, retrieves the closest chunks, asks the chat model to answer
// from them only, and verifies the answer's groundedness.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kbase/internal/embedder"
	"kbase/internal/groundedness"
	"kbase/internal/llm"
	"kbase/internal/store"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// NoDocumentsMessage is returned when retrieval finds nothing.
const NoDocumentsMessage = "No relevant documents found in the knowledge base. Add documents first."

const contextSeparator = "\n\n---\n\n"

const systemPromptTemplate = "You are a platform engineering knowledge base assistant. " +
	"Answer the user's question based ONLY on the provided context documents. " +
	"If the context doesn't contain enough information, say so. " +
	"Always cite the source document and section. " +
	"Respond in %s."

// Searcher ranks stored chunks against a query vector.
type Searcher interface {
	Search(query []float32, n int) ([]store.SearchResult, error)
}

// Verifier checks an answer against its context.
type Verifier interface {
	Check(ctx context.Context, contextText, answer string) groundedness.Result
}

// Options tunes the orchestrator.
type Options struct {
	TopK     int
	Language string
}

// Answer is the outcome of one question.
type Answer struct {
	Text      string
	Sources   []string
	Grounding groundedness.Result
	// NoResults is set when retrieval found nothing; Text is then
	// NoDocumentsMessage and no generation or verification happened.
	NoResults bool
}

// Render formats the answer with its sources and groundedness badge.
func (a *Answer) Render() string {
	if a.NoResults {
		return a.Text
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Answer]\n%s\n\n[Sources]\n", a.Text)
	for _, s := range a.Sources {
		fmt.Fprintf(&b, "  - %s\n", s)
	}
	fmt.Fprintf(&b, "\n[Groundedness] %s", a.Grounding.Badge())
	return b.String()
}

// Orchestrator runs the retrieval-augmented answer pipeline. It holds no
// per-query state.
type Orchestrator struct {
	embedder embedder.Embedder
	searcher Searcher
	chat     llm.Chat
	verifier Verifier
	opts     Options
	logger   *slog.Logger
}

// New wires an Orchestrator from its collaborators.
func New(emb embedder.Embedder, searcher Searcher, chat llm.Chat, verifier Verifier, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Language == "" {
		opts.Language = "English"
	}
	return &Orchestrator{
		embedder: emb,
		searcher: searcher,
		chat:     chat,
		verifier: verifier,
		opts:     opts,
		logger:   logger,
	}
}

// Query answers question. Embedding and generation failures are returned
// wrapped, so errors.Is matches embedder.ErrEmbedding and llm.ErrGeneration.
// A failed groundedness check is reported in Answer.Grounding instead.
func (o *Orchestrator) Query(ctx context.Context, question string) (*Answer, error) {
	vec, err := o.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := o.searcher.Search(vec, o.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		o.logger.Debug("no chunks retrieved", "question", question)
		return &Answer{Text: NoDocumentsMessage, NoResults: true}, nil
	}

	contextText, sources := BuildContext(results)
	o.logger.Debug("context assembled", "chunks", len(results), "sources", len(sources))

	reply, err := o.chat.Complete(ctx, BuildMessages(contextText, question, o.opts.Language), nil)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	grounding := o.verifier.Check(ctx, contextText, reply.Content)

	return &Answer{
		Text:      reply.Content,
		Sources:   sources,
		Grounding: grounding,
	}, nil
}

// BuildContext joins retrieved chunks into one context string, each
// prefixed with its source, and returns the distinct sources in order.
func BuildContext(results []store.SearchResult) (string, []string) {
	parts := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))

	for _, r := range results {
		source := Source(r)
		parts = append(parts, fmt.Sprintf("[source: %s]\n%s", source, r.Text))
		if !seen[source] {
			seen[source] = true
			sources = append(sources, source)
		}
	}
	return strings.Join(parts, contextSeparator), sources
}

// Source formats a result's citation as "document > section".
func Source(r store.SearchResult) string {
	doc, section := r.DocumentName(), r.Section()
	if doc == "" {
		doc = "?"
	}
	if section == "" {
		section = "?"
	}
	return doc + " > " + section
}

// BuildMessages constructs the answer prompt from the assembled context.
func BuildMessages(contextText, question, language string) []llm.Message {
	return []llm.Message{
		llm.System(fmt.Sprintf(systemPromptTemplate, language)),
		llm.User(fmt.Sprintf("[Retrieved documents]\n%s\n\n[Question]\n%s", contextText, question)),
	}
}
