package agent

import (
	"encoding/json"
	"errors"
	"fmt"

	"kbase/internal/llm"
)

var (
	// ErrUnknownTool is returned for tool calls naming no known tool.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when tool arguments cannot be decoded
	// or a required argument is missing.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Tool names exposed to the chat model.
const (
	ToolAddDocument    = "add_document"
	ToolSearch         = "search_documents"
	ToolListDocuments  = "list_documents"
	ToolDeleteDocument = "delete_document"
	ToolRagQuery       = "rag_query"
	ToolReset          = "reset_knowledge_base"
)

// Request is one knowledge base operation. The set of implementations is
// closed; Handler.Handle switches over all of them.
type Request interface {
	// Tool returns the tool name the request was parsed from.
	Tool() string
	isRequest()
}

// AddDocument ingests a file.
type AddDocument struct{ Path string }

// Search runs a raw vector search.
type Search struct {
	Query string
	N     int
}

// ListDocuments lists stored documents.
type ListDocuments struct{}

// DeleteDocument removes one document.
type DeleteDocument struct{ Name string }

// RagQuery answers a question from the knowledge base.
type RagQuery struct{ Question string }

// Reset clears the knowledge base.
type Reset struct{}

func (AddDocument) Tool() string    { return ToolAddDocument }
func (Search) Tool() string         { return ToolSearch }
func (ListDocuments) Tool() string  { return ToolListDocuments }
func (DeleteDocument) Tool() string { return ToolDeleteDocument }
func (RagQuery) Tool() string       { return ToolRagQuery }
func (Reset) Tool() string          { return ToolReset }

func (AddDocument) isRequest()    {}
func (Search) isRequest()         {}
func (ListDocuments) isRequest()  {}
func (DeleteDocument) isRequest() {}
func (RagQuery) isRequest()       {}
func (Reset) isRequest()          {}

var labels = map[string]string{
	ToolAddDocument:    "Add document",
	ToolSearch:         "Search documents",
	ToolListDocuments:  "List documents",
	ToolDeleteDocument: "Delete document",
	ToolRagQuery:       "RAG answer",
	ToolReset:          "Reset knowledge base",
}

// Label returns a human readable name for a tool, falling back to the name itself.
func Label(tool string) string {
	if l, ok := labels[tool]; ok {
		return l
	}
	return tool
}

// ParseRequest decodes a model tool call into a Request.
func ParseRequest(call llm.ToolCall) (Request, error) {
	var args struct {
		FilePath string `json:"file_path"`
		Query    string `json:"query"`
		NResults int    `json:"n_results"`
		DocName  string `json:"doc_name"`
		Question string `json:"question"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, call.Name, err)
		}
	}

	switch call.Name {
	case ToolAddDocument:
		if args.FilePath == "" {
			return nil, missing(call.Name, "file_path")
		}
		return AddDocument{Path: args.FilePath}, nil
	case ToolSearch:
		if args.Query == "" {
			return nil, missing(call.Name, "query")
		}
		return Search{Query: args.Query, N: args.NResults}, nil
	case ToolListDocuments:
		return ListDocuments{}, nil
	case ToolDeleteDocument:
		if args.DocName == "" {
			return nil, missing(call.Name, "doc_name")
		}
		return DeleteDocument{Name: args.DocName}, nil
	case ToolRagQuery:
		if args.Question == "" {
			return nil, missing(call.Name, "question")
		}
		return RagQuery{Question: args.Question}, nil
	case ToolReset:
		return Reset{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}
}

func missing(tool, arg string) error {
	return fmt.Errorf("%w: %s requires %q", ErrInvalidArguments, tool, arg)
}

// Tools returns the function schemas offered to the chat model.
func Tools() []llm.Tool {
	return []llm.Tool{
		{
			Name:        ToolAddDocument,
			Description: "Chunk and embed a text or markdown file and add it to the knowledge base.",
			Parameters: object(map[string]any{
				"file_path": prop("string", "Path of the document to add (.md, .txt)"),
			}, "file_path"),
		},
		{
			Name:        ToolSearch,
			Description: "Vector search for document chunks similar to the query.",
			Parameters: object(map[string]any{
				"query":     prop("string", "Search query"),
				"n_results": prop("integer", "Number of results to return (default 5)"),
			}, "query"),
		},
		{
			Name:        ToolListDocuments,
			Description: "List the documents in the knowledge base with their chunk counts.",
			Parameters:  object(map[string]any{}),
		},
		{
			Name:        ToolDeleteDocument,
			Description: "Delete one document from the knowledge base.",
			Parameters: object(map[string]any{
				"doc_name": prop("string", "Name of the document to delete"),
			}, "doc_name"),
		},
		{
			Name: ToolRagQuery,
			Description: "Retrieve relevant documents, generate an answer from them and verify its groundedness. " +
				"Use this to answer user questions.",
			Parameters: object(map[string]any{
				"question": prop("string", "The user's question"),
			}, "question"),
		},
		{
			Name:        ToolReset,
			Description: "Delete all data in the knowledge base.",
			Parameters:  object(map[string]any{}),
		},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}
