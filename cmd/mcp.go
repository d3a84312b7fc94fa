package cmd

import (
	"context"

	"kbase/internal/agent"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the knowledge base tools over stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	s := newMCPServer(a.handler)
	a.logger.Info("mcp server listening on stdio")
	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer registers one MCP tool per knowledge base request.
func newMCPServer(h *agent.Handler) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("kbase", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(addDocumentTool(), makeHandler(h, func(req mcp.CallToolRequest) (agent.Request, error) {
		path, err := req.RequireString("file_path")
		return agent.AddDocument{Path: path}, err
	}))
	s.AddTool(searchDocumentsTool(), makeHandler(h, func(req mcp.CallToolRequest) (agent.Request, error) {
		query, err := req.RequireString("query")
		return agent.Search{Query: query, N: req.GetInt("n_results", 0)}, err
	}))
	s.AddTool(listDocumentsTool(), makeHandler(h, func(mcp.CallToolRequest) (agent.Request, error) {
		return agent.ListDocuments{}, nil
	}))
	s.AddTool(deleteDocumentTool(), makeHandler(h, func(req mcp.CallToolRequest) (agent.Request, error) {
		name, err := req.RequireString("doc_name")
		return agent.DeleteDocument{Name: name}, err
	}))
	s.AddTool(ragQueryTool(), makeHandler(h, func(req mcp.CallToolRequest) (agent.Request, error) {
		question, err := req.RequireString("question")
		return agent.RagQuery{Question: question}, err
	}))
	s.AddTool(resetTool(), makeHandler(h, func(mcp.CallToolRequest) (agent.Request, error) {
		return agent.Reset{}, nil
	}))

	return s
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

var destructiveAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(false),
	DestructiveHint: mcp.ToBoolPtr(true),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func addDocumentTool() mcp.Tool {
	return mcp.NewTool(agent.ToolAddDocument,
		mcp.WithDescription("Chunk and embed a text or markdown file and add it to the knowledge base."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path of the document to add (.md, .txt)"),
		),
	)
}

func searchDocumentsTool() mcp.Tool {
	return mcp.NewTool(agent.ToolSearch,
		mcp.WithDescription("Vector search for document chunks similar to the query. Returns similarity scores, sources and previews."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("n_results",
			mcp.Description("Number of results to return (default 5)"),
		),
	)
}

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool(agent.ToolListDocuments,
		mcp.WithDescription("List the documents in the knowledge base with their chunk counts."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func deleteDocumentTool() mcp.Tool {
	return mcp.NewTool(agent.ToolDeleteDocument,
		mcp.WithDescription("Delete one document from the knowledge base."),
		mcp.WithToolAnnotation(destructiveAnnotation),
		mcp.WithString("doc_name",
			mcp.Required(),
			mcp.Description("Name of the document to delete"),
		),
	)
}

func ragQueryTool() mcp.Tool {
	return mcp.NewTool(agent.ToolRagQuery,
		mcp.WithDescription("Answer a question from the knowledge base with cited sources and a groundedness verdict."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)
}

func resetTool() mcp.Tool {
	return mcp.NewTool(agent.ToolReset,
		mcp.WithDescription("Delete all data in the knowledge base."),
		mcp.WithToolAnnotation(destructiveAnnotation),
	)
}

// --- Handler factory ---

func makeHandler(h *agent.Handler, parse func(mcp.CallToolRequest) (agent.Request, error)) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r, err := parse(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(h.Handle(ctx, r)), nil
	}
}
