// Package llm is the chat-completion and function-calling capability used
// by the RAG orchestrator, the groundedness checker and the agent.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrGeneration is returned, wrapped, by every failed completion call.
var ErrGeneration = errors.New("generation failed")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single chat message. Assistant messages may carry tool
// calls; tool messages answer one call through ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	// ToolName is the name of the tool a RoleTool message answers.
	ToolName string
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Tool describes a callable function. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Chat completes a conversation. When tools are offered, the reply either
// carries tool calls or final content.
type Chat interface {
	Complete(ctx context.Context, messages []Message, tools []Tool) (Message, error)
}

// Config selects and configures a Chat backend.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// New builds the Chat for cfg.Provider ("openai" or "ollama").
func New(cfg Config) (Chat, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIChat(cfg)
	case "ollama":
		return NewOllamaChat(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %q", cfg.Provider)
	}
}

// System, User and Assistant build plain messages.
func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ToolResult answers call with content.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, ToolName: call.Name}
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

func toWireTools(tools []Tool) []wireTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]wireTool, len(tools))
	for i, t := range tools {
		out[i] = wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
