package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OllamaChat calls the Ollama /api/chat endpoint.
type OllamaChat struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaChat creates a chat client targeting the given Ollama instance and model.
func NewOllamaChat(cfg Config) *OllamaChat {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &OllamaChat{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []wireTool      `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// Complete sends the conversation to Ollama and returns the assistant reply.
// Ollama does not assign tool call ids, so fresh ones are generated.
func (c *OllamaChat) Complete(ctx context.Context, messages []Message, tools []Tool) (Message, error) {
	wire := make([]ollamaMessage, len(messages))
	for i, m := range messages {
		wm := ollamaMessage{Role: m.Role, Content: m.Content, ToolName: m.ToolName}
		for _, tc := range m.ToolCalls {
			var otc ollamaToolCall
			otc.Function.Name = tc.Name
			otc.Function.Arguments = argumentsObject(tc.Arguments)
			wm.ToolCalls = append(wm.ToolCalls, otc)
		}
		wire[i] = wm
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: wire,
		Tools:    toWireTools(tools),
		Stream:   false,
	})
	if err != nil {
		return Message{}, fmt.Errorf("%w: marshal chat request: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Message{}, fmt.Errorf("%w: build request: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("%w: ollama chat request: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Message{}, fmt.Errorf("%w: ollama chat returned %d: %s", ErrGeneration, resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Message{}, fmt.Errorf("%w: decode chat response: %v", ErrGeneration, err)
	}

	out := Message{Role: RoleAssistant, Content: result.Message.Content}
	for _, tc := range result.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: argumentsObject(tc.Function.Arguments),
		})
	}
	return out, nil
}

// argumentsObject normalizes tool arguments to a JSON object. Some models
// send the object as a JSON string; unparseable arguments become "{}".
func argumentsObject(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || !json.Valid(trimmed) {
		return json.RawMessage("{}")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil && json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
	}
	return trimmed
}
