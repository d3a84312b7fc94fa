// Package agent lets the chat model operate the knowledge base through
// function calling.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"kbase/internal/llm"
)

// DefaultMaxToolRounds bounds how many tool-calling turns one question may take.
const DefaultMaxToolRounds = 8

const resultPreviewLength = 200

// ErrTooManyToolRounds is returned when the model keeps calling tools past the limit.
var ErrTooManyToolRounds = errors.New("too many tool rounds")

const systemPromptTemplate = `You are a platform engineering knowledge base expert. You answer questions from internal documents such as runbooks, post-mortems and architecture documents.

Responsibilities:
- Document management: add, delete and list documents in the knowledge base
- RAG Q&A: retrieve relevant documents and answer from them
- Groundedness: report whether the answer is supported by the documents

Rules:
- Always answer user questions with the rag_query tool.
- Use add_document when asked to add a document.
- Use search_documents when only a search is requested.
- Write every reply in %s.
- Always include the sources (file name and section) in answers.
- If nothing relevant is found, say that the knowledge base has no related documents.
- Include the groundedness result in the answer.`

// Event reports one tool call to an Observer. Result is empty when the
// event announces the call and set once the call finished.
type Event struct {
	Tool   string
	Label  string
	Result string
	Done   bool
}

// Observer is told about tool calls as they happen.
type Observer func(Event)

// Options configures an Agent.
type Options struct {
	Language      string
	MaxToolRounds int
	Observer      Observer
}

// Agent keeps a conversation with the chat model and runs the tool calls
// it requests.
type Agent struct {
	mu        sync.Mutex
	chat      llm.Chat
	handler   *Handler
	history   []llm.Message
	system    llm.Message
	maxRounds int
	observer  Observer
	logger    *slog.Logger
}

// New creates an Agent with a fresh conversation.
func New(chat llm.Chat, handler *Handler, opts Options, logger *slog.Logger) *Agent {
	if opts.Language == "" {
		opts.Language = "English"
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	a := &Agent{
		chat:      chat,
		handler:   handler,
		system:    llm.System(fmt.Sprintf(systemPromptTemplate, opts.Language)),
		maxRounds: opts.MaxToolRounds,
		observer:  opts.Observer,
		logger:    logger,
	}
	a.history = []llm.Message{a.system}
	return a
}

// Ask sends input to the model, executes tool calls until the model replies
// with plain text, and returns that reply. On error the conversation is
// rolled back to its state before input.
func (a *Agent) Ask(ctx context.Context, input string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mark := len(a.history)
	reply, err := a.run(ctx, input)
	if err != nil {
		a.history = a.history[:mark]
		return "", err
	}
	return reply, nil
}

func (a *Agent) run(ctx context.Context, input string) (string, error) {
	a.history = append(a.history, llm.User(input))
	tools := Tools()

	for round := 0; ; round++ {
		msg, err := a.chat.Complete(ctx, a.history, tools)
		if err != nil {
			return "", err
		}
		a.history = append(a.history, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}
		if round >= a.maxRounds {
			return "", fmt.Errorf("%w: stopped after %d", ErrTooManyToolRounds, a.maxRounds)
		}

		for _, call := range msg.ToolCalls {
			result := a.call(ctx, call)
			a.history = append(a.history, llm.ToolResult(call, result))
		}
	}
}

func (a *Agent) call(ctx context.Context, call llm.ToolCall) string {
	label := Label(call.Name)
	a.notify(Event{Tool: call.Name, Label: label})

	var result string
	req, err := ParseRequest(call)
	if err != nil {
		a.logger.Warn("bad tool call", "tool", call.Name, "error", err)
		result = fmt.Sprintf("[Error] %v", err)
	} else {
		result = a.handler.Handle(ctx, req)
	}

	a.notify(Event{Tool: call.Name, Label: label, Result: Preview(result, resultPreviewLength), Done: true})
	return result
}

func (a *Agent) notify(ev Event) {
	if a.observer != nil {
		a.observer(ev)
	}
}

// Clear drops the conversation, keeping only the system prompt.
func (a *Agent) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = []llm.Message{a.system}
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Message(nil), a.history...)
}
