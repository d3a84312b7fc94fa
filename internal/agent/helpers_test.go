package agent_test

import (
	"context"
	"encoding/json"
	"strings"

	"kbase/internal/llm"
)

var vocabulary = []string{"crashloop", "memory", "database", "failover"}

type keywordEmbedder struct{}

func (keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary)+1)
	for i, w := range vocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(vocabulary)] = 0.01
	return vec
}

func (k keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = k.vector(t)
	}
	return out, nil
}

func (k keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return k.vector(text), nil
}

// scriptedChat replays canned replies in order and records every request.
type scriptedChat struct {
	replies  []llm.Message
	err      error
	received [][]llm.Message
}

func (s *scriptedChat) Complete(_ context.Context, msgs []llm.Message, _ []llm.Tool) (llm.Message, error) {
	s.received = append(s.received, append([]llm.Message(nil), msgs...))
	if s.err != nil {
		return llm.Message{}, s.err
	}
	if len(s.replies) == 0 {
		return llm.Assistant("done"), nil
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next, nil
}

func toolCall(id, name string, args map[string]any) llm.ToolCall {
	raw, _ := json.Marshal(args)
	return llm.ToolCall{ID: id, Name: name, Arguments: raw}
}

func callsTools(calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}
}
