package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"kbase/internal/llm"
)

var _ = Describe("OllamaChat", func() {
	var (
		server *httptest.Server
		body   map[string]any
		reply  string
	)

	BeforeEach(func() {
		body = nil
		reply = `{"message":{"role":"assistant","content":"pong"}}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			w.Write([]byte(reply))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends a non-streaming request and returns the content", func() {
		c := llm.NewOllamaChat(llm.Config{BaseURL: server.URL, Model: "qwen3:8b"})
		msg, err := c.Complete(context.Background(), []llm.Message{llm.User("ping")}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Content).To(Equal("pong"))
		Expect(body["model"]).To(Equal("qwen3:8b"))
		Expect(body["stream"]).To(BeFalse())
	})

	It("assigns ids to tool calls", func() {
		reply = `{"message":{"role":"assistant","content":"","tool_calls":[
			{"function":{"name":"delete_document","arguments":{"doc_name":"old.md"}}},
			{"function":{"name":"list_documents","arguments":"{}"}}]}}`

		c := llm.NewOllamaChat(llm.Config{BaseURL: server.URL, Model: "m"})
		msg, err := c.Complete(context.Background(), []llm.Message{llm.User("clean up")}, []llm.Tool{{Name: "delete_document"}})

		Expect(err).NotTo(HaveOccurred())
		Expect(msg.ToolCalls).To(HaveLen(2))
		Expect(msg.ToolCalls[0].ID).NotTo(BeEmpty())
		Expect(msg.ToolCalls[0].ID).NotTo(Equal(msg.ToolCalls[1].ID))
		Expect(msg.ToolCalls[0].Arguments).To(MatchJSON(`{"doc_name":"old.md"}`))
		Expect(msg.ToolCalls[1].Arguments).To(MatchJSON(`{}`))
		Expect(body["tools"]).To(HaveLen(1))
	})

	It("passes tool results back with the tool name", func() {
		c := llm.NewOllamaChat(llm.Config{BaseURL: server.URL, Model: "m"})
		call := llm.ToolCall{ID: "x", Name: "list_documents", Arguments: json.RawMessage(`{}`)}
		_, err := c.Complete(context.Background(), []llm.Message{
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{call}},
			llm.ToolResult(call, "none"),
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		msgs := body["messages"].([]any)
		tc := msgs[0].(map[string]any)["tool_calls"].([]any)[0].(map[string]any)
		Expect(tc["function"].(map[string]any)["arguments"]).To(Equal(map[string]any{}))
		Expect(msgs[1].(map[string]any)["tool_name"]).To(Equal("list_documents"))
	})

	It("wraps failures in ErrGeneration", func() {
		c := llm.NewOllamaChat(llm.Config{BaseURL: "http://127.0.0.1:1", Model: "m"})
		_, err := c.Complete(context.Background(), []llm.Message{llm.User("hi")}, nil)
		Expect(err).To(MatchError(llm.ErrGeneration))
	})
})
