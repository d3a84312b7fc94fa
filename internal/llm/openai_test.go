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

var _ = Describe("OpenAIChat", func() {
	var (
		server *httptest.Server
		body   map[string]any
		reply  string
	)

	BeforeEach(func() {
		body = nil
		reply = `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer k"))
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			w.Write([]byte(reply))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newChat := func() llm.Chat {
		c, err := llm.New(llm.Config{Provider: "openai", BaseURL: server.URL, APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	It("returns plain content and uses the default model", func() {
		msg, err := newChat().Complete(context.Background(), []llm.Message{
			llm.System("be brief"),
			llm.User("hi"),
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Role).To(Equal(llm.RoleAssistant))
		Expect(msg.Content).To(Equal("hello"))
		Expect(body["model"]).To(Equal("solar-pro3"))
		Expect(body).NotTo(HaveKey("tools"))
		Expect(body["messages"]).To(HaveLen(2))
	})

	It("sends tool schemas and decodes tool calls", func() {
		reply = `{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"search_documents","arguments":"{\"query\":\"oom\"}"}}]}}]}`

		msg, err := newChat().Complete(context.Background(), []llm.Message{llm.User("find oom")}, []llm.Tool{{
			Name:        "search_documents",
			Description: "search",
			Parameters:  map[string]any{"type": "object"},
		}})

		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Content).To(BeEmpty())
		Expect(msg.ToolCalls).To(HaveLen(1))
		Expect(msg.ToolCalls[0].ID).To(Equal("call_1"))
		Expect(msg.ToolCalls[0].Name).To(Equal("search_documents"))
		Expect(msg.ToolCalls[0].Arguments).To(MatchJSON(`{"query":"oom"}`))

		tools := body["tools"].([]any)
		Expect(tools).To(HaveLen(1))
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		Expect(fn["name"]).To(Equal("search_documents"))
	})

	It("encodes tool calls and tool results on the way out", func() {
		call := llm.ToolCall{ID: "call_9", Name: "list_documents", Arguments: json.RawMessage(`{}`)}
		_, err := newChat().Complete(context.Background(), []llm.Message{
			llm.User("what is stored?"),
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{call}},
			llm.ToolResult(call, "2 documents"),
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		msgs := body["messages"].([]any)
		assistant := msgs[1].(map[string]any)
		Expect(assistant["content"]).To(BeNil())
		tc := assistant["tool_calls"].([]any)[0].(map[string]any)
		Expect(tc["id"]).To(Equal("call_9"))
		Expect(tc["function"].(map[string]any)["arguments"]).To(Equal("{}"))

		tool := msgs[2].(map[string]any)
		Expect(tool["role"]).To(Equal("tool"))
		Expect(tool["tool_call_id"]).To(Equal("call_9"))
		Expect(tool["content"]).To(Equal("2 documents"))
	})

	It("wraps failures in ErrGeneration", func() {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer failing.Close()

		c, err := llm.NewOpenAIChat(llm.Config{BaseURL: failing.URL, APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Complete(context.Background(), []llm.Message{llm.User("hi")}, nil)
		Expect(err).To(MatchError(llm.ErrGeneration))
		Expect(err.Error()).To(ContainSubstring("429"))
	})

	It("treats an empty choice list as a failure", func() {
		reply = `{"choices":[]}`
		_, err := newChat().Complete(context.Background(), []llm.Message{llm.User("hi")}, nil)
		Expect(err).To(MatchError(llm.ErrGeneration))
	})

	It("requires an API key", func() {
		_, err := llm.New(llm.Config{Provider: "openai"})
		Expect(err).To(MatchError(ContainSubstring("missing API key")))
	})

	It("rejects unknown providers", func() {
		_, err := llm.New(llm.Config{Provider: "vertex"})
		Expect(err).To(MatchError(ContainSubstring("unsupported chat provider")))
	})
})
