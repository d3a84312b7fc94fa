package tui

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"kbase/internal/agent"
	"kbase/internal/chunker"
	"kbase/internal/index"
	"kbase/internal/llm"
	"kbase/internal/logger"
	"kbase/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type staticChat struct{ reply string }

func (s staticChat) Complete(context.Context, []llm.Message, []llm.Tool) (llm.Message, error) {
	return llm.Assistant(s.reply), nil
}

type zeroEmbedder struct{}

func (zeroEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (zeroEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

var _ = Describe("parseCommand", func() {
	DescribeTable("splits slash commands",
		func(input, name, arg string, ok bool) {
			n, a, isCmd := parseCommand(input)
			Expect(isCmd).To(Equal(ok))
			Expect(n).To(Equal(name))
			Expect(a).To(Equal(arg))
		},
		Entry("command with argument", "/add  docs/runbook.md ", "/add", "docs/runbook.md", true),
		Entry("bare command", "/docs", "/docs", "", true),
		Entry("plain question", "why do pods crash?", "", "", false),
	)
})

var _ = Describe("groundednessBadge", func() {
	It("finds the last verdict in an answer", func() {
		badge, ok := groundednessBadge("[Answer]\nx\n\n[Groundedness] notSure\n... later [Groundedness] grounded")
		Expect(ok).To(BeTrue())
		Expect(badge).To(Equal("grounded"))
		Expect(badgeStyles).To(HaveKey(badge))
	})

	It("reports answers without a verdict", func() {
		_, ok := groundednessBadge("plain reply")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("chatModel", func() {
	var m chatModel

	BeforeEach(func() {
		st, err := store.Open(store.NewMemoryIndex(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		in := index.NewIngester(st, zeroEmbedder{}, chunker.New(0), logger.Nop())
		h := agent.NewHandler(st, zeroEmbedder{}, in, nil, logger.Nop())
		a := agent.New(staticChat{reply: "hello"}, h, agent.Options{}, logger.Nop())
		m = newChatModel(a, h)
		m.initViewport(80, 24)
	})

	It("answers /help locally", func() {
		m, cmd := m.submit("/help")
		Expect(cmd).To(BeNil())
		Expect(m.messages).To(HaveLen(1))
		Expect(m.messages[0].content).To(Equal(helpText))
	})

	It("runs /docs through the handler", func() {
		m, cmd := m.submit("/docs")
		Expect(cmd).NotTo(BeNil())
		Expect(m.state).To(Equal(chatCalling))

		m, _ = m.Update(runCommand(m.handler, agent.ListDocuments{})())
		Expect(m.state).To(Equal(chatIdle))
		Expect(m.messages[len(m.messages)-1].content).To(Equal("[Documents] The knowledge base is empty."))
	})

	It("sends questions to the agent and shows the answer", func() {
		m, cmd := m.submit("hi there")
		Expect(cmd).NotTo(BeNil())
		Expect(m.state).To(Equal(chatThinking))

		m, _ = m.Update(ask(m.agent, "hi there")())
		Expect(m.state).To(Equal(chatIdle))
		Expect(m.messages[len(m.messages)-1]).To(Equal(chatMessage{role: "assistant", content: "hello"}))
	})

	It("tracks tool events", func() {
		m, _ = m.Update(toolEventMsg{event: agent.Event{Tool: "rag_query", Label: "RAG answer"}})
		Expect(m.state).To(Equal(chatCalling))
		Expect(m.statusText()).To(Equal("RAG answer..."))

		m, _ = m.Update(toolEventMsg{event: agent.Event{Tool: "rag_query", Label: "RAG answer", Result: "ok", Done: true}})
		Expect(m.state).To(Equal(chatThinking))
	})

	It("rejects unknown commands", func() {
		m, cmd := m.submit("/bogus")
		Expect(cmd).To(BeNil())
		Expect(m.messages[0].role).To(Equal("error"))
	})

	It("quits on /exit", func() {
		_, cmd := m.submit("/exit")
		Expect(cmd()).To(Equal(tea.Quit()))
	})
})
