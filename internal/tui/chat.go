package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"kbase/internal/agent"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const helpText = `Commands:
  /add <path>  - add a document to the knowledge base
  /docs        - list stored documents
  /clear       - clear conversation history
  /exit        - quit
  /help        - show this help`

type chatState int

const (
	chatIdle chatState = iota
	chatThinking
	chatCalling
)

type chatModel struct {
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	messages    []chatMessage
	agent       *agent.Agent
	handler     *agent.Handler
	state       chatState
	tool        string
	width       int
	height      int
	initialized bool
}

type chatMessage struct {
	role    string
	content string
}

// answerMsg is sent when the agent finishes a turn.
type answerMsg struct {
	answer string
	err    error
}

// toolEventMsg relays an agent tool call from the background goroutine.
type toolEventMsg struct {
	event agent.Event
}

// commandResultMsg carries the output of a slash command.
type commandResultMsg struct {
	output string
}

func newChatModel(a *agent.Agent, h *agent.Handler) chatModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Ask about your runbooks, post-mortems and architecture docs..."
	ti.CharLimit = 2000
	ti.Focus()

	return chatModel{
		spinner: sp,
		input:   ti,
		agent:   a,
		handler: h,
		state:   chatIdle,
	}
}

func (m *chatModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// Layout: viewport + status bar (1 line) + input (1 line) + borders/gaps (1 line).
	vpHeight := height - 3
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(dimStyle.Render("Ask a question about the knowledge base.\n\nCommands: /add, /docs, /help, /clear, /exit"))

	m.input.Width = width - 4

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err == nil {
		m.renderer = r
	}

	m.initialized = true
}

func ask(a *agent.Agent, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := a.Ask(context.Background(), question)
		return answerMsg{answer: answer, err: err}
	}
}

func runCommand(h *agent.Handler, req agent.Request) tea.Cmd {
	return func() tea.Msg {
		return commandResultMsg{output: h.Handle(context.Background(), req)}
	}
}

// parseCommand splits a slash command into its name and argument.
func parseCommand(input string) (name, arg string, ok bool) {
	if !strings.HasPrefix(input, "/") {
		return "", "", false
	}
	name, arg, _ = strings.Cut(input, " ")
	return name, strings.TrimSpace(arg), true
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case answerMsg:
		m.state = chatIdle
		if msg.err != nil {
			m.messages = append(m.messages, chatMessage{role: "error", content: msg.err.Error()})
		} else {
			m.messages = append(m.messages, chatMessage{role: "assistant", content: msg.answer})
		}
		m.refresh()
		return m, nil

	case toolEventMsg:
		ev := msg.event
		if ev.Done {
			m.state = chatThinking
			m.messages = append(m.messages, chatMessage{role: "result", content: ev.Result})
		} else {
			m.state = chatCalling
			m.tool = ev.Label
			m.messages = append(m.messages, chatMessage{role: "tool", content: fmt.Sprintf("[%s] %s called", ev.Label, ev.Tool)})
		}
		m.refresh()
		return m, nil

	case commandResultMsg:
		m.state = chatIdle
		m.messages = append(m.messages, chatMessage{role: "system", content: msg.output})
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.state != chatIdle {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			// Re-render viewport so the spinner frame updates.
			m.refresh()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.state != chatIdle {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			input := strings.TrimSpace(m.input.Value())
			if input == "" {
				return m, nil
			}
			m.input.Reset()
			return m.submit(input)
		}
	}

	// Update text input.
	if m.state == chatIdle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update viewport (scrolling).
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m chatModel) submit(input string) (chatModel, tea.Cmd) {
	if name, arg, ok := parseCommand(input); ok {
		switch name {
		case "/exit", "/quit":
			return m, tea.Quit
		case "/clear":
			m.agent.Clear()
			m.messages = nil
			m.viewport.SetContent(dimStyle.Render("Conversation cleared."))
			return m, nil
		case "/help":
			m.messages = append(m.messages, chatMessage{role: "system", content: helpText})
			m.refresh()
			return m, nil
		case "/docs":
			m.state = chatCalling
			m.tool = agent.Label(agent.ToolListDocuments)
			return m, tea.Batch(m.spinner.Tick, runCommand(m.handler, agent.ListDocuments{}))
		case "/add":
			if arg == "" {
				m.messages = append(m.messages, chatMessage{role: "error", content: "usage: /add <path>"})
				m.refresh()
				return m, nil
			}
			m.state = chatCalling
			m.tool = agent.Label(agent.ToolAddDocument)
			return m, tea.Batch(m.spinner.Tick, runCommand(m.handler, agent.AddDocument{Path: arg}))
		default:
			m.messages = append(m.messages, chatMessage{role: "error", content: fmt.Sprintf("unknown command %s, try /help", name)})
			m.refresh()
			return m, nil
		}
	}

	m.messages = append(m.messages, chatMessage{role: "user", content: input})
	m.state = chatThinking
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, ask(m.agent, input))
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

var badgePattern = regexp.MustCompile(`\[Groundedness\]\s*(grounded|notGrounded|notSure|unknown)`)

// groundednessBadge returns the last groundedness verdict quoted in an answer.
func groundednessBadge(content string) (string, bool) {
	matches := badgePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1][1], true
}

func (m chatModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return assistantMsgStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return assistantMsgStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m chatModel) renderMessages() string {
	var sb strings.Builder
	for _, msg := range m.messages {
		switch msg.role {
		case "user":
			sb.WriteString(userMsgStyle.Render("You: ") + msg.content + "\n\n")
		case "assistant":
			sb.WriteString(m.renderMarkdown(msg.content) + "\n")
			if badge, ok := groundednessBadge(msg.content); ok {
				sb.WriteString("  " + badgeStyles[badge].Render("● "+badge) + "\n")
			}
			sb.WriteString("\n")
		case "tool":
			sb.WriteString(toolStyle.Render(msg.content) + "\n")
		case "result":
			sb.WriteString(dimStyle.Render(msg.content) + "\n\n")
		case "error":
			sb.WriteString(errorStyle.Render("Error: "+msg.content) + "\n\n")
		case "system":
			sb.WriteString(dimStyle.Render(msg.content) + "\n\n")
		}
	}

	if m.state != chatIdle {
		sb.WriteString(m.spinner.View() + " " + dimStyle.Render(m.statusText()) + "\n")
	}

	return sb.String()
}

func (m chatModel) statusText() string {
	switch m.state {
	case chatThinking:
		return "thinking..."
	case chatCalling:
		return m.tool + "..."
	}
	return "idle"
}

func (m chatModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" kbase chat • %s", m.statusText()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}
