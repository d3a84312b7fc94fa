// Package tui is the interactive terminal front end of the knowledge base.
package tui

import (
	"log/slog"

	"kbase/internal/agent"
	"kbase/internal/index"
	"kbase/internal/llm"
	"kbase/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIndexing
	ViewChat
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

func (r *programRef) send(msg tea.Msg) {
	if r != nil && r.p != nil {
		r.p.Send(msg)
	}
}

// Config holds the dependencies passed from the CLI layer.
type Config struct {
	Store        *store.Store
	Ingester     *index.Ingester
	Chat         llm.Chat
	Handler      *agent.Handler
	AgentOptions agent.Options
	Logger       *slog.Logger

	// IngestDir, when set, is ingested before chatting.
	IngestDir string
	// SamplesDir is where the sample documents are written on request.
	SamplesDir string
	// IndexPath and Provider are shown on the welcome screen.
	IndexPath string
	Provider  string

	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome  welcomeModel
	indexing indexingModel
	chat     chatModel
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	return Model{
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return loadStats(m.config.Store)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewChat {
			var c tea.Cmd
			m.chat, c = m.chat.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewChat {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		keyMsg, ok := msg.(tea.KeyMsg)
		if !ok || !m.welcome.ready {
			return m, nil
		}
		switch {
		case keyMsg.String() == "s" && m.config.SamplesDir != "":
			return m, m.startIndexing(m.config.SamplesDir, true)
		case keyMsg.Type == tea.KeyEnter && m.config.IngestDir != "":
			return m, m.startIndexing(m.config.IngestDir, false)
		case keyMsg.Type == tea.KeyEnter:
			return m, m.transitionToChat()
		}

	case ViewIndexing:
		m.indexing, cmd = m.indexing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		// Handle Enter after indexing completes.
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.indexing.done {
			return m, m.transitionToChat()
		}

	case ViewChat:
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) startIndexing(dir string, writeSamples bool) tea.Cmd {
	m.state = ViewIndexing
	m.indexing = newIndexingModel(dir)
	return tea.Batch(m.indexing.spinner.Tick, runIngest(m.config, dir, writeSamples))
}

func (m *Model) transitionToChat() tea.Cmd {
	opts := m.config.AgentOptions
	ref := m.config.program
	opts.Observer = func(ev agent.Event) {
		ref.send(toolEventMsg{event: ev})
	}

	a := agent.New(m.config.Chat, m.config.Handler, opts, m.config.Logger)
	m.chat = newChatModel(a, m.config.Handler)
	m.chat.initViewport(m.width, m.height)
	m.state = ViewChat
	return nil
}

func (m Model) View() string {
	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.config, m.width, m.height)
	case ViewIndexing:
		return m.indexing.View(m.width, m.height)
	case ViewChat:
		return m.chat.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	_, err := p.Run()
	return err
}
