package tui

import (
	"fmt"

	"kbase/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type welcomeModel struct {
	documents int
	chunks    int
	dimension int
	ready     bool // true once the stats have loaded
}

// statsMsg carries knowledge base statistics.
type statsMsg struct {
	documents int
	chunks    int
	dimension int
}

func loadStats(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		docs := st.ListDocuments()
		return statsMsg{documents: len(docs), chunks: st.Len(), dimension: st.Dimension()}
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsMsg:
		m.documents = msg.documents
		m.chunks = msg.chunks
		m.dimension = msg.dimension
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(cfg Config, width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ kbase") + "\n"
	s += subtitleStyle.Render("  Platform knowledge base with grounded answers") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Loading knowledge base...") + "\n"
		return s
	}

	if m.documents == 0 {
		s += warnStyle.Render("  ✗ Knowledge base is empty") + "\n"
	} else {
		s += successStyle.Render(fmt.Sprintf("  ✓ %d documents, %d chunks", m.documents, m.chunks)) + "\n"
		s += dimStyle.Render(fmt.Sprintf("    %d-dimensional embeddings", m.dimension)) + "\n"
	}
	s += dimStyle.Render(fmt.Sprintf("    index: %s", cfg.IndexPath)) + "\n"
	s += dimStyle.Render(fmt.Sprintf("    provider: %s", cfg.Provider)) + "\n"

	s += "\n"
	if cfg.IngestDir != "" {
		s += dimStyle.Render(fmt.Sprintf("  Press Enter to ingest %s", cfg.IngestDir)) + "\n"
	} else {
		s += dimStyle.Render("  Press Enter to start chatting") + "\n"
	}
	if cfg.SamplesDir != "" {
		s += dimStyle.Render("  Press s to load the sample documents") + "\n"
	}
	return s
}
