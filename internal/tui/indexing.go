package tui

import (
	"context"
	"fmt"

	"kbase/internal/index"
	"kbase/internal/samples"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type indexingModel struct {
	spinner        spinner.Model
	dir            string
	phase          string
	filesProcessed int
	filesTotal     int
	done           bool
	stats          *index.Stats
	err            error
}

func newIndexingModel(dir string) indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner: sp,
		dir:     dir,
		phase:   "Scanning documents...",
	}
}

// indexDoneMsg is sent when ingestion completes.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

// indexProgressMsg is sent after every stored document.
type indexProgressMsg struct {
	phase          string
	filesProcessed int
	filesTotal     int
}

func runIngest(cfg Config, dir string, writeSamples bool) tea.Cmd {
	return func() tea.Msg {
		if writeSamples {
			if _, err := samples.Write(dir); err != nil {
				return indexDoneMsg{err: err}
			}
		}

		stats, err := cfg.Ingester.IngestDir(context.Background(), dir, false, func(phase string, processed, total int) {
			cfg.program.send(indexProgressMsg{
				phase:          phase,
				filesProcessed: processed,
				filesTotal:     total,
			})
		})
		return indexDoneMsg{stats: stats, err: err}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case indexProgressMsg:
		m.phase = msg.phase
		m.filesProcessed = msg.filesProcessed
		m.filesTotal = msg.filesTotal
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Ingesting "+m.dir) + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter to continue to chat anyway, or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Ingestion complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files: %d total, %d ingested, %d unchanged\n",
				m.stats.FilesTotal, m.stats.FilesIndexed, m.stats.FilesSkipped)
			s += fmt.Sprintf("  Chunks: %d\n", m.stats.ChunksTotal)
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to start chatting") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.filesTotal > 0 {
		s += fmt.Sprintf("  %d / %d documents embedded\n", m.filesProcessed, m.filesTotal)
	}
	return s
}
