package tui

import (
	"context"
	"fmt"

	"codeseek/internal/index"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type indexingModel struct {
	spinner   spinner.Model
	phase     string
	processed int
	total     int
	done      bool
	stats     *index.Stats
	err       error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner: sp,
		phase:   "Scanning project...",
	}
}

// indexDoneMsg is sent when indexing completes.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

// indexProgressMsg is sent after each processed file.
type indexProgressMsg struct {
	phase     string
	processed int
	total     int
}

func runIndex(cfg Config) tea.Cmd {
	return func() tea.Msg {
		cfg.Engine.Indexer.OnProgress(func(phase string, processed, total int) {
			if cfg.program != nil && cfg.program.p != nil {
				cfg.program.p.Send(indexProgressMsg{phase: phase, processed: processed, total: total})
			}
		})
		defer cfg.Engine.Indexer.OnProgress(nil)

		stats, err := cfg.Engine.IndexProject(context.Background(), cfg.Root)
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
		m.processed = msg.processed
		m.total = msg.total
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
	s += titleStyle.Render("  Indexing") + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter to search anyway, or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files:  %d total, %d synced, %d failed, %d removed\n",
				m.stats.FilesTotal, m.stats.FilesSynced, m.stats.FilesFailed, m.stats.FilesRemoved)
			s += fmt.Sprintf("  Chunks: %d\n", m.stats.ChunksTotal)
			if m.stats.Recreated {
				s += warnStyle.Render("  Collection was rebuilt for a new embedding dimension") + "\n"
			}
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to start searching") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d processed\n", m.processed, m.total)
	}
	s += "\n"
	s += dimStyle.Render("  This may take a while for large codebases...") + "\n"
	return s
}
