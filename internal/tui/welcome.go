package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

type indexStatus int

const (
	indexNotFound indexStatus = iota
	indexReady
	indexStale
)

type welcomeModel struct {
	status      indexStatus
	staleReason string
	err         error
	ready       bool // true once the check has completed
}

// checkIndexMsg is sent after checking the index status.
type checkIndexMsg struct {
	status      indexStatus
	staleReason string
	err         error
}

func checkIndex(cfg Config) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		info, err := cfg.Engine.Store.DescribeCollection(ctx, cfg.Collection)
		if err != nil {
			return checkIndexMsg{status: indexNotFound, err: err}
		}
		if !info.Found {
			return checkIndexMsg{status: indexNotFound}
		}

		p, err := cfg.Engine.Embedders.Provider()
		if err != nil {
			return checkIndexMsg{status: indexNotFound, err: err}
		}
		dim, err := p.Dimension(ctx)
		if err != nil {
			return checkIndexMsg{status: indexNotFound, err: err}
		}
		if dim != info.VectorSize {
			return checkIndexMsg{
				status:      indexStale,
				staleReason: fmt.Sprintf("model %s produces %d dimensions, index holds %d", p.Model(), dim, info.VectorSize),
			}
		}
		return checkIndexMsg{status: indexReady}
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkIndexMsg:
		m.status = msg.status
		m.staleReason = msg.staleReason
		m.err = msg.err
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ codeseek") + "\n"
	s += subtitleStyle.Render("  Semantic search over your codebase") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking index...") + "\n"
		return s
	}

	switch m.status {
	case indexReady:
		s += successStyle.Render("  ✓ Index ready") + "\n"
	case indexNotFound:
		s += warnStyle.Render("  ✗ No index found") + "\n"
	case indexStale:
		s += warnStyle.Render("  ⚠ Index stale, it will be rebuilt") + "\n"
		s += dimStyle.Render("    "+m.staleReason) + "\n"
	}
	if m.err != nil {
		s += errorStyle.Render("    "+m.err.Error()) + "\n"
	}

	s += "\n"
	if m.status == indexReady {
		s += dimStyle.Render("  Press Enter to search, r to re-index, q to quit") + "\n"
	} else {
		s += dimStyle.Render("  Press Enter to index the project, q to quit") + "\n"
	}
	return s
}
