package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"codeseek/internal/index"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const searchHelp = `Commands:
  /limit N  - results per query
  /clear    - clear results
  /exit     - quit
  /help     - show this help`

type searchModel struct {
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	engine      *index.Engine
	entries     []searchEntry
	searching   bool
	limit       int
	width       int
	height      int
	initialized bool
}

type searchEntry struct {
	kind    string // "query", "results", "error", "system"
	content string
}

// resultsMsg is sent when a query completes.
type resultsMsg struct {
	query   string
	results []index.SearchResult
	err     error
}

func newSearchModel(engine *index.Engine, limit int) searchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Describe the code you are looking for..."
	ti.CharLimit = 2000
	ti.Focus()

	return searchModel{
		spinner: sp,
		input:   ti,
		engine:  engine,
		limit:   limit,
	}
}

func (m *searchModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// Layout: viewport + status bar (1 line) + input (1 line) + gap (1 line).
	vpHeight := height - 3
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(dimStyle.Render("Type a query and press Enter.\n\n" + searchHelp))
	m.input.Width = width - 4

	if r, err := NewRenderer(width - 2); err == nil {
		m.renderer = r
	}
	m.initialized = true
}

func runQuery(engine *index.Engine, query string, limit int) tea.Cmd {
	return func() tea.Msg {
		results, err := engine.Query(context.Background(), query, limit)
		return resultsMsg{query: query, results: results, err: err}
	}
}

func (m searchModel) Update(msg tea.Msg) (searchModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case resultsMsg:
		m.searching = false
		if msg.err != nil {
			m.entries = append(m.entries, searchEntry{kind: "error", content: msg.err.Error()})
		} else {
			m.entries = append(m.entries, searchEntry{kind: "results", content: FormatMarkdown(msg.query, msg.results)})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.searching {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			m.input.Reset()
			if strings.HasPrefix(query, "/") {
				return m, m.command(query)
			}

			m.entries = append(m.entries, searchEntry{kind: "query", content: query})
			m.searching = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, runQuery(m.engine, query, m.limit))
		}
	}

	if !m.searching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *searchModel) command(line string) tea.Cmd {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return tea.Quit
	case "/clear":
		m.entries = nil
		m.viewport.SetContent(dimStyle.Render("Results cleared."))
		return nil
	case "/limit":
		if len(fields) == 2 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				m.limit = n
				m.entries = append(m.entries, searchEntry{kind: "system", content: fmt.Sprintf("Showing up to %d results.", n)})
				m.refresh()
				return nil
			}
		}
		m.entries = append(m.entries, searchEntry{kind: "error", content: "usage: /limit N"})
	case "/help":
		m.entries = append(m.entries, searchEntry{kind: "system", content: searchHelp})
	default:
		m.entries = append(m.entries, searchEntry{kind: "error", content: "unknown command " + fields[0]})
	}
	m.refresh()
	return nil
}

func (m *searchModel) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m searchModel) render() string {
	var sb strings.Builder
	for _, e := range m.entries {
		switch e.kind {
		case "query":
			sb.WriteString(queryStyle.Render("Query: ") + e.content + "\n\n")
		case "results":
			sb.WriteString(RenderMarkdown(m.renderer, e.content) + "\n\n")
		case "error":
			sb.WriteString(errorStyle.Render("Error: "+e.content) + "\n\n")
		case "system":
			sb.WriteString(dimStyle.Render(e.content) + "\n\n")
		}
	}
	if m.searching {
		sb.WriteString(m.spinner.View() + " " + dimStyle.Render("Searching...") + "\n")
	}
	return sb.String()
}

func (m searchModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	status := "idle"
	if m.searching {
		status = "searching..."
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" codeseek • limit %d • %s", m.limit, status))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}
