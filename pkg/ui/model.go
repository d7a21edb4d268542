// Package ui is the interactive SQL shell, built on bubbletea with a
// textinput prompt and a scrollback viewport.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"relstore/pkg/engine"
	"relstore/pkg/logging"
)

const helpText = `Commands:
  CREATE TABLE <name> (<col> <type>, ...)
  INSERT INTO <table> VALUES (<v1>, <v2>, ...)
  SELECT * FROM <table> [WHERE <column> = <value>]
  SELECT <col>, ... FROM <table> [WHERE <column> = <value>]
  CREATE INDEX <table>.<column>
  DROP TABLE <name>
  BEGIN | COMMIT | ROLLBACK | CHECKPOINT
  STATS | LOGS | VERBOSE ON|OFF | HELP | EXIT
Types: INTEGER, VARCHAR(n), BOOLEAN, DOUBLE`

// Model is the bubbletea model for the shell.
type Model struct {
	db       *engine.Engine
	input    textinput.Model
	view     viewport.Model
	history  []string
	verbose  bool
	ready    bool
	quitting bool
}

// New creates a shell over an open engine.
func New(db *engine.Engine) Model {
	input := textinput.New()
	input.Placeholder = "enter SQL, or HELP"
	input.Prompt = promptStyle.Render(db.Name() + "> ")
	input.Focus()

	return Model{db: db, input: input}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		inputHeight := 3
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-inputHeight)
			m.view.SetContent(m.renderHistory())
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - inputHeight
		}
		m.input.Width = msg.Width - len(m.db.Name()) - 4

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if quit := m.runLine(line); quit {
				m.quitting = true
				return m, tea.Quit
			}
			m.view.SetContent(m.renderHistory())
			m.view.GotoBottom()
			return m, nil
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quitting {
		return infoStyle.Render("bye") + "\n"
	}
	if !m.ready {
		return "loading..."
	}
	return fmt.Sprintf("%s\n\n%s", m.view.View(), m.input.View())
}

// runLine handles shell meta commands itself and hands everything else
// to the engine. Returns true when the shell should exit.
func (m *Model) runLine(line string) bool {
	m.echo(promptStyle.Render(m.db.Name()+"> ") + line)

	fields := strings.Fields(strings.ToUpper(line))
	switch fields[0] {
	case "EXIT", "QUIT":
		return true

	case "HELP":
		m.echo(infoStyle.Render(helpText))
		return false

	case "STATS":
		m.echo(resultStyle.Render(m.renderStats()))
		return false

	case "LOGS":
		m.echo(resultStyle.Render(m.renderLogs()))
		return false

	case "VERBOSE":
		if len(fields) == 2 && (fields[1] == "ON" || fields[1] == "OFF") {
			m.verbose = fields[1] == "ON"
			m.echo(infoStyle.Render("verbose " + strings.ToLower(fields[1])))
		} else {
			m.echo(errorStyle.Render("usage: VERBOSE ON|OFF"))
		}
		return false
	}

	result, err := m.db.ExecuteQuery(line)
	if err != nil {
		m.echo(errorStyle.Render("error: " + err.Error()))
		return false
	}
	m.echo(resultStyle.Render(engine.FormatResult(result)))
	if m.verbose {
		stats := m.db.Stats()
		m.echo(infoStyle.Render(fmt.Sprintf("queries=%d errors=%d", stats.Queries, stats.Errors)))
	}
	return false
}

func (m *Model) renderStats() string {
	stats := m.db.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "queries: %d  errors: %d  active transactions: %d\n",
		stats.Queries, stats.Errors, stats.ActiveTransactions)
	for _, ts := range stats.Tables {
		fmt.Fprintf(&b, "  %-20s hits=%d misses=%d resident=%d/%d\n",
			ts.Table, ts.Pool.Hits, ts.Pool.Misses, ts.Pool.Resident, ts.Pool.Size)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderLogs shows the printable tail of the WAL. Raw page images in
// WRITE records are skipped.
func (m *Model) renderLogs() string {
	data, err := os.ReadFile(m.db.WALPath())
	if err != nil {
		return "no log: " + err.Error()
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" || strings.HasPrefix(line, "WRITE ") || !isPrintable(line) {
			continue
		}
		lines = append(lines, line)
	}
	const tail = 20
	if len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	if len(lines) == 0 {
		return "log is empty"
	}
	return strings.Join(lines, "\n")
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < ' ' && r != '\t' {
			return false
		}
	}
	return true
}

func (m *Model) echo(s string) {
	m.history = append(m.history, s)
	const keep = 500
	if len(m.history) > keep {
		m.history = m.history[len(m.history)-keep:]
	}
	logging.Get().Debug("shell", "line", s)
}

func (m *Model) renderHistory() string {
	return strings.Join(m.history, "\n")
}
