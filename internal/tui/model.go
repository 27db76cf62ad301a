// Package tui is a terminal presenter for the game engine.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

const (
	side     = 3
	helpText = "arrows/hjkl move · enter place · 1-9 place · r reset · q quit"
)

type engine interface {
	State() entity.State
	PlaceMark(position int) entity.State
	Reset() entity.State
}

// Model renders one engine and maps keys to its operations.
type Model struct {
	game   engine
	state  entity.State
	cursor int
}

func New(game engine) Model {
	return Model{
		game:   game,
		state:  game.State(),
		cursor: 4,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := keyMsg.String(); key {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-side)
	case "down", "j":
		m.moveCursor(side)
	case "left", "h":
		if m.cursor%side > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor%side < side-1 {
			m.cursor++
		}
	case "enter", " ":
		m.state = m.game.PlaceMark(m.cursor)
	case "r":
		m.state = m.game.Reset()
		m.cursor = 4
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.cursor = int(key[0] - '1')
		m.state = m.game.PlaceMark(m.cursor)
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	if next := m.cursor + delta; next >= 0 && next < entity.BoardSize {
		m.cursor = next
	}
}

func (m Model) View() string {
	var sb strings.Builder

	rows := make([]string, 0, side)
	for row := range side {
		cells := make([]string, 0, side)
		for col := range side {
			cells = append(cells, m.renderCell(row*side+col))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.state.StatusText()))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(helpText))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderCell(position int) string {
	mark := " "
	switch cell := m.state.Board[position]; cell {
	case entity.PlayerX:
		mark = markXStyle.Render(string(cell))
	case entity.PlayerO:
		mark = markOStyle.Render(string(cell))
	}

	switch {
	case m.state.WinningLine != nil && m.state.WinningLine.Contains(position):
		return winStyle.Render(string(m.state.Board[position]))
	case position == m.cursor && !m.state.Outcome.IsFinished():
		return cursorStyle.Render(mark)
	default:
		return cellStyle.Render(mark)
	}
}

// State is the last state read from the engine.
func (m Model) State() entity.State {
	return m.state
}

// Cursor is the highlighted position.
func (m Model) Cursor() int {
	return m.cursor
}
