package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	services "github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/services/tetris"
)

// Board origin on screen: a title line, then the top border.
const (
	boardTop   = 2
	boardLeft  = 1
	cellWidth  = 2
	resizeStep = 1
)

type Model struct {
	game     *services.GameState
	hovering bool
	hoverRow int
	hoverCol int
	message  string
	width    int
	height   int
}

func NewModel(game *services.GameState) Model {
	return Model{game: game}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "r":
		m.apply(services.Command{Action: services.ActionRotate})
	case "n":
		m.apply(services.Command{Action: services.ActionReset})
	case "+", "=":
		m.apply(services.Command{Action: services.ActionResize, Rows: m.game.Rows() + resizeStep, Cols: m.game.Cols() + resizeStep})
	case "-", "_":
		m.apply(services.Command{Action: services.ActionResize, Rows: m.game.Rows() - resizeStep, Cols: m.game.Cols() - resizeStep})
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	row, col, ok := m.cellAt(msg.X, msg.Y)
	m.hovering = ok
	m.hoverRow, m.hoverCol = row, col

	if ok && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
		m.apply(services.Command{Action: services.ActionPlace, Row: row, Col: col})
	}
	return m
}

// apply runs cmd against the game and records a status line for the side panel.
func (m *Model) apply(cmd services.Command) {
	result, err := services.ApplyCommand(m.game, cmd)
	if err != nil {
		m.message = err.Error()
		log.WithError(err).WithField("action", cmd.Action).Debug("[TUI] command failed")
		return
	}
	switch {
	case cmd.Action == services.ActionPlace && !result.Changed:
		m.message = "can't place there"
	case cmd.Action == services.ActionResize:
		m.message = fmt.Sprintf("board %dx%d", m.game.Rows(), m.game.Cols())
	default:
		m.message = ""
	}
	if m.game.IsGameOver() {
		log.WithField("score", m.game.Score()).Debug("[TUI] game over")
	}
}

// cellAt maps a terminal position to a board cell.
func (m Model) cellAt(x, y int) (row, col int, ok bool) {
	if x < boardLeft || y < boardTop {
		return 0, 0, false
	}
	row = y - boardTop
	col = (x - boardLeft) / cellWidth
	if row >= m.game.Rows() || col >= m.game.Cols() {
		return 0, 0, false
	}
	return row, col, true
}

func (m Model) View() string {
	return renderGame(m)
}
