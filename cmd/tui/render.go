package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
)

var (
	borderColor  = lipgloss.Color("15")
	textColor    = lipgloss.Color("250")
	accentColor  = lipgloss.Color("226")
	filledColor  = lipgloss.Color("51")
	hoverOKColor = lipgloss.Color("46")
	hoverNGColor = lipgloss.Color("196")
	emptyColor   = lipgloss.Color("238")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	boardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderColor)
	panelStyle = lipgloss.NewStyle().Padding(0, 2).Foreground(textColor)
	labelStyle = lipgloss.NewStyle().Foreground(accentColor)
	overStyle  = lipgloss.NewStyle().Bold(true).Foreground(hoverNGColor)

	filledCell  = lipgloss.NewStyle().Foreground(filledColor).Render("██")
	hoverOKCell = lipgloss.NewStyle().Foreground(hoverOKColor).Render("▓▓")
	hoverNGCell = lipgloss.NewStyle().Foreground(hoverNGColor).Render("▓▓")
	emptyCell   = lipgloss.NewStyle().Foreground(emptyColor).Render("· ")
)

func renderGame(m Model) string {
	title := titleStyle.Render("GITRIS")
	body := lipgloss.JoinHorizontal(lipgloss.Top, renderBoard(m), renderPanel(m))
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func renderBoard(m Model) string {
	board := m.game.Board()

	highlight := map[tetris.Cell]bool{}
	placeable := false
	if m.hovering && !m.game.IsGameOver() {
		for _, c := range m.game.HoverPreview(m.hoverRow, m.hoverCol) {
			highlight[c] = true
		}
		placeable = m.game.CanPlaceAt(m.hoverRow, m.hoverCol)
	}

	var b strings.Builder
	for r := 0; r < board.Rows(); r++ {
		for c := 0; c < board.Cols(); c++ {
			switch {
			case highlight[tetris.Cell{Row: r, Col: c}] && placeable:
				b.WriteString(hoverOKCell)
			case highlight[tetris.Cell{Row: r, Col: c}]:
				b.WriteString(hoverNGCell)
			case board[r][c] == tetris.CellFilled:
				b.WriteString(filledCell)
			default:
				b.WriteString(emptyCell)
			}
		}
		if r < board.Rows()-1 {
			b.WriteByte('\n')
		}
	}
	return boardStyle.Render(b.String())
}

func renderPanel(m Model) string {
	piece := m.game.CurrentPiece()
	lines := []string{
		labelStyle.Render("Score"),
		fmt.Sprintf("%d", m.game.Score()),
		"",
		labelStyle.Render("Pieces"),
		fmt.Sprintf("%d", m.game.Placements()),
		"",
		labelStyle.Render("Board"),
		fmt.Sprintf("%dx%d", m.game.Rows(), m.game.Cols()),
		"",
		labelStyle.Render("Piece " + piece.Type.String()),
		renderShape(piece.Cells),
		"",
	}
	if m.game.IsGameOver() {
		lines = append(lines, overStyle.Render("GAME OVER"), "n: new game", "")
	}
	if m.message != "" {
		lines = append(lines, m.message, "")
	}
	lines = append(lines,
		"click  place",
		"r      rotate",
		"n      reset",
		"+/-    resize",
		"q      quit",
	)
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderShape(s tetris.Shape) string {
	rows := make([]string, 0, tetris.PieceSize)
	for r := 0; r < tetris.PieceSize; r++ {
		var b strings.Builder
		for c := 0; c < tetris.PieceSize; c++ {
			if s[r][c] == tetris.CellFilled {
				b.WriteString(filledCell)
			} else {
				b.WriteString("  ")
			}
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n")
}
