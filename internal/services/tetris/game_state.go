package tetris

import (
	"errors"
	"fmt"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
)

// PointsPerCell は配置したブロック1マスあたりの得点です。
const PointsPerCell = 100

// DefaultMaxDimension は MaxDimension が指定されていない場合のボードの一辺の上限です。
const DefaultMaxDimension = 64

// ErrInvalidDimension はボードの行数・列数が 1 未満または上限を超えている場合に返されます。
var ErrInvalidDimension = errors.New("invalid board dimension")

// Status はゲームの状態です。
type Status string

const (
	StatusPlaying  Status = "playing"
	StatusGameOver Status = "game_over"
)

// GameState は1つのゲームの状態（ボード、現在のピース、スコア、ゲームオーバー判定）を保持する
// ゲームコントローラーです。状態を変更できるのはこの型のメソッドだけです。
// 並行アクセスは想定していないため、複数のゴルーチンから使う場合は呼び出し側で排他制御してください。
type GameState struct {
	board        tetris.Board
	currentPiece tetris.Piece
	score        int
	placements   int
	status       Status
	drawer       tetris.PieceDrawer
	maxDimension int
}

// GameSnapshot はビューに渡すためのゲーム状態のコピーです。
type GameSnapshot struct {
	Rows         int          `json:"rows"`
	Cols         int          `json:"cols"`
	Board        tetris.Board `json:"board"`
	CurrentPiece tetris.Piece `json:"current_piece"`
	Score        int          `json:"score"`
	Placements   int          `json:"placements"`
	Status       Status       `json:"status"`
	IsGameOver   bool         `json:"is_game_over"`
}

// NewGameState は rows x cols の空のボードと最初のピースでゲームを開始します。
//
// Parameters:
//   rows, cols   : ボードの寸法
//   maxDimension : 一辺の上限（0以下なら DefaultMaxDimension）
//   drawer       : ピースの抽選器
// Returns:
//   *GameState: 初期化されたゲーム状態
//   error     : 寸法が不正な場合は ErrInvalidDimension
func NewGameState(rows, cols, maxDimension int, drawer tetris.PieceDrawer) (*GameState, error) {
	if drawer == nil {
		return nil, errors.New("piece drawer is required")
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	state := &GameState{
		drawer:       drawer,
		maxDimension: maxDimension,
	}
	if err := state.Resize(rows, cols); err != nil {
		return nil, err
	}
	return state, nil
}

// ValidateDimensions はボードの寸法が 1 以上 maxDimension 以下であることを検証します。
func ValidateDimensions(rows, cols, maxDimension int) error {
	if rows <= 0 || cols <= 0 || rows > maxDimension || cols > maxDimension {
		return fmt.Errorf("%w: %dx%d (allowed 1..%d)", ErrInvalidDimension, rows, cols, maxDimension)
	}
	return nil
}

// Resize はボードを rows x cols の空のボードに作り直し、スコアを 0 に戻して新しいピースを抽選します。
// ゲームオーバー状態からでも呼び出せます。寸法が不正な場合は状態を変更せずにエラーを返します。
func (s *GameState) Resize(rows, cols int) error {
	if err := ValidateDimensions(rows, cols, s.maxDimension); err != nil {
		return err
	}
	s.board = tetris.NewBoard(rows, cols)
	s.score = 0
	s.placements = 0
	s.status = StatusPlaying
	s.currentPiece = s.drawer.Draw()
	s.refreshGameOver()
	return nil
}

// Reset は現在の寸法のままゲームをやり直します。
func (s *GameState) Reset() {
	// 現在の寸法は検証済みなのでエラーにはならない
	_ = s.Resize(s.board.Rows(), s.board.Cols())
}

// RequestRotate は現在のピースを時計回りに回転させます。
// ゲームオーバー中は何もせず false を返します。
func (s *GameState) RequestRotate() bool {
	if s.status == StatusGameOver {
		return false
	}
	s.currentPiece = s.currentPiece.Rotated()
	s.refreshGameOver()
	return true
}

// RequestPlace は現在のピースの左上を (row, col) に合わせて配置します。
// ゲームオーバー中、または配置できない場合は何も変更せずに false を返します。
// 配置に成功すると得点を加算し、次のピースを抽選します。
func (s *GameState) RequestPlace(row, col int) bool {
	if s.status == StatusGameOver {
		return false
	}
	if !s.board.CanPlace(row, col, s.currentPiece.Cells) {
		return false
	}

	next, written := s.board.Commit(row, col, s.currentPiece.Cells)
	s.board = next
	s.score += PointsPerCell * written
	s.placements++
	s.currentPiece = s.drawer.Draw()
	s.refreshGameOver()
	return true
}

// refreshGameOver は現在のピースがどの向きでも置けない場合にゲームオーバーにします。
// ゲームオーバーから抜けるのは Resize / Reset だけです。
func (s *GameState) refreshGameOver() {
	if !s.board.CanPlaceInAnyRotation(s.currentPiece.Cells) {
		s.status = StatusGameOver
	}
}

// Board は現在のボードのコピーを返します。
func (s *GameState) Board() tetris.Board {
	return s.board.Clone()
}

// CurrentPiece は現在のピースを返します。
func (s *GameState) CurrentPiece() tetris.Piece {
	return s.currentPiece
}

// Score は現在のスコアを返します。
func (s *GameState) Score() int {
	return s.score
}

// Placements は配置に成功した回数を返します。
func (s *GameState) Placements() int {
	return s.placements
}

// Status は現在の状態を返します。
func (s *GameState) Status() Status {
	return s.status
}

// IsGameOver はゲームオーバーかどうかを返します。
func (s *GameState) IsGameOver() bool {
	return s.status == StatusGameOver
}

// Rows はボードの行数を返します。
func (s *GameState) Rows() int {
	return s.board.Rows()
}

// Cols はボードの列数を返します。
func (s *GameState) Cols() int {
	return s.board.Cols()
}

// MaxDimension はボードの一辺の上限を返します。
func (s *GameState) MaxDimension() int {
	return s.maxDimension
}

// HoverPreview は現在のピースを (row, col) に置いた場合にハイライトされるマスを返します。
func (s *GameState) HoverPreview(row, col int) []tetris.Cell {
	return s.board.HoverPreview(row, col, s.currentPiece.Cells)
}

// CanPlaceAt は現在のピースを (row, col) に配置できるかどうかを返します。
func (s *GameState) CanPlaceAt(row, col int) bool {
	return s.status == StatusPlaying && s.board.CanPlace(row, col, s.currentPiece.Cells)
}

// Snapshot はビュー向けのゲーム状態のコピーを返します。
func (s *GameState) Snapshot() GameSnapshot {
	return GameSnapshot{
		Rows:         s.board.Rows(),
		Cols:         s.board.Cols(),
		Board:        s.board.Clone(),
		CurrentPiece: s.currentPiece,
		Score:        s.score,
		Placements:   s.placements,
		Status:       s.status,
		IsGameOver:   s.status == StatusGameOver,
	}
}
