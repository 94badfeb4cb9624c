package tetris

const (
	CellEmpty  = 0 // 空のマス
	CellFilled = 1 // 埋まっているマス
)

// Board はゲームボードを表す rows x cols の2次元スライスです。
// Board[row][col] でアクセスします。マスは 0 -> 1 にしか変化しません。
type Board [][]int

// Cell はボード上の座標です。
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NewBoard は rows x cols の空のボードを返します。
// 寸法の検証は呼び出し側（ゲームコントローラー）で行います。
func NewBoard(rows, cols int) Board {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	board := make(Board, rows)
	for r := range board {
		board[r] = make([]int, cols)
	}
	return board
}

// Rows はボードの行数を返します。
func (b Board) Rows() int {
	return len(b)
}

// Cols はボードの列数を返します。
func (b Board) Cols() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// InBounds は (row, col) がボードの範囲内かどうかを返します。
func (b Board) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < b.Rows() && col < b.Cols()
}

// Clone はボードのディープコピーを返します。
func (b Board) Clone() Board {
	cloned := make(Board, len(b))
	for r, row := range b {
		cloned[r] = append([]int(nil), row...)
	}
	return cloned
}

// FilledCount は埋まっているマスの数を返します。
func (b Board) FilledCount() int {
	count := 0
	for _, row := range b {
		for _, v := range row {
			if v == CellFilled {
				count++
			}
		}
	}
	return count
}

// CanPlace はピースの左上を (row, col) に合わせて配置できるかどうかを判定します。
//
// Parameters:
//   row, col : ピースの4x4フレーム左上に対応するボード座標（アンカー）
//   s        : 配置する形状
// Returns:
//   bool: 全ての埋まったマスがボード内かつ空きマスに収まる場合はtrue
func (b Board) CanPlace(row, col int, s Shape) bool {
	// アンカーは 0 以上であることが前提条件。負の値は配置不可として扱う
	if row < 0 || col < 0 {
		return false
	}
	for _, block := range s.Blocks() {
		r := row + block[0]
		c := col + block[1]
		if r >= b.Rows() || c >= b.Cols() {
			return false // ボード外にはみ出す
		}
		if b[r][c] == CellFilled {
			return false // 既存のブロックと重なる
		}
	}
	return true
}

// Commit はピースのブロックをボードに書き込んだ新しいボードと、書き込んだマスの数を返します。
// 元のボードは変更しません。事前に CanPlace で検証されていることが前提です。
func (b Board) Commit(row, col int, s Shape) (Board, int) {
	next := b.Clone()
	written := 0
	for _, block := range s.Blocks() {
		r := row + block[0]
		c := col + block[1]
		if !next.InBounds(r, c) {
			continue
		}
		next[r][c] = CellFilled
		written++
	}
	return next, written
}

// CanPlaceAnywhere はボード上のどこか一箇所にでも配置できるかどうかを返します。
func (b Board) CanPlaceAnywhere(s Shape) bool {
	for row := 0; row < b.Rows(); row++ {
		for col := 0; col < b.Cols(); col++ {
			if b.CanPlace(row, col, s) {
				return true
			}
		}
	}
	return false
}

// CanPlaceInAnyRotation は元の向きを含む4方向のいずれかで配置可能かどうかを返します。
// false の場合、現在のピースではゲームを続行できません（ゲームオーバー）。
func (b Board) CanPlaceInAnyRotation(s Shape) bool {
	rotated := s
	for i := 0; i < 4; i++ {
		if b.CanPlaceAnywhere(rotated) {
			return true
		}
		rotated = NormalizeRotation(rotated)
	}
	return false
}

// HoverPreview はピースを (row, col) に置いたときにハイライトされるボード上のマスを返します。
// アンカーがボード外なら空、ボードからはみ出すマスは除外されます。
func (b Board) HoverPreview(row, col int, s Shape) []Cell {
	cells := []Cell{}
	if !b.InBounds(row, col) {
		return cells
	}
	for _, block := range s.Blocks() {
		r := row + block[0]
		c := col + block[1]
		if b.InBounds(r, c) {
			cells = append(cells, Cell{Row: r, Col: c})
		}
	}
	return cells
}
