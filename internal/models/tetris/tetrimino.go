package tetris

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// PieceSize はピースを表現する正方フレームの一辺の長さです。
const PieceSize = 4

// PieceType はテトリミノの種類を表します。
type PieceType int

const (
	TypeI PieceType = iota // 0: I-ミノ
	TypeO                  // 1: O-ミノ
	TypeT                  // 2: T-ミノ
	TypeS                  // 3: S-ミノ
	TypeZ                  // 4: Z-ミノ
	TypeJ                  // 5: J-ミノ
	TypeL                  // 6: L-ミノ
)

// AllPieceTypes はカタログに含まれる7種類のテトリミノです。抽選はこの中から等確率で行います。
var AllPieceTypes = []PieceType{TypeI, TypeO, TypeT, TypeS, TypeZ, TypeJ, TypeL}

// Shape は4x4の二値マトリクスです（0: 空, 1: 埋まっている）。
// 配列型なので回転後も必ず4x4であり、== で比較できます。
type Shape [PieceSize][PieceSize]int

// pieceShapes は各テトリミノの初期形状です。ブロックは4x4フレームの左上に寄せてあります。
var pieceShapes = map[PieceType]Shape{
	TypeI: {
		{1, 1, 1, 1},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	TypeO: {
		{1, 1, 0, 0},
		{1, 1, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	TypeT: {
		{0, 1, 0, 0},
		{1, 1, 1, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	TypeS: {
		{0, 1, 1, 0},
		{1, 1, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	TypeZ: {
		{1, 1, 0, 0},
		{0, 1, 1, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	TypeJ: {
		{0, 0, 1, 0},
		{1, 1, 1, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
	TypeL: {
		{1, 0, 0, 0},
		{1, 1, 1, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	},
}

// Blocks は埋まっているマスの (row, col) をフレーム内の相対座標で返します。
func (s Shape) Blocks() [][2]int {
	blocks := make([][2]int, 0, PieceSize)
	for i := 0; i < PieceSize; i++ {
		for j := 0; j < PieceSize; j++ {
			if s[i][j] == 1 {
				blocks = append(blocks, [2]int{i, j})
			}
		}
	}
	return blocks
}

// FilledCells は埋まっているマスの数を返します。
func (s Shape) FilledCells() int {
	return len(s.Blocks())
}

// Matrix は Shape を可変長のマトリクスに変換します。
func (s Shape) Matrix() Matrix {
	m := make(Matrix, PieceSize)
	for i := range m {
		m[i] = append([]int(nil), s[i][:]...)
	}
	return m
}

// Piece は現在のテトリミノです。回転や配置のたびに新しい値に置き換えられ、変更はされません。
type Piece struct {
	Type  PieceType `json:"type"`  // テトリミノの種類
	Cells Shape     `json:"cells"` // 正規化済みの4x4形状
}

// NewPiece は指定された種類の初期形状のピースを返します。
func NewPiece(t PieceType) Piece {
	return Piece{Type: t, Cells: pieceShapes[t]}
}

// Rotated は時計回りに90度回転し、左上に寄せ直したピースを返します。
func (p Piece) Rotated() Piece {
	return Piece{Type: p.Type, Cells: NormalizeRotation(p.Cells)}
}

// PieceDrawer はピースの抽選を抽象化します。テストでは決まった順番で返す実装に差し替えます。
type PieceDrawer interface {
	Draw() Piece
}

// RandomDrawer はシード付きの乱数でカタログから等確率にピースを抽選します。
// 同一のゴルーチンからのみ使用してください。
type RandomDrawer struct {
	r *rand.Rand
}

// NewRandomDrawer は指定されたシードで RandomDrawer を作成します。
func NewRandomDrawer(seed int64) *RandomDrawer {
	return &RandomDrawer{r: rand.New(rand.NewSource(seed))}
}

// Draw はカタログからピースを1つ抽選します。
func (d *RandomDrawer) Draw() Piece {
	return NewPiece(AllPieceTypes[d.r.Intn(len(AllPieceTypes))])
}

// Catalog はすべてのテトリミノの初期形状を返します。
func Catalog() []Piece {
	pieces := make([]Piece, 0, len(AllPieceTypes))
	for _, t := range AllPieceTypes {
		pieces = append(pieces, NewPiece(t))
	}
	return pieces
}

// StringToPieceType は文字列のテトリミノタイプ（"I", "O", "T"など）をPieceTypeに変換します。
func StringToPieceType(s string) (PieceType, bool) {
	switch s {
	case "I":
		return TypeI, true
	case "O":
		return TypeO, true
	case "T":
		return TypeT, true
	case "S":
		return TypeS, true
	case "Z":
		return TypeZ, true
	case "J":
		return TypeJ, true
	case "L":
		return TypeL, true
	default:
		return TypeI, false
	}
}

// String はPieceTypeを文字列表現に変換します。
func (t PieceType) String() string {
	switch t {
	case TypeI:
		return "I"
	case TypeO:
		return "O"
	case TypeT:
		return "T"
	case TypeS:
		return "S"
	case TypeZ:
		return "Z"
	case TypeJ:
		return "J"
	case TypeL:
		return "L"
	default:
		return fmt.Sprintf("PieceType(%d)", int(t))
	}
}

// MarshalJSON はPieceTypeを "I" などの文字列として出力します。
func (t PieceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON は "I" などの文字列からPieceTypeを復元します。
func (t *PieceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	pt, ok := StringToPieceType(s)
	if !ok {
		return fmt.Errorf("unknown piece type %q", s)
	}
	*t = pt
	return nil
}
