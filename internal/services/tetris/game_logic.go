package tetris

import (
	"errors"
	"fmt"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
)

// プレイヤーが送信できるアクションです。
const (
	ActionPlace   = "place"
	ActionRotate  = "rotate"
	ActionResize  = "resize"
	ActionReset   = "reset"
	ActionPreview = "preview"
)

// ErrUnknownAction は未知のアクションが送られてきた場合に返されます。
var ErrUnknownAction = errors.New("unknown action")

// Command はビューから送られてくる1回分の操作です。
// WebSocket ではこの構造体がそのまま JSON で送られてきます。
type Command struct {
	Action string `json:"action"`         // "place", "rotate", "resize", "reset", "preview"
	Row    int    `json:"row,omitempty"`  // place / preview のアンカー行
	Col    int    `json:"col,omitempty"`  // place / preview のアンカー列
	Rows   int    `json:"rows,omitempty"` // resize 後の行数
	Cols   int    `json:"cols,omitempty"` // resize 後の列数
}

// PreviewSnapshot はホバー中のアンカーに対するハイライト結果です。
type PreviewSnapshot struct {
	Row       int           `json:"row"`
	Col       int           `json:"col"`
	Cells     []tetris.Cell `json:"cells"`
	Placeable bool          `json:"placeable"`
}

// CommandResult は ApplyCommand の結果です。
type CommandResult struct {
	Changed bool             `json:"changed"`           // ゲーム状態が変化したかどうか
	Preview *PreviewSnapshot `json:"preview,omitempty"` // preview アクションの場合のみ
}

// ApplyCommand はプレイヤーの操作に基づいてゲーム状態を更新します。
//
// Parameters:
//   state : 更新するゲーム状態
//   cmd   : プレイヤーが実行した操作
// Returns:
//   CommandResult: 状態が変化したかどうか（配置できない位置へのクリックなどは変化なし）
//   error        : 未知のアクション、または resize の寸法が不正な場合
func ApplyCommand(state *GameState, cmd Command) (CommandResult, error) {
	switch cmd.Action {
	case ActionPlace:
		// 配置できない場合はエラーにせず、何もしない
		return CommandResult{Changed: state.RequestPlace(cmd.Row, cmd.Col)}, nil
	case ActionRotate:
		return CommandResult{Changed: state.RequestRotate()}, nil
	case ActionResize:
		if err := state.Resize(cmd.Rows, cmd.Cols); err != nil {
			return CommandResult{}, err
		}
		return CommandResult{Changed: true}, nil
	case ActionReset:
		state.Reset()
		return CommandResult{Changed: true}, nil
	case ActionPreview:
		return CommandResult{Preview: &PreviewSnapshot{
			Row:       cmd.Row,
			Col:       cmd.Col,
			Cells:     state.HoverPreview(cmd.Row, cmd.Col),
			Placeable: state.CanPlaceAt(cmd.Row, cmd.Col),
		}}, nil
	default:
		return CommandResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}
