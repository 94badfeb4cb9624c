package tetris

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
)

func newTestState(t *testing.T, rows, cols int, types ...tetris.PieceType) *GameState {
	t.Helper()
	state, err := NewGameState(rows, cols, 0, newSequenceDrawer(types...))
	require.NoError(t, err)
	return state
}

// TestApplyCommand_Place はピースの配置と、配置できない位置の無視をテストします。
func TestApplyCommand_Place(t *testing.T) {
	state := newTestState(t, 7, 7, tetris.TypeO)

	result, err := ApplyCommand(state, Command{Action: ActionPlace, Row: 0, Col: 0})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Nil(t, result.Preview)
	assert.Equal(t, 400, state.Score())

	result, err = ApplyCommand(state, Command{Action: ActionPlace, Row: 0, Col: 0})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, 400, state.Score())
}

func TestApplyCommand_Rotate(t *testing.T) {
	state := newTestState(t, 7, 7, tetris.TypeT)

	result, err := ApplyCommand(state, Command{Action: ActionRotate})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, tetris.NewPiece(tetris.TypeT).Rotated(), state.CurrentPiece())
}

func TestApplyCommand_ResizeAndReset(t *testing.T) {
	state := newTestState(t, 7, 7, tetris.TypeO)
	_, err := ApplyCommand(state, Command{Action: ActionPlace})
	require.NoError(t, err)

	result, err := ApplyCommand(state, Command{Action: ActionResize, Rows: 5, Cols: 9})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 5, state.Rows())
	assert.Equal(t, 9, state.Cols())
	assert.Equal(t, 0, state.Score())

	_, err = ApplyCommand(state, Command{Action: ActionResize, Rows: 0, Cols: 9})
	assert.ErrorIs(t, err, ErrInvalidDimension)
	assert.Equal(t, 5, state.Rows())

	_, err = ApplyCommand(state, Command{Action: ActionPlace, Row: 1, Col: 1})
	require.NoError(t, err)
	result, err = ApplyCommand(state, Command{Action: ActionReset})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 0, state.Board().FilledCount())
	assert.Equal(t, 9, state.Cols())
}

// TestApplyCommand_Preview はプレビューが状態を変更せずにハイライト結果を返すことを確認します。
func TestApplyCommand_Preview(t *testing.T) {
	state := newTestState(t, 3, 3, tetris.TypeO)
	before := state.Snapshot()

	result, err := ApplyCommand(state, Command{Action: ActionPreview, Row: 1, Col: 1})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	require.NotNil(t, result.Preview)
	assert.Len(t, result.Preview.Cells, 4)
	assert.True(t, result.Preview.Placeable)

	result, err = ApplyCommand(state, Command{Action: ActionPreview, Row: 2, Col: 2})
	require.NoError(t, err)
	assert.Len(t, result.Preview.Cells, 1)
	assert.False(t, result.Preview.Placeable)

	assert.Equal(t, before, state.Snapshot())
}

func TestApplyCommand_Unknown(t *testing.T) {
	state := newTestState(t, 3, 3, tetris.TypeO)
	_, err := ApplyCommand(state, Command{Action: "hard_drop"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}
