package tetris

// Matrix は任意サイズ (R x C) の二値マトリクスです。回転の途中経過を表すのに使います。
type Matrix [][]int

// RotateClockwise は R x C のマトリクスを時計回りに90度回転した C x R のマトリクスを返します。
// result[c][R-1-r] = m[r][c]
func RotateClockwise(m Matrix) Matrix {
	rows := len(m)
	if rows == 0 {
		return Matrix{}
	}
	cols := len(m[0])

	rotated := make(Matrix, cols)
	for c := range rotated {
		rotated[c] = make([]int, rows)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols && c < len(m[r]); c++ {
			rotated[c][rows-1-r] = m[r][c]
		}
	}
	return rotated
}

// TrimToBoundingBox は先頭の空行と、全行を通して左側の空列を取り除いたマトリクスを返します。
// 末尾側の空行・空列はそのまま残ります。
// 埋まっているマスが一つもない場合は入力のコピーをそのまま返します。
func TrimToBoundingBox(m Matrix) Matrix {
	firstRow, minCol := -1, -1
	for r, row := range m {
		for c, v := range row {
			if v != 1 {
				continue
			}
			if firstRow == -1 {
				firstRow = r
			}
			if minCol == -1 || c < minCol {
				minCol = c
			}
			break // この行の最小列が見つかった
		}
	}

	if firstRow == -1 {
		return cloneMatrix(m)
	}

	trimmed := make(Matrix, 0, len(m)-firstRow)
	for r := firstRow; r < len(m); r++ {
		var row []int
		if minCol < len(m[r]) {
			row = append(row, m[r][minCol:]...)
		}
		trimmed = append(trimmed, row)
	}
	return trimmed
}

// PadTo4x4 は新しい4x4フレームに、行・列ともに4未満の位置にある埋まったマスだけをコピーします。
// フレームからはみ出すマスは捨てられます。
func PadTo4x4(m Matrix) Shape {
	var padded Shape
	for i := 0; i < len(m) && i < PieceSize; i++ {
		for j := 0; j < len(m[i]) && j < PieceSize; j++ {
			if m[i][j] == 1 {
				padded[i][j] = 1
			}
		}
	}
	return padded
}

// NormalizeRotation は形状を時計回りに90度回転し、左上に寄せ直して4x4に戻します。
// プレイヤーの回転操作と、ゲームオーバー判定での全回転の探索の両方で使われます。
func NormalizeRotation(s Shape) Shape {
	return PadTo4x4(TrimToBoundingBox(RotateClockwise(s.Matrix())))
}

func cloneMatrix(m Matrix) Matrix {
	cloned := make(Matrix, len(m))
	for i, row := range m {
		cloned[i] = append([]int(nil), row...)
	}
	return cloned
}
