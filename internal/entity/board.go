package entity

const (
	Rows    = 6
	Columns = 7
	ToWin   = 4
)

// Cell is the content of one board square. It doubles as a player number.
type Cell int

const (
	EmptyCell Cell = 0
	PlayerOne Cell = 1
	PlayerTwo Cell = 2
)

// Opponent returns the other player's number.
func (that Cell) Opponent() Cell {
	if that == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Position is a board cell address; row 0 is the top row.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// axes holds one direction per line through a cell; the opposite direction is implied.
var axes = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal \
	{1, -1}, // diagonal /
}

// Board is the 6x7 grid. Discs fall to the lowest empty row of a column.
type Board [Rows][Columns]Cell

// ApplyMove drops a disc for player into column. It returns false when the
// column is full or does not exist; the board is left untouched in that case.
func (that *Board) ApplyMove(column int, player Cell) (Position, bool) {
	if column < 0 || column >= Columns {
		return Position{}, false
	}

	for row := Rows - 1; row >= 0; row-- {
		if that[row][column] == EmptyCell {
			that[row][column] = player
			return Position{Row: row, Column: column}, true
		}
	}

	return Position{}, false
}

// CheckWin reports whether the disc at (row, col) completes a line of at least
// ToWin discs. Only lines through that cell are inspected.
func (that *Board) CheckWin(row, col int) bool {
	player := that[row][col]
	if player == EmptyCell {
		return false
	}

	for _, axis := range axes {
		count := 1 + that.run(row, col, axis[0], axis[1], player) + that.run(row, col, -axis[0], -axis[1], player)
		if count >= ToWin {
			return true
		}
	}

	return false
}

func (that *Board) run(row, col, dRow, dCol int, player Cell) int {
	count := 0
	r, c := row+dRow, col+dCol
	for r >= 0 && r < Rows && c >= 0 && c < Columns && that[r][c] == player {
		count++
		r += dRow
		c += dCol
	}
	return count
}

// IsFull reports whether no column accepts another disc.
func (that *Board) IsFull() bool {
	for _, cell := range that[0] {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

func (that *Board) Reset() {
	*that = Board{}
}
