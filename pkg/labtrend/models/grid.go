package models

// Grid is a decoded sheet addressed by 0-based row and column.
// Rows may have different lengths; missing cells read as empty.
type Grid struct {
	// SheetName is the sheet the grid was read from (empty for delimited text).
	SheetName string
	// Date1904 reports whether numeric date serials use the 1904 epoch.
	Date1904 bool
	// Rows holds the cells row by row.
	Rows [][]Cell
}

// At returns the cell at (row, col), or an empty cell when out of range.
func (g *Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g.Rows) {
		return Cell{}
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// NumRows returns the number of rows.
func (g *Grid) NumRows() int {
	return len(g.Rows)
}

// RowLen returns the length of the given row (0 when out of range).
func (g *Grid) RowLen(row int) int {
	if row < 0 || row >= len(g.Rows) {
		return 0
	}
	return len(g.Rows[row])
}
