package parser

import "github.com/ukaji3/labtrend-go/pkg/labtrend/models"

// TrimToData drops trailing blank rows and columns. Row 0 and column 0 stay
// anchored, so a blank leading column still counts as the parameter column.
// A grid without data is returned empty.
func TrimToData(g *models.Grid) *models.Grid {
	minRow, maxRow, _, maxCol := findDataBounds(g)
	if minRow < 0 {
		return &models.Grid{SheetName: g.SheetName, Date1904: g.Date1904}
	}
	return crop(g, 0, maxRow, 0, maxCol)
}

// findDataBounds finds the bounding box of non-empty cells (0-based, inclusive).
func findDataBounds(g *models.Grid) (minRow, maxRow, minCol, maxCol int) {
	minRow, maxRow = -1, -1
	minCol, maxCol = -1, -1

	for rowIdx, row := range g.Rows {
		for colIdx, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			if minRow < 0 || rowIdx < minRow {
				minRow = rowIdx
			}
			if maxRow < 0 || rowIdx > maxRow {
				maxRow = rowIdx
			}
			if minCol < 0 || colIdx < minCol {
				minCol = colIdx
			}
			if maxCol < 0 || colIdx > maxCol {
				maxCol = colIdx
			}
		}
	}

	return
}

// crop copies the inclusive 0-based region into a new grid.
// Rows keep their own length; trailing empty cells are dropped.
func crop(g *models.Grid, minRow, maxRow, minCol, maxCol int) *models.Grid {
	out := &models.Grid{SheetName: g.SheetName, Date1904: g.Date1904}
	for rowIdx := minRow; rowIdx <= maxRow; rowIdx++ {
		var cells []models.Cell
		if rowIdx < len(g.Rows) {
			row := g.Rows[rowIdx]
			end := maxCol + 1
			if end > len(row) {
				end = len(row)
			}
			if minCol < end {
				cells = append(cells, row[minCol:end]...)
			}
		}
		for len(cells) > 0 && cells[len(cells)-1].IsEmpty() {
			cells = cells[:len(cells)-1]
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}
