package labtrend

import (
	"log/slog"
	"sort"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/parser"
)

// firstDateColumn is the first column that can hold readings.
const firstDateColumn = 2

// discoverDateColumns parses header cells from column 2 on and returns the columns
// with valid, distinct dates in ascending date order. Source column order is not
// assumed to be chronological.
func discoverDateColumns(grid *models.Grid, logger *slog.Logger) []models.DateColumn {
	var columns []models.DateColumn
	seen := make(map[int64]int)

	for col := firstDateColumn; col < grid.RowLen(0); col++ {
		cell := grid.At(0, col)
		date, ok := parser.ParseHeaderDate(cell, grid.Date1904)
		if !ok {
			logger.Warn("Skipping column with unparseable date header",
				slog.Int("column", col),
				slog.String("raw", cell.String()))
			continue
		}

		key := date.UnixNano()
		if first, dup := seen[key]; dup {
			logger.Warn("Skipping column with duplicate date header",
				slog.Int("column", col),
				slog.Int("first_column", first),
				slog.String("date", date.Format("2006-01-02")))
			continue
		}
		seen[key] = col
		columns = append(columns, models.DateColumn{Index: col, Date: date})
	}

	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Date.Before(columns[j].Date)
	})
	return columns
}
