package labtrend

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/parser"
)

// headerRepeatToken marks a header row embedded again in the body.
const headerRepeatToken = "Unit"

// series is the running set of readings for one parameter name.
type series struct {
	name     string
	unit     string
	category string
	obs      []models.Observation
	byDate   map[int64]int
}

func newSeries(name, unit, category string) *series {
	return &series{
		name:     name,
		unit:     unit,
		category: category,
		byDate:   make(map[int64]int),
	}
}

// add records a reading, replacing an earlier one for the same date.
// Reports whether a reading was replaced.
func (s *series) add(date time.Time, value float64) bool {
	key := date.UnixNano()
	if i, ok := s.byDate[key]; ok {
		s.obs[i].Value = value
		return true
	}
	s.byDate[key] = len(s.obs)
	s.obs = append(s.obs, models.Observation{Date: date, Value: value})
	return false
}

// valueAt returns the reading whose date equals date exactly.
func (s *series) valueAt(date time.Time) (float64, bool) {
	i, ok := s.byDate[date.UnixNano()]
	if !ok {
		return 0, false
	}
	return s.obs[i].Value, true
}

// observations returns the readings in ascending date order.
func (s *series) observations() []models.Observation {
	out := append([]models.Observation(nil), s.obs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// parameterName returns the column-0 text of a body row and whether the row names a parameter.
// Blank cells, repeated header rows and category labels such as "Liver Function Tests (LFT)" are skipped.
func parameterName(cell models.Cell) (string, bool) {
	name := strings.TrimSpace(cell.String())
	switch {
	case name == "":
		return "", false
	case name == headerRepeatToken:
		return "", false
	case strings.Contains(name, "("):
		return "", false
	}
	return name, true
}

// extractParameters walks the body rows and collects one series per parameter name
// in first-encounter order.
func extractParameters(grid *models.Grid, columns []models.DateColumn, table CategoryTable, logger *slog.Logger) []*series {
	var params []*series
	byName := make(map[string]*series)

	for row := 1; row < grid.NumRows(); row++ {
		name, ok := parameterName(grid.At(row, 0))
		if !ok {
			continue
		}
		if name == models.DateKey {
			logger.Warn("Skipping parameter whose name collides with the date key",
				slog.String("parameter", name),
				slog.Int("row", row))
			continue
		}
		unit := strings.TrimSpace(grid.At(row, 1).String())

		s, exists := byName[name]
		if exists {
			logger.Debug("Merging repeated parameter row",
				slog.String("parameter", name),
				slog.Int("row", row))
			if unit != "" {
				s.unit = unit
			}
		} else {
			category, known := table.Resolve(name)
			if !known {
				logger.Debug("Parameter has no category",
					slog.String("parameter", name),
					slog.String("category", category))
			}
			s = newSeries(name, unit, category)
			byName[name] = s
			params = append(params, s)
		}

		for _, col := range columns {
			cell := grid.At(row, col.Index)
			if cell.IsEmpty() {
				continue
			}
			value, ok := parser.ToNumber(cell)
			if !ok {
				logger.Debug("Skipping non-numeric reading",
					slog.String("parameter", name),
					slog.Int("row", row),
					slog.Int("column", col.Index),
					slog.String("raw", cell.String()))
				continue
			}
			if s.add(col.Date, value) {
				logger.Debug("Replaced reading from earlier row",
					slog.String("parameter", name),
					slog.String("date", col.Date.Format("2006-01-02")))
			}
		}
	}

	return params
}
