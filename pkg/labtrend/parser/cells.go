package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
)

// classifyText types a textual cell value.
// Returns a number cell for finite numeric text, an empty cell for blank text,
// or a string cell holding the trimmed text.
func classifyText(s string) models.Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Cell{}
	}
	if f, ok := parseFinite(s); ok {
		return models.NumberCell(f)
	}
	return models.StringCell(s)
}

// ToNumber coerces a cell to a reading.
// Numbers pass through, strings must parse as a finite float, dates and blanks are rejected.
func ToNumber(c models.Cell) (float64, bool) {
	switch c.Kind {
	case models.CellNumber:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return 0, false
		}
		return c.Number, true
	case models.CellString:
		return parseFinite(strings.TrimSpace(c.Text))
	default:
		return 0, false
	}
}

// boolCell renders a boolean as TRUE/FALSE text, which never coerces to a reading.
func boolCell(b bool) models.Cell {
	if b {
		return models.StringCell("TRUE")
	}
	return models.StringCell("FALSE")
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
