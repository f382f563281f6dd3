package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"github.com/xuri/excelize/v2"
)

// ParseArea parses a range reference such as A1:H40, $A$1:$H$40 or 'Sheet 1'!A1:H40.
// The sheet prefix, when present, is ignored.
func ParseArea(ref string) (models.Area, error) {
	ref = strings.TrimSpace(ref)
	if idx := strings.LastIndex(ref, "!"); idx >= 0 {
		ref = ref[idx+1:]
	}
	area := parseRangeToArea(ref)
	if area == nil {
		return models.Area{}, fmt.Errorf("invalid range %q", ref)
	}
	if area.R1 > area.R2 {
		area.R1, area.R2 = area.R2, area.R1
	}
	if area.C1 > area.C2 {
		area.C1, area.C2 = area.C2, area.C1
	}
	return *area, nil
}

// Crop restricts the grid to the given area.
func Crop(g *models.Grid, area models.Area) *models.Grid {
	return crop(g, area.R1-1, area.R2-1, area.C1-1, area.C2-1)
}

// parseRangeToArea parses a range string like $A$1:$D$10 to Area.
func parseRangeToArea(rangeStr string) *models.Area {
	// Remove $ signs
	rangeStr = strings.ReplaceAll(rangeStr, "$", "")

	// Split by :
	parts := strings.Split(rangeStr, ":")
	if len(parts) != 2 {
		return nil
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return nil
	}

	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return nil
	}

	return &models.Area{
		R1: startRow,
		C1: startCol,
		R2: endRow,
		C2: endCol,
	}
}
