package parser

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"github.com/xuri/excelize/v2"
)

// xlsxSheet types raw cell values of one OOXML sheet.
type xlsxSheet struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func decodeXLSX(buf []byte, opts DecodeOptions) (*models.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(buf), excelize.Options{Password: opts.Password})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName, err := pickSheet(f.GetSheetList(), opts.Sheet)
	if err != nil {
		return nil, err
	}

	// Raw values keep date serials numeric instead of applying the number format
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	s := &xlsxSheet{f: f, sheet: sheetName, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		s.date1904 = *props.Date1904
	}

	grid := &models.Grid{
		SheetName: sheetName,
		Date1904:  s.date1904,
		Rows:      make([][]models.Cell, len(rows)),
	}
	for rowIdx, row := range rows {
		cells := make([]models.Cell, len(row))
		for colIdx, value := range row {
			if value == "" {
				continue
			}
			cells[colIdx] = s.cell(rowIdx, colIdx, value)
		}
		grid.Rows[rowIdx] = cells
	}

	return grid, nil
}

// cell types a raw value using the stored cell type and the cell's number format.
func (s *xlsxSheet) cell(rowIdx, colIdx int, value string) models.Cell {
	cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
	if err != nil {
		return classifyText(value)
	}

	cellType, err := s.f.GetCellType(s.sheet, cellName)
	if err != nil {
		return classifyText(value)
	}

	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return models.StringCell(strings.TrimSpace(value))
	case excelize.CellTypeBool:
		// Raw booleans are stored as 1/0, which would otherwise read as numbers
		v := strings.TrimSpace(value)
		return boolCell(v == "1" || strings.EqualFold(v, "true"))
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return models.DateCell(t.UTC())
		}
		if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
			return models.DateCell(t)
		}
		return models.StringCell(strings.TrimSpace(value))
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return classifyText(value)
	}
	if s.isDateStyled(cellName) {
		if t, ok := serialToTime(n, s.date1904); ok {
			return models.DateCell(t)
		}
	}
	return models.NumberCell(n)
}

// isDateStyled reports whether the cell's number format renders a date.
func (s *xlsxSheet) isDateStyled(cellName string) bool {
	styleID, err := s.f.GetCellStyle(s.sheet, cellName)
	if err != nil {
		return false
	}
	if isDate, ok := s.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := s.f.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	s.dateStyles[styleID] = isDate
	return isDate
}

// isDateNumFmt reports whether a built-in format id or custom format code displays a date.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateFormatCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode inspects a custom format code, ignoring quoted literals and [..] sections.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	plain := b.String()
	return strings.ContainsAny(plain, "yd")
}
