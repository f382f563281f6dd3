package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
)

var (
	// ErrEncryptedXLS indicates a legacy workbook protected with a FILEPASS record.
	ErrEncryptedXLS = errors.New("encrypted xls workbooks are not supported")
	// ErrLegacyBIFF indicates a BIFF5 or older workbook.
	ErrLegacyBIFF = errors.New("only BIFF8 xls workbooks are supported")
)

// BOOLERR error codes and their display text.
var biffErrors = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

var cellRecords = map[uint16]bool{
	recNumber: true, recRK: true, recMulRK: true, recLabelSST: true,
	recLabel: true, recBoolErr: true, recFormula: true,
}

type xlsSheetRef struct {
	name   string
	offset int
}

// xlsWorkbook holds the globals substream state needed to type sheet cells.
type xlsWorkbook struct {
	stream    []byte
	date1904  bool
	sst       []string
	xfFormats []uint16
	formats   map[uint16]string
	sheets    []xlsSheetRef
}

func decodeXLS(buf []byte, opts DecodeOptions) (*models.Grid, error) {
	stream, err := workbookStream(buf)
	if err != nil {
		return nil, err
	}

	wb, err := readGlobals(stream)
	if err != nil {
		return nil, fmt.Errorf("corrupt xls workbook: %w", err)
	}

	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.name
	}
	sheetName, err := pickSheet(names, opts.Sheet)
	if err != nil {
		return nil, err
	}

	for _, s := range wb.sheets {
		if s.name != sheetName {
			continue
		}
		grid, err := wb.readSheet(s)
		if err != nil {
			return nil, fmt.Errorf("corrupt xls workbook: %w", err)
		}
		return grid, nil
	}
	return nil, fmt.Errorf("sheet %q not found", sheetName)
}

// workbookStream extracts the BIFF8 Workbook stream from the compound file.
func workbookStream(buf []byte) ([]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}

	legacy := false
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch entry.Name {
		case "Workbook":
			return io.ReadAll(entry)
		case "Book":
			legacy = true
		}
	}
	if legacy {
		return nil, ErrLegacyBIFF
	}
	return nil, errors.New("compound file has no Workbook stream")
}

func readGlobals(stream []byte) (*xlsWorkbook, error) {
	recs, err := recordsFrom(stream, 0)
	if err != nil {
		return nil, err
	}
	if err := checkBOF(recs); err != nil {
		return nil, err
	}

	wb := &xlsWorkbook{stream: stream, formats: make(map[uint16]string)}
	for i, rec := range recs {
		switch rec.id {
		case recFilePass:
			return nil, ErrEncryptedXLS
		case recDateMode:
			mode, err := rec.u16(0)
			if err != nil {
				return nil, err
			}
			wb.date1904 = mode == 1
		case recFormat:
			id, err := rec.u16(0)
			if err != nil {
				return nil, err
			}
			code, err := rec.unicodeString(2)
			if err != nil {
				return nil, err
			}
			wb.formats[id] = code
		case recXF:
			fmtID, err := rec.u16(2)
			if err != nil {
				return nil, err
			}
			wb.xfFormats = append(wb.xfFormats, fmtID)
		case recBoundSheet:
			ref, ok, err := boundSheet(rec)
			if err != nil {
				return nil, err
			}
			if ok {
				wb.sheets = append(wb.sheets, ref)
			}
		case recSST:
			if wb.sst, err = readSST(recs, i); err != nil {
				return nil, err
			}
		}
	}
	return wb, nil
}

func checkBOF(recs []record) error {
	if len(recs) == 0 || recs[0].id != recBOF {
		return errors.New("substream does not start with BOF")
	}
	version, err := recs[0].u16(0)
	if err != nil {
		return err
	}
	if version != biff8Version {
		return ErrLegacyBIFF
	}
	return nil
}

// boundSheet reads a BOUNDSHEET record; charts and macro sheets are skipped.
func boundSheet(rec record) (xlsSheetRef, bool, error) {
	pos, err := rec.u32(0)
	if err != nil {
		return xlsSheetRef{}, false, err
	}
	if len(rec.data) < 6 {
		return xlsSheetRef{}, false, errTruncatedRecord
	}
	if rec.data[5] != 0 {
		return xlsSheetRef{}, false, nil
	}
	name, err := rec.shortString(6)
	if err != nil {
		return xlsSheetRef{}, false, err
	}
	return xlsSheetRef{name: name, offset: int(pos)}, true, nil
}

func (wb *xlsWorkbook) readSheet(ref xlsSheetRef) (*models.Grid, error) {
	recs, err := recordsFrom(wb.stream, ref.offset)
	if err != nil {
		return nil, err
	}
	if err := checkBOF(recs); err != nil {
		return nil, err
	}

	grid := &models.Grid{SheetName: ref.name, Date1904: wb.date1904}
	// A string-valued formula stores its result in the next STRING record
	pendingRow, pendingCol := -1, -1

	for _, rec := range recs[1:] {
		if cellRecords[rec.id] {
			pendingRow, pendingCol = -1, -1
		}
		switch rec.id {
		case recNumber:
			row, col, xf, err := rec.cellRef()
			if err != nil {
				return nil, err
			}
			n, err := rec.f64(6)
			if err != nil {
				return nil, err
			}
			setCell(grid, row, col, wb.numberCell(xf, n))
		case recRK:
			row, col, xf, err := rec.cellRef()
			if err != nil {
				return nil, err
			}
			v, err := rec.u32(6)
			if err != nil {
				return nil, err
			}
			setCell(grid, row, col, wb.numberCell(xf, decodeRK(v)))
		case recMulRK:
			if err := wb.mulRK(grid, rec); err != nil {
				return nil, err
			}
		case recLabelSST:
			row, col, _, err := rec.cellRef()
			if err != nil {
				return nil, err
			}
			idx, err := rec.u32(6)
			if err != nil {
				return nil, err
			}
			if int(idx) >= len(wb.sst) {
				return nil, fmt.Errorf("shared string %d out of range", idx)
			}
			setCell(grid, row, col, models.StringCell(strings.TrimSpace(wb.sst[idx])))
		case recLabel:
			row, col, _, err := rec.cellRef()
			if err != nil {
				return nil, err
			}
			s, err := rec.unicodeString(6)
			if err != nil {
				return nil, err
			}
			setCell(grid, row, col, models.StringCell(strings.TrimSpace(s)))
		case recBoolErr:
			row, col, _, err := rec.cellRef()
			if err != nil {
				return nil, err
			}
			if len(rec.data) < 8 {
				return nil, errTruncatedRecord
			}
			setCell(grid, row, col, boolErrCell(rec.data[6], rec.data[7] == 1))
		case recFormula:
			row, col, xf, err := rec.cellRef()
			if err != nil {
				return nil, err
			}
			cell, isString, err := wb.formulaCell(rec, xf)
			if err != nil {
				return nil, err
			}
			if isString {
				pendingRow, pendingCol = int(row), int(col)
				continue
			}
			setCell(grid, row, col, cell)
		case recString:
			if pendingRow < 0 {
				continue
			}
			s, err := rec.unicodeString(0)
			if err != nil {
				return nil, err
			}
			setCell(grid, uint16(pendingRow), uint16(pendingCol), models.StringCell(strings.TrimSpace(s)))
			pendingRow, pendingCol = -1, -1
		}
	}
	return grid, nil
}

func (wb *xlsWorkbook) mulRK(grid *models.Grid, rec record) error {
	row, err := rec.u16(0)
	if err != nil {
		return err
	}
	first, err := rec.u16(2)
	if err != nil {
		return err
	}
	// rw, colFirst, then 6-byte (xf, rk) pairs, then colLast
	n := (len(rec.data) - 6) / 6
	for i := 0; i < n; i++ {
		xf, err := rec.u16(4 + i*6)
		if err != nil {
			return err
		}
		v, err := rec.u32(6 + i*6)
		if err != nil {
			return err
		}
		setCell(grid, row, first+uint16(i), wb.numberCell(xf, decodeRK(v)))
	}
	return nil
}

// formulaCell types the cached result of a FORMULA record. isString reports
// that the value lives in the next STRING record.
func (wb *xlsWorkbook) formulaCell(rec record, xf uint16) (cell models.Cell, isString bool, err error) {
	if len(rec.data) < 14 {
		return models.Cell{}, false, errTruncatedRecord
	}
	if rec.data[12] != 0xFF || rec.data[13] != 0xFF {
		n, err := rec.f64(6)
		if err != nil {
			return models.Cell{}, false, err
		}
		return wb.numberCell(xf, n), false, nil
	}
	switch rec.data[6] {
	case 0:
		return models.Cell{}, true, nil
	case 1:
		return boolErrCell(rec.data[8], false), false, nil
	case 2:
		return boolErrCell(rec.data[8], true), false, nil
	default:
		return models.Cell{}, false, nil
	}
}

// numberCell types a numeric value using the number format of its XF.
func (wb *xlsWorkbook) numberCell(xf uint16, n float64) models.Cell {
	if wb.isDateXF(xf) {
		if t, ok := serialToTime(n, wb.date1904); ok {
			return models.DateCell(t)
		}
	}
	return models.NumberCell(n)
}

func (wb *xlsWorkbook) isDateXF(xf uint16) bool {
	if int(xf) >= len(wb.xfFormats) {
		return false
	}
	id := wb.xfFormats[xf]
	var custom *string
	if code, ok := wb.formats[id]; ok {
		custom = &code
	}
	return isDateNumFmt(int(id), custom)
}

// boolErrCell types the value byte of a BOOLERR record or a formula's cached result.
func boolErrCell(v byte, isErr bool) models.Cell {
	if !isErr {
		return boolCell(v != 0)
	}
	if s, ok := biffErrors[v]; ok {
		return models.StringCell(s)
	}
	return models.StringCell("#ERROR!")
}

func setCell(grid *models.Grid, row, col uint16, cell models.Cell) {
	r, c := int(row), int(col)
	for len(grid.Rows) <= r {
		grid.Rows = append(grid.Rows, nil)
	}
	if len(grid.Rows[r]) <= c {
		grown := make([]models.Cell, c+1)
		copy(grown, grid.Rows[r])
		grid.Rows[r] = grown
	}
	grid.Rows[r][c] = cell
}
