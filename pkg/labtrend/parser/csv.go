package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"unicode/utf8"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNotText indicates a buffer that is neither a workbook nor readable text.
var ErrNotText = errors.New("input is not delimited text")

func decodeCSV(buf []byte, opts DecodeOptions) (*models.Grid, error) {
	text, err := decodeText(buf)
	if err != nil {
		return nil, err
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(text)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	grid := &models.Grid{Rows: make([][]models.Cell, len(records))}
	for rowIdx, record := range records {
		cells := make([]models.Cell, len(record))
		for colIdx, value := range record {
			cells[colIdx] = classifyText(value)
		}
		grid.Rows[rowIdx] = cells
	}
	return grid, nil
}

// decodeText converts UTF-8 (with or without BOM) and BOM-marked UTF-16 to plain UTF-8.
func decodeText(buf []byte) ([]byte, error) {
	if !hasUTF16BOM(buf) && !utf8.Valid(buf) {
		return nil, ErrNotText
	}
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), buf)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(text, 0) >= 0 {
		return nil, ErrNotText
	}
	return text, nil
}

func hasUTF16BOM(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte{0xFF, 0xFE}) || bytes.HasPrefix(buf, []byte{0xFE, 0xFF})
}

// sniffDelimiter picks the most frequent of ',', ';' and '\t' on the first line.
func sniffDelimiter(text []byte) rune {
	line := text
	if idx := bytes.IndexByte(text, '\n'); idx >= 0 {
		line = text[:idx]
	}

	best, bestCount := ',', 0
	for _, sep := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(sep))); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}
