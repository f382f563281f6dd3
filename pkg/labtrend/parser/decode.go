// Package parser decodes spreadsheet buffers into typed cell grids.
package parser

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/richardlehane/mscfb"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
)

// Format is a supported spreadsheet interchange format.
type Format string

const (
	// FormatAuto detects the format from the buffer contents.
	FormatAuto Format = ""
	// FormatXLSX is an OOXML workbook (including encrypted OOXML packages).
	FormatXLSX Format = "xlsx"
	// FormatXLS is a legacy BIFF workbook.
	FormatXLS Format = "xls"
	// FormatCSV is delimited text.
	FormatCSV Format = "csv"
)

// ErrEmptyInput indicates a zero-length buffer.
var ErrEmptyInput = errors.New("empty input")

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// Format forces a format; FormatAuto sniffs it.
	Format Format
	// Sheet selects a sheet by name; empty means the first sheet.
	Sheet string
	// Delimiter is the field separator for delimited text; 0 auto-detects.
	Delimiter rune
	// Password opens encrypted OOXML workbooks.
	Password string
}

// Decode turns a spreadsheet buffer into a grid of typed cells.
func Decode(buf []byte, opts DecodeOptions) (*models.Grid, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyInput
	}

	format := opts.Format
	if format == FormatAuto {
		format = Sniff(buf)
	}

	switch format {
	case FormatXLSX:
		return decodeXLSX(buf, opts)
	case FormatXLS:
		return decodeXLS(buf, opts)
	case FormatCSV:
		return decodeCSV(buf, opts)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Sniff detects the format of a buffer from its leading bytes.
func Sniff(buf []byte) Format {
	switch {
	case bytes.HasPrefix(buf, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(buf, cfbMagic):
		if isEncryptedPackage(buf) {
			return FormatXLSX
		}
		return FormatXLS
	default:
		return FormatCSV
	}
}

// isEncryptedPackage reports whether a compound file wraps an encrypted OOXML package.
func isEncryptedPackage(buf []byte) bool {
	doc, err := mscfb.New(bytes.NewReader(buf))
	if err != nil {
		return false
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "EncryptedPackage" {
			return true
		}
	}
	return false
}

// pickSheet returns the requested sheet name, or the first one when name is empty.
func pickSheet(sheets []string, name string) (string, error) {
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found", name)
}
