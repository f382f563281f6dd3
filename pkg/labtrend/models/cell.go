// Package models defines data structures for lab-result normalization.
package models

import (
	"strconv"
	"time"
)

// CellKind identifies which field of a Cell carries its value.
type CellKind int

const (
	// CellEmpty is a blank or absent cell.
	CellEmpty CellKind = iota
	// CellString is a text cell.
	CellString
	// CellNumber is a numeric cell.
	CellNumber
	// CellDate is a cell the decoder recognized as a native date.
	CellDate
)

// String returns the kind name.
func (k CellKind) String() string {
	switch k {
	case CellString:
		return "string"
	case CellNumber:
		return "number"
	case CellDate:
		return "date"
	default:
		return "empty"
	}
}

// Cell is a single decoded spreadsheet value.
type Cell struct {
	// Kind selects the populated field.
	Kind CellKind
	// Text holds the value of a CellString.
	Text string
	// Number holds the value of a CellNumber.
	Number float64
	// Time holds the value of a CellDate.
	Time time.Time
}

// StringCell returns a CellString, or an empty cell for "".
func StringCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellString, Text: s}
}

// NumberCell returns a CellNumber.
func NumberCell(n float64) Cell {
	return Cell{Kind: CellNumber, Number: n}
}

// DateCell returns a CellDate.
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t}
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String renders the cell as text, the way it is used for names and units.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Time.Format(time.RFC3339)
	default:
		return ""
	}
}
