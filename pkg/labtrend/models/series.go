package models

import "time"

// DateColumn is a sheet column whose header parsed as an observation date.
type DateColumn struct {
	// Index is the 0-based column index in the grid.
	Index int
	// Date is the parsed header date.
	Date time.Time
}

// Observation is one numeric reading of a parameter.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
