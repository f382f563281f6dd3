package models

import "time"

// NotAvailable is the Metric.Value of a parameter with no readings.
const NotAvailable = "N/A"

// Metric summarizes one parameter for display.
type Metric struct {
	// Name is the parameter name.
	Name string `json:"name"`
	// Value is the latest reading formatted for display, or NotAvailable.
	Value string `json:"value"`
	// Unit is the unit column text, possibly empty.
	Unit string `json:"unit"`
	// Trend is latest minus second-latest reading, 0 with fewer than two readings.
	Trend float64 `json:"trend"`
	// Category is the resolved category name.
	Category string `json:"category"`
	// LatestDate is the date of the latest reading (nil when there is none).
	LatestDate *time.Time `json:"latest_date,omitempty"`
	// Count is the number of readings.
	Count int `json:"count"`
	// Status is left for consumers that grade readings against reference ranges.
	Status ValueStatus `json:"status,omitempty"`
}
