package models

// ValueStatus grades a reading against a reference range.
type ValueStatus string

const (
	// StatusNormal marks a reading inside the reference range.
	StatusNormal ValueStatus = "normal"
	// StatusLow marks a reading below the lower reference bound.
	StatusLow ValueStatus = "low"
	// StatusHigh marks a reading above the upper reference bound.
	StatusHigh ValueStatus = "high"
)
