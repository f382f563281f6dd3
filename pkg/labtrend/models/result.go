package models

// Result is the normalized view of one spreadsheet upload.
type Result struct {
	// DataPoints holds one entry per distinct date, ascending.
	DataPoints []DataPoint `json:"dataPoints"`
	// Metrics holds one entry per parameter in first-encounter order.
	Metrics []Metric `json:"metrics"`
	// ParameterNames lists parameters in first-encounter order.
	ParameterNames []string `json:"parameterNames"`
}
