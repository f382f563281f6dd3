package models

import (
	"encoding/json"
	"time"
)

// DateKey is the JSON key holding a data point's date. No parameter may use it.
const DateKey = "date"

// DataPoint is one wide-format row: a date plus every parameter value recorded for it.
// Parameters without a reading for the date have no key in Values.
type DataPoint struct {
	Date   time.Time
	Values map[string]float64
}

// Value returns the reading for name and whether one exists.
func (d DataPoint) Value(name string) (float64, bool) {
	v, ok := d.Values[name]
	return v, ok
}

// MarshalJSON flattens the point into {"date": ..., "<parameter>": value, ...}.
func (d DataPoint) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(d.Values)+1)
	for name, v := range d.Values {
		m[name] = v
	}
	m[DateKey] = d.Date.Format(time.RFC3339)
	return json.Marshal(m)
}
