// Package output serializes normalization results.
package output

import (
	"encoding/json"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
)

// ToJSON serializes a full result.
func ToJSON(result *models.Result, pretty bool) ([]byte, error) {
	return marshal(result, pretty)
}

// MetricsToJSON serializes only the metric list.
func MetricsToJSON(metrics []models.Metric, pretty bool) ([]byte, error) {
	if metrics == nil {
		metrics = []models.Metric{}
	}
	return marshal(metrics, pretty)
}

func marshal(v interface{}, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
