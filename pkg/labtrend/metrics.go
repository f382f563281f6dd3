package labtrend

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
)

// buildDataPoints joins every series back onto the sorted date axis.
func buildDataPoints(columns []models.DateColumn, params []*series) []models.DataPoint {
	points := make([]models.DataPoint, 0, len(columns))
	for _, col := range columns {
		dp := models.DataPoint{
			Date:   col.Date,
			Values: make(map[string]float64),
		}
		for _, s := range params {
			if v, ok := s.valueAt(col.Date); ok {
				dp.Values[s.name] = v
			}
		}
		points = append(points, dp)
	}
	return points
}

// buildMetrics summarizes each series: latest reading, trend against the one before it.
func buildMetrics(params []*series, format ValueFormat) []models.Metric {
	metrics := make([]models.Metric, 0, len(params))
	for _, s := range params {
		obs := s.observations()
		m := models.Metric{
			Name:     s.name,
			Value:    models.NotAvailable,
			Unit:     s.unit,
			Category: s.category,
			Count:    len(obs),
		}

		if n := len(obs); n > 0 {
			latest := obs[n-1]
			m.Value = formatValue(latest.Value, format)
			date := latest.Date
			m.LatestDate = &date
			if n > 1 {
				m.Trend = trend(latest.Value, obs[n-2].Value)
			}
		}
		metrics = append(metrics, m)
	}
	return metrics
}

// trend subtracts in decimal so 5.3-5.1 yields 0.2 rather than 0.19999999999999929.
func trend(latest, previous float64) float64 {
	return decimal.NewFromFloat(latest).Sub(decimal.NewFromFloat(previous)).InexactFloat64()
}

func formatValue(v float64, format ValueFormat) string {
	if format == ValueRaw {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(1)
}
