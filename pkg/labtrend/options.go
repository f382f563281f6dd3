// Package labtrend normalizes blood-test spreadsheets into per-parameter time series.
package labtrend

import (
	"log/slog"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/parser"
)

// ValueFormat selects how Metric.Value renders the latest reading.
type ValueFormat string

const (
	// ValueFixed renders one decimal place, rounding half away from zero.
	ValueFixed ValueFormat = "fixed"
	// ValueRaw renders the shortest representation of the reading.
	ValueRaw ValueFormat = "raw"
)

// Options configures normalization.
type Options struct {
	// Format forces the input format; empty sniffs it from the buffer.
	Format parser.Format
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
	// Area restricts normalization to a range such as A1:H40.
	Area string
	// Delimiter is the separator for delimited text; 0 auto-detects.
	Delimiter rune
	// Password opens encrypted xlsx workbooks. Encrypted xls workbooks are rejected.
	Password string
	// ValueFormat selects metric value rendering. Empty means ValueFixed.
	ValueFormat ValueFormat
	// Logger receives recoverable anomalies. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns default normalization options.
func DefaultOptions() Options {
	return Options{
		ValueFormat: ValueFixed,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) valueFormat() ValueFormat {
	if o.ValueFormat == "" {
		return ValueFixed
	}
	return o.ValueFormat
}

func (o Options) decodeOptions() parser.DecodeOptions {
	return parser.DecodeOptions{
		Format:    o.Format,
		Sheet:     o.Sheet,
		Delimiter: o.Delimiter,
		Password:  o.Password,
	}
}
