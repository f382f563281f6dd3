package labtrend

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/parser"
)

// Normalize converts a spreadsheet export of lab results into date-keyed data points,
// per-parameter metrics and the parameter names in encounter order.
//
// Row 0 of the sheet is the header, column 0 holds parameter names, column 1 units
// and columns from 2 on hold dated readings. Bad date headers, non-numeric readings and
// repeated parameter names are recovered from and logged; undecodable input, or input
// without date columns or parameters, fails with *MalformedInputError.
func Normalize(buf []byte, table CategoryTable, opts Options) (*models.Result, error) {
	logger := opts.logger()

	grid, err := parser.Decode(buf, opts.decodeOptions())
	if err != nil {
		return nil, NewMalformedInputError("decode spreadsheet", ErrUndecodable, err)
	}

	if opts.Area != "" {
		area, err := parser.ParseArea(opts.Area)
		if err != nil {
			return nil, NewMalformedInputError("apply area", ErrUndecodable, err)
		}
		grid = parser.Crop(grid, area)
	}
	grid = parser.TrimToData(grid)

	logger.Debug("Decoded sheet",
		slog.String("sheet_name", grid.SheetName),
		slog.Int("total_rows", grid.NumRows()))

	columns := discoverDateColumns(grid, logger)
	if len(columns) == 0 {
		return nil, NewMalformedInputError("header row", ErrNoDateColumns, nil)
	}

	params := extractParameters(grid, columns, table, logger)
	if len(params) == 0 {
		return nil, NewMalformedInputError("body rows", ErrNoParameters, nil)
	}

	result := &models.Result{
		DataPoints:     buildDataPoints(columns, params),
		Metrics:        buildMetrics(params, opts.valueFormat()),
		ParameterNames: make([]string, len(params)),
	}
	for i, p := range params {
		result.ParameterNames[i] = p.name
	}

	logger.Info("Normalized lab results",
		slog.Int("date_columns", len(columns)),
		slog.Int("parameters", len(params)))

	return result, nil
}

// NormalizeFile reads path and normalizes its contents.
func NormalizeFile(path string, table CategoryTable, opts Options) (*models.Result, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Normalize(buf, table, opts)
}
