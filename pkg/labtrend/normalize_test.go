package labtrend

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/models"
	"github.com/xuri/excelize/v2"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return opts
}

func normalizeCSV(t *testing.T, csv string) *models.Result {
	t.Helper()
	result, err := Normalize([]byte(csv), DefaultCategoryTable(), quietOptions())
	require.NoError(t, err)
	return result
}

func metricByName(t *testing.T, result *models.Result, name string) models.Metric {
	t.Helper()
	for _, m := range result.Metrics {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("metric %q not found", name)
	return models.Metric{}
}

func TestNormalizeReverseChronologicalColumns(t *testing.T) {
	result := normalizeCSV(t, strings.Join([]string{
		"Parameter,Unit,2021-03-01,2021-02-01,2021-01-01",
		"Glucose,mg/dL,110,100,90",
		"Hemoglobin,g/dL,13.5,13.1,12.8",
	}, "\n"))

	require.Len(t, result.DataPoints, 3)
	assert.Equal(t, day(2021, time.January, 1), result.DataPoints[0].Date)
	assert.Equal(t, day(2021, time.February, 1), result.DataPoints[1].Date)
	assert.Equal(t, day(2021, time.March, 1), result.DataPoints[2].Date)

	v, ok := result.DataPoints[0].Value("Glucose")
	require.True(t, ok)
	assert.Equal(t, 90.0, v)

	glucose := metricByName(t, result, "Glucose")
	assert.Equal(t, "110.0", glucose.Value)
	assert.Equal(t, 10.0, glucose.Trend)
	assert.Equal(t, "mg/dL", glucose.Unit)
	assert.Equal(t, "Diabetes", glucose.Category)
	assert.Equal(t, 3, glucose.Count)
	require.NotNil(t, glucose.LatestDate)
	assert.Equal(t, day(2021, time.March, 1), *glucose.LatestDate)

	hb := metricByName(t, result, "Hemoglobin")
	assert.Equal(t, "13.5", hb.Value)
	assert.InDelta(t, 0.4, hb.Trend, 1e-9)

	assert.Equal(t, []string{"Glucose", "Hemoglobin"}, result.ParameterNames)
}

func TestNormalizeDataPointsSortedAndDistinct(t *testing.T) {
	result := normalizeCSV(t, strings.Join([]string{
		"Parameter,Unit,2021-02-01,2020-06-15,2021-02-01,2020-12-31",
		"TSH,mIU/L,2.1,1.9,9.9,2.0",
	}, "\n"))

	require.Len(t, result.DataPoints, 3)
	assert.True(t, sort.SliceIsSorted(result.DataPoints, func(i, j int) bool {
		return result.DataPoints[i].Date.Before(result.DataPoints[j].Date)
	}))
	seen := make(map[time.Time]bool)
	for _, dp := range result.DataPoints {
		assert.False(t, seen[dp.Date], "duplicate date %s", dp.Date)
		seen[dp.Date] = true
	}

	// The first column carrying a date wins over a later duplicate
	v, _ := result.DataPoints[2].Value("TSH")
	assert.Equal(t, 2.1, v)
}

func TestNormalizeRowClassification(t *testing.T) {
	result := normalizeCSV(t, strings.Join([]string{
		"Parameter,Unit,2021-01-01,2021-02-01",
		"Lipid Panel (Fasting),,,",
		"Total Cholesterol,mg/dL,190,185",
		"Unit,mg/dL,1,2",
		",,5,6",
		"Liver Function Tests (LFT),,,",
		"ALT,U/L,30,28",
	}, "\n"))

	assert.Equal(t, []string{"Total Cholesterol", "ALT"}, result.ParameterNames)
	assert.NotContains(t, result.ParameterNames, "Lipid Panel (Fasting)")
	assert.Equal(t, "Lipid Profile", metricByName(t, result, "Total Cholesterol").Category)
	assert.Equal(t, "Liver Function", metricByName(t, result, "ALT").Category)
}

func TestNormalizeRepairsCorruptedDay(t *testing.T) {
	result := normalizeCSV(t, strings.Join([]string{
		"Parameter,Unit,36/5/2019,2019-06-10",
		"Ferritin,ng/mL,80,95",
	}, "\n"))

	require.Len(t, result.DataPoints, 2)
	assert.Equal(t, day(2019, time.May, 1), result.DataPoints[0].Date)
	v, ok := result.DataPoints[0].Value("Ferritin")
	require.True(t, ok)
	assert.Equal(t, 80.0, v)
}

func TestNormalizeSkipsBadCells(t *testing.T) {
	result := normalizeCSV(t, strings.Join([]string{
		"Parameter,Unit,2021-01-01,2021-02-01,2021-03-01,2021-04-01",
		`Creatinine,mg/dL,0.9,,pending,1.1`,
		"Vitamin D,ng/mL,,,,",
		"Sodium,mmol/L,140,,,",
	}, "\n"))

	creat := metricByName(t, result, "Creatinine")
	assert.Equal(t, 2, creat.Count)
	assert.Equal(t, "1.1", creat.Value)
	assert.InDelta(t, 0.2, creat.Trend, 1e-9)

	_, ok := result.DataPoints[1].Value("Creatinine")
	assert.False(t, ok)
	_, ok = result.DataPoints[2].Value("Creatinine")
	assert.False(t, ok)

	vitD := metricByName(t, result, "Vitamin D")
	assert.Equal(t, models.NotAvailable, vitD.Value)
	assert.Equal(t, 0.0, vitD.Trend)
	assert.Nil(t, vitD.LatestDate)
	assert.Contains(t, result.ParameterNames, "Vitamin D")
	for _, dp := range result.DataPoints {
		_, ok := dp.Value("Vitamin D")
		assert.False(t, ok)
	}

	sodium := metricByName(t, result, "Sodium")
	assert.Equal(t, "140.0", sodium.Value)
	assert.Equal(t, 0.0, sodium.Trend)
}

func TestNormalizeValueIsNotAvailableIffNoReadings(t *testing.T) {
	result := normalizeCSV(t, strings.Join([]string{
		"Parameter,Unit,2021-01-01,2021-02-01",
		"A,,1,",
		"B,,,",
		"C,,x,y",
		"D,,0,0",
	}, "\n"))

	for _, m := range result.Metrics {
		assert.Equal(t, m.Count == 0, m.Value == models.NotAvailable, m.Name)
		if m.Count < 2 {
			assert.Equal(t, 0.0, m.Trend, m.Name)
		}
	}
	assert.Equal(t, "0.0", metricByName(t, result, "D").Value)
}

func TestNormalizeMergesDuplicateParameters(t *testing.T) {
	result := normalizeCSV(t, strings.Join([]string{
		"Parameter,Unit,2021-01-01,2021-02-01,2021-03-01",
		"Glucose,mg/dL,90,,110",
		"Glucose,,,100,",
	}, "\n"))

	assert.Equal(t, []string{"Glucose"}, result.ParameterNames)
	require.Len(t, result.Metrics, 1)

	glucose := result.Metrics[0]
	assert.Equal(t, 3, glucose.Count)
	assert.Equal(t, "110.0", glucose.Value)
	assert.Equal(t, 10.0, glucose.Trend)
	assert.Equal(t, "mg/dL", glucose.Unit)

	for i, want := range []float64{90, 100, 110} {
		v, ok := result.DataPoints[i].Value("Glucose")
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
}

func TestExtractParametersKeepsChronologicalOrder(t *testing.T) {
	opts := quietOptions()
	buf := []byte(strings.Join([]string{
		"Parameter,Unit,2021-03-01,2021-01-01,2021-02-01",
		"Glucose,mg/dL,,90,",
		"Glucose,mg/dL,110,,100",
		"Glucose,mg/dL,,95,",
	}, "\n"))

	result, err := Normalize(buf, CategoryTable{}, opts)
	require.NoError(t, err)

	glucose := result.Metrics[0]
	assert.Equal(t, 3, glucose.Count)
	assert.Equal(t, 10.0, glucose.Trend)
	// A later row replaces the reading for the same date
	v, _ := result.DataPoints[0].Value("Glucose")
	assert.Equal(t, 95.0, v)

	s := newSeries("Glucose", "", DefaultCategory)
	s.add(day(2021, time.March, 1), 3)
	s.add(day(2021, time.January, 1), 1)
	s.add(day(2021, time.February, 1), 2)
	obs := s.observations()
	require.Len(t, obs, 3)
	for i := 1; i < len(obs); i++ {
		assert.False(t, obs[i].Date.Before(obs[i-1].Date))
	}
	assert.Equal(t, []float64{1, 2, 3}, []float64{obs[0].Value, obs[1].Value, obs[2].Value})
}

func TestNormalizeUnknownCategory(t *testing.T) {
	result := normalizeCSV(t, "Parameter,Unit,2021-01-01\nMystery Marker,,4.2\n")
	assert.Equal(t, DefaultCategory, result.Metrics[0].Category)
}

func TestNormalizeValueFormat(t *testing.T) {
	csv := "Parameter,Unit,2021-01-01\nPlatelets,10^3/uL,250\nTSH,mIU/L,2.456\n"

	fixed := normalizeCSV(t, csv)
	assert.Equal(t, "250.0", fixed.Metrics[0].Value)
	assert.Equal(t, "2.5", fixed.Metrics[1].Value)

	opts := quietOptions()
	opts.ValueFormat = ValueRaw
	raw, err := Normalize([]byte(csv), DefaultCategoryTable(), opts)
	require.NoError(t, err)
	assert.Equal(t, "250", raw.Metrics[0].Value)
	assert.Equal(t, "2.456", raw.Metrics[1].Value)
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		opts     func(*Options)
		sentinel error
	}{
		{"header only", []byte("Parameter,Unit,Comments\n"), nil, ErrNoDateColumns},
		{"no dates", []byte("Parameter,Unit,Remarks\nGlucose,mg/dL,5\n"), nil, ErrNoDateColumns},
		{"no parameters", []byte("Parameter,Unit,2021-01-01\nLipids (Fasting),,\n"), nil, ErrNoParameters},
		{"blank parameter column", []byte(",Unit,2021-01-01,2021-02-01\n,mg/dL,5,6"), nil, ErrNoParameters},
		{"empty", nil, nil, ErrUndecodable},
		{"binary", []byte{0x00, 0xFF, 0x13, 0x80}, nil, ErrUndecodable},
		{"broken workbook", []byte("PK\x03\x04broken"), nil, ErrUndecodable},
		{"bad area", []byte("Parameter,Unit,2021-01-01\nA,,1\n"), func(o *Options) { o.Area = "nope" }, ErrUndecodable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := Normalize(tt.input, DefaultCategoryTable(), opts)
			require.Error(t, err)

			var malformed *MalformedInputError
			require.True(t, errors.As(err, &malformed))
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestNormalizeLogsSkippedColumns(t *testing.T) {
	var logs bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Normalize([]byte("Parameter,Unit,2021-01-01,Comments\nGlucose,mg/dL,90,fine\n"), CategoryTable{}, opts)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "unparseable date header")
	assert.Contains(t, logs.String(), "column=3")
	assert.Contains(t, logs.String(), "raw=Comments")
}

func TestNormalizeSkipsReservedDateName(t *testing.T) {
	var logs bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	result, err := Normalize([]byte("Parameter,Unit,2021-01-01\ndate,,7\nGlucose,mg/dL,90\n"), CategoryTable{}, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Glucose"}, result.ParameterNames)
	require.Len(t, result.DataPoints, 1)
	_, ok := result.DataPoints[0].Value("date")
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "collides with the date key")

	data, err := json.Marshal(result.DataPoints[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2021-01-01T00:00:00Z","Glucose":90}`, string(data))
}

func TestNormalizeWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Results")
	require.NoError(t, err)
	rows := [][]interface{}{
		{"Test", "Unit", day(2022, time.March, 1), day(2022, time.January, 1), "2022-02-01"},
		{"Liver Function Tests (LFT)"},
		{"AST", "U/L", 31, 22, "27"},
		{"GGT", "U/L", "", "n/a", 40.5},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Results", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	opts := quietOptions()
	opts.Sheet = "Results"
	result, err := Normalize(buf.Bytes(), DefaultCategoryTable(), opts)
	require.NoError(t, err)

	require.Len(t, result.DataPoints, 3)
	assert.Equal(t, "2022-01-01", result.DataPoints[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2022-02-01", result.DataPoints[1].Date.Format("2006-01-02"))
	assert.Equal(t, "2022-03-01", result.DataPoints[2].Date.Format("2006-01-02"))

	assert.Equal(t, []string{"AST", "GGT"}, result.ParameterNames)
	ast := metricByName(t, result, "AST")
	assert.Equal(t, "31.0", ast.Value)
	assert.Equal(t, 4.0, ast.Trend)
	assert.Equal(t, "Liver Function", ast.Category)

	ggt := metricByName(t, result, "GGT")
	assert.Equal(t, 1, ggt.Count)
	assert.Equal(t, "40.5", ggt.Value)

	opts.Sheet = "Missing"
	_, err = Normalize(buf.Bytes(), DefaultCategoryTable(), opts)
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestNormalizeWorkbookBooleans(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	for cell, v := range map[string]interface{}{
		"A1": "Parameter", "B1": "Unit", "C1": "2021-01-01", "D1": "2021-02-01",
		"A2": "Glucose", "B2": "mg/dL", "C2": true, "D2": 90,
	} {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := Normalize(buf.Bytes(), DefaultCategoryTable(), quietOptions())
	require.NoError(t, err)

	glucose := metricByName(t, result, "Glucose")
	assert.Equal(t, 1, glucose.Count)
	assert.Equal(t, "90.0", glucose.Value)
	_, ok := result.DataPoints[0].Value("Glucose")
	assert.False(t, ok)
}

func TestNormalizeLegacyWorkbook(t *testing.T) {
	buf, err := os.ReadFile(filepath.Join("parser", "testdata", "results.xls"))
	require.NoError(t, err)

	result, err := Normalize(buf, DefaultCategoryTable(), quietOptions())
	require.NoError(t, err)

	require.Len(t, result.DataPoints, 3)
	assert.Equal(t, day(2021, time.January, 1), result.DataPoints[0].Date)
	assert.Equal(t, day(2021, time.February, 1), result.DataPoints[1].Date)
	assert.Equal(t, day(2021, time.March, 1), result.DataPoints[2].Date)
	assert.Equal(t, []string{"Glucose", "Cholesterol", "γ-GTP", "memo"}, result.ParameterNames)

	glucose := metricByName(t, result, "Glucose")
	assert.Equal(t, 3, glucose.Count)
	assert.Equal(t, "6.1", glucose.Value)
	v, ok := result.DataPoints[1].Value("Glucose")
	require.True(t, ok)
	assert.Equal(t, 5.65, v)

	// Boolean and error cells are not readings
	cholesterol := metricByName(t, result, "Cholesterol")
	assert.Equal(t, 2, cholesterol.Count)
	assert.Equal(t, "175.5", cholesterol.Value)
	require.NotNil(t, cholesterol.LatestDate)
	assert.Equal(t, day(2021, time.February, 1), *cholesterol.LatestDate)

	gtp := metricByName(t, result, "γ-GTP")
	assert.Equal(t, 2, gtp.Count)
	assert.Equal(t, "41.0", gtp.Value)
}

func TestNormalizeArea(t *testing.T) {
	csv := strings.Join([]string{
		"Patient: J. Doe,,,",
		",,,",
		"Parameter,Unit,2021-01-01,2021-02-01",
		"Iron,ug/dL,60,75",
	}, "\n")

	opts := quietOptions()
	opts.Area = "A3:D4"
	result, err := Normalize([]byte(csv), DefaultCategoryTable(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Iron"}, result.ParameterNames)
	assert.Equal(t, 15.0, result.Metrics[0].Trend)
}

func TestNormalizeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("Parameter,Unit,2021-01-01\nTSH,mIU/L,1.5\n"), 0644))

	result, err := NormalizeFile(path, DefaultCategoryTable(), quietOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"TSH"}, result.ParameterNames)

	_, err = NormalizeFile(filepath.Join(dir, "missing.csv"), DefaultCategoryTable(), quietOptions())
	assert.ErrorIs(t, err, ErrFileNotFound)
}
