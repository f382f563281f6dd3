// Package main provides the CLI entry point for labtrend.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/ukaji3/labtrend-go/internal/config"
	"github.com/ukaji3/labtrend-go/internal/logging"
	"github.com/ukaji3/labtrend-go/pkg/labtrend"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/output"
	"github.com/ukaji3/labtrend-go/pkg/labtrend/parser"
)

var (
	outputPath     string
	pretty         bool
	metricsOnly    bool
	format         string
	sheet          string
	area           string
	categoriesFile string
	valueFormat    string
	logLevel       string
	password       string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "labtrend [input.xlsx|input.xls|input.csv]",
		Short: "Normalize blood-test spreadsheets into time series",
		Long: `labtrend reads a spreadsheet of blood-test results (one row per parameter,
one column per test date) and outputs chart-ready data points and per-parameter
metrics as JSON.`,
		Args:         cobra.ExactArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	rootCmd.Flags().BoolVar(&metricsOnly, "metrics-only", false, "Output only the metrics list")
	rootCmd.Flags().StringVar(&format, "format", "", "Input format: xlsx, xls, csv (default: detect)")
	rootCmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (default: first sheet)")
	rootCmd.Flags().StringVar(&area, "area", "", "Restrict to a cell range, e.g. A1:H40")
	rootCmd.Flags().StringVar(&categoriesFile, "categories", "", "YAML category table (default: built-in)")
	rootCmd.Flags().StringVar(&valueFormat, "value-format", "", "Metric value rendering: fixed, raw")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&password, "password", "", "Password for an encrypted xlsx workbook")

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).
		With(slog.String("run_id", uuid.NewString()))

	// Validate input file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	var inputFormat parser.Format
	switch format {
	case "":
		inputFormat = parser.FormatAuto
	case "xlsx":
		inputFormat = parser.FormatXLSX
	case "xls":
		inputFormat = parser.FormatXLS
	case "csv":
		inputFormat = parser.FormatCSV
	default:
		return fmt.Errorf("invalid format: %s (must be xlsx, xls, or csv)", format)
	}

	table, err := loadCategories(cfg.CategoriesFile)
	if err != nil {
		return err
	}

	opts := labtrend.Options{
		Format:      inputFormat,
		Sheet:       cfg.Sheet,
		Area:        area,
		Delimiter:   cfg.DelimiterRune(),
		Password:    cfg.Password,
		ValueFormat: labtrend.ValueFormat(cfg.ValueFormat),
		Logger:      logger,
	}

	result, err := labtrend.NormalizeFile(inputPath, table, opts)
	if err != nil {
		logger.Error("Normalization failed", slog.String("input", inputPath), slog.String("error", err.Error()))
		return fmt.Errorf("normalization failed: %w", err)
	}

	// Serialize to JSON
	var jsonData []byte
	if metricsOnly {
		jsonData, err = output.MetricsToJSON(result.Metrics, pretty)
	} else {
		jsonData, err = output.ToJSON(result, pretty)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	// Write output
	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return nil
}

// applyFlags lets explicitly set flags override environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("sheet") {
		cfg.Sheet = sheet
	}
	if cmd.Flags().Changed("categories") {
		cfg.CategoriesFile = categoriesFile
	}
	if cmd.Flags().Changed("value-format") {
		cfg.ValueFormat = valueFormat
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("password") {
		cfg.Password = password
	}
}

func loadCategories(path string) (labtrend.CategoryTable, error) {
	if path == "" {
		return labtrend.DefaultCategoryTable(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return labtrend.CategoryTable{}, fmt.Errorf("failed to open category table: %w", err)
	}
	defer f.Close()

	return labtrend.LoadCategoryTable(f)
}
