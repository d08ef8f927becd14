// Package config builds component configurations from CLI inputs.
package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"finops-reconciliation-pipeline/internal/engine"
	"finops-reconciliation-pipeline/internal/loaders"
	"finops-reconciliation-pipeline/internal/reporter"
)

// CreateParseConfig creates the CSV parse configuration used for all
// input files
func CreateParseConfig() *loaders.ParseConfig {
	config := loaders.DefaultParseConfig()

	config.HasHeader = true
	config.Delimiter = ','
	config.SkipEmptyRows = true

	return config
}

// CreateEngineConfig creates an engine configuration with the specified
// tolerances
func CreateEngineConfig(amountTolerance float64, timingToleranceDays int) *engine.Config {
	config := engine.DefaultConfig()

	// Apply CLI overrides
	config.ToleranceAmount = decimal.NewFromFloat(amountTolerance)
	config.TimingToleranceDays = timingToleranceDays

	return config
}

// CreateReportConfig creates a report configuration for the specified
// output format and match filter
func CreateReportConfig(format, matchFilter string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
		config.IncludeSummary = true
		config.IncludeMatches = true
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludeSummary = true
		config.IncludeMatches = true
		config.PrettyJSON = true
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeSummary = false // CSV is match rows only
		config.IncludeMatches = true
	}

	if matchFilter != "" {
		config.MatchFilter = reporter.MatchFilter(matchFilter)
	}

	return config
}

// ValidateConfigs validates that the assembled configurations are usable
func ValidateConfigs(engineConfig *engine.Config, reportConfig *reporter.ReportConfig) error {
	if err := engineConfig.Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}

	if err := reportConfig.Validate(); err != nil {
		return fmt.Errorf("invalid report config: %w", err)
	}

	return nil
}
