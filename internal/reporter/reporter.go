// Package reporter renders reconciliation results in console, JSON, and
// CSV formats.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/errors"
	"finops-reconciliation-pipeline/pkg/logger"
)

// Format identifies a report output format
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// MatchFilter restricts which match records appear in CSV output
type MatchFilter string

const (
	FilterAll        MatchFilter = "all"
	FilterMatched    MatchFilter = "matched"
	FilterExceptions MatchFilter = "exceptions"
)

// IsValid checks if the filter is supported
func (mf MatchFilter) IsValid() bool {
	switch mf {
	case FilterAll, FilterMatched, FilterExceptions:
		return true
	}
	return false
}

// ReportConfig holds configuration for report generation
type ReportConfig struct {
	Format         Format
	IncludeMatches bool
	IncludeSummary bool
	MatchFilter    MatchFilter
	CSVDelimiter   rune
	CSVHeaders     bool
	PrettyJSON     bool
}

// DefaultReportConfig returns a configuration with sensible defaults
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeMatches: true,
		IncludeSummary: true,
		MatchFilter:    FilterAll,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
		PrettyJSON:     true,
	}
}

// Validate checks the report configuration for errors
func (rc *ReportConfig) Validate() error {
	if !rc.Format.IsValid() {
		return errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_format",
			string(rc.Format),
			fmt.Errorf("supported formats: console, json, csv"),
		)
	}

	// An unset filter means no filtering
	if rc.MatchFilter != "" && !rc.MatchFilter.IsValid() {
		return errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"match_filter",
			string(rc.MatchFilter),
			fmt.Errorf("supported filters: all, matched, exceptions"),
		)
	}

	return nil
}

// ReportGenerator renders reconciliation results
type ReportGenerator struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReportGenerator creates a generator with the given configuration.
// A nil config uses the defaults.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ReportGenerator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reporter"),
	}, nil
}

// jsonReport is the envelope written for JSON output
type jsonReport struct {
	RunID       string                        `json:"run_id"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Summary     *models.ReconciliationSummary `json:"summary,omitempty"`
	Matches     []*models.ReconciliationMatch `json:"matches,omitempty"`
}

// GenerateReport writes the reconciliation results to the given writer in
// the configured format
func (rg *ReportGenerator) GenerateReport(matches []*models.ReconciliationMatch, summary *models.ReconciliationSummary, writer io.Writer) error {
	rg.logger.WithFields(logger.Fields{
		"format":  string(rg.config.Format),
		"matches": len(matches),
	}).Debug("Generating report")

	switch rg.config.Format {
	case FormatJSON:
		return rg.generateJSON(matches, summary, writer)
	case FormatCSV:
		return rg.generateCSV(matches, writer)
	default:
		return rg.generateConsole(matches, summary, writer)
	}
}

func (rg *ReportGenerator) generateJSON(matches []*models.ReconciliationMatch, summary *models.ReconciliationSummary, writer io.Writer) error {
	report := &jsonReport{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	if rg.config.IncludeSummary {
		report.Summary = summary
	}
	if rg.config.IncludeMatches {
		report.Matches = matches
	}

	encoder := json.NewEncoder(writer)
	if rg.config.PrettyJSON {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(report); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "json_report", err)
	}

	return nil
}

// filterMatches applies the configured match filter. Exception-only output
// is sorted by exception type, then by difference largest first, for easier
// review; the other filters preserve input order.
func (rg *ReportGenerator) filterMatches(matches []*models.ReconciliationMatch) []*models.ReconciliationMatch {
	switch rg.config.MatchFilter {
	case FilterMatched:
		filtered := make([]*models.ReconciliationMatch, 0, len(matches))
		for _, m := range matches {
			if m.MatchStatus == models.MatchStatusMatched {
				filtered = append(filtered, m)
			}
		}
		return filtered
	case FilterExceptions:
		filtered := make([]*models.ReconciliationMatch, 0, len(matches))
		for _, m := range matches {
			if m.MatchStatus == models.MatchStatusException {
				filtered = append(filtered, m)
			}
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			if filtered[i].ExceptionType != filtered[j].ExceptionType {
				return filtered[i].ExceptionType < filtered[j].ExceptionType
			}
			return filtered[i].Difference.GreaterThan(filtered[j].Difference)
		})
		return filtered
	default:
		return matches
	}
}

func (rg *ReportGenerator) generateCSV(matches []*models.ReconciliationMatch, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"order_id", "invoice_id", "match_status", "exception_type",
			"operational_amount", "financial_amount", "difference", "notes",
		}
		if err := csvWriter.Write(headers); err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "csv_report", err)
		}
	}

	for _, match := range rg.filterMatches(matches) {
		row := []string{
			match.OrderID,
			match.InvoiceID,
			match.MatchStatus.String(),
			string(match.ExceptionType),
			match.OperationalAmount.StringFixed(2),
			match.FinancialAmount.StringFixed(2),
			match.Difference.StringFixed(2),
			match.Notes,
		}
		if err := csvWriter.Write(row); err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "csv_report", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "csv_report", err)
	}

	return nil
}

func (rg *ReportGenerator) generateConsole(matches []*models.ReconciliationMatch, summary *models.ReconciliationSummary, writer io.Writer) error {
	var b strings.Builder

	b.WriteString("FINANCE RECONCILIATION REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	if rg.config.IncludeSummary && summary != nil {
		rg.writeSummarySection(&b, summary)
	}

	if rg.config.IncludeMatches {
		rg.writeMatchesSection(&b, matches)
	}

	if _, err := io.WriteString(writer, b.String()); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "console_report", err)
	}

	return nil
}

func (rg *ReportGenerator) writeSummarySection(b *strings.Builder, summary *models.ReconciliationSummary) {
	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	b.WriteString(fmt.Sprintf("  Total Orders:        %d\n", summary.TotalOrders))
	b.WriteString(fmt.Sprintf("  Total Invoices:      %d\n", summary.TotalInvoices))
	b.WriteString(fmt.Sprintf("  Matched:             %d\n", summary.MatchedCount))
	b.WriteString(fmt.Sprintf("  Exceptions:          %d\n", summary.ExceptionCount))
	b.WriteString(fmt.Sprintf("  Match Rate:          %s\n\n", formatMatchRate(summary)))

	b.WriteString("EXCEPTION BREAKDOWN\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	b.WriteString(fmt.Sprintf("  Timing Issues:       %d\n", summary.TimingExceptions))
	b.WriteString(fmt.Sprintf("  Amount Mismatches:   %d\n", summary.AmountMismatches))
	b.WriteString(fmt.Sprintf("  Missing Invoices:    %d\n", summary.MissingInvoices))
	b.WriteString(fmt.Sprintf("  Missing Orders:      %d\n", summary.MissingOrders))
	b.WriteString(fmt.Sprintf("  Partial Fulfillment: %d\n", summary.PartialFulfillments))
	b.WriteString(fmt.Sprintf("  Refunds:             %d\n", summary.Refunds))
	b.WriteString(fmt.Sprintf("  Cancelled:           %d\n\n", summary.CancelledExceptions))

	b.WriteString("FINANCIAL TOTALS\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	b.WriteString(fmt.Sprintf("  Operational Amount:  $%s\n", summary.TotalOperationalAmount.StringFixed(2)))
	b.WriteString(fmt.Sprintf("  Financial Amount:    $%s\n", summary.TotalFinancialAmount.StringFixed(2)))
	b.WriteString(fmt.Sprintf("  Difference:          $%s\n\n", summary.TotalDifference.StringFixed(2)))
}

func (rg *ReportGenerator) writeMatchesSection(b *strings.Builder, matches []*models.ReconciliationMatch) {
	b.WriteString(fmt.Sprintf("MATCHES (%d)\n", len(matches)))
	b.WriteString(strings.Repeat("-", 60) + "\n")

	for _, match := range matches {
		invoiceID := match.InvoiceID
		if invoiceID == "" {
			invoiceID = "-"
		}

		b.WriteString(fmt.Sprintf("  %-12s %-12s %-10s %-20s $%s\n",
			match.OrderID,
			invoiceID,
			match.MatchStatus.String(),
			string(match.ExceptionType),
			match.Difference.StringFixed(2),
		))
		b.WriteString(fmt.Sprintf("    %s\n", match.Notes))
	}

	b.WriteString("\n")
}

// formatMatchRate computes the matched percentage over total matches,
// guarding against an empty result set
func formatMatchRate(summary *models.ReconciliationSummary) string {
	total := summary.MatchedCount + summary.ExceptionCount
	if total == 0 {
		return "N/A"
	}

	rate := decimal.NewFromInt(int64(summary.MatchedCount)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100))

	return rate.StringFixed(1) + "%"
}
