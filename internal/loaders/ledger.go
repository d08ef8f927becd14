package loaders

import (
	"context"
	"io"

	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/logger"
)

// LedgerLoader reads ledger posting records from CSV files
type LedgerLoader struct {
	base    *BaseLoader
	columns *ColumnConfig
	logger  logger.Logger
}

// NewLedgerLoader creates a loader with the given column configuration
func NewLedgerLoader(parseConfig *ParseConfig, columns *ColumnConfig) *LedgerLoader {
	if columns == nil {
		columns = LedgerColumns()
	}

	return &LedgerLoader{
		base:    NewBaseLoader(parseConfig),
		columns: columns,
		logger:  logger.GetGlobalLogger().WithComponent("ledger_loader"),
	}
}

// LoadFile reads all ledger postings from the given CSV file
func (ll *LedgerLoader) LoadFile(ctx context.Context, filePath string) ([]*models.LedgerPosting, *ParseStats, error) {
	ll.logger.WithField("file_path", filePath).Info("Loading ledger postings")

	file, reader, err := ll.base.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	required := requiredColumns(ll.columns, "posting_id", "invoice_id", "posting_date", "amount", "account", "transaction_type")
	if err := ll.base.ReadHeaders(reader, parseCtx, required); err != nil {
		return nil, stats, err
	}

	var postings []*models.LedgerPosting
	for {
		record, err := ll.base.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return postings, stats, err
		}

		stats.TotalLines++

		posting, parseErr := ll.parseRecord(record, parseCtx)
		if parseErr != nil {
			stats.AddError(parseErr)
			ll.logger.WithError(parseErr).WithField("line_number", parseCtx.LineNumber).Warn("Skipping invalid ledger row")
			continue
		}

		stats.RecordsParsed++
		stats.RecordsValid++
		postings = append(postings, posting)
	}

	ll.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"postings":  len(postings),
		"errors":    stats.ErrorCount,
	}).Info("Finished loading ledger postings")

	return postings, stats, nil
}

func (ll *LedgerLoader) parseRecord(record []string, parseCtx *ParseContext) (*models.LedgerPosting, *ParseError) {
	fields, perr := extractFields(ll.base, record, parseCtx, ll.columns,
		"posting_id", "invoice_id", "posting_date", "amount", "account", "transaction_type")
	if perr != nil {
		return nil, perr
	}

	posting, err := models.CreateLedgerPostingFromCSV(
		fields["posting_id"],
		fields["invoice_id"],
		fields["posting_date"],
		fields["amount"],
		fields["account"],
		fields["transaction_type"],
	)
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "record",
			Value:   fields["posting_id"],
			Message: "failed to create ledger posting",
			Err:     err,
		}
	}

	return posting, nil
}
