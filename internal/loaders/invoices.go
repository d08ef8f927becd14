package loaders

import (
	"context"
	"io"

	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/logger"
)

// InvoiceLoader reads invoice records from CSV files
type InvoiceLoader struct {
	base    *BaseLoader
	columns *ColumnConfig
	logger  logger.Logger
}

// NewInvoiceLoader creates a loader with the given column configuration
func NewInvoiceLoader(parseConfig *ParseConfig, columns *ColumnConfig) *InvoiceLoader {
	if columns == nil {
		columns = InvoiceColumns()
	}

	return &InvoiceLoader{
		base:    NewBaseLoader(parseConfig),
		columns: columns,
		logger:  logger.GetGlobalLogger().WithComponent("invoice_loader"),
	}
}

// LoadFile reads all invoices from the given CSV file
func (il *InvoiceLoader) LoadFile(ctx context.Context, filePath string) ([]*models.Invoice, *ParseStats, error) {
	il.logger.WithField("file_path", filePath).Info("Loading invoices")

	file, reader, err := il.base.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	required := requiredColumns(il.columns, "invoice_id", "order_id", "customer_id", "invoice_date", "amount", "status")
	if err := il.base.ReadHeaders(reader, parseCtx, required); err != nil {
		return nil, stats, err
	}

	var invoices []*models.Invoice
	for {
		record, err := il.base.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return invoices, stats, err
		}

		stats.TotalLines++

		invoice, parseErr := il.parseRecord(record, parseCtx)
		if parseErr != nil {
			stats.AddError(parseErr)
			il.logger.WithError(parseErr).WithField("line_number", parseCtx.LineNumber).Warn("Skipping invalid invoice row")
			continue
		}

		stats.RecordsParsed++
		stats.RecordsValid++
		invoices = append(invoices, invoice)
	}

	il.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"invoices":  len(invoices),
		"errors":    stats.ErrorCount,
	}).Info("Finished loading invoices")

	return invoices, stats, nil
}

func (il *InvoiceLoader) parseRecord(record []string, parseCtx *ParseContext) (*models.Invoice, *ParseError) {
	fields, perr := extractFields(il.base, record, parseCtx, il.columns,
		"invoice_id", "order_id", "customer_id", "invoice_date", "amount", "status")
	if perr != nil {
		return nil, perr
	}

	invoice, err := models.CreateInvoiceFromCSV(
		fields["invoice_id"],
		fields["order_id"],
		fields["customer_id"],
		fields["invoice_date"],
		fields["amount"],
		fields["status"],
	)
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "record",
			Value:   fields["invoice_id"],
			Message: "failed to create invoice",
			Err:     err,
		}
	}

	return invoice, nil
}
