package loaders

import (
	"context"
	"io"

	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/logger"
)

// OrderLoader reads order records from CSV files
type OrderLoader struct {
	base    *BaseLoader
	columns *ColumnConfig
	logger  logger.Logger
}

// NewOrderLoader creates a loader with the given column configuration.
// A nil config uses the default order column mapping.
func NewOrderLoader(parseConfig *ParseConfig, columns *ColumnConfig) *OrderLoader {
	if columns == nil {
		columns = OrderColumns()
	}

	return &OrderLoader{
		base:    NewBaseLoader(parseConfig),
		columns: columns,
		logger:  logger.GetGlobalLogger().WithComponent("order_loader"),
	}
}

// LoadFile reads all orders from the given CSV file. Malformed rows are
// recorded in the returned stats and skipped.
func (ol *OrderLoader) LoadFile(ctx context.Context, filePath string) ([]*models.Order, *ParseStats, error) {
	ol.logger.WithField("file_path", filePath).Info("Loading orders")

	file, reader, err := ol.base.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	required := requiredColumns(ol.columns, "order_id", "customer_id", "order_date", "amount", "status")
	if err := ol.base.ReadHeaders(reader, parseCtx, required); err != nil {
		return nil, stats, err
	}

	var orders []*models.Order
	for {
		record, err := ol.base.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return orders, stats, err
		}

		stats.TotalLines++

		order, parseErr := ol.parseRecord(record, parseCtx)
		if parseErr != nil {
			stats.AddError(parseErr)
			ol.logger.WithError(parseErr).WithField("line_number", parseCtx.LineNumber).Warn("Skipping invalid order row")
			continue
		}

		stats.RecordsParsed++
		stats.RecordsValid++
		orders = append(orders, order)
	}

	ol.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"orders":    len(orders),
		"errors":    stats.ErrorCount,
	}).Info("Finished loading orders")

	return orders, stats, nil
}

func (ol *OrderLoader) parseRecord(record []string, parseCtx *ParseContext) (*models.Order, *ParseError) {
	fields, perr := extractFields(ol.base, record, parseCtx, ol.columns,
		"order_id", "customer_id", "order_date", "amount", "status")
	if perr != nil {
		return nil, perr
	}

	order, err := models.CreateOrderFromCSV(
		fields["order_id"],
		fields["customer_id"],
		fields["order_date"],
		fields["amount"],
		fields["status"],
	)
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "record",
			Value:   fields["order_id"],
			Message: "failed to create order",
			Err:     err,
		}
	}

	return order, nil
}

// requiredColumns resolves the configured column name for each logical field
func requiredColumns(columns *ColumnConfig, fields ...string) []string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, columns.GetColumnName(field))
	}
	return names
}

// extractFields pulls the named logical fields out of a record, trying the
// configured column name and then any aliases
func extractFields(base *BaseLoader, record []string, parseCtx *ParseContext, columns *ColumnConfig, fields ...string) (map[string]string, *ParseError) {
	values := make(map[string]string, len(fields))

	for _, field := range fields {
		var value string
		var lastErr error

		found := false
		for _, candidate := range columns.GetColumnCandidates(field) {
			v, err := base.GetFieldValue(record, parseCtx, candidate)
			if err == nil {
				value = v
				found = true
				break
			}
			lastErr = err
		}

		if !found {
			return nil, &ParseError{
				Line:    parseCtx.LineNumber,
				Field:   field,
				Message: "column not found",
				Err:     lastErr,
			}
		}

		values[field] = value
	}

	return values, nil
}
