package loaders

import (
	"context"
	"io"

	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/logger"
)

// ShipmentLoader reads shipment records from CSV files
type ShipmentLoader struct {
	base    *BaseLoader
	columns *ColumnConfig
	logger  logger.Logger
}

// NewShipmentLoader creates a loader with the given column configuration
func NewShipmentLoader(parseConfig *ParseConfig, columns *ColumnConfig) *ShipmentLoader {
	if columns == nil {
		columns = ShipmentColumns()
	}

	return &ShipmentLoader{
		base:    NewBaseLoader(parseConfig),
		columns: columns,
		logger:  logger.GetGlobalLogger().WithComponent("shipment_loader"),
	}
}

// LoadFile reads all shipments from the given CSV file
func (sl *ShipmentLoader) LoadFile(ctx context.Context, filePath string) ([]*models.Shipment, *ParseStats, error) {
	sl.logger.WithField("file_path", filePath).Info("Loading shipments")

	file, reader, err := sl.base.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	required := requiredColumns(sl.columns, "shipment_id", "order_id", "shipment_date", "shipped_amount", "status")
	if err := sl.base.ReadHeaders(reader, parseCtx, required); err != nil {
		return nil, stats, err
	}

	var shipments []*models.Shipment
	for {
		record, err := sl.base.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return shipments, stats, err
		}

		stats.TotalLines++

		shipment, parseErr := sl.parseRecord(record, parseCtx)
		if parseErr != nil {
			stats.AddError(parseErr)
			sl.logger.WithError(parseErr).WithField("line_number", parseCtx.LineNumber).Warn("Skipping invalid shipment row")
			continue
		}

		stats.RecordsParsed++
		stats.RecordsValid++
		shipments = append(shipments, shipment)
	}

	sl.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"shipments": len(shipments),
		"errors":    stats.ErrorCount,
	}).Info("Finished loading shipments")

	return shipments, stats, nil
}

func (sl *ShipmentLoader) parseRecord(record []string, parseCtx *ParseContext) (*models.Shipment, *ParseError) {
	fields, perr := extractFields(sl.base, record, parseCtx, sl.columns,
		"shipment_id", "order_id", "shipment_date", "shipped_amount", "status")
	if perr != nil {
		return nil, perr
	}

	shipment, err := models.CreateShipmentFromCSV(
		fields["shipment_id"],
		fields["order_id"],
		fields["shipment_date"],
		fields["shipped_amount"],
		fields["status"],
	)
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "record",
			Value:   fields["shipment_id"],
			Message: "failed to create shipment",
			Err:     err,
		}
	}

	return shipment, nil
}
