package loaders

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/errors"
	"finops-reconciliation-pipeline/pkg/logger"
)

// IsJSONFile reports whether the path looks like a JSON export
func IsJSONFile(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".json")
}

// readJSONArray reads and unmarshals a JSON file into the given slice pointer
func readJSONArray(ctx context.Context, filePath string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "json_loading", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.ParseError(errors.CodeInvalidFormat, filePath, 0, "json", "", err).
			WithSuggestion("Ensure the file contains a JSON array of records")
	}

	return nil
}

// LoadOrdersJSON reads orders from a JSON array file
func LoadOrdersJSON(ctx context.Context, filePath string) ([]*models.Order, error) {
	log := logger.GetGlobalLogger().WithComponent("json_loader")
	log.WithField("file_path", filePath).Info("Loading orders from JSON")

	var orders []*models.Order
	if err := readJSONArray(ctx, filePath, &orders); err != nil {
		return nil, err
	}

	for i, order := range orders {
		if err := order.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidData, "order", order.OrderID, err).
				WithContext("index", i)
		}
	}

	return orders, nil
}

// LoadShipmentsJSON reads shipments from a JSON array file
func LoadShipmentsJSON(ctx context.Context, filePath string) ([]*models.Shipment, error) {
	log := logger.GetGlobalLogger().WithComponent("json_loader")
	log.WithField("file_path", filePath).Info("Loading shipments from JSON")

	var shipments []*models.Shipment
	if err := readJSONArray(ctx, filePath, &shipments); err != nil {
		return nil, err
	}

	for i, shipment := range shipments {
		if err := shipment.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidData, "shipment", shipment.ShipmentID, err).
				WithContext("index", i)
		}
	}

	return shipments, nil
}

// LoadInvoicesJSON reads invoices from a JSON array file
func LoadInvoicesJSON(ctx context.Context, filePath string) ([]*models.Invoice, error) {
	log := logger.GetGlobalLogger().WithComponent("json_loader")
	log.WithField("file_path", filePath).Info("Loading invoices from JSON")

	var invoices []*models.Invoice
	if err := readJSONArray(ctx, filePath, &invoices); err != nil {
		return nil, err
	}

	for i, invoice := range invoices {
		if err := invoice.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidData, "invoice", invoice.InvoiceID, err).
				WithContext("index", i)
		}
	}

	return invoices, nil
}

// LoadLedgerJSON reads ledger postings from a JSON array file
func LoadLedgerJSON(ctx context.Context, filePath string) ([]*models.LedgerPosting, error) {
	log := logger.GetGlobalLogger().WithComponent("json_loader")
	log.WithField("file_path", filePath).Info("Loading ledger postings from JSON")

	var postings []*models.LedgerPosting
	if err := readJSONArray(ctx, filePath, &postings); err != nil {
		return nil, err
	}

	for i, posting := range postings {
		if err := posting.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidData, "ledger_posting", posting.PostingID, err).
				WithContext("index", i)
		}
	}

	return postings, nil
}
