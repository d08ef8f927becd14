package loaders

import (
	"fmt"
	"strings"
)

// ColumnConfig maps logical field names to the column names found in a
// particular CSV export, with optional aliases for common variations.
type ColumnConfig struct {
	Columns map[string]string   `json:"columns"`
	Aliases map[string][]string `json:"aliases,omitempty"`
}

// GetColumnName resolves the configured column name for a logical field
func (cc *ColumnConfig) GetColumnName(field string) string {
	if name, exists := cc.Columns[field]; exists && name != "" {
		return name
	}
	return field
}

// GetColumnCandidates returns the configured column name followed by any
// aliases, in resolution order
func (cc *ColumnConfig) GetColumnCandidates(field string) []string {
	candidates := []string{cc.GetColumnName(field)}
	if aliases, exists := cc.Aliases[field]; exists {
		candidates = append(candidates, aliases...)
	}
	return candidates
}

// Validate checks that every required field has a column mapping
func (cc *ColumnConfig) Validate(requiredFields []string) error {
	var missing []string
	for _, field := range requiredFields {
		if cc.GetColumnName(field) == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing column mappings for fields: %s", strings.Join(missing, ", "))
	}

	return nil
}

// OrderColumns returns the default column mapping for order exports
func OrderColumns() *ColumnConfig {
	return &ColumnConfig{
		Columns: map[string]string{
			"order_id":    "order_id",
			"customer_id": "customer_id",
			"order_date":  "order_date",
			"amount":      "amount",
			"status":      "status",
		},
		Aliases: map[string][]string{
			"order_id": {"OrderID", "id"},
			"amount":   {"total", "order_amount"},
		},
	}
}

// ShipmentColumns returns the default column mapping for shipment exports
func ShipmentColumns() *ColumnConfig {
	return &ColumnConfig{
		Columns: map[string]string{
			"shipment_id":    "shipment_id",
			"order_id":       "order_id",
			"shipment_date":  "shipment_date",
			"shipped_amount": "shipped_amount",
			"status":         "status",
		},
		Aliases: map[string][]string{
			"shipment_id":    {"ShipmentID", "id"},
			"shipped_amount": {"amount"},
		},
	}
}

// InvoiceColumns returns the default column mapping for invoice exports
func InvoiceColumns() *ColumnConfig {
	return &ColumnConfig{
		Columns: map[string]string{
			"invoice_id":   "invoice_id",
			"order_id":     "order_id",
			"customer_id":  "customer_id",
			"invoice_date": "invoice_date",
			"amount":       "amount",
			"status":       "status",
		},
		Aliases: map[string][]string{
			"invoice_id": {"InvoiceID", "id"},
			"amount":     {"invoice_amount", "total"},
		},
	}
}

// LedgerColumns returns the default column mapping for ledger exports
func LedgerColumns() *ColumnConfig {
	return &ColumnConfig{
		Columns: map[string]string{
			"posting_id":       "posting_id",
			"invoice_id":       "invoice_id",
			"posting_date":     "posting_date",
			"amount":           "amount",
			"account":          "account",
			"transaction_type": "transaction_type",
		},
		Aliases: map[string][]string{
			"posting_id":       {"PostingID", "id"},
			"transaction_type": {"type", "txn_type"},
		},
	}
}
