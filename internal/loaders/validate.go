package loaders

import (
	"fmt"

	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/errors"
	"finops-reconciliation-pipeline/pkg/logger"
)

// DataQualityIssue describes a problem found during dataset validation.
// Code places the issue within the pipeline error taxonomy.
type DataQualityIssue struct {
	RecordType string
	RecordID   string
	Code       errors.ErrorCode
	Message    string
}

func (dq *DataQualityIssue) String() string {
	return fmt.Sprintf("[%s %s] %s", dq.RecordType, dq.RecordID, dq.Message)
}

// Err converts the issue to a categorized validation error
func (dq *DataQualityIssue) Err() *errors.PipelineError {
	return errors.ValidationError(dq.Code, dq.RecordType+"_id", dq.RecordID, fmt.Errorf("%s", dq.Message))
}

// ValidateRecords runs data-quality checks across loaded datasets:
// duplicate order IDs, duplicate invoice IDs, and non-positive amounts.
// It returns all issues found rather than stopping at the first one.
func ValidateRecords(orders []*models.Order, invoices []*models.Invoice) []*DataQualityIssue {
	log := logger.GetGlobalLogger().WithComponent("data_quality")

	var issues []*DataQualityIssue

	seenOrders := make(map[string]bool, len(orders))
	for _, order := range orders {
		if seenOrders[order.OrderID] {
			issues = append(issues, &DataQualityIssue{
				RecordType: "order",
				RecordID:   order.OrderID,
				Code:       errors.CodeDuplicateID,
				Message:    "duplicate order ID",
			})
		}
		seenOrders[order.OrderID] = true

		if !order.Amount.IsPositive() {
			issues = append(issues, &DataQualityIssue{
				RecordType: "order",
				RecordID:   order.OrderID,
				Code:       errors.CodeInvalidAmount,
				Message:    fmt.Sprintf("non-positive amount %s", order.Amount.StringFixed(2)),
			})
		}
	}

	seenInvoices := make(map[string]bool, len(invoices))
	for _, invoice := range invoices {
		if seenInvoices[invoice.InvoiceID] {
			issues = append(issues, &DataQualityIssue{
				RecordType: "invoice",
				RecordID:   invoice.InvoiceID,
				Code:       errors.CodeDuplicateID,
				Message:    "duplicate invoice ID",
			})
		}
		seenInvoices[invoice.InvoiceID] = true

		if !invoice.Amount.IsPositive() {
			issues = append(issues, &DataQualityIssue{
				RecordType: "invoice",
				RecordID:   invoice.InvoiceID,
				Code:       errors.CodeInvalidAmount,
				Message:    fmt.Sprintf("non-positive amount %s", invoice.Amount.StringFixed(2)),
			})
		}
	}

	if len(issues) > 0 {
		log.WithField("issue_count", len(issues)).Warn("Data quality issues detected")
	} else {
		log.Debug("No data quality issues detected")
	}

	return issues
}
