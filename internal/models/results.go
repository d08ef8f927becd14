package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MatchStatus is the top-level reconciliation outcome for one order/invoice pairing
type MatchStatus string

const (
	// MatchStatusMatched indicates the pairing reconciled cleanly
	MatchStatusMatched MatchStatus = "matched"
	// MatchStatusException indicates the pairing needs review
	MatchStatusException MatchStatus = "exception"
)

// String returns the string representation of MatchStatus
func (ms MatchStatus) String() string {
	return string(ms)
}

// IsValid checks if the match status is valid
func (ms MatchStatus) IsValid() bool {
	return ms == MatchStatusMatched || ms == MatchStatusException
}

// ExceptionType identifies the specific reason a pairing failed to reconcile cleanly
type ExceptionType string

const (
	ExceptionNone               ExceptionType = ""
	ExceptionTiming             ExceptionType = "timing"
	ExceptionAmountMismatch     ExceptionType = "amount_mismatch"
	ExceptionMissingInvoice     ExceptionType = "missing_invoice"
	ExceptionMissingOrder       ExceptionType = "missing_order"
	ExceptionPartialFulfillment ExceptionType = "partial_fulfillment"
	ExceptionRefund             ExceptionType = "refund"
	ExceptionCancelled          ExceptionType = "cancelled"
)

// String returns the string representation of ExceptionType
func (et ExceptionType) String() string {
	return string(et)
}

// ReconciliationMatch is the reconciliation outcome for one order/invoice
// pairing. Exactly one is produced per input order, plus one per invoice that
// no order claims. Instances are never mutated after construction.
type ReconciliationMatch struct {
	OrderID           string          `json:"order_id"`
	InvoiceID         string          `json:"invoice_id,omitempty"`
	MatchStatus       MatchStatus     `json:"match_status"`
	ExceptionType     ExceptionType   `json:"exception_type,omitempty"`
	OperationalAmount decimal.Decimal `json:"operational_amount"`
	FinancialAmount   decimal.Decimal `json:"financial_amount"`
	Difference        decimal.Decimal `json:"difference"`
	Notes             string          `json:"notes"`
}

// IsException returns true if the match requires review
func (m *ReconciliationMatch) IsException() bool {
	return m.MatchStatus == MatchStatusException
}

// String returns a string representation of the ReconciliationMatch
func (m *ReconciliationMatch) String() string {
	return fmt.Sprintf("ReconciliationMatch{Order: %s, Invoice: %s, Status: %s, Exception: %s, Difference: %s}",
		m.OrderID, m.InvoiceID, m.MatchStatus, m.ExceptionType, m.Difference.String())
}

// MarshalJSON implements custom JSON marshaling for ReconciliationMatch
func (m *ReconciliationMatch) MarshalJSON() ([]byte, error) {
	type Alias ReconciliationMatch
	return json.Marshal(&struct {
		OperationalAmount string `json:"operational_amount"`
		FinancialAmount   string `json:"financial_amount"`
		Difference        string `json:"difference"`
		*Alias
	}{
		OperationalAmount: m.OperationalAmount.String(),
		FinancialAmount:   m.FinancialAmount.String(),
		Difference:        m.Difference.String(),
		Alias:             (*Alias)(m),
	})
}

// ReconciliationSummary holds aggregate statistics for one reconciliation run.
// Amount totals are computed over the full input lists, independent of the
// per-match outcomes.
type ReconciliationSummary struct {
	TotalOrders         int `json:"total_orders"`
	TotalInvoices       int `json:"total_invoices"`
	MatchedCount        int `json:"matched_count"`
	ExceptionCount      int `json:"exception_count"`
	TimingExceptions    int `json:"timing_exceptions"`
	AmountMismatches    int `json:"amount_mismatches"`
	MissingInvoices     int `json:"missing_invoices"`
	MissingOrders       int `json:"missing_orders"`
	PartialFulfillments int `json:"partial_fulfillments"`
	Refunds             int `json:"refunds"`
	CancelledExceptions int `json:"cancelled_exceptions"`

	TotalOperationalAmount decimal.Decimal `json:"total_operational_amount"`
	TotalFinancialAmount   decimal.Decimal `json:"total_financial_amount"`
	TotalDifference        decimal.Decimal `json:"total_difference"`
}

// String returns a string representation of the ReconciliationSummary
func (s *ReconciliationSummary) String() string {
	return fmt.Sprintf("ReconciliationSummary{Orders: %d, Invoices: %d, Matched: %d, Exceptions: %d, Difference: %s}",
		s.TotalOrders, s.TotalInvoices, s.MatchedCount, s.ExceptionCount, s.TotalDifference.String())
}

// MarshalJSON implements custom JSON marshaling for ReconciliationSummary
func (s *ReconciliationSummary) MarshalJSON() ([]byte, error) {
	type Alias ReconciliationSummary
	return json.Marshal(&struct {
		TotalOperationalAmount string `json:"total_operational_amount"`
		TotalFinancialAmount   string `json:"total_financial_amount"`
		TotalDifference        string `json:"total_difference"`
		*Alias
	}{
		TotalOperationalAmount: s.TotalOperationalAmount.String(),
		TotalFinancialAmount:   s.TotalFinancialAmount.String(),
		TotalDifference:        s.TotalDifference.String(),
		Alias:                  (*Alias)(s),
	})
}
