package engine

import (
	"fmt"
	"strings"

	"finops-reconciliation-pipeline/internal/models"

	"github.com/shopspring/decimal"
)

// Engine pairs operational records with financial records and classifies
// each pairing. Reconcile is a pure function of its inputs and the engine's
// configuration: no state survives between runs.
type Engine struct {
	config *Config
}

// NewEngine creates a reconciliation engine with the given configuration.
// A nil configuration selects the defaults.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	return &Engine{config: config.Clone()}, nil
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Reconcile performs a full reconciliation of operational records against
// financial records.
//
// It emits exactly one match per input order (in input order), followed by
// one missing_order match per invoice that no order claimed (in invoice input
// order). When several invoices share an order ID the last one in input order
// is paired; the rest surface as missing_order exceptions.
func (e *Engine) Reconcile(orders []*models.Order, shipments []*models.Shipment,
	invoices []*models.Invoice, postings []*models.LedgerPosting) ([]*models.ReconciliationMatch, *models.ReconciliationSummary) {

	invoiceIndex := NewInvoiceIndex(invoices)
	shipmentIndex := NewShipmentIndex(shipments)
	ledgerIndex := NewLedgerIndex(postings)

	matches := make([]*models.ReconciliationMatch, 0, len(orders))
	consumed := make(map[string]bool, len(invoices))

	for _, order := range orders {
		invoice := invoiceIndex.ForOrder(order.OrderID)

		var match *models.ReconciliationMatch
		if invoice == nil {
			match = e.missingInvoiceMatch(order)
		} else {
			consumed[invoice.InvoiceID] = true
			match = e.classifyPairing(order, invoice,
				shipmentIndex.ForOrder(order.OrderID),
				ledgerIndex.ForInvoice(invoice.InvoiceID))
		}

		matches = append(matches, match)
	}

	for _, invoice := range invoices {
		if !consumed[invoice.InvoiceID] {
			matches = append(matches, e.missingOrderMatch(invoice))
		}
	}

	summary := e.summarize(matches, orders, invoices)

	return matches, summary
}

// Stats builds the three indexes for the given inputs and reports their
// sizes. Useful for verbose diagnostics without running a reconciliation.
func (e *Engine) Stats(shipments []*models.Shipment, invoices []*models.Invoice,
	postings []*models.LedgerPosting) IndexStats {
	return collectIndexStats(NewInvoiceIndex(invoices), NewShipmentIndex(shipments), NewLedgerIndex(postings))
}

// classifyPairing reconciles one order against its invoice, given the
// order's shipments and the invoice's ledger postings.
//
// Exception priority is three-tiered: amount-class exceptions
// (partial_fulfillment > refund > amount_mismatch) beat timing, and a
// cancellation on either side overrides whatever was assigned before it.
// Notes accumulate for every triggered check regardless of which exception
// type wins.
func (e *Engine) classifyPairing(order *models.Order, invoice *models.Invoice,
	shipments []*models.Shipment, postings []*models.LedgerPosting) *models.ReconciliationMatch {

	// Total fulfilled amount, excluding returned shipments
	totalShipped := decimal.Zero
	for _, sh := range shipments {
		if !sh.IsReturned() {
			totalShipped = totalShipped.Add(sh.ShippedAmount)
		}
	}

	// Net ledger amount with refunds subtracted rather than added
	netLedger := decimal.Zero
	hasRefund := false
	for _, p := range postings {
		if p.IsRefund() {
			netLedger = netLedger.Sub(p.Amount)
			hasRefund = true
		} else {
			netLedger = netLedger.Add(p.Amount)
		}
	}

	operationalAmount := order.Amount
	financialAmount := invoice.Amount
	difference := operationalAmount.Sub(financialAmount)

	matchStatus := models.MatchStatusMatched
	exceptionType := models.ExceptionNone
	var notes []string

	if difference.Abs().GreaterThan(e.config.ToleranceAmount) {
		matchStatus = models.MatchStatusException

		switch {
		case totalShipped.IsPositive() && e.config.WithinAmountTolerance(totalShipped, financialAmount):
			exceptionType = models.ExceptionPartialFulfillment
			notes = append(notes, fmt.Sprintf("Partial fulfillment: shipped $%s, invoiced $%s",
				totalShipped.String(), financialAmount.String()))
		case hasRefund:
			exceptionType = models.ExceptionRefund
			notes = append(notes, fmt.Sprintf("Refund detected: net amount after refunds $%s", netLedger.String()))
		default:
			exceptionType = models.ExceptionAmountMismatch
			notes = append(notes, fmt.Sprintf("Amount mismatch: order $%s vs invoice $%s",
				operationalAmount.String(), financialAmount.String()))
		}
	}

	if dateGap := DateGapDays(order.OrderDate, invoice.InvoiceDate); dateGap > e.config.TimingToleranceDays {
		// Amount exceptions take priority over timing, but the note is
		// always recorded
		if matchStatus != models.MatchStatusException {
			matchStatus = models.MatchStatusException
			exceptionType = models.ExceptionTiming
		}
		notes = append(notes, fmt.Sprintf("Timing issue: %d days between order and invoice", dateGap))
	}

	if order.IsCancelled() || invoice.IsCancelled() {
		// Cancellation has final say over the exception type
		matchStatus = models.MatchStatusException
		exceptionType = models.ExceptionCancelled
		notes = append(notes, fmt.Sprintf("Cancelled: order status=%s, invoice status=%s",
			order.Status, invoice.Status))
	}

	return &models.ReconciliationMatch{
		OrderID:           order.OrderID,
		InvoiceID:         invoice.InvoiceID,
		MatchStatus:       matchStatus,
		ExceptionType:     exceptionType,
		OperationalAmount: operationalAmount,
		FinancialAmount:   financialAmount,
		Difference:        difference,
		Notes:             joinNotes(notes),
	}
}

// missingInvoiceMatch creates the exception record for an order that no
// invoice references
func (e *Engine) missingInvoiceMatch(order *models.Order) *models.ReconciliationMatch {
	return &models.ReconciliationMatch{
		OrderID:           order.OrderID,
		MatchStatus:       models.MatchStatusException,
		ExceptionType:     models.ExceptionMissingInvoice,
		OperationalAmount: order.Amount,
		FinancialAmount:   decimal.Zero,
		Difference:        order.Amount,
		Notes:             fmt.Sprintf("No invoice found for order %s", order.OrderID),
	}
}

// missingOrderMatch creates the exception record for an invoice no order
// claimed. The order ID comes from the invoice's own foreign key so the
// record stays traceable even though the order table has no such row.
func (e *Engine) missingOrderMatch(invoice *models.Invoice) *models.ReconciliationMatch {
	return &models.ReconciliationMatch{
		OrderID:           invoice.OrderID,
		InvoiceID:         invoice.InvoiceID,
		MatchStatus:       models.MatchStatusException,
		ExceptionType:     models.ExceptionMissingOrder,
		OperationalAmount: decimal.Zero,
		FinancialAmount:   invoice.Amount,
		Difference:        invoice.Amount.Neg(),
		Notes:             fmt.Sprintf("No order found for invoice %s", invoice.InvoiceID),
	}
}

// summarize aggregates match outcomes and input totals into run statistics.
// The amount totals are summed over the full input lists, not the match
// records, so they hold regardless of pairing outcomes.
func (e *Engine) summarize(matches []*models.ReconciliationMatch,
	orders []*models.Order, invoices []*models.Invoice) *models.ReconciliationSummary {

	summary := &models.ReconciliationSummary{
		TotalOrders:            len(orders),
		TotalInvoices:          len(invoices),
		TotalOperationalAmount: decimal.Zero,
		TotalFinancialAmount:   decimal.Zero,
	}

	for _, m := range matches {
		if m.MatchStatus == models.MatchStatusMatched {
			summary.MatchedCount++
		} else {
			summary.ExceptionCount++
		}

		switch m.ExceptionType {
		case models.ExceptionTiming:
			summary.TimingExceptions++
		case models.ExceptionAmountMismatch:
			summary.AmountMismatches++
		case models.ExceptionMissingInvoice:
			summary.MissingInvoices++
		case models.ExceptionMissingOrder:
			summary.MissingOrders++
		case models.ExceptionPartialFulfillment:
			summary.PartialFulfillments++
		case models.ExceptionRefund:
			summary.Refunds++
		case models.ExceptionCancelled:
			summary.CancelledExceptions++
		}
	}

	for _, o := range orders {
		summary.TotalOperationalAmount = summary.TotalOperationalAmount.Add(o.Amount)
	}

	for _, i := range invoices {
		summary.TotalFinancialAmount = summary.TotalFinancialAmount.Add(i.Amount)
	}

	summary.TotalDifference = summary.TotalOperationalAmount.Sub(summary.TotalFinancialAmount)

	return summary
}

func joinNotes(notes []string) string {
	if len(notes) == 0 {
		return "OK"
	}
	return strings.Join(notes, "; ")
}
