package engine

import (
	"strings"
	"testing"
	"time"

	"finops-reconciliation-pipeline/internal/models"

	"github.com/shopspring/decimal"
)

func testDate(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func testOrder(orderID string, day int, amount float64, status string) *models.Order {
	return &models.Order{
		OrderID:    orderID,
		CustomerID: "CUST-1",
		OrderDate:  testDate(day),
		Amount:     decimal.NewFromFloat(amount),
		Status:     status,
	}
}

func testInvoice(invoiceID, orderID string, day int, amount float64, status string) *models.Invoice {
	return &models.Invoice{
		InvoiceID:   invoiceID,
		OrderID:     orderID,
		CustomerID:  "CUST-1",
		InvoiceDate: testDate(day),
		Amount:      decimal.NewFromFloat(amount),
		Status:      status,
	}
}

func testShipment(shipmentID, orderID string, day int, amount float64, status string) *models.Shipment {
	return &models.Shipment{
		ShipmentID:    shipmentID,
		OrderID:       orderID,
		ShipmentDate:  testDate(day),
		ShippedAmount: decimal.NewFromFloat(amount),
		Status:        status,
	}
}

func testPosting(postingID, invoiceID string, day int, amount float64, transactionType string) *models.LedgerPosting {
	return &models.LedgerPosting{
		PostingID:       postingID,
		InvoiceID:       invoiceID,
		PostingDate:     testDate(day),
		Amount:          decimal.NewFromFloat(amount),
		Account:         "revenue",
		TransactionType: transactionType,
	}
}

func mustEngine(t *testing.T, config *Config) *Engine {
	t.Helper()

	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func TestNewEngine(t *testing.T) {
	// Nil config selects defaults
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("Expected engine with nil config, got error: %v", err)
	}

	cfg := engine.Config()
	if !cfg.ToleranceAmount.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("Expected default tolerance 0.01, got %s", cfg.ToleranceAmount)
	}
	if cfg.TimingToleranceDays != 5 {
		t.Errorf("Expected default timing tolerance 5, got %d", cfg.TimingToleranceDays)
	}

	// Invalid config is rejected
	bad := &Config{ToleranceAmount: decimal.NewFromInt(-1), TimingToleranceDays: 5}
	if _, err := NewEngine(bad); err == nil {
		t.Error("Expected error for negative tolerance amount")
	}
}

func TestReconcile_CleanMatch(t *testing.T) {
	engine := mustEngine(t, nil)

	orders := []*models.Order{testOrder("O1", 15, 1000.00, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 17, 1000.00, "issued")}

	matches, summary := engine.Reconcile(orders, nil, invoices, nil)

	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	match := matches[0]
	if match.MatchStatus != models.MatchStatusMatched {
		t.Errorf("Expected matched status, got %s", match.MatchStatus)
	}
	if match.ExceptionType != models.ExceptionNone {
		t.Errorf("Expected no exception type, got %s", match.ExceptionType)
	}
	if match.Notes != "OK" {
		t.Errorf("Expected notes 'OK', got '%s'", match.Notes)
	}
	if !match.Difference.IsZero() {
		t.Errorf("Expected zero difference, got %s", match.Difference)
	}

	if summary.MatchedCount != 1 || summary.ExceptionCount != 0 {
		t.Errorf("Expected 1 matched / 0 exceptions, got %d / %d",
			summary.MatchedCount, summary.ExceptionCount)
	}
}

func TestReconcile_WithinTolerance(t *testing.T) {
	engine := mustEngine(t, nil)

	// Difference of exactly 0.01 is within the default tolerance
	orders := []*models.Order{testOrder("O1", 15, 1000.01, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 15, 1000.00, "issued")}

	matches, _ := engine.Reconcile(orders, nil, invoices, nil)

	if matches[0].MatchStatus != models.MatchStatusMatched {
		t.Errorf("Expected matched status for difference within tolerance, got %s", matches[0].MatchStatus)
	}
}

func TestReconcile_AmountMismatch(t *testing.T) {
	engine := mustEngine(t, nil)

	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 15, 900, "issued")}

	matches, summary := engine.Reconcile(orders, nil, invoices, nil)

	match := matches[0]
	if match.MatchStatus != models.MatchStatusException {
		t.Fatalf("Expected exception status, got %s", match.MatchStatus)
	}
	if match.ExceptionType != models.ExceptionAmountMismatch {
		t.Errorf("Expected amount_mismatch, got %s", match.ExceptionType)
	}
	if match.Notes != "Amount mismatch: order $1000 vs invoice $900" {
		t.Errorf("Unexpected notes: '%s'", match.Notes)
	}
	if !match.Difference.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected difference 100, got %s", match.Difference)
	}

	if summary.AmountMismatches != 1 {
		t.Errorf("Expected 1 amount mismatch in summary, got %d", summary.AmountMismatches)
	}
}

func TestReconcile_PartialFulfillment(t *testing.T) {
	engine := mustEngine(t, nil)

	// Invoice bills only what actually shipped
	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 16, 500, "issued")}
	shipments := []*models.Shipment{testShipment("S1", "O1", 15, 500, "delivered")}

	matches, summary := engine.Reconcile(orders, shipments, invoices, nil)

	match := matches[0]
	if match.ExceptionType != models.ExceptionPartialFulfillment {
		t.Fatalf("Expected partial_fulfillment, got %s", match.ExceptionType)
	}
	if match.Notes != "Partial fulfillment: shipped $500, invoiced $500" {
		t.Errorf("Unexpected notes: '%s'", match.Notes)
	}

	if summary.PartialFulfillments != 1 {
		t.Errorf("Expected 1 partial fulfillment in summary, got %d", summary.PartialFulfillments)
	}
}

func TestReconcile_ReturnedShipmentsExcluded(t *testing.T) {
	engine := mustEngine(t, nil)

	// The returned shipment must not count toward the fulfilled total
	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 16, 600, "issued")}
	shipments := []*models.Shipment{
		testShipment("S1", "O1", 15, 600, "delivered"),
		testShipment("S2", "O1", 16, 400, "returned"),
	}

	matches, _ := engine.Reconcile(orders, shipments, invoices, nil)

	if matches[0].ExceptionType != models.ExceptionPartialFulfillment {
		t.Errorf("Expected partial_fulfillment with returned shipment excluded, got %s",
			matches[0].ExceptionType)
	}
}

func TestReconcile_RefundDetected(t *testing.T) {
	engine := mustEngine(t, nil)

	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 16, 800, "issued")}
	postings := []*models.LedgerPosting{
		testPosting("P1", "I1", 16, 1000, models.PostingTypeDebit),
		testPosting("P2", "I1", 18, 200, models.PostingTypeRefund),
	}

	matches, summary := engine.Reconcile(orders, nil, invoices, postings)

	match := matches[0]
	if match.ExceptionType != models.ExceptionRefund {
		t.Fatalf("Expected refund, got %s", match.ExceptionType)
	}
	if match.Notes != "Refund detected: net amount after refunds $800" {
		t.Errorf("Unexpected notes: '%s'", match.Notes)
	}

	if summary.Refunds != 1 {
		t.Errorf("Expected 1 refund in summary, got %d", summary.Refunds)
	}
}

func TestReconcile_PartialFulfillmentBeatsRefund(t *testing.T) {
	engine := mustEngine(t, nil)

	// Both conditions hold; partial fulfillment wins
	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 16, 500, "issued")}
	shipments := []*models.Shipment{testShipment("S1", "O1", 15, 500, "delivered")}
	postings := []*models.LedgerPosting{
		testPosting("P1", "I1", 16, 500, models.PostingTypeDebit),
		testPosting("P2", "I1", 18, 100, models.PostingTypeRefund),
	}

	matches, _ := engine.Reconcile(orders, shipments, invoices, postings)

	if matches[0].ExceptionType != models.ExceptionPartialFulfillment {
		t.Errorf("Expected partial_fulfillment to win, got %s", matches[0].ExceptionType)
	}
}

func TestReconcile_TimingException(t *testing.T) {
	engine := mustEngine(t, nil)

	// 19 whole days between order and invoice, amounts equal
	orders := []*models.Order{testOrder("O1", 1, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 20, 1000, "issued")}

	matches, summary := engine.Reconcile(orders, nil, invoices, nil)

	match := matches[0]
	if match.MatchStatus != models.MatchStatusException {
		t.Fatalf("Expected exception status, got %s", match.MatchStatus)
	}
	if match.ExceptionType != models.ExceptionTiming {
		t.Errorf("Expected timing, got %s", match.ExceptionType)
	}
	if match.Notes != "Timing issue: 19 days between order and invoice" {
		t.Errorf("Unexpected notes: '%s'", match.Notes)
	}

	if summary.TimingExceptions != 1 {
		t.Errorf("Expected 1 timing exception in summary, got %d", summary.TimingExceptions)
	}
}

func TestReconcile_AmountBeatsTiming(t *testing.T) {
	engine := mustEngine(t, nil)

	// Both amount mismatch and timing issue; the amount class wins the
	// exception type but both notes are recorded
	orders := []*models.Order{testOrder("O1", 1, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 20, 900, "issued")}

	matches, _ := engine.Reconcile(orders, nil, invoices, nil)

	match := matches[0]
	if match.ExceptionType != models.ExceptionAmountMismatch {
		t.Errorf("Expected amount_mismatch to win, got %s", match.ExceptionType)
	}
	if !strings.Contains(match.Notes, "Amount mismatch") {
		t.Errorf("Expected amount mismatch note, got '%s'", match.Notes)
	}
	if !strings.Contains(match.Notes, "Timing issue: 19 days") {
		t.Errorf("Expected timing note, got '%s'", match.Notes)
	}
}

func TestReconcile_CancelledOverridesEverything(t *testing.T) {
	engine := mustEngine(t, nil)

	// Amount mismatch, timing issue, and a cancelled order
	orders := []*models.Order{testOrder("O1", 1, 1000, models.StatusCancelled)}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 20, 900, "issued")}

	matches, summary := engine.Reconcile(orders, nil, invoices, nil)

	match := matches[0]
	if match.ExceptionType != models.ExceptionCancelled {
		t.Fatalf("Expected cancelled to override, got %s", match.ExceptionType)
	}
	if !strings.Contains(match.Notes, "Cancelled: order status=cancelled, invoice status=issued") {
		t.Errorf("Expected cancellation note, got '%s'", match.Notes)
	}
	if !strings.Contains(match.Notes, "Amount mismatch") {
		t.Errorf("Expected accumulated amount note, got '%s'", match.Notes)
	}

	if summary.CancelledExceptions != 1 {
		t.Errorf("Expected 1 cancelled exception in summary, got %d", summary.CancelledExceptions)
	}
}

func TestReconcile_CancelledInvoice(t *testing.T) {
	engine := mustEngine(t, nil)

	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 15, 1000, models.StatusCancelled)}

	matches, _ := engine.Reconcile(orders, nil, invoices, nil)

	if matches[0].ExceptionType != models.ExceptionCancelled {
		t.Errorf("Expected cancelled for cancelled invoice, got %s", matches[0].ExceptionType)
	}
}

func TestReconcile_MissingInvoice(t *testing.T) {
	engine := mustEngine(t, nil)

	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}

	matches, summary := engine.Reconcile(orders, nil, nil, nil)

	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	match := matches[0]
	if match.ExceptionType != models.ExceptionMissingInvoice {
		t.Errorf("Expected missing_invoice, got %s", match.ExceptionType)
	}
	if match.InvoiceID != "" {
		t.Errorf("Expected empty invoice ID, got '%s'", match.InvoiceID)
	}
	if !match.FinancialAmount.IsZero() {
		t.Errorf("Expected zero financial amount, got %s", match.FinancialAmount)
	}
	if !match.Difference.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected difference 1000, got %s", match.Difference)
	}
	if match.Notes != "No invoice found for order O1" {
		t.Errorf("Unexpected notes: '%s'", match.Notes)
	}

	if summary.MissingInvoices != 1 {
		t.Errorf("Expected 1 missing invoice in summary, got %d", summary.MissingInvoices)
	}
}

func TestReconcile_MissingOrder(t *testing.T) {
	engine := mustEngine(t, nil)

	invoices := []*models.Invoice{testInvoice("I1", "O404", 15, 500, "issued")}

	matches, summary := engine.Reconcile(nil, nil, invoices, nil)

	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	match := matches[0]
	if match.ExceptionType != models.ExceptionMissingOrder {
		t.Errorf("Expected missing_order, got %s", match.ExceptionType)
	}
	if match.OrderID != "O404" {
		t.Errorf("Expected order ID from invoice, got '%s'", match.OrderID)
	}
	if !match.OperationalAmount.IsZero() {
		t.Errorf("Expected zero operational amount, got %s", match.OperationalAmount)
	}
	if !match.Difference.Equal(decimal.NewFromInt(-500)) {
		t.Errorf("Expected difference -500, got %s", match.Difference)
	}
	if match.Notes != "No order found for invoice I1" {
		t.Errorf("Unexpected notes: '%s'", match.Notes)
	}

	if summary.MissingOrders != 1 {
		t.Errorf("Expected 1 missing order in summary, got %d", summary.MissingOrders)
	}
}

func TestReconcile_DuplicateInvoicesLastWins(t *testing.T) {
	engine := mustEngine(t, nil)

	// Two invoices reference the same order: the later one in input order
	// pairs with the order, the earlier one surfaces as missing_order
	orders := []*models.Order{testOrder("O1", 15, 1000, "completed")}
	invoices := []*models.Invoice{
		testInvoice("I1", "O1", 15, 900, "issued"),
		testInvoice("I2", "O1", 15, 1000, "issued"),
	}

	matches, _ := engine.Reconcile(orders, nil, invoices, nil)

	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}

	if matches[0].InvoiceID != "I2" {
		t.Errorf("Expected order to pair with I2, got %s", matches[0].InvoiceID)
	}
	if matches[0].MatchStatus != models.MatchStatusMatched {
		t.Errorf("Expected paired invoice to match, got %s", matches[0].MatchStatus)
	}

	if matches[1].InvoiceID != "I1" {
		t.Errorf("Expected I1 as unclaimed invoice, got %s", matches[1].InvoiceID)
	}
	if matches[1].ExceptionType != models.ExceptionMissingOrder {
		t.Errorf("Expected missing_order for unclaimed invoice, got %s", matches[1].ExceptionType)
	}
}

func TestReconcile_MatchCountInvariant(t *testing.T) {
	engine := mustEngine(t, nil)

	orders := []*models.Order{
		testOrder("O1", 15, 100, "completed"),
		testOrder("O2", 15, 200, "completed"),
		testOrder("O3", 15, 300, "completed"),
	}
	invoices := []*models.Invoice{
		testInvoice("I1", "O1", 15, 100, "issued"),
		testInvoice("I2", "O999", 15, 50, "issued"),
		testInvoice("I3", "O998", 15, 60, "issued"),
	}

	matches, _ := engine.Reconcile(orders, nil, invoices, nil)

	// One match per order plus one per unclaimed invoice
	expected := len(orders) + 2
	if len(matches) != expected {
		t.Errorf("Expected %d matches, got %d", expected, len(matches))
	}

	// Order matches come first, in input order
	for i, order := range orders {
		if matches[i].OrderID != order.OrderID {
			t.Errorf("Expected match %d for order %s, got %s", i, order.OrderID, matches[i].OrderID)
		}
	}
}

func TestReconcile_SummaryTotals(t *testing.T) {
	engine := mustEngine(t, nil)

	orders := []*models.Order{
		testOrder("O1", 15, 100.50, "completed"),
		testOrder("O2", 15, 200.25, "completed"),
	}
	invoices := []*models.Invoice{
		testInvoice("I1", "O1", 15, 100.50, "issued"),
		testInvoice("I2", "O999", 15, 75.00, "issued"),
	}

	_, summary := engine.Reconcile(orders, nil, invoices, nil)

	if summary.TotalOrders != 2 || summary.TotalInvoices != 2 {
		t.Errorf("Expected 2 orders / 2 invoices, got %d / %d",
			summary.TotalOrders, summary.TotalInvoices)
	}

	// Totals are sums over the input lists, independent of pairing
	expectedOperational := decimal.NewFromFloat(300.75)
	if !summary.TotalOperationalAmount.Equal(expectedOperational) {
		t.Errorf("Expected operational total %s, got %s",
			expectedOperational, summary.TotalOperationalAmount)
	}

	expectedFinancial := decimal.NewFromFloat(175.50)
	if !summary.TotalFinancialAmount.Equal(expectedFinancial) {
		t.Errorf("Expected financial total %s, got %s",
			expectedFinancial, summary.TotalFinancialAmount)
	}

	expectedDifference := decimal.NewFromFloat(125.25)
	if !summary.TotalDifference.Equal(expectedDifference) {
		t.Errorf("Expected total difference %s, got %s",
			expectedDifference, summary.TotalDifference)
	}
}

func TestReconcile_EmptyInputs(t *testing.T) {
	engine := mustEngine(t, nil)

	matches, summary := engine.Reconcile(nil, nil, nil, nil)

	if len(matches) != 0 {
		t.Errorf("Expected no matches for empty inputs, got %d", len(matches))
	}
	if summary.TotalOrders != 0 || summary.TotalInvoices != 0 {
		t.Errorf("Expected zero counts, got %d orders / %d invoices",
			summary.TotalOrders, summary.TotalInvoices)
	}
	if !summary.TotalDifference.IsZero() {
		t.Errorf("Expected zero total difference, got %s", summary.TotalDifference)
	}
}

func TestReconcile_StrictConfig(t *testing.T) {
	engine := mustEngine(t, StrictConfig())

	// A one-cent difference is an exception under strict tolerances
	orders := []*models.Order{testOrder("O1", 15, 100.01, "completed")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 15, 100.00, "issued")}

	matches, _ := engine.Reconcile(orders, nil, invoices, nil)

	if matches[0].ExceptionType != models.ExceptionAmountMismatch {
		t.Errorf("Expected amount_mismatch under strict config, got %s", matches[0].ExceptionType)
	}
}
