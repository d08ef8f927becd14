package engine

import (
	"testing"

	"finops-reconciliation-pipeline/internal/models"
)

func TestInvoiceIndex(t *testing.T) {
	invoices := []*models.Invoice{
		testInvoice("I1", "O1", 15, 100, "issued"),
		testInvoice("I2", "O2", 15, 200, "issued"),
	}

	index := NewInvoiceIndex(invoices)

	if len(index.AllInvoices) != 2 {
		t.Errorf("Expected 2 invoices in index, got %d", len(index.AllInvoices))
	}

	if inv := index.ForOrder("O1"); inv == nil || inv.InvoiceID != "I1" {
		t.Errorf("Expected I1 for order O1, got %v", inv)
	}

	if inv := index.ForOrder("O404"); inv != nil {
		t.Errorf("Expected nil for unknown order, got %v", inv)
	}
}

func TestInvoiceIndex_LastWins(t *testing.T) {
	invoices := []*models.Invoice{
		testInvoice("I1", "O1", 15, 100, "issued"),
		testInvoice("I2", "O1", 15, 150, "issued"),
		testInvoice("I3", "O1", 15, 200, "issued"),
	}

	index := NewInvoiceIndex(invoices)

	if inv := index.ForOrder("O1"); inv == nil || inv.InvoiceID != "I3" {
		t.Errorf("Expected the last invoice I3 for order O1, got %v", inv)
	}

	// The index keeps every invoice even when one replaces another
	if len(index.AllInvoices) != 3 {
		t.Errorf("Expected all 3 invoices retained, got %d", len(index.AllInvoices))
	}
}

func TestShipmentIndex(t *testing.T) {
	shipments := []*models.Shipment{
		testShipment("S1", "O1", 15, 100, "delivered"),
		testShipment("S2", "O1", 16, 200, "delivered"),
		testShipment("S3", "O2", 15, 300, "delivered"),
	}

	index := NewShipmentIndex(shipments)

	forO1 := index.ForOrder("O1")
	if len(forO1) != 2 {
		t.Fatalf("Expected 2 shipments for O1, got %d", len(forO1))
	}

	// Input order preserved within a group
	if forO1[0].ShipmentID != "S1" || forO1[1].ShipmentID != "S2" {
		t.Errorf("Expected shipments in input order, got %s, %s",
			forO1[0].ShipmentID, forO1[1].ShipmentID)
	}

	if got := index.ForOrder("O404"); got != nil {
		t.Errorf("Expected nil for unknown order, got %v", got)
	}
}

func TestLedgerIndex(t *testing.T) {
	postings := []*models.LedgerPosting{
		testPosting("P1", "I1", 15, 100, models.PostingTypeDebit),
		testPosting("P2", "I1", 16, 20, models.PostingTypeRefund),
		testPosting("P3", "I2", 15, 300, models.PostingTypeCredit),
	}

	index := NewLedgerIndex(postings)

	forI1 := index.ForInvoice("I1")
	if len(forI1) != 2 {
		t.Fatalf("Expected 2 postings for I1, got %d", len(forI1))
	}
	if forI1[0].PostingID != "P1" || forI1[1].PostingID != "P2" {
		t.Errorf("Expected postings in input order, got %s, %s",
			forI1[0].PostingID, forI1[1].PostingID)
	}
}

func TestCollectIndexStats(t *testing.T) {
	engine := mustEngine(t, nil)

	shipments := []*models.Shipment{testShipment("S1", "O1", 15, 100, "delivered")}
	invoices := []*models.Invoice{testInvoice("I1", "O1", 15, 100, "issued")}
	postings := []*models.LedgerPosting{testPosting("P1", "I1", 15, 100, models.PostingTypeDebit)}

	stats := engine.Stats(shipments, invoices, postings)

	if stats.Invoices != 1 || stats.Shipments != 1 || stats.Postings != 1 {
		t.Errorf("Unexpected index stats: %+v", stats)
	}
}
