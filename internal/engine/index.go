package engine

import (
	"finops-reconciliation-pipeline/internal/models"
)

// InvoiceIndex maps order IDs to invoices for pairing lookups.
//
// The order-ID mapping keeps at most one invoice per order: when several
// invoices share an order ID, the last one in input order wins. This
// tie-break is deliberate and pinned by tests; upstream data-quality
// validation is expected to flag the duplicates before they get here.
type InvoiceIndex struct {
	// ByOrderID maps order IDs to the (last) invoice referencing them
	ByOrderID map[string]*models.Invoice

	// AllInvoices holds every indexed invoice in input order
	AllInvoices []*models.Invoice
}

// NewInvoiceIndex creates an invoice index from a slice of invoices
func NewInvoiceIndex(invoices []*models.Invoice) *InvoiceIndex {
	index := &InvoiceIndex{
		ByOrderID:   make(map[string]*models.Invoice, len(invoices)),
		AllInvoices: invoices,
	}

	for _, inv := range invoices {
		index.ByOrderID[inv.OrderID] = inv
	}

	return index
}

// ForOrder returns the invoice paired with the given order ID, or nil
func (ii *InvoiceIndex) ForOrder(orderID string) *models.Invoice {
	return ii.ByOrderID[orderID]
}

// ShipmentIndex groups shipments by the order they fulfill, preserving
// input order within each group.
type ShipmentIndex struct {
	// ByOrderID maps order IDs to their shipments
	ByOrderID map[string][]*models.Shipment

	// AllShipments holds every indexed shipment in input order
	AllShipments []*models.Shipment
}

// NewShipmentIndex creates a shipment index from a slice of shipments
func NewShipmentIndex(shipments []*models.Shipment) *ShipmentIndex {
	index := &ShipmentIndex{
		ByOrderID:    make(map[string][]*models.Shipment),
		AllShipments: shipments,
	}

	for _, sh := range shipments {
		index.ByOrderID[sh.OrderID] = append(index.ByOrderID[sh.OrderID], sh)
	}

	return index
}

// ForOrder returns the shipments referencing the given order ID
func (si *ShipmentIndex) ForOrder(orderID string) []*models.Shipment {
	return si.ByOrderID[orderID]
}

// LedgerIndex groups ledger postings by the invoice they settle, preserving
// input order within each group.
type LedgerIndex struct {
	// ByInvoiceID maps invoice IDs to their postings
	ByInvoiceID map[string][]*models.LedgerPosting

	// AllPostings holds every indexed posting in input order
	AllPostings []*models.LedgerPosting
}

// NewLedgerIndex creates a ledger index from a slice of postings
func NewLedgerIndex(postings []*models.LedgerPosting) *LedgerIndex {
	index := &LedgerIndex{
		ByInvoiceID: make(map[string][]*models.LedgerPosting),
		AllPostings: postings,
	}

	for _, p := range postings {
		index.ByInvoiceID[p.InvoiceID] = append(index.ByInvoiceID[p.InvoiceID], p)
	}

	return index
}

// ForInvoice returns the postings referencing the given invoice ID
func (li *LedgerIndex) ForInvoice(invoiceID string) []*models.LedgerPosting {
	return li.ByInvoiceID[invoiceID]
}

// IndexStats holds statistics about the built indexes
type IndexStats struct {
	Invoices          int `json:"invoices"`
	OrdersWithInvoice int `json:"orders_with_invoice"`
	Shipments         int `json:"shipments"`
	OrdersWithShipped int `json:"orders_with_shipments"`
	Postings          int `json:"postings"`
	InvoicesWithPosts int `json:"invoices_with_postings"`
}

func collectIndexStats(ii *InvoiceIndex, si *ShipmentIndex, li *LedgerIndex) IndexStats {
	return IndexStats{
		Invoices:          len(ii.AllInvoices),
		OrdersWithInvoice: len(ii.ByOrderID),
		Shipments:         len(si.AllShipments),
		OrdersWithShipped: len(si.ByOrderID),
		Postings:          len(li.AllPostings),
		InvoicesWithPosts: len(li.ByInvoiceID),
	}
}
