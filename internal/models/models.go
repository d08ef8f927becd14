package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known status and transaction type values. Status fields are free-form
// strings; the engine only attaches meaning to the values below and tolerates
// anything else.
const (
	StatusCancelled = "cancelled"
	StatusReturned  = "returned"

	PostingTypeDebit  = "debit"
	PostingTypeCredit = "credit"
	PostingTypeRefund = "refund"
)

// Order represents an operational order record.
type Order struct {
	OrderID    string          `json:"order_id" csv:"order_id"`
	CustomerID string          `json:"customer_id" csv:"customer_id"`
	OrderDate  time.Time       `json:"order_date" csv:"order_date"`
	Amount     decimal.Decimal `json:"amount" csv:"amount"`
	Status     string          `json:"status" csv:"status"`
}

// NewOrder creates a new Order instance
func NewOrder(orderID, customerID string, orderDate time.Time, amount decimal.Decimal, status string) *Order {
	return &Order{
		OrderID:    orderID,
		CustomerID: customerID,
		OrderDate:  orderDate,
		Amount:     amount,
		Status:     status,
	}
}

// Validate performs basic validation on the Order
func (o *Order) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return fmt.Errorf("order ID cannot be empty")
	}

	if strings.TrimSpace(o.CustomerID) == "" {
		return fmt.Errorf("customer ID cannot be empty")
	}

	if o.OrderDate.IsZero() {
		return fmt.Errorf("order date cannot be zero")
	}

	if strings.TrimSpace(o.Status) == "" {
		return fmt.Errorf("order status cannot be empty")
	}

	return nil
}

// IsCancelled returns true if the order has been cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// String returns a string representation of the Order
func (o *Order) String() string {
	return fmt.Sprintf("Order{ID: %s, Customer: %s, Amount: %s, Date: %s, Status: %s}",
		o.OrderID, o.CustomerID, o.Amount.String(), o.OrderDate.Format("2006-01-02"), o.Status)
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	type Alias Order
	return json.Marshal(&struct {
		Amount    string `json:"amount"`
		OrderDate string `json:"order_date"`
		*Alias
	}{
		Amount:    o.Amount.String(),
		OrderDate: o.OrderDate.Format("2006-01-02"),
		Alias:     (*Alias)(o),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	type Alias Order
	aux := &struct {
		Amount    string `json:"amount"`
		OrderDate string `json:"order_date"`
		*Alias
	}{
		Alias: (*Alias)(o),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	o.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	o.OrderDate, err = ParseDateWithFormats(aux.OrderDate)
	if err != nil {
		return fmt.Errorf("invalid order date format: %w", err)
	}

	return nil
}

// Shipment represents an operational shipment record. The order ID is a
// foreign key into the order set but is not required to resolve.
type Shipment struct {
	ShipmentID    string          `json:"shipment_id" csv:"shipment_id"`
	OrderID       string          `json:"order_id" csv:"order_id"`
	ShipmentDate  time.Time       `json:"shipment_date" csv:"shipment_date"`
	ShippedAmount decimal.Decimal `json:"shipped_amount" csv:"shipped_amount"`
	Status        string          `json:"status" csv:"status"`
}

// NewShipment creates a new Shipment instance
func NewShipment(shipmentID, orderID string, shipmentDate time.Time, shippedAmount decimal.Decimal, status string) *Shipment {
	return &Shipment{
		ShipmentID:    shipmentID,
		OrderID:       orderID,
		ShipmentDate:  shipmentDate,
		ShippedAmount: shippedAmount,
		Status:        status,
	}
}

// Validate performs basic validation on the Shipment
func (s *Shipment) Validate() error {
	if strings.TrimSpace(s.ShipmentID) == "" {
		return fmt.Errorf("shipment ID cannot be empty")
	}

	if strings.TrimSpace(s.OrderID) == "" {
		return fmt.Errorf("shipment order ID cannot be empty")
	}

	if s.ShipmentDate.IsZero() {
		return fmt.Errorf("shipment date cannot be zero")
	}

	if strings.TrimSpace(s.Status) == "" {
		return fmt.Errorf("shipment status cannot be empty")
	}

	return nil
}

// IsReturned returns true if the shipment was returned. Returned shipments do
// not count toward the fulfilled total during reconciliation.
func (s *Shipment) IsReturned() bool {
	return s.Status == StatusReturned
}

// String returns a string representation of the Shipment
func (s *Shipment) String() string {
	return fmt.Sprintf("Shipment{ID: %s, Order: %s, Amount: %s, Date: %s, Status: %s}",
		s.ShipmentID, s.OrderID, s.ShippedAmount.String(), s.ShipmentDate.Format("2006-01-02"), s.Status)
}

// MarshalJSON implements custom JSON marshaling for Shipment
func (s *Shipment) MarshalJSON() ([]byte, error) {
	type Alias Shipment
	return json.Marshal(&struct {
		ShippedAmount string `json:"shipped_amount"`
		ShipmentDate  string `json:"shipment_date"`
		*Alias
	}{
		ShippedAmount: s.ShippedAmount.String(),
		ShipmentDate:  s.ShipmentDate.Format("2006-01-02"),
		Alias:         (*Alias)(s),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Shipment
func (s *Shipment) UnmarshalJSON(data []byte) error {
	type Alias Shipment
	aux := &struct {
		ShippedAmount string `json:"shipped_amount"`
		ShipmentDate  string `json:"shipment_date"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	s.ShippedAmount, err = decimal.NewFromString(aux.ShippedAmount)
	if err != nil {
		return fmt.Errorf("invalid shipped amount format: %w", err)
	}

	s.ShipmentDate, err = ParseDateWithFormats(aux.ShipmentDate)
	if err != nil {
		return fmt.Errorf("invalid shipment date format: %w", err)
	}

	return nil
}

// Invoice represents a financial invoice record
type Invoice struct {
	InvoiceID   string          `json:"invoice_id" csv:"invoice_id"`
	OrderID     string          `json:"order_id" csv:"order_id"`
	CustomerID  string          `json:"customer_id" csv:"customer_id"`
	InvoiceDate time.Time       `json:"invoice_date" csv:"invoice_date"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
	Status      string          `json:"status" csv:"status"`
}

// NewInvoice creates a new Invoice instance
func NewInvoice(invoiceID, orderID, customerID string, invoiceDate time.Time, amount decimal.Decimal, status string) *Invoice {
	return &Invoice{
		InvoiceID:   invoiceID,
		OrderID:     orderID,
		CustomerID:  customerID,
		InvoiceDate: invoiceDate,
		Amount:      amount,
		Status:      status,
	}
}

// Validate performs basic validation on the Invoice
func (i *Invoice) Validate() error {
	if strings.TrimSpace(i.InvoiceID) == "" {
		return fmt.Errorf("invoice ID cannot be empty")
	}

	if strings.TrimSpace(i.OrderID) == "" {
		return fmt.Errorf("invoice order ID cannot be empty")
	}

	if i.InvoiceDate.IsZero() {
		return fmt.Errorf("invoice date cannot be zero")
	}

	if strings.TrimSpace(i.Status) == "" {
		return fmt.Errorf("invoice status cannot be empty")
	}

	return nil
}

// IsCancelled returns true if the invoice has been cancelled
func (i *Invoice) IsCancelled() bool {
	return i.Status == StatusCancelled
}

// String returns a string representation of the Invoice
func (i *Invoice) String() string {
	return fmt.Sprintf("Invoice{ID: %s, Order: %s, Amount: %s, Date: %s, Status: %s}",
		i.InvoiceID, i.OrderID, i.Amount.String(), i.InvoiceDate.Format("2006-01-02"), i.Status)
}

// MarshalJSON implements custom JSON marshaling for Invoice
func (i *Invoice) MarshalJSON() ([]byte, error) {
	type Alias Invoice
	return json.Marshal(&struct {
		Amount      string `json:"amount"`
		InvoiceDate string `json:"invoice_date"`
		*Alias
	}{
		Amount:      i.Amount.String(),
		InvoiceDate: i.InvoiceDate.Format("2006-01-02"),
		Alias:       (*Alias)(i),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Invoice
func (i *Invoice) UnmarshalJSON(data []byte) error {
	type Alias Invoice
	aux := &struct {
		Amount      string `json:"amount"`
		InvoiceDate string `json:"invoice_date"`
		*Alias
	}{
		Alias: (*Alias)(i),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	i.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	i.InvoiceDate, err = ParseDateWithFormats(aux.InvoiceDate)
	if err != nil {
		return fmt.Errorf("invalid invoice date format: %w", err)
	}

	return nil
}

// LedgerPosting represents a financial ledger posting. Amounts are recorded
// non-negative; the transaction type determines the sign during netting.
type LedgerPosting struct {
	PostingID       string          `json:"posting_id" csv:"posting_id"`
	InvoiceID       string          `json:"invoice_id" csv:"invoice_id"`
	PostingDate     time.Time       `json:"posting_date" csv:"posting_date"`
	Amount          decimal.Decimal `json:"amount" csv:"amount"`
	Account         string          `json:"account" csv:"account"`
	TransactionType string          `json:"transaction_type" csv:"transaction_type"`
}

// NewLedgerPosting creates a new LedgerPosting instance
func NewLedgerPosting(postingID, invoiceID string, postingDate time.Time, amount decimal.Decimal, account, transactionType string) *LedgerPosting {
	return &LedgerPosting{
		PostingID:       postingID,
		InvoiceID:       invoiceID,
		PostingDate:     postingDate,
		Amount:          amount,
		Account:         account,
		TransactionType: transactionType,
	}
}

// Validate performs basic validation on the LedgerPosting
func (p *LedgerPosting) Validate() error {
	if strings.TrimSpace(p.PostingID) == "" {
		return fmt.Errorf("posting ID cannot be empty")
	}

	if strings.TrimSpace(p.InvoiceID) == "" {
		return fmt.Errorf("posting invoice ID cannot be empty")
	}

	if p.PostingDate.IsZero() {
		return fmt.Errorf("posting date cannot be zero")
	}

	if p.Amount.IsNegative() {
		return fmt.Errorf("posting amount cannot be negative: %s", p.Amount.String())
	}

	if strings.TrimSpace(p.TransactionType) == "" {
		return fmt.Errorf("posting transaction type cannot be empty")
	}

	return nil
}

// IsRefund returns true if the posting reverses money already collected
func (p *LedgerPosting) IsRefund() bool {
	return p.TransactionType == PostingTypeRefund
}

// String returns a string representation of the LedgerPosting
func (p *LedgerPosting) String() string {
	return fmt.Sprintf("LedgerPosting{ID: %s, Invoice: %s, Amount: %s, Type: %s, Account: %s}",
		p.PostingID, p.InvoiceID, p.Amount.String(), p.TransactionType, p.Account)
}

// MarshalJSON implements custom JSON marshaling for LedgerPosting
func (p *LedgerPosting) MarshalJSON() ([]byte, error) {
	type Alias LedgerPosting
	return json.Marshal(&struct {
		Amount      string `json:"amount"`
		PostingDate string `json:"posting_date"`
		*Alias
	}{
		Amount:      p.Amount.String(),
		PostingDate: p.PostingDate.Format("2006-01-02"),
		Alias:       (*Alias)(p),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for LedgerPosting
func (p *LedgerPosting) UnmarshalJSON(data []byte) error {
	type Alias LedgerPosting
	aux := &struct {
		Amount      string `json:"amount"`
		PostingDate string `json:"posting_date"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	p.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	p.PostingDate, err = ParseDateWithFormats(aux.PostingDate)
	if err != nil {
		return fmt.Errorf("invalid posting date format: %w", err)
	}

	return nil
}

// Utility functions for type conversion and validation

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseDateWithFormats attempts to parse a date from string using multiple common formats
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	// Common date formats used in operational and financial exports
	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"01/02/2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// CreateOrderFromCSV creates an Order from CSV field values
func CreateOrderFromCSV(orderID, customerID, dateStr, amountStr, status string) (*Order, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid order amount: %w", err)
	}

	orderDate, err := ParseDateWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid order date: %w", err)
	}

	order := NewOrder(strings.TrimSpace(orderID), strings.TrimSpace(customerID), orderDate, amount, strings.TrimSpace(status))

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order data: %w", err)
	}

	return order, nil
}

// CreateShipmentFromCSV creates a Shipment from CSV field values
func CreateShipmentFromCSV(shipmentID, orderID, dateStr, amountStr, status string) (*Shipment, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid shipped amount: %w", err)
	}

	shipmentDate, err := ParseDateWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid shipment date: %w", err)
	}

	shipment := NewShipment(strings.TrimSpace(shipmentID), strings.TrimSpace(orderID), shipmentDate, amount, strings.TrimSpace(status))

	if err := shipment.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shipment data: %w", err)
	}

	return shipment, nil
}

// CreateInvoiceFromCSV creates an Invoice from CSV field values
func CreateInvoiceFromCSV(invoiceID, orderID, customerID, dateStr, amountStr, status string) (*Invoice, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice amount: %w", err)
	}

	invoiceDate, err := ParseDateWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice date: %w", err)
	}

	invoice := NewInvoice(strings.TrimSpace(invoiceID), strings.TrimSpace(orderID), strings.TrimSpace(customerID), invoiceDate, amount, strings.TrimSpace(status))

	if err := invoice.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice data: %w", err)
	}

	return invoice, nil
}

// CreateLedgerPostingFromCSV creates a LedgerPosting from CSV field values
func CreateLedgerPostingFromCSV(postingID, invoiceID, dateStr, amountStr, account, transactionType string) (*LedgerPosting, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid posting amount: %w", err)
	}

	postingDate, err := ParseDateWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid posting date: %w", err)
	}

	posting := NewLedgerPosting(strings.TrimSpace(postingID), strings.TrimSpace(invoiceID), postingDate, amount,
		strings.TrimSpace(account), strings.ToLower(strings.TrimSpace(transactionType)))

	if err := posting.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger posting data: %w", err)
	}

	return posting, nil
}
