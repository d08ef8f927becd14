// Package engine implements the core reconciliation between operational
// records (orders, shipments) and financial records (invoices, ledger
// postings).
//
// The engine pairs each order with the invoice sharing its order ID, applies
// amount and timing tolerances, and classifies every pairing as matched or as
// one of the exception types:
//   - missing_invoice / missing_order for one-sided records
//   - partial_fulfillment when shipments explain the invoiced amount
//   - refund when ledger postings show money flowing back
//   - amount_mismatch for unexplained amount differences
//   - timing for date gaps beyond tolerance
//   - cancelled when either side has been cancelled
//
// Classification is prioritized: amount-based exceptions beat timing, and a
// cancellation on either side overrides everything else. Notes accumulate
// across all triggered checks so reviewers see the full picture even when
// only the highest-priority type is recorded.
//
// Example usage:
//
//	cfg := engine.DefaultConfig()
//	cfg.TimingToleranceDays = 10
//
//	eng, err := engine.NewEngine(cfg)
//	matches, summary := eng.Reconcile(orders, shipments, invoices, postings)
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the tolerance parameters for reconciliation. A Config is
// fixed at engine construction time; Reconcile never mutates it, so one
// engine can serve any number of runs.
type Config struct {
	// ToleranceAmount is the maximum absolute amount difference between an
	// order and its invoice that still counts as a match
	ToleranceAmount decimal.Decimal `json:"tolerance_amount"`

	// TimingToleranceDays is the maximum whole-day gap between order date and
	// invoice date that still counts as timely
	TimingToleranceDays int `json:"timing_tolerance_days"`
}

// DefaultConfig returns a configuration with the standard back-office
// tolerances: one cent and five days.
func DefaultConfig() *Config {
	return &Config{
		ToleranceAmount:     decimal.NewFromFloat(0.01),
		TimingToleranceDays: 5,
	}
}

// StrictConfig returns a configuration that requires exact amounts and
// same-day invoicing
func StrictConfig() *Config {
	return &Config{
		ToleranceAmount:     decimal.Zero,
		TimingToleranceDays: 0,
	}
}

// RelaxedConfig returns a configuration for exploratory reconciliation of
// low-quality data
func RelaxedConfig() *Config {
	return &Config{
		ToleranceAmount:     decimal.NewFromInt(1),
		TimingToleranceDays: 30,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ToleranceAmount.IsNegative() {
		return fmt.Errorf("tolerance amount cannot be negative: %s", c.ToleranceAmount.String())
	}

	if c.TimingToleranceDays < 0 {
		return fmt.Errorf("timing tolerance days cannot be negative: %d", c.TimingToleranceDays)
	}

	return nil
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	return &Config{
		ToleranceAmount:     c.ToleranceAmount,
		TimingToleranceDays: c.TimingToleranceDays,
	}
}

// WithinAmountTolerance reports whether two amounts differ by no more than
// the configured amount tolerance
func (c *Config) WithinAmountTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(c.ToleranceAmount)
}

// DateGapDays returns the absolute gap between two dates in whole days
func DateGapDays(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// WithinTimingTolerance reports whether two dates fall within the configured
// day tolerance
func (c *Config) WithinTimingTolerance(a, b time.Time) bool {
	return DateGapDays(a, b) <= c.TimingToleranceDays
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{ToleranceAmount: %s, TimingToleranceDays: %d}",
		c.ToleranceAmount.String(), c.TimingToleranceDays)
}
