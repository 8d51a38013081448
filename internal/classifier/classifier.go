// Package classifier assigns match verdicts. It operates in two granularities:
// aggregate classification compares a vendor group's summed totals under a
// tolerance, and row-level classification walks individual invoices against
// date-windowed bank transaction candidates.
package classifier

import (
	"fmt"
	"sort"

	"invoice-reconciliation-service/internal/aggregator"
	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Config controls verdict assignment
type Config struct {
	// Tolerance is the exclusive bound on |invoiced - banked| for a group to
	// count as matched. A difference equal to the tolerance is a mismatch.
	Tolerance decimal.Decimal `json:"tolerance"`

	// ExactWindowDays is the calendar-day window for a row-level exact match
	ExactWindowDays int `json:"exact_window_days"`

	// LooseWindowDays is the calendar-day window for a row-level partial match
	LooseWindowDays int `json:"loose_window_days"`
}

// DefaultConfig returns the standard classification settings
func DefaultConfig() *Config {
	return &Config{
		Tolerance:       models.DefaultTolerance,
		ExactWindowDays: 1,
		LooseWindowDays: 3,
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative: %s", c.Tolerance)
	}
	if c.ExactWindowDays < 0 {
		return fmt.Errorf("exact window days cannot be negative: %d", c.ExactWindowDays)
	}
	if c.LooseWindowDays < c.ExactWindowDays {
		return fmt.Errorf("loose window days (%d) cannot be smaller than exact window days (%d)",
			c.LooseWindowDays, c.ExactWindowDays)
	}
	return nil
}

// Clone returns a copy of the configuration
func (c *Config) Clone() *Config {
	return &Config{
		Tolerance:       c.Tolerance,
		ExactWindowDays: c.ExactWindowDays,
		LooseWindowDays: c.LooseWindowDays,
	}
}

// RowVerdict is the row-level classification of a single invoice
type RowVerdict struct {
	Invoice      *models.InvoiceRecord   `json:"invoice"`
	CanonicalKey string                  `json:"canonical_key"`
	Verdict      models.Verdict          `json:"verdict"`
	Matched      *models.BankTransaction `json:"matched,omitempty"`
}

// Classifier assigns verdicts to vendor groups and invoice rows
type Classifier struct {
	config *Config
}

// New creates a Classifier with the given configuration
func New(config *Config) (*Classifier, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier config: %w", err)
	}
	return &Classifier{config: config}, nil
}

// ClassifyGroup assigns a binary verdict to a vendor group: matched when the
// absolute difference between the two totals is strictly under the tolerance,
// unmatched otherwise. The verdict is stored on the group and returned.
func (c *Classifier) ClassifyGroup(group *models.VendorGroup) models.Verdict {
	if models.CompareAmountsWithTolerance(group.TotalInvoiced, group.TotalBanked, c.config.Tolerance) {
		group.Verdict = models.VerdictMatched
	} else {
		group.Verdict = models.VerdictUnmatched
	}
	return group.Verdict
}

// ClassifyGroups assigns verdicts to every group in the map
func (c *Classifier) ClassifyGroups(groups map[string]*models.VendorGroup) {
	for _, group := range groups {
		c.ClassifyGroup(group)
	}
}

// ClassifyRows assigns a verdict to each invoice against the indexed bank
// transactions. An invoice is matched when an unconsumed transaction under
// the same key carries the exact amount within the exact window, partially
// matched when any transaction under the key falls in the loose window, and
// unmatched otherwise. Each exact match consumes its bank transaction so two
// invoices cannot claim the same one. Invoices are processed in date order,
// ties broken by vendor name, so results do not depend on input ordering.
func (c *Classifier) ClassifyRows(
	invoices []*models.InvoiceRecord,
	index *aggregator.BankTransactionIndex,
	keyFn aggregator.KeyFunc,
) []*RowVerdict {

	ordered := make([]*models.InvoiceRecord, len(invoices))
	copy(ordered, invoices)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].VendorName < ordered[j].VendorName
	})

	consumed := make(map[*models.BankTransaction]bool)
	results := make([]*RowVerdict, 0, len(ordered))

	for _, inv := range ordered {
		key := keyFn(inv.VendorName, models.SideInvoice)
		row := &RowVerdict{
			Invoice:      inv,
			CanonicalKey: key,
			Verdict:      models.VerdictUnmatched,
		}

		if key != "" {
			if match := c.findExactMatch(inv, key, index, consumed); match != nil {
				consumed[match] = true
				row.Verdict = models.VerdictMatched
				row.Matched = match
			} else if len(index.Candidates(key, inv.Date, c.config.LooseWindowDays)) > 0 {
				row.Verdict = models.VerdictPartiallyMatched
			}
		}

		results = append(results, row)
	}

	return results
}

// findExactMatch locates the earliest unconsumed transaction under the key
// with the exact invoice amount inside the exact window
func (c *Classifier) findExactMatch(
	inv *models.InvoiceRecord,
	key string,
	index *aggregator.BankTransactionIndex,
	consumed map[*models.BankTransaction]bool,
) *models.BankTransaction {

	candidates := index.Candidates(key, inv.Date, c.config.ExactWindowDays)
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Date.Before(candidates[j].Date)
	})

	for _, tx := range candidates {
		if consumed[tx] {
			continue
		}
		if tx.Amount.Abs().Equal(inv.TotalAmount.Abs()) {
			return tx
		}
	}
	return nil
}
