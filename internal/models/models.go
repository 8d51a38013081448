// Package models defines the record types flowing through the reconciliation
// pipeline: tax invoice lines, bank ledger transactions, and the per-vendor
// groups derived from them. Amounts are KRW values held as decimals; the
// default match tolerance is 1000 currency-minor-units.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceCategory represents the side of a tax invoice
type InvoiceCategory string

const (
	// CategorySale represents a sales invoice (매출)
	CategorySale InvoiceCategory = "SALE"
	// CategoryPurchase represents a purchase invoice (매입)
	CategoryPurchase InvoiceCategory = "PURCHASE"
)

// String returns the string representation of InvoiceCategory
func (c InvoiceCategory) String() string {
	return string(c)
}

// IsValid checks if the invoice category is valid
func (c InvoiceCategory) IsValid() bool {
	return c == CategorySale || c == CategoryPurchase
}

// ParseInvoiceCategory parses an invoice category from string, accepting the
// Korean labels used by tax office exports as aliases
func ParseInvoiceCategory(s string) (InvoiceCategory, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SALE", "SALES", "매출":
		return CategorySale, nil
	case "PURCHASE", "BUY", "매입":
		return CategoryPurchase, nil
	default:
		return "", fmt.Errorf("invalid invoice category '%s': must be sale or purchase", s)
	}
}

// Side identifies which side of the reconciliation a raw vendor name came from
type Side int

const (
	// SideInvoice marks names read from tax invoice records
	SideInvoice Side = iota
	// SideBank marks names read from bank ledger transactions
	SideBank
)

// String returns the string representation of Side
func (s Side) String() string {
	switch s {
	case SideInvoice:
		return "invoice"
	case SideBank:
		return "bank"
	default:
		return "unknown"
	}
}

// Verdict is the classification outcome of comparing invoiced against banked
// amounts for a vendor group or an individual invoice row
type Verdict string

const (
	VerdictMatched          Verdict = "MATCHED"
	VerdictPartiallyMatched Verdict = "PARTIALLY_MATCHED"
	VerdictUnmatched        Verdict = "UNMATCHED"
)

// String returns the string representation of Verdict
func (v Verdict) String() string {
	return string(v)
}

// DefaultTolerance is the maximum absolute difference between invoiced and
// banked sums still counted as a match, in KRW
var DefaultTolerance = decimal.NewFromInt(1000)

// InvoiceRecord represents one line of a tax invoice export. Records are
// immutable once loaded.
type InvoiceRecord struct {
	Date        time.Time       `json:"date"`
	VendorName  string          `json:"vendor_name"`
	TaxID       string          `json:"tax_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Category    InvoiceCategory `json:"category"`
}

// NewInvoiceRecord creates a new InvoiceRecord instance
func NewInvoiceRecord(date time.Time, vendorName string, amount decimal.Decimal, category InvoiceCategory) *InvoiceRecord {
	return &InvoiceRecord{
		Date:        date,
		VendorName:  vendorName,
		TotalAmount: amount,
		Category:    category,
	}
}

// Validate performs basic validation on the InvoiceRecord
func (r *InvoiceRecord) Validate() error {
	if strings.TrimSpace(r.VendorName) == "" {
		return fmt.Errorf("invoice vendor name cannot be empty")
	}

	if r.Date.IsZero() {
		return fmt.Errorf("invoice date cannot be zero")
	}

	if !r.Category.IsValid() {
		return fmt.Errorf("invalid invoice category: %s", r.Category)
	}

	return nil
}

// String returns a string representation of the InvoiceRecord
func (r *InvoiceRecord) String() string {
	return fmt.Sprintf("InvoiceRecord{Vendor: %s, Amount: %s, Category: %s, Date: %s}",
		r.VendorName, r.TotalAmount.String(), r.Category, r.Date.Format("2006-01-02"))
}

// BankTransaction represents one row of a bank account ledger export.
// Amount is signed: positive for inbound deposits, negative for outbound
// withdrawals. Records are immutable once loaded.
type BankTransaction struct {
	Date             time.Time       `json:"date"`
	CounterpartyName string          `json:"counterparty_name"`
	Amount           decimal.Decimal `json:"amount"`
	AccountLabel     string          `json:"account_label"`
}

// NewBankTransaction creates a new BankTransaction instance
func NewBankTransaction(date time.Time, counterparty string, amount decimal.Decimal, accountLabel string) *BankTransaction {
	return &BankTransaction{
		Date:             date,
		CounterpartyName: counterparty,
		Amount:           amount,
		AccountLabel:     accountLabel,
	}
}

// Validate performs basic validation on the BankTransaction
func (t *BankTransaction) Validate() error {
	if strings.TrimSpace(t.CounterpartyName) == "" {
		return fmt.Errorf("bank transaction counterparty name cannot be empty")
	}

	if t.Date.IsZero() {
		return fmt.Errorf("bank transaction date cannot be zero")
	}

	if t.Amount.IsZero() {
		return fmt.Errorf("bank transaction amount cannot be zero")
	}

	return nil
}

// IsInbound returns true if the transaction is a deposit into the account
func (t *BankTransaction) IsInbound() bool {
	return t.Amount.IsPositive()
}

// IsOutbound returns true if the transaction is a withdrawal from the account
func (t *BankTransaction) IsOutbound() bool {
	return t.Amount.IsNegative()
}

// String returns a string representation of the BankTransaction
func (t *BankTransaction) String() string {
	return fmt.Sprintf("BankTransaction{Counterparty: %s, Amount: %s, Account: %s, Date: %s}",
		t.CounterpartyName, t.Amount.String(), t.AccountLabel, t.Date.Format("2006-01-02"))
}

// VendorGroup is the per-canonical-key aggregation of invoice and bank
// amounts. It is a pure view over the current records and key assignment,
// recomputed on every run; it is never persisted independently of its inputs.
type VendorGroup struct {
	CanonicalKey  string          `json:"canonical_key"`
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	TotalBanked   decimal.Decimal `json:"total_banked"`
	Difference    decimal.Decimal `json:"difference"`
	Verdict       Verdict         `json:"verdict"`
	InvoiceCount  int             `json:"invoice_count"`
	BankCount     int             `json:"bank_count"`
}

// NewVendorGroup creates an empty VendorGroup for a canonical key
func NewVendorGroup(key string) *VendorGroup {
	return &VendorGroup{
		CanonicalKey:  key,
		TotalInvoiced: decimal.Zero,
		TotalBanked:   decimal.Zero,
		Difference:    decimal.Zero,
	}
}

// AddInvoiceAmount accumulates an invoice amount into the group
func (g *VendorGroup) AddInvoiceAmount(amount decimal.Decimal) {
	g.TotalInvoiced = g.TotalInvoiced.Add(amount)
	g.Difference = g.TotalInvoiced.Sub(g.TotalBanked)
	g.InvoiceCount++
}

// AddBankAmount accumulates a bank amount into the group
func (g *VendorGroup) AddBankAmount(amount decimal.Decimal) {
	g.TotalBanked = g.TotalBanked.Add(amount)
	g.Difference = g.TotalInvoiced.Sub(g.TotalBanked)
	g.BankCount++
}

// Equals compares two VendorGroup instances for equality
func (g *VendorGroup) Equals(other *VendorGroup) bool {
	if other == nil {
		return false
	}

	return g.CanonicalKey == other.CanonicalKey &&
		g.TotalInvoiced.Equal(other.TotalInvoiced) &&
		g.TotalBanked.Equal(other.TotalBanked) &&
		g.Verdict == other.Verdict &&
		g.InvoiceCount == other.InvoiceCount &&
		g.BankCount == other.BankCount
}

// MarshalJSON implements custom JSON marshaling for VendorGroup so decimal
// amounts serialize as plain number strings
func (g *VendorGroup) MarshalJSON() ([]byte, error) {
	type Alias VendorGroup
	return json.Marshal(&struct {
		TotalInvoiced string `json:"total_invoiced"`
		TotalBanked   string `json:"total_banked"`
		Difference    string `json:"difference"`
		*Alias
	}{
		TotalInvoiced: g.TotalInvoiced.String(),
		TotalBanked:   g.TotalBanked.String(),
		Difference:    g.Difference.String(),
		Alias:         (*Alias)(g),
	})
}

// String returns a string representation of the VendorGroup
func (g *VendorGroup) String() string {
	return fmt.Sprintf("VendorGroup{Key: %s, Invoiced: %s, Banked: %s, Verdict: %s}",
		g.CanonicalKey, g.TotalInvoiced.String(), g.TotalBanked.String(), g.Verdict)
}

// ParseDecimalFromString parses a currency amount from string, tolerating the
// thousand separators and currency symbols found in bank and tax exports
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "₩", "")
	s = strings.ReplaceAll(s, "원", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse a date from string using the formats
// observed across tax office and bank exports
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006.01.02",
		"2006.01.02 15:04:05",
		"2006/01/02",
		"20060102",
		time.RFC3339,
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

// NetAmount nets separate deposit and withdrawal fields into one signed
// amount: deposits positive, withdrawals negative
func NetAmount(deposit, withdrawal decimal.Decimal) decimal.Decimal {
	return deposit.Sub(withdrawal)
}

// CompareAmountsWithTolerance reports whether two amounts differ by strictly
// less than the tolerance. The comparison is symmetric in the sign of the
// difference.
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}

// WithinDays reports whether two dates are at most toleranceDays apart,
// comparing calendar dates only
func WithinDays(a, b time.Time, toleranceDays int) bool {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	diff := ad.Sub(bd)
	if diff < 0 {
		diff = -diff
	}

	return diff <= time.Duration(toleranceDays)*24*time.Hour
}
