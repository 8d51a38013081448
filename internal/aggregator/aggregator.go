// Package aggregator groups invoice records and bank transactions under
// canonical vendor keys and sums the amounts on each side. Aggregation is a
// pure function over a snapshot of records and a key-resolution function;
// it holds no state between runs, so overrides applied before a run are
// fully reflected and nothing can go stale.
package aggregator

import (
	"fmt"
	"sort"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// KeyFunc resolves a raw vendor name on a given side into a canonical key.
// The override store supplies one of these when links exist; otherwise the
// normalizer alone does.
type KeyFunc func(rawName string, side models.Side) string

// BankAmountMode selects which bank transactions count toward a vendor's
// banked total
type BankAmountMode int

const (
	// BankAmountInbound counts only deposits into the account
	BankAmountInbound BankAmountMode = iota
	// BankAmountOutbound counts only withdrawals, as positive magnitudes
	BankAmountOutbound
	// BankAmountNet counts the signed net of deposits and withdrawals
	BankAmountNet
)

// String returns the string representation of BankAmountMode
func (m BankAmountMode) String() string {
	switch m {
	case BankAmountInbound:
		return "inbound"
	case BankAmountOutbound:
		return "outbound"
	case BankAmountNet:
		return "net"
	default:
		return "unknown"
	}
}

// ParseBankAmountMode parses a bank amount mode from string
func ParseBankAmountMode(s string) (BankAmountMode, error) {
	switch s {
	case "inbound":
		return BankAmountInbound, nil
	case "outbound":
		return BankAmountOutbound, nil
	case "net":
		return BankAmountNet, nil
	default:
		return 0, fmt.Errorf("invalid bank amount mode '%s': must be inbound, outbound, or net", s)
	}
}

// DirectionPolicy makes explicit which bank direction settles each invoice
// category. The selection is configuration, never inferred from the data.
type DirectionPolicy struct {
	Purchase BankAmountMode `json:"purchase"`
	Sale     BankAmountMode `json:"sale"`
}

// DefaultDirectionPolicy reflects the observed settlement behavior of the
// source exports: purchase invoices settle through deposits into the
// business account, sales invoices through withdrawals out of it
func DefaultDirectionPolicy() DirectionPolicy {
	return DirectionPolicy{
		Purchase: BankAmountInbound,
		Sale:     BankAmountOutbound,
	}
}

// ModeFor returns the bank amount mode for an invoice category
func (p DirectionPolicy) ModeFor(category models.InvoiceCategory) BankAmountMode {
	if category == models.CategorySale {
		return p.Sale
	}
	return p.Purchase
}

// Aggregator groups records by canonical key and sums both sides
type Aggregator struct {
	keyFn  KeyFunc
	policy DirectionPolicy
}

// New creates an Aggregator with the given key resolution and direction policy
func New(keyFn KeyFunc, policy DirectionPolicy) *Aggregator {
	return &Aggregator{
		keyFn:  keyFn,
		policy: policy,
	}
}

// Aggregate groups invoices and bank transactions under canonical keys for a
// reconciliation run of the given invoice category. A vendor present on only
// one side still yields a group, with the missing side summed to zero.
// Records whose key resolves to the empty string are skipped.
func (a *Aggregator) Aggregate(
	invoices []*models.InvoiceRecord,
	banks []*models.BankTransaction,
	category models.InvoiceCategory,
) map[string]*models.VendorGroup {

	groups := make(map[string]*models.VendorGroup)
	mode := a.policy.ModeFor(category)

	for _, inv := range invoices {
		key := a.keyFn(inv.VendorName, models.SideInvoice)
		if key == "" {
			continue
		}

		group, exists := groups[key]
		if !exists {
			group = models.NewVendorGroup(key)
			groups[key] = group
		}
		group.AddInvoiceAmount(inv.TotalAmount)
	}

	for _, tx := range banks {
		key := a.keyFn(tx.CounterpartyName, models.SideBank)
		if key == "" {
			continue
		}

		amount := SelectBankAmount(tx, mode)
		if amount.IsZero() && mode != BankAmountNet {
			// Transaction flows the wrong direction for this category
			continue
		}

		group, exists := groups[key]
		if !exists {
			group = models.NewVendorGroup(key)
			groups[key] = group
		}
		group.AddBankAmount(amount)
	}

	return groups
}

// SelectBankAmount returns the portion of a bank transaction that counts
// under the given mode. Inbound and outbound modes return positive
// magnitudes; transactions flowing the other way contribute zero.
func SelectBankAmount(tx *models.BankTransaction, mode BankAmountMode) decimal.Decimal {
	switch mode {
	case BankAmountInbound:
		if tx.IsInbound() {
			return tx.Amount
		}
		return decimal.Zero
	case BankAmountOutbound:
		if tx.IsOutbound() {
			return tx.Amount.Neg()
		}
		return decimal.Zero
	default:
		return tx.Amount
	}
}

// SortedKeys returns the canonical keys of a group map in lexical order, for
// deterministic report output
func SortedKeys(groups map[string]*models.VendorGroup) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
