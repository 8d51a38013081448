package classifier

import (
	"testing"
	"time"

	"invoice-reconciliation-service/internal/aggregator"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/normalizer"

	"github.com/shopspring/decimal"
)

func testKeyFn(t *testing.T) aggregator.KeyFunc {
	t.Helper()
	norm := normalizer.New(normalizer.DefaultConfig())
	return func(rawName string, side models.Side) string {
		return norm.Normalize(rawName)
	}
}

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create classifier: %v", err)
	}
	return c
}

func invoiceOn(vendor string, amount int64, date time.Time) *models.InvoiceRecord {
	return &models.InvoiceRecord{
		Date:        date,
		VendorName:  vendor,
		TotalAmount: decimal.NewFromInt(amount),
		Category:    models.CategoryPurchase,
	}
}

func bankTxOn(counterparty string, amount int64, date time.Time) *models.BankTransaction {
	return &models.BankTransaction{
		Date:             date,
		CounterpartyName: counterparty,
		Amount:           decimal.NewFromInt(amount),
		AccountLabel:     "사업자",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"negative tolerance", func(c *Config) { c.Tolerance = decimal.NewFromInt(-1) }, true},
		{"zero tolerance allowed", func(c *Config) { c.Tolerance = decimal.Zero }, false},
		{"negative exact window", func(c *Config) { c.ExactWindowDays = -1 }, true},
		{"loose smaller than exact", func(c *Config) { c.ExactWindowDays = 5; c.LooseWindowDays = 3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.Tolerance = decimal.NewFromInt(5000)
	clone.LooseWindowDays = 10

	if !original.Tolerance.Equal(models.DefaultTolerance) {
		t.Error("modifying clone affected original tolerance")
	}
	if original.LooseWindowDays != 3 {
		t.Error("modifying clone affected original window")
	}
}

func TestClassifyGroupTolerance(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		invoiced int64
		banked   int64
		expected models.Verdict
	}{
		{"equal totals", 100000, 100000, models.VerdictMatched},
		{"difference under tolerance", 100000, 99500, models.VerdictMatched},
		{"difference under tolerance other side", 99500, 100000, models.VerdictMatched},
		{"difference equal to tolerance", 100000, 99000, models.VerdictUnmatched},
		{"difference over tolerance", 100000, 98000, models.VerdictUnmatched},
		{"both zero", 0, 0, models.VerdictMatched},
		{"invoice only", 50000, 0, models.VerdictUnmatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := models.NewVendorGroup("한빛물산")
			if tt.invoiced != 0 {
				group.AddInvoiceAmount(decimal.NewFromInt(tt.invoiced))
			}
			if tt.banked != 0 {
				group.AddBankAmount(decimal.NewFromInt(tt.banked))
			}

			verdict := c.ClassifyGroup(group)
			if verdict != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, verdict)
			}
			if group.Verdict != tt.expected {
				t.Errorf("verdict not stored on group: expected %s, got %s", tt.expected, group.Verdict)
			}
		})
	}
}

func TestClassifyGroupsAll(t *testing.T) {
	c := newTestClassifier(t)

	matched := models.NewVendorGroup("가")
	matched.AddInvoiceAmount(decimal.NewFromInt(10000))
	matched.AddBankAmount(decimal.NewFromInt(10000))

	unmatched := models.NewVendorGroup("나")
	unmatched.AddInvoiceAmount(decimal.NewFromInt(10000))

	groups := map[string]*models.VendorGroup{"가": matched, "나": unmatched}
	c.ClassifyGroups(groups)

	if matched.Verdict != models.VerdictMatched {
		t.Errorf("expected matched verdict, got %s", matched.Verdict)
	}
	if unmatched.Verdict != models.VerdictUnmatched {
		t.Errorf("expected unmatched verdict, got %s", unmatched.Verdict)
	}
}

func TestClassifyRowsVerdicts(t *testing.T) {
	c := newTestClassifier(t)
	keyFn := testKeyFn(t)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	banks := []*models.BankTransaction{
		bankTxOn("그로와이즈", 50000, base.AddDate(0, 0, 1)),
		bankTxOn("한빛물산", 30000, base.AddDate(0, 0, 3)),
	}
	index := aggregator.NewBankTransactionIndex(banks, keyFn)

	invoices := []*models.InvoiceRecord{
		invoiceOn("(주)그로와이즈", 50000, base),
		invoiceOn("한빛물산", 30000, base),
		invoiceOn("대성상회", 10000, base),
	}

	rows := c.ClassifyRows(invoices, index, keyFn)
	if len(rows) != 3 {
		t.Fatalf("expected 3 row verdicts, got %d", len(rows))
	}

	byKey := make(map[string]*RowVerdict)
	for _, row := range rows {
		byKey[row.CanonicalKey] = row
	}

	// Exact amount one day later
	if byKey["그로와이즈"].Verdict != models.VerdictMatched {
		t.Errorf("expected matched, got %s", byKey["그로와이즈"].Verdict)
	}
	if byKey["그로와이즈"].Matched == nil {
		t.Error("matched row should carry its bank transaction")
	}

	// Same key three days out, beyond the exact window
	if byKey["한빛물산"].Verdict != models.VerdictPartiallyMatched {
		t.Errorf("expected partially matched, got %s", byKey["한빛물산"].Verdict)
	}

	// No transactions under the key at all
	if byKey["대성상회"].Verdict != models.VerdictUnmatched {
		t.Errorf("expected unmatched, got %s", byKey["대성상회"].Verdict)
	}
}

func TestClassifyRowsConsumesMatches(t *testing.T) {
	c := newTestClassifier(t)
	keyFn := testKeyFn(t)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	// One bank transaction, two invoices for the same amount
	banks := []*models.BankTransaction{
		bankTxOn("한빛물산", 50000, base),
	}
	index := aggregator.NewBankTransactionIndex(banks, keyFn)

	invoices := []*models.InvoiceRecord{
		invoiceOn("한빛물산", 50000, base),
		invoiceOn("한빛물산", 50000, base),
	}

	rows := c.ClassifyRows(invoices, index, keyFn)

	matched := 0
	partial := 0
	for _, row := range rows {
		switch row.Verdict {
		case models.VerdictMatched:
			matched++
		case models.VerdictPartiallyMatched:
			partial++
		}
	}

	if matched != 1 {
		t.Errorf("expected exactly 1 matched row, got %d", matched)
	}
	if partial != 1 {
		t.Errorf("expected the second invoice to fall back to partial, got %d partial rows", partial)
	}
}

func TestClassifyRowsDeterministicOrder(t *testing.T) {
	c := newTestClassifier(t)
	keyFn := testKeyFn(t)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	banks := []*models.BankTransaction{
		bankTxOn("한빛물산", 50000, base),
	}

	invoices := []*models.InvoiceRecord{
		invoiceOn("한빛물산", 50000, base.AddDate(0, 0, 1)),
		invoiceOn("한빛물산", 50000, base),
	}
	reversed := []*models.InvoiceRecord{invoices[1], invoices[0]}

	index1 := aggregator.NewBankTransactionIndex(banks, keyFn)
	rows1 := c.ClassifyRows(invoices, index1, keyFn)

	index2 := aggregator.NewBankTransactionIndex(banks, keyFn)
	rows2 := c.ClassifyRows(reversed, index2, keyFn)

	// The earlier invoice wins the transaction regardless of input order
	for i := range rows1 {
		if rows1[i].Verdict != rows2[i].Verdict {
			t.Errorf("row %d: verdicts differ across input orderings: %s vs %s",
				i, rows1[i].Verdict, rows2[i].Verdict)
		}
	}
	if rows1[0].Verdict != models.VerdictMatched {
		t.Errorf("expected the earlier invoice matched, got %s", rows1[0].Verdict)
	}
}

func TestClassifyRowsEmptyKey(t *testing.T) {
	c := newTestClassifier(t)
	keyFn := testKeyFn(t)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	index := aggregator.NewBankTransactionIndex(nil, keyFn)
	invoices := []*models.InvoiceRecord{
		invoiceOn("주식회사", 10000, base),
	}

	rows := c.ClassifyRows(invoices, index, keyFn)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Verdict != models.VerdictUnmatched {
		t.Errorf("empty-key invoice should be unmatched, got %s", rows[0].Verdict)
	}
}
