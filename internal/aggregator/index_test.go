package aggregator

import (
	"testing"
	"time"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func makeBankTxOn(counterparty string, amount int64, date time.Time) *models.BankTransaction {
	return &models.BankTransaction{
		Date:             date,
		CounterpartyName: counterparty,
		Amount:           decimal.NewFromInt(amount),
		AccountLabel:     "사업자",
	}
}

func TestBankTransactionIndexCandidates(t *testing.T) {
	keyFn := normalizerKeyFn(t)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	transactions := []*models.BankTransaction{
		makeBankTxOn("(주)그로와이즈", 50000, base.AddDate(0, 0, -1)),
		makeBankTxOn("그로와이즈", 30000, base),
		makeBankTxOn("그로와이즈 주식회사", 20000, base.AddDate(0, 0, 3)),
		makeBankTxOn("한빛물산", 10000, base),
	}

	index := NewBankTransactionIndex(transactions, keyFn)

	tests := []struct {
		name       string
		key        string
		date       time.Time
		windowDays int
		expected   int
	}{
		{"same day only", "그로와이즈", base, 0, 1},
		{"one day window", "그로와이즈", base, 1, 2},
		{"three day window", "그로와이즈", base, 3, 3},
		{"unknown key", "없는거래처", base, 3, 0},
		{"other vendor unaffected", "한빛물산", base, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := index.Candidates(tt.key, tt.date, tt.windowDays)
			if len(candidates) != tt.expected {
				t.Errorf("expected %d candidates, got %d", tt.expected, len(candidates))
			}
		})
	}
}

func TestBankTransactionIndexIgnoresTimeOfDay(t *testing.T) {
	keyFn := normalizerKeyFn(t)

	late := time.Date(2024, 3, 10, 23, 45, 0, 0, time.UTC)
	transactions := []*models.BankTransaction{
		makeBankTxOn("한빛물산", 10000, late),
	}

	index := NewBankTransactionIndex(transactions, keyFn)

	earlyNextDay := time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC)
	candidates := index.Candidates("한빛물산", earlyNextDay, 1)
	if len(candidates) != 1 {
		t.Errorf("expected 1 candidate across midnight within window, got %d", len(candidates))
	}

	sameDay := index.Candidates("한빛물산", earlyNextDay, 0)
	if len(sameDay) != 0 {
		t.Errorf("expected 0 candidates for zero window on the next day, got %d", len(sameDay))
	}
}

func TestBankTransactionIndexSkipsEmptyKeys(t *testing.T) {
	keyFn := normalizerKeyFn(t)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	transactions := []*models.BankTransaction{
		makeBankTxOn("주식회사", 10000, base),
		makeBankTxOn("한빛물산", 20000, base),
	}

	index := NewBankTransactionIndex(transactions, keyFn)

	if index.Size() != 1 {
		t.Errorf("expected 1 indexed transaction, got %d", index.Size())
	}
	if index.HasKey("") {
		t.Error("empty key should not be indexed")
	}
}

func TestBankTransactionIndexCounts(t *testing.T) {
	keyFn := normalizerKeyFn(t)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	transactions := []*models.BankTransaction{
		makeBankTxOn("한빛물산", 10000, base),
		makeBankTxOn("한빛물산", 20000, base.AddDate(0, 0, 1)),
	}

	index := NewBankTransactionIndex(transactions, keyFn)

	if !index.HasKey("한빛물산") {
		t.Error("expected key 한빛물산 to be present")
	}
	if count := index.CountForKey("한빛물산"); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	if count := index.CountForKey("없는거래처"); count != 0 {
		t.Errorf("expected count 0 for unknown key, got %d", count)
	}
}
