package aggregator

import (
	"time"

	"invoice-reconciliation-service/internal/models"
)

// BankTransactionIndex provides efficient candidate lookup for row-level
// matching. Transactions are bucketed by canonical vendor key and, within a
// key, by calendar date, so a windowed scan touches only the days it needs.
type BankTransactionIndex struct {
	// byKey maps canonical keys to per-date transaction buckets
	byKey map[string]map[string][]*models.BankTransaction

	// countByKey holds the total number of transactions indexed per key
	countByKey map[string]int
}

// NewBankTransactionIndex builds an index over bank transactions using the
// given key resolution. Transactions whose key resolves empty are not indexed.
func NewBankTransactionIndex(transactions []*models.BankTransaction, keyFn KeyFunc) *BankTransactionIndex {
	index := &BankTransactionIndex{
		byKey:      make(map[string]map[string][]*models.BankTransaction),
		countByKey: make(map[string]int),
	}

	for _, tx := range transactions {
		key := keyFn(tx.CounterpartyName, models.SideBank)
		if key == "" {
			continue
		}
		index.add(key, tx)
	}

	return index
}

func (idx *BankTransactionIndex) add(key string, tx *models.BankTransaction) {
	dates, exists := idx.byKey[key]
	if !exists {
		dates = make(map[string][]*models.BankTransaction)
		idx.byKey[key] = dates
	}

	dateKey := tx.Date.Format("2006-01-02")
	dates[dateKey] = append(dates[dateKey], tx)
	idx.countByKey[key]++
}

// Candidates returns transactions under the canonical key dated within
// windowDays calendar days of the given date, inclusive on both ends.
// A windowDays of zero restricts to the same calendar date.
func (idx *BankTransactionIndex) Candidates(key string, date time.Time, windowDays int) []*models.BankTransaction {
	dates, exists := idx.byKey[key]
	if !exists {
		return nil
	}

	var result []*models.BankTransaction

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	for offset := -windowDays; offset <= windowDays; offset++ {
		dateKey := day.AddDate(0, 0, offset).Format("2006-01-02")
		if bucket, ok := dates[dateKey]; ok {
			result = append(result, bucket...)
		}
	}

	return result
}

// HasKey reports whether any transaction was indexed under the canonical key
func (idx *BankTransactionIndex) HasKey(key string) bool {
	return idx.countByKey[key] > 0
}

// CountForKey returns the number of transactions indexed under the key
func (idx *BankTransactionIndex) CountForKey(key string) int {
	return idx.countByKey[key]
}

// Size returns the total number of indexed transactions
func (idx *BankTransactionIndex) Size() int {
	total := 0
	for _, count := range idx.countByKey {
		total += count
	}
	return total
}
