package parsers

import (
	"context"
	"fmt"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Canonical bank ledger column names
const (
	BankDateColumn         = "거래일자"
	BankCounterpartyColumn = "거래처명"
	BankDepositColumn      = "입금액"
	BankWithdrawalColumn   = "출금액"
)

// BankParserConfig controls bank account ledger CSV ingestion
type BankParserConfig struct {
	// DateColumn holds the transaction date
	DateColumn string

	// CounterpartyColumn holds the counterparty name
	CounterpartyColumn string

	// DepositColumn holds inbound amounts
	DepositColumn string

	// WithdrawalColumn holds outbound amounts
	WithdrawalColumn string

	// RequiredColumns identify the header row during the scan
	RequiredColumns []string

	// Aliases maps bank-specific header spellings to canonical names
	Aliases map[string]string

	// MaxScanRows bounds the header search
	MaxScanRows int

	// AccountLabel tags every transaction with its source account
	// (사업자 for the business account, 기보 for the guarantee account)
	AccountLabel string
}

// DefaultBankParserConfig returns the configuration matching common Korean
// bank ledger exports
func DefaultBankParserConfig(accountLabel string) *BankParserConfig {
	return &BankParserConfig{
		DateColumn:         BankDateColumn,
		CounterpartyColumn: BankCounterpartyColumn,
		DepositColumn:      BankDepositColumn,
		WithdrawalColumn:   BankWithdrawalColumn,
		RequiredColumns:    []string{BankDateColumn, BankCounterpartyColumn},
		Aliases: map[string]string{
			"거래일시":   BankDateColumn,
			"보낸분":    BankCounterpartyColumn,
			"받는분":    BankCounterpartyColumn,
			"입금액(원)": BankDepositColumn,
			"출금액(원)": BankWithdrawalColumn,
		},
		MaxScanRows:  DefaultHeaderScanRows,
		AccountLabel: accountLabel,
	}
}

// Validate checks the configuration for usable values
func (c *BankParserConfig) Validate() error {
	if c.DateColumn == "" {
		return fmt.Errorf("date column cannot be empty")
	}
	if c.CounterpartyColumn == "" {
		return fmt.Errorf("counterparty column cannot be empty")
	}
	if c.DepositColumn == "" && c.WithdrawalColumn == "" {
		return fmt.Errorf("at least one of the deposit and withdrawal columns must be configured")
	}
	if len(c.RequiredColumns) == 0 {
		return fmt.Errorf("required columns for header detection cannot be empty")
	}
	return nil
}

// BankParser parses bank ledger CSV exports into BankTransactions
type BankParser struct {
	config *BankParserConfig
	base   *baseParser
	logger logger.Logger
}

// NewBankParser creates a BankParser with the given configuration
func NewBankParser(config *BankParserConfig) (*BankParser, error) {
	if config == nil {
		config = DefaultBankParserConfig("")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "bank_parser", config, err)
	}

	return &BankParser{
		config: config,
		base:   newBaseParser("bank_parser", config.Aliases, config.MaxScanRows),
		logger: logger.GetGlobalLogger().WithComponent("bank_parser"),
	}, nil
}

// ParseTransactions reads a bank ledger CSV file. Deposit and withdrawal
// columns net into a single signed amount, positive for money in. Rows whose
// date or counterparty do not parse are dropped and counted in the stats.
func (p *BankParser) ParseTransactions(ctx context.Context, filePath string) ([]*models.BankTransaction, *ParseStats, error) {
	stats := &ParseStats{FilePath: filePath}

	rows, err := p.base.readAllRows(ctx, filePath)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalRows = len(rows)

	headerIdx, found := p.base.FindHeaderRow(rows, p.config.RequiredColumns)
	if !found {
		p.logger.WithFields(logger.Fields{
			"file_path":        filePath,
			"required_columns": p.config.RequiredColumns,
		}).Error("No header row found in bank ledger file")
		return nil, stats, errors.ParseError(errors.CodeHeaderNotFound, filePath, 0, "", "", nil).
			WithSuggestion("Check that the file is a bank ledger export with 거래일자 and 거래처명 columns")
	}
	stats.HeaderRow = headerIdx

	headerMap := p.base.buildHeaderMap(rows[headerIdx])

	var transactions []*models.BankTransaction
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		line := i + 1

		if isEmptyRow(row) {
			continue
		}

		dateValue := fieldValue(row, headerMap, p.config.DateColumn)
		date, err := models.ParseTimeWithFormats(dateValue)
		if err != nil {
			stats.AddDrop(line, p.config.DateColumn, dateValue, "unparsable date")
			continue
		}

		counterparty := fieldValue(row, headerMap, p.config.CounterpartyColumn)
		if counterparty == "" {
			stats.AddDrop(line, p.config.CounterpartyColumn, "", "missing counterparty name")
			continue
		}

		deposit, ok := p.parseAmount(row, headerMap, p.config.DepositColumn, line, stats)
		if !ok {
			continue
		}
		withdrawal, ok := p.parseAmount(row, headerMap, p.config.WithdrawalColumn, line, stats)
		if !ok {
			continue
		}

		transactions = append(transactions, &models.BankTransaction{
			Date:             date,
			CounterpartyName: counterparty,
			Amount:           models.NetAmount(deposit, withdrawal),
			AccountLabel:     p.config.AccountLabel,
		})
		stats.RecordsParsed++
	}

	p.logger.WithFields(logger.Fields{
		"file_path":     filePath,
		"account_label": p.config.AccountLabel,
		"parsed":        stats.RecordsParsed,
		"dropped":       stats.RecordsDropped,
	}).Info("Parsed bank ledger file")

	if stats.RecordsDropped > 0 {
		p.logger.WithField("samples", stats.SampleDrops(5)).Debug("Dropped bank ledger rows")
	}

	return transactions, stats, nil
}

// parseAmount reads an amount cell, treating an absent or empty cell as zero.
// A non-empty cell that fails to parse drops the row.
func (p *BankParser) parseAmount(row []string, headerMap map[string]int, column string, line int, stats *ParseStats) (decimal.Decimal, bool) {
	if column == "" {
		return decimal.Zero, true
	}

	value := fieldValue(row, headerMap, column)
	if value == "" || value == "-" {
		return decimal.Zero, true
	}

	amount, err := models.ParseDecimalFromString(value)
	if err != nil {
		stats.AddDrop(line, column, value, "unparsable amount")
		return decimal.Zero, false
	}
	return amount, true
}
