package parsers

import (
	"context"
	"fmt"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Canonical invoice column names
const (
	InvoiceDateColumn   = "작성일자"
	InvoiceSupplyColumn = "공급가액"
	InvoiceTotalColumn  = "합계금액"
	InvoiceVendorColumn = "공급받는자 상호"
	InvoiceTaxIDColumn  = "공급받는자사업자등록번호"
)

// InvoiceParserConfig controls tax invoice CSV ingestion
type InvoiceParserConfig struct {
	// DateColumn holds the invoice issue date
	DateColumn string

	// VendorColumn holds the counterparty business name
	VendorColumn string

	// VendorFallbacks are tried in order when VendorColumn is absent.
	// Invoice exports repeat the 상호 header for supplier and recipient, so
	// the recipient surfaces as the second occurrence.
	VendorFallbacks []string

	// AmountColumn holds the invoice total including tax
	AmountColumn string

	// TaxIDColumn holds the counterparty business registration number
	TaxIDColumn string

	// RequiredColumns identify the header row during the scan
	RequiredColumns []string

	// Aliases maps export-specific header spellings to canonical names
	Aliases map[string]string

	// MaxScanRows bounds the header search
	MaxScanRows int

	// Category is assigned to every record parsed from the file
	Category models.InvoiceCategory
}

// DefaultInvoiceParserConfig returns the configuration matching standard
// Korean tax invoice exports
func DefaultInvoiceParserConfig(category models.InvoiceCategory) *InvoiceParserConfig {
	return &InvoiceParserConfig{
		DateColumn:      InvoiceDateColumn,
		VendorColumn:    InvoiceVendorColumn,
		VendorFallbacks: []string{"상호.1", "상호"},
		AmountColumn:    InvoiceTotalColumn,
		TaxIDColumn:     InvoiceTaxIDColumn,
		RequiredColumns: []string{InvoiceDateColumn, InvoiceSupplyColumn, InvoiceTotalColumn},
		Aliases: map[string]string{
			"공급받는자상호": InvoiceVendorColumn,
			"합계 금액":   InvoiceTotalColumn,
			"공급 가액":   InvoiceSupplyColumn,
		},
		MaxScanRows: DefaultHeaderScanRows,
		Category:    category,
	}
}

// Validate checks the configuration for usable values
func (c *InvoiceParserConfig) Validate() error {
	if c.DateColumn == "" {
		return fmt.Errorf("date column cannot be empty")
	}
	if c.VendorColumn == "" && len(c.VendorFallbacks) == 0 {
		return fmt.Errorf("a vendor column or fallback must be configured")
	}
	if c.AmountColumn == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	if len(c.RequiredColumns) == 0 {
		return fmt.Errorf("required columns for header detection cannot be empty")
	}
	if !c.Category.IsValid() {
		return fmt.Errorf("invalid invoice category: %s", c.Category)
	}
	return nil
}

// InvoiceParser parses tax invoice CSV exports into InvoiceRecords
type InvoiceParser struct {
	config *InvoiceParserConfig
	base   *baseParser
	logger logger.Logger
}

// NewInvoiceParser creates an InvoiceParser with the given configuration
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig(models.CategoryPurchase)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "invoice_parser", config, err)
	}

	return &InvoiceParser{
		config: config,
		base:   newBaseParser("invoice_parser", config.Aliases, config.MaxScanRows),
		logger: logger.GetGlobalLogger().WithComponent("invoice_parser"),
	}, nil
}

// ParseInvoices reads a tax invoice CSV file. The header row is located by
// scanning for the required columns; rows whose date, vendor, or amount do
// not parse are dropped and counted in the returned stats.
func (p *InvoiceParser) ParseInvoices(ctx context.Context, filePath string) ([]*models.InvoiceRecord, *ParseStats, error) {
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
			"rows_scanned":     p.base.maxScanRows,
		}).Error("No header row found in invoice file")
		return nil, stats, errors.ParseError(errors.CodeHeaderNotFound, filePath, 0, "", "", nil).
			WithSuggestion("Check that the file is a tax invoice export with 작성일자, 공급가액 and 합계금액 columns")
	}
	stats.HeaderRow = headerIdx

	headerMap := p.base.buildHeaderMap(rows[headerIdx])
	vendorColumn := p.resolveVendorColumn(headerMap)

	var records []*models.InvoiceRecord
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

		vendor := fieldValue(row, headerMap, vendorColumn)
		if vendor == "" {
			stats.AddDrop(line, vendorColumn, "", "missing vendor name")
			continue
		}

		amountValue := fieldValue(row, headerMap, p.config.AmountColumn)
		amount, err := models.ParseDecimalFromString(amountValue)
		if err != nil {
			stats.AddDrop(line, p.config.AmountColumn, amountValue, "unparsable amount")
			continue
		}

		records = append(records, &models.InvoiceRecord{
			Date:        date,
			VendorName:  vendor,
			TaxID:       fieldValue(row, headerMap, p.config.TaxIDColumn),
			TotalAmount: amount,
			Category:    p.config.Category,
		})
		stats.RecordsParsed++
	}

	p.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"parsed":    stats.RecordsParsed,
		"dropped":   stats.RecordsDropped,
	}).Info("Parsed invoice file")

	if stats.RecordsDropped > 0 {
		p.logger.WithField("samples", stats.SampleDrops(5)).Debug("Dropped invoice rows")
	}

	return records, stats, nil
}

// resolveVendorColumn picks the configured vendor column when present in the
// header, otherwise the first fallback that is
func (p *InvoiceParser) resolveVendorColumn(headerMap map[string]int) string {
	if _, ok := headerMap[p.config.VendorColumn]; ok {
		return p.config.VendorColumn
	}
	for _, fallback := range p.config.VendorFallbacks {
		if _, ok := headerMap[fallback]; ok {
			return fallback
		}
	}
	return p.config.VendorColumn
}
