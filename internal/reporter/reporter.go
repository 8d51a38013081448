// Package reporter renders reconciliation reports.
//
// Supported output formats:
//   - Console: human-readable tabular output for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: flat rows for spreadsheet applications
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	// Format selects the output rendering
	Format OutputFormat `json:"format"`

	// MatchedOnly restricts vendor and row listings to mismatches when false
	// is flipped off; with true, matched entries are listed too
	IncludeMatched bool `json:"include_matched"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeMatched: true,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders reconciliation reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the given configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a reconciliation report to the writer
func (rg *ReportGenerator) GenerateReport(report *reconciler.Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport renders a human-readable terminal report
func (rg *ReportGenerator) generateConsoleReport(report *reconciler.Report, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run ID: %s\n", report.RunID)
	fmt.Fprintf(writer, "Generated: %s\n", report.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Mode: %s  Category: %s\n\n", report.Mode, report.Category)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummary(&report.Summary, writer)
	fmt.Fprintf(writer, "\n")

	if len(report.Groups) > 0 {
		fmt.Fprintf(writer, "=== VENDOR GROUPS ===\n")
		rg.printGroups(report.Groups, writer)
		fmt.Fprintf(writer, "\n")
	}

	if len(report.Rows) > 0 {
		fmt.Fprintf(writer, "=== INVOICE ROWS ===\n")
		rg.printRows(report.Rows, writer)
	}

	return nil
}

func (rg *ReportGenerator) printSummary(summary *reconciler.Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Invoices:          %d", summary.TotalInvoices)
	if summary.ExcludedInvoices > 0 {
		fmt.Fprintf(writer, " (%d excluded)", summary.ExcludedInvoices)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "Bank Transactions: %d", summary.TotalTransactions)
	if summary.ExcludedBank > 0 {
		fmt.Fprintf(writer, " (%d excluded)", summary.ExcludedBank)
	}
	fmt.Fprintf(writer, "\n")

	if summary.GroupCount > 0 {
		fmt.Fprintf(writer, "Vendor Groups:     %d (%d matched, %d unmatched)\n",
			summary.GroupCount, summary.GroupsMatched, summary.GroupsUnmatched)
		fmt.Fprintf(writer, "Total Invoiced:    %s\n", summary.TotalInvoiced.StringFixed(0))
		fmt.Fprintf(writer, "Total Banked:      %s\n", summary.TotalBanked.StringFixed(0))
		fmt.Fprintf(writer, "Difference:        %s\n",
			summary.TotalInvoiced.Sub(summary.TotalBanked).StringFixed(0))
	}

	rowTotal := summary.RowsMatched + summary.RowsPartial + summary.RowsUnmatched
	if rowTotal > 0 {
		fmt.Fprintf(writer, "Invoice Rows:      %d matched, %d partial, %d unmatched\n",
			summary.RowsMatched, summary.RowsPartial, summary.RowsUnmatched)
	}
}

func (rg *ReportGenerator) printGroups(groups []*models.VendorGroup, writer io.Writer) {
	fmt.Fprintf(writer, "%-30s %15s %15s %15s %-10s\n",
		"Vendor", "Invoiced", "Banked", "Difference", "Verdict")

	for _, group := range groups {
		if !rg.config.IncludeMatched && group.Verdict == models.VerdictMatched {
			continue
		}
		fmt.Fprintf(writer, "%-30s %15s %15s %15s %-10s\n",
			truncate(group.CanonicalKey, 30),
			group.TotalInvoiced.StringFixed(0),
			group.TotalBanked.StringFixed(0),
			group.Difference.StringFixed(0),
			group.Verdict)
	}
}

func (rg *ReportGenerator) printRows(rows []*classifier.RowVerdict, writer io.Writer) {
	fmt.Fprintf(writer, "%-12s %-30s %15s %-20s %-12s\n",
		"Date", "Vendor", "Amount", "Verdict", "Matched Date")

	for _, row := range rows {
		if !rg.config.IncludeMatched && row.Verdict == models.VerdictMatched {
			continue
		}

		matchedDate := "-"
		if row.Matched != nil {
			matchedDate = row.Matched.Date.Format("2006-01-02")
		}
		fmt.Fprintf(writer, "%-12s %-30s %15s %-20s %-12s\n",
			row.Invoice.Date.Format("2006-01-02"),
			truncate(row.Invoice.VendorName, 30),
			row.Invoice.TotalAmount.StringFixed(0),
			row.Verdict,
			matchedDate)
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// generateJSONReport renders the report as indented JSON
func (rg *ReportGenerator) generateJSONReport(report *reconciler.Report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// generateCSVReport renders the vendor groups, or the row verdicts when the
// run produced no groups, as flat CSV
func (rg *ReportGenerator) generateCSVReport(report *reconciler.Report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if len(report.Groups) > 0 {
		return rg.writeGroupsCSV(report, csvWriter)
	}
	return rg.writeRowsCSV(report, csvWriter)
}

func (rg *ReportGenerator) writeGroupsCSV(report *reconciler.Report, csvWriter *csv.Writer) error {
	if rg.config.CSVHeaders {
		header := []string{"vendor", "total_invoiced", "total_banked", "difference",
			"invoice_count", "bank_count", "verdict"}
		if err := csvWriter.Write(header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for _, group := range report.Groups {
		if !rg.config.IncludeMatched && group.Verdict == models.VerdictMatched {
			continue
		}
		record := []string{
			group.CanonicalKey,
			group.TotalInvoiced.String(),
			group.TotalBanked.String(),
			group.Difference.String(),
			strconv.Itoa(group.InvoiceCount),
			strconv.Itoa(group.BankCount),
			string(group.Verdict),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return csvWriter.Error()
}

func (rg *ReportGenerator) writeRowsCSV(report *reconciler.Report, csvWriter *csv.Writer) error {
	if rg.config.CSVHeaders {
		header := []string{"invoice_date", "vendor_name", "canonical_key", "amount",
			"verdict", "matched_date", "matched_amount"}
		if err := csvWriter.Write(header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for _, row := range report.Rows {
		if !rg.config.IncludeMatched && row.Verdict == models.VerdictMatched {
			continue
		}

		matchedDate := ""
		matchedAmount := ""
		if row.Matched != nil {
			matchedDate = row.Matched.Date.Format("2006-01-02")
			matchedAmount = row.Matched.Amount.String()
		}

		record := []string{
			row.Invoice.Date.Format("2006-01-02"),
			row.Invoice.VendorName,
			row.CanonicalKey,
			row.Invoice.TotalAmount.String(),
			string(row.Verdict),
			matchedDate,
			matchedAmount,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return csvWriter.Error()
}
