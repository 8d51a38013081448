// Package parsers ingests CSV exports of tax invoices and bank account
// ledgers. Real-world exports carry preamble rows before the header and the
// header vocabulary drifts between issuing systems, so parsing scans for the
// header row and resolves column names through an alias table instead of
// assuming a fixed first-row layout.
//
// Malformed data rows are dropped silently: reconciliation runs over whatever
// parsed cleanly, and the drop count is reported through ParseStats rather
// than failing the whole file.
package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// DefaultHeaderScanRows bounds how deep into a file the header search goes
const DefaultHeaderScanRows = 20

// RowError records why a single data row was dropped
type RowError struct {
	Line    int
	Field   string
	Value   string
	Message string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d dropped (%s='%s'): %s", e.Line, e.Field, e.Value, e.Message)
}

// ParseStats summarizes one file's ingestion
type ParseStats struct {
	FilePath      string
	TotalRows     int
	RecordsParsed int
	RecordsDropped int
	HeaderRow     int
	DroppedRows   []*RowError
}

// AddDrop records a dropped row
func (ps *ParseStats) AddDrop(line int, field, value, message string) {
	ps.DroppedRows = append(ps.DroppedRows, &RowError{
		Line:    line,
		Field:   field,
		Value:   value,
		Message: message,
	})
	ps.RecordsDropped++
}

// String returns a human-readable summary of the parse
func (ps *ParseStats) String() string {
	return fmt.Sprintf("%s: %d rows, %d records parsed, %d dropped (header at row %d)",
		ps.FilePath, ps.TotalRows, ps.RecordsParsed, ps.RecordsDropped, ps.HeaderRow+1)
}

// SampleDrops returns up to maxSamples drop reasons for logging
func (ps *ParseStats) SampleDrops(maxSamples int) []string {
	limit := len(ps.DroppedRows)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.DroppedRows[i].Error())
	}
	return samples
}

// baseParser carries the shared mechanics of both file parsers
type baseParser struct {
	aliases     map[string]string
	maxScanRows int
	logger      logger.Logger
}

func newBaseParser(component string, aliases map[string]string, maxScanRows int) *baseParser {
	if maxScanRows <= 0 {
		maxScanRows = DefaultHeaderScanRows
	}
	return &baseParser{
		aliases:     aliases,
		maxScanRows: maxScanRows,
		logger:      logger.GetGlobalLogger().WithComponent(component),
	}
}

// readAllRows loads every row of a CSV file. Exports pad preamble rows to
// arbitrary widths, so the reader accepts variable field counts.
func (bp *baseParser) readAllRows(ctx context.Context, filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open CSV file")
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to read CSV content")
			return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, len(rows)+1, "", "", err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// canonicalHeader trims a raw header cell and resolves it through the alias
// table
func (bp *baseParser) canonicalHeader(raw string) string {
	name := strings.TrimSpace(raw)
	if canonical, ok := bp.aliases[name]; ok {
		return canonical
	}
	return name
}

// FindHeaderRow scans the first maxScan rows for one that contains every
// required column name after alias resolution. It returns the row index and
// whether a header was found.
func (bp *baseParser) FindHeaderRow(rows [][]string, required []string) (int, bool) {
	limit := len(rows)
	if bp.maxScanRows < limit {
		limit = bp.maxScanRows
	}

	for i := 0; i < limit; i++ {
		present := make(map[string]bool, len(rows[i]))
		for _, cell := range rows[i] {
			present[bp.canonicalHeader(cell)] = true
		}

		found := true
		for _, name := range required {
			if !present[name] {
				found = false
				break
			}
		}
		if found {
			return i, true
		}
	}

	return 0, false
}

// buildHeaderMap maps canonical column names to indices. Repeated names get
// a positional suffix (상호, 상호.1, ...) so both occurrences stay
// addressable; invoice exports carry the supplier and recipient business
// names under the same header.
func (bp *baseParser) buildHeaderMap(headerRow []string) map[string]int {
	headerMap := make(map[string]int, len(headerRow))
	seen := make(map[string]int, len(headerRow))

	for i, cell := range headerRow {
		name := bp.canonicalHeader(cell)
		if name == "" {
			continue
		}

		if count, dup := seen[name]; dup {
			suffixed := fmt.Sprintf("%s.%d", name, count)
			headerMap[suffixed] = i
			seen[name] = count + 1
			continue
		}

		headerMap[name] = i
		seen[name] = 1
	}

	return headerMap
}

// fieldValue returns the trimmed cell under a mapped column, or "" when the
// row is too short
func fieldValue(row []string, headerMap map[string]int, column string) string {
	index, ok := headerMap[column]
	if !ok || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// isEmptyRow reports whether every cell is empty or whitespace
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
