package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CategoryParse, CodeInvalidFormat, "test message")

	if err.Category != CategoryParse {
		t.Errorf("Expected category %s, got %s", CategoryParse, err.Category)
	}

	if err.Code != CodeInvalidFormat {
		t.Errorf("Expected code %s, got %s", CodeInvalidFormat, err.Code)
	}

	if err.Error() != "test message" {
		t.Errorf("Expected 'test message', got '%s'", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := Wrap(cause, CategoryFile, CodeFileNotFound, "wrapped message")

	if err.Cause != cause {
		t.Error("Expected cause to be preserved")
	}

	if err.Unwrap() != cause {
		t.Error("Expected Unwrap to return the cause")
	}

	if Wrap(nil, CategoryFile, CodeFileNotFound, "msg") != nil {
		t.Error("Expected Wrap(nil) to return nil")
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New(CategoryValidation, CodeInvalidAmount, "bad amount").
		WithSuggestion("use plain numbers")

	if !strings.Contains(err.Error(), "suggestion: use plain numbers") {
		t.Errorf("Expected suggestion in error message, got '%s'", err.Error())
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryParse, CodeInvalidData, "bad row").
		WithContext("line", 17).
		WithContext("file", "invoices.csv")

	if err.Context["line"] != 17 {
		t.Errorf("Expected line context 17, got %v", err.Context["line"])
	}

	if err.Context["file"] != "invoices.csv" {
		t.Errorf("Expected file context, got %v", err.Context["file"])
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryReconciliation, 5},
	}

	for _, tt := range tests {
		err := New(tt.category, "code", "msg")
		if got := err.GetExitCode(); got != tt.expected {
			t.Errorf("Category %s: expected exit code %d, got %d", tt.category, tt.expected, got)
		}
	}
}

func TestFileError(t *testing.T) {
	err := FileError(CodeFileNotFound, "/tmp/missing.csv", fmt.Errorf("no such file"))

	if err.Category != CategoryFile {
		t.Errorf("Expected file category, got %s", err.Category)
	}

	if err.Context["file_path"] != "/tmp/missing.csv" {
		t.Error("Expected file_path context to be set")
	}

	if !strings.Contains(err.Error(), "file not found") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestParseError(t *testing.T) {
	err := ParseError(CodeMissingColumn, "bank.csv", 1, "거래일자", "", nil)

	if err.Category != CategoryParse {
		t.Errorf("Expected parse category, got %s", err.Category)
	}

	if !strings.Contains(err.Error(), "거래일자") {
		t.Errorf("Expected column name in message, got '%s'", err.Error())
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryParse, CodeInvalidData, "row 1"),
		New(CategoryParse, CodeInvalidData, "row 2"),
		New(CategoryFile, CodeFileNotFound, "gone"),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("Expected 3 errors, got %d", summary.Total)
	}

	if summary.ByCategory[CategoryParse] != 2 {
		t.Errorf("Expected 2 parse errors, got %d", summary.ByCategory[CategoryParse])
	}

	if !summary.HasCategory(CategoryFile) {
		t.Error("Expected summary to report file category")
	}

	if summary.HasCategory(CategoryConfiguration) {
		t.Error("Did not expect configuration category")
	}

	if !strings.Contains(summary.Error(), "3 errors occurred") {
		t.Errorf("Unexpected summary message: %s", summary.Error())
	}
}

func TestErrorSummary_Empty(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Total != 0 {
		t.Errorf("Expected 0 errors, got %d", summary.Total)
	}

	if summary.Error() != "no errors" {
		t.Errorf("Expected 'no errors', got '%s'", summary.Error())
	}
}

func TestAsReconcilerError(t *testing.T) {
	inner := New(CategoryValidation, CodeInvalidDate, "bad date")
	wrapped := fmt.Errorf("outer: %w", inner)

	extracted, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("Expected to extract ReconcilerError from chain")
	}

	if extracted.Code != CodeInvalidDate {
		t.Errorf("Expected code %s, got %s", CodeInvalidDate, extracted.Code)
	}

	if _, ok := AsReconcilerError(fmt.Errorf("plain")); ok {
		t.Error("Did not expect to extract from plain error")
	}
}
