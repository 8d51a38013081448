package config

import (
	"testing"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/reconciler"

	"github.com/shopspring/decimal"
)

func TestCreateBankParserConfigs(t *testing.T) {
	files := []string{"biz.csv", "guarantee.csv"}
	labels := []string{"사업자", "기보"}

	configs, err := CreateBankParserConfigs(files, labels)
	if err != nil {
		t.Fatalf("CreateBankParserConfigs failed: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
	if configs["biz.csv"].AccountLabel != "사업자" {
		t.Errorf("expected label 사업자, got %q", configs["biz.csv"].AccountLabel)
	}
	if configs["guarantee.csv"].AccountLabel != "기보" {
		t.Errorf("expected label 기보, got %q", configs["guarantee.csv"].AccountLabel)
	}
}

func TestCreateBankParserConfigsPartialLabels(t *testing.T) {
	configs, err := CreateBankParserConfigs([]string{"a.csv", "b.csv"}, []string{"사업자"})
	if err != nil {
		t.Fatalf("CreateBankParserConfigs failed: %v", err)
	}
	if configs["b.csv"].AccountLabel != "" {
		t.Errorf("unlabeled file should get empty label, got %q", configs["b.csv"].AccountLabel)
	}
}

func TestCreateBankParserConfigsTooManyLabels(t *testing.T) {
	if _, err := CreateBankParserConfigs([]string{"a.csv"}, []string{"사업자", "기보"}); err == nil {
		t.Error("expected error for more labels than files")
	}
}

func TestCreateClassifierConfig(t *testing.T) {
	config := CreateClassifierConfig(5000, 2, 7)
	if !config.Tolerance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected tolerance 5000, got %s", config.Tolerance)
	}
	if config.ExactWindowDays != 2 || config.LooseWindowDays != 7 {
		t.Errorf("windows not applied: %+v", config)
	}
}

func TestCreateClassifierConfigDefaults(t *testing.T) {
	config := CreateClassifierConfig(-1, -1, -1)
	if !config.Tolerance.Equal(models.DefaultTolerance) {
		t.Errorf("negative tolerance should keep default, got %s", config.Tolerance)
	}
	if config.ExactWindowDays != 1 || config.LooseWindowDays != 3 {
		t.Errorf("negative windows should keep defaults: %+v", config)
	}
}

func TestCreateReconcilerConfig(t *testing.T) {
	classifierConfig := CreateClassifierConfig(-1, -1, -1)
	config := CreateReconcilerConfig(reconciler.ModeRows, models.CategorySale,
		classifierConfig, true, []string{"123-45-67890"}, []string{"급여"})

	if config.Mode != reconciler.ModeRows {
		t.Errorf("expected rows mode, got %s", config.Mode)
	}
	if config.Category != models.CategorySale {
		t.Errorf("expected sale category, got %s", config.Category)
	}
	if !config.NormalizerConfig.Strict {
		t.Error("expected strict normalization")
	}
	if config.Exclusions == nil || len(config.Exclusions.TaxIDs) != 1 {
		t.Errorf("exclusions not applied: %+v", config.Exclusions)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("built config should validate: %v", err)
	}
}

func TestCreateReconcilerConfigNoExclusions(t *testing.T) {
	config := CreateReconcilerConfig(reconciler.ModeAggregate, models.CategoryPurchase,
		nil, false, nil, nil)
	if config.Exclusions != nil {
		t.Error("expected nil exclusions when nothing is excluded")
	}
	if config.NormalizerConfig.Strict {
		t.Error("default normalization should not be strict")
	}
}

func TestCreateReportConfig(t *testing.T) {
	config, err := CreateReportConfig("json", true)
	if err != nil {
		t.Fatalf("CreateReportConfig failed: %v", err)
	}
	if string(config.Format) != "json" {
		t.Errorf("expected json format, got %s", config.Format)
	}
	if config.IncludeMatched {
		t.Error("mismatches-only should exclude matched entries")
	}

	if _, err := CreateReportConfig("xml", false); err == nil {
		t.Error("expected error for unsupported format")
	}
}
