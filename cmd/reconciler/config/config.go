// Package config builds component configurations from CLI inputs
package config

import (
	"fmt"

	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/normalizer"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
)

// CreateInvoiceParserConfig builds the invoice parser configuration for the
// given category
func CreateInvoiceParserConfig(category models.InvoiceCategory) *parsers.InvoiceParserConfig {
	return parsers.DefaultInvoiceParserConfig(category)
}

// CreateBankParserConfigs pairs each bank file with a parser configuration.
// Labels are matched to files by position; files beyond the label list get an
// empty label.
func CreateBankParserConfigs(bankFiles, labels []string) (map[string]*parsers.BankParserConfig, error) {
	if len(labels) > len(bankFiles) {
		return nil, fmt.Errorf("%d account labels given for %d bank files", len(labels), len(bankFiles))
	}

	configs := make(map[string]*parsers.BankParserConfig, len(bankFiles))
	for i, file := range bankFiles {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		configs[file] = parsers.DefaultBankParserConfig(label)
	}
	return configs, nil
}

// CreateClassifierConfig builds the classifier configuration from CLI
// tolerance and window settings. A negative tolerance keeps the default.
func CreateClassifierConfig(tolerance int64, exactWindowDays, looseWindowDays int) *classifier.Config {
	config := classifier.DefaultConfig()
	if tolerance >= 0 {
		config.Tolerance = decimal.NewFromInt(tolerance)
	}
	if exactWindowDays >= 0 {
		config.ExactWindowDays = exactWindowDays
	}
	if looseWindowDays >= 0 {
		config.LooseWindowDays = looseWindowDays
	}
	return config
}

// CreateReconcilerConfig assembles the run configuration
func CreateReconcilerConfig(
	mode reconciler.Mode,
	category models.InvoiceCategory,
	classifierConfig *classifier.Config,
	strictNormalization bool,
	excludeTaxIDs, excludeNames []string,
) *reconciler.Config {

	config := reconciler.DefaultConfig()
	config.Mode = mode
	config.Category = category
	config.ClassifierConfig = classifierConfig

	if strictNormalization {
		config.NormalizerConfig = normalizer.StrictConfig()
	}

	if len(excludeTaxIDs) > 0 || len(excludeNames) > 0 {
		config.Exclusions = &reconciler.ExclusionFilter{
			TaxIDs:         excludeTaxIDs,
			NameSubstrings: excludeNames,
		}
	}

	return config
}

// CreateReportConfig builds the report configuration for an output format
func CreateReportConfig(format string, mismatchesOnly bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	config.IncludeMatched = !mismatchesOnly

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
