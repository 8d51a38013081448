// Package reconciler orchestrates a reconciliation run: key resolution
// through overrides and normalization, aggregation, classification, and
// report assembly. A report is a pure view over the records handed to Run;
// nothing is persisted between runs, so edits to records or links are fully
// reflected the next time Run is called.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/aggregator"
	"invoice-reconciliation-service/internal/classifier"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/normalizer"
	"invoice-reconciliation-service/internal/overrides"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode selects the matching granularity of a run
type Mode string

const (
	// ModeAggregate compares per-vendor sums under the tolerance
	ModeAggregate Mode = "aggregate"
	// ModeRows matches individual invoices to bank transactions
	ModeRows Mode = "rows"
	// ModeFull produces both views in one run
	ModeFull Mode = "full"
)

// ParseMode parses a matching mode from string
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAggregate:
		return ModeAggregate, nil
	case ModeRows:
		return ModeRows, nil
	case ModeFull:
		return ModeFull, nil
	default:
		return "", fmt.Errorf("invalid mode '%s': must be aggregate, rows, or full", s)
	}
}

// ExclusionFilter removes known-irrelevant records before matching, such as
// payroll counterparties or the business's own registration number
type ExclusionFilter struct {
	// TaxIDs drops invoices whose counterparty registration number matches
	TaxIDs []string

	// NameSubstrings drops invoices and bank transactions whose raw
	// counterparty name contains any of the substrings
	NameSubstrings []string
}

// IsEmpty reports whether the filter excludes nothing
func (f *ExclusionFilter) IsEmpty() bool {
	return f == nil || (len(f.TaxIDs) == 0 && len(f.NameSubstrings) == 0)
}

func (f *ExclusionFilter) excludesInvoice(inv *models.InvoiceRecord) bool {
	for _, taxID := range f.TaxIDs {
		if taxID != "" && inv.TaxID == taxID {
			return true
		}
	}
	return f.excludesName(inv.VendorName)
}

func (f *ExclusionFilter) excludesName(name string) bool {
	for _, sub := range f.NameSubstrings {
		if sub != "" && strings.Contains(name, sub) {
			return true
		}
	}
	return false
}

// Config holds the settings of a reconciliation run
type Config struct {
	Mode     Mode
	Category models.InvoiceCategory

	DirectionPolicy  aggregator.DirectionPolicy
	NormalizerConfig *normalizer.Config
	ClassifierConfig *classifier.Config

	Exclusions *ExclusionFilter
}

// DefaultConfig returns the standard run settings: aggregate matching of
// purchase invoices against deposits
func DefaultConfig() *Config {
	return &Config{
		Mode:             ModeAggregate,
		Category:         models.CategoryPurchase,
		DirectionPolicy:  aggregator.DefaultDirectionPolicy(),
		NormalizerConfig: normalizer.DefaultConfig(),
		ClassifierConfig: classifier.DefaultConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAggregate, ModeRows, ModeFull:
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if !c.Category.IsValid() {
		return fmt.Errorf("invalid invoice category: %s", c.Category)
	}
	if c.NormalizerConfig != nil {
		if err := c.NormalizerConfig.Validate(); err != nil {
			return fmt.Errorf("normalizer config: %w", err)
		}
	}
	if c.ClassifierConfig != nil {
		if err := c.ClassifierConfig.Validate(); err != nil {
			return fmt.Errorf("classifier config: %w", err)
		}
	}
	return nil
}

// Summary aggregates the outcome counts and totals of a run
type Summary struct {
	TotalInvoices     int             `json:"total_invoices"`
	TotalTransactions int             `json:"total_transactions"`
	ExcludedInvoices  int             `json:"excluded_invoices"`
	ExcludedBank      int             `json:"excluded_bank"`
	GroupCount        int             `json:"group_count"`
	GroupsMatched     int             `json:"groups_matched"`
	GroupsUnmatched   int             `json:"groups_unmatched"`
	RowsMatched       int             `json:"rows_matched"`
	RowsPartial       int             `json:"rows_partial"`
	RowsUnmatched     int             `json:"rows_unmatched"`
	TotalInvoiced     decimal.Decimal `json:"total_invoiced"`
	TotalBanked       decimal.Decimal `json:"total_banked"`
}

// Report is the complete result of one reconciliation run
type Report struct {
	RunID       string                  `json:"run_id"`
	ProcessedAt time.Time               `json:"processed_at"`
	Mode        Mode                    `json:"mode"`
	Category    models.InvoiceCategory  `json:"category"`
	Groups      []*models.VendorGroup   `json:"groups,omitempty"`
	Rows        []*classifier.RowVerdict `json:"rows,omitempty"`
	Summary     Summary                 `json:"summary"`
}

// Service runs reconciliations. The override store it carries is shared with
// callers so operator links declared between runs take effect on the next Run.
type Service struct {
	config     *Config
	overrides  *overrides.Store
	aggregator *aggregator.Aggregator
	classifier *classifier.Classifier
	logger     logger.Logger
}

// NewService creates a reconciliation Service
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", config, err)
	}

	norm := normalizer.New(config.NormalizerConfig)
	store := overrides.NewStore(norm.Normalize)

	cls, err := classifier.New(config.ClassifierConfig)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:     config,
		overrides:  store,
		aggregator: aggregator.New(store.KeyFunc(), config.DirectionPolicy),
		classifier: cls,
		logger:     logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// Overrides exposes the service's override store for operator links
func (s *Service) Overrides() *overrides.Store {
	return s.overrides
}

// Run executes one reconciliation over the given records and returns its
// report. Empty inputs produce an empty report, not an error.
func (s *Service) Run(ctx context.Context, invoices []*models.InvoiceRecord, banks []*models.BankTransaction) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       uuid.New().String(),
		ProcessedAt: time.Now().UTC(),
		Mode:        s.config.Mode,
		Category:    s.config.Category,
		Summary: Summary{
			TotalInvoices:     len(invoices),
			TotalTransactions: len(banks),
			TotalInvoiced:     decimal.Zero,
			TotalBanked:       decimal.Zero,
		},
	}

	s.logger.WithFields(logger.Fields{
		"run_id":       report.RunID,
		"mode":         s.config.Mode,
		"category":     s.config.Category.String(),
		"invoices":     len(invoices),
		"transactions": len(banks),
	}).Info("Starting reconciliation run")

	invoices, banks = s.applyExclusions(invoices, banks, &report.Summary)
	keyFn := s.overrides.KeyFunc()

	if s.config.Mode == ModeAggregate || s.config.Mode == ModeFull {
		groups := s.aggregator.Aggregate(invoices, banks, s.config.Category)
		s.classifier.ClassifyGroups(groups)

		for _, key := range aggregator.SortedKeys(groups) {
			group := groups[key]
			report.Groups = append(report.Groups, group)
			report.Summary.TotalInvoiced = report.Summary.TotalInvoiced.Add(group.TotalInvoiced)
			report.Summary.TotalBanked = report.Summary.TotalBanked.Add(group.TotalBanked)
			if group.Verdict == models.VerdictMatched {
				report.Summary.GroupsMatched++
			} else {
				report.Summary.GroupsUnmatched++
			}
		}
		report.Summary.GroupCount = len(report.Groups)
	}

	if s.config.Mode == ModeRows || s.config.Mode == ModeFull {
		index := aggregator.NewBankTransactionIndex(banks, keyFn)
		report.Rows = s.classifier.ClassifyRows(invoices, index, keyFn)

		for _, row := range report.Rows {
			switch row.Verdict {
			case models.VerdictMatched:
				report.Summary.RowsMatched++
			case models.VerdictPartiallyMatched:
				report.Summary.RowsPartial++
			default:
				report.Summary.RowsUnmatched++
			}
		}
	}

	s.logger.WithFields(logger.Fields{
		"run_id":           report.RunID,
		"groups":           report.Summary.GroupCount,
		"groups_matched":   report.Summary.GroupsMatched,
		"rows_matched":     report.Summary.RowsMatched,
		"rows_partial":     report.Summary.RowsPartial,
		"rows_unmatched":   report.Summary.RowsUnmatched,
		"excluded_invoices": report.Summary.ExcludedInvoices,
	}).Info("Reconciliation run complete")

	return report, nil
}

// applyExclusions filters records the operator marked irrelevant and counts
// what was dropped
func (s *Service) applyExclusions(
	invoices []*models.InvoiceRecord,
	banks []*models.BankTransaction,
	summary *Summary,
) ([]*models.InvoiceRecord, []*models.BankTransaction) {

	if s.config.Exclusions.IsEmpty() {
		return invoices, banks
	}

	keptInvoices := make([]*models.InvoiceRecord, 0, len(invoices))
	for _, inv := range invoices {
		if s.config.Exclusions.excludesInvoice(inv) {
			summary.ExcludedInvoices++
			continue
		}
		keptInvoices = append(keptInvoices, inv)
	}

	keptBanks := make([]*models.BankTransaction, 0, len(banks))
	for _, tx := range banks {
		if s.config.Exclusions.excludesName(tx.CounterpartyName) {
			summary.ExcludedBank++
			continue
		}
		keptBanks = append(keptBanks, tx)
	}

	return keptInvoices, keptBanks
}
