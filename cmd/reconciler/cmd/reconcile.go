package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	invoiceFiles   []string
	bankFiles      []string
	accountLabels  []string
	categoryFlag   string
	modeFlag       string
	toleranceFlag  int64
	exactWindow    int
	looseWindow    int
	strictNames    bool
	outputFormat   string
	outputFile     string
	overridesFile  string
	excludeTaxIDs  []string
	excludeNames   []string
	mismatchesOnly bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile tax invoices against bank ledger transactions",
	Long: `Reconcile compares tax invoice records against bank account ledger
transactions to find vendors whose invoiced and settled amounts disagree.

This command requires:
- One or more tax invoice CSV exports
- One or more bank ledger CSV exports

Examples:
  # Purchase invoices against the business account
  reconciler reconcile --invoice-files invoices.csv --bank-files ledger.csv

  # Sales invoices, two accounts, row-level matching
  reconciler reconcile -i sales.csv -b biz.csv,guarantee.csv \
    --labels 사업자,기보 --category 매출 --mode rows

  # Custom tolerance with operator vendor links
  reconciler reconcile -i invoices.csv -b ledger.csv \
    --tolerance 5000 --overrides-file links.yaml

  # JSON report of mismatches only
  reconciler reconcile -i invoices.csv -b ledger.csv \
    --output-format json --mismatches-only`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringSliceVarP(&invoiceFiles, "invoice-files", "i", []string{}, "comma-separated paths to tax invoice CSV files (required)")
	reconcileCmd.Flags().StringSliceVarP(&bankFiles, "bank-files", "b", []string{}, "comma-separated paths to bank ledger CSV files (required)")
	reconcileCmd.Flags().StringSliceVar(&accountLabels, "labels", []string{}, "account labels for the bank files, by position (e.g. 사업자,기보)")

	reconcileCmd.Flags().StringVarP(&categoryFlag, "category", "c", "매입", "invoice category: 매입 (purchase) or 매출 (sale)")
	reconcileCmd.Flags().StringVarP(&modeFlag, "mode", "m", "aggregate", "matching mode: aggregate, rows, full")
	reconcileCmd.Flags().Int64VarP(&toleranceFlag, "tolerance", "t", -1, "aggregate match tolerance in KRW (default 1000)")
	reconcileCmd.Flags().IntVar(&exactWindow, "exact-window", -1, "exact match window in days for row mode (default 1)")
	reconcileCmd.Flags().IntVar(&looseWindow, "loose-window", -1, "partial match window in days for row mode (default 3)")
	reconcileCmd.Flags().BoolVar(&strictNames, "strict-names", false, "normalize vendor names aggressively (case, whitespace, parentheses)")

	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&mismatchesOnly, "mismatches-only", false, "omit matched vendors and rows from the report")

	reconcileCmd.Flags().StringVar(&overridesFile, "overrides-file", "", "YAML file of operator vendor links")
	reconcileCmd.Flags().StringSliceVar(&excludeTaxIDs, "exclude-tax-ids", []string{}, "registration numbers whose invoices are skipped")
	reconcileCmd.Flags().StringSliceVar(&excludeNames, "exclude-names", []string{}, "name substrings whose records are skipped")

	reconcileCmd.MarkFlagRequired("invoice-files")
	reconcileCmd.MarkFlagRequired("bank-files")

	viper.BindPFlag("invoice-files", reconcileCmd.Flags().Lookup("invoice-files"))
	viper.BindPFlag("bank-files", reconcileCmd.Flags().Lookup("bank-files"))
	viper.BindPFlag("labels", reconcileCmd.Flags().Lookup("labels"))
	viper.BindPFlag("category", reconcileCmd.Flags().Lookup("category"))
	viper.BindPFlag("mode", reconcileCmd.Flags().Lookup("mode"))
	viper.BindPFlag("tolerance", reconcileCmd.Flags().Lookup("tolerance"))
	viper.BindPFlag("exact-window", reconcileCmd.Flags().Lookup("exact-window"))
	viper.BindPFlag("loose-window", reconcileCmd.Flags().Lookup("loose-window"))
	viper.BindPFlag("strict-names", reconcileCmd.Flags().Lookup("strict-names"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("mismatches-only", reconcileCmd.Flags().Lookup("mismatches-only"))
	viper.BindPFlag("overrides-file", reconcileCmd.Flags().Lookup("overrides-file"))
	viper.BindPFlag("exclude-tax-ids", reconcileCmd.Flags().Lookup("exclude-tax-ids"))
	viper.BindPFlag("exclude-names", reconcileCmd.Flags().Lookup("exclude-names"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Values come from viper so a config file can override flags
	invoiceFiles = viper.GetStringSlice("invoice-files")
	bankFiles = viper.GetStringSlice("bank-files")
	accountLabels = viper.GetStringSlice("labels")
	categoryFlag = viper.GetString("category")
	modeFlag = viper.GetString("mode")
	toleranceFlag = viper.GetInt64("tolerance")
	exactWindow = viper.GetInt("exact-window")
	looseWindow = viper.GetInt("loose-window")
	strictNames = viper.GetBool("strict-names")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	mismatchesOnly = viper.GetBool("mismatches-only")
	overridesFile = viper.GetString("overrides-file")
	excludeTaxIDs = viper.GetStringSlice("exclude-tax-ids")
	excludeNames = viper.GetStringSlice("exclude-names")

	if len(invoiceFiles) == 0 {
		return fmt.Errorf("at least one invoice-file is required")
	}
	if len(bankFiles) == 0 {
		return fmt.Errorf("at least one bank-file is required")
	}

	for i, file := range invoiceFiles {
		if err := validateFileExists(file, fmt.Sprintf("invoice file %d", i+1)); err != nil {
			return err
		}
	}
	for i, file := range bankFiles {
		if err := validateFileExists(file, fmt.Sprintf("bank file %d", i+1)); err != nil {
			return err
		}
	}
	if overridesFile != "" {
		if err := validateFileExists(overridesFile, "overrides file"); err != nil {
			return err
		}
	}

	if _, err := models.ParseInvoiceCategory(categoryFlag); err != nil {
		return err
	}
	if _, err := reconciler.ParseMode(modeFlag); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if len(accountLabels) > len(bankFiles) {
		return fmt.Errorf("more labels (%d) than bank files (%d)", len(accountLabels), len(bankFiles))
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	errorHandler := NewCLIErrorHandler()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Invoice files: %s\n", strings.Join(invoiceFiles, ", "))
		fmt.Fprintf(os.Stderr, "Bank files: %s\n", strings.Join(bankFiles, ", "))
		fmt.Fprintf(os.Stderr, "Category: %s  Mode: %s\n", categoryFlag, modeFlag)
	}

	category, _ := models.ParseInvoiceCategory(categoryFlag)
	mode, _ := reconciler.ParseMode(modeFlag)

	invoices, err := parseInvoiceFiles(ctx, category)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	transactions, err := parseBankFiles(ctx)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	classifierConfig := config.CreateClassifierConfig(toleranceFlag, exactWindow, looseWindow)
	runConfig := config.CreateReconcilerConfig(mode, category, classifierConfig,
		strictNames, excludeTaxIDs, excludeNames)

	service, err := reconciler.NewService(runConfig)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	if overridesFile != "" {
		if err := service.Overrides().LoadLinksFile(overridesFile); err != nil {
			os.Exit(errorHandler.HandleError(err))
		}
	}

	report, err := service.Run(ctx, invoices, transactions)
	if err != nil {
		os.Exit(errorHandler.HandleError(err))
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, mismatchesOnly)
	if err != nil {
		return fmt.Errorf("failed to create report config: %w", err)
	}
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	if err := reportGenerator.GenerateReport(report, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed.\n")
		fmt.Fprintf(os.Stderr, "Processed %d invoices and %d bank transactions.\n",
			report.Summary.TotalInvoices, report.Summary.TotalTransactions)
		if report.Summary.GroupCount > 0 {
			fmt.Fprintf(os.Stderr, "%d vendor groups: %d matched, %d unmatched.\n",
				report.Summary.GroupCount, report.Summary.GroupsMatched, report.Summary.GroupsUnmatched)
		}
	}

	return nil
}

func parseInvoiceFiles(ctx context.Context, category models.InvoiceCategory) ([]*models.InvoiceRecord, error) {
	parser, err := parsers.NewInvoiceParser(config.CreateInvoiceParserConfig(category))
	if err != nil {
		return nil, err
	}

	var all []*models.InvoiceRecord
	for _, file := range invoiceFiles {
		records, stats, err := parser.ParseInvoices(ctx, file)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "%s\n", stats)
		}
	}
	return all, nil
}

func parseBankFiles(ctx context.Context) ([]*models.BankTransaction, error) {
	configs, err := config.CreateBankParserConfigs(bankFiles, accountLabels)
	if err != nil {
		return nil, err
	}

	var all []*models.BankTransaction
	for _, file := range bankFiles {
		parser, err := parsers.NewBankParser(configs[file])
		if err != nil {
			return nil, err
		}

		transactions, stats, err := parser.ParseTransactions(ctx, file)
		if err != nil {
			return nil, err
		}
		all = append(all, transactions...)

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "%s\n", stats)
		}
	}
	return all, nil
}
