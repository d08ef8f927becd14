package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"finops-reconciliation-pipeline/cmd/finopsrecon/config"
	"finops-reconciliation-pipeline/internal/engine"
	"finops-reconciliation-pipeline/internal/loaders"
	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/internal/reporter"
	"finops-reconciliation-pipeline/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	ordersFile      string
	shipmentsFile   string
	invoicesFile    string
	ledgerFile      string
	outputFormat    string
	outputFile      string
	matchFilter     string
	amountTolerance float64
	timingTolerance int
	showProgress    bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile orders with invoices",
	Long: `Reconcile pairs operational order records with financial invoice records
and classifies every pairing. Shipment and ledger files are optional; when
provided they refine the classification of amount discrepancies into
partial fulfillments and refunds.

Examples:
  # Basic reconciliation
  finopsrecon reconcile --orders orders.csv --invoices invoices.csv

  # Full dataset with custom tolerances
  finopsrecon reconcile --orders orders.csv --shipments shipments.csv \
    --invoices invoices.csv --ledger ledger.csv \
    --amount-tolerance 0.05 --timing-tolerance 10

  # JSON report written to a file
  finopsrecon reconcile --orders orders.csv --invoices invoices.csv \
    --output-format json --output-file report.json

  # Exceptions-only CSV for review
  finopsrecon reconcile --orders orders.csv --invoices invoices.csv \
    --output-format csv --match-filter exceptions --output-file exceptions.csv

  # With progress indicators
  finopsrecon reconcile --orders orders.csv --invoices invoices.csv --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVar(&ordersFile, "orders", "", "path to orders file, CSV or JSON (required)")
	reconcileCmd.Flags().StringVar(&invoicesFile, "invoices", "", "path to invoices file, CSV or JSON (required)")

	// Optional context files
	reconcileCmd.Flags().StringVar(&shipmentsFile, "shipments", "", "path to shipments file, CSV or JSON")
	reconcileCmd.Flags().StringVar(&ledgerFile, "ledger", "", "path to ledger postings file, CSV or JSON")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().StringVarP(&matchFilter, "match-filter", "m", "all", "match records to include in CSV output: all, matched, exceptions")

	// Classification tolerances
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0.01, "absolute amount tolerance for matching")
	reconcileCmd.Flags().IntVarP(&timingTolerance, "timing-tolerance", "t", 5, "order-to-invoice gap tolerance in days")

	// UI flags
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("orders")
	reconcileCmd.MarkFlagRequired("invoices")

	// Bind flags to viper
	viper.BindPFlag("orders", reconcileCmd.Flags().Lookup("orders"))
	viper.BindPFlag("invoices", reconcileCmd.Flags().Lookup("invoices"))
	viper.BindPFlag("shipments", reconcileCmd.Flags().Lookup("shipments"))
	viper.BindPFlag("ledger", reconcileCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("match-filter", reconcileCmd.Flags().Lookup("match-filter"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("timing-tolerance", reconcileCmd.Flags().Lookup("timing-tolerance"))
	viper.BindPFlag("progress", reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	ordersFile = viper.GetString("orders")
	invoicesFile = viper.GetString("invoices")
	shipmentsFile = viper.GetString("shipments")
	ledgerFile = viper.GetString("ledger")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	matchFilter = viper.GetString("match-filter")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	timingTolerance = viper.GetInt("timing-tolerance")
	showProgress = viper.GetBool("progress")

	// Validate required flags
	if ordersFile == "" {
		return fmt.Errorf("orders file is required")
	}
	if invoicesFile == "" {
		return fmt.Errorf("invoices file is required")
	}

	// Validate file existence
	if err := validateFileExists(ordersFile, "orders file"); err != nil {
		return err
	}
	if err := validateFileExists(invoicesFile, "invoices file"); err != nil {
		return err
	}
	if shipmentsFile != "" {
		if err := validateFileExists(shipmentsFile, "shipments file"); err != nil {
			return err
		}
	}
	if ledgerFile != "" {
		if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
			return err
		}
	}

	// Validate output format
	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate match filter, treating unset as all
	if matchFilter == "" {
		matchFilter = "all"
	}
	validFilters := map[string]bool{"all": true, "matched": true, "exceptions": true}
	if !validFilters[matchFilter] {
		return fmt.Errorf("invalid match filter '%s'. Valid filters: all, matched, exceptions", matchFilter)
	}

	// Validate tolerances
	if amountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}
	if timingTolerance < 0 {
		return fmt.Errorf("timing tolerance cannot be negative")
	}

	// Validate output file directory exists if specified
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

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Orders file: %s\n", ordersFile)
		fmt.Fprintf(os.Stderr, "Invoices file: %s\n", invoicesFile)
		if shipmentsFile != "" {
			fmt.Fprintf(os.Stderr, "Shipments file: %s\n", shipmentsFile)
		}
		if ledgerFile != "" {
			fmt.Fprintf(os.Stderr, "Ledger file: %s\n", ledgerFile)
		}
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	// Load datasets
	if showProgress {
		fmt.Fprintf(os.Stderr, "Loading input files...\n")
	}

	datasets, err := loadDatasets(ctx)
	if err != nil {
		return err
	}

	if showProgress {
		fmt.Fprintf(os.Stderr, "Loaded %d orders, %d shipments, %d invoices, %d ledger postings\n",
			len(datasets.Orders), len(datasets.Shipments), len(datasets.Invoices), len(datasets.Postings))
	}

	// Run reconciliation
	engineConfig := config.CreateEngineConfig(amountTolerance, timingTolerance)
	recEngine, err := engine.NewEngine(engineConfig)
	if err != nil {
		return errors.ReconciliationError(errors.CodeProcessingError, "engine setup", err)
	}

	if viper.GetBool("verbose") {
		stats := recEngine.Stats(datasets.Shipments, datasets.Invoices, datasets.Postings)
		fmt.Fprintf(os.Stderr, "Indexed %d invoices covering %d orders, %d shipments for %d orders, %d postings for %d invoices\n",
			stats.Invoices, stats.OrdersWithInvoice, stats.Shipments, stats.OrdersWithShipped,
			stats.Postings, stats.InvoicesWithPosts)
	}

	if showProgress {
		fmt.Fprintf(os.Stderr, "Reconciling...\n")
	}

	matches, summary := recEngine.Reconcile(datasets.Orders, datasets.Shipments, datasets.Invoices, datasets.Postings)

	// Generate report
	reportConfig := config.CreateReportConfig(outputFormat, matchFilter)
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(matches, summary, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d orders and %d invoices.\n",
			summary.TotalOrders, summary.TotalInvoices)
		fmt.Fprintf(os.Stderr, "Found %d matched, %d exceptions.\n",
			summary.MatchedCount, summary.ExceptionCount)
	}

	return nil
}

// datasets bundles the loaded input records for a reconciliation run
type datasets struct {
	Orders    []*models.Order
	Shipments []*models.Shipment
	Invoices  []*models.Invoice
	Postings  []*models.LedgerPosting
}

// loadDatasets reads the configured input files, choosing CSV or JSON
// loading by file extension. Shipments and ledger are optional.
func loadDatasets(ctx context.Context) (*datasets, error) {
	ds := &datasets{}
	parseConfig := config.CreateParseConfig()

	if loaders.IsJSONFile(ordersFile) {
		orders, err := loaders.LoadOrdersJSON(ctx, ordersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
		ds.Orders = orders
	} else {
		loader := loaders.NewOrderLoader(parseConfig, nil)
		orders, stats, err := loader.LoadFile(ctx, ordersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
		reportParseErrors("orders", stats)
		ds.Orders = orders
	}

	if loaders.IsJSONFile(invoicesFile) {
		invoices, err := loaders.LoadInvoicesJSON(ctx, invoicesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load invoices: %w", err)
		}
		ds.Invoices = invoices
	} else {
		loader := loaders.NewInvoiceLoader(parseConfig, nil)
		invoices, stats, err := loader.LoadFile(ctx, invoicesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load invoices: %w", err)
		}
		reportParseErrors("invoices", stats)
		ds.Invoices = invoices
	}

	if shipmentsFile != "" {
		if loaders.IsJSONFile(shipmentsFile) {
			shipments, err := loaders.LoadShipmentsJSON(ctx, shipmentsFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load shipments: %w", err)
			}
			ds.Shipments = shipments
		} else {
			loader := loaders.NewShipmentLoader(parseConfig, nil)
			shipments, stats, err := loader.LoadFile(ctx, shipmentsFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load shipments: %w", err)
			}
			reportParseErrors("shipments", stats)
			ds.Shipments = shipments
		}
	}

	if ledgerFile != "" {
		if loaders.IsJSONFile(ledgerFile) {
			postings, err := loaders.LoadLedgerJSON(ctx, ledgerFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load ledger postings: %w", err)
			}
			ds.Postings = postings
		} else {
			loader := loaders.NewLedgerLoader(parseConfig, nil)
			postings, stats, err := loader.LoadFile(ctx, ledgerFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load ledger postings: %w", err)
			}
			reportParseErrors("ledger", stats)
			ds.Postings = postings
		}
	}

	return ds, nil
}

// reportParseErrors surfaces skipped rows on stderr so they are visible
// even without verbose logging
func reportParseErrors(dataset string, stats *loaders.ParseStats) {
	if stats == nil || !stats.HasErrors() {
		return
	}

	fmt.Fprintf(os.Stderr, "Warning: %d invalid %s rows were skipped\n", stats.ErrorCount, dataset)
	for _, sample := range stats.GetSampleErrors(3) {
		fmt.Fprintf(os.Stderr, "  %s\n", sample)
	}
}
