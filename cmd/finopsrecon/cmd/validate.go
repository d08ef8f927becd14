package cmd

import (
	"context"
	"fmt"
	"os"

	"finops-reconciliation-pipeline/internal/loaders"
	"finops-reconciliation-pipeline/internal/models"
	"finops-reconciliation-pipeline/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check input files for data quality issues",
	Long: `Validate loads the order and invoice files and reports data quality
issues without running reconciliation: duplicate order IDs, duplicate
invoice IDs, and non-positive amounts.

Examples:
  finopsrecon validate --orders orders.csv --invoices invoices.csv
  finopsrecon validate --orders orders.json --invoices invoices.json`,

	PreRunE: validateValidateFlags,
	RunE:    runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&ordersFile, "orders", "", "path to orders file, CSV or JSON (required)")
	validateCmd.Flags().StringVar(&invoicesFile, "invoices", "", "path to invoices file, CSV or JSON (required)")

	validateCmd.MarkFlagRequired("orders")
	validateCmd.MarkFlagRequired("invoices")
}

func validateValidateFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(ordersFile, "orders file"); err != nil {
		return err
	}
	return validateFileExists(invoicesFile, "invoices file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	parseConfig := loaders.DefaultParseConfig()

	orders, err := loadOrdersAny(ctx, parseConfig)
	if err != nil {
		return err
	}

	invoices, err := loadInvoicesAny(ctx, parseConfig)
	if err != nil {
		return err
	}

	issues := loaders.ValidateRecords(orders, invoices)

	fmt.Printf("Validated %d orders and %d invoices\n", len(orders), len(invoices))

	if len(issues) == 0 {
		fmt.Println("No data quality issues found")
		return nil
	}

	fmt.Printf("Found %d data quality issues:\n", len(issues))
	for _, issue := range issues {
		fmt.Printf("  %s\n", issue)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Validation completed with issues\n")
	}

	return errors.ValidationError(
		errors.CodeInvalidData,
		"datasets",
		fmt.Sprintf("%d data quality issues found", len(issues)),
		issues[0].Err(),
	)
}

func loadOrdersAny(ctx context.Context, parseConfig *loaders.ParseConfig) ([]*models.Order, error) {
	if loaders.IsJSONFile(ordersFile) {
		return loaders.LoadOrdersJSON(ctx, ordersFile)
	}

	loader := loaders.NewOrderLoader(parseConfig, nil)
	orders, stats, err := loader.LoadFile(ctx, ordersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	reportParseErrors("orders", stats)
	return orders, nil
}

func loadInvoicesAny(ctx context.Context, parseConfig *loaders.ParseConfig) ([]*models.Invoice, error) {
	if loaders.IsJSONFile(invoicesFile) {
		return loaders.LoadInvoicesJSON(ctx, invoicesFile)
	}

	loader := loaders.NewInvoiceLoader(parseConfig, nil)
	invoices, stats, err := loader.LoadFile(ctx, invoicesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	reportParseErrors("invoices", stats)
	return invoices, nil
}
