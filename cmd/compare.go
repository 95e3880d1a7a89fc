package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pricehound/pricehound/internal/pricing"
	"github.com/pricehound/pricehound/internal/ui"
)

var compareCmd = &cobra.Command{
	Use:   "compare [term]",
	Short: "Compare store prices for a product",
	Long:  "Fan a query out to all healthy providers and print the ranked store prices. Pass a free-text term, or --barcode for an exact lookup.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().String("barcode", "", "Search by exact barcode instead of a term")
	compareCmd.Flags().String("category", "", "Category hint for price sanity filtering")
	compareCmd.Flags().String("locale", "", "Locale for provider queries (e.g. en-US)")
	compareCmd.Flags().Int("limit", 0, "Maximum number of ranked prices")
	compareCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	agg, _, cleanup := buildAggregator()
	defer cleanup()

	q := pricing.ProductQuery{}
	if len(args) == 1 {
		q.Term = args[0]
	}
	q.Barcode, _ = cmd.Flags().GetString("barcode")
	q.CategoryHint, _ = cmd.Flags().GetString("category")
	q.Locale, _ = cmd.Flags().GetString("locale")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	spin := ui.NewSpinner()
	spin.Start("Comparing prices...")
	result, err := agg.Aggregate(context.Background(), q)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}

	switch format {
	case "table":
		printComparisonTable(result)
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
	}

	return nil
}
