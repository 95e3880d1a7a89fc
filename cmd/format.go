package cmd

import (
	"fmt"
	"os"

	"github.com/pricehound/pricehound/internal/pricing"
)

// printComparisonTable prints a comparison in a human-friendly layout.
func printComparisonTable(result *pricing.ComparisonResult) {
	if result.ProductName != "" {
		fmt.Fprintf(os.Stdout, "%s\n\n", result.ProductName)
	}

	if len(result.Prices) == 0 {
		fmt.Fprintln(os.Stdout, "No prices found.")
	}

	for _, p := range result.Prices {
		line := fmt.Sprintf(" %d. %-24s %s %s", p.Rank, truncate(p.StoreName, 24), p.Price.StringFixed(2), p.Currency)
		if p.IsBestPrice {
			line += "  [best price]"
		} else if p.Savings.IsPositive() {
			line += fmt.Sprintf("  (+%s)", p.Savings.StringFixed(2))
		}
		if !p.InStock {
			line += "  [out of stock]"
		}
		fmt.Fprintln(os.Stdout, line)
		fmt.Fprintf(os.Stdout, "    via %s", p.ProviderSource)
		if p.URL != "" {
			fmt.Fprintf(os.Stdout, "  %s", p.URL)
		}
		fmt.Fprintln(os.Stdout)
	}

	m := result.Meta
	fmt.Fprintf(os.Stdout, "\nproviders: %d queried, %d succeeded, %d cache hits\n",
		m.ProvidersQueried, m.ProvidersSucceeded, m.CacheHits)
	if len(result.Prices) > 1 {
		fmt.Fprintf(os.Stdout, "max savings: %s\n", m.MaxSavings.StringFixed(2))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
