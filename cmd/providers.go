package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pricehound/pricehound/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and their capabilities",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	initProviders()

	for _, p := range provider.All() {
		state := "enabled"
		if !p.Enabled() {
			state = "disabled"
		}
		var caps []string
		if p.Supports(provider.SearchByTerm) {
			caps = append(caps, "term")
		}
		if p.Supports(provider.SearchByBarcode) {
			caps = append(caps, "barcode")
		}
		fmt.Fprintf(os.Stdout, "%-12s %-9s search: %v  (%s)\n", p.ID(), state, caps, p.StoreInfo().Name)
	}
	return nil
}
