package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/pricehound/pricehound/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	agg, health, cleanup := buildAggregator()
	defer cleanup()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting Pricehound MCP server on stdio...")

	return mcpserver.Serve(agg, health)
}
