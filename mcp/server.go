// Package mcp exposes the aggregation engine to MCP clients. The
// tools only validate arguments and route into the engine; all
// aggregation semantics live in internal/aggregate.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/pricehound/pricehound/internal/aggregate"
	"github.com/pricehound/pricehound/internal/provider"
)

func newServer(agg *aggregate.Aggregator, health *provider.HealthTracker) *server.MCPServer {
	s := server.NewMCPServer(
		"pricehound",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	registerTools(s, agg, health)
	return s
}

// Serve starts the MCP stdio server with all tools registered.
func Serve(agg *aggregate.Aggregator, health *provider.HealthTracker) error {
	return server.ServeStdio(newServer(agg, health))
}
