package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pricehound/pricehound/internal/aggregate"
	"github.com/pricehound/pricehound/internal/pricing"
	"github.com/pricehound/pricehound/internal/provider"
)

func registerTools(s *server.MCPServer, agg *aggregate.Aggregator, health *provider.HealthTracker) {
	compareTool := mcp.NewTool("compare_prices",
		mcp.WithDescription("Compare store prices for a product across all healthy pricing providers"),
		mcp.WithString("term",
			mcp.Description("Free-text product search term (mutually exclusive with barcode)"),
		),
		mcp.WithString("barcode",
			mcp.Description("Exact product barcode (mutually exclusive with term)"),
		),
		mcp.WithString("category",
			mcp.Description("Category hint used for price sanity filtering"),
		),
		mcp.WithString("locale",
			mcp.Description("Locale for provider queries (e.g. en-US)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of ranked prices to return"),
		),
	)
	s.AddTool(compareTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleComparePrices(ctx, request, agg)
	})

	healthTool := mcp.NewTool("provider_health",
		mcp.WithDescription("Report the current health state of every pricing provider"),
	)
	s.AddTool(healthTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleProviderHealth(ctx, request, health)
	})
}

func handleComparePrices(ctx context.Context, request mcp.CallToolRequest, agg *aggregate.Aggregator) (*mcp.CallToolResult, error) {
	q := pricing.ProductQuery{
		Term:         request.GetString("term", ""),
		Barcode:      request.GetString("barcode", ""),
		CategoryHint: request.GetString("category", ""),
		Locale:       request.GetString("locale", ""),
		Limit:        request.GetInt("limit", 0),
	}

	result, err := agg.Aggregate(ctx, q)
	if err != nil {
		// Only validation errors reach here; provider failures are
		// absorbed into the result metadata.
		return mcp.NewToolResultError(fmt.Sprintf("invalid query: %v", err)), nil
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func handleProviderHealth(_ context.Context, _ mcp.CallToolRequest, health *provider.HealthTracker) (*mcp.CallToolResult, error) {
	data, _ := json.MarshalIndent(health.Snapshot(), "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
