// Package marketly integrates the Marketly marketplace. Marketly
// serves schema.org JSON-LD on its search and product pages; a static
// fetch covers most traffic, with an optional headless-browser
// fallback for pages that only materialize offers client-side.
package marketly

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pricehound/pricehound/internal/httputil"
	"github.com/pricehound/pricehound/internal/pricing"
	"github.com/pricehound/pricehound/internal/provider"
)

// strategy is one way of obtaining raw offers for a page URL.
type strategy interface {
	name() string
	fetch(ctx context.Context, pageURL string) ([]pricing.RawOffer, error)
}

// Adapter implements provider.Adapter for Marketly.
type Adapter struct {
	// BaseURL is exported so tests can point the adapter at a local
	// fixture server.
	BaseURL    string
	enabled    bool
	strategies []strategy
}

// New creates the adapter. When useHeadless is set, a browser-rendered
// fetch is tried after the static page yields nothing.
func New(baseURL string, enabled, useHeadless bool, client *http.Client) *Adapter {
	if baseURL == "" {
		baseURL = "https://www.marketly.com"
	}
	strategies := []strategy{newStaticStrategy(client)}
	if useHeadless {
		strategies = append(strategies, newHeadlessStrategy())
	}
	return &Adapter{
		BaseURL:    baseURL,
		enabled:    enabled,
		strategies: strategies,
	}
}

func (a *Adapter) ID() string { return "marketly" }

func (a *Adapter) StoreInfo() provider.StoreInfo {
	return provider.StoreInfo{Name: "Marketly", LogoURL: "https://www.marketly.com/favicon.ico"}
}

func (a *Adapter) Enabled() bool { return a.enabled }

func (a *Adapter) Supports(c provider.Capability) bool {
	return c == provider.SearchByTerm || c == provider.SearchByBarcode
}

func (a *Adapter) Search(ctx context.Context, q pricing.ProductQuery) ([]pricing.RawOffer, error) {
	pageURL := a.BaseURL + "/search?q=" + url.QueryEscape(q.Normalized())
	if q.ByBarcode() {
		pageURL = a.BaseURL + "/barcode/" + url.PathEscape(q.Normalized())
	}

	var lastErr error
	for _, s := range a.strategies {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		offers, err := s.fetch(ctx, pageURL)
		if err != nil {
			lastErr = fmt.Errorf("marketly %s: %w", s.name(), err)
			continue
		}
		if len(offers) > 0 {
			return offers, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	// Every strategy fetched cleanly and found nothing listed.
	return nil, nil
}

// staticStrategy fetches raw HTML and extracts JSON-LD offer data.
type staticStrategy struct {
	client *http.Client
}

func newStaticStrategy(client *http.Client) *staticStrategy {
	return &staticStrategy{client: client}
}

func (s *staticStrategy) name() string { return "static" }

func (s *staticStrategy) fetch(ctx context.Context, pageURL string) ([]pricing.RawOffer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range httputil.BrowserHeaders() {
		req.Header[k] = v
	}

	resp, err := httputil.DoWithRetry(s.client, req, 2)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	return extractJSONLD(string(body))
}
