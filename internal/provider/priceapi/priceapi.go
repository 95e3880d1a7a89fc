// Package priceapi integrates a commercial price-aggregation JSON API.
// It is the richest source: term and barcode lookups, paged results.
package priceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pricehound/pricehound/internal/httputil"
	"github.com/pricehound/pricehound/internal/pricing"
	"github.com/pricehound/pricehound/internal/provider"
)

const defaultPageSize = 25

// Adapter implements provider.Adapter against the aggregation API.
type Adapter struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	limiter       *rate.Limiter
	maxConcurrent int
}

// New creates the adapter. The adapter is disabled until an API key is
// configured.
func New(baseURL, apiKey string, client *http.Client, limiter *rate.Limiter, maxConcurrent int) *Adapter {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Adapter{
		baseURL:       baseURL,
		apiKey:        apiKey,
		client:        client,
		limiter:       limiter,
		maxConcurrent: maxConcurrent,
	}
}

func (a *Adapter) ID() string { return "priceapi" }

func (a *Adapter) StoreInfo() provider.StoreInfo {
	return provider.StoreInfo{Name: "PriceAPI", LogoURL: "https://www.priceapi.com/favicon.ico"}
}

func (a *Adapter) Enabled() bool { return a.apiKey != "" }

func (a *Adapter) Supports(c provider.Capability) bool {
	return c == provider.SearchByTerm || c == provider.SearchByBarcode
}

func (a *Adapter) Search(ctx context.Context, q pricing.ProductQuery) ([]pricing.RawOffer, error) {
	if q.ByBarcode() {
		return a.fetchPage(ctx, "/v1/offers/barcode/"+url.PathEscape(q.Normalized()), nil)
	}

	// One page is usually enough; fetch more pages concurrently only
	// when the caller asked for a bigger window.
	pages := 1
	if q.Limit > defaultPageSize {
		pages = (q.Limit + defaultPageSize - 1) / defaultPageSize
	}
	return a.searchPages(ctx, q, pages)
}

// searchPages fetches result pages concurrently, bounded by the
// adapter's concurrency cap and rate limiter.
func (a *Adapter) searchPages(ctx context.Context, q pricing.ProductQuery, pages int) ([]pricing.RawOffer, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)

	results := make([][]pricing.RawOffer, pages)
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			if a.limiter != nil {
				if err := a.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			params := url.Values{}
			params.Set("q", q.Normalized())
			params.Set("page", strconv.Itoa(i+1))
			params.Set("per_page", strconv.Itoa(defaultPageSize))
			if q.Locale != "" {
				params.Set("locale", q.Locale)
			}
			offers, err := a.fetchPage(ctx, "/v1/offers/search", params)
			if err != nil {
				return err
			}
			results[i] = offers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []pricing.RawOffer
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// offersResponse is the provider's wire shape.
type offersResponse struct {
	Offers []struct {
		Merchant     string `json:"merchant"`
		Title        string `json:"title"`
		PriceDisplay string `json:"price_display"`
		Currency     string `json:"currency"`
		Link         string `json:"link"`
		Image        string `json:"image"`
		Availability string `json:"availability"`
	} `json:"offers"`
	Total int `json:"total"`
}

func (a *Adapter) fetchPage(ctx context.Context, path string, params url.Values) ([]pricing.RawOffer, error) {
	endpoint := a.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range httputil.APIHeaders(a.apiKey) {
		req.Header[k] = v
	}

	resp, err := httputil.DoWithRetry(a.client, req, 2)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("priceapi status %d: %s", resp.StatusCode, string(body))
	}

	var parsed offersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode priceapi response: %w", err)
	}

	offers := make([]pricing.RawOffer, 0, len(parsed.Offers))
	for _, o := range parsed.Offers {
		offers = append(offers, pricing.RawOffer{
			Store:    o.Merchant,
			Price:    o.PriceDisplay,
			Currency: o.Currency,
			URL:      o.Link,
			Image:    o.Image,
			Product:  o.Title,
			InStock:  o.Availability == "in_stock",
		})
	}
	return offers, nil
}
