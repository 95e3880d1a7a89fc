// Package shopsense scrapes the ShopSense shopping-search results
// page. ShopSense has no API; offers come from a data-layer JSON blob
// the page embeds for its own frontend.
package shopsense

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/pricehound/pricehound/internal/httputil"
	"github.com/pricehound/pricehound/internal/pricing"
	"github.com/pricehound/pricehound/internal/provider"
)

const dataLayerMarker = "__shopsense_results__"

// Adapter implements provider.Adapter by scraping result pages.
type Adapter struct {
	// BaseURL is exported so tests can point the adapter at a local
	// fixture server.
	BaseURL        string
	AllowedDomains []string
	enabled        bool
	timeout        time.Duration
}

func New(baseURL string, enabled bool, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = "https://www.shopsense.io/search"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		BaseURL: baseURL,
		enabled: enabled,
		timeout: timeout,
	}
}

func (a *Adapter) ID() string { return "shopsense" }

func (a *Adapter) StoreInfo() provider.StoreInfo {
	return provider.StoreInfo{Name: "ShopSense", LogoURL: "https://www.shopsense.io/favicon.ico"}
}

func (a *Adapter) Enabled() bool { return a.enabled }

func (a *Adapter) Supports(c provider.Capability) bool {
	return c == provider.SearchByTerm
}

// dataLayerOffer mirrors one entry of the embedded results blob.
type dataLayerOffer struct {
	Seller    string `json:"seller"`
	Title     string `json:"title"`
	PriceText string `json:"price_text"`
	Currency  string `json:"currency"`
	Link      string `json:"link"`
	Thumb     string `json:"thumb"`
	Stocked   bool   `json:"stocked"`
}

func (a *Adapter) Search(ctx context.Context, q pricing.ProductQuery) ([]pricing.RawOffer, error) {
	// A fresh collector per call: colly handlers accumulate state and
	// the adapter itself must stay stateless across requests.
	c := colly.NewCollector(
		colly.UserAgent(httputil.DefaultUserAgent),
	)
	if len(a.AllowedDomains) > 0 {
		c.AllowedDomains = a.AllowedDomains
	}
	c.SetRequestTimeout(a.timeout)
	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	var offers []pricing.RawOffer
	var found bool

	c.OnHTML("script", func(e *colly.HTMLElement) {
		if found {
			return
		}
		text := strings.TrimSpace(e.Text)
		loc := strings.Index(text, dataLayerMarker)
		if loc == -1 {
			return
		}
		parsed, err := parseDataLayer(text[loc:])
		if err != nil {
			return
		}
		offers = parsed
		found = true
	})

	searchURL := fmt.Sprintf("%s?q=%s", a.BaseURL, url.QueryEscape(q.Normalized()))
	if err := c.Visit(searchURL); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("shopsense visit: %w", err)
	}
	c.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// A well-formed page without the blob means no results, not an
	// error.
	return offers, nil
}

// parseDataLayer extracts the JSON array assigned to the results
// marker: `__shopsense_results__ = [ ... ];`.
func parseDataLayer(text string) ([]pricing.RawOffer, error) {
	eq := strings.Index(text, "=")
	if eq == -1 {
		return nil, fmt.Errorf("no assignment after marker")
	}
	start := strings.Index(text[eq:], "[")
	if start == -1 {
		return nil, fmt.Errorf("no array after marker")
	}
	jsonStr := strings.TrimSpace(text[eq+start:])
	jsonStr = strings.TrimRight(jsonStr, ";")

	// The blob may be followed by more script code; cut at the
	// matching bracket.
	depth := 0
	end := -1
	for i, r := range jsonStr {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("unterminated results array")
	}

	var parsed []dataLayerOffer
	if err := json.Unmarshal([]byte(jsonStr[:end]), &parsed); err != nil {
		return nil, fmt.Errorf("decode results blob: %w", err)
	}

	offers := make([]pricing.RawOffer, 0, len(parsed))
	for _, o := range parsed {
		offers = append(offers, pricing.RawOffer{
			Store:    o.Seller,
			Price:    o.PriceText,
			Currency: o.Currency,
			URL:      o.Link,
			Image:    o.Thumb,
			Product:  o.Title,
			InStock:  o.Stocked,
		})
	}
	return offers, nil
}
