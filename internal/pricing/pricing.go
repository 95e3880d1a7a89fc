package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Query validation errors. These are the only errors the aggregator
// surfaces to its caller.
var (
	ErrNoQuery        = errors.New("query needs a term or a barcode")
	ErrAmbiguousQuery = errors.New("query must set either term or barcode, not both")
)

// ProductQuery is the canonical input for one price comparison request.
// Exactly one of Term or Barcode must be set.
type ProductQuery struct {
	Term         string `json:"term,omitempty"`
	Barcode      string `json:"barcode,omitempty"`
	CategoryHint string `json:"category_hint,omitempty"`
	Locale       string `json:"locale,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Validate checks that the query carries exactly one search identifier.
func (q ProductQuery) Validate() error {
	term := strings.TrimSpace(q.Term)
	barcode := strings.TrimSpace(q.Barcode)
	if term == "" && barcode == "" {
		return ErrNoQuery
	}
	if term != "" && barcode != "" {
		return ErrAmbiguousQuery
	}
	return nil
}

// ByBarcode reports whether this query searches by exact barcode.
func (q ProductQuery) ByBarcode() bool {
	return strings.TrimSpace(q.Barcode) != ""
}

// Normalized returns the search identifier in canonical form: barcodes
// reduced to digits, terms lower-cased with collapsed whitespace.
func (q ProductQuery) Normalized() string {
	if q.ByBarcode() {
		return strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, q.Barcode)
	}
	return strings.Join(strings.Fields(strings.ToLower(q.Term)), " ")
}

// CacheKey derives the response-cache key for this query against one
// provider. The same logical query always maps to the same key.
func (q ProductQuery) CacheKey(providerID string) string {
	h := sha256.New()
	h.Write([]byte(q.Normalized()))
	h.Write([]byte{0})
	h.Write([]byte(providerID))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(q.Locale)))
	return hex.EncodeToString(h.Sum(nil))
}

// RawOffer is a single price record as returned by one provider, before
// normalization. Field contents follow whatever the provider sent; only
// the Normalizer is allowed to interpret them.
type RawOffer struct {
	Store    string `json:"store"`
	Price    string `json:"price"`
	Currency string `json:"currency,omitempty"`
	URL      string `json:"url,omitempty"`
	Image    string `json:"image,omitempty"`
	Product  string `json:"product,omitempty"`
	InStock  bool   `json:"in_stock"`
}

// StorePrice is the canonical, provider-agnostic price record.
type StorePrice struct {
	StoreName      string          `json:"store_name"`
	StoreLogoURL   string          `json:"store_logo_url,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	URL            string          `json:"url,omitempty"`
	InStock        bool            `json:"in_stock"`
	Rank           int             `json:"rank"`
	IsBestPrice    bool            `json:"is_best_price"`
	Savings        decimal.Decimal `json:"savings"`
	ProviderSource string          `json:"provider_source"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

// ResultMeta summarizes how a comparison was assembled.
type ResultMeta struct {
	LowestPrice        decimal.Decimal `json:"lowest_price"`
	HighestPrice       decimal.Decimal `json:"highest_price"`
	MaxSavings         decimal.Decimal `json:"max_savings"`
	ProvidersQueried   int             `json:"providers_queried"`
	ProvidersSucceeded int             `json:"providers_succeeded"`
	CacheHits          int             `json:"cache_hits"`
}

// ComparisonResult is the ranked answer for one ProductQuery. It is
// built fresh per request and never mutated afterwards.
type ComparisonResult struct {
	ProductName  string       `json:"product_name,omitempty"`
	ProductImage string       `json:"product_image,omitempty"`
	Barcode      string       `json:"barcode,omitempty"`
	Prices       []StorePrice `json:"prices"`
	Meta         ResultMeta   `json:"meta"`
}
