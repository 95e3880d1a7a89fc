// Package normalize translates provider-shaped raw offers into the
// canonical StorePrice record. It is the only code allowed to interpret
// a provider's field contents.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/pricehound/pricehound/internal/pricing"
)

// Normalizer carries the static store-logo lookup table. The table is
// keyed by FoldStoreName(name); unknown stores get a derived URL.
type Normalizer struct {
	logos map[string]string
}

func New(logos map[string]string) *Normalizer {
	folded := make(map[string]string, len(logos))
	for name, url := range logos {
		folded[FoldStoreName(name)] = url
	}
	return &Normalizer{logos: folded}
}

// Normalize converts raw offers from one provider into StorePrice
// records. Offers with an unparsable or non-positive price, or without
// a store name, are dropped here and never reach ranking.
func (n *Normalizer) Normalize(providerID string, offers []pricing.RawOffer) []pricing.StorePrice {
	now := time.Now()
	out := make([]pricing.StorePrice, 0, len(offers))
	for _, o := range offers {
		store := strings.TrimSpace(o.Store)
		if store == "" {
			continue
		}
		price, err := ParsePrice(o.Price)
		if err != nil || !price.IsPositive() {
			continue
		}
		currency := strings.ToUpper(strings.TrimSpace(o.Currency))
		if currency == "" {
			currency = "USD"
		}
		out = append(out, pricing.StorePrice{
			StoreName:      store,
			StoreLogoURL:   n.logoFor(store),
			Price:          price,
			Currency:       currency,
			URL:            o.URL,
			InStock:        o.InStock,
			ProviderSource: providerID,
			FetchedAt:      now,
		})
	}
	return out
}

func (n *Normalizer) logoFor(store string) string {
	if url, ok := n.logos[FoldStoreName(store)]; ok {
		return url
	}
	return derivedLogoURL(store)
}

// derivedLogoURL guesses a "storename.com" favicon when the lookup
// table has no entry for the store.
func derivedLogoURL(store string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(store) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "https://www." + b.String() + ".com/favicon.ico"
}

// FoldStoreName normalizes a store name for identity comparisons:
// case-folded with collapsed inner whitespace.
func FoldStoreName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// ParsePrice parses a provider price string into a decimal. It accepts
// currency symbols and codes, thousands separators, and both comma and
// dot decimal marks ("€ 1.299,99", "$1,299.99", "12.50 EUR").
func ParsePrice(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	dot := strings.LastIndexByte(cleaned, '.')
	comma := strings.LastIndexByte(cleaned, ',')
	switch {
	case dot >= 0 && comma >= 0:
		// The rightmost separator is the decimal mark.
		if comma > dot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case comma >= 0:
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-comma-1 <= 2 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// "1,299" or "1,299,000" are thousands groups.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		// "1.299.000" style thousands groups.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	return decimal.NewFromString(cleaned)
}
