// Package rank merges normalized offers from all providers into the
// final ordered price list: sanity filter, per-store dedupe, ascending
// sort, rank assignment, and savings computation.
package rank

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pricehound/pricehound/internal/normalize"
	"github.com/pricehound/pricehound/internal/pricing"
)

// Options tunes one ranking pass.
type Options struct {
	// CategoryFloor rejects offers priced below a configured minimum
	// for the query's category. A zero floor disables the filter. This
	// guards against provider data errors (a "TV" for $3), not against
	// genuine bargains.
	CategoryFloor decimal.Decimal

	// Limit truncates the ranked list when > 0.
	Limit int
}

type entry struct {
	price   pricing.StorePrice
	arrival int
}

// Rank deduplicates, sorts, and annotates the combined offer set.
// Input order matters: records must arrive in provider-arrival order,
// because a same-store price tie is resolved in favor of the record
// seen first. Lowest price always wins within a store.
func Rank(prices []pricing.StorePrice, opts Options) []pricing.StorePrice {
	entries := make([]entry, 0, len(prices))
	byStore := make(map[string]int)

	for i, p := range prices {
		if !opts.CategoryFloor.IsZero() && p.Price.LessThan(opts.CategoryFloor) {
			continue
		}
		key := normalize.FoldStoreName(p.StoreName)
		if at, ok := byStore[key]; ok {
			if p.Price.LessThan(entries[at].price.Price) {
				entries[at] = entry{price: p, arrival: i}
			}
			continue
		}
		byStore[key] = len(entries)
		entries = append(entries, entry{price: p, arrival: i})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].price.Price.Equal(entries[b].price.Price) {
			return entries[a].arrival < entries[b].arrival
		}
		return entries[a].price.Price.LessThan(entries[b].price.Price)
	})

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	out := make([]pricing.StorePrice, len(entries))
	for i, e := range entries {
		out[i] = e.price
	}
	if len(out) == 0 {
		return out
	}

	best := out[0].Price
	for i := range out {
		out[i].Rank = i + 1
		out[i].IsBestPrice = i == 0
		out[i].Savings = out[i].Price.Sub(best)
	}
	return out
}

// Meta computes the price summary for a ranked list. Provider counters
// are filled in by the aggregator.
func Meta(prices []pricing.StorePrice) pricing.ResultMeta {
	var m pricing.ResultMeta
	if len(prices) == 0 {
		return m
	}
	m.LowestPrice = prices[0].Price
	m.HighestPrice = prices[len(prices)-1].Price
	m.MaxSavings = prices[len(prices)-1].Savings
	return m
}
