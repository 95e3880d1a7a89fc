// Package aggregate owns the end-to-end comparison flow: cache lookup,
// bounded concurrent fan-out across healthy providers, deadline
// handling, and assembly of the final ranked result.
package aggregate

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricehound/pricehound/internal/cache"
	"github.com/pricehound/pricehound/internal/logutil"
	"github.com/pricehound/pricehound/internal/normalize"
	"github.com/pricehound/pricehound/internal/pricing"
	"github.com/pricehound/pricehound/internal/provider"
	"github.com/pricehound/pricehound/internal/rank"
)

const defaultDeadline = 12 * time.Second

// Options configures an Aggregator.
type Options struct {
	Providers  []provider.Adapter
	Health     *provider.HealthTracker
	Cache      cache.Store // nil disables caching
	Normalizer *normalize.Normalizer
	// TTLs maps provider ID to its cache TTL; DefaultTTL covers the
	// rest. Expensive, rate-limited providers get long TTLs.
	TTLs       map[string]time.Duration
	DefaultTTL time.Duration
	// Deadline bounds one whole fan-out; stragglers are abandoned.
	Deadline time.Duration
	// CategoryFloors maps a folded category hint to the lowest
	// plausible price for that category.
	CategoryFloors map[string]decimal.Decimal
}

// Aggregator fans a single query out to every eligible provider and
// folds whatever comes back into one ComparisonResult. Adapter
// failures never fail the request; the only caller-visible error is
// query validation.
type Aggregator struct {
	opts Options
}

func New(opts Options) *Aggregator {
	if opts.Health == nil {
		opts.Health = provider.NewHealthTracker(0)
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(nil)
	}
	if opts.Deadline <= 0 {
		opts.Deadline = defaultDeadline
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 30 * time.Minute
	}
	return &Aggregator{opts: opts}
}

// outcome is one provider call's settlement.
type outcome struct {
	slot   int
	offers []pricing.RawOffer
	err    error
}

// Aggregate runs one comparison. An empty price list with populated
// metadata means "no results", not failure.
func (a *Aggregator) Aggregate(ctx context.Context, q pricing.ProductQuery) (*pricing.ComparisonResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	capability := provider.SearchByTerm
	if q.ByBarcode() {
		capability = provider.SearchByBarcode
	}

	// Provider selection order is fixed (construction order), so the
	// dedupe tie-break and final ranking are deterministic for a given
	// set of successful offers.
	var candidates []provider.Adapter
	for _, p := range a.opts.Providers {
		if !p.Enabled() || !p.Supports(capability) {
			continue
		}
		if !a.opts.Health.Eligible(p.ID()) {
			logutil.Dedup("aggregate: skipping %s (down)", p.ID())
			continue
		}
		candidates = append(candidates, p)
	}

	result := &pricing.ComparisonResult{}
	if q.ByBarcode() {
		result.Barcode = q.Normalized()
	}
	result.Meta.ProvidersQueried = len(candidates)
	if len(candidates) == 0 {
		result.Prices = []pricing.StorePrice{}
		return result, nil
	}

	// One raw-offer bucket per candidate, filled from cache hits and
	// completed calls. Bucket order, not completion order, decides
	// first-seen precedence downstream.
	buckets := make([][]pricing.RawOffer, len(candidates))
	settled := make([]bool, len(candidates))

	tctx, cancel := context.WithTimeout(ctx, a.opts.Deadline)
	defer cancel()

	// Buffered so abandoned calls can settle without a reader and get
	// collected by the runtime instead of leaking.
	results := make(chan outcome, len(candidates))
	pending := 0

	for slot, p := range candidates {
		key := q.CacheKey(p.ID())
		if a.opts.Cache != nil {
			if offers, ok := a.opts.Cache.Get(key); ok {
				logutil.Dedup("aggregate: cache hit for %s", p.ID())
				buckets[slot] = offers
				settled[slot] = true
				result.Meta.CacheHits++
				result.Meta.ProvidersSucceeded++
				continue
			}
		}

		pending++
		go func(slot int, p provider.Adapter) {
			offers, err := p.Search(tctx, q)
			results <- outcome{slot: slot, offers: offers, err: err}
		}(slot, p)
	}

collect:
	for pending > 0 {
		select {
		case r := <-results:
			pending--
			p := candidates[r.slot]
			if r.err != nil {
				a.opts.Health.RecordFailure(p.ID())
				log.Printf("aggregate: provider %s failed: %v", p.ID(), r.err)
				continue
			}
			a.opts.Health.RecordSuccess(p.ID())
			buckets[r.slot] = r.offers
			settled[r.slot] = true
			result.Meta.ProvidersSucceeded++
			if a.opts.Cache != nil {
				a.opts.Cache.Put(q.CacheKey(p.ID()), r.offers, a.ttlFor(p.ID()))
			}
		case <-tctx.Done():
			// Proceed with what completed; stragglers were signalled
			// through tctx and their eventual results are discarded.
			log.Printf("aggregate: deadline reached with %d providers outstanding", pending)
			break collect
		}
	}

	a.assemble(result, q, candidates, buckets, settled)
	return result, nil
}

func (a *Aggregator) ttlFor(id string) time.Duration {
	if ttl, ok := a.opts.TTLs[id]; ok {
		return ttl
	}
	return a.opts.DefaultTTL
}

// assemble normalizes every settled bucket, ranks the merged set, and
// fills in the result metadata and product identity.
func (a *Aggregator) assemble(result *pricing.ComparisonResult, q pricing.ProductQuery, candidates []provider.Adapter, buckets [][]pricing.RawOffer, settled []bool) {
	var merged []pricing.StorePrice
	for slot, p := range candidates {
		if !settled[slot] || len(buckets[slot]) == 0 {
			continue
		}
		merged = append(merged, a.opts.Normalizer.Normalize(p.ID(), buckets[slot])...)
		if result.ProductName == "" || result.ProductImage == "" {
			for _, o := range buckets[slot] {
				if result.ProductName == "" {
					result.ProductName = o.Product
				}
				if result.ProductImage == "" {
					result.ProductImage = o.Image
				}
			}
		}
	}

	ranked := rank.Rank(merged, rank.Options{
		CategoryFloor: a.floorFor(q.CategoryHint),
		Limit:         q.Limit,
	})
	result.Prices = ranked

	meta := rank.Meta(ranked)
	result.Meta.LowestPrice = meta.LowestPrice
	result.Meta.HighestPrice = meta.HighestPrice
	result.Meta.MaxSavings = meta.MaxSavings
}

func (a *Aggregator) floorFor(categoryHint string) decimal.Decimal {
	if categoryHint == "" {
		return decimal.Zero
	}
	return a.opts.CategoryFloors[normalize.FoldStoreName(categoryHint)]
}
