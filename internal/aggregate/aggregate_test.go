package aggregate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricehound/pricehound/internal/pricing"
	"github.com/pricehound/pricehound/internal/provider"
)

// fakeAdapter is an in-memory provider for orchestration tests.
type fakeAdapter struct {
	id      string
	offers  []pricing.RawOffer
	err     error
	block   bool // never answer, just honor cancellation
	barcode bool
	off     bool
	calls   atomic.Int32
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) StoreInfo() provider.StoreInfo {
	return provider.StoreInfo{Name: f.id}
}

func (f *fakeAdapter) Enabled() bool { return !f.off }

func (f *fakeAdapter) Supports(c provider.Capability) bool {
	if c == provider.SearchByBarcode {
		return f.barcode
	}
	return true
}

func (f *fakeAdapter) Search(ctx context.Context, q pricing.ProductQuery) ([]pricing.RawOffer, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.offers, nil
}

// memStore is a map-backed cache.Store.
type memStore struct {
	mu      sync.Mutex
	entries map[string][]pricing.RawOffer
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]pricing.RawOffer)}
}

func (m *memStore) Get(key string) ([]pricing.RawOffer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offers, ok := m.entries[key]
	return offers, ok
}

func (m *memStore) Put(key string, offers []pricing.RawOffer, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = offers
}

func offer(store, price string) pricing.RawOffer {
	return pricing.RawOffer{Store: store, Price: price, Currency: "USD", InStock: true}
}

func TestAggregateMergesAndRanks(t *testing.T) {
	p1 := &fakeAdapter{id: "p1", offers: []pricing.RawOffer{offer("Amazon", "999")}}
	p2 := &fakeAdapter{id: "p2", offers: []pricing.RawOffer{offer("Amazon", "989"), offer("Walmart", "999")}}

	agg := New(Options{Providers: []provider.Adapter{p1, p2}})

	result, err := agg.Aggregate(context.Background(), pricing.ProductQuery{Term: "tv"})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if len(result.Prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(result.Prices))
	}
	if result.Prices[0].StoreName != "Amazon" || !result.Prices[0].Price.Equal(decimal.RequireFromString("989")) {
		t.Errorf("rank 1: %s %s", result.Prices[0].StoreName, result.Prices[0].Price)
	}
	if !result.Prices[0].IsBestPrice {
		t.Error("rank 1 must be best price")
	}
	if result.Prices[1].StoreName != "Walmart" || !result.Prices[1].Savings.Equal(decimal.RequireFromString("10")) {
		t.Errorf("rank 2: %s savings %s", result.Prices[1].StoreName, result.Prices[1].Savings)
	}

	if result.Meta.ProvidersQueried != 2 || result.Meta.ProvidersSucceeded != 2 {
		t.Errorf("meta: %+v", result.Meta)
	}
}

func TestAggregateValidation(t *testing.T) {
	agg := New(Options{})

	if _, err := agg.Aggregate(context.Background(), pricing.ProductQuery{}); !errors.Is(err, pricing.ErrNoQuery) {
		t.Errorf("want ErrNoQuery, got %v", err)
	}
	if _, err := agg.Aggregate(context.Background(), pricing.ProductQuery{Term: "x", Barcode: "1"}); !errors.Is(err, pricing.ErrAmbiguousQuery) {
		t.Errorf("want ErrAmbiguousQuery, got %v", err)
	}
}

func TestAggregateProviderFailureIsNotFatal(t *testing.T) {
	good := &fakeAdapter{id: "good", offers: []pricing.RawOffer{offer("Target", "50")}}
	bad := &fakeAdapter{id: "bad", err: errors.New("auth expired")}

	health := provider.NewHealthTracker(3)
	agg := New(Options{Providers: []provider.Adapter{bad, good}, Health: health})

	result, err := agg.Aggregate(context.Background(), pricing.ProductQuery{Term: "lamp"})
	if err != nil {
		t.Fatalf("one failing provider must not fail the request: %v", err)
	}

	if len(result.Prices) != 1 || result.Prices[0].StoreName != "Target" {
		t.Errorf("prices: %+v", result.Prices)
	}
	if result.Meta.ProvidersQueried != 2 || result.Meta.ProvidersSucceeded != 1 {
		t.Errorf("meta: %+v", result.Meta)
	}
	if got := health.Snapshot()["bad"]; got.ConsecutiveFailures != 1 {
		t.Errorf("failure not recorded: %+v", got)
	}
}

func TestAggregateSkipsDownProviders(t *testing.T) {
	flaky := &fakeAdapter{id: "flaky", err: errors.New("boom")}
	steady := &fakeAdapter{id: "steady", offers: []pricing.RawOffer{offer("Costco", "80")}}

	health := provider.NewHealthTracker(3)
	agg := New(Options{Providers: []provider.Adapter{flaky, steady}, Health: health})

	q := pricing.ProductQuery{Term: "blender"}
	for i := 0; i < 3; i++ {
		if _, err := agg.Aggregate(context.Background(), q); err != nil {
			t.Fatalf("aggregate %d: %v", i, err)
		}
	}

	if health.Snapshot()["flaky"].Status != provider.StatusDown {
		t.Fatalf("flaky should be down: %+v", health.Snapshot()["flaky"])
	}

	// The fourth request must not dispatch to the down provider.
	before := flaky.calls.Load()
	result, err := agg.Aggregate(context.Background(), q)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if flaky.calls.Load() != before {
		t.Error("down provider was dispatched")
	}
	if result.Meta.ProvidersQueried != 1 {
		t.Errorf("providers queried should exclude down provider: %d", result.Meta.ProvidersQueried)
	}

	// A success resets the circuit.
	health.RecordSuccess("flaky")
	got := health.Snapshot()["flaky"]
	if got.Status != provider.StatusHealthy || got.ConsecutiveFailures != 0 {
		t.Errorf("after reset: %+v", got)
	}
}

func TestAggregateCacheHitAvoidsRefetch(t *testing.T) {
	p := &fakeAdapter{id: "r", offers: []pricing.RawOffer{offer("Amazon", "42")}}
	store := newMemStore()

	agg := New(Options{Providers: []provider.Adapter{p}, Cache: store})

	q := pricing.ProductQuery{Term: "headphones"}

	first, err := agg.Aggregate(context.Background(), q)
	if err != nil {
		t.Fatalf("first aggregate: %v", err)
	}
	second, err := agg.Aggregate(context.Background(), q)
	if err != nil {
		t.Fatalf("second aggregate: %v", err)
	}

	if p.calls.Load() != 1 {
		t.Errorf("adapter should be called exactly once, got %d", p.calls.Load())
	}
	if first.Meta.CacheHits != 0 || second.Meta.CacheHits != 1 {
		t.Errorf("cache hits: first=%d second=%d", first.Meta.CacheHits, second.Meta.CacheHits)
	}

	if len(first.Prices) != len(second.Prices) {
		t.Fatalf("results differ in length")
	}
	for i := range first.Prices {
		if first.Prices[i].StoreName != second.Prices[i].StoreName ||
			!first.Prices[i].Price.Equal(second.Prices[i].Price) {
			t.Errorf("entry %d differs between cached and fetched result", i)
		}
	}
}

func TestAggregatePartialTimeout(t *testing.T) {
	fast1 := &fakeAdapter{id: "fast1", offers: []pricing.RawOffer{offer("Amazon", "100")}}
	fast2 := &fakeAdapter{id: "fast2", offers: []pricing.RawOffer{offer("Walmart", "90")}}
	stuck := &fakeAdapter{id: "stuck", block: true}

	agg := New(Options{
		Providers: []provider.Adapter{fast1, fast2, stuck},
		Deadline:  150 * time.Millisecond,
	})

	start := time.Now()
	result, err := agg.Aggregate(context.Background(), pricing.ProductQuery{Term: "ssd"})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("deadline not honored, took %s", elapsed)
	}

	if result.Meta.ProvidersQueried != 3 {
		t.Errorf("providers queried: %d", result.Meta.ProvidersQueried)
	}
	if result.Meta.ProvidersSucceeded != 2 {
		t.Errorf("providers succeeded: %d", result.Meta.ProvidersSucceeded)
	}
	if len(result.Prices) != 2 {
		t.Fatalf("expected ranked prices from the 2 completed providers, got %d", len(result.Prices))
	}
	if result.Prices[0].StoreName != "Walmart" || result.Prices[0].Rank != 1 {
		t.Errorf("rank 1: %+v", result.Prices[0])
	}
}

func TestAggregateNoResultsIsNotAnError(t *testing.T) {
	empty := &fakeAdapter{id: "empty"}

	agg := New(Options{Providers: []provider.Adapter{empty}})

	result, err := agg.Aggregate(context.Background(), pricing.ProductQuery{Term: "unobtainium"})
	if err != nil {
		t.Fatalf("no results must not be an error: %v", err)
	}
	if len(result.Prices) != 0 {
		t.Errorf("prices: %+v", result.Prices)
	}
	if result.Meta.ProvidersQueried != 1 || result.Meta.ProvidersSucceeded != 1 {
		t.Errorf("meta still populated: %+v", result.Meta)
	}
}

func TestAggregateCapabilityFilter(t *testing.T) {
	termOnly := &fakeAdapter{id: "term-only"}
	both := &fakeAdapter{id: "both", barcode: true, offers: []pricing.RawOffer{offer("Target", "5")}}

	agg := New(Options{Providers: []provider.Adapter{termOnly, both}})

	result, err := agg.Aggregate(context.Background(), pricing.ProductQuery{Barcode: "4006381333931"})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if termOnly.calls.Load() != 0 {
		t.Error("term-only adapter must not receive barcode queries")
	}
	if result.Meta.ProvidersQueried != 1 {
		t.Errorf("providers queried: %d", result.Meta.ProvidersQueried)
	}
	if result.Barcode != "4006381333931" {
		t.Errorf("barcode not echoed: %q", result.Barcode)
	}
}

func TestAggregateDisabledProvidersAreSkipped(t *testing.T) {
	off := &fakeAdapter{id: "off", off: true}
	on := &fakeAdapter{id: "on", offers: []pricing.RawOffer{offer("Ebay", "12")}}

	agg := New(Options{Providers: []provider.Adapter{off, on}})

	result, err := agg.Aggregate(context.Background(), pricing.ProductQuery{Term: "cable"})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if off.calls.Load() != 0 {
		t.Error("disabled adapter was dispatched")
	}
	if result.Meta.ProvidersQueried != 1 {
		t.Errorf("providers queried: %d", result.Meta.ProvidersQueried)
	}
}
