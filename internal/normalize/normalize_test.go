package normalize

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pricehound/pricehound/internal/pricing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.50", "12.50"},
		{"$1,299.99", "1299.99"},
		{"€ 1.299,99", "1299.99"},
		{"4,99 €", "4.99"},
		{"1.299.000", "1299000"},
		{"1,299", "1299"},
		{"USD 89", "89"},
		{"Rp 1.234.567", "1234567"},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if err != nil {
			t.Errorf("ParsePrice(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParsePrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParsePriceRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "free", "call for price", "-"} {
		if _, err := ParsePrice(in); err == nil {
			t.Errorf("ParsePrice(%q) should fail", in)
		}
	}
}

func TestNormalizeDropsInvalidPrices(t *testing.T) {
	n := New(nil)

	offers := []pricing.RawOffer{
		{Store: "StoreX", Price: "0"},
		{Store: "StoreY", Price: "-5"},
		{Store: "StoreZ", Price: "12.50"},
	}

	got := n.Normalize("test", offers)

	if len(got) != 1 {
		t.Fatalf("expected only StoreZ to survive, got %d records", len(got))
	}
	if got[0].StoreName != "StoreZ" {
		t.Errorf("wrong survivor: %s", got[0].StoreName)
	}
	if !got[0].Price.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("price: %s", got[0].Price)
	}
}

func TestNormalizeTagsProviderSource(t *testing.T) {
	n := New(nil)

	got := n.Normalize("priceapi", []pricing.RawOffer{
		{Store: "Amazon", Price: "9.99", Currency: "usd", URL: "https://x", InStock: true},
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	p := got[0]
	if p.ProviderSource != "priceapi" {
		t.Errorf("provider source: %s", p.ProviderSource)
	}
	if p.Currency != "USD" {
		t.Errorf("currency should be upper-cased: %s", p.Currency)
	}
	if p.FetchedAt.IsZero() {
		t.Error("fetched_at not set")
	}
	if !p.InStock {
		t.Error("in_stock lost")
	}
}

func TestNormalizeLogoLookup(t *testing.T) {
	n := New(map[string]string{"Best Buy": "https://logos/bestbuy.png"})

	got := n.Normalize("test", []pricing.RawOffer{
		{Store: "BEST  BUY", Price: "10"},
		{Store: "Some Corner Shop", Price: "10"},
	})

	if got[0].StoreLogoURL != "https://logos/bestbuy.png" {
		t.Errorf("table lookup failed: %s", got[0].StoreLogoURL)
	}
	if got[1].StoreLogoURL != "https://www.somecornershop.com/favicon.ico" {
		t.Errorf("derived logo: %s", got[1].StoreLogoURL)
	}
}

func TestNormalizeDropsNamelessStores(t *testing.T) {
	n := New(nil)
	got := n.Normalize("test", []pricing.RawOffer{{Store: "  ", Price: "10"}})
	if len(got) != 0 {
		t.Fatalf("expected nameless offer dropped, got %d", len(got))
	}
}

func TestFoldStoreName(t *testing.T) {
	if FoldStoreName(" Best  Buy ") != "best buy" {
		t.Errorf("fold: %q", FoldStoreName(" Best  Buy "))
	}
}
