package pricing

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		q    ProductQuery
		want error
	}{
		{"term only", ProductQuery{Term: "usb charger"}, nil},
		{"barcode only", ProductQuery{Barcode: "4006381333931"}, nil},
		{"neither", ProductQuery{}, ErrNoQuery},
		{"whitespace term", ProductQuery{Term: "   "}, ErrNoQuery},
		{"both", ProductQuery{Term: "x", Barcode: "123"}, ErrAmbiguousQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.q.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalized(t *testing.T) {
	q := ProductQuery{Term: "  USB-C   Charger "}
	if got := q.Normalized(); got != "usb-c charger" {
		t.Errorf("term normalization: %q", got)
	}

	q = ProductQuery{Barcode: "40-0638 1333931"}
	if got := q.Normalized(); got != "4006381333931" {
		t.Errorf("barcode normalization: %q", got)
	}
}

func TestCacheKey(t *testing.T) {
	a := ProductQuery{Term: "usb charger", Locale: "en-US"}
	b := ProductQuery{Term: " USB   Charger ", Locale: "EN-us"}
	if a.CacheKey("p1") != b.CacheKey("p1") {
		t.Error("equivalent queries must share a cache key")
	}

	if a.CacheKey("p1") == a.CacheKey("p2") {
		t.Error("different providers must not share a cache key")
	}

	c := ProductQuery{Term: "usb charger", Locale: "de-AT"}
	if a.CacheKey("p1") == c.CacheKey("p1") {
		t.Error("different locales must not share a cache key")
	}

	d := ProductQuery{Barcode: "12345"}
	if d.CacheKey("p1") == a.CacheKey("p1") {
		t.Error("barcode and term queries must not collide")
	}
}
