// Package provider defines the adapter contract for external pricing
// sources and the process-wide health state that gates them.
package provider

import (
	"context"

	"github.com/pricehound/pricehound/internal/pricing"
)

// Capability names one kind of lookup an adapter may support.
type Capability int

const (
	SearchByTerm Capability = iota
	SearchByBarcode
)

// StoreInfo describes the source behind an adapter for display.
type StoreInfo struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

// Adapter integrates one external pricing source. Implementations must
// return an empty slice (not an error) for "no results"; errors are for
// transport, auth, and timeout failures only. Search must honor ctx
// cancellation promptly and have no side effects beyond the network
// call itself.
type Adapter interface {
	ID() string
	StoreInfo() StoreInfo
	Enabled() bool
	Supports(c Capability) bool
	Search(ctx context.Context, q pricing.ProductQuery) ([]pricing.RawOffer, error)
}
