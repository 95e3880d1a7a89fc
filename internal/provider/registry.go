package provider

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]Adapter)
	mu       sync.RWMutex
)

// Register adds an adapter under its ID. Later registrations replace
// earlier ones.
func Register(a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	registry[a.ID()] = a
}

// Get returns the adapter registered under id.
func Get(id string) (Adapter, error) {
	mu.RLock()
	defer mu.RUnlock()
	a, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", id)
	}
	return a, nil
}

// All returns the registered adapters sorted by ID, so fan-out and
// tie-break order are deterministic across requests.
func All() []Adapter {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	adapters := make([]Adapter, 0, len(ids))
	for _, id := range ids {
		adapters = append(adapters, registry[id])
	}
	return adapters
}
