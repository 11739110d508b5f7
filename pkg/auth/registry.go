package auth

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ProviderConfig selects a registered provider and carries its raw config.
type ProviderConfig struct {
	Type   string          `yaml:"type" json:"type"`
	Config json.RawMessage `yaml:"config" json:"config"`
}

type Factory func(config json.RawMessage) (Validator, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// RegisterProvider makes factory available under providerType. Later
// registrations replace earlier ones.
func RegisterProvider(providerType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[providerType] = factory
}

func NewValidator(pc ProviderConfig) (Validator, error) {
	mu.RLock()
	factory, ok := registry[pc.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown auth provider type: %q (registered: %v)", pc.Type, ListProviders())
	}
	return factory(pc.Config)
}

// ListProviders returns the registered provider types in sorted order.
func ListProviders() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
