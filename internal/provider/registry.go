package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/seantiz/frontier/internal/config"
)

var (
	// ErrUnknownProvider is returned when no provider is registered under a name.
	ErrUnknownProvider = errors.New("provider is not registered")
	// ErrUnknownFamily is returned when no adapter speaks a provider's family.
	ErrUnknownFamily = errors.New("no adapter for provider family")
	// ErrMissingCredential is returned when a provider has no API key.
	ErrMissingCredential = errors.New("provider credential is missing")
)

// ProviderInfo describes a registered provider for listing.
type ProviderInfo struct {
	Name          string `json:"name"`
	Family        string `json:"family"`
	BaseURL       string `json:"base_url"`
	HasCredential bool   `json:"has_credential"`
}

// Registry is the provider table: adapters keyed by family and configured
// providers keyed by name. Adding a provider family is a RegisterAdapter call.
type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters:  make(map[string]Adapter),
		providers: make(map[string]Provider),
	}
}

// NewDefaultRegistry creates a registry with every built-in adapter registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterAdapter(NewOpenAI())
	r.RegisterAdapter(NewOpenAICompatible())
	r.RegisterAdapter(NewAnthropic())
	r.RegisterAdapter(NewGemini())
	return r
}

// RegisterAdapter adds an adapter under its family name.
func (r *Registry) RegisterAdapter(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Family()] = a
}

// RegisterProvider adds or replaces a provider under its name.
func (r *Registry) RegisterProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name] = p
}

// LoadProviders registers every configured provider, resolving credentials
// through getenv. Providers whose variable is unset are registered without a
// credential so that launch validation can name them.
func (r *Registry) LoadProviders(cfgs []config.ProviderConfig, getenv func(string) string) {
	for _, c := range cfgs {
		p := Provider{
			Name:    c.Name,
			Family:  c.Family,
			BaseURL: c.BaseURL,
			Headers: c.Headers,
		}
		if c.APIKeyEnv != "" {
			p.APIKey = getenv(c.APIKeyEnv)
		}
		r.RegisterProvider(p)
	}
}

// Resolve returns the adapter and provider for a provider name. It fails if
// the provider is unknown, its family has no adapter, or it lacks a credential.
func (r *Registry) Resolve(name string) (Adapter, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, Provider{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	a, ok := r.adapters[p.Family]
	if !ok {
		return nil, Provider{}, fmt.Errorf("%w: %q (provider %q)", ErrUnknownFamily, p.Family, name)
	}
	if p.APIKey == "" {
		return nil, Provider{}, fmt.Errorf("%w: %q", ErrMissingCredential, name)
	}
	return a, p, nil
}

// List returns information about all registered providers, sorted by name
// for a stable API response.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for name, p := range r.providers {
		infos = append(infos, ProviderInfo{
			Name:          name,
			Family:        p.Family,
			BaseURL:       p.BaseURL,
			HasCredential: p.APIKey != "",
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
