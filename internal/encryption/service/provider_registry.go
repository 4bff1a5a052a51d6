package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
)

// ProviderRegistry selects the provider of each configured key by its provider type and
// memoizes key proxies, so provider bootstrap runs at most once per distinct metadata value.
type ProviderRegistry struct {
	providers map[encryptionDomain.ProviderType]Provider

	mu      sync.Mutex
	proxies map[encryptionDomain.KeyMetadata]KeyProxy
}

// NewProviderRegistry creates a registry serving the given providers.
func NewProviderRegistry(providers ...Provider) *ProviderRegistry {
	r := &ProviderRegistry{
		providers: make(map[encryptionDomain.ProviderType]Provider, len(providers)),
		proxies:   make(map[encryptionDomain.KeyMetadata]KeyProxy),
	}
	for _, p := range providers {
		r.providers[p.Type()] = p
	}
	return r
}

// Provider returns the provider registered for providerType.
func (r *ProviderRegistry) Provider(providerType encryptionDomain.ProviderType) (Provider, error) {
	p, ok := r.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", encryptionDomain.ErrUnsupportedProvider, providerType)
	}
	return p, nil
}

// CreateKeyProxy returns the memoized proxy of metadata, creating it on first use.
// Failed bootstraps are not memoized.
func (r *ProviderRegistry) CreateKeyProxy(
	ctx context.Context,
	metadata encryptionDomain.KeyMetadata,
) (KeyProxy, error) {
	// Active does not identify the key material
	metadata.Active = false

	r.mu.Lock()
	defer r.mu.Unlock()

	if proxy, ok := r.proxies[metadata]; ok {
		return proxy, nil
	}

	p, err := r.Provider(metadata.ProviderType)
	if err != nil {
		return nil, err
	}
	proxy, err := p.CreateKeyProxy(ctx, metadata)
	if err != nil {
		return nil, err
	}
	r.proxies[metadata] = proxy
	return proxy, nil
}

// Close releases every proxy created by the registry.
func (r *ProviderRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for metadata, proxy := range r.proxies {
		if err := proxy.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close key %s: %w", metadata.Name, err))
		}
		delete(r.proxies, metadata)
	}
	return result.ErrorOrNil()
}
