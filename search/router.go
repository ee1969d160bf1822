package search

import "sync"

// ragOwnedIntents are intents the config marks as handled by the dedicated
// RAG service; the engine skips web search entirely for them unless the
// caller sets force_search.
var ragOwnedIntents = map[Intent]bool{
	IntentWeather: true,
	IntentSports:  true,
}

// fallbackProviderSets is the hardcoded provider-per-intent table from
// provider_router.py INTENT_PROVIDER_SETS, used when the config store has
// no override for an intent.
var fallbackProviderSets = map[Intent][]ProviderName{
	IntentEventSearch: {
		ProviderTicketmaster, ProviderEventbrite, ProviderDuckDuckGo, ProviderBrave, ProviderSearXNG,
	},
	IntentGeneral: {
		ProviderDuckDuckGo, ProviderBrave, ProviderSearXNG,
	},
	IntentNews: {
		ProviderBrave, ProviderDuckDuckGo, ProviderSearXNG,
	},
	IntentLocalBusiness: {
		ProviderBrave, ProviderDuckDuckGo, ProviderSearXNG,
	},
	IntentSports: {
		ProviderDuckDuckGo, ProviderBrave, ProviderSearXNG,
	},
	IntentWeather: {
		ProviderDuckDuckGo, ProviderBrave, ProviderSearXNG,
	},
}

// Router resolves an intent to its provider set, preferring a config-store
// override over the hardcoded fallback table (spec §4.4 step 3).
type Router struct {
	mu        sync.RWMutex
	overrides map[Intent][]ProviderName
	registry  map[ProviderName]Provider
}

// NewRouter builds a router over a provider registry (name -> live
// Provider instance); overrides may be populated later from the config
// plane and swapped in atomically.
func NewRouter(registry map[ProviderName]Provider) *Router {
	return &Router{registry: registry}
}

// SetOverrides atomically replaces the config-sourced routing table. Pass
// nil to fall back entirely to the hardcoded table.
func (r *Router) SetOverrides(overrides map[Intent][]ProviderName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = overrides
}

// ShouldUseRAG reports whether the intent is owned by the RAG service.
func (r *Router) ShouldUseRAG(intent Intent) bool {
	return ragOwnedIntents[intent]
}

// ProvidersForIntent resolves the live Provider set for an intent, in
// priority order, skipping any name not present in the registry (a
// provider that failed to initialize, e.g. missing API key).
func (r *Router) ProvidersForIntent(intent Intent) []Provider {
	r.mu.RLock()
	names, ok := r.overrides[intent]
	r.mu.RUnlock()
	if !ok {
		names = fallbackProviderSets[intent]
	}

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		if p, ok := r.registry[name]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}
