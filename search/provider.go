package search

import (
	"context"
	"time"
)

// Result is the normalised shape every provider emits. The engine never
// mutates a Result after a provider returns it; fusion is a separate step.
type Result struct {
	Source      string            `json:"source"`
	Title       string            `json:"title"`
	Snippet     string            `json:"snippet"`
	URL         string            `json:"url,omitempty"`
	Confidence  float64           `json:"confidence"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	EventDate   string            `json:"event_date,omitempty"`
	Venue       string            `json:"venue,omitempty"`
	Location    string            `json:"location,omitempty"`
	PriceRange  string            `json:"price_range,omitempty"`
	RetrievedAt time.Time         `json:"retrieved_at"`
}

// Options carries provider-specific parameters that don't belong in the
// normalised call signature (e.g. date ranges, category filters).
type Options map[string]string

// Provider is the capability every search backend implements: one method
// to search, one lifecycle hook to release resources. Grounded on the
// Python SearchProvider ABC (base.py); the language-neutral shape per
// spec §9 is an interface, not a subclass hierarchy.
type Provider interface {
	// Name returns the provider's registration key, e.g. "duckduckgo".
	Name() string

	// Search executes one query against the provider and returns up to
	// limit normalised results.
	Search(ctx context.Context, query, location string, limit int, opts Options) ([]Result, error)

	// Close releases any held resources (HTTP clients, connections).
	Close() error
}

// ProviderName is the closed set of providers the engine may fan out to.
type ProviderName string

const (
	ProviderDuckDuckGo   ProviderName = "duckduckgo"
	ProviderBrave        ProviderName = "brave"
	ProviderSearXNG      ProviderName = "searxng"
	ProviderTicketmaster ProviderName = "ticketmaster"
	ProviderEventbrite   ProviderName = "eventbrite"
)
