package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// httpProvider is the shared skeleton for the web-search backends: build a
// GET request, decode a provider-specific JSON shape with gjson, normalise
// into Result. Ticketmaster/Eventbrite additionally take an API key.
type httpProvider struct {
	name       string
	baseURL    string
	apiKey     string
	client     *http.Client
	logger     *zap.Logger
	buildQuery func(query, location string, limit int) string
	parse      func(body []byte, source string) ([]Result, error)
}

func (p *httpProvider) Name() string { return p.name }

func (p *httpProvider) Close() error { return nil }

func (p *httpProvider) Search(ctx context.Context, query, location string, limit int, opts Options) ([]Result, error) {
	endpoint := p.baseURL + p.buildQuery(query, location, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", p.name, err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", p.name, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: upstream status %d", p.name, resp.StatusCode)
	}

	results, err := p.parse(body, p.name)
	if err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", p.name, err)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// NewDuckDuckGoProvider targets the DuckDuckGo Instant Answer API.
func NewDuckDuckGoProvider(client *http.Client, logger *zap.Logger) Provider {
	return &httpProvider{
		name:    string(ProviderDuckDuckGo),
		baseURL: "https://api.duckduckgo.com/",
		client:  client,
		logger:  logger,
		buildQuery: func(query, location string, limit int) string {
			return "?" + url.Values{"q": {query}, "format": {"json"}}.Encode()
		},
		parse: func(body []byte, source string) ([]Result, error) {
			root := gjson.ParseBytes(body)
			var results []Result
			if heading := root.Get("Heading").String(); heading != "" {
				results = append(results, Result{
					Source:      source,
					Title:       heading,
					Snippet:     root.Get("AbstractText").String(),
					URL:         root.Get("AbstractURL").String(),
					Confidence:  0.7,
					RetrievedAt: time.Now(),
				})
			}
			root.Get("RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
				text := topic.Get("Text").String()
				if text == "" {
					return true
				}
				results = append(results, Result{
					Source:      source,
					Title:       text,
					Snippet:     text,
					URL:         topic.Get("FirstURL").String(),
					Confidence:  0.5,
					RetrievedAt: time.Now(),
				})
				return true
			})
			return results, nil
		},
	}
}

// NewBraveProvider targets the Brave Search API.
func NewBraveProvider(apiKey string, client *http.Client, logger *zap.Logger) Provider {
	return &httpProvider{
		name:    string(ProviderBrave),
		baseURL: "https://api.search.brave.com/res/v1/web/search",
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
		buildQuery: func(query, location string, limit int) string {
			v := url.Values{"q": {query}, "count": {fmt.Sprintf("%d", limit)}}
			if location != "" {
				v.Set("search_lang", "en")
			}
			return "?" + v.Encode()
		},
		parse: func(body []byte, source string) ([]Result, error) {
			var results []Result
			gjson.GetBytes(body, "web.results").ForEach(func(_, item gjson.Result) bool {
				results = append(results, Result{
					Source:      source,
					Title:       item.Get("title").String(),
					Snippet:     item.Get("description").String(),
					URL:         item.Get("url").String(),
					Confidence:  0.75,
					RetrievedAt: time.Now(),
				})
				return true
			})
			return results, nil
		},
	}
}

// NewSearXNGProvider targets a self-hosted SearXNG metasearch instance.
func NewSearXNGProvider(baseURL string, client *http.Client, logger *zap.Logger) Provider {
	return &httpProvider{
		name:    string(ProviderSearXNG),
		baseURL: baseURL + "/search",
		client:  client,
		logger:  logger,
		buildQuery: func(query, location string, limit int) string {
			return "?" + url.Values{"q": {query}, "format": {"json"}}.Encode()
		},
		parse: func(body []byte, source string) ([]Result, error) {
			var results []Result
			gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
				results = append(results, Result{
					Source:      source,
					Title:       item.Get("title").String(),
					Snippet:     item.Get("content").String(),
					URL:         item.Get("url").String(),
					Confidence:  0.65,
					RetrievedAt: time.Now(),
				})
				return true
			})
			return results, nil
		},
	}
}

// NewTicketmasterProvider targets the Ticketmaster Discovery API.
func NewTicketmasterProvider(apiKey string, client *http.Client, logger *zap.Logger) Provider {
	return &httpProvider{
		name:    string(ProviderTicketmaster),
		baseURL: "https://app.ticketmaster.com/discovery/v2/events.json",
		apiKey:  "",
		client:  client,
		logger:  logger,
		buildQuery: func(query, location string, limit int) string {
			v := url.Values{"keyword": {query}, "apikey": {apiKey}, "size": {fmt.Sprintf("%d", limit)}}
			if location != "" {
				v.Set("city", location)
			}
			return "?" + v.Encode()
		},
		parse: func(body []byte, source string) ([]Result, error) {
			var results []Result
			gjson.GetBytes(body, "_embedded.events").ForEach(func(_, ev gjson.Result) bool {
				venue := ev.Get("_embedded.venues.0.name").String()
				results = append(results, Result{
					Source:      source,
					Title:       ev.Get("name").String(),
					Snippet:     ev.Get("info").String(),
					URL:         ev.Get("url").String(),
					Confidence:  0.85,
					EventDate:   ev.Get("dates.start.localDate").String(),
					Venue:       venue,
					PriceRange:  ev.Get("priceRanges.0.min").String(),
					RetrievedAt: time.Now(),
				})
				return true
			})
			return results, nil
		},
	}
}

// NewEventbriteProvider targets the Eventbrite search API.
func NewEventbriteProvider(apiKey string, client *http.Client, logger *zap.Logger) Provider {
	return &httpProvider{
		name:    string(ProviderEventbrite),
		baseURL: "https://www.eventbriteapi.com/v3/events/search/",
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
		buildQuery: func(query, location string, limit int) string {
			v := url.Values{"q": {query}}
			if location != "" {
				v.Set("location.address", location)
			}
			return "?" + v.Encode()
		},
		parse: func(body []byte, source string) ([]Result, error) {
			var results []Result
			gjson.GetBytes(body, "events").ForEach(func(_, ev gjson.Result) bool {
				results = append(results, Result{
					Source:      source,
					Title:       ev.Get("name.text").String(),
					Snippet:     ev.Get("description.text").String(),
					URL:         ev.Get("url").String(),
					Confidence:  0.8,
					EventDate:   ev.Get("start.local").String(),
					RetrievedAt: time.Now(),
				})
				return true
			})
			return results, nil
		},
	}
}
