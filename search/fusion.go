package search

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// providerWeights is the authority matrix from result_fusion.py
// PROVIDER_WEIGHTS: per-provider confidence multiplier by intent, falling
// back to that provider's own "general" weight and then to 0.7.
var providerWeights = map[ProviderName]map[Intent]float64{
	ProviderTicketmaster: {
		IntentEventSearch:   1.0,
		IntentSports:        1.0,
		IntentGeneral:       0.0,
		IntentNews:          0.0,
		IntentLocalBusiness: 0.2,
	},
	ProviderEventbrite: {
		IntentEventSearch:   0.9,
		IntentLocalBusiness: 0.6,
		IntentGeneral:       0.0,
		IntentNews:          0.0,
	},
	ProviderDuckDuckGo: {
		IntentGeneral:       0.8,
		IntentEventSearch:   0.5,
		IntentNews:          0.9,
		IntentLocalBusiness: 0.7,
	},
	ProviderBrave: {
		IntentGeneral:       0.9,
		IntentEventSearch:   0.6,
		IntentNews:          0.95,
		IntentLocalBusiness: 0.8,
	},
	ProviderSearXNG: {
		IntentGeneral:       0.75,
		IntentEventSearch:   0.55,
		IntentNews:          0.8,
		IntentLocalBusiness: 0.7,
	},
}

const (
	fusionSimilarityThreshold = 0.7
	fusionMinConfidence       = 0.5
	fusionMaxCrossBoost       = 0.3
	fusionCrossBoostPerSource = 0.2
)

// Fusion implements the optional post-step of spec §4.4: dedup near-
// identical results, boost confidence when independent providers agree,
// apply the authority matrix, then filter and rank. Grounded on
// result_fusion.py's ResultFusion.fuse_results.
type Fusion struct {
	similarityThreshold float64
	minConfidence       float64
	logger              *zap.Logger
}

// NewFusion builds a fusion stage with the Python defaults unless
// overridden.
func NewFusion(logger *zap.Logger) *Fusion {
	return &Fusion{
		similarityThreshold: fusionSimilarityThreshold,
		minConfidence:       fusionMinConfidence,
		logger:              logger.With(zap.String("component", "search_fusion")),
	}
}

// Fuse runs the four-step pipeline and returns results sorted descending
// by confidence.
func (f *Fusion) Fuse(results []Result, query string, intent Intent) []Result {
	deduped := f.deduplicate(results)
	boosted := f.crossValidate(deduped)
	weighted := f.applyAuthorityWeights(boosted, intent)

	filtered := make([]Result, 0, len(weighted))
	for _, r := range weighted {
		if r.Confidence >= f.minConfidence {
			filtered = append(filtered, r)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})
	return filtered
}

// deduplicate drops results whose title+snippet fingerprint is similar
// enough (>= threshold) to one already kept, preserving first-seen order.
func (f *Fusion) deduplicate(results []Result) []Result {
	var unique []Result
	var seen []string

	for _, r := range results {
		fingerprint := strings.ToLower(r.Title + " " + r.Snippet)
		duplicate := false
		for _, s := range seen {
			if similarityRatio(fingerprint, s) >= f.similarityThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		unique = append(unique, r)
		seen = append(seen, fingerprint)
	}
	return unique
}

// crossValidate groups results by normalized title and boosts confidence
// when 2+ distinct providers independently surfaced the same thing:
// boost = min(0.2*(distinctSources-1), 0.3).
func (f *Fusion) crossValidate(results []Result) []Result {
	groups := make(map[string][]int)
	for i, r := range results {
		key := normalizeTitle(r.Title)
		groups[key] = append(groups[key], i)
	}

	out := make([]Result, len(results))
	copy(out, results)

	for _, indices := range groups {
		if len(indices) <= 1 {
			continue
		}
		sources := make(map[string]bool)
		for _, i := range indices {
			sources[out[i].Source] = true
		}
		if len(sources) <= 1 {
			continue
		}
		boost := fusionCrossBoostPerSource * float64(len(sources)-1)
		if boost > fusionMaxCrossBoost {
			boost = fusionMaxCrossBoost
		}
		for _, i := range indices {
			c := out[i].Confidence + boost
			if c > 1 {
				c = 1
			}
			out[i].Confidence = c
		}
	}
	return out
}

// applyAuthorityWeights scales each result's confidence by how much that
// provider is trusted for the classified intent.
func (f *Fusion) applyAuthorityWeights(results []Result, intent Intent) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		weight := authorityWeight(ProviderName(r.Source), intent)
		c := r.Confidence * weight
		if c > 1 {
			c = 1
		}
		out[i] = r
		out[i].Confidence = c
	}
	return out
}

func authorityWeight(source ProviderName, intent Intent) float64 {
	byIntent, ok := providerWeights[source]
	if !ok {
		return 0.7
	}
	if w, ok := byIntent[intent]; ok {
		return w
	}
	if w, ok := byIntent[IntentGeneral]; ok {
		return w
	}
	return 0.7
}

func normalizeTitle(title string) string {
	return strings.TrimSpace(strings.ToLower(title))
}
