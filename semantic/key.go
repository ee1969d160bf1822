package semantic

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// LocationOverride lets a caller pin a query to an explicit location so
// "near me" style queries from different places never collide.
type LocationOverride struct {
	Address   string
	Latitude  float64
	HasLatLon bool
	Longitude float64
}

// Key composes the final cache key: semantic:<normalised_query>, plus an
// optional loc_<hash> or loc_<lat>_<lon> segment when the caller passed an
// explicit location override.
func Key(normalizedQuery string, override *LocationOverride) string {
	key := "semantic:" + normalizedQuery
	if override == nil {
		return key
	}

	switch {
	case override.Address != "":
		sum := md5.Sum([]byte(override.Address))
		key += ":loc_" + hex.EncodeToString(sum[:])[:8]
	case override.HasLatLon:
		key += fmt.Sprintf(":loc_%.2f_%.2f", override.Latitude, override.Longitude)
	}
	return key
}

// Decision is the outcome of classifying and cacheability-checking a query.
type Decision struct {
	Category        Category
	NormalizedQuery string
	Cacheable       bool
	SkipReason      string
	TTL             int64 // seconds
}

// Decide runs the full pipeline: category classification followed by the
// never-cache override. It never returns Cacheable=true for a query that
// matches a never-cache pattern or whose category has a zero TTL.
func Decide(query string) Decision {
	category, normalized := Classify(query)
	ttl := TTL(category)

	if ttl <= 0 {
		return Decision{Category: category, NormalizedQuery: normalized, Cacheable: false, SkipReason: "zero_ttl_category"}
	}

	if matched, pattern := IsNeverCache(query); matched {
		return Decision{Category: category, NormalizedQuery: normalized, Cacheable: false, SkipReason: "pattern:" + pattern}
	}

	return Decision{Category: category, NormalizedQuery: normalized, Cacheable: true, TTL: int64(ttl.Seconds())}
}
