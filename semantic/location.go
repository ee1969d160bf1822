package semantic

import (
	"regexp"
	"strings"
)

// locationNormalizations collapses Baltimore-area synonyms onto one token.
var locationNormalizations = map[string]string{
	"baltimore":    "baltimore_md",
	"bmore":        "baltimore_md",
	"charm city":   "baltimore_md",
	"maryland":     "baltimore_md",
	"md":           "baltimore_md",
	"owings mills": "baltimore_md",
	"towson":       "baltimore_md",
	"downtown":     "baltimore_md",
}

// locationIndicators extract an explicit place mention. The trailing
// alternation mirrors the original's punctuation/clause-boundary handling
// ("in Philly?", "near NYC for dinner").
var locationIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\bin\s+([a-zA-Z\s]+?)[?!.;]*(?:\s*,|\s*$|\s+(?:for|near|around|today|tonight|tomorrow))`),
	regexp.MustCompile(`\bnear\s+([a-zA-Z\s]+?)[?!.;]*(?:\s*,|\s*$|\s+(?:for|today|tonight|tomorrow))`),
	regexp.MustCompile(`\baround\s+([a-zA-Z\s]+?)[?!.;]*(?:\s*,|\s*$|\s+(?:for|today|tonight|tomorrow))`),
	regexp.MustCompile(`\bat\s+([a-zA-Z\s]+?)[?!.;]*(?:\s*,|\s*$|\s+(?:for|today|tonight|tomorrow))`),
}

var nearMePhrases = []string{"around me", "near me", "nearby", "close by", "in my area", "local"}

var nonSafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeLocation derives the canonical location token for a query.
// It only defaults to "baltimore_md" when no location is specified at all:
// an explicit mention ("in Northampton") must produce a distinct token so
// that different locations never collide on the same cache key.
func NormalizeLocation(text string) string {
	lower := strings.ToLower(text)

	for synonym, normalized := range locationNormalizations {
		if strings.Contains(lower, synonym) {
			return normalized
		}
	}

	for _, pattern := range locationIndicators {
		m := pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		loc := strings.TrimSpace(m[1])
		if len(loc) <= 2 {
			continue
		}
		safe := strings.Trim(nonSafeChars.ReplaceAllString(loc, "_"), "_")
		if safe != "" {
			return safe
		}
	}

	for _, phrase := range nearMePhrases {
		if strings.Contains(lower, phrase) {
			return "user_location"
		}
	}

	return "baltimore_md"
}
