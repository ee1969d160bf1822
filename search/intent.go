package search

import (
	"regexp"
	"strings"
)

// Intent is the engine's own classification set — separate from the
// semantic cache's Category set per spec §4.4.
type Intent string

const (
	IntentEventSearch   Intent = "event_search"
	IntentNews          Intent = "news"
	IntentWeather       Intent = "weather"
	IntentSports        Intent = "sports"
	IntentLocalBusiness Intent = "local_business"
	IntentGeneral       Intent = "general"
)

type intentRule struct {
	intent   Intent
	patterns []*regexp.Regexp
	keywords []string
}

var intentRules = []intentRule{
	{
		intent: IntentEventSearch,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(concert|show|event|performance|tour|festival|game)\b`),
			regexp.MustCompile(`\b(tickets|venue|live|appearing|playing|performing)\b`),
			regexp.MustCompile(`\b(music|band|artist|singer|comedian|theater)\b`),
		},
		keywords: []string{"concert", "show", "event", "tour", "festival", "tickets", "live"},
	},
	{
		intent: IntentNews,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(news|breaking|latest|today|current|recent)\b`),
			regexp.MustCompile(`\b(headline|report|update|article)\b`),
		},
		keywords: []string{"news", "breaking", "latest", "today", "current"},
	},
	{
		intent: IntentWeather,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(weather|temperature|forecast|rain|snow|sunny|cloudy)\b`),
			regexp.MustCompile(`\b(degrees|fahrenheit|celsius|humidity)\b`),
			regexp.MustCompile(`\b(storm|hurricane|wind|precipitation)\b`),
		},
		keywords: []string{"weather", "temperature", "forecast", "rain"},
	},
	{
		intent: IntentSports,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(ravens|orioles|score|game|team|win|loss|playoff)\b`),
			regexp.MustCompile(`\b(championship|season|league|match|tournament)\b`),
			regexp.MustCompile(`\b(nfl|mlb|nba|nhl|soccer|football|basketball)\b`),
		},
		keywords: []string{"ravens", "orioles", "score", "game", "team"},
	},
	{
		intent: IntentLocalBusiness,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(restaurant|coffee|cafe|store|shop|near me)\b`),
			regexp.MustCompile(`\b(best|top|good|recommended)\s+(food|pizza|burger|sushi|chinese)\b`),
			regexp.MustCompile(`\b(open now|hours|location|address)\b`),
		},
		keywords: []string{"restaurant", "coffee", "near me", "best"},
	},
}

// ClassifyIntent scores each intent by pattern + keyword matches and
// returns the highest scorer with a confidence in [0, 1], defaulting to
// "general" when nothing matches.
func ClassifyIntent(query string) (Intent, float64) {
	q := strings.ToLower(query)

	var best Intent
	var bestScore float64
	var totalPossible float64

	for _, rule := range intentRules {
		score := 0.0
		for _, p := range rule.patterns {
			if p.MatchString(q) {
				score++
			}
		}
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				score += 0.5
			}
		}
		possible := float64(len(rule.patterns)) + 0.5*float64(len(rule.keywords))
		if possible > totalPossible {
			totalPossible = possible
		}
		if score > bestScore {
			bestScore = score
			best = rule.intent
		}
	}

	if bestScore <= 0 {
		return IntentGeneral, 0
	}

	confidence := bestScore / totalPossible
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence
}
