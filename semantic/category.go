package semantic

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// Category is the closed set of cache categories, used for TTL lookup.
type Category string

const (
	CategoryWeather     Category = "weather"
	CategoryDining      Category = "dining"
	CategoryNews        Category = "news"
	CategoryStocks      Category = "stocks"
	CategorySports      Category = "sports"
	CategoryEvents      Category = "events"
	CategoryFlights     Category = "flights"
	CategoryRecipes     Category = "recipes"
	CategoryGeneral     Category = "general"
	CategoryStreaming   Category = "streaming"
	CategoryDirections  Category = "directions"
	CategoryTime        Category = "time"
	CategorySmartHome   Category = "smart_home"
	CategoryMemory      Category = "memory"
	CategoryConversation Category = "conversation"
	CategoryCalendar    Category = "calendar"
)

// ttlTable holds the per-category TTL; 0 means never cache.
var ttlTable = map[Category]time.Duration{
	CategoryWeather:      300 * time.Second,
	CategoryDining:       1800 * time.Second,
	CategoryNews:         900 * time.Second,
	CategoryStocks:       60 * time.Second,
	CategorySports:       300 * time.Second,
	CategoryEvents:       3600 * time.Second,
	CategoryFlights:      300 * time.Second,
	CategoryRecipes:      86400 * time.Second,
	CategoryGeneral:      3600 * time.Second,
	CategoryStreaming:    1800 * time.Second,
	CategoryDirections:   300 * time.Second,
	CategoryTime:         0,
	CategorySmartHome:    0,
	CategoryMemory:       0,
	CategoryConversation: 0,
	CategoryCalendar:     0,
}

// TTL returns the configured TTL for a category, defaulting to the
// "general" TTL for an unrecognised category.
func TTL(c Category) time.Duration {
	if ttl, ok := ttlTable[c]; ok {
		return ttl
	}
	return ttlTable[CategoryGeneral]
}

var (
	recipePatterns = []string{
		"recipe", "how to make", "how to cook", "ingredients for",
		"what can i make with", "make dinner with", "make lunch with",
		"cook something with", "prepare dinner", "prepare lunch",
		"i want to make", "want to cook", "need to cook", "should i cook",
		"something to make with", "ideas for cooking",
	}
	recipeDishPattern = regexp.MustCompile(`(?:recipe for|how to (?:make|cook)|make (?:dinner|lunch) with|with) (.+?)(?:\?|$)`)

	weatherKeywords = []string{"weather", "temperature", "forecast", "rain", "sunny", "cold", "hot"}

	diningPatterns = []string{
		"restaurant", "where to eat", "food near", "dinner", "lunch", "breakfast", "dining",
		"place to eat", "eat tonight", "eat today", "good place", "recommend a", "recommendation",
		"somewhere to eat", "grab a bite", "get food", "hungry", "cuisine",
	}
	cuisineTriggers = []string{
		"greek", "italian", "mexican", "chinese", "japanese", "thai", "indian",
		"american", "sushi", "pizza", "burger", "korean", "vietnamese", "french",
		"mediterranean", "seafood", "steakhouse", "bbq", "barbecue", "jamaican",
		"irish", "spanish", "cuban", "brazilian", "peruvian", "ethiopian", "moroccan",
		"turkish", "lebanese", "german", "british", "southern", "cajun", "soul food",
		"vegan", "vegetarian", "ramen", "pho", "dim sum", "tapas",
	}
	diningEatContext = []string{"place", "spot", "eat", "food", "tonight", "today", "near"}

	sportsKeywords = []string{
		"game", "score", "ravens", "orioles", "nfl", "mlb", "nba", "nhl", "match",
		"playoff", "standings", "bracket", "season", "championship", "super bowl",
	}
	sportsLeagues      = []string{"nfl", "nba", "mlb", "nhl", "ncaa", "mls"}
	sportsPlayoffWords = []string{"playoff", "bracket", "picture", "wild card", "seed"}
	sportsStandWords   = []string{"standing", "rank", "division", "conference", "record"}
	sportsSchedWords   = []string{"schedule", "upcoming", "next game", "when do"}
	sportsRecentWords  = []string{"latest", "recent", "last game", "yesterday"}
	sportsTeams        = []string{
		"ravens", "orioles", "commanders", "nationals", "wizards", "capitals",
		"eagles", "cowboys", "giants", "steelers", "chiefs", "bills", "49ers",
	}

	newsKeywords   = []string{"news", "headline", "what's happening"}
	stocksKeywords = []string{"stock", "market", "price of", "how is", "nasdaq", "dow"}
	stockTickerPattern = regexp.MustCompile(`\b([A-Z]{2,5})\b`)

	timeKeywords      = []string{"time", "date", "day is it"}
	smartHomeKeywords = []string{"turn", "set temperature", "lights", "thermostat", "lock", "unlock"}
	eventsKeywords    = []string{"events", "happening", "concerts", "shows", "tickets"}
	flightsKeywords   = []string{"flight", "airport", "departures", "arrivals", "bwi"}
	streamingKeywords = []string{"watch", "netflix", "hulu", "streaming", "movie", "show"}

	directionsPatterns = []string{
		"directions", "how do i get to", "how to get to", "navigate to",
		"route to", "drive to", "driving to", "way to", "fastest route",
		"how far", "how long to get", "trip to", "going to",
	}
	directionsDestPattern = regexp.MustCompile(`(?:to|get to|reach|navigate to)\s+(.+?)(?:\?|$|from)`)
)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func firstMatch(haystack string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if strings.Contains(haystack, c) {
			return c, true
		}
	}
	return "", false
}

// Classify extracts the cache category and a normalised query suitable for
// key construction, following the priority order of the original
// extract_semantic_intent: recipes before dining, sports before news,
// stocks before time, etc. — order matters because keyword sets overlap.
func Classify(query string) (Category, string) {
	q := strings.ToLower(strings.TrimSpace(query))

	if containsAny(q, recipePatterns) {
		dish := "general"
		if m := recipeDishPattern.FindStringSubmatch(q); m != nil {
			d := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_")
			if len(d) > 30 {
				d = d[:30]
			}
			if d != "" {
				dish = d
			}
		}
		return CategoryRecipes, "recipe_" + dish
	}

	if containsAny(q, weatherKeywords) {
		return CategoryWeather, "weather_" + NormalizeLocation(q)
	}

	isDining := containsAny(q, diningPatterns)
	if !isDining {
		for _, c := range cuisineTriggers {
			if strings.Contains(q, c) && containsAny(q, diningEatContext) {
				isDining = true
				break
			}
		}
	}
	if isDining {
		loc := NormalizeLocation(q)
		cuisine := "general"
		if c, ok := firstMatch(q, cuisineTriggers); ok {
			cuisine = c
		}
		return CategoryDining, "dining_" + loc + "_" + cuisine
	}

	if containsAny(q, sportsKeywords) {
		league := "general"
		if l, ok := firstMatch(q, sportsLeagues); ok {
			league = l
		}
		queryType := "scores"
		switch {
		case containsAny(q, sportsPlayoffWords):
			queryType = "playoff"
		case containsAny(q, sportsStandWords):
			queryType = "standings"
		case containsAny(q, sportsSchedWords):
			queryType = "schedule"
		case containsAny(q, sportsRecentWords):
			queryType = "recent"
		}
		team := "all"
		if t, ok := firstMatch(q, sportsTeams); ok {
			team = t
		}
		return CategorySports, "sports_" + league + "_" + queryType + "_" + team
	}

	if containsAny(q, newsKeywords) {
		return CategoryNews, "news_current"
	}

	if containsAny(q, stocksKeywords) {
		tickerKey := "market"
		if m := stockTickerPattern.FindStringSubmatch(query); m != nil {
			tickerKey = strings.ToLower(m[1])
		}
		return CategoryStocks, "stocks_" + tickerKey
	}

	if containsAny(q, timeKeywords) {
		return CategoryTime, ""
	}

	if containsAny(q, smartHomeKeywords) {
		return CategorySmartHome, ""
	}

	if containsAny(q, eventsKeywords) {
		return CategoryEvents, "events_" + NormalizeLocation(q)
	}

	if containsAny(q, flightsKeywords) {
		return CategoryFlights, "airports_bwi"
	}

	if containsAny(q, streamingKeywords) {
		return CategoryStreaming, "streaming_general"
	}

	if containsAny(q, directionsPatterns) {
		dest := "unknown"
		if m := directionsDestPattern.FindStringSubmatch(q); m != nil {
			d := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_")
			if len(d) > 30 {
				d = d[:30]
			}
			if d != "" {
				dest = d
			}
		}
		return CategoryDirections, "directions_to_" + dest
	}

	sum := md5.Sum([]byte(q))
	return CategoryGeneral, hex.EncodeToString(sum[:])[:16]
}
