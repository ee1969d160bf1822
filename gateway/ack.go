package gateway

import "strings"

// ackFamily pairs the keywords that trigger a themed acknowledgment with
// the candidate phrases to pick from, ported verbatim from
// original_source/src/gateway/main.go's ack_text heuristic (lines
// 1518-1556). Every phrase ends with a period so downstream TTS treats it
// as a complete sentence.
type ackFamily struct {
	keywords []string
	phrases  []string
}

var weatherAck = ackFamily{
	keywords: []string{"weather", "temperature", "forecast", "rain"},
	phrases:  []string{"Checking the weather.", "Looking up the forecast."},
}

var restaurantGenericAck = []string{"Finding restaurants.", "Looking up dining options."}

var sportsAck = ackFamily{
	keywords: []string{"score", "game", "sports", "ravens", "orioles"},
	phrases:  []string{"Checking the scores.", "Looking up the game."},
}

var flightAck = ackFamily{
	keywords: []string{"flight", "airport", "plane"},
	phrases:  []string{"Checking flight status.", "Looking up flights."},
}

var newsAck = ackFamily{
	keywords: []string{"news", "headline"},
	phrases:  []string{"Checking the news.", "Looking up headlines."},
}

var stockAck = ackFamily{
	keywords: []string{"stock", "market", "price"},
	phrases:  []string{"Checking the markets.", "Looking up prices."},
}

var recipeAck = ackFamily{
	keywords: []string{"recipe", "cook", "make"},
	phrases:  []string{"Looking up recipes.", "Finding that recipe."},
}

var lightAck = ackFamily{
	keywords: []string{"light", "turn on", "turn off", "switch"},
	phrases:  []string{"Right away.", "On it."},
}

var restaurantWords = []string{"restaurant", "food", "eat", "dining"}

var genericAcks = []string{
	"One moment.", "Let me check.", "Looking into it.", "Just a moment.", "Checking now.",
}

// AckPhrase picks the acknowledgment spoken before the real answer starts
// streaming, keyed off the query text and, for restaurant queries, a
// matched cuisine. idx selects which of the (usually two) candidate
// phrases to use, letting the caller vary the phrasing across repeated
// queries the way the original rotates between its two options.
func AckPhrase(text string, idx int) string {
	lower := strings.ToLower(text)

	if containsAny(lower, weatherAck.keywords) {
		return pick(weatherAck.phrases, idx)
	}
	if containsAny(lower, restaurantWords) {
		for _, cuisine := range cuisineNames {
			if strings.Contains(lower, cuisine) {
				return "Looking up " + cuisine + " restaurants."
			}
		}
		return pick(restaurantGenericAck, idx)
	}
	if containsAny(lower, sportsAck.keywords) {
		return pick(sportsAck.phrases, idx)
	}
	if containsAny(lower, flightAck.keywords) {
		return pick(flightAck.phrases, idx)
	}
	if containsAny(lower, newsAck.keywords) {
		return pick(newsAck.phrases, idx)
	}
	if containsAny(lower, stockAck.keywords) {
		return pick(stockAck.phrases, idx)
	}
	if containsAny(lower, recipeAck.keywords) {
		return pick(recipeAck.phrases, idx)
	}
	if containsAny(lower, lightAck.keywords) {
		return pick(lightAck.phrases, idx)
	}
	return pick(genericAcks, idx)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func pick(phrases []string, idx int) string {
	if len(phrases) == 0 {
		return ""
	}
	if idx < 0 {
		idx = -idx
	}
	return phrases[idx%len(phrases)]
}
