package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAckPhraseWeather(t *testing.T) {
	phrase := AckPhrase("what's the forecast for tomorrow", 0)
	assert.Contains(t, []string{"Checking the weather.", "Looking up the forecast."}, phrase)
}

func TestAckPhraseRestaurantWithCuisine(t *testing.T) {
	phrase := AckPhrase("find me a good italian restaurant", 0)
	assert.Equal(t, "Looking up italian restaurants.", phrase)
}

func TestAckPhraseRestaurantWithoutCuisine(t *testing.T) {
	phrase := AckPhrase("find somewhere to eat", 0)
	assert.Contains(t, []string{"Finding restaurants.", "Looking up dining options."}, phrase)
}

func TestAckPhraseSports(t *testing.T) {
	phrase := AckPhrase("what was the orioles score", 0)
	assert.Contains(t, []string{"Checking the scores.", "Looking up the game."}, phrase)
}

func TestAckPhraseGenericFallback(t *testing.T) {
	phrase := AckPhrase("play some music", 0)
	found := false
	for _, g := range genericAcks {
		if phrase == g {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAckPhraseAlwaysEndsWithPeriod(t *testing.T) {
	for _, q := range []string{"weather", "italian food", "score", "flight status", "headline", "stock price", "recipe", "turn on the light", "anything else"} {
		phrase := AckPhrase(q, 0)
		assert.True(t, strings.HasSuffix(phrase, "."), "phrase %q for query %q must end with a period", phrase, q)
	}
}
