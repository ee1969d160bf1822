package semantic

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassifyRecipesBeforeDining(t *testing.T) {
	category, normalized := Classify("what can i make with chicken and rice")
	assert.Equal(t, CategoryRecipes, category)
	assert.Contains(t, normalized, "recipe_")
}

func TestClassifyDiningCuisineSubDimension(t *testing.T) {
	category, normalized := Classify("good greek place near me")
	assert.Equal(t, CategoryDining, category)
	assert.Equal(t, "dining_user_location_greek", normalized)
}

func TestClassifySportsSubDimensions(t *testing.T) {
	category, normalized := Classify("what are the ravens playoff standings")
	assert.Equal(t, CategorySports, category)
	assert.Equal(t, "sports_nfl_playoff_ravens", normalized)
}

func TestClassifyNeverCacheCategories(t *testing.T) {
	for _, q := range []string{"what time is it", "turn on the kitchen lights"} {
		category, _ := Classify(q)
		assert.Equal(t, int64(0), int64(TTL(category)), "category %q must have a zero TTL", category)
	}
}

func TestLocationIsolation(t *testing.T) {
	baltimore := NormalizeLocation("good greek place near me")
	philly := NormalizeLocation("good greek place in philly")
	assert.NotEqual(t, baltimore, philly)
}

func TestLocationSynonymsCollapse(t *testing.T) {
	assert.Equal(t, "baltimore_md", NormalizeLocation("events in bmore tonight"))
	assert.Equal(t, "baltimore_md", NormalizeLocation("events in downtown tonight"))
}

func TestKeyDeterminism(t *testing.T) {
	d1 := Decide("good greek place near me")
	d2 := Decide("good greek place near me")
	assert.Equal(t, Key(d1.NormalizedQuery, nil), Key(d2.NormalizedQuery, nil))
}

func TestKeyLocationOverrideChangesKey(t *testing.T) {
	base := Key("dining_user_location_greek", nil)
	withLoc := Key("dining_user_location_greek", &LocationOverride{Address: "123 Main St"})
	assert.NotEqual(t, base, withLoc)
}

func TestNeverCacheClosure(t *testing.T) {
	for _, q := range []string{
		"tell me more about the first one",
		"anyone home",
		"turn it up",
		"what's the damage",
	} {
		d := Decide(q)
		assert.False(t, d.Cacheable, "expected %q to be uncacheable", q)
	}
}

func TestNeverCacheDoesNotFalsePositiveOnWeather(t *testing.T) {
	d := Decide("what's the weather forecast for tomorrow")
	assert.True(t, d.Cacheable)
	assert.Equal(t, CategoryWeather, d.Category)
}

func TestCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewCache(rdb, 16, zap.NewNop())

	payload, _ := json.Marshal(map[string]string{"answer": "sunny"})
	entry := &Entry{Category: CategoryWeather, NormalizedQuery: "weather_baltimore_md", Payload: payload}
	key := Key(entry.NormalizedQuery, nil)

	ctx := context.Background()
	c.Set(ctx, key, entry, TTL(CategoryWeather))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, entry.NormalizedQuery, got.NormalizedQuery)
}

func TestCacheMissAfterDelete(t *testing.T) {
	c := NewCache(nil, 16, zap.NewNop())
	ctx := context.Background()

	entry := &Entry{Category: CategoryNews, NormalizedQuery: "news_current"}
	key := Key(entry.NormalizedQuery, nil)
	c.Set(ctx, key, entry, TTL(CategoryNews))

	_, ok := c.Get(ctx, key)
	require.True(t, ok)

	c.Delete(ctx, key)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}
