package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/shorttracker/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestDisabled(t *testing.T) {
	client := Disabled()
	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Close())

	// usable by the limiter and cache like a disabled New client
	ok, _, err := NewRateLimiter(client, "test").Allow(context.Background(), OpenFIGIRateLimit)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), OpenFIGIRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, OpenFIGIRateLimit.Limit, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), YahooRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result []string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(ctx, "key", []string{"a"}, TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_GetOrSetFallsThrough(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	calls := 0
	var result []string
	err := cache.GetOrSet(context.Background(), "k", &result, TTLWeek, func() (interface{}, error) {
		calls++
		return []string{"BARC", "BARC/"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"BARC", "BARC/"}, result)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "figi:LN:GB0031348658", FIGIMappingKey("GB0031348658", "LN"))
	assert.Equal(t, "quote:BARC.L:2024-01-15", QuoteKey("BARC.L", "2024-01-15"))
}
