package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shokugyo/not-a-car/internal/domain/model"
)

func testCachedRoutes() []*model.CachedRoute {
	return []*model.CachedRoute{
		{OriginID: "tokyo_station", DestinationID: "hakone", DistanceKm: 92.4, DurationMinutes: 95, Polyline: "_p~iF~ps|U_ulLnnqC"},
		{OriginID: "tokyo_station", DestinationID: "kawaguchiko", DistanceKm: 108.1, DurationMinutes: 110},
		{OriginID: "hakone", DestinationID: "kawaguchiko", DistanceKm: 58.3, DurationMinutes: 70},
	}
}

func TestRouteCache_Get(t *testing.T) {
	cache := NewRouteCacheFromRoutes(testCachedRoutes(), nil)

	route, ok := cache.Get("hakone", "kawaguchiko")
	require.True(t, ok)
	assert.Equal(t, 58.3, route.DistanceKm)

	_, ok = cache.Get("kawaguchiko", "hakone")
	assert.False(t, ok, "逆方向は別エントリ")

	route, ok = cache.GetFromDefaultOrigin("hakone")
	require.True(t, ok)
	assert.Equal(t, 95, route.DurationMinutes)

	assert.True(t, cache.HasRoute("tokyo_station", "kawaguchiko"))
	assert.False(t, cache.HasRoute("tokyo_station", "unknown"))
	assert.Equal(t, 3, cache.Count())
}

func TestRouteCache_GetAllFromOrigin(t *testing.T) {
	cache := NewRouteCacheFromRoutes(testCachedRoutes(), nil)

	routes := cache.GetAllFromOrigin("tokyo_station")
	require.Len(t, routes, 2)
	assert.Equal(t, "hakone", routes[0].DestinationID)
	assert.Equal(t, "kawaguchiko", routes[1].DestinationID)

	assert.Empty(t, cache.GetAllFromOrigin("nowhere"))
}

func TestRouteCache_LoadMissingFile(t *testing.T) {
	cache := NewRouteCache(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.False(t, cache.Load())
	assert.Equal(t, 0, cache.Count())
	_, ok := cache.GetFromDefaultOrigin("hakone")
	assert.False(t, ok)
}

func TestRouteCache_WriteMergeAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "route_cache.json")
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, WriteRouteCacheFile(path, "single_origin", testCachedRoutes()[:2], now))

	existing, err := ReadRouteCacheFile(path)
	require.NoError(t, err)
	assert.Equal(t, RouteCacheFileVersion, existing.Version)
	assert.Equal(t, 2, existing.TotalRoutes)

	updated := &model.CachedRoute{OriginID: "tokyo_station", DestinationID: "hakone", DistanceKm: 90.0, DurationMinutes: 88}
	merged := MergeRoutes(existing.Routes, []*model.CachedRoute{updated, testCachedRoutes()[2]})
	require.Len(t, merged, 3)
	require.NoError(t, WriteRouteCacheFile(path, "all_pairs", merged, now))

	cache := NewRouteCache(path, nil)
	require.True(t, cache.Load())
	assert.Equal(t, 3, cache.Count())

	route, ok := cache.GetFromDefaultOrigin("hakone")
	require.True(t, ok)
	assert.Equal(t, 90.0, route.DistanceKm, "同じキーは新しい方で上書き")
}
