package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shokugyo/not-a-car/internal/domain/helper"
	"github.com/shokugyo/not-a-car/internal/domain/model"
)

var generatorNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestGenerator() *RouteCandidateGenerator {
	return NewRouteCandidateGenerator(newTestLocationIndex(), newTestRouteCache(), nil)
}

func waypointExtraction(waypoints ...model.ExtractedWaypoint) model.DestinationExtraction {
	e := model.NewEmptyExtraction("テスト")
	e.Waypoints = waypoints
	return e
}

func TestGenerate_WaypointRoute(t *testing.T) {
	extraction := waypointExtraction(
		model.ExtractedWaypoint{Name: "箱根", Type: model.WaypointTypeRequired, Order: 0},
		model.ExtractedWaypoint{Name: "河口湖", Type: model.WaypointTypeFinal, Order: 1},
	)

	candidates := newTestGenerator().Generate(tokyoPoint, extraction, 4, generatorNow)
	require.Len(t, candidates, 1, "経由地指定は単一候補")

	route := candidates[0]
	assert.Equal(t, "A", route.ID)
	assert.Equal(t, "河口湖", route.DestinationName)
	// 東京駅→箱根 と 箱根→河口湖 の事前計算ルートを合計する
	assert.Equal(t, 140.0, route.DistanceKm)
	assert.Equal(t, 165, route.DurationMinutes)
	assert.Equal(t, generatorNow.Add(165*time.Minute), route.ETA)
	assert.Equal(t, 3500, route.TollFee)
	assert.True(t, route.ChargingAvailable)
	assert.Equal(t, model.NoiseLevelLow, route.NoiseLevel)
	assert.Equal(t, []string{"経由: 箱根", "駐車場", model.FacilityEVCharging}, route.NearbyFacilities)

	// 接続点の重複を除いた3点のポリライン
	line, err := helper.DecodePolyline(route.Polyline)
	require.NoError(t, err)
	require.Len(t, line, 3)
	assert.InDelta(t, hakonePoint.Lat(), line[1].Lat(), 1e-5)
	assert.InDelta(t, kawaguchikoPoint.Lon(), line[2].Lon(), 1e-5)
}

func TestGenerate_WaypointRouteWithUnknownIntermediate(t *testing.T) {
	extraction := waypointExtraction(
		model.ExtractedWaypoint{Name: "存在しない場所", Type: model.WaypointTypeRequired, Order: 0},
		model.ExtractedWaypoint{Name: "河口湖", Type: model.WaypointTypeFinal, Order: 1},
	)

	candidates := newTestGenerator().Generate(tokyoPoint, extraction, 4, generatorNow)
	require.Len(t, candidates, 1)

	// 不明な経由地は 10km / 15分、次の区間は既定出発地点からのルートを使う
	route := candidates[0]
	assert.Equal(t, 115.0, route.DistanceKm)
	assert.Equal(t, 125, route.DurationMinutes)
	assert.Empty(t, route.Polyline)
	assert.Equal(t, "経由: 存在しない場所", route.NearbyFacilities[0])
}

func TestGenerate_WaypointRouteWithoutCache(t *testing.T) {
	generator := NewRouteCandidateGenerator(newTestLocationIndex(), nil, nil)
	extraction := waypointExtraction(
		model.ExtractedWaypoint{Name: "河口湖", Type: model.WaypointTypeFinal, Order: 0},
	)

	candidates := generator.Generate(tokyoPoint, extraction, 4, generatorNow)
	require.Len(t, candidates, 1)

	expected := helper.EstimateRoadDistance(tokyoPoint, kawaguchikoPoint)
	assert.Equal(t, expected, candidates[0].DistanceKm)
	assert.Equal(t, helper.EstimateDurationMinutes(expected), candidates[0].DurationMinutes)
	assert.Empty(t, candidates[0].Polyline)
	assert.Equal(t, []string{"駐車場", model.FacilityEVCharging}, candidates[0].NearbyFacilities)
}

func TestGenerate_FinalResolvedBySubstring(t *testing.T) {
	extraction := waypointExtraction(
		model.ExtractedWaypoint{Name: "箱根温泉", Type: model.WaypointTypeFinal, Order: 0},
	)

	candidates := newTestGenerator().Generate(tokyoPoint, extraction, 4, generatorNow)
	require.Len(t, candidates, 1)
	assert.Equal(t, "箱根", candidates[0].DestinationName)
	assert.Equal(t, 92.5, candidates[0].DistanceKm)
	assert.Equal(t, tokyoHakonePolyline, candidates[0].Polyline, "1区間ならそのまま")
}

func TestGenerate_UnresolvedFinalFallsBackToSearch(t *testing.T) {
	extraction := waypointExtraction(
		model.ExtractedWaypoint{Name: "どこか遠く", Type: model.WaypointTypeFinal, Order: 0},
	)

	candidates := newTestGenerator().Generate(tokyoPoint, extraction, 1, generatorNow)
	require.Len(t, candidates, 4, "目的地が解決できなければ4件の候補を作る")

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.DestinationName)
		assert.Equal(t, []string{model.ReasonSceneryPadding}, c.MatchReasons)
	}
	assert.Equal(t, []string{"河口湖", "箱根", "奥多摩", "道の駅富士吉田"}, names)
}

func TestGenerate_DestinationCandidates(t *testing.T) {
	extraction := model.NewEmptyExtraction("温泉でEV充電したい")
	extraction.FacilityTypes = []string{"温泉"}
	extraction.Amenities = []string{"EV充電"}

	candidates := newTestGenerator().Generate(tokyoPoint, extraction, 4, generatorNow)
	require.Len(t, candidates, 4)

	ids := make([]string, 0, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
		names = append(names, c.DestinationName)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids)
	assert.Equal(t, []string{"箱根", "道の駅富士吉田", "河口湖", "奥多摩"}, names)

	hakone := candidates[0]
	assert.Equal(t, 92.5, hakone.DistanceKm, "既定出発地点からの事前計算ルート")
	assert.Equal(t, 95, hakone.DurationMinutes)
	assert.Equal(t, 2312, hakone.TollFee)
	assert.Equal(t, tokyoHakonePolyline, hakone.Polyline)
	assert.Contains(t, hakone.MatchReasons, "施設種別: 温泉")
	assert.Greater(t, hakone.MatchScore, candidates[1].MatchScore)

	michinoeki := candidates[1]
	assert.Empty(t, michinoeki.Polyline, "キャッシュがなければ概算")
	assert.GreaterOrEqual(t, michinoeki.DurationMinutes, 15)

	assert.Equal(t, []string{model.ReasonSceneryPadding}, candidates[3].MatchReasons)
}

func TestGenerate_DefaultCountAndTrim(t *testing.T) {
	extraction := model.NewEmptyExtraction("どこでも")

	assert.Len(t, newTestGenerator().Generate(tokyoPoint, extraction, 0, generatorNow), 4)
	assert.Len(t, newTestGenerator().Generate(tokyoPoint, extraction, 2, generatorNow), 2)
	assert.Len(t, newTestGenerator().Generate(tokyoPoint, extraction, 8, generatorNow), 5, "地点数が上限")
}

func TestRouteID(t *testing.T) {
	assert.Equal(t, "A", routeID(0))
	assert.Equal(t, "H", routeID(7))
	assert.Equal(t, "R8", routeID(8))
}
