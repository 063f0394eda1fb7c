package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/shokugyo/not-a-car/internal/domain/helper"
	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
	"github.com/shokugyo/not-a-car/internal/infrastructure/logger"
)

// 経由地指定の目的地が解決できなかった場合に生成する候補数
const fallbackCandidateCount = 4

// RouteCandidateGenerator は抽出結果と地名辞書からルート候補を組み立てる。
// 距離と時間は事前計算ルート、既定の出発地点からのルート、概算の順で決める
type RouteCandidateGenerator struct {
	locations repository.LocationRepository
	routes    repository.RouteCacheRepository
	logger    *zap.Logger
}

func NewRouteCandidateGenerator(locations repository.LocationRepository, routes repository.RouteCacheRepository, l *zap.Logger) *RouteCandidateGenerator {
	return &RouteCandidateGenerator{
		locations: locations,
		routes:    routes,
		logger:    logger.OrNop(l),
	}
}

// leg は1区間の距離・時間・ポリライン
type leg struct {
	distanceKm float64
	minutes    int
	polyline   string
}

// Generate はルート候補を返す。
// 経由地があれば1件だけ、なければ最大 count 件（既定4件）の候補を生成する
func (g *RouteCandidateGenerator) Generate(origin orb.Point, extraction model.DestinationExtraction, count int, now time.Time) []model.RouteFeatures {
	if count <= 0 {
		count = fallbackCandidateCount
	}
	if len(extraction.Waypoints) > 0 {
		return g.generateWaypointRoute(origin, extraction, now)
	}
	return g.generateDestinationCandidates(origin, extraction, count, now)
}

func (g *RouteCandidateGenerator) generateWaypointRoute(origin orb.Point, extraction model.DestinationExtraction, now time.Time) []model.RouteFeatures {
	final, _ := extraction.FinalWaypoint()

	finalLocation := g.findLocationByName(final.Name)
	if finalLocation == nil {
		results := g.locations.Search(model.SearchQuery{
			PlaceNames:    []string{final.Name},
			FacilityTypes: []string{final.Name},
			Limit:         1,
		})
		if len(results) > 0 {
			finalLocation = results[0].Location
		}
	}
	if finalLocation == nil {
		g.logger.Warn("⚠️ 最終目的地が見つからないため条件検索に切り替えます", zap.String("name", final.Name))
		return g.generateDestinationCandidates(origin, extraction, fallbackCandidateCount, now)
	}

	var (
		totalKm      float64
		totalMinutes int
		polylines    []string
	)
	currentPos := origin
	currentID := model.DefaultOriginID

	for _, wp := range extraction.SortedWaypoints() {
		loc := finalLocation
		if wp.Order != final.Order {
			loc = g.findLocationByName(wp.Name)
		}
		if loc == nil {
			// 見つからない経由地は概算を足し、次の区間は事前計算ルートを引かない
			totalKm += helper.UnresolvedLegKm
			totalMinutes += helper.UnresolvedLegMin
			currentID = ""
			continue
		}

		l := g.resolveLeg(currentPos, currentID, loc)
		totalKm += l.distanceKm
		totalMinutes += l.minutes
		if l.polyline != "" {
			polylines = append(polylines, l.polyline)
		}
		currentPos = loc.Point()
		currentID = loc.ID
	}

	facilities := helper.NearbyFacilities(finalLocation)
	var viaNames []string
	for _, wp := range extraction.IntermediateWaypoints() {
		viaNames = append(viaNames, wp.Name)
	}
	if len(viaNames) > 0 {
		facilities = append([]string{fmt.Sprintf("%s %s", model.ViaPrefix, strings.Join(viaNames, ", "))}, facilities...)
	}

	route := model.RouteFeatures{
		ID:                model.RouteIDs[0],
		DestinationName:   finalLocation.Name,
		ETA:               now.Add(time.Duration(totalMinutes) * time.Minute),
		DistanceKm:        helper.RoundTo1(totalKm),
		DurationMinutes:   totalMinutes,
		TollFee:           helper.EstimateTollFee(totalKm),
		ChargingAvailable: finalLocation.EVCharging,
		NoiseLevel:        finalLocation.NoiseLevel,
		SceneryScore:      finalLocation.SceneryScore,
		NearbyFacilities:  facilities,
		Polyline:          helper.CombinePolylines(polylines),
		MatchReasons:      []string{"経由地指定: " + final.Name},
	}
	return []model.RouteFeatures{route}
}

func (g *RouteCandidateGenerator) generateDestinationCandidates(origin orb.Point, extraction model.DestinationExtraction, count int, now time.Time) []model.RouteFeatures {
	results := g.locations.Search(model.SearchQuery{
		PlaceNames:    extraction.PlaceNames(),
		FacilityTypes: extraction.FacilityTypes,
		Amenities:     extraction.Amenities,
		Atmosphere:    extraction.Atmosphere,
		Limit:         count * 2,
	})
	g.logger.Info("候補地点を検索しました",
		zap.Int("results", len(results)),
		zap.Strings("places", extraction.PlaceNames()),
		zap.Strings("facilities", extraction.FacilityTypes))

	if len(results) < count {
		used := make(map[string]struct{}, len(results))
		for _, r := range results {
			used[r.Location.ID] = struct{}{}
		}
		remaining := helper.ExcludeLocations(g.locations.GetAll(), used)
		helper.SortBySceneryScore(remaining)
		for _, loc := range remaining {
			if len(results) >= count {
				break
			}
			results = append(results, model.SearchResult{
				Location:     loc,
				Score:        loc.SceneryScore,
				MatchReasons: []string{model.ReasonSceneryPadding},
			})
		}
	}
	if len(results) > count {
		results = results[:count]
	}

	candidates := make([]model.RouteFeatures, 0, len(results))
	for i, r := range results {
		candidates = append(candidates, g.createRouteFeature(routeID(i), r, origin, now))
	}
	return candidates
}

func (g *RouteCandidateGenerator) createRouteFeature(id string, result model.SearchResult, origin orb.Point, now time.Time) model.RouteFeatures {
	loc := result.Location

	var l leg
	if cached, ok := g.cachedFromDefaultOrigin(loc.ID); ok {
		l = cached
	} else {
		l = estimateLeg(origin, loc.Point())
	}

	return model.RouteFeatures{
		ID:                id,
		DestinationName:   loc.Name,
		ETA:               now.Add(time.Duration(l.minutes) * time.Minute),
		DistanceKm:        l.distanceKm,
		DurationMinutes:   l.minutes,
		TollFee:           helper.EstimateTollFee(l.distanceKm),
		ChargingAvailable: loc.EVCharging,
		NoiseLevel:        loc.NoiseLevel,
		SceneryScore:      loc.SceneryScore,
		NearbyFacilities:  helper.NearbyFacilities(loc),
		Polyline:          l.polyline,
		MatchScore:        result.Score,
		MatchReasons:      result.MatchReasons,
	}
}

// resolveLeg は区間の距離を 事前計算ルート → 既定出発地点からのルート → 概算 の順で求める
func (g *RouteCandidateGenerator) resolveLeg(from orb.Point, fromID string, to *model.Location) leg {
	if fromID != "" && g.routes != nil {
		if cached, ok := g.routes.Get(fromID, to.ID); ok {
			return leg{distanceKm: cached.DistanceKm, minutes: cached.DurationMinutes, polyline: cached.Polyline}
		}
	}
	if cached, ok := g.cachedFromDefaultOrigin(to.ID); ok {
		return cached
	}
	return estimateLeg(from, to.Point())
}

func (g *RouteCandidateGenerator) cachedFromDefaultOrigin(destinationID string) (leg, bool) {
	if g.routes == nil {
		return leg{}, false
	}
	cached, ok := g.routes.GetFromDefaultOrigin(destinationID)
	if !ok {
		return leg{}, false
	}
	return leg{distanceKm: cached.DistanceKm, minutes: cached.DurationMinutes, polyline: cached.Polyline}, true
}

// findLocationByName は完全一致、次に部分一致で場所を探す
func (g *RouteCandidateGenerator) findLocationByName(name string) *model.Location {
	if loc, ok := g.locations.GetByName(name); ok {
		return loc
	}
	return helper.FindByNameSubstring(g.locations.GetAll(), name)
}

func estimateLeg(from, to orb.Point) leg {
	distance := helper.EstimateRoadDistance(from, to)
	return leg{distanceKm: distance, minutes: helper.EstimateDurationMinutes(distance)}
}

func routeID(i int) string {
	if i < len(model.RouteIDs) {
		return model.RouteIDs[i]
	}
	return fmt.Sprintf("R%d", i)
}
