package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shokugyo/not-a-car/internal/domain/helper"
	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
)

const (
	maxHighlights           = 5
	goodSceneryForHighlight = 4.0
)

// RouteBuilderHelper はルート候補をフロントエンド向けのルートに整形する
type RouteBuilderHelper struct {
	locations repository.LocationRepository
}

// NewRouteBuilderHelper は新しいRouteBuilderHelperインスタンスを作成する
func NewRouteBuilderHelper(locations repository.LocationRepository) *RouteBuilderHelper {
	return &RouteBuilderHelper{locations: locations}
}

// BuildRoutes はランキング順のルートを先に、ランキングに含まれない候補を後ろに並べる。
// rec が nil ならすべて候補の順序のまま
func (h *RouteBuilderHelper) BuildRoutes(candidates []model.RouteFeatures, rec *model.RouteRecommendation, extraction model.DestinationExtraction, now time.Time) []model.Route {
	routes := make([]model.Route, 0, len(candidates))
	byID := make(map[string]model.RouteFeatures, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	ranked := make(map[string]struct{})
	if rec != nil {
		for _, id := range rec.Ranking {
			c, ok := byID[id]
			if !ok {
				continue
			}
			if _, dup := ranked[id]; dup {
				continue
			}
			ranked[id] = struct{}{}
			routes = append(routes, h.BuildRoute(c, len(routes), extraction, now))
		}
	}
	for _, c := range candidates {
		if _, ok := ranked[c.ID]; ok {
			continue
		}
		routes = append(routes, h.BuildRoute(c, len(routes), extraction, now))
	}

	if rec != nil {
		for i := range routes {
			if routes[i].ID == rec.RecommendedID {
				routes[i].Recommended = true
				routes[i].Recommendation = rec.Explanation
			}
		}
	}
	return routes
}

// BuildRoute は1件の候補を整形する
func (h *RouteBuilderHelper) BuildRoute(features model.RouteFeatures, position int, extraction model.DestinationExtraction, now time.Time) model.Route {
	var waypoints []model.RouteWaypoint
	if len(extraction.Waypoints) > 0 {
		waypoints = h.waypointsFromExtraction(features, extraction, now)
	} else {
		waypoints = []model.RouteWaypoint{h.waypointFromFeatures(features, position)}
	}

	return model.Route{
		ID:            features.ID,
		Name:          features.DestinationName,
		Description:   RouteDescription(features, extraction),
		Waypoints:     waypoints,
		TotalDuration: features.DurationMinutes,
		TotalDistance: features.DistanceKm,
		EstimatedCost: helper.EstimateCost(features.TollFee, features.DistanceKm),
		Highlights:    Highlights(features),
		VehicleTypes:  VehicleTypes(features),
		Polyline:      features.Polyline,
	}
}

// Highlights は充電・静かさ・景観と周辺施設から見どころを作る。
// 「経由:」の項目は先頭に置き、それ以外は5件に達するまで追加する
func Highlights(features model.RouteFeatures) []string {
	highlights := []string{}
	if features.ChargingAvailable {
		highlights = append(highlights, model.HighlightCharging)
	}
	if features.NoiseLevel == model.NoiseLevelLow {
		highlights = append(highlights, model.HighlightQuiet)
	}
	if features.SceneryScore >= goodSceneryForHighlight {
		highlights = append(highlights, model.HighlightGoodScenery)
	}
	for _, facility := range features.NearbyFacilities {
		if strings.HasPrefix(facility, model.ViaPrefix) {
			highlights = append([]string{facility}, highlights...)
		} else if len(highlights) < maxHighlights {
			highlights = append(highlights, facility)
		}
	}
	return highlights
}

// VehicleTypes は距離と静かさから対応する車両タイプを返す
func VehicleTypes(features model.RouteFeatures) []string {
	types := []string{model.VehicleTypeStandard}
	if helper.IsLongRange(features.DistanceKm) {
		types = append(types, model.VehicleTypeLongRange)
	}
	if features.NoiseLevel == model.NoiseLevelLow {
		types = append(types, model.VehicleTypeAccommodation)
	}
	return types
}

// RouteDescription は経由地があれば「A→B経由でCへの約N分のルート」の形で説明を作る
func RouteDescription(features model.RouteFeatures, extraction model.DestinationExtraction) string {
	var via []string
	for _, wp := range extraction.IntermediateWaypoints() {
		via = append(via, wp.Name)
	}
	if len(via) > 0 {
		return fmt.Sprintf("%s経由で%sへの約%d分のルート", strings.Join(via, "→"), features.DestinationName, features.DurationMinutes)
	}
	return fmt.Sprintf("%sへの約%d分のルート", features.DestinationName, features.DurationMinutes)
}

// waypointFromFeatures は経由地指定がない場合の目的地1件分
func (h *RouteBuilderHelper) waypointFromFeatures(features model.RouteFeatures, position int) model.RouteWaypoint {
	dest := model.RouteDestination{
		ID:                "dest_" + features.ID,
		Name:              features.DestinationName,
		EstimatedDuration: features.DurationMinutes,
	}
	if loc, ok := h.locations.GetByName(features.DestinationName); ok {
		fillDestination(&dest, loc)
	} else {
		// 地名辞書にない場合は出発地点から少しずらした仮の座標
		offset := 0.1 * float64(position)
		dest.Latitude = model.DefaultOrigin.Latitude + offset
		dest.Longitude = model.DefaultOrigin.Longitude + offset
		dest.Address = features.DestinationName + "周辺"
		dest.Category = "destination"
	}

	return model.RouteWaypoint{
		Destination: dest,
		ArrivalTime: features.ETA.Format(time.RFC3339),
	}
}

// waypointsFromExtraction は経由地ごとの地点を作る。
// 所要時間は経由地の数で均等に分け、最終目的地には残りを割り当てる
func (h *RouteBuilderHelper) waypointsFromExtraction(features model.RouteFeatures, extraction model.DestinationExtraction, now time.Time) []model.RouteWaypoint {
	sorted := extraction.SortedWaypoints()
	final, _ := extraction.FinalWaypoint()

	waypoints := make([]model.RouteWaypoint, 0, len(sorted))
	cumulative := 0
	for i, wp := range sorted {
		isFinal := wp.Order == final.Order
		name := wp.Name
		if isFinal {
			name = features.DestinationName
		}

		dest := model.RouteDestination{
			ID:   fmt.Sprintf("dest_%s_%d", features.ID, i),
			Name: name,
		}
		if loc, ok := h.locations.GetByName(name); ok {
			fillDestination(&dest, loc)
		} else {
			offset := 0.05 * float64(i)
			dest.Latitude = model.DefaultOrigin.Latitude + offset
			dest.Longitude = model.DefaultOrigin.Longitude + offset
			dest.Address = name + "周辺"
			dest.Category = "waypoint"
			if isFinal {
				dest.Category = "destination"
			}
		}

		var arrival time.Time
		if isFinal {
			dest.EstimatedDuration = features.DurationMinutes - cumulative
			arrival = now.Add(time.Duration(features.DurationMinutes) * time.Minute)
		} else {
			dest.EstimatedDuration = features.DurationMinutes / len(sorted)
			cumulative += dest.EstimatedDuration
			arrival = now.Add(time.Duration(cumulative) * time.Minute)
		}

		var stay *int
		if wp.DurationHint != nil {
			if minutes, ok := helper.ParseDurationHint(*wp.DurationHint); ok {
				stay = &minutes
			}
		}

		waypoints = append(waypoints, model.RouteWaypoint{
			Destination:  dest,
			ArrivalTime:  arrival.Format(time.RFC3339),
			StayDuration: stay,
		})
	}
	return waypoints
}

func fillDestination(dest *model.RouteDestination, loc *model.Location) {
	dest.Latitude = loc.Lat
	dest.Longitude = loc.Lng
	dest.Category = string(loc.Type)
	dest.Address = loc.Address
	if dest.Address == "" {
		dest.Address = fmt.Sprintf("%s %s", loc.Prefecture, dest.Name)
	}
}
