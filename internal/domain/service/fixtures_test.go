package service

import (
	"context"
	"iter"
	"strings"

	"github.com/paulmach/orb"

	"github.com/shokugyo/not-a-car/internal/domain/helper"
	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/infrastructure/ai"
	"github.com/shokugyo/not-a-car/internal/repository"
)

var (
	tokyoPoint       = orb.Point{139.7671, 35.6812}
	hakonePoint      = orb.Point{139.1069, 35.2324}
	kawaguchikoPoint = orb.Point{138.7515, 35.5171}
)

func testLocations() []model.Location {
	return []model.Location{
		{
			ID: "tokyo_station", Name: "東京駅", Lat: 35.6812, Lng: 139.7671,
			Type: model.LocationTypeStation, Prefecture: "東京都",
			NoiseLevel: model.NoiseLevelHigh, SceneryScore: 2.0,
		},
		{
			ID: "hakone", Name: "箱根", Lat: 35.2324, Lng: 139.1069,
			Type: model.LocationTypeOnsen, Prefecture: "神奈川県",
			Aliases: []string{"箱根町"}, Tags: []string{"温泉", "観光"}, Facilities: []string{"トイレ"},
			Description: "芦ノ湖と温泉街で知られる観光地", Specialties: []string{"黒たまご"},
			BestSeason: "秋", EVCharging: true, NoiseLevel: model.NoiseLevelMedium, SceneryScore: 4.5,
		},
		{
			ID: "kawaguchiko", Name: "河口湖", Lat: 35.5171, Lng: 138.7515,
			Type: model.LocationTypeLake, Prefecture: "山梨県",
			Tags: []string{"湖", "富士山"}, Facilities: []string{"駐車場"},
			EVCharging: true, NoiseLevel: model.NoiseLevelLow, SceneryScore: 5.0,
		},
		{
			ID: "okutama", Name: "奥多摩", Lat: 35.8096, Lng: 139.0967,
			Type: model.LocationTypeMountain, Prefecture: "東京都",
			Tags: []string{"自然", "キャンプ"}, OvernightParking: true,
			NoiseLevel: model.NoiseLevelLow, SceneryScore: 4.0,
		},
		{
			ID: "michinoeki_fujiyoshida", Name: "道の駅富士吉田", Lat: 35.4870, Lng: 138.7900,
			Type: model.LocationTypeMichinoeki, Prefecture: "山梨県",
			Facilities: []string{"トイレ", "EV充電"}, EVCharging: true, OvernightParking: true,
			NoiseLevel: model.NoiseLevelMedium, SceneryScore: 3.5,
		},
	}
}

func newTestLocationIndex() *repository.LocationIndex {
	return repository.NewLocationIndexFromLocations(testLocations(), nil)
}

var (
	tokyoHakonePolyline       = helper.EncodePolyline(orb.LineString{tokyoPoint, hakonePoint})
	hakoneKawaguchikoPolyline = helper.EncodePolyline(orb.LineString{hakonePoint, kawaguchikoPoint})
)

func newTestRouteCache() *repository.RouteCache {
	return repository.NewRouteCacheFromRoutes([]*model.CachedRoute{
		{OriginID: "tokyo_station", DestinationID: "hakone", DistanceKm: 92.5, DurationMinutes: 95, Polyline: tokyoHakonePolyline},
		{OriginID: "hakone", DestinationID: "kawaguchiko", DistanceKm: 47.5, DurationMinutes: 70, Polyline: hakoneKawaguchikoPolyline},
		{OriginID: "tokyo_station", DestinationID: "kawaguchiko", DistanceKm: 105.0, DurationMinutes: 110},
	}, nil)
}

// stubLLM は固定の応答を返すテスト用クライアント
type stubLLM struct {
	response string
	err      error
	messages []ai.Message
}

var _ ai.ChatClient = (*stubLLM)(nil)

func (s *stubLLM) Provider() ai.Provider { return ai.ProviderLocal }
func (s *stubLLM) IsAvailable() bool     { return true }
func (s *stubLLM) ModelName() string     { return "stub-model" }
func (s *stubLLM) ModelNameFast() string { return "stub-model-fast" }
func (s *stubLLM) Close() error          { return nil }

func (s *stubLLM) Chat(_ context.Context, messages []ai.Message, _ ai.ChatOptions) (string, error) {
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) ChatFast(ctx context.Context, messages []ai.Message, _ *float64) (string, error) {
	return s.Chat(ctx, messages, ai.ChatOptions{})
}

func (s *stubLLM) ChatStream(_ context.Context, messages []ai.Message, _ ai.ChatOptions) iter.Seq2[string, error] {
	s.messages = messages
	return func(yield func(string, error) bool) {
		if s.err != nil {
			yield("", s.err)
			return
		}
		for _, chunk := range strings.SplitAfter(s.response, "\n") {
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (s *stubLLM) HealthCheck(context.Context) ai.HealthStatus {
	return ai.HealthStatus{Provider: ai.ProviderLocal, Healthy: true}
}
