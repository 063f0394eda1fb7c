package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/shokugyo/not-a-car/internal/domain/model"
)

// DefaultOSRMBaseURL は公開OSRMデモサーバー
const DefaultOSRMBaseURL = "https://router.project-osrm.org/route/v1/driving"

const osrmUserAgent = "not-a-car-precompute/1.0"

// OSRMProvider はOSRMのrouteサービスを使用した車ルート検索の実装。
// オフラインの事前計算でのみ使い、リクエスト処理の経路では呼ばない
type OSRMProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMProvider は新しいプロバイダを生成する
func NewOSRMProvider(baseURL string) *OSRMProvider {
	if baseURL == "" {
		baseURL = DefaultOSRMBaseURL
	}
	return &OSRMProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetDrivingRoute は2地点間の車ルートを取得する。距離はkm（小数1桁）、時間は分に丸める
func (o *OSRMProvider) GetDrivingRoute(ctx context.Context, origin, destination *model.Location) (*model.CachedRoute, error) {
	reqURL := o.buildURL(origin.Point(), destination.Point())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", osrmUserAgent)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status)
	}

	var apiResp osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
	}

	if apiResp.Code != "Ok" || len(apiResp.Routes) == 0 {
		return nil, errors.New("APIから有効なルートが返されませんでした")
	}

	r := apiResp.Routes[0]
	return &model.CachedRoute{
		OriginID:        origin.ID,
		DestinationID:   destination.ID,
		DistanceKm:      math.Round(r.Distance/1000*10) / 10,
		DurationMinutes: int(math.Round(r.Duration / 60)),
		Polyline:        r.Geometry,
		// ポリラインをデコードする代わりに始点と終点だけ保持する
		Waypoints: [][]float64{
			{origin.Lat, origin.Lng},
			{destination.Lat, destination.Lng},
		},
	}, nil
}

// buildURL はOSRMの座標順（経度,緯度）でURLを組み立てる
func (o *OSRMProvider) buildURL(origin, destination orb.Point) string {
	return fmt.Sprintf("%s/%f,%f;%f,%f?overview=simplified&geometries=polyline",
		o.baseURL, origin.Lon(), origin.Lat(), destination.Lon(), destination.Lat())
}

// --- OSRM APIのレスポンスをパースするための構造体 ---

type osrmRouteResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Routes  []osrmRoute `json:"routes"`
}
type osrmRoute struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Geometry string  `json:"geometry"`
}
