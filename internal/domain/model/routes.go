package model

import "time"

// CachedRoute 事前計算されたルート。(origin_id, destination_id) の有向ペアがキー
type CachedRoute struct {
	OriginID        string      `json:"origin_id"`
	DestinationID   string      `json:"destination_id"`
	DistanceKm      float64     `json:"distance_km"`      // 道路距離 (km)
	DurationMinutes int         `json:"duration_minutes"` // 所要時間 (分)
	Polyline        string      `json:"polyline"`         // エンコード済みポリライン
	Waypoints       [][]float64 `json:"waypoints"`        // [[lat, lng], ...]
}

// RouteFeatures ルート候補の特徴量（LLM評価の入力）
type RouteFeatures struct {
	ID                string    `json:"id"` // A, B, C...
	DestinationName   string    `json:"destination_name"`
	ETA               time.Time `json:"eta"`
	DistanceKm        float64   `json:"distance_km"`
	DurationMinutes   int       `json:"duration_minutes"`
	TollFee           int       `json:"toll_fee"` // 円
	ChargingAvailable bool      `json:"charging_available"`
	NoiseLevel        string    `json:"noise_level"`
	SceneryScore      float64   `json:"scenery_score"`
	NearbyFacilities  []string  `json:"nearby_facilities"`
	Polyline          string    `json:"polyline,omitempty"`

	// 候補選定の根拠（トレース用）
	MatchScore   float64  `json:"match_score"`
	MatchReasons []string `json:"match_reasons,omitempty"`
}

// UserRequest ユーザーの要望
type UserRequest struct {
	Text           string     `json:"text"`
	DesiredArrival *time.Time `json:"desired_arrival,omitempty"`
	Preferences    []string   `json:"preferences"`
}

// RoutingContext ルート評価でLLMに渡すコンテキスト
type RoutingContext struct {
	UserRequest     UserRequest     `json:"user_request"`
	CurrentTime     time.Time       `json:"current_time"`
	VehicleState    VehicleState    `json:"vehicle_state"`
	RouteCandidates []RouteFeatures `json:"route_candidates"` // 1〜10件
}

// MaxRouteCandidates 評価に渡せる候補の上限
const MaxRouteCandidates = 10

// RouteRecommendation LLMによる評価結果
type RouteRecommendation struct {
	Ranking          []string `json:"ranking"`
	RecommendedID    string   `json:"recommended_id"`
	Explanation      string   `json:"explanation"`
	Confidence       float64  `json:"confidence"` // 0.0-1.0
	FollowUpQuestion *string  `json:"follow_up_question,omitempty"`
	ReasoningSteps   []string `json:"reasoning_steps"`
}

// Coordinates リクエスト・レスポンスで使う座標
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultOrigin 出発地点が指定されない場合の座標（東京駅）
var DefaultOrigin = Coordinates{Latitude: 35.6812, Longitude: 139.7671}

// DefaultOriginID 事前計算ルートの既定の出発地点ID
const DefaultOriginID = "tokyo_station"

// SuggestRouteRequest ルート提案リクエスト
type SuggestRouteRequest struct {
	Query          string       `json:"query" binding:"required"`
	Origin         *Coordinates `json:"origin,omitempty"`
	DesiredArrival *time.Time   `json:"desired_arrival,omitempty"`
	Preferences    []string     `json:"preferences"`
	VehicleID      *int64       `json:"vehicle_id,omitempty"`
}

// RouteDestination 経由地・目的地の表示用情報
type RouteDestination struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Address           string  `json:"address"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Category          string  `json:"category"`
	EstimatedDuration int     `json:"estimatedDuration"`
}

// RouteWaypoint ルート上の1地点
type RouteWaypoint struct {
	Destination   RouteDestination `json:"destination"`
	ArrivalTime   string           `json:"arrivalTime"`
	DepartureTime *string          `json:"departureTime"`
	StayDuration  *int             `json:"stayDuration"`
}

// Route フロントエンド向けのルート
type Route struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Waypoints      []RouteWaypoint `json:"waypoints"`
	TotalDuration  int             `json:"totalDuration"`
	TotalDistance  float64         `json:"totalDistance"`
	EstimatedCost  int             `json:"estimatedCost"`
	Highlights     []string        `json:"highlights"`
	VehicleTypes   []string        `json:"vehicleTypes"`
	Polyline       string          `json:"polyline,omitempty"`
	Recommended    bool            `json:"recommended"`
	Recommendation string          `json:"recommendation,omitempty"`
}

// LLMStepMetadata 各LLMステップの処理情報
type LLMStepMetadata struct {
	StepName   string `json:"step_name"`
	ModelName  string `json:"model_name"`
	DurationMs int64  `json:"duration_ms"`
	Provider   string `json:"provider"`
}

// ProcessingMetadata 処理全体のメタデータ
type ProcessingMetadata struct {
	RequestID       string            `json:"request_id"`
	TotalDurationMs int64             `json:"total_duration_ms"`
	Steps           []LLMStepMetadata `json:"steps"`
	ReasoningSteps  []string          `json:"reasoning_steps"`
	Confidence      float64           `json:"confidence"`
	FollowUp        *string           `json:"follow_up_question,omitempty"`
}

// SuggestRouteResponse ルート提案レスポンス
type SuggestRouteResponse struct {
	Routes      []Route            `json:"routes"`
	Query       string             `json:"query"`
	GeneratedAt string             `json:"generatedAt"`
	Processing  ProcessingMetadata `json:"processing"`
}
