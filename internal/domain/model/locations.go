package model

import "github.com/paulmach/orb"

// LocationType 場所の種別
type LocationType string

const (
	LocationTypeCity         LocationType = "city"          // 都市
	LocationTypeTown         LocationType = "town"          // 町
	LocationTypeStation      LocationType = "station"       // 駅
	LocationTypeOnsen        LocationType = "onsen"         // 温泉
	LocationTypeMichinoeki   LocationType = "michinoeki"    // 道の駅
	LocationTypeCamp         LocationType = "camp"          // キャンプ場
	LocationTypeRVPark       LocationType = "rv_park"       // RVパーク
	LocationTypeSAPA         LocationType = "sa_pa"         // サービスエリア・パーキングエリア
	LocationTypeScenic       LocationType = "scenic"        // 景勝地
	LocationTypeShrineTemple LocationType = "shrine_temple" // 神社仏閣
	LocationTypePark         LocationType = "park"          // 公園
	LocationTypeLake         LocationType = "lake"          // 湖
	LocationTypeMountain     LocationType = "mountain"      // 山
	LocationTypeBeach        LocationType = "beach"         // 海岸・ビーチ
	LocationTypeOther        LocationType = "other"         // その他
)

// Valid は定義済みの種別かどうかを返す
func (t LocationType) Valid() bool {
	_, ok := LocationTypeNameMap[t]
	return ok
}

// 騒音レベル
const (
	NoiseLevelLow    = "low"
	NoiseLevelMedium = "medium"
	NoiseLevelHigh   = "high"
)

// Location 座標キャッシュに載っている場所。ロード後は変更しない
type Location struct {
	ID         string       `json:"id"`         // 一意のID
	Name       string       `json:"name"`       // 場所の名前
	Lat        float64      `json:"lat"`        // 緯度
	Lng        float64      `json:"lng"`        // 経度
	Type       LocationType `json:"type"`       // 場所の種別
	Prefecture string       `json:"prefecture"` // 都道府県

	// 検索用
	Aliases    []string `json:"aliases"`
	Tags       []string `json:"tags"`
	Facilities []string `json:"facilities"`

	// RAG用の追加情報
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	BestSeason  string   `json:"best_season,omitempty"`
	Tips        string   `json:"tips,omitempty"`

	// 車中泊・EV関連
	EVCharging       bool    `json:"ev_charging"`
	OvernightParking bool    `json:"overnight_parking"`
	NoiseLevel       string  `json:"noise_level"`   // low/medium/high
	SceneryScore     float64 `json:"scenery_score"` // 1.0-5.0
}

// Point は orb.Point (lng, lat) を返す
func (l *Location) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// ApplyDefaults はデータセットで省略された値を補う。未知の種別は other として扱う
func (l *Location) ApplyDefaults() {
	if l.NoiseLevel == "" {
		l.NoiseLevel = NoiseLevelMedium
	}
	if l.SceneryScore == 0 {
		l.SceneryScore = 3.0
	}
	if !l.Type.Valid() {
		l.Type = LocationTypeOther
	}
}

// SearchResult 複合検索の結果
type SearchResult struct {
	Location     *Location `json:"location"`
	Score        float64   `json:"score"`
	MatchReasons []string  `json:"match_reasons"`
}

// SearchQuery 複合検索の条件。空のフィールドは無視される
type SearchQuery struct {
	PlaceNames    []string
	FacilityTypes []string
	Amenities     []string
	Atmosphere    []string
	Prefecture    string
	Limit         int
}
