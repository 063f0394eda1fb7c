package model

// LocationTypeNameMap は場所の種別から日本語名へのマッピング
var LocationTypeNameMap = map[LocationType]string{
	LocationTypeCity:         "都市",
	LocationTypeTown:         "町",
	LocationTypeStation:      "駅",
	LocationTypeOnsen:        "温泉",
	LocationTypeMichinoeki:   "道の駅",
	LocationTypeCamp:         "キャンプ場",
	LocationTypeRVPark:       "RVパーク",
	LocationTypeSAPA:         "サービスエリア・パーキングエリア",
	LocationTypeScenic:       "景勝地",
	LocationTypeShrineTemple: "神社仏閣",
	LocationTypePark:         "公園",
	LocationTypeLake:         "湖",
	LocationTypeMountain:     "山",
	LocationTypeBeach:        "海岸・ビーチ",
	LocationTypeOther:        "その他",
}

// GetLocationTypeJapaneseName は種別から日本語名を取得する
func GetLocationTypeJapaneseName(t LocationType) string {
	if name, ok := LocationTypeNameMap[t]; ok {
		return name
	}
	return string(t) // デフォルトはそのまま返す
}

// FacilityKeyword 施設種別の自然言語キーワードと場所種別の対応
type FacilityKeyword struct {
	Keyword string
	Type    LocationType
}

// FacilityTypeKeywords は施設種別キーワードの辞書。
// スライスにしているのはマッチ理由の順序を安定させるため
var FacilityTypeKeywords = []FacilityKeyword{
	{Keyword: "温泉", Type: LocationTypeOnsen},
	{Keyword: "道の駅", Type: LocationTypeMichinoeki},
	{Keyword: "キャンプ場", Type: LocationTypeCamp},
	{Keyword: "rvパーク", Type: LocationTypeRVPark},
	{Keyword: "サービスエリア", Type: LocationTypeSAPA},
	{Keyword: "sa", Type: LocationTypeSAPA},
	{Keyword: "pa", Type: LocationTypeSAPA},
	{Keyword: "神社", Type: LocationTypeShrineTemple},
	{Keyword: "寺", Type: LocationTypeShrineTemple},
	{Keyword: "公園", Type: LocationTypePark},
	{Keyword: "湖", Type: LocationTypeLake},
	{Keyword: "山", Type: LocationTypeMountain},
	{Keyword: "海", Type: LocationTypeBeach},
	{Keyword: "ビーチ", Type: LocationTypeBeach},
}

// NatureLocationTypes は「自然」系の雰囲気に合う場所種別
var NatureLocationTypes = map[LocationType]struct{}{
	LocationTypeCamp:     {},
	LocationTypeLake:     {},
	LocationTypeMountain: {},
	LocationTypeScenic:   {},
	LocationTypePark:     {},
}

// RouteIDs はルート候補に振るID。9件目以降は "R{i}"
var RouteIDs = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// 候補生成・整形で使う固定文言
const (
	FacilityEVCharging       = "EV充電"
	ViaPrefix                = "経由:"
	ReasonSceneryPadding     = "景観スコアによる補完"
	HighlightCharging        = "充電スポットあり"
	HighlightQuiet           = "静かな環境"
	HighlightGoodScenery     = "景観が良い"
	VehicleTypeStandard      = "standard"
	VehicleTypeLongRange     = "long_range"
	VehicleTypeAccommodation = "accommodation"
)
