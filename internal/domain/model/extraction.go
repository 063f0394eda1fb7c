package model

import "sort"

// WaypointType 経由地の種類
type WaypointType string

const (
	WaypointTypeRequired WaypointType = "required" // 必須経由（「〜経由で」「〜を通って」）
	WaypointTypeOptional WaypointType = "optional" // 寄り道希望（「できれば」「時間があれば」）
	WaypointTypeFinal    WaypointType = "final"    // 最終目的地
)

// ExtractedWaypoint LLMが抽出した経由地
type ExtractedWaypoint struct {
	Name         string       `json:"name"`
	Type         WaypointType `json:"type"`
	Order        int          `json:"order"`                   // 訪問順序（0から開始）
	Purpose      *string      `json:"purpose,omitempty"`       // 立ち寄り目的（例: 休憩, 観光）
	DurationHint *string      `json:"duration_hint,omitempty"` // 滞在時間のヒント（例: 30分程度）
}

// DestinationExtraction ユーザークエリから抽出した目的地情報
type DestinationExtraction struct {
	Waypoints          []ExtractedWaypoint `json:"waypoints"`
	FacilityTypes      []string            `json:"facility_types"`
	Amenities          []string            `json:"amenities"`
	Atmosphere         []string            `json:"atmosphere"`
	Activities         []string            `json:"activities"`
	TimeConstraints    *string             `json:"time_constraints,omitempty"`
	DistancePreference *string             `json:"distance_preference,omitempty"`
	OriginalQuery      string              `json:"original_query"`
}

// NewEmptyExtraction はパース失敗時などに使う空の抽出結果を返す
func NewEmptyExtraction(query string) DestinationExtraction {
	return DestinationExtraction{
		Waypoints:     []ExtractedWaypoint{},
		FacilityTypes: []string{},
		Amenities:     []string{},
		Atmosphere:    []string{},
		Activities:    []string{},
		OriginalQuery: query,
	}
}

// PlaceNames は経由地の名前を順序通りに返す
func (e *DestinationExtraction) PlaceNames() []string {
	names := make([]string, 0, len(e.Waypoints))
	for _, wp := range e.SortedWaypoints() {
		names = append(names, wp.Name)
	}
	return names
}

// SortedWaypoints は order 昇順に並べた経由地のコピーを返す
func (e *DestinationExtraction) SortedWaypoints() []ExtractedWaypoint {
	sorted := make([]ExtractedWaypoint, len(e.Waypoints))
	copy(sorted, e.Waypoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// FinalWaypoint は最終目的地を返す。type=final を優先し、なければ order が最大のもの
func (e *DestinationExtraction) FinalWaypoint() (ExtractedWaypoint, bool) {
	sorted := e.SortedWaypoints()
	if len(sorted) == 0 {
		return ExtractedWaypoint{}, false
	}
	for _, wp := range sorted {
		if wp.Type == WaypointTypeFinal {
			return wp, true
		}
	}
	return sorted[len(sorted)-1], true
}

// IntermediateWaypoints は最終目的地以外の経由地を順序通りに返す
func (e *DestinationExtraction) IntermediateWaypoints() []ExtractedWaypoint {
	final, ok := e.FinalWaypoint()
	if !ok {
		return nil
	}
	var result []ExtractedWaypoint
	for _, wp := range e.SortedWaypoints() {
		if wp.Order == final.Order {
			continue
		}
		result = append(result, wp)
	}
	return result
}
