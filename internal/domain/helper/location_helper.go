package helper

import (
	"sort"
	"strings"

	"github.com/shokugyo/not-a-car/internal/domain/model"
)

// MatchesEither は a が b を含むか、b が a を含むかを大文字小文字を無視して判定する
func MatchesEither(a, b string) bool {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == "" || lb == "" {
		return false
	}
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// FindByNameSubstring は名前の部分一致（双方向）で最初に見つかった場所を返す
func FindByNameSubstring(locations []*model.Location, name string) *model.Location {
	for _, loc := range locations {
		if MatchesEither(loc.Name, name) {
			return loc
		}
	}
	return nil
}

// ExcludeLocations は指定IDの場所を除いたスライスを返す
func ExcludeLocations(locations []*model.Location, ids map[string]struct{}) []*model.Location {
	var result []*model.Location
	for _, loc := range locations {
		if _, ok := ids[loc.ID]; ok {
			continue
		}
		result = append(result, loc)
	}
	return result
}

// SortBySceneryScore は景観スコアの高い順にソートする。同点は元の順序を保つ
func SortBySceneryScore(locations []*model.Location) {
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].SceneryScore > locations[j].SceneryScore
	})
}

// NearbyFacilities は場所の設備一覧をコピーし、EV充電があれば追記する
func NearbyFacilities(loc *model.Location) []string {
	facilities := make([]string, 0, len(loc.Facilities)+1)
	facilities = append(facilities, loc.Facilities...)
	if loc.EVCharging && !containsString(facilities, model.FacilityEVCharging) {
		facilities = append(facilities, model.FacilityEVCharging)
	}
	return facilities
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
