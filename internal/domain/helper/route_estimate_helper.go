package helper

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	kmPerDegree        = 111.0
	roadFactor         = 1.3
	averageSpeedKmh    = 50.0
	minLegMinutes      = 15
	tollThresholdKm    = 30.0
	tollYenPerKm       = 25.0
	costYenPerKm       = 15.0
	UnresolvedLegKm    = 10.0
	UnresolvedLegMin   = 15
	longRangeThreshold = 100.0
)

// EstimateRoadDistance は緯度経度の平面距離に道路係数を掛けた概算距離 (km, 小数1桁) を返す
func EstimateRoadDistance(from, to orb.Point) float64 {
	straight := planar.Distance(from, to) * kmPerDegree
	return RoundTo1(straight * roadFactor)
}

// EstimateDurationMinutes は平均50km/hで走った場合の所要時間。最低15分
func EstimateDurationMinutes(distanceKm float64) int {
	minutes := int(distanceKm / averageSpeedKmh * 60)
	if minutes < minLegMinutes {
		return minLegMinutes
	}
	return minutes
}

// EstimateTollFee は30kmを超える場合に 25円/km で高速料金を概算する
func EstimateTollFee(distanceKm float64) int {
	if distanceKm > tollThresholdKm {
		return int(distanceKm * tollYenPerKm)
	}
	return 0
}

// EstimateCost は高速料金に 15円/km の走行コストを足した概算費用
func EstimateCost(tollFee int, distanceKm float64) int {
	return tollFee + int(distanceKm*costYenPerKm)
}

// IsLongRange は長距離ルートかどうか
func IsLongRange(distanceKm float64) bool {
	return distanceKm > longRangeThreshold
}

// RoundTo1 は小数1桁に丸める
func RoundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
