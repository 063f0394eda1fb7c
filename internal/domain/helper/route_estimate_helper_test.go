package helper

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/shokugyo/not-a-car/internal/domain/model"
)

func TestEstimateRoadDistance(t *testing.T) {
	tokyo := orb.Point{139.7671, 35.6812}
	hakone := orb.Point{139.1069, 35.2324}

	// sqrt(0.4488^2 + 0.6602^2) * 111 * 1.3 ≈ 115.2
	assert.InDelta(t, 115.2, EstimateRoadDistance(tokyo, hakone), 0.05)
	assert.Equal(t, 0.0, EstimateRoadDistance(tokyo, tokyo))
}

func TestEstimateDurationMinutes(t *testing.T) {
	assert.Equal(t, 120, EstimateDurationMinutes(100))
	assert.Equal(t, 15, EstimateDurationMinutes(5), "最低15分")
}

func TestEstimateTollFee(t *testing.T) {
	assert.Equal(t, 0, EstimateTollFee(30))
	assert.Equal(t, 2500, EstimateTollFee(100))
}

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, 2500+1500, EstimateCost(2500, 100))
	assert.True(t, IsLongRange(100.1))
	assert.False(t, IsLongRange(100))
}

func TestParseDurationHint(t *testing.T) {
	tests := []struct {
		hint     string
		expected int
		ok       bool
	}{
		{"30分程度", 30, true},
		{"1時間", 60, true},
		{"2 時間くらい", 120, true},
		{"ゆっくり", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			minutes, ok := ParseDurationHint(tt.hint)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, minutes)
		})
	}
}

func TestNearbyFacilities(t *testing.T) {
	loc := &model.Location{Facilities: []string{"トイレ"}, EVCharging: true}
	assert.Equal(t, []string{"トイレ", model.FacilityEVCharging}, NearbyFacilities(loc))
	assert.Equal(t, []string{"トイレ"}, loc.Facilities, "元のスライスは変更しない")

	already := &model.Location{Facilities: []string{model.FacilityEVCharging}, EVCharging: true}
	assert.Equal(t, []string{model.FacilityEVCharging}, NearbyFacilities(already))
}

func TestMatchesEither(t *testing.T) {
	assert.True(t, MatchesEither("箱根湯本", "箱根"))
	assert.True(t, MatchesEither("箱根", "箱根湯本"))
	assert.True(t, MatchesEither("Hakone", "HAKONE"))
	assert.False(t, MatchesEither("", "箱根"))
	assert.False(t, MatchesEither("河口湖", "箱根"))
}
