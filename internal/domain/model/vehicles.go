package model

// VehicleState ルート評価時点の車両状態
type VehicleState struct {
	VehicleID    int64   `json:"vehicle_id"`
	BatteryLevel float64 `json:"battery_level"` // %
	RangeKm      float64 `json:"range_km"`
	CurrentMode  string  `json:"current_mode"`
	InteriorMode string  `json:"interior_mode"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// DefaultVehicleState 車両が特定できない場合の既定状態
func DefaultVehicleState(origin Coordinates) VehicleState {
	return VehicleState{
		VehicleID:    0,
		BatteryLevel: 80.0,
		RangeKm:      300.0,
		CurrentMode:  "idle",
		InteriorMode: "standard",
		Latitude:     origin.Latitude,
		Longitude:    origin.Longitude,
	}
}
