package repository

import (
	"context"
	"errors"

	"github.com/shokugyo/not-a-car/internal/domain/model"
)

// ErrVehicleNotFound は指定された車両が存在しない場合のエラー
var ErrVehicleNotFound = errors.New("車両が見つかりません")

type VehicleStateRepository interface {
	GetVehicleState(ctx context.Context, vehicleID int64) (*model.VehicleState, error)
}
