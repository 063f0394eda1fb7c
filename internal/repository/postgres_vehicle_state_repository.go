package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shokugyo/not-a-car/internal/domain/model"
	"github.com/shokugyo/not-a-car/internal/domain/repository"
	"github.com/shokugyo/not-a-car/internal/infrastructure/database"
)

type PostgresVehicleStateRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresVehicleStateRepository(client *database.PostgreSQLClient) repository.VehicleStateRepository {
	return &PostgresVehicleStateRepository{
		client: client,
	}
}

// vehicleStateRow はNULLを含みうる列を受け取るための構造体
type vehicleStateRow struct {
	ID           int64
	BatteryLevel sql.NullFloat64
	RangeKm      sql.NullFloat64
	CurrentMode  sql.NullString
	InteriorMode sql.NullString
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64
}

// toVehicleState NULLの列は既定の車両状態の値で埋める
func (r *vehicleStateRow) toVehicleState() *model.VehicleState {
	state := model.DefaultVehicleState(model.DefaultOrigin)
	state.VehicleID = r.ID
	if r.BatteryLevel.Valid {
		state.BatteryLevel = r.BatteryLevel.Float64
	}
	if r.RangeKm.Valid {
		state.RangeKm = r.RangeKm.Float64
	}
	if r.CurrentMode.Valid {
		state.CurrentMode = r.CurrentMode.String
	}
	if r.InteriorMode.Valid {
		state.InteriorMode = r.InteriorMode.String
	}
	if r.Latitude.Valid {
		state.Latitude = r.Latitude.Float64
	}
	if r.Longitude.Valid {
		state.Longitude = r.Longitude.Float64
	}
	return &state
}

const selectVehicleStateQuery = `SELECT id, battery_level, range_km, current_mode, interior_mode, latitude, longitude FROM vehicles WHERE id = $1 AND is_active = true`

func (r *PostgresVehicleStateRepository) GetVehicleState(ctx context.Context, vehicleID int64) (*model.VehicleState, error) {
	row := r.client.DB.QueryRowContext(ctx, selectVehicleStateQuery, vehicleID)

	var result vehicleStateRow
	err := row.Scan(&result.ID, &result.BatteryLevel, &result.RangeKm, &result.CurrentMode,
		&result.InteriorMode, &result.Latitude, &result.Longitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("車両状態の取得に失敗: %w", err)
	}

	return result.toVehicleState(), nil
}
