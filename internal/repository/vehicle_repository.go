package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/rental-contracts/internal/model"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// GetByIDs returns the vehicles in the order of ids. Unknown ids are skipped.
func (r *VehicleRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Vehicle, error) {
	if len(ids) == 0 {
		return []model.Vehicle{}, nil
	}

	var rows []struct {
		ID                   uuid.UUID
		Model                string
		Class                string
		VIN                  string `gorm:"column:vin"`
		Registration         string
		Premium              bool
		InspectionValidUntil *time.Time
		InsuranceValidUntil  *time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			model,
			class,
			vin,
			registration,
			premium,
			inspection_valid_until,
			insurance_valid_until
		FROM vehicles
		WHERE id IN ?
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Vehicle, len(rows))
	for _, row := range rows {
		byID[row.ID] = model.Vehicle{
			ID:                   row.ID,
			Model:                row.Model,
			Class:                row.Class,
			VIN:                  row.VIN,
			Registration:         row.Registration,
			Premium:              row.Premium,
			InspectionValidUntil: row.InspectionValidUntil,
			InsuranceValidUntil:  row.InsuranceValidUntil,
		}
	}

	vehicles := make([]model.Vehicle, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			vehicles = append(vehicles, v)
		}
	}
	return vehicles, nil
}
