package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nurpe/rental-contracts/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

type contractRow struct {
	ID                       uuid.UUID
	ContractNumber           string
	ClientID                 uuid.UUID
	InquiryID                *uuid.UUID
	Tenant                   datatypes.JSONType[model.Tenant]
	VehicleSnapshot          datatypes.JSONType[model.VehicleSnapshot]
	AdditionalVehicles       datatypes.JSONType[[]model.VehicleSnapshot]
	StartDate                time.Time
	EndDate                  time.Time
	Value                    decimal.Decimal
	FullPaymentAsReservation bool
	DepositOverride          decimal.NullDecimal
	Payments                 datatypes.JSONType[model.Payments]
	Status                   string
	FolderName               string
	CreatedBy                string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (r contractRow) toModel() model.Contract {
	c := model.Contract{
		ID:                       r.ID,
		ContractNumber:           r.ContractNumber,
		ClientID:                 r.ClientID,
		InquiryID:                r.InquiryID,
		Tenant:                   r.Tenant.Data(),
		Vehicle:                  r.VehicleSnapshot.Data(),
		AdditionalVehicles:       r.AdditionalVehicles.Data(),
		StartDate:                r.StartDate,
		EndDate:                  r.EndDate,
		Value:                    r.Value,
		FullPaymentAsReservation: r.FullPaymentAsReservation,
		Payments:                 r.Payments.Data(),
		Status:                   model.Status(r.Status),
		FolderName:               r.FolderName,
		CreatedBy:                r.CreatedBy,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
	}
	if r.DepositOverride.Valid {
		d := r.DepositOverride.Decimal
		c.DepositOverride = &d
	}
	return c
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func additionalVehicles(c *model.Contract) datatypes.JSONType[[]model.VehicleSnapshot] {
	vehicles := c.AdditionalVehicles
	if vehicles == nil {
		vehicles = []model.VehicleSnapshot{}
	}
	return datatypes.NewJSONType(vehicles)
}

const contractColumns = `
	id,
	contract_number,
	client_id,
	inquiry_id,
	tenant,
	vehicle_snapshot,
	additional_vehicles,
	start_date,
	end_date,
	value,
	full_payment_as_reservation,
	deposit_override,
	payments,
	status,
	folder_name,
	created_by,
	created_at,
	updated_at
`

// ContractNumbers returns every contract number that may belong to the
// (year, prefix) pool in either the seq/year/prefix or prefix/seq/year layout.
func (r *ContractRepository) ContractNumbers(ctx context.Context, year int, prefix string) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT contract_number
		FROM contracts
		WHERE contract_number ILIKE ?
			OR contract_number ILIKE ?
	`,
		fmt.Sprintf("%%/%d/%s", year, prefix),
		fmt.Sprintf("%s/%%/%d", prefix, year),
	).Scan(&numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// ListByNumberYear returns contracts whose number carries the given year in
// either layout. Callers parse the numbers to split them into pools.
func (r *ContractRepository) ListByNumberYear(ctx context.Context, year int) ([]model.Contract, error) {
	var rows []contractRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE contract_number LIKE ?
			OR contract_number LIKE ?
		ORDER BY created_at ASC
	`,
		fmt.Sprintf("%%/%d/%%", year),
		fmt.Sprintf("%%/%%/%d", year),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	contracts := make([]model.Contract, 0, len(rows))
	for _, row := range rows {
		contracts = append(contracts, row.toModel())
	}
	return contracts, nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var row contractRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	contract := row.toModel()
	return &contract, nil
}

// Create inserts the contract and fills in the storage-assigned id and timestamps.
func (r *ContractRepository) Create(ctx context.Context, c *model.Contract) error {
	var saved struct {
		ID        uuid.UUID
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO contracts (
			contract_number,
			client_id,
			inquiry_id,
			tenant,
			vehicle_snapshot,
			additional_vehicles,
			start_date,
			end_date,
			value,
			full_payment_as_reservation,
			deposit_override,
			payments,
			status,
			folder_name,
			created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at
	`,
		c.ContractNumber,
		c.ClientID,
		c.InquiryID,
		datatypes.NewJSONType(c.Tenant),
		datatypes.NewJSONType(c.Vehicle),
		additionalVehicles(c),
		c.StartDate,
		c.EndDate,
		c.Value,
		c.FullPaymentAsReservation,
		nullDecimal(c.DepositOverride),
		datatypes.NewJSONType(c.Payments),
		string(c.Status),
		c.FolderName,
		c.CreatedBy,
	).Scan(&saved).Error
	if err != nil {
		return err
	}
	if saved.ID == uuid.Nil {
		return fmt.Errorf("insert contract %s: no id returned", c.ContractNumber)
	}

	c.ID = saved.ID
	c.CreatedAt = saved.CreatedAt
	c.UpdatedAt = saved.UpdatedAt
	return nil
}

// Update rewrites the editable columns of a contract. Payments are stored as a whole.
func (r *ContractRepository) Update(ctx context.Context, c *model.Contract) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET
			tenant = ?,
			start_date = ?,
			end_date = ?,
			value = ?,
			full_payment_as_reservation = ?,
			deposit_override = ?,
			payments = ?,
			status = ?,
			updated_at = NOW()
		WHERE id = ?
	`,
		datatypes.NewJSONType(c.Tenant),
		c.StartDate,
		c.EndDate,
		c.Value,
		c.FullPaymentAsReservation,
		nullDecimal(c.DepositOverride),
		datatypes.NewJSONType(c.Payments),
		string(c.Status),
		c.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET status = ?, updated_at = NOW()
		WHERE id = ?
	`, string(status), id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContractRepository) UpdateFolderName(ctx context.Context, id uuid.UUID, folderName string) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET folder_name = ?, updated_at = NOW()
		WHERE id = ?
	`, folderName, id).Error
}
