package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/rental-contracts/internal/model"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

type clientRow struct {
	ID                     uuid.UUID
	FullName               string
	Email                  string
	Phone                  string
	Address                string
	IDDocumentNumber       string
	IDDocumentIssuer       string
	DrivingLicenseNumber   string
	DrivingLicenseCategory string
	CompanyName            string
	NIP                    string `gorm:"column:nip"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (r clientRow) toModel() *model.Client {
	return &model.Client{
		ID: r.ID,
		Tenant: model.Tenant{
			FullName:               r.FullName,
			Email:                  r.Email,
			Phone:                  r.Phone,
			Address:                r.Address,
			IDDocumentNumber:       r.IDDocumentNumber,
			IDDocumentIssuer:       r.IDDocumentIssuer,
			DrivingLicenseNumber:   r.DrivingLicenseNumber,
			DrivingLicenseCategory: r.DrivingLicenseCategory,
			CompanyName:            r.CompanyName,
			NIP:                    r.NIP,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const clientColumns = `
	id,
	full_name,
	email,
	phone,
	address,
	id_document_number,
	id_document_issuer,
	driving_license_number,
	driving_license_category,
	company_name,
	nip,
	created_at,
	updated_at
`

// FindByEmail matches case-insensitively; the oldest client wins when several share an address.
func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	var row clientRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+clientColumns+`
		FROM clients
		WHERE lower(email) = lower(?)
		ORDER BY created_at ASC
		LIMIT 1
	`, email).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toModel(), nil
}

func (r *ClientRepository) Create(ctx context.Context, client *model.Client) error {
	var saved struct {
		ID        uuid.UUID
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	t := client.Tenant
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO clients (
			full_name,
			email,
			phone,
			address,
			id_document_number,
			id_document_issuer,
			driving_license_number,
			driving_license_category,
			company_name,
			nip
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at
	`,
		t.FullName,
		t.Email,
		t.Phone,
		t.Address,
		t.IDDocumentNumber,
		t.IDDocumentIssuer,
		t.DrivingLicenseNumber,
		t.DrivingLicenseCategory,
		t.CompanyName,
		t.NIP,
	).Scan(&saved).Error
	if err != nil {
		return err
	}

	client.ID = saved.ID
	client.CreatedAt = saved.CreatedAt
	client.UpdatedAt = saved.UpdatedAt
	return nil
}

// UpdateFields writes only the given columns. Keys are column names.
func (r *ClientRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	updates := make(map[string]any, len(fields)+1)
	for column, value := range fields {
		updates[column] = value
	}
	updates["updated_at"] = gorm.Expr("NOW()")

	result := r.db.WithContext(ctx).Table("clients").Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
