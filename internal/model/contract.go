package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusActive, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Contract struct {
	ID                       uuid.UUID
	ContractNumber           string
	ClientID                 uuid.UUID
	InquiryID                *uuid.UUID
	Tenant                   Tenant
	Vehicle                  VehicleSnapshot
	AdditionalVehicles       []VehicleSnapshot
	StartDate                time.Time
	EndDate                  time.Time
	Value                    decimal.Decimal
	FullPaymentAsReservation bool
	DepositOverride          *decimal.Decimal
	Payments                 Payments
	Status                   Status
	FolderName               string
	CreatedBy                string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Tenant is the renter identity copied onto a contract. The same field set lives
// on Client and is mirrored contract -> client when edited.
type Tenant struct {
	FullName               string `json:"full_name" validate:"required_without=CompanyName"`
	Email                  string `json:"email" validate:"required,email"`
	Phone                  string `json:"phone"`
	Address                string `json:"address"`
	IDDocumentNumber       string `json:"id_document_number"`
	IDDocumentIssuer       string `json:"id_document_issuer"`
	DrivingLicenseNumber   string `json:"driving_license_number"`
	DrivingLicenseCategory string `json:"driving_license_category"`
	CompanyName            string `json:"company_name"`
	NIP                    string `json:"nip"`
}

// DisplayName is used in notification payloads and folder names.
func (t Tenant) DisplayName() string {
	if t.FullName != "" {
		return t.FullName
	}
	return t.CompanyName
}

type Client struct {
	ID        uuid.UUID
	Tenant    Tenant
	CreatedAt time.Time
	UpdatedAt time.Time
}
