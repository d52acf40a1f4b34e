package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/rental-contracts/internal/model"
)

type contractResponse struct {
	ID                       uuid.UUID               `json:"id"`
	ContractNumber           string                  `json:"contract_number"`
	ClientID                 uuid.UUID               `json:"client_id"`
	InquiryID                *uuid.UUID              `json:"inquiry_id,omitempty"`
	Tenant                   model.Tenant            `json:"tenant"`
	Vehicle                  model.VehicleSnapshot   `json:"vehicle"`
	AdditionalVehicles       []model.VehicleSnapshot `json:"additional_vehicles"`
	StartDate                string                  `json:"start_date"`
	EndDate                  string                  `json:"end_date"`
	Value                    decimal.Decimal         `json:"value"`
	FullPaymentAsReservation bool                    `json:"full_payment_as_reservation"`
	DepositOverride          *decimal.Decimal        `json:"deposit_override,omitempty"`
	Payments                 model.Payments          `json:"payments"`
	Status                   model.Status            `json:"status"`
	FolderName               string                  `json:"folder_name"`
	CreatedBy                string                  `json:"created_by,omitempty"`
	CreatedAt                time.Time               `json:"created_at"`
	UpdatedAt                time.Time               `json:"updated_at"`
}

func toContractResponse(c model.Contract) contractResponse {
	additional := c.AdditionalVehicles
	if additional == nil {
		additional = []model.VehicleSnapshot{}
	}
	return contractResponse{
		ID:                       c.ID,
		ContractNumber:           c.ContractNumber,
		ClientID:                 c.ClientID,
		InquiryID:                c.InquiryID,
		Tenant:                   c.Tenant,
		Vehicle:                  c.Vehicle,
		AdditionalVehicles:       additional,
		StartDate:                formatDate(c.StartDate),
		EndDate:                  formatDate(c.EndDate),
		Value:                    c.Value,
		FullPaymentAsReservation: c.FullPaymentAsReservation,
		DepositOverride:          c.DepositOverride,
		Payments:                 c.Payments,
		Status:                   c.Status,
		FolderName:               c.FolderName,
		CreatedBy:                c.CreatedBy,
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
	}
}

func toContractResponses(contracts []model.Contract) []contractResponse {
	result := make([]contractResponse, 0, len(contracts))
	for _, c := range contracts {
		result = append(result, toContractResponse(c))
	}
	return result
}

// formatDate renders the calendar date in the zone the time was stored with.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
