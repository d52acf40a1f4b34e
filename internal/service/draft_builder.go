package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/rental-contracts/internal/model"
	"github.com/nurpe/rental-contracts/internal/numbering"
	"github.com/nurpe/rental-contracts/internal/schedule"
)

// DraftBuilder turns one operator submission into persistable contracts. It
// allocates numbers and computes schedules but never writes anything.
type DraftBuilder struct {
	allocator *numbering.Allocator
	calc      *schedule.Calculator
}

func NewDraftBuilder(allocator *numbering.Allocator, calc *schedule.Calculator) *DraftBuilder {
	return &DraftBuilder{allocator: allocator, calc: calc}
}

type DraftRequest struct {
	Year                     int
	Tenant                   model.Tenant
	Vehicles                 []model.Vehicle
	StartDate                time.Time
	EndDate                  time.Time
	Value                    *decimal.Decimal
	FullPaymentAsReservation bool
	DepositOverride          *decimal.Decimal
	InquiryID                *uuid.UUID
	CreatedBy                string
}

// Build returns one draft per vehicle. Every draft of a multi-vehicle
// submission carries the reservation and main amounts of the shared total;
// only the deposit follows the vehicle's own class.
func (b *DraftBuilder) Build(ctx context.Context, req DraftRequest) ([]model.Contract, error) {
	if len(req.Vehicles) == 0 {
		return nil, fmt.Errorf("%w: at least one vehicle must be selected", ErrValidation)
	}
	if req.Value == nil {
		return nil, fmt.Errorf("%w: total value is required", ErrValidation)
	}
	if err := requireNonNegative("total value", req.Value); err != nil {
		return nil, err
	}
	if err := requireNonNegative("deposit", req.DepositOverride); err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: rental window is required", ErrValidation)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date must not precede start date", ErrValidation)
	}

	year := req.Year
	if year == 0 {
		year = b.calc.Today().Year
	}

	batch, err := b.allocator.NewBatch(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationQueryFailed, err)
	}

	value := req.Value.Round(2)
	snapshots := make([]model.VehicleSnapshot, len(req.Vehicles))
	for i, v := range req.Vehicles {
		snapshots[i] = v.Snapshot()
	}

	drafts := make([]model.Contract, 0, len(req.Vehicles))
	for i, vehicle := range req.Vehicles {
		number := batch.Next(vehicle.Class)
		start := req.StartDate
		payments := b.calc.Compute(schedule.Input{
			Value:                    value,
			StartDate:                &start,
			FullPaymentAsReservation: req.FullPaymentAsReservation,
			VehicleClass:             vehicle.Class,
			Premium:                  vehicle.Premium,
			DepositOverride:          req.DepositOverride,
		})

		drafts = append(drafts, model.Contract{
			ContractNumber:           number.String(),
			InquiryID:                req.InquiryID,
			Tenant:                   req.Tenant,
			Vehicle:                  snapshots[i],
			AdditionalVehicles:       siblings(snapshots, i),
			StartDate:                req.StartDate.In(b.calc.Location()),
			EndDate:                  req.EndDate.In(b.calc.Location()),
			Value:                    value,
			FullPaymentAsReservation: req.FullPaymentAsReservation,
			DepositOverride:          req.DepositOverride,
			Payments:                 payments,
			Status:                   model.StatusPending,
			FolderName:               folderName(number.String(), req.Tenant.DisplayName()),
			CreatedBy:                req.CreatedBy,
		})
	}
	return drafts, nil
}

// siblings lists the other vehicles of the same submission, in submission order.
func siblings(all []model.VehicleSnapshot, self int) []model.VehicleSnapshot {
	if len(all) < 2 {
		return nil
	}
	others := make([]model.VehicleSnapshot, 0, len(all)-1)
	for i, s := range all {
		if i != self {
			others = append(others, s)
		}
	}
	return others
}
