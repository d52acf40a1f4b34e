package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/rental-contracts/internal/lock"
	"github.com/nurpe/rental-contracts/internal/model"
	"github.com/nurpe/rental-contracts/internal/numbering"
	"github.com/nurpe/rental-contracts/internal/schedule"
)

type ContractService struct {
	contracts ContractStore
	clients   ClientStore
	vehicles  VehicleStore
	builder   *DraftBuilder
	allocator *numbering.Allocator
	calc      *schedule.Calculator
	locker    lock.Locker
	exporter  RegisterExporter
	log       zerolog.Logger
}

func NewContractService(
	contracts ContractStore,
	clients ClientStore,
	vehicles VehicleStore,
	calc *schedule.Calculator,
	locker lock.Locker,
	exporter RegisterExporter,
	log zerolog.Logger,
) *ContractService {
	allocator := numbering.NewAllocator(contracts)
	return &ContractService{
		contracts: contracts,
		clients:   clients,
		vehicles:  vehicles,
		builder:   NewDraftBuilder(allocator, calc),
		allocator: allocator,
		calc:      calc,
		locker:    locker,
		exporter:  exporter,
		log:       log.With().Str("component", "contracts").Logger(),
	}
}

type CreateInput struct {
	Tenant                   model.Tenant     `json:"tenant"`
	VehicleIDs               []uuid.UUID      `json:"vehicle_ids" validate:"min=1"`
	StartDate                time.Time        `json:"start_date" validate:"required"`
	EndDate                  time.Time        `json:"end_date" validate:"required,gtefield=StartDate"`
	Value                    *decimal.Decimal `json:"value" validate:"required"`
	FullPaymentAsReservation bool             `json:"full_payment_as_reservation"`
	DepositOverride          *decimal.Decimal `json:"deposit_override"`
	InquiryID                *uuid.UUID       `json:"inquiry_id"`
	CreatedBy                string           `json:"-"`
}

// Create validates the submission, allocates numbers under the pool locks,
// resolves the client and persists one contract per vehicle. A client created
// here is kept even when a later contract write fails.
func (s *ContractService) Create(ctx context.Context, input CreateInput) ([]model.Contract, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if err := requireNonNegative("value", input.Value); err != nil {
		return nil, err
	}
	if err := requireNonNegative("deposit_override", input.DepositOverride); err != nil {
		return nil, err
	}

	vehicleIDs := uniqueIDs(input.VehicleIDs)
	vehicles, err := s.vehicles.GetByIDs(ctx, vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	if len(vehicles) != len(vehicleIDs) {
		return nil, fmt.Errorf("%w: unknown vehicle selected", ErrValidation)
	}

	year := s.calc.Today().Year
	release, err := lock.AcquireAll(ctx, s.locker, poolKeys(year, vehicles))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationQueryFailed, err)
	}
	defer release()

	drafts, err := s.builder.Build(ctx, DraftRequest{
		Year:                     year,
		Tenant:                   input.Tenant,
		Vehicles:                 vehicles,
		StartDate:                input.StartDate,
		EndDate:                  input.EndDate,
		Value:                    input.Value,
		FullPaymentAsReservation: input.FullPaymentAsReservation,
		DepositOverride:          input.DepositOverride,
		InquiryID:                input.InquiryID,
		CreatedBy:                input.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	client, created, err := s.resolveClient(ctx, input.Tenant)
	if err != nil {
		return nil, fmt.Errorf("%w: client: %v", ErrPersist, err)
	}

	for i := range drafts {
		drafts[i].ClientID = client.ID
		if err := s.contracts.Create(ctx, &drafts[i]); err != nil {
			event := s.log.Error().Err(err).
				Str("contract_number", drafts[i].ContractNumber).
				Int("persisted_siblings", i)
			if created {
				event = event.Str("orphaned_client_id", client.ID.String())
			}
			event.Msg("contract persist failed")
			return nil, fmt.Errorf("%w: contract %s: %v", ErrPersist, drafts[i].ContractNumber, err)
		}
	}

	s.log.Info().
		Str("client_id", client.ID.String()).
		Bool("client_created", created).
		Int("contracts", len(drafts)).
		Str("first_number", drafts[0].ContractNumber).
		Msg("contracts created")
	return drafts, nil
}

func (s *ContractService) resolveClient(ctx context.Context, tenant model.Tenant) (*model.Client, bool, error) {
	existing, err := s.clients.FindByEmail(ctx, tenant.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	client := &model.Client{Tenant: tenant}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, false, err
	}
	return client, true, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return contract, nil
}

type PreviewInput struct {
	Value                    *decimal.Decimal `json:"value" validate:"required"`
	StartDate                *time.Time       `json:"start_date"`
	FullPaymentAsReservation bool             `json:"full_payment_as_reservation"`
	VehicleClass             string           `json:"vehicle_class"`
	Premium                  bool             `json:"premium"`
	DepositOverride          *decimal.Decimal `json:"deposit_override"`
}

// PreviewSchedule runs the calculator without touching storage.
func (s *ContractService) PreviewSchedule(input PreviewInput) (model.Payments, error) {
	if err := validateStruct(input); err != nil {
		return model.Payments{}, err
	}
	if err := requireNonNegative("value", input.Value); err != nil {
		return model.Payments{}, err
	}
	if err := requireNonNegative("deposit_override", input.DepositOverride); err != nil {
		return model.Payments{}, err
	}
	return s.calc.Compute(schedule.Input{
		Value:                    input.Value.Round(2),
		StartDate:                input.StartDate,
		FullPaymentAsReservation: input.FullPaymentAsReservation,
		VehicleClass:             input.VehicleClass,
		Premium:                  input.Premium,
		DepositOverride:          input.DepositOverride,
	}), nil
}

// PreviewNumber reports the number the next contract of the class would get.
// Nothing is reserved.
func (s *ContractService) PreviewNumber(ctx context.Context, vehicleClass string, year int) (string, error) {
	if year == 0 {
		year = s.calc.Today().Year
	}
	number, err := s.allocator.Allocate(ctx, vehicleClass, year)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAllocationQueryFailed, err)
	}
	return number.String(), nil
}

func poolKeys(year int, vehicles []model.Vehicle) []string {
	seen := make(map[string]struct{}, 2)
	keys := make([]string, 0, 2)
	for _, v := range vehicles {
		key := lock.PoolKey(year, string(numbering.PrefixFor(v.Class)))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
