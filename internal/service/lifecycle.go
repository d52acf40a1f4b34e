package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/rental-contracts/internal/dispatch"
	"github.com/nurpe/rental-contracts/internal/model"
	"github.com/nurpe/rental-contracts/internal/schedule"
)

type transition struct {
	from model.Status
	to   model.Status
}

type transitionEffect struct {
	confirm      bool
	activation   bool
	cancellation bool
}

// Every status may move to every other one. The table only decides which
// moves need confirmation and which trigger side effects.
var transitionEffects = buildTransitionEffects()

func buildTransitionEffects() map[transition]transitionEffect {
	table := make(map[transition]transitionEffect, len(model.Statuses)*len(model.Statuses))
	for _, from := range model.Statuses {
		for _, to := range model.Statuses {
			if from == to {
				continue
			}
			var effect transitionEffect
			switch to {
			case model.StatusActive:
				effect = transitionEffect{confirm: true, activation: true}
			case model.StatusCancelled:
				effect = transitionEffect{confirm: true, cancellation: true}
			case model.StatusCompleted:
				effect = transitionEffect{confirm: true}
			}
			table[transition{from: from, to: to}] = effect
		}
	}
	return table
}

func effectFor(from, to model.Status) transitionEffect {
	return transitionEffects[transition{from: from, to: to}]
}

// RequiresConfirmation reports whether moving between the two statuses needs
// an explicit operator confirmation.
func RequiresConfirmation(from, to model.Status) bool {
	return effectFor(from, to).confirm
}

type LifecycleService struct {
	contracts ContractStore
	clients   ClientStore
	effects   SideEffects
	calc      *schedule.Calculator
	log       zerolog.Logger
}

func NewLifecycleService(
	contracts ContractStore,
	clients ClientStore,
	effects SideEffects,
	calc *schedule.Calculator,
	log zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		contracts: contracts,
		clients:   clients,
		effects:   effects,
		calc:      calc,
		log:       log.With().Str("component", "lifecycle").Logger(),
	}
}

type StatusChangeInput struct {
	ContractID uuid.UUID
	Status     model.Status
	Confirmed  bool
	Tenant     *TenantPatch
}

// ChangeStatus is the "confirm status change" flow. The new status is
// committed before any side effect runs and side effects never undo it.
func (s *LifecycleService) ChangeStatus(ctx context.Context, input StatusChangeInput) (*model.Contract, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}

	contract, err := s.load(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}

	changed, err := s.applyTenant(contract, input.Tenant)
	if err != nil {
		return nil, err
	}

	prior := contract.Status
	effect := effectFor(prior, input.Status)
	if effect.confirm && !input.Confirmed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrConfirmationRequired, prior, input.Status)
	}
	if prior == input.Status && len(changed) == 0 {
		return contract, nil
	}
	contract.Status = input.Status

	if len(changed) > 0 {
		err = s.contracts.Update(ctx, contract)
	} else {
		err = s.contracts.UpdateStatus(ctx, contract.ID, contract.Status)
	}
	if err != nil {
		return nil, persistError(err)
	}

	s.afterCommit(ctx, contract, prior, effect, changed)
	return contract, nil
}

type UpdateInput struct {
	ContractID               uuid.UUID
	Tenant                   *TenantPatch
	Value                    *decimal.Decimal
	StartDate                *time.Time
	EndDate                  *time.Time
	FullPaymentAsReservation *bool
	DepositOverride          *decimal.Decimal
	ClearDepositOverride     bool
	Payments                 *model.Payments
	Status                   *model.Status
	Confirmed                bool
}

// Update is the "save" flow. A change of value, start date or the
// full-reservation flag replaces the payments wholesale and discards any
// operator payment edits, including ones sent in the same request.
func (s *LifecycleService) Update(ctx context.Context, input UpdateInput) (*model.Contract, error) {
	if err := requireNonNegative("value", input.Value); err != nil {
		return nil, err
	}
	if err := requireNonNegative("deposit_override", input.DepositOverride); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *input.Status)
	}
	if input.Payments != nil {
		if err := validatePayments(*input.Payments); err != nil {
			return nil, err
		}
	}

	contract, err := s.load(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	prior := contract.Status

	recompute := (input.Value != nil && !input.Value.Round(2).Equal(contract.Value)) ||
		(input.StartDate != nil && !input.StartDate.Equal(contract.StartDate)) ||
		(input.FullPaymentAsReservation != nil && *input.FullPaymentAsReservation != contract.FullPaymentAsReservation)
	touchesTerms := recompute ||
		(input.EndDate != nil && !input.EndDate.Equal(contract.EndDate)) ||
		input.Payments != nil ||
		depositOverrideChanged(contract.DepositOverride, input.DepositOverride, input.ClearDepositOverride)
	if touchesTerms && prior != model.StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotEditable, prior)
	}

	if input.Value != nil {
		contract.Value = input.Value.Round(2)
	}
	if input.StartDate != nil {
		contract.StartDate = input.StartDate.In(s.calc.Location())
	}
	if input.EndDate != nil {
		contract.EndDate = input.EndDate.In(s.calc.Location())
	}
	if contract.EndDate.Before(contract.StartDate) {
		return nil, fmt.Errorf("%w: end date must not precede start date", ErrValidation)
	}
	if input.FullPaymentAsReservation != nil {
		contract.FullPaymentAsReservation = *input.FullPaymentAsReservation
	}
	if input.ClearDepositOverride {
		contract.DepositOverride = nil
	} else if input.DepositOverride != nil {
		d := *input.DepositOverride
		contract.DepositOverride = &d
	}

	switch {
	case recompute:
		if input.Payments != nil {
			s.log.Debug().Str("contract_id", contract.ID.String()).Msg("operator payment edits discarded by recompute")
		}
		contract.Payments = s.recompute(*contract)
	case input.Payments != nil:
		contract.Payments = *input.Payments
	}

	changed, err := s.applyTenant(contract, input.Tenant)
	if err != nil {
		return nil, err
	}

	effect := transitionEffect{}
	if input.Status != nil && *input.Status != prior {
		effect = effectFor(prior, *input.Status)
		if effect.confirm && !input.Confirmed {
			return nil, fmt.Errorf("%w: %s -> %s", ErrConfirmationRequired, prior, *input.Status)
		}
		contract.Status = *input.Status
	}

	if err := s.contracts.Update(ctx, contract); err != nil {
		return nil, persistError(err)
	}

	s.afterCommit(ctx, contract, prior, effect, changed)
	return contract, nil
}

func (s *LifecycleService) recompute(c model.Contract) model.Payments {
	start := c.StartDate
	return s.calc.Compute(schedule.Input{
		Value:                    c.Value,
		StartDate:                &start,
		FullPaymentAsReservation: c.FullPaymentAsReservation,
		VehicleClass:             c.Vehicle.Class,
		Premium:                  c.Vehicle.Premium,
		DepositOverride:          c.DepositOverride,
	})
}

var protocolEvents = map[string]dispatch.Event{
	"handover":       dispatch.EventHandover,
	"return":         dispatch.EventReturn,
	"deposit_refund": dispatch.EventDepositRefund,
}

// DispatchProtocolEvent forwards a handover, return or deposit refund
// notification for the contract.
func (s *LifecycleService) DispatchProtocolEvent(ctx context.Context, contractID uuid.UUID, kind string) error {
	event, ok := protocolEvents[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return fmt.Errorf("%w: unknown event %q", ErrValidation, kind)
	}
	contract, err := s.load(ctx, contractID)
	if err != nil {
		return err
	}
	s.effects.Protocol(ctx, event, *contract)
	return nil
}

func (s *LifecycleService) afterCommit(ctx context.Context, c *model.Contract, prior model.Status, effect transitionEffect, changed []TenantField) {
	if c.Status != prior {
		s.log.Info().
			Str("contract_id", c.ID.String()).
			Str("contract_number", c.ContractNumber).
			Str("from", string(prior)).
			Str("to", string(c.Status)).
			Msg("contract status changed")
	}

	if effect.activation {
		s.effects.Activated(ctx, *c)
	}
	if effect.cancellation {
		s.effects.Cancelled(ctx, *c, prior)
		if name, ok := s.effects.RenameCancelled(ctx, *c); ok {
			if err := s.contracts.UpdateFolderName(context.WithoutCancel(ctx), c.ID, name); err != nil {
				s.log.Warn().Err(err).
					Str("contract_id", c.ID.String()).
					Str("effect", "folder_name_store").
					Msg("side effect failed")
			} else {
				c.FolderName = name
			}
		}
	}

	s.mirrorTenantFieldsToClient(ctx, *c, changed)
}

func (s *LifecycleService) applyTenant(c *model.Contract, patch *TenantPatch) ([]TenantField, error) {
	if patch == nil {
		return nil, nil
	}
	if patch.Email != nil {
		if err := validateEmail(*patch.Email); err != nil {
			return nil, err
		}
	}
	return patch.apply(&c.Tenant), nil
}

func (s *LifecycleService) load(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return contract, nil
}

func validatePayments(p model.Payments) error {
	lines := []*model.PaymentLine{&p.Reservation, &p.Deposit, p.Main}
	for _, line := range lines {
		if line == nil {
			continue
		}
		if line.Amount.IsNegative() {
			return fmt.Errorf("%w: payment amount must not be negative", ErrValidation)
		}
	}
	return nil
}

func persistError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrPersist, err)
}

// depositOverrideChanged reports whether the request moves the stored override.
func depositOverrideChanged(current, next *decimal.Decimal, clear bool) bool {
	if clear {
		return current != nil
	}
	if next == nil {
		return false
	}
	return current == nil || !current.Equal(*next)
}
