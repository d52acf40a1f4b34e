package schedule

import (
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/nurpe/rental-contracts/internal/model"
)

const (
	reservationDueDays = 2
	mainDueDaysBefore  = 14
)

var (
	reservationShare = decimal.RequireFromString("0.30")
	mainShare        = decimal.RequireFromString("0.70")

	depositTrailer       = decimal.NewFromInt(3000)
	depositCamperPremium = decimal.NewFromInt(8000)
	depositCamper        = decimal.NewFromInt(5000)
)

type Input struct {
	Value                    decimal.Decimal
	StartDate                *time.Time
	FullPaymentAsReservation bool
	VehicleClass             string
	Premium                  bool
	DepositOverride          *decimal.Decimal
}

type Calculator struct {
	loc         *time.Location
	bankAccount string
	now         func() time.Time
}

func NewCalculator(loc *time.Location, bankAccount string) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{loc: loc, bankAccount: bankAccount, now: time.Now}
}

// WithClock returns a copy of the calculator that reads "today" from now.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Calculator) Location() *time.Location {
	return c.loc
}

func (c *Calculator) Today() model.Date {
	return model.DateIn(c.now(), c.loc)
}

// Compute derives the full payment schedule. Amounts are rounded half-up at the
// point of computation and each one is derived from the raw value.
func (c *Calculator) Compute(in Input) model.Payments {
	reservationDue := c.Today().AddDays(reservationDueDays)

	var startDay *model.Date
	if in.StartDate != nil && !in.StartDate.IsZero() {
		d := model.DateIn(*in.StartDate, c.loc)
		startDay = &d
	}

	payments := model.Payments{
		Reservation: model.PaymentLine{
			DueDate:     &reservationDue,
			BankAccount: c.bankAccount,
		},
		Deposit: model.PaymentLine{
			Amount:      DepositFor(in.VehicleClass, in.Premium, in.DepositOverride),
			DueDate:     startDay,
			BankAccount: c.bankAccount,
		},
	}

	if in.FullPaymentAsReservation {
		payments.Reservation.Amount = in.Value
		return payments
	}

	payments.Reservation.Amount = round2(in.Value.Mul(reservationShare))
	main := model.PaymentLine{
		Amount:      round2(in.Value.Mul(mainShare)),
		BankAccount: c.bankAccount,
	}
	if startDay != nil {
		due := startDay.AddDays(-mainDueDaysBefore)
		main.DueDate = &due
	}
	payments.Main = &main
	return payments
}

// DepositFor returns the operator override when set, otherwise the class default.
func DepositFor(vehicleClass string, premium bool, override *decimal.Decimal) decimal.Decimal {
	if override != nil {
		return *override
	}
	if model.KindOf(vehicleClass) == model.VehicleKindTrailer {
		return depositTrailer
	}
	if premium {
		return depositCamperPremium
	}
	return depositCamper
}

// round2 rounds half-up; amounts are never negative here so half-away-from-zero
// and half-up coincide.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
