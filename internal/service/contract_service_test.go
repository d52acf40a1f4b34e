package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/rental-contracts/internal/lock"
	"github.com/nurpe/rental-contracts/internal/model"
)

type serviceFixture struct {
	contracts *fakeContractStore
	clients   *fakeClientStore
	vehicles  *fakeVehicleStore
	exporter  *fakeExporter
	svc       *ContractService
}

func newServiceFixture(vehicles ...model.Vehicle) *serviceFixture {
	f := &serviceFixture{
		contracts: newFakeContractStore(),
		clients:   &fakeClientStore{},
		vehicles:  newFakeVehicleStore(vehicles...),
		exporter:  &fakeExporter{},
	}
	f.svc = NewContractService(f.contracts, f.clients, f.vehicles, testCalculator(), lock.NewMemoryLocker(time.Second), f.exporter, zerolog.Nop())
	return f
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func createInput(value string, vehicles ...model.Vehicle) CreateInput {
	ids := make([]uuid.UUID, len(vehicles))
	for i, v := range vehicles {
		ids[i] = v.ID
	}
	return CreateInput{
		Tenant: model.Tenant{
			FullName: "Jan Kowalski",
			Email:    "jan.kowalski@example.com",
			Phone:    "+48 600 100 200",
		},
		VehicleIDs: ids,
		StartDate:  time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 6, 29, 10, 0, 0, 0, time.UTC),
		Value:      dec(value),
		CreatedBy:  "operator@example.com",
	}
}

func TestCreate_SingleVehicle(t *testing.T) {
	v := camper(false)
	f := newServiceFixture(v)

	contracts, err := f.svc.Create(context.Background(), createInput("10000", v))
	require.NoError(t, err)
	require.Len(t, contracts, 1)

	c := contracts[0]
	assert.Equal(t, "1/2026/K", c.ContractNumber)
	assert.Equal(t, model.StatusPending, c.Status)
	assert.Equal(t, v.ID, c.Vehicle.VehicleID)
	assert.Empty(t, c.AdditionalVehicles)
	assert.Equal(t, "1-2026-K_Jan-Kowalski", c.FolderName)
	assert.Equal(t, "operator@example.com", c.CreatedBy)

	assert.True(t, c.Payments.Reservation.Amount.Equal(decimal.RequireFromString("3000")))
	require.NotNil(t, c.Payments.Main)
	assert.True(t, c.Payments.Main.Amount.Equal(decimal.RequireFromString("7000")))
	assert.True(t, c.Payments.Deposit.Amount.Equal(decimal.RequireFromString("5000")))
	require.NotNil(t, c.Payments.Reservation.DueDate)
	assert.Equal(t, "2026-03-12", c.Payments.Reservation.DueDate.String())

	require.Len(t, f.clients.created, 1)
	assert.Equal(t, f.clients.created[0].ID, c.ClientID)
	assert.Len(t, f.contracts.created, 1)
}

func TestCreate_MultiVehicleSharesScheduleAndNumbersSequentially(t *testing.T) {
	a, b, c := camper(false), camper(true), camper(false)
	f := newServiceFixture(a, b, c)
	f.contracts.existing = []string{"4/2026/K", "9/2026/P"}

	contracts, err := f.svc.Create(context.Background(), createInput("9000", a, b, c))
	require.NoError(t, err)
	require.Len(t, contracts, 3)

	assert.Equal(t, "5/2026/K", contracts[0].ContractNumber)
	assert.Equal(t, "6/2026/K", contracts[1].ContractNumber)
	assert.Equal(t, "7/2026/K", contracts[2].ContractNumber)
	assert.Equal(t, 2, f.contracts.numberCalls, "each pool is read once per submission")

	for _, contract := range contracts {
		assert.True(t, contract.Payments.Reservation.Amount.Equal(decimal.RequireFromString("2700")))
		assert.True(t, contract.Payments.Main.Amount.Equal(decimal.RequireFromString("6300")))
		assert.Len(t, contract.AdditionalVehicles, 2)
		assert.Equal(t, contracts[0].ClientID, contract.ClientID)
	}
	assert.True(t, contracts[0].Payments.Deposit.Amount.Equal(decimal.RequireFromString("5000")))
	assert.True(t, contracts[1].Payments.Deposit.Amount.Equal(decimal.RequireFromString("8000")))

	assert.Equal(t, b.ID, contracts[0].AdditionalVehicles[0].VehicleID)
	assert.Equal(t, c.ID, contracts[0].AdditionalVehicles[1].VehicleID)
	assert.Len(t, f.clients.created, 1)
}

func TestCreate_MixedClassesUseSeparatePools(t *testing.T) {
	k, p := camper(false), trailer()
	f := newServiceFixture(k, p)
	f.contracts.existing = []string{"3/2026/K", "K/8/2026", "2/2026/P"}

	contracts, err := f.svc.Create(context.Background(), createInput("4000", k, p))
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, "9/2026/K", contracts[0].ContractNumber)
	assert.Equal(t, "3/2026/P", contracts[1].ContractNumber)
	assert.True(t, contracts[1].Payments.Deposit.Amount.Equal(decimal.RequireFromString("3000")))
}

func TestCreate_FullPaymentAsReservation(t *testing.T) {
	v := camper(false)
	f := newServiceFixture(v)
	input := createInput("1234.5", v)
	input.FullPaymentAsReservation = true

	contracts, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, contracts[0].Payments.Main)
	assert.True(t, contracts[0].Payments.Reservation.Amount.Equal(decimal.RequireFromString("1234.50")))
}

func TestCreate_DepositOverrideAppliesToEveryVehicle(t *testing.T) {
	a, b := camper(true), trailer()
	f := newServiceFixture(a, b)
	input := createInput("5000", a, b)
	input.DepositOverride = dec("1500")

	contracts, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	for _, c := range contracts {
		assert.True(t, c.Payments.Deposit.Amount.Equal(decimal.RequireFromString("1500")))
	}
}

func TestCreate_AllocationFailureWritesNothing(t *testing.T) {
	v := camper(false)
	f := newServiceFixture(v)
	f.contracts.numbersErr = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), createInput("1000", v))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocationQueryFailed)
	assert.Empty(t, f.clients.created)
	assert.Empty(t, f.contracts.created)
}

func TestCreate_ValidationErrors(t *testing.T) {
	v := camper(false)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{name: "no vehicles", mutate: func(in *CreateInput) { in.VehicleIDs = nil }},
		{name: "unknown vehicle", mutate: func(in *CreateInput) { in.VehicleIDs = []uuid.UUID{uuid.New()} }},
		{name: "missing value", mutate: func(in *CreateInput) { in.Value = nil }},
		{name: "negative value", mutate: func(in *CreateInput) { in.Value = dec("-1") }},
		{name: "negative deposit", mutate: func(in *CreateInput) { in.DepositOverride = dec("-100") }},
		{name: "invalid email", mutate: func(in *CreateInput) { in.Tenant.Email = "not-an-email" }},
		{name: "no tenant name", mutate: func(in *CreateInput) { in.Tenant.FullName = "" }},
		{name: "end before start", mutate: func(in *CreateInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(v)
			input := createInput("1000", v)
			tt.mutate(&input)

			_, err := f.svc.Create(context.Background(), input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, f.contracts.numberCalls)
			assert.Empty(t, f.clients.created)
		})
	}
}

func TestCreate_CompanyTenantWithoutPersonName(t *testing.T) {
	v := camper(false)
	f := newServiceFixture(v)
	input := createInput("1000", v)
	input.Tenant.FullName = ""
	input.Tenant.CompanyName = "Kampery Sp. z o.o."

	contracts, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "1-2026-K_Kampery-Sp-z-o-o", contracts[0].FolderName)
}

func TestCreate_ReusesClientByEmailCaseInsensitively(t *testing.T) {
	v := camper(false)
	f := newServiceFixture(v)
	existing := &model.Client{ID: uuid.New(), Tenant: model.Tenant{FullName: "Jan Kowalski", Email: "JAN.Kowalski@Example.com"}}
	f.clients.clients = []*model.Client{existing}

	contracts, err := f.svc.Create(context.Background(), createInput("1000", v))
	require.NoError(t, err)
	assert.Equal(t, existing.ID, contracts[0].ClientID)
	assert.Empty(t, f.clients.created)
}

func TestCreate_PersistFailureLeavesClient(t *testing.T) {
	a, b := camper(false), camper(false)
	f := newServiceFixture(a, b)
	f.contracts.createErrAt = 1
	f.contracts.createErr = errors.New("deadlock detected")

	_, err := f.svc.Create(context.Background(), createInput("2000", a, b))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Len(t, f.clients.created, 1)
	require.Len(t, f.contracts.created, 1)
	assert.Equal(t, "1/2026/K", f.contracts.created[0].ContractNumber)
}

func TestCreate_ClientLookupFailure(t *testing.T) {
	v := camper(false)
	f := newServiceFixture(v)
	f.clients.findErr = errors.New("timeout")

	_, err := f.svc.Create(context.Background(), createInput("1000", v))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Empty(t, f.contracts.created)
}

func TestCreate_DuplicateVehicleIDsCollapse(t *testing.T) {
	v := camper(false)
	f := newServiceFixture(v)
	input := createInput("1000", v)
	input.VehicleIDs = []uuid.UUID{v.ID, v.ID}

	contracts, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, contracts, 1)
}

func TestGet_NotFound(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreviewSchedule(t *testing.T) {
	f := newServiceFixture()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	payments, err := f.svc.PreviewSchedule(PreviewInput{
		Value:        dec("1000.005"),
		StartDate:    &start,
		VehicleClass: "Przyczepa",
	})
	require.NoError(t, err)
	assert.True(t, payments.Reservation.Amount.Add(payments.Main.Amount).Equal(decimal.RequireFromString("1000.01")))
	assert.True(t, payments.Deposit.Amount.Equal(decimal.RequireFromString("3000")))
	assert.Empty(t, f.contracts.created)

	_, err = f.svc.PreviewSchedule(PreviewInput{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPreviewNumber(t *testing.T) {
	f := newServiceFixture()
	f.contracts.existing = []string{"11/2026/K", "P/4/2026"}

	number, err := f.svc.PreviewNumber(context.Background(), "Przyczepa kempingowa", 2026)
	require.NoError(t, err)
	assert.Equal(t, "5/2026/P", number)

	number, err = f.svc.PreviewNumber(context.Background(), "Kamper", 0)
	require.NoError(t, err)
	assert.Equal(t, "12/2026/K", number)

	f.contracts.numbersErr = errors.New("down")
	_, err = f.svc.PreviewNumber(context.Background(), "Kamper", 2026)
	assert.ErrorIs(t, err, ErrAllocationQueryFailed)
}

func TestPoolRegister(t *testing.T) {
	f := newServiceFixture()
	f.contracts.listed = []model.Contract{
		{ContractNumber: "2/2026/K", Value: decimal.NewFromInt(100), Status: model.StatusActive},
		{ContractNumber: "K/1/2026", Value: decimal.NewFromInt(200), Status: model.StatusCompleted},
		{ContractNumber: "2/2026/K", Value: decimal.NewFromInt(300), Status: model.StatusPending},
		{ContractNumber: "1/2026/P", Value: decimal.NewFromInt(400), Status: model.StatusCancelled},
		{ContractNumber: "1/2025/K", Value: decimal.NewFromInt(500)},
		{ContractNumber: "draft", Value: decimal.NewFromInt(600)},
	}

	register, err := f.svc.PoolRegister(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, register.Pools, 2)

	k := register.Pools[0]
	assert.Equal(t, "K", k.Prefix)
	require.Len(t, k.Entries, 3)
	assert.Equal(t, 1, k.Entries[0].Sequence)
	assert.Equal(t, model.NumberLayoutLegacy, k.Entries[0].Layout)
	assert.Equal(t, 2, k.Max)
	assert.Equal(t, 3, k.NextSequence())
	assert.Equal(t, []int{2}, k.Duplicates)

	p := register.Pools[1]
	assert.Equal(t, "P", p.Prefix)
	assert.Len(t, p.Entries, 1)
	assert.Empty(t, p.Duplicates)

	_, err = f.svc.PoolRegister(context.Background(), 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExportPoolRegister(t *testing.T) {
	f := newServiceFixture()
	f.contracts.listed = []model.Contract{{ContractNumber: "1/2026/K"}}

	result, err := f.svc.ExportPoolRegister(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, "contract-pools-2026.xlsx", result.FileName)
	assert.Equal(t, []byte("xlsx"), result.Content)
	assert.Equal(t, 2026, f.exporter.register.Year)
}
