package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/rental-contracts/internal/dispatch"
	"github.com/nurpe/rental-contracts/internal/model"
	"github.com/nurpe/rental-contracts/internal/schedule"
)

type fakeContractStore struct {
	mu            sync.Mutex
	existing      []string
	contracts     map[uuid.UUID]*model.Contract
	created       []model.Contract
	numbersErr    error
	numberCalls   int
	createErrAt   int
	createErr     error
	createCalls   int
	updateErr     error
	updates       []model.Contract
	statusUpdates []model.Status
	folderUpdates []string
	listed        []model.Contract
}

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{contracts: make(map[uuid.UUID]*model.Contract), createErrAt: -1}
}

func (f *fakeContractStore) put(c model.Contract) {
	f.contracts[c.ID] = &c
}

func (f *fakeContractStore) ContractNumbers(_ context.Context, _ int, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numberCalls++
	if f.numbersErr != nil {
		return nil, f.numbersErr
	}
	return append([]string(nil), f.existing...), nil
}

func (f *fakeContractStore) ListByNumberYear(_ context.Context, _ int) ([]model.Contract, error) {
	return f.listed, nil
}

func (f *fakeContractStore) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContractStore) Create(_ context.Context, c *model.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.createCalls
	f.createCalls++
	if idx == f.createErrAt {
		return f.createErr
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.created = append(f.created, *c)
	f.contracts[c.ID] = c
	return nil
}

func (f *fakeContractStore) Update(_ context.Context, c *model.Contract) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, *c)
	cp := *c
	f.contracts[c.ID] = &cp
	return nil
}

func (f *fakeContractStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.Status) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	c, ok := f.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeContractStore) UpdateFolderName(_ context.Context, id uuid.UUID, name string) error {
	if c, ok := f.contracts[id]; ok {
		c.FolderName = name
	}
	f.folderUpdates = append(f.folderUpdates, name)
	return nil
}

type fakeClientStore struct {
	clients   []*model.Client
	createErr error
	findErr   error
	created   []*model.Client
	updates   []map[string]any
	updateErr error
}

func (f *fakeClientStore) FindByEmail(_ context.Context, email string) (*model.Client, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, c := range f.clients {
		if strings.EqualFold(c.Tenant.Email, email) {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeClientStore) Create(_ context.Context, client *model.Client) error {
	if f.createErr != nil {
		return f.createErr
	}
	client.ID = uuid.New()
	f.clients = append(f.clients, client)
	f.created = append(f.created, client)
	return nil
}

func (f *fakeClientStore) UpdateFields(_ context.Context, _ uuid.UUID, fields map[string]any) error {
	f.updates = append(f.updates, fields)
	return f.updateErr
}

type fakeVehicleStore struct {
	vehicles map[uuid.UUID]model.Vehicle
}

func newFakeVehicleStore(vehicles ...model.Vehicle) *fakeVehicleStore {
	store := &fakeVehicleStore{vehicles: make(map[uuid.UUID]model.Vehicle)}
	for _, v := range vehicles {
		store.vehicles[v.ID] = v
	}
	return store
}

func (f *fakeVehicleStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Vehicle, error) {
	var result []model.Vehicle
	for _, id := range ids {
		if v, ok := f.vehicles[id]; ok {
			result = append(result, v)
		}
	}
	return result, nil
}

type fakeEffects struct {
	activated  []model.Contract
	cancelled  []model.Status
	protocol   []dispatch.Event
	renameTo   string
	renameCall int
}

func (f *fakeEffects) Activated(_ context.Context, c model.Contract) {
	f.activated = append(f.activated, c)
}

func (f *fakeEffects) Cancelled(_ context.Context, _ model.Contract, prior model.Status) {
	f.cancelled = append(f.cancelled, prior)
}

func (f *fakeEffects) Protocol(_ context.Context, event dispatch.Event, _ model.Contract) {
	f.protocol = append(f.protocol, event)
}

func (f *fakeEffects) RenameCancelled(_ context.Context, _ model.Contract) (string, bool) {
	f.renameCall++
	if f.renameTo == "" {
		return "", false
	}
	return f.renameTo, true
}

type fakeExporter struct {
	register model.PoolRegister
}

func (f *fakeExporter) Generate(register model.PoolRegister) ([]byte, error) {
	f.register = register
	return []byte("xlsx"), nil
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testCalculator() *schedule.Calculator {
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		panic(err)
	}
	return schedule.NewCalculator(loc, "PL61109010140000071219812874").WithClock(func() time.Time { return testNow })
}

func camper(premium bool) model.Vehicle {
	return model.Vehicle{ID: uuid.New(), Model: "Fiat Ducato", Class: "Kamper", Premium: premium, VIN: "ZFA250000", Registration: "WX 1234A"}
}

func trailer() model.Vehicle {
	return model.Vehicle{ID: uuid.New(), Model: "Niewiadów N126", Class: "Przyczepa kempingowa", VIN: "SUN126000", Registration: "WX 9876B"}
}
