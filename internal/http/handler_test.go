package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/rental-contracts/internal/dispatch"
	"github.com/nurpe/rental-contracts/internal/excel"
	"github.com/nurpe/rental-contracts/internal/lock"
	"github.com/nurpe/rental-contracts/internal/model"
	"github.com/nurpe/rental-contracts/internal/schedule"
	"github.com/nurpe/rental-contracts/internal/service"
)

type memContracts struct {
	byID       map[uuid.UUID]model.Contract
	numbersErr error
}

func (m *memContracts) ContractNumbers(_ context.Context, _ int, _ string) ([]string, error) {
	if m.numbersErr != nil {
		return nil, m.numbersErr
	}
	numbers := make([]string, 0, len(m.byID))
	for _, c := range m.byID {
		numbers = append(numbers, c.ContractNumber)
	}
	return numbers, nil
}

func (m *memContracts) ListByNumberYear(_ context.Context, _ int) ([]model.Contract, error) {
	list := make([]model.Contract, 0, len(m.byID))
	for _, c := range m.byID {
		list = append(list, c)
	}
	return list, nil
}

func (m *memContracts) GetByID(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (m *memContracts) Create(_ context.Context, c *model.Contract) error {
	c.ID = uuid.New()
	m.byID[c.ID] = *c
	return nil
}

func (m *memContracts) Update(_ context.Context, c *model.Contract) error {
	m.byID[c.ID] = *c
	return nil
}

func (m *memContracts) UpdateStatus(_ context.Context, id uuid.UUID, status model.Status) error {
	c, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	m.byID[id] = c
	return nil
}

func (m *memContracts) UpdateFolderName(_ context.Context, id uuid.UUID, name string) error {
	c := m.byID[id]
	c.FolderName = name
	m.byID[id] = c
	return nil
}

type memClients struct{}

func (memClients) FindByEmail(context.Context, string) (*model.Client, error) {
	return nil, gorm.ErrRecordNotFound
}

func (memClients) Create(_ context.Context, client *model.Client) error {
	client.ID = uuid.New()
	return nil
}

func (memClients) UpdateFields(context.Context, uuid.UUID, map[string]any) error { return nil }

type memVehicles map[uuid.UUID]model.Vehicle

func (m memVehicles) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Vehicle, error) {
	var result []model.Vehicle
	for _, id := range ids {
		if v, ok := m[id]; ok {
			result = append(result, v)
		}
	}
	return result, nil
}

type testServer struct {
	router    *gin.Engine
	contracts *memContracts
	vehicle   model.Vehicle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	calc := schedule.NewCalculator(loc, "PL61109010140000071219812874").
		WithClock(func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) })

	vehicle := model.Vehicle{ID: uuid.New(), Model: "Fiat Ducato", Class: "Kamper"}
	contracts := &memContracts{byID: make(map[uuid.UUID]model.Contract)}
	effects := dispatch.NewDispatcher(nil, nil, dispatch.URLs{}, time.Second, zerolog.Nop())

	contractService := service.NewContractService(contracts, memClients{}, memVehicles{vehicle.ID: vehicle}, calc,
		lock.NewMemoryLocker(time.Second), excel.NewGenerator(), zerolog.Nop())
	lifecycle := service.NewLifecycleService(contracts, memClients{}, effects, calc, zerolog.Nop())

	handler := NewHandler(contractService, lifecycle, loc, zerolog.Nop())
	router := NewRouter(handler, zerolog.Nop(), "test", []string{"*"})
	return &testServer{router: router, contracts: contracts, vehicle: vehicle}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(OperatorHeader, "anna@rental.example")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createOne(t *testing.T) contractResponse {
	t.Helper()
	w := s.do(http.MethodPost, "/contracts", map[string]any{
		"tenant":      map[string]any{"full_name": "Jan Kowalski", "email": "jan@example.com"},
		"vehicle_ids": []string{s.vehicle.ID.String()},
		"start_date":  "2026-06-15",
		"end_date":    "2026-06-22",
		"value":       "10000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Contracts []contractResponse `json:"contracts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Contracts, 1)
	return resp.Contracts[0]
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateContracts(t *testing.T) {
	s := newTestServer(t)
	created := s.createOne(t)

	assert.Equal(t, "1/2026/K", created.ContractNumber)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, "2026-06-15", created.StartDate)
	assert.Equal(t, "anna@rental.example", created.CreatedBy)
	assert.True(t, created.Payments.Reservation.Amount.Equal(decimal.NewFromInt(3000)))
	require.NotNil(t, created.Payments.Main)
	assert.Equal(t, "2026-06-01", created.Payments.Main.DueDate.String())
	assert.Equal(t, []model.VehicleSnapshot{}, created.AdditionalVehicles)

	second := s.createOne(t)
	assert.Equal(t, "2/2026/K", second.ContractNumber)
}

func TestCreateContracts_BadRequest(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/contracts", map[string]any{"vehicle_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "details")

	w = s.do(http.MethodPost, "/contracts", map[string]any{
		"tenant":      map[string]any{"full_name": "Jan", "email": "broken"},
		"vehicle_ids": []string{s.vehicle.ID.String()},
		"start_date":  "2026-06-15",
		"end_date":    "2026-06-22",
		"value":       100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/contracts", map[string]any{
		"tenant":      map[string]any{"full_name": "Jan", "email": "jan@example.com"},
		"vehicle_ids": []string{s.vehicle.ID.String()},
		"start_date":  "15.06.2026",
		"end_date":    "2026-06-22",
		"value":       100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid start_date")
}

func TestGetContract(t *testing.T) {
	s := newTestServer(t)
	created := s.createOne(t)

	w := s.do(http.MethodGet, "/contracts/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"contract_number":"1/2026/K"`)

	w = s.do(http.MethodGet, "/contracts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/contracts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeStatus(t *testing.T) {
	s := newTestServer(t)
	created := s.createOne(t)
	path := "/contracts/" + created.ID.String() + "/status"

	w := s.do(http.MethodPost, path, map[string]any{"status": "active"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"confirmation_required":true`)

	w = s.do(http.MethodPost, path, map[string]any{"status": "active", "confirmed": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusActive, s.contracts.byID[created.ID].Status)

	w = s.do(http.MethodPost, path, map[string]any{"status": "archived", "confirmed": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateContract(t *testing.T) {
	s := newTestServer(t)
	created := s.createOne(t)
	path := "/contracts/" + created.ID.String()

	w := s.do(http.MethodPatch, path, map[string]any{"value": "20000"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated contractResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.True(t, updated.Payments.Main.Amount.Equal(decimal.NewFromInt(14000)))

	w = s.do(http.MethodPost, path+"/status", map[string]any{"status": "active", "confirmed": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPatch, path, map[string]any{"value": "25000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, path, map[string]any{"tenant": map[string]any{"phone": "600700800"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "600700800", s.contracts.byID[created.ID].Tenant.Phone)
}

func TestProtocolEvent(t *testing.T) {
	s := newTestServer(t)
	created := s.createOne(t)
	path := "/contracts/" + created.ID.String() + "/events"

	assert.Equal(t, http.StatusAccepted, s.do(http.MethodPost, path, map[string]any{"event": "handover"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, path, map[string]any{"event": "inspection"}).Code)
}

func TestPreviewSchedule(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/schedule/preview", map[string]any{
		"value":                       "5000",
		"full_payment_as_reservation": true,
		"vehicle_class":               "Przyczepa",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.NotContains(t, payload, "main")
	assert.Contains(t, string(payload["deposit"]), `"amount":"3000"`)
	assert.Contains(t, string(payload["deposit"]), `"due_date":null`)

	w = s.do(http.MethodPost, "/schedule/preview", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNextNumber(t *testing.T) {
	s := newTestServer(t)
	s.createOne(t)

	w := s.do(http.MethodGet, "/numbers/next?vehicle_class=Kamper&year=2026", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"contract_number":"2/2026/K"}`, w.Body.String())

	w = s.do(http.MethodGet, "/numbers/next", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.contracts.numbersErr = errors.New("connection refused")
	w = s.do(http.MethodGet, "/numbers/next?vehicle_class=Kamper", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestExportPool(t *testing.T) {
	s := newTestServer(t)
	s.createOne(t)

	w := s.do(http.MethodGet, "/pools/2026/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Header().Get("Content-Disposition"), "contract-pools-2026.xlsx"))
	assert.NotEmpty(t, w.Body.Bytes())

	w = s.do(http.MethodGet, "/pools/abc/export", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorsConfig(t *testing.T) {
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	assert.True(t, corsConfig(nil).AllowAllOrigins)

	cfg := corsConfig([]string{"https://office.example"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://office.example"}, cfg.AllowOrigins)
}
