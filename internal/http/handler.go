package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/rental-contracts/internal/model"
	"github.com/nurpe/rental-contracts/internal/service"
)

// OperatorHeader carries the operator identity set by the upstream gateway.
const OperatorHeader = "X-Operator"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	contracts *service.ContractService
	lifecycle *service.LifecycleService
	loc       *time.Location
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, lifecycle *service.LifecycleService, loc *time.Location, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, lifecycle: lifecycle, loc: loc, log: log}
}

func (h *Handler) Register(router *gin.Engine) {
	router.POST("/contracts", h.createContracts)
	router.GET("/contracts/:id", h.getContract)
	router.PATCH("/contracts/:id", h.updateContract)
	router.POST("/contracts/:id/status", h.changeStatus)
	router.POST("/contracts/:id/events", h.protocolEvent)
	router.POST("/schedule/preview", h.previewSchedule)
	router.GET("/numbers/next", h.nextNumber)
	router.GET("/pools/:year/export", h.exportPool)
}

type createContractsRequest struct {
	Tenant                   model.Tenant     `json:"tenant" binding:"required"`
	VehicleIDs               []string         `json:"vehicle_ids" binding:"required,min=1,dive,uuid"`
	StartDate                string           `json:"start_date" binding:"required"`
	EndDate                  string           `json:"end_date" binding:"required"`
	Value                    *decimal.Decimal `json:"value" binding:"required"`
	FullPaymentAsReservation bool             `json:"full_payment_as_reservation"`
	DepositOverride          *decimal.Decimal `json:"deposit_override"`
	InquiryID                *string          `json:"inquiry_id" binding:"omitempty,uuid"`
}

func (h *Handler) createContracts(c *gin.Context) {
	var req createContractsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": bindingErrors(err)})
		return
	}

	start, err := h.parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := h.parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}

	vehicleIDs := make([]uuid.UUID, 0, len(req.VehicleIDs))
	for _, raw := range req.VehicleIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle_ids"})
			return
		}
		vehicleIDs = append(vehicleIDs, id)
	}

	var inquiryID *uuid.UUID
	if req.InquiryID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*req.InquiryID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inquiry_id"})
			return
		}
		inquiryID = &id
	}

	contracts, err := h.contracts.Create(c.Request.Context(), service.CreateInput{
		Tenant:                   req.Tenant,
		VehicleIDs:               vehicleIDs,
		StartDate:                start,
		EndDate:                  end,
		Value:                    req.Value,
		FullPaymentAsReservation: req.FullPaymentAsReservation,
		DepositOverride:          req.DepositOverride,
		InquiryID:                inquiryID,
		CreatedBy:                strings.TrimSpace(c.GetHeader(OperatorHeader)),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"contracts": toContractResponses(contracts)})
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(*contract))
}

type updateContractRequest struct {
	Tenant                   *service.TenantPatch `json:"tenant"`
	Value                    *decimal.Decimal     `json:"value"`
	StartDate                *string              `json:"start_date"`
	EndDate                  *string              `json:"end_date"`
	FullPaymentAsReservation *bool                `json:"full_payment_as_reservation"`
	DepositOverride          *decimal.Decimal     `json:"deposit_override"`
	ClearDepositOverride     bool                 `json:"clear_deposit_override"`
	Payments                 *model.Payments      `json:"payments"`
	Status                   *string              `json:"status" binding:"omitempty,oneof=pending active completed cancelled"`
	Confirmed                bool                 `json:"confirmed"`
}

func (h *Handler) updateContract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": bindingErrors(err)})
		return
	}

	input := service.UpdateInput{
		ContractID:               id,
		Tenant:                   req.Tenant,
		Value:                    req.Value,
		FullPaymentAsReservation: req.FullPaymentAsReservation,
		DepositOverride:          req.DepositOverride,
		ClearDepositOverride:     req.ClearDepositOverride,
		Payments:                 req.Payments,
		Confirmed:                req.Confirmed,
	}
	if req.StartDate != nil {
		start, err := h.parseDate(*req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		input.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := h.parseDate(*req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		input.EndDate = &end
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		input.Status = &status
	}

	contract, err := h.lifecycle.Update(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(*contract))
}

type changeStatusRequest struct {
	Status    string               `json:"status" binding:"required,oneof=pending active completed cancelled"`
	Confirmed bool                 `json:"confirmed"`
	Tenant    *service.TenantPatch `json:"tenant"`
}

func (h *Handler) changeStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": bindingErrors(err)})
		return
	}

	contract, err := h.lifecycle.ChangeStatus(c.Request.Context(), service.StatusChangeInput{
		ContractID: id,
		Status:     model.Status(req.Status),
		Confirmed:  req.Confirmed,
		Tenant:     req.Tenant,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(*contract))
}

type protocolEventRequest struct {
	Event string `json:"event" binding:"required,oneof=handover return deposit_refund"`
}

func (h *Handler) protocolEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req protocolEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": bindingErrors(err)})
		return
	}

	if err := h.lifecycle.DispatchProtocolEvent(c.Request.Context(), id, req.Event); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type previewScheduleRequest struct {
	Value                    *decimal.Decimal `json:"value" binding:"required"`
	StartDate                string           `json:"start_date"`
	FullPaymentAsReservation bool             `json:"full_payment_as_reservation"`
	VehicleClass             string           `json:"vehicle_class"`
	Premium                  bool             `json:"premium"`
	DepositOverride          *decimal.Decimal `json:"deposit_override"`
}

func (h *Handler) previewSchedule(c *gin.Context) {
	var req previewScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": bindingErrors(err)})
		return
	}

	input := service.PreviewInput{
		Value:                    req.Value,
		FullPaymentAsReservation: req.FullPaymentAsReservation,
		VehicleClass:             req.VehicleClass,
		Premium:                  req.Premium,
		DepositOverride:          req.DepositOverride,
	}
	if strings.TrimSpace(req.StartDate) != "" {
		start, err := h.parseDate(req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		input.StartDate = &start
	}

	payments, err := h.contracts.PreviewSchedule(input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) nextNumber(c *gin.Context) {
	class := strings.TrimSpace(c.Query("vehicle_class"))
	if class == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_class is required"})
		return
	}

	year := 0
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = parsed
	}

	number, err := h.contracts.PreviewNumber(c.Request.Context(), class, year)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract_number": number})
}

func (h *Handler) exportPool(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	result, err := h.contracts.ExportPoolRegister(c.Request.Context(), year)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, xlsxContentType, result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotEditable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConfirmationRequired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "confirmation_required": true})
	case errors.Is(err, service.ErrAllocationQueryFailed):
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("number allocation failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "contract numbers are temporarily unavailable"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts a calendar date, read in the business timezone, or a full
// timestamp.
func (h *Handler) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrValidation
	}
	if parsed, err := time.ParseInLocation("2006-01-02", raw, h.loc); err == nil {
		return parsed, nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, h.loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrValidation
}
