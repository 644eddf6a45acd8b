package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairdesk/internal/auth"
	"repairdesk/internal/commons"
	"repairdesk/internal/domain"
	"repairdesk/internal/dto"
	apperrors "repairdesk/internal/errors"
	"repairdesk/internal/order/usecase"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, actor *domain.Actor, fields domain.Order) (*domain.Order, error)
	ListOrders(ctx context.Context, actor *domain.Actor, in usecase.ListOrdersInput) (*usecase.OrderPage, error)
	GetOrder(ctx context.Context, actor *domain.Actor, orderID uint) (*domain.Order, error)
	AssignOrder(ctx context.Context, actor *domain.Actor, orderID, technicianID uint) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, actor *domain.Actor, orderID uint, newState string, note string) (*domain.Order, error)
	AddOrderNote(ctx context.Context, actor *domain.Actor, orderID uint, text string) (*domain.AuditEntry, error)
	ListOrderLogs(ctx context.Context, actor *domain.Actor, orderID uint) ([]domain.AuditEntry, error)
}

type OrderController struct {
	useCase OrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

// Routes mounts the order endpoints. Every route expects an actor in the
// request context.
func (c *OrderController) Routes(r chi.Router) {
	r.Post("/", c.Create)
	r.Get("/", c.List)
	r.Get("/{orderId}", c.Get)
	r.Put("/{orderId}/assign", c.Assign)
	r.Put("/{orderId}/status", c.UpdateStatus)
	r.Post("/{orderId}/notes", c.AddNote)
	r.Get("/{orderId}/logs", c.ListLogs)
}

func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateOrderRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}

	if details := validateCreateOrder(req); len(details) > 0 {
		c.writeValidationError(w, traceID, "validation failed", details...)
		return
	}

	order, err := c.useCase.CreateOrder(r.Context(), auth.ActorFromContext(r.Context()), req.ToDomain())
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusCreated, traceID, "order created", dto.NewOrderDTO(order))
}

func validateCreateOrder(req dto.CreateOrderRequest) []apperrors.ValidationDetail {
	var details []apperrors.ValidationDetail
	if req.DeviceType == "" {
		details = append(details, apperrors.ValidationDetail{Field: "deviceType", Message: "deviceType is required"})
	}
	if req.ContactPhone == "" {
		details = append(details, apperrors.ValidationDetail{Field: "contactPhone", Message: "contactPhone is required"})
	}
	if len(req.Images) > 9 {
		details = append(details, apperrors.ValidationDetail{Field: "images", Message: "at most 9 images per order"})
	}
	return details
}

func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	query := r.URL.Query()
	in := usecase.ListOrdersInput{Status: query.Get("status")}

	var details []apperrors.ValidationDetail
	if raw := query.Get("assigned_to"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			details = append(details, apperrors.ValidationDetail{Field: "assigned_to", Message: "assigned_to must be a positive integer"})
		} else {
			technicianID := uint(id)
			in.AssignedTo = &technicianID
		}
	}
	for field, dst := range map[string]*int{"page": &in.Page, "page_size": &in.PageSize} {
		raw := query.Get(field)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			details = append(details, apperrors.ValidationDetail{Field: field, Message: field + " must be a positive integer"})
			continue
		}
		*dst = n
	}
	if len(details) > 0 {
		c.writeValidationError(w, traceID, "invalid query parameters", details...)
		return
	}

	page, err := c.useCase.ListOrders(r.Context(), auth.ActorFromContext(r.Context()), in)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	items := make([]dto.OrderDTO, len(page.Items))
	for i := range page.Items {
		items[i] = dto.NewOrderDTO(&page.Items[i])
	}
	c.writeSuccess(w, http.StatusOK, traceID, "ok", dto.Page{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderID(w, r, traceID, logger)
	if !ok {
		return
	}

	order, err := c.useCase.GetOrder(r.Context(), auth.ActorFromContext(r.Context()), orderID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusOK, traceID, "ok", dto.NewOrderDTO(order))
}

func (c *OrderController) Assign(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderID(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.AssignOrderRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}
	if req.TechnicianID == 0 {
		c.writeValidationError(w, traceID, "technicianId is required", apperrors.ValidationDetail{
			Field:   "technicianId",
			Message: "technicianId must be a positive integer",
		})
		return
	}

	order, err := c.useCase.AssignOrder(r.Context(), auth.ActorFromContext(r.Context()), orderID, req.TechnicianID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusOK, traceID, "technician assigned", dto.NewOrderDTO(order))
}

func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderID(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}
	if req.Status == "" {
		c.writeValidationError(w, traceID, "status is required", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status is required",
		})
		return
	}

	order, err := c.useCase.UpdateOrderStatus(r.Context(), auth.ActorFromContext(r.Context()), orderID, req.Status, req.Note)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusOK, traceID, "status updated", dto.NewOrderDTO(order))
}

func (c *OrderController) AddNote(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderID(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.AddNoteRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}

	entry, err := c.useCase.AddOrderNote(r.Context(), auth.ActorFromContext(r.Context()), orderID, req.Note)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusCreated, traceID, "note added", dto.NewAuditEntryDTO(entry))
}

func (c *OrderController) ListLogs(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderID(w, r, traceID, logger)
	if !ok {
		return
	}

	entries, err := c.useCase.ListOrderLogs(r.Context(), auth.ActorFromContext(r.Context()), orderID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	out := make([]dto.AuditEntryDTO, len(entries))
	for i := range entries {
		out[i] = dto.NewAuditEntryDTO(&entries[i])
	}
	c.writeSuccess(w, http.StatusOK, traceID, "ok", out)
}

func (c *OrderController) orderID(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (uint, bool) {
	raw := chi.URLParam(r, "orderId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		logger.Warn("invalid orderId in path", zap.String("orderId", raw))
		c.writeValidationError(w, traceID, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

func (c *OrderController) decode(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return false
	}
	return true
}

func (c *OrderController) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	status, message, details, ok := commons.ErrorStatus(err)
	if !ok {
		logger.Error("unexpected error", zap.Error(err))
	}

	resp := dto.Fail(message, details...)
	resp.TraceID = traceID
	c.writeJSON(w, status, resp)
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	resp := dto.Fail(message, details...)
	resp.TraceID = traceID
	c.writeJSON(w, http.StatusBadRequest, resp)
}

func (c *OrderController) writeSuccess(w http.ResponseWriter, status int, traceID string, message string, data interface{}) {
	resp := dto.OK(message, data)
	resp.TraceID = traceID
	c.writeJSON(w, status, resp)
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
