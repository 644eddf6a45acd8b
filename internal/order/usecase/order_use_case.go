package usecase

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	"repairdesk/internal/domain"
	apperrors "repairdesk/internal/errors"
	"repairdesk/internal/infrastructure/mysql"
	"repairdesk/internal/policy"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error)
}

type AuditRepository interface {
	ListByOrder(ctx context.Context, orderID uint) ([]domain.AuditEntry, error)
}

type LifecycleService interface {
	Create(ctx context.Context, actorID uint, order domain.Order) (*domain.Order, error)
	Assign(ctx context.Context, actorID, orderID, technicianID uint) (*domain.Order, error)
	UpdateStatus(ctx context.Context, actorID, orderID uint, target domain.OrderStatus, note string, guard func(*domain.Order) error) (*domain.Order, error)
	AddNote(ctx context.Context, actorID, orderID uint, text string, guard func(*domain.Order) error) (*domain.AuditEntry, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

type Notifier interface {
	Dispatch(event domain.NotificationEvent)
}

type TransitionRecorder interface {
	TransitionCommitted(action string)
}

type Settings struct {
	MaxRetryAttempts int
	DefaultPageSize  int
	MaxPageSize      int
}

type ListOrdersInput struct {
	Status     string
	AssignedTo *uint
	Page       int
	PageSize   int
}

type OrderPage struct {
	Items    []domain.Order
	Total    int
	Page     int
	PageSize int
}

// OrderUseCase authorizes lifecycle calls, runs them with retry on lock
// contention and emits notifications once they have committed.
type OrderUseCase struct {
	orders    OrderRepository
	audit     AuditRepository
	lifecycle LifecycleService
	users     UserRepository
	notifier  Notifier
	metrics   TransitionRecorder
	logger    *zap.Logger
	settings  Settings
}

func NewOrderUseCase(
	orders OrderRepository,
	audit AuditRepository,
	lifecycle LifecycleService,
	users UserRepository,
	notifier Notifier,
	metrics TransitionRecorder,
	logger *zap.Logger,
	settings Settings,
) *OrderUseCase {
	if settings.MaxRetryAttempts <= 0 {
		settings.MaxRetryAttempts = 1
	}
	if settings.DefaultPageSize <= 0 {
		settings.DefaultPageSize = 20
	}
	if settings.MaxPageSize < settings.DefaultPageSize {
		settings.MaxPageSize = settings.DefaultPageSize
	}
	return &OrderUseCase{
		orders:    orders,
		audit:     audit,
		lifecycle: lifecycle,
		users:     users,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		settings:  settings,
	}
}

func (uc *OrderUseCase) CreateOrder(ctx context.Context, actor *domain.Actor, fields domain.Order) (*domain.Order, error) {
	if d := policy.Can(actor, policy.ActionCreateOrder, nil); !d.Allowed {
		return nil, denied(d)
	}

	order, err := withRetry(ctx, uc, "create order", func() (*domain.Order, error) {
		return uc.lifecycle.Create(ctx, actor.ID, fields)
	})
	if err != nil {
		return nil, err
	}

	uc.committed(domain.AuditActionCreated)
	uc.notify(ctx, order, domain.NotificationOrderCreated, nil)
	return order, nil
}

func (uc *OrderUseCase) GetOrder(ctx context.Context, actor *domain.Actor, orderID uint) (*domain.Order, error) {
	return uc.loadAuthorized(ctx, actor, policy.ActionReadOrder, orderID)
}

func (uc *OrderUseCase) ListOrders(ctx context.Context, actor *domain.Actor, in ListOrdersInput) (*OrderPage, error) {
	scope, d := policy.ListScope(actor)
	if !d.Allowed {
		return nil, denied(d)
	}
	filter := domain.OrderFilter{
		OwnerID:    scope.OwnerID,
		AssigneeID: scope.AssigneeID,
	}

	if in.Status != "" {
		status, ok := domain.ParseOrderStatus(in.Status)
		if !ok {
			return nil, apperrors.NewInvalidStateError(in.Status)
		}
		filter.Status = &status
	}

	if in.AssignedTo != nil {
		if !actor.IsPrivileged() {
			return nil, apperrors.NewForbiddenError("filtering by technician is not allowed")
		}
		filter.AssigneeID = in.AssignedTo
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = uc.settings.DefaultPageSize
	}
	if pageSize > uc.settings.MaxPageSize {
		pageSize = uc.settings.MaxPageSize
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	orders, total, err := uc.orders.List(ctx, filter)
	if err != nil {
		uc.logger.Error("failed to list orders", zap.Uint("actorId", actor.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("listing orders", err)
	}

	return &OrderPage{Items: orders, Total: total, Page: page, PageSize: pageSize}, nil
}

func (uc *OrderUseCase) AssignOrder(ctx context.Context, actor *domain.Actor, orderID, technicianID uint) (*domain.Order, error) {
	if d := policy.Can(actor, policy.ActionAssignTechnician, nil); !d.Allowed {
		return nil, denied(d)
	}

	technician, err := uc.users.FindByID(ctx, technicianID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewInvalidTechnicianError(technicianID)
		}
		uc.logger.Error("failed to load technician", zap.Uint("technicianId", technicianID), zap.Error(err))
		return nil, apperrors.NewInternalError("loading technician", err)
	}
	if !technician.IsActiveTechnician() {
		return nil, apperrors.NewInvalidTechnicianError(technicianID)
	}

	order, err := withRetry(ctx, uc, "assign order", func() (*domain.Order, error) {
		return uc.lifecycle.Assign(ctx, actor.ID, orderID, technicianID)
	})
	if err != nil {
		return nil, err
	}

	uc.committed(domain.AuditActionAssigned)
	technicianName := technician.Name
	if technicianName == "" {
		technicianName = strconv.FormatUint(uint64(technician.ID), 10)
	}
	uc.notify(ctx, order, domain.NotificationOrderAssigned, map[string]string{"technician": technicianName})
	return order, nil
}

func (uc *OrderUseCase) UpdateOrderStatus(ctx context.Context, actor *domain.Actor, orderID uint, newState string, note string) (*domain.Order, error) {
	if d := policy.CheckActor(actor); !d.Allowed {
		return nil, denied(d)
	}

	target, ok := domain.ParseOrderStatus(newState)
	if !ok {
		return nil, apperrors.NewInvalidStateError(newState)
	}

	if _, err := uc.loadAuthorized(ctx, actor, policy.ActionUpdateStatus, orderID); err != nil {
		return nil, err
	}

	order, err := withRetry(ctx, uc, "update order status", func() (*domain.Order, error) {
		return uc.lifecycle.UpdateStatus(ctx, actor.ID, orderID, target, note, uc.guard(actor, policy.ActionUpdateStatus))
	})
	if err != nil {
		return nil, err
	}

	uc.committed(domain.AuditActionStatusChanged)
	if target == domain.OrderStatusCompleted {
		uc.notify(ctx, order, domain.NotificationOrderCompleted, nil)
	}
	return order, nil
}

func (uc *OrderUseCase) AddOrderNote(ctx context.Context, actor *domain.Actor, orderID uint, text string) (*domain.AuditEntry, error) {
	if _, err := uc.loadAuthorized(ctx, actor, policy.ActionAddNote, orderID); err != nil {
		return nil, err
	}

	entry, err := withRetry(ctx, uc, "add order note", func() (*domain.AuditEntry, error) {
		return uc.lifecycle.AddNote(ctx, actor.ID, orderID, text, uc.guard(actor, policy.ActionAddNote))
	})
	if err != nil {
		return nil, err
	}

	uc.committed(domain.AuditActionNoteAdded)
	return entry, nil
}

func (uc *OrderUseCase) ListOrderLogs(ctx context.Context, actor *domain.Actor, orderID uint) ([]domain.AuditEntry, error) {
	if _, err := uc.loadAuthorized(ctx, actor, policy.ActionReadLogs, orderID); err != nil {
		return nil, err
	}

	entries, err := uc.audit.ListByOrder(ctx, orderID)
	if err != nil {
		uc.logger.Error("failed to list order logs", zap.Uint("orderId", orderID), zap.Error(err))
		return nil, apperrors.NewInternalError("listing order logs", err)
	}
	return entries, nil
}

// loadAuthorized fetches the order and applies the policy to it. Callers
// without rights on an existing order get the same NotFound as for a
// missing one.
func (uc *OrderUseCase) loadAuthorized(ctx context.Context, actor *domain.Actor, action policy.Action, orderID uint) (*domain.Order, error) {
	if d := policy.CheckActor(actor); !d.Allowed {
		return nil, denied(d)
	}

	order, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		uc.logger.Error("failed to load order", zap.Uint("orderId", orderID), zap.Error(err))
		return nil, apperrors.NewInternalError("loading order", err)
	}

	if d := policy.Can(actor, action, order); !d.Allowed {
		uc.logger.Debug("order access denied",
			zap.Uint("orderId", orderID),
			zap.Uint("actorId", actor.ID),
			zap.String("action", string(action)),
			zap.String("reason", string(d.Reason)),
		)
		return nil, denied(d)
	}

	return order, nil
}

// guard re-applies the policy to the row locked by the lifecycle
// transaction, so a reassignment committed after loadAuthorized still
// denies the write.
func (uc *OrderUseCase) guard(actor *domain.Actor, action policy.Action) func(*domain.Order) error {
	return func(current *domain.Order) error {
		if d := policy.Can(actor, action, current); !d.Allowed {
			uc.logger.Debug("order access revoked before write",
				zap.Uint("orderId", current.ID),
				zap.Uint("actorId", actor.ID),
				zap.String("action", string(action)),
				zap.String("reason", string(d.Reason)),
			)
			return denied(d)
		}
		return nil
	}
}

func denied(d policy.Decision) error {
	switch d.Reason {
	case policy.ReasonUnauthenticated:
		return apperrors.NewUnauthenticatedError("authentication required")
	case policy.ReasonInactive:
		return apperrors.NewForbiddenError("account is disabled")
	case policy.ReasonNotRelated:
		return apperrors.NewNotFoundError("order not found")
	default:
		return apperrors.NewForbiddenError("action not allowed")
	}
}

func (uc *OrderUseCase) committed(action domain.AuditAction) {
	if uc.metrics != nil {
		uc.metrics.TransitionCommitted(string(action))
	}
}

// notify hands the event to the dispatcher. It runs after commit and never
// fails the caller.
func (uc *OrderUseCase) notify(ctx context.Context, order *domain.Order, kind domain.NotificationKind, extra map[string]string) {
	if uc.notifier == nil {
		return
	}

	phone := order.ContactPhone
	if phone == "" {
		owner, err := uc.users.FindByID(ctx, order.OwnerID)
		if err != nil {
			uc.logger.Warn("no recipient for notification",
				zap.Uint("orderId", order.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			return
		}
		phone = owner.Phone
	}

	payload := map[string]string{
		"order_id": strconv.FormatUint(uint64(order.ID), 10),
		"device":   order.DeviceLabel(),
		"status":   string(order.Status),
	}
	for k, v := range extra {
		payload[k] = v
	}

	uc.notifier.Dispatch(domain.NotificationEvent{Phone: phone, Kind: kind, Payload: payload})
}

// Backoff intervals: attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms).
var retryBackoffs = []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

func withRetry[T any](ctx context.Context, uc *OrderUseCase, op string, fn func() (T, error)) (T, error) {
	var zero T
	maxAttempts := uc.settings.MaxRetryAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if !mysql.IsRetryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := retryBackoffs[min(attempt, len(retryBackoffs)-1)]
		// ±20% jitter
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		uc.logger.Warn("lock contention, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
		)

		select {
		case <-ctx.Done():
			return zero, apperrors.NewInternalError(op, ctx.Err())
		case <-time.After(wait):
		}
	}

	uc.logger.Error("retries exhausted", zap.String("op", op), zap.Int("maxAttempts", maxAttempts))
	return zero, apperrors.NewConflictError("the order is busy, please retry")
}
