package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"repairdesk/internal/domain"
	apperrors "repairdesk/internal/errors"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OrderStore interface {
	Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) (uint, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint) (*domain.Order, error)
	UpdateState(ctx context.Context, tx *sql.Tx, order *domain.Order) error
}

type AuditAppender interface {
	Append(ctx context.Context, tx *sql.Tx, entry *domain.AuditEntry) (uint, error)
}

// TechnicianLocker reads a user row under a shared lock so a concurrent
// deactivation waits for the assignment to commit.
type TechnicianLocker interface {
	FindByIDForShare(ctx context.Context, tx *sql.Tx, id uint) (*domain.User, error)
}

// Guard is checked against the locked order row before a mutation. A
// non-nil error aborts the transaction and is returned as is.
type Guard = func(current *domain.Order) error

// LifecycleService applies order mutations. Each mutation and its audit
// entry share one transaction; neither is visible without the other.
type LifecycleService struct {
	db        TransactionManager
	orders    OrderStore
	audit     AuditAppender
	users     TechnicianLocker
	rule      domain.TransitionRule
	logger    *zap.Logger
	txTimeout time.Duration
	now       func() time.Time
}

func NewLifecycleService(
	db TransactionManager,
	orders OrderStore,
	audit AuditAppender,
	users TechnicianLocker,
	rule domain.TransitionRule,
	logger *zap.Logger,
	txTimeout time.Duration,
) *LifecycleService {
	if rule == nil {
		rule = domain.PermissiveTransitions{}
	}
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &LifecycleService{
		db:        db,
		orders:    orders,
		audit:     audit,
		users:     users,
		rule:      rule,
		logger:    logger,
		txTimeout: txTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *LifecycleService) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return apperrors.NewInternalError("beginning transaction", err)
	}
	// no-op once committed
	defer tx.Rollback()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Error(err))
		return apperrors.NewInternalError("committing transaction", err)
	}
	return nil
}

// storeError passes typed application errors through and hides the rest
// behind InternalError.
func storeError(message string, err error) error {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return err
	}
	if _, ok := apperrors.IsInternalError(err); ok {
		return err
	}
	return apperrors.NewInternalError(message, err)
}

func (s *LifecycleService) appendAudit(ctx context.Context, tx *sql.Tx, entry *domain.AuditEntry) error {
	id, err := s.audit.Append(ctx, tx, entry)
	if err != nil {
		s.logger.Error("audit append failed, rolling back",
			zap.Uint("orderId", entry.OrderID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return apperrors.NewInternalError("recording audit entry", err)
	}
	entry.ID = id
	return nil
}

func (s *LifecycleService) Create(ctx context.Context, actorID uint, order domain.Order) (*domain.Order, error) {
	now := s.now()
	order.ID = 0
	order.OwnerID = actorID
	order.Status = domain.OrderStatusPending
	order.AssignedTechnicianID = nil
	order.CreatedAt, order.UpdatedAt = now, now

	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		id, err := s.orders.Insert(ctx, tx, &order)
		if err != nil {
			s.logger.Error("failed to insert order", zap.Uint("ownerId", actorID), zap.Error(err))
			return storeError("creating order", err)
		}
		order.ID = id

		return s.appendAudit(ctx, tx, &domain.AuditEntry{
			OrderID:     id,
			ActorID:     actorID,
			Action:      domain.AuditActionCreated,
			Description: "order created",
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created", zap.Uint("orderId", order.ID), zap.Uint("ownerId", actorID))
	return &order, nil
}

// Assign attaches technicianID and moves the order to assigned. The
// technician is re-read under a shared lock inside the transaction; a
// missing or inactive technician fails with InvalidTechnicianError.
func (s *LifecycleService) Assign(ctx context.Context, actorID, orderID, technicianID uint) (*domain.Order, error) {
	var order *domain.Order

	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		current, err := s.orders.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return storeError("loading order", err)
		}

		if current.Status.IsTerminal() {
			return apperrors.NewInvalidStateError(string(current.Status))
		}
		if !s.rule.CanAssign(current.Status) {
			return apperrors.NewInvalidTransitionError(string(current.Status), string(domain.OrderStatusAssigned))
		}
		if err := s.checkTechnician(ctx, tx, technicianID); err != nil {
			return err
		}

		from := current.Status
		current.AssignedTechnicianID = &technicianID
		current.Status = domain.OrderStatusAssigned
		current.UpdatedAt = s.now()
		if err := current.CheckAssigneeInvariant(); err != nil {
			return apperrors.NewInternalError("assigning technician", err)
		}

		if err := s.orders.UpdateState(ctx, tx, current); err != nil {
			return storeError("updating order", err)
		}

		if err := s.appendAudit(ctx, tx, &domain.AuditEntry{
			OrderID:     orderID,
			ActorID:     actorID,
			Action:      domain.AuditActionAssigned,
			Description: fmt.Sprintf("technician %d assigned (was %s)", technicianID, from),
			CreatedAt:   current.UpdatedAt,
		}); err != nil {
			return err
		}

		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("technician assigned", zap.Uint("orderId", orderID), zap.Uint("technicianId", technicianID))
	return order, nil
}

func (s *LifecycleService) checkTechnician(ctx context.Context, tx *sql.Tx, technicianID uint) error {
	if s.users == nil {
		return nil
	}
	technician, err := s.users.FindByIDForShare(ctx, tx, technicianID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return apperrors.NewInvalidTechnicianError(technicianID)
		}
		s.logger.Error("failed to lock technician", zap.Uint("technicianId", technicianID), zap.Error(err))
		return storeError("loading technician", err)
	}
	if !technician.IsActiveTechnician() {
		return apperrors.NewInvalidTechnicianError(technicianID)
	}
	return nil
}

// UpdateStatus moves the order to target if the configured rule allows it.
// Leaving the states that may carry a technician drops the assignee.
func (s *LifecycleService) UpdateStatus(ctx context.Context, actorID, orderID uint, target domain.OrderStatus, note string, guard Guard) (*domain.Order, error) {
	var order *domain.Order

	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		current, err := s.orders.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return storeError("loading order", err)
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}

		from := current.Status
		if !s.rule.CanTransition(from, target) {
			return apperrors.NewInvalidTransitionError(string(from), string(target))
		}

		current.Status = target
		if !target.AllowsAssignee() {
			current.AssignedTechnicianID = nil
		}
		current.UpdatedAt = s.now()
		if err := current.CheckAssigneeInvariant(); err != nil {
			return apperrors.NewInternalError("updating status", err)
		}

		if err := s.orders.UpdateState(ctx, tx, current); err != nil {
			return storeError("updating order", err)
		}

		description := strings.TrimSpace(note)
		if description == "" {
			description = fmt.Sprintf("status changed from %s to %s", from, target)
		}
		if err := s.appendAudit(ctx, tx, &domain.AuditEntry{
			OrderID:     orderID,
			ActorID:     actorID,
			Action:      domain.AuditActionStatusChanged,
			Description: description,
			CreatedAt:   current.UpdatedAt,
		}); err != nil {
			return err
		}

		s.logger.Info("order status changed",
			zap.Uint("orderId", orderID),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
		)
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *LifecycleService) AddNote(ctx context.Context, actorID, orderID uint, text string, guard Guard) (*domain.AuditEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note must not be empty", apperrors.ValidationDetail{
			Field:   "note",
			Message: "note must not be empty",
		})
	}

	entry := &domain.AuditEntry{
		OrderID:     orderID,
		ActorID:     actorID,
		Action:      domain.AuditActionNoteAdded,
		Description: text,
		CreatedAt:   s.now(),
	}

	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// lock so the note orders after any in-flight transition
		current, err := s.orders.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return storeError("loading order", err)
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}
		return s.appendAudit(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}
