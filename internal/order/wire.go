package order

import (
	"database/sql"

	"go.uber.org/zap"

	"repairdesk/internal/config"
	"repairdesk/internal/domain"
	"repairdesk/internal/order/controller"
	orderrepo "repairdesk/internal/order/repository"
	"repairdesk/internal/order/service"
	"repairdesk/internal/order/usecase"
)

// Users is read outside transactions by the use case and under a shared
// lock by the lifecycle service when assigning.
type Users interface {
	usecase.UserRepository
	service.TechnicianLocker
}

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	users Users,
	notifier usecase.Notifier,
	metrics usecase.TransitionRecorder,
	logger *zap.Logger,
) *controller.OrderController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	auditRepo := orderrepo.NewMySQLAuditRepository(db)

	rule := domain.NewTransitionRule(cfg.Order.StrictTransitions)
	if cfg.Order.StrictTransitions {
		logger.Info("strict order transitions enabled")
	}

	lifecycle := service.NewLifecycleService(
		db,
		orderRepo,
		auditRepo,
		users,
		rule,
		logger,
		cfg.Order.TxTimeout,
	)

	uc := usecase.NewOrderUseCase(
		orderRepo,
		auditRepo,
		lifecycle,
		users,
		notifier,
		metrics,
		logger,
		usecase.Settings{
			MaxRetryAttempts: cfg.Order.MaxRetryAttempts,
			DefaultPageSize:  cfg.Order.DefaultPageSize,
			MaxPageSize:      cfg.Order.MaxPageSize,
		},
	)

	return controller.NewOrderController(uc, logger)
}
