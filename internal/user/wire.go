package user

import (
	"go.uber.org/zap"

	"repairdesk/internal/config"
	"repairdesk/internal/user/controller"
	"repairdesk/internal/user/usecase"
)

func NewModule(
	cfg *config.Config,
	users usecase.UserRepository,
	codes usecase.CodeStore,
	sender usecase.CodeSender,
	tokens usecase.TokenIssuer,
	logger *zap.Logger,
) *controller.UserController {
	uc := usecase.NewUserUseCase(users, codes, sender, tokens, logger, cfg.Verification.CodeTTL)
	return controller.NewUserController(uc, logger)
}
