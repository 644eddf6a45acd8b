package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairdesk/internal/auth"
	"repairdesk/internal/commons"
	"repairdesk/internal/domain"
	"repairdesk/internal/dto"
	apperrors "repairdesk/internal/errors"
	"repairdesk/internal/user/usecase"
)

type UserUseCase interface {
	SendCode(ctx context.Context, phone string) error
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, phone, password string) (*usecase.AuthResult, error)
	Me(ctx context.Context, actor *domain.Actor) (*domain.User, error)
}

type UserController struct {
	useCase UserUseCase
	logger  *zap.Logger
}

func NewUserController(useCase UserUseCase, logger *zap.Logger) *UserController {
	return &UserController{
		useCase: useCase,
		logger:  logger,
	}
}

// Routes mounts the public auth endpoints. requireActor guards /me.
func (c *UserController) Routes(requireActor func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/send-code", c.SendCode)
		r.Post("/register", c.Register)
		r.Post("/login", c.Login)
		r.With(requireActor).Get("/me", c.Me)
	}
}

func (c *UserController) SendCode(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.SendCodeRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}

	if err := c.useCase.SendCode(r.Context(), req.Phone); err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusOK, traceID, "verification code sent", nil)
}

func (c *UserController) Register(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.RegisterRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}

	res, err := c.useCase.Register(r.Context(), usecase.RegisterInput{
		Phone:    req.Phone,
		Code:     req.Code,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusCreated, traceID, "registered", newAuthResponse(res))
}

func (c *UserController) Login(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.LoginRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}

	res, err := c.useCase.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusOK, traceID, "logged in", newAuthResponse(res))
}

func (c *UserController) Me(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	user, err := c.useCase.Me(r.Context(), auth.ActorFromContext(r.Context()))
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeSuccess(w, http.StatusOK, traceID, "ok", dto.NewUserDTO(user))
}

func newAuthResponse(res *usecase.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      dto.NewUserDTO(res.User),
	}
}

func (c *UserController) decode(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		resp := dto.Fail("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		resp.TraceID = traceID
		c.writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func (c *UserController) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	status, message, details, ok := commons.ErrorStatus(err)
	if !ok {
		logger.Error("unexpected error", zap.Error(err))
	}

	resp := dto.Fail(message, details...)
	resp.TraceID = traceID
	c.writeJSON(w, status, resp)
}

func (c *UserController) writeSuccess(w http.ResponseWriter, status int, traceID string, message string, data interface{}) {
	resp := dto.OK(message, data)
	resp.TraceID = traceID
	c.writeJSON(w, status, resp)
}

func (c *UserController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
