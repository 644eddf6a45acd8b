package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"repairdesk/internal/domain"
	apperrors "repairdesk/internal/errors"
)

const minPasswordLength = 6

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,20}$`)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) (uint, error)
}

type CodeStore interface {
	Store(ctx context.Context, key, value string, ttl time.Duration) error
	ConsumeIfValid(ctx context.Context, key, value string) (bool, error)
}

type CodeSender interface {
	Send(ctx context.Context, event domain.NotificationEvent) error
}

type TokenIssuer interface {
	Issue(userID uint, role domain.Role) (string, time.Time, error)
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type RegisterInput struct {
	Phone    string
	Code     string
	Name     string
	Password string
}

type UserUseCase struct {
	users   UserRepository
	codes   CodeStore
	sender  CodeSender
	tokens  TokenIssuer
	logger  *zap.Logger
	codeTTL time.Duration
	newCode func() (string, error)
	now     func() time.Time
}

func NewUserUseCase(
	users UserRepository,
	codes CodeStore,
	sender CodeSender,
	tokens TokenIssuer,
	logger *zap.Logger,
	codeTTL time.Duration,
) *UserUseCase {
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	return &UserUseCase{
		users:   users,
		codes:   codes,
		sender:  sender,
		tokens:  tokens,
		logger:  logger,
		codeTTL: codeTTL,
		newCode: randomCode,
		now:     time.Now,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func codeKey(phone string) string {
	return "register:" + phone
}

func validatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return apperrors.NewValidationError("invalid phone number", apperrors.ValidationDetail{
			Field:   "phone",
			Message: "phone must contain 6 to 20 digits",
		})
	}
	return nil
}

// SendCode stores a fresh one-time code for phone and delivers it. A new code
// replaces any earlier one for the same phone.
func (uc *UserUseCase) SendCode(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if err := validatePhone(phone); err != nil {
		return err
	}

	code, err := uc.newCode()
	if err != nil {
		return apperrors.NewInternalError("generating verification code", err)
	}

	if err := uc.codes.Store(ctx, codeKey(phone), code, uc.codeTTL); err != nil {
		uc.logger.Error("storing verification code", zap.Error(err))
		return apperrors.NewInternalError("storing verification code", err)
	}

	err = uc.sender.Send(ctx, domain.NotificationEvent{
		Phone:   phone,
		Kind:    domain.NotificationVerificationCode,
		Payload: map[string]string{"code": code},
	})
	if err != nil {
		uc.logger.Warn("verification code delivery failed", zap.Error(err))
		return apperrors.NewInternalError("sending verification code", err)
	}

	return nil
}

func (uc *UserUseCase) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Name = strings.TrimSpace(in.Name)

	var details []apperrors.ValidationDetail
	if !phonePattern.MatchString(in.Phone) {
		details = append(details, apperrors.ValidationDetail{Field: "phone", Message: "phone must contain 6 to 20 digits"})
	}
	if in.Code == "" {
		details = append(details, apperrors.ValidationDetail{Field: "code", Message: "code is required"})
	}
	if len(in.Password) < minPasswordLength {
		details = append(details, apperrors.ValidationDetail{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	ok, err := uc.codes.ConsumeIfValid(ctx, codeKey(in.Phone), in.Code)
	if err != nil {
		uc.logger.Error("consuming verification code", zap.Error(err))
		return nil, apperrors.NewInternalError("checking verification code", err)
	}
	if !ok {
		return nil, apperrors.NewValidationError("invalid or expired verification code", apperrors.ValidationDetail{
			Field:   "code",
			Message: "invalid or expired verification code",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewInternalError("hashing password", err)
	}

	name := in.Name
	if name == "" {
		name = in.Phone
	}
	now := uc.now().UTC()
	user := &domain.User{
		Phone:        in.Phone,
		Name:         name,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := uc.users.Insert(ctx, user)
	if err != nil {
		if _, ok := apperrors.IsConflictError(err); ok {
			return nil, err
		}
		uc.logger.Error("inserting user", zap.Error(err))
		return nil, apperrors.NewInternalError("creating account", err)
	}
	user.ID = id

	uc.logger.Info("user registered", zap.Uint("userId", id))
	return uc.issue(user)
}

// Login answers the same InvalidCredentialError for an unknown phone and a
// wrong password.
func (uc *UserUseCase) Login(ctx context.Context, phone, password string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, apperrors.NewValidationError("phone and password are required")
	}

	user, err := uc.users.FindByPhone(ctx, phone)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewInvalidCredentialError("invalid phone or password", nil)
		}
		uc.logger.Error("loading user by phone", zap.Error(err))
		return nil, apperrors.NewInternalError("loading account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewInvalidCredentialError("invalid phone or password", err)
	}
	if !user.Active {
		return nil, apperrors.NewForbiddenError("account is disabled")
	}

	return uc.issue(user)
}

func (uc *UserUseCase) Me(ctx context.Context, actor *domain.Actor) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticatedError("authentication required")
	}

	user, err := uc.users.FindByID(ctx, actor.ID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, err
		}
		uc.logger.Error("loading profile", zap.Uint("userId", actor.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("loading profile", err)
	}
	return user, nil
}

func (uc *UserUseCase) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := uc.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError("issuing token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
