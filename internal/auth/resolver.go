package auth

import (
	"context"

	"go.uber.org/zap"

	"repairdesk/internal/domain"
	apperrors "repairdesk/internal/errors"
)

type TokenParser interface {
	Parse(token string) (*Claims, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

// Resolver turns an opaque credential into an Actor. Callers only ever see
// generic messages; the reason a credential was refused goes to the log.
type Resolver struct {
	tokens TokenParser
	users  UserFinder
	logger *zap.Logger
}

func NewResolver(tokens TokenParser, users UserFinder, logger *zap.Logger) *Resolver {
	return &Resolver{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, credential string) (*domain.Actor, error) {
	if credential == "" {
		return nil, apperrors.NewUnauthenticatedError("authentication required")
	}

	claims, err := r.tokens.Parse(credential)
	if err != nil {
		r.logger.Info("credential rejected", zap.Error(err))
		return nil, apperrors.NewInvalidCredentialError("invalid or expired credential", err)
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			r.logger.Info("credential subject no longer exists", zap.Uint("userId", claims.UserID))
			return nil, apperrors.NewInvalidCredentialError("invalid or expired credential", err)
		}
		r.logger.Error("loading credential subject", zap.Uint("userId", claims.UserID), zap.Error(err))
		return nil, apperrors.NewInternalError("resolving actor", err)
	}

	if user.Role != claims.Role {
		r.logger.Debug("role changed since token was issued",
			zap.Uint("userId", user.ID),
			zap.String("tokenRole", string(claims.Role)),
			zap.String("currentRole", string(user.Role)),
		)
	}

	return user.Actor(), nil
}

// ResolveOptional treats a missing credential as an anonymous caller and
// returns (nil, nil). A credential that is present must still be valid.
func (r *Resolver) ResolveOptional(ctx context.Context, credential string) (*domain.Actor, error) {
	if credential == "" {
		return nil, nil
	}
	return r.Resolve(ctx, credential)
}
