package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"repairdesk/internal/domain"
	"repairdesk/internal/dto"
	apperrors "repairdesk/internal/errors"
)

type ctxKey struct{}

func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFromContext returns nil for anonymous requests.
func ActorFromContext(ctx context.Context) *domain.Actor {
	actor, _ := ctx.Value(ctxKey{}).(*domain.Actor)
	return actor
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		// a header that is present but not a bearer token is still a credential
		return header
	}
	return strings.TrimSpace(token)
}

func (r *Resolver) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		actor, err := r.Resolve(req.Context(), BearerToken(req))
		if err != nil {
			r.writeError(w, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithActor(req.Context(), actor)))
	})
}

func (r *Resolver) OptionalActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		actor, err := r.ResolveOptional(req.Context(), BearerToken(req))
		if err != nil {
			r.writeError(w, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithActor(req.Context(), actor)))
	})
}

func (r *Resolver) writeError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	message := "authentication required"

	if ice, ok := apperrors.IsInvalidCredentialError(err); ok {
		message = ice.Message
	} else if _, ok := apperrors.IsInternalError(err); ok {
		status = http.StatusInternalServerError
		message = "an unexpected error occurred"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dto.Fail(message)); err != nil {
		r.logger.Error("failed to encode response", zap.Error(err))
	}
}
