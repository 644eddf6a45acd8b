package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"repairdesk/internal/auth"
	"repairdesk/internal/infrastructure/metrics"
	ordercontroller "repairdesk/internal/order/controller"
	"repairdesk/internal/upload"
	usercontroller "repairdesk/internal/user/controller"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Users    *usercontroller.UserController
	Orders   *ordercontroller.OrderController
	Uploads  *upload.Controller
	Resolver *auth.Resolver
	Metrics  *metrics.Metrics
	DB       Pinger

	UploadDir    string
	UploadPrefix string
}

func NewRouter(h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}

	r.Get("/healthz", health(h.DB, logger))
	r.Handle("/metrics", promhttp.Handler())

	if h.UploadDir != "" && h.UploadPrefix != "" {
		fs := http.StripPrefix(h.UploadPrefix, http.FileServer(http.Dir(h.UploadDir)))
		r.Handle(h.UploadPrefix+"/*", fs)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", h.Users.Routes(h.Resolver.RequireActor))

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.Resolver.RequireActor)
			h.Orders.Routes(r)
		})

		r.With(h.Resolver.OptionalActor).Post("/uploads", h.Uploads.HandleUpload)
	})

	return r
}

func health(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("request",
				zap.String("requestId", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
