package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"repairdesk/internal/auth"
	"repairdesk/internal/commons"
	"repairdesk/internal/config"
	"repairdesk/internal/infrastructure/logger"
	"repairdesk/internal/infrastructure/metrics"
	"repairdesk/internal/infrastructure/mysql"
	"repairdesk/internal/notification"
	"repairdesk/internal/order"
	"repairdesk/internal/server"
	"repairdesk/internal/upload"
	"repairdesk/internal/user"
	userrepo "repairdesk/internal/user/repository"
	"repairdesk/internal/verification"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "internal/config/config.yaml"
	}
	cfg, err := commons.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, "repairdesk")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	m := metrics.New(prometheus.DefaultRegisterer)

	var closers []io.Closer

	codes, stopSweeper := newCodeStore(cfg, zapLogger, &closers)
	defer stopSweeper()

	sink := newSink(cfg, zapLogger, &closers)
	dispatcher := notification.NewDispatcher(
		sink,
		notification.NewRenderer(cfg.Notification.Templates),
		m,
		zapLogger,
		cfg.Notification.Timeout,
	)

	tokens, err := auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		zapLogger.Fatal("creating token issuer", zap.Error(err))
	}

	users := userrepo.NewMySQLUserRepository(db)
	resolver := auth.NewResolver(tokens, users, zapLogger)

	uploads, err := upload.NewLocalStore(cfg.Upload.Dir, cfg.Upload.PublicPrefix, cfg.Upload.MaxBytes)
	if err != nil {
		zapLogger.Fatal("preparing upload store", zap.Error(err))
	}

	userCtrl := user.NewModule(cfg, users, codes, dispatcher, tokens, zapLogger)
	orderCtrl := order.NewModule(db, cfg, users, dispatcher, m, zapLogger)
	uploadCtrl := upload.NewController(uploads, zapLogger)

	router := server.NewRouter(server.Handlers{
		Users:        userCtrl,
		Orders:       orderCtrl,
		Uploads:      uploadCtrl,
		Resolver:     resolver,
		Metrics:      m,
		DB:           db,
		UploadDir:    cfg.Upload.Dir,
		UploadPrefix: cfg.Upload.PublicPrefix,
	}, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
	}

	dispatcher.Wait()
	for _, c := range closers {
		if err := c.Close(); err != nil {
			zapLogger.Warn("closing resource", zap.Error(err))
		}
	}

	zapLogger.Info("server stopped gracefully")
}

func newCodeStore(cfg *config.Config, zapLogger *zap.Logger, closers *[]io.Closer) (verification.Store, func()) {
	switch cfg.Verification.Driver {
	case "redis":
		store := verification.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			zapLogger.Fatal("connecting to redis", zap.Error(err))
		}
		*closers = append(*closers, store)
		zapLogger.Info("verification codes stored in redis", zap.String("addr", cfg.Redis.Addr))
		return store, func() {}
	case "memory":
		store := verification.NewMemoryStore()
		sweeper := verification.NewSweeper(store, cfg.Verification.SweepSchedule, zapLogger)
		if err := sweeper.Start(); err != nil {
			zapLogger.Fatal("starting verification sweeper", zap.Error(err))
		}
		return store, sweeper.Stop
	default:
		zapLogger.Fatal("unknown verification driver", zap.String("driver", cfg.Verification.Driver))
		return nil, nil
	}
}

func newSink(cfg *config.Config, zapLogger *zap.Logger, closers *[]io.Closer) notification.Sink {
	switch cfg.Notification.Driver {
	case "sms":
		sms := cfg.Notification.SMS
		return notification.NewSMSGateway(sms.BaseURL, sms.APIKey, sms.SignName)
	case "kafka":
		k := cfg.Notification.Kafka
		sink := notification.NewKafkaSink(k.Brokers, k.Topic)
		*closers = append(*closers, sink)
		return sink
	case "log":
		return notification.NewLogSink(zapLogger)
	default:
		zapLogger.Fatal("unknown notification driver", zap.String("driver", cfg.Notification.Driver))
		return nil
	}
}
