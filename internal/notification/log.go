package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes notifications to the log instead of delivering them. Used in
// development and when no gateway is configured.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, phone, kind, message string) error {
	s.logger.Info("notification",
		zap.String("phone", phone),
		zap.String("kind", kind),
		zap.String("message", message),
	)
	return nil
}
