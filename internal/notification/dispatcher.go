package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"repairdesk/internal/domain"
)

// Sink delivers one rendered message to a phone number.
type Sink interface {
	Send(ctx context.Context, phone, kind, message string) error
}

type Recorder interface {
	NotificationSent(kind string)
	NotificationFailed(kind string)
}

// Renderer fills per-kind templates with event payload values. Unknown
// placeholders are left as written.
type Renderer struct {
	templates map[string]string
}

func NewRenderer(templates map[string]string) *Renderer {
	copied := make(map[string]string, len(templates))
	for kind, text := range templates {
		copied[kind] = text
	}
	return &Renderer{templates: copied}
}

func (r *Renderer) Render(kind domain.NotificationKind, payload map[string]string) string {
	text, ok := r.templates[string(kind)]
	if !ok {
		return string(kind)
	}
	pairs := make([]string, 0, len(payload)*2)
	for key, value := range payload {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Dispatcher sends notifications in the background. Delivery failures are
// logged and counted, never returned to the caller of Dispatch.
type Dispatcher struct {
	sink     Sink
	renderer *Renderer
	metrics  Recorder
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(sink Sink, renderer *Renderer, metrics Recorder, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		sink:     sink,
		renderer: renderer,
		metrics:  metrics,
		logger:   logger,
		timeout:  timeout,
	}
}

func (d *Dispatcher) Dispatch(event domain.NotificationEvent) {
	if event.Phone == "" {
		d.logger.Warn("notification skipped, no recipient", zap.String("kind", string(event.Kind)))
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification sink panicked",
					zap.String("kind", string(event.Kind)),
					zap.String("orderId", event.Payload["order_id"]),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				if d.metrics != nil {
					d.metrics.NotificationFailed(string(event.Kind))
				}
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.Send(ctx, event); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("kind", string(event.Kind)),
				zap.String("orderId", event.Payload["order_id"]),
				zap.Error(err),
			)
		}
	}()
}

// Send delivers synchronously and reports the sink error.
func (d *Dispatcher) Send(ctx context.Context, event domain.NotificationEvent) error {
	kind := string(event.Kind)
	message := d.renderer.Render(event.Kind, event.Payload)

	if err := d.sink.Send(ctx, event.Phone, kind, message); err != nil {
		if d.metrics != nil {
			d.metrics.NotificationFailed(kind)
		}
		return err
	}

	if d.metrics != nil {
		d.metrics.NotificationSent(kind)
	}
	d.logger.Debug("notification delivered", zap.String("kind", kind))
	return nil
}

// Wait blocks until every dispatched send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
