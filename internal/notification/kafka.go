package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NotificationMessage is the value published for each notification. The
// phone number is the message key so one recipient stays on one partition.
type NotificationMessage struct {
	Phone   string    `json:"phone"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

type KafkaSink struct {
	w     messageWriter
	topic string
	now   func() time.Time
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.Hash{},
		},
		topic: topic,
		now:   time.Now,
	}
}

func newKafkaSinkWithWriter(w messageWriter, topic string) *KafkaSink {
	return &KafkaSink{w: w, topic: topic, now: time.Now}
}

func (s *KafkaSink) Send(ctx context.Context, phone, kind, message string) error {
	value, err := json.Marshal(NotificationMessage{
		Phone:   phone,
		Kind:    kind,
		Message: message,
		SentAt:  s.now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "encode notification")
	}

	if err := s.w.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(phone),
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

func (s *KafkaSink) Close() error {
	if c, ok := s.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
