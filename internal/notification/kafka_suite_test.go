package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

type KafkaSinkSuite struct {
	suite.Suite
	wm   *writerMock
	sink *KafkaSink
}

func (s *KafkaSinkSuite) SetupTest() {
	s.wm = &writerMock{}
	s.sink = newKafkaSinkWithWriter(s.wm, "repairdesk.notifications")
	s.sink.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
}

func (s *KafkaSinkSuite) TestNewKafkaSink_NotNil() {
	sink := NewKafkaSink([]string{"localhost:0"}, "t")
	s.Require().NotNil(sink)
	s.Require().NoError(sink.Close())
}

func (s *KafkaSinkSuite) TestSend_OK() {
	s.wm.
		On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			var value NotificationMessage
			if err := json.Unmarshal(msgs[0].Value, &value); err != nil {
				return false
			}
			return msgs[0].Topic == "repairdesk.notifications" &&
				string(msgs[0].Key) == "13800000000" &&
				value.Kind == "order_completed" &&
				value.Message == "done" &&
				value.SentAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
		})).
		Return(nil).
		Once()

	s.Require().NoError(s.sink.Send(context.Background(), "13800000000", "order_completed", "done"))
	s.wm.AssertExpectations(s.T())
}

func (s *KafkaSinkSuite) TestSend_ErrorWrapped() {
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("boom")).Once()

	err := s.sink.Send(context.Background(), "1", "order_created", "m")
	s.Require().Error(err)
	s.Require().Contains(err.Error(), "kafka publish")
	s.wm.AssertExpectations(s.T())
}

func (s *KafkaSinkSuite) TestClose_WriterWithoutCloser() {
	s.Require().NoError(s.sink.Close())
}

func TestKafkaSinkSuite(t *testing.T) {
	suite.Run(t, new(KafkaSinkSuite))
}
