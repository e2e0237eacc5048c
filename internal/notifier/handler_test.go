package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentmate/internal/rentals/events"
	"rentmate/pkg/kafka"
	"rentmate/pkg/logger"
	"rentmate/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, n Notification) error {
	return m.Called(ctx, n).Error(0)
}

func otpMessage(t *testing.T) kafka.Message {
	t.Helper()

	rental := &model.Rental{
		ID:          "r1",
		BookingDate: "2024-06-01",
		BookingHour: 10,
		Location:    model.RentalLocation{City: "Kochi", PresetLocationName: "Marine Drive"},
		OtpStage:    model.OtpStage{RenterOtp: "1111", HostOtp: "2222", CommonOtp: "3333"},
	}
	renter := &model.User{ID: "u1", Auth: model.UserAuth{MobileNumber: "9876543210"}}
	host := &model.User{ID: "u2", Auth: model.UserAuth{MobileNumber: "+919876543211"}}

	msg, err := kafka.NewMessage().
		WithKey(rental.ID).
		WithEventType(events.EventOtpIssued).
		WithValue(events.NewOtpIssued(rental, renter, host)).
		Build()
	require.NoError(t, err)
	return msg
}

func TestHandle_OtpIssued(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.UserID == "u1" && n.MobileNumber == "+919876543210"
	})).Return(nil).Once()
	sender.On("Send", mock.Anything, mock.MatchedBy(func(n Notification) bool {
		return n.UserID == "u2" && n.MobileNumber == "+919876543211"
	})).Return(nil).Once()

	h := NewHandler(sender, logger.Discard())
	require.NoError(t, h.Handle(context.Background(), otpMessage(t)))

	sender.AssertExpectations(t)
	first := sender.Calls[0].Arguments.Get(1).(Notification)
	assert.Contains(t, first.Text, "1111")
	assert.Contains(t, first.Text, "3333")
	assert.NotContains(t, first.Text, "2222", "a party only sees its own code")
}

func TestHandle_SendFailureIsTransient(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("gateway down"))

	err := NewHandler(sender, logger.Discard()).Handle(context.Background(), otpMessage(t))
	require.Error(t, err)

	var kerr *kafka.KafkaError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, kafka.ErrorTypeTransient, kerr.Type)
}

func TestHandle_RetryOnlyResendsFailedRecipients(t *testing.T) {
	sender := new(mockSender)
	renter := mock.MatchedBy(func(n Notification) bool { return n.UserID == "u1" })
	host := mock.MatchedBy(func(n Notification) bool { return n.UserID == "u2" })

	sender.On("Send", mock.Anything, renter).Return(nil).Once()
	sender.On("Send", mock.Anything, host).Return(errors.New("gateway down")).Once()
	sender.On("Send", mock.Anything, host).Return(nil).Once()

	h := NewHandler(sender, logger.Discard())
	msg := otpMessage(t)

	require.Error(t, h.Handle(context.Background(), msg), "host failure is reported")
	require.NoError(t, h.Handle(context.Background(), msg))

	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 3)
}

func TestHandle_DeliveryMemoryExpires(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	h := NewHandler(sender, logger.Discard())
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	msg := otpMessage(t)
	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	sender.AssertNumberOfCalls(t, "Send", 2)

	now = now.Add(2 * deliveredTTL)
	h.markDelivered("other")
	require.NoError(t, h.Handle(context.Background(), msg))
	sender.AssertNumberOfCalls(t, "Send", 4)
}

func TestHandle_BadPayloadIsPermanent(t *testing.T) {
	tests := []struct {
		name  string
		event string
		value []byte
	}{
		{name: "otp not json", event: events.EventOtpIssued, value: []byte("{")},
		{name: "otp no recipients", event: events.EventOtpIssued, value: []byte(`{"rental_id":"r1"}`)},
		{name: "status not json", event: events.EventStatusChanged, value: []byte("[")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := kafka.NewMessage().WithKey("r1").WithEventType(tt.event).WithRawValue(tt.value).Build()
			require.NoError(t, err)

			err = NewHandler(new(mockSender), logger.Discard()).Handle(context.Background(), msg)
			var kerr *kafka.KafkaError
			require.ErrorAs(t, err, &kerr)
			assert.Equal(t, kafka.ErrorTypePermanent, kerr.Type)
		})
	}
}

func TestHandle_OtherEvents(t *testing.T) {
	sender := new(mockSender)
	h := NewHandler(sender, logger.Discard())

	status, err := kafka.NewMessage().
		WithKey("r1").
		WithEventType(events.EventStatusChanged).
		WithValue(events.StatusChanged{RentalID: "r1", From: "confirmed", To: "cancelled"}).
		Build()
	require.NoError(t, err)
	assert.NoError(t, h.Handle(context.Background(), status))

	unknown, err := kafka.NewMessage().WithKey("r1").WithEventType("rental.other").WithRawValue([]byte("x")).Build()
	require.NoError(t, err)
	assert.NoError(t, h.Handle(context.Background(), unknown))

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(logger.Discard())
	assert.NoError(t, s.Send(context.Background(), Notification{RentalID: "r1", MobileNumber: "+919876543210", Text: "hi"}))
}
