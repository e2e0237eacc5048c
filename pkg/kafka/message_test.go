package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_Build(t *testing.T) {
	msg, err := NewMessage().
		WithKey("rental-1").
		WithEventType("rental.status_changed").
		WithValue(map[string]string{"status": "confirmed"}).
		WithSource("rentals").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "rental-1", msg.Key)
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
	assert.Equal(t, "rental.status_changed", msg.GetEventType())

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "confirmed", decoded["status"])
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{Headers: map[string]string{}}
	assert.Equal(t, 0, msg.GetRetryCount())

	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())

	msg.Headers[HeaderRetryCount] = "junk"
	assert.Equal(t, 0, msg.GetRetryCount())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypeUnknown},
		{name: "network", err: errors.New("dial tcp: Connection Refused"), want: ErrorTypeTransient},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTransient},
		{name: "wrapped kafka error", err: fmt.Errorf("outer: %w", NewTransientError("send", errors.New("x"))), want: ErrorTypeTransient},
		{name: "permanent", err: NewPermanentError("decode", errors.New("bad json")), want: ErrorTypePermanent},
		{name: "unknown text", err: errors.New("something odd"), want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := errors.New("i/o timeout")

	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(errors.New("bad payload"), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}
