package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rentmate/internal/rentals/events"
	"rentmate/pkg/kafka"
	"rentmate/pkg/logger"
	"rentmate/pkg/sanitizer"
)

// Notification is one message to one phone.
type Notification struct {
	RentalID     string
	UserID       string
	MobileNumber string
	Text         string
}

// Sender delivers a notification. The SMS gateway is out of scope, so the
// only implementation is LogSender.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.log.Info("Notification delivered",
		"rental_id", n.RentalID,
		"user_id", n.UserID,
		"to", sanitizer.MaskPhone(n.MobileNumber),
		"text", n.Text,
	)
	return nil
}

// deliveredTTL bounds how long a delivery is remembered. The consumer
// retries in place, so this only has to outlive one message's retries.
const deliveredTTL = time.Hour

type Handler struct {
	sender Sender
	log    *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	delivered map[string]time.Time
}

func NewHandler(sender Sender, log *logger.Logger) *Handler {
	return &Handler{
		sender:    sender,
		log:       log,
		now:       time.Now,
		delivered: make(map[string]time.Time),
	}
}

// Handle is a kafka.MessageHandler. Undecodable payloads are permanent
// failures and go to the DLQ; delivery failures are retried.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.GetEventType() {
	case events.EventOtpIssued:
		var ev events.OtpIssued
		if err := msg.DecodeValue(&ev); err != nil {
			return kafka.NewPermanentError("decode otp_issued", err)
		}
		return h.otpIssued(ctx, ev)

	case events.EventStatusChanged:
		var ev events.StatusChanged
		if err := msg.DecodeValue(&ev); err != nil {
			return kafka.NewPermanentError("decode status_changed", err)
		}
		h.log.Info("Rental status changed",
			"rental_id", ev.RentalID,
			"from", ev.From,
			"to", ev.To,
			"booking_date", ev.BookingDate,
			"booking_hour", ev.BookingHour,
		)
		return nil

	default:
		h.log.Debug("Ignoring unknown event", "event_type", msg.GetEventType(), "key", msg.Key)
		return nil
	}
}

// otpIssued sends to every recipient even if one fails. Recipients already
// reached are remembered, so a retried message only goes to those still owed.
func (h *Handler) otpIssued(ctx context.Context, ev events.OtpIssued) error {
	if ev.RentalID == "" || len(ev.Recipients) == 0 {
		return kafka.NewPermanentError("otp_issued without rental or recipients", nil)
	}

	var errs []error
	for _, r := range ev.Recipients {
		if r.MobileNumber == "" {
			h.log.Warn("Skipping OTP recipient without phone", "rental_id", ev.RentalID, "user_id", r.UserID)
			continue
		}

		key := ev.RentalID + ":" + r.UserID + ":" + r.Otp
		if h.wasDelivered(key) {
			continue
		}

		err := h.sender.Send(ctx, Notification{
			RentalID:     ev.RentalID,
			UserID:       r.UserID,
			MobileNumber: r.MobileNumber,
			Text:         otpText(ev, r),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Role, err))
			continue
		}
		h.markDelivered(key)
	}

	if len(errs) > 0 {
		return kafka.NewTransientError("send otp", errors.Join(errs...))
	}
	return nil
}

func (h *Handler) wasDelivered(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.delivered[key]
	return ok
}

func (h *Handler) markDelivered(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for k, at := range h.delivered {
		if now.Sub(at) > deliveredTTL {
			delete(h.delivered, k)
		}
	}
	h.delivered[key] = now
}

func otpText(ev events.OtpIssued, r events.OtpRecipient) string {
	text := fmt.Sprintf("Your RentMate code is %s (shared code %s) for %s at %02d:00", r.Otp, r.CommonOtp, ev.BookingDate, ev.BookingHour)
	if ev.Place != "" {
		text += ", " + ev.Place
	}
	return text
}
