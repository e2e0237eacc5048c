package events

import (
	"context"
	"fmt"
	"time"

	"rentmate/pkg/kafka"
	"rentmate/pkg/logger"
	"rentmate/pkg/middleware"
	"rentmate/pkg/model"
	"rentmate/pkg/sanitizer"
)

const (
	EventOtpIssued     = "rental.otp_issued"
	EventStatusChanged = "rental.status_changed"

	SchemaVersion = "1"
	Source        = "rentals"
)

// OtpRecipient is one party's copy of the handshake codes.
type OtpRecipient struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	MobileNumber string `json:"mobile_number"`
	Otp          string `json:"otp"`
	CommonOtp    string `json:"common_otp"`
}

type OtpIssued struct {
	RentalID    string         `json:"rental_id"`
	BookingDate string         `json:"booking_date"`
	BookingHour int            `json:"booking_hour"`
	Place       string         `json:"place"`
	Recipients  []OtpRecipient `json:"recipients"`
}

type StatusChanged struct {
	RentalID    string    `json:"rental_id"`
	RenterID    string    `json:"renter_id"`
	HostID      string    `json:"host_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	BookingDate string    `json:"booking_date"`
	BookingHour int       `json:"booking_hour"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	OtpIssued(ctx context.Context, rental *model.Rental, renter, host *model.User) error
	StatusChanged(ctx context.Context, rental *model.Rental, from string) error
}

// MessagePublisher is the part of kafka.Producer the publisher needs.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer MessagePublisher
	log      *logger.Logger
}

func NewKafkaPublisher(producer MessagePublisher, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, log: log}
}

func NewOtpIssued(rental *model.Rental, renter, host *model.User) OtpIssued {
	return OtpIssued{
		RentalID:    rental.ID,
		BookingDate: rental.BookingDate,
		BookingHour: rental.BookingHour,
		Place:       rental.Location.Place(),
		Recipients: []OtpRecipient{
			recipient(renter, model.RoleRenter, rental.OtpStage.RenterOtp, rental.OtpStage.CommonOtp),
			recipient(host, model.RoleHost, rental.OtpStage.HostOtp, rental.OtpStage.CommonOtp),
		},
	}
}

func recipient(u *model.User, role, otp, common string) OtpRecipient {
	phone := sanitizer.NormalizePhone(u.Auth.MobileNumber)
	if phone == "" {
		phone = u.Auth.MobileNumber
	}
	return OtpRecipient{
		UserID:       u.ID,
		Role:         role,
		MobileNumber: phone,
		Otp:          otp,
		CommonOtp:    common,
	}
}

func (p *kafkaPublisher) OtpIssued(ctx context.Context, rental *model.Rental, renter, host *model.User) error {
	return p.publish(ctx, rental.ID, EventOtpIssued, NewOtpIssued(rental, renter, host))
}

func (p *kafkaPublisher) StatusChanged(ctx context.Context, rental *model.Rental, from string) error {
	return p.publish(ctx, rental.ID, EventStatusChanged, StatusChanged{
		RentalID:    rental.ID,
		RenterID:    rental.RenterID,
		HostID:      rental.HostID,
		From:        from,
		To:          rental.Status,
		BookingDate: rental.BookingDate,
		BookingHour: rental.BookingHour,
		At:          rental.UpdatedAt,
	})
}

func (p *kafkaPublisher) publish(ctx context.Context, key, eventType string, payload any) error {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithValue(payload).
		Build()
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.log.Debug("Rental event published", "event_type", eventType, "rental_id", key, "event_id", msg.GetEventID())
	return nil
}

type noopPublisher struct{}

// Noop is used when notifications are disabled.
func Noop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) OtpIssued(context.Context, *model.Rental, *model.User, *model.User) error {
	return nil
}

func (noopPublisher) StatusChanged(context.Context, *model.Rental, string) error {
	return nil
}
