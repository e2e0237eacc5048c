package model

import (
	"fmt"
	"slices"
	"time"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"

	RoleRenter = "renter"
	RoleHost   = "host"
)

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusInProgress}

var transitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func IsActiveStatus(status string) bool {
	return slices.Contains(ActiveStatuses, status)
}

// CanTransition reports whether from → to is a forward edge of the rental
// lifecycle. Same-state moves are not edges.
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// StatusesAllowing lists every status from which to is reachable in one step.
func StatusesAllowing(to string) []string {
	var out []string
	for _, from := range []string{StatusPending, StatusConfirmed, StatusInProgress} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

type Rental struct {
	ID            string         `json:"id" bson:"_id,omitempty"`
	RenterID      string         `json:"renter_id" bson:"renter_id"`
	HostID        string         `json:"host_id" bson:"host_id"`
	Location      RentalLocation `json:"location" bson:"location"`
	BookingDate   string         `json:"booking_date" bson:"booking_date"`
	BookingHour   int            `json:"booking_hour" bson:"booking_hour"`
	ScheduledAt   time.Time      `json:"scheduled_at" bson:"scheduled_at"`
	DurationHours int            `json:"duration_hours" bson:"duration_hours"`
	CreditsUsed   int            `json:"credits_used" bson:"credits_used"`
	Status        string         `json:"status" bson:"status"`
	OtpStage      OtpStage       `json:"otp_stage" bson:"otp_stage"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt   *time.Time     `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancelReason  string         `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	RefundedAt    *time.Time     `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
}

type RentalLocation struct {
	City               string `json:"city" bson:"city" validate:"required,min=2,max=100"`
	PresetLocationID   string `json:"preset_location_id,omitempty" bson:"preset_location_id,omitempty" validate:"omitempty,max=100"`
	PresetLocationName string `json:"preset_location_name,omitempty" bson:"preset_location_name,omitempty" validate:"omitempty,max=200"`
}

// Place is the human label for where the meeting happens.
func (l RentalLocation) Place() string {
	if l.PresetLocationName != "" {
		return l.PresetLocationName
	}
	if l.PresetLocationID != "" {
		return l.PresetLocationID
	}
	return l.City
}

// OtpStage codes never leave the service in API responses.
type OtpStage struct {
	RenterOtp  string     `json:"-" bson:"renter_otp"`
	HostOtp    string     `json:"-" bson:"host_otp"`
	CommonOtp  string     `json:"-" bson:"common_otp"`
	Verified   bool       `json:"verified" bson:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	VerifiedBy string     `json:"verified_by,omitempty" bson:"verified_by,omitempty"`
}

// PartyRole returns the role userID plays in the rental.
func (r *Rental) PartyRole(userID string) (string, bool) {
	switch userID {
	case r.RenterID:
		return RoleRenter, true
	case r.HostID:
		return RoleHost, true
	default:
		return "", false
	}
}

func (r *Rental) Counterpart(userID string) string {
	if userID == r.RenterID {
		return r.HostID
	}
	return r.RenterID
}

func (r *Rental) Ref(role string) BookingRef {
	return BookingRef{
		BookingDate: r.BookingDate,
		BookingHour: r.BookingHour,
		RentalID:    r.ID,
		Role:        role,
		Status:      r.Status,
	}
}

type ConfirmRentalInput struct {
	RenterID      string         `json:"renter_id" validate:"required,mongodb"`
	HostID        string         `json:"host_id" validate:"required,mongodb,nefield=RenterID"`
	ScheduledAt   *time.Time     `json:"scheduled_at,omitempty"`
	BookingDate   string         `json:"booking_date" validate:"required,booking_date"`
	BookingHour   *int           `json:"booking_hour" validate:"required,min=0,max=23"`
	DurationHours int            `json:"duration_hours" validate:"omitempty,min=1,max=24"`
	CreditsUsed   int            `json:"credits_used" validate:"min=0"`
	Location      RentalLocation `json:"location"`
}

// Warning is a best-effort secondary write that failed after the primary
// commit. It is logged and handed back to the caller.
type Warning struct {
	Step   string `json:"step"`
	UserID string `json:"user_id,omitempty"`
	Error  string `json:"error"`
}

type ConfirmResult struct {
	Rental   *Rental   `json:"rental"`
	Warnings []Warning `json:"warnings,omitempty"`
}

type RentalTransitionResult struct {
	Rental   *Rental   `json:"rental"`
	Refunded int       `json:"refunded,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// SlotKey is the unique identity of one user's hour on one date.
func SlotKey(userID, bookingDate string, bookingHour int) string {
	return fmt.Sprintf("%s:%s:%02d", userID, bookingDate, bookingHour)
}

// SlotClaim is held by each party for as long as the rental is active.
// Its _id is SlotKey, so a second active booking for the same user and slot
// fails on the unique index.
type SlotClaim struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	RentalID    string    `bson:"rental_id" json:"rental_id"`
	Role        string    `bson:"role" json:"role"`
	BookingDate string    `bson:"booking_date" json:"booking_date"`
	BookingHour int       `bson:"booking_hour" json:"booking_hour"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

func NewSlotClaim(r *Rental, userID, role string, now time.Time) *SlotClaim {
	return &SlotClaim{
		ID:          SlotKey(userID, r.BookingDate, r.BookingHour),
		UserID:      userID,
		RentalID:    r.ID,
		Role:        role,
		BookingDate: r.BookingDate,
		BookingHour: r.BookingHour,
		CreatedAt:   now,
	}
}
