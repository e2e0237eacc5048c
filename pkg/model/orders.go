package model

import "time"

type OrderBucket string

const (
	BucketActive   OrderBucket = "active"
	BucketFinished OrderBucket = "finished"
	BucketPast     OrderBucket = "past"
)

var OrderBuckets = []OrderBucket{BucketActive, BucketFinished, BucketPast}

type OrderEntry struct {
	RentalID      string         `json:"rental_id"`
	Role          string         `json:"role"`
	Status        string         `json:"status"`
	BookingDate   string         `json:"booking_date"`
	BookingHour   int            `json:"booking_hour"`
	ScheduledAt   time.Time      `json:"scheduled_at"`
	DurationHours int            `json:"duration_hours"`
	CreditsUsed   int            `json:"credits_used"`
	Location      RentalLocation `json:"location"`
	Verified      bool           `json:"verified"`
	Counterpart   UserSummary    `json:"counterpart"`
}

type OrderCounts struct {
	Active   int64 `json:"active"`
	Finished int64 `json:"finished"`
	Past     int64 `json:"past"`
}

type UserOrders struct {
	Active   []OrderEntry `json:"active"`
	Finished []OrderEntry `json:"finished"`
	Past     []OrderEntry `json:"past"`
	Counts   OrderCounts  `json:"counts"`
	Step     int          `json:"step"`
	Limit    int          `json:"limit"`
}

// AdminRentalView is a rental enriched with both parties for moderation.
type AdminRentalView struct {
	RentalID      string       `json:"rental_id"`
	Status        string       `json:"status"`
	BookingDate   string       `json:"booking_date"`
	BookingHour   int          `json:"booking_hour"`
	ScheduledAt   time.Time    `json:"scheduled_at"`
	DurationHours int          `json:"duration_hours"`
	CreditsUsed   int          `json:"credits_used"`
	Place         string       `json:"place"`
	Renter        *UserSummary `json:"renter"`
	Host          *UserSummary `json:"host"`
	CreatedAt     time.Time    `json:"created_at"`
}

// RentalFilter narrows admin listings.
type RentalFilter struct {
	Statuses         []string
	City             string
	PresetLocationID string
}

// BucketOf places a rental in the orders view relative to today (YYYY-MM-DD).
// Active rentals whose date has passed count as past.
func BucketOf(r *Rental, today string) OrderBucket {
	switch {
	case r.Status == StatusCompleted:
		return BucketFinished
	case IsActiveStatus(r.Status) && r.BookingDate >= today:
		return BucketActive
	default:
		return BucketPast
	}
}
