package model

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	Auth            UserAuth         `json:"-" bson:"auth"`
	Profile         UserProfile      `json:"profile" bson:"profile"`
	Interests       []string         `json:"interests,omitempty" bson:"interests,omitempty"`
	PresetLocations []PresetLocation `json:"preset_locations,omitempty" bson:"preset_locations,omitempty"`
	Availability    map[string][]int `json:"availability,omitempty" bson:"availability,omitempty"`
	Credits         Credits          `json:"credits" bson:"credits"`
	Status          UserStatus       `json:"status" bson:"status"`
	IsOnRent        bool             `json:"is_on_rent" bson:"is_on_rent"`
	ActiveBookings  []BookingRef     `json:"active_bookings,omitempty" bson:"active_bookings,omitempty"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" bson:"updated_at"`
}

type UserAuth struct {
	MobileNumber string `bson:"mobile_number"`
}

type UserProfile struct {
	Name            string    `json:"name" bson:"name"`
	Bio             string    `json:"bio,omitempty" bson:"bio,omitempty"`
	Gender          string    `json:"gender,omitempty" bson:"gender,omitempty"`
	Age             int       `json:"age,omitempty" bson:"age,omitempty"`
	City            string    `json:"city,omitempty" bson:"city,omitempty"`
	Images          []string  `json:"images,omitempty" bson:"images,omitempty"`
	PreferredGender []string  `json:"preferred_gender,omitempty" bson:"preferred_gender,omitempty"`
	AgeRange        *AgeRange `json:"age_range,omitempty" bson:"age_range,omitempty"`
}

type AgeRange struct {
	Min int `json:"min" bson:"min"`
	Max int `json:"max" bson:"max"`
}

type PresetLocation struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

type Credits struct {
	Balance int `json:"balance" bson:"balance"`
	Spent   int `json:"spent" bson:"spent"`
}

type UserStatus struct {
	Online   bool       `json:"online" bson:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty" bson:"last_seen,omitempty"`
}

// BookingRef is the denormalized copy of a rental kept on each party.
type BookingRef struct {
	BookingDate string `json:"booking_date" bson:"booking_date"`
	BookingHour int    `json:"booking_hour" bson:"booking_hour"`
	RentalID    string `json:"rental_id" bson:"rental_id"`
	Role        string `json:"role" bson:"role"`
	Status      string `json:"status" bson:"status"`
}

func (u *User) PrimaryImage() string {
	if len(u.Profile.Images) == 0 {
		return ""
	}
	return u.Profile.Images[0]
}

// IsAvailable reports whether the weekly availability covers hour on weekday.
func (u *User) IsAvailable(weekday string, hour int) bool {
	for _, h := range u.Availability[weekday] {
		if h == hour {
			return true
		}
	}
	return false
}

// HasActiveBooking reports whether any active booking ref other than
// ignoreRentalID is still attached to the user.
func (u *User) HasActiveBooking(ignoreRentalID string) bool {
	for _, ref := range u.ActiveBookings {
		if ref.RentalID != ignoreRentalID && IsActiveStatus(ref.Status) {
			return true
		}
	}
	return false
}

func (u *User) CandidateSummary() CandidateSummary {
	return CandidateSummary{
		ID:              u.ID,
		Name:            u.Profile.Name,
		Age:             u.Profile.Age,
		Image:           u.PrimaryImage(),
		Bio:             u.Profile.Bio,
		Interests:       u.Interests,
		PresetLocations: u.PresetLocations,
		Availability:    u.Availability,
		LastSeen:        u.Status.LastSeen,
	}
}

func (u *User) Summary() UserSummary {
	return UserSummary{UserID: u.ID, Name: u.Profile.Name, Image: u.PrimaryImage()}
}

// UserSummary is the counterpart view attached to orders and admin listings.
type UserSummary struct {
	UserID          string           `json:"user_id"`
	Name            string           `json:"name"`
	Image           string           `json:"image"`
	City            string           `json:"city,omitempty"`
	PresetLocations []PresetLocation `json:"preset_locations,omitempty"`
	MobileNumber    string           `json:"mobile_number,omitempty"`
	IsOnRent        *bool            `json:"is_on_rent,omitempty"`
	LastSeen        *time.Time       `json:"last_seen,omitempty"`
}

// AdminSummary extends Summary with the contact fields only admins see.
func (u *User) AdminSummary() UserSummary {
	s := u.Summary()
	onRent := u.IsOnRent
	s.City = u.Profile.City
	s.PresetLocations = u.PresetLocations
	s.MobileNumber = u.Auth.MobileNumber
	s.IsOnRent = &onRent
	s.LastSeen = u.Status.LastSeen
	return s
}

// WeekdayKey maps a YYYY-MM-DD date to its availability key ("monday", ...).
func WeekdayKey(date string) (string, error) {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", fmt.Errorf("invalid booking_date %q: %w", date, err)
	}
	return strings.ToLower(t.Weekday().String()), nil
}

// Caller is the authenticated identity a service call acts for.
type Caller struct {
	UserID string
	Admin  bool
}

func (c Caller) CanActFor(userID string) bool {
	return c.Admin || (c.UserID != "" && c.UserID == userID)
}
