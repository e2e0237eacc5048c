package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusInProgress, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusInProgress, false},
		{StatusCancelled, StatusPending, false},
		{StatusConfirmed, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestNoTransitionReentersPending(t *testing.T) {
	for from := range transitions {
		if CanTransition(from, StatusPending) {
			t.Errorf("%s must not lead back to pending", from)
		}
	}
}

func TestStatusesAllowing(t *testing.T) {
	got := StatusesAllowing(StatusCancelled)
	want := []string{StatusPending, StatusConfirmed, StatusInProgress}
	if len(got) != len(want) {
		t.Fatalf("StatusesAllowing(cancelled) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StatusesAllowing(cancelled)[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	completed := StatusesAllowing(StatusCompleted)
	if len(completed) != 2 || completed[0] != StatusConfirmed || completed[1] != StatusInProgress {
		t.Errorf("StatusesAllowing(completed) = %v", completed)
	}
}

func TestRental_PartyRole(t *testing.T) {
	r := &Rental{RenterID: "r1", HostID: "h1"}

	if role, ok := r.PartyRole("r1"); !ok || role != RoleRenter {
		t.Errorf("expected renter role, got %q %v", role, ok)
	}
	if role, ok := r.PartyRole("h1"); !ok || role != RoleHost {
		t.Errorf("expected host role, got %q %v", role, ok)
	}
	if _, ok := r.PartyRole("x"); ok {
		t.Errorf("stranger must not have a role")
	}
	if r.Counterpart("r1") != "h1" || r.Counterpart("h1") != "r1" {
		t.Errorf("Counterpart mismatch")
	}
}

func TestSlotKey(t *testing.T) {
	if got := SlotKey("u1", "2024-06-01", 9); got != "u1:2024-06-01:09" {
		t.Errorf("SlotKey() = %s", got)
	}

	r := &Rental{ID: "rent1", BookingDate: "2024-06-01", BookingHour: 14}
	claim := NewSlotClaim(r, "h1", RoleHost, time.Now())
	if claim.ID != "h1:2024-06-01:14" || claim.RentalID != "rent1" || claim.Role != RoleHost {
		t.Errorf("unexpected claim: %+v", claim)
	}
}

func TestRentalLocation_Place(t *testing.T) {
	tests := []struct {
		loc  RentalLocation
		want string
	}{
		{RentalLocation{City: "Kochi"}, "Kochi"},
		{RentalLocation{City: "Kochi", PresetLocationID: "p1"}, "p1"},
		{RentalLocation{City: "Kochi", PresetLocationID: "p1", PresetLocationName: "Lulu Mall"}, "Lulu Mall"},
	}
	for _, tt := range tests {
		if got := tt.loc.Place(); got != tt.want {
			t.Errorf("Place() = %s, want %s", got, tt.want)
		}
	}
}
