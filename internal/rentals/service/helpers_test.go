package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"rentmate/internal/rentals/validator"
	"rentmate/internal/testutil/memstore"
	"rentmate/pkg/clock"
	"rentmate/pkg/config"
	"rentmate/pkg/logger"
	"rentmate/pkg/model"

	"github.com/stretchr/testify/require"
)

const (
	renterID = "665f1c2e9b1e8a0012345601"
	hostID   = "665f1c2e9b1e8a0012345602"
	otherID  = "665f1c2e9b1e8a0012345603"
)

// 06:00 UTC is 11:30 in Kolkata, so "today" is 2024-06-01 for Indian numbers.
var testNow = time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		DefaultMatchLimit: 3,
		MaxMatchLimit:     50,
		DefaultPageLimit:  20,
		MaxPageLimit:      100,
		OtpDigits:         4,
		RefundOnCancel:    true,
		DefaultTimezone:   "Asia/Kolkata",
		InitiateLockTTL:   10 * time.Second,
		Log:               logger.Discard(),
	}
}

func newUser(id, name, city string, balance int) *model.User {
	return &model.User{
		ID:      id,
		Auth:    model.UserAuth{MobileNumber: "+919876543210"},
		Profile: model.UserProfile{Name: name, City: city, Gender: "female", Age: 27},
		Credits: model.Credits{Balance: balance},
	}
}

type recordedEvent struct {
	kind     string
	rentalID string
	from     string
	status   string
}

type recordingPublisher struct {
	mu        sync.Mutex
	events    []recordedEvent
	otpErr    error
	statusErr error
}

func (p *recordingPublisher) OtpIssued(_ context.Context, rental *model.Rental, _, _ *model.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.otpErr != nil {
		return p.otpErr
	}
	p.events = append(p.events, recordedEvent{kind: "otp_issued", rentalID: rental.ID, status: rental.Status})
	return nil
}

func (p *recordingPublisher) StatusChanged(_ context.Context, rental *model.Rental, from string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.statusErr != nil {
		return p.statusErr
	}
	p.events = append(p.events, recordedEvent{kind: "status_changed", rentalID: rental.ID, from: from, status: rental.Status})
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}

type ledgerFixture struct {
	store     *memstore.Store
	publisher *recordingPublisher
	cfg       *config.Config
	ledger    RentalLedger
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	store := memstore.New()
	store.PutUser(newUser(renterID, "Asha", "Kochi", 10))
	store.PutUser(newUser(hostID, "Meera", "Kochi", 0))

	pub := &recordingPublisher{}
	cfg := testConfig()
	ledger := NewRentalLedger(
		store.Rentals(),
		store.Claims(),
		store.Users(),
		store.Tx(),
		pub,
		validator.NewRentalValidator(cfg.Log),
		clock.Fixed(testNow),
		cfg,
	)

	return &ledgerFixture{store: store, publisher: pub, cfg: cfg, ledger: ledger}
}

func confirmInput(date string, hour, credits int) *model.ConfirmRentalInput {
	h := hour
	return &model.ConfirmRentalInput{
		RenterID:    renterID,
		HostID:      hostID,
		BookingDate: date,
		BookingHour: &h,
		CreditsUsed: credits,
		Location:    model.RentalLocation{City: " Kochi "},
	}
}

// confirmed books renterID with hostID and returns the stored rental.
func (f *ledgerFixture) confirmed(t *testing.T, date string, hour, credits int) *model.Rental {
	t.Helper()
	res, err := f.ledger.Confirm(context.Background(), confirmInput(date, hour, credits))
	require.NoError(t, err)
	return f.store.Rental(res.Rental.ID)
}
