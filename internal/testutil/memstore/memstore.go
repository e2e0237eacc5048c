// Package memstore is an in-memory stand-in for the Mongo repositories,
// used by service and handler tests. Transactions snapshot the whole store
// and roll it back when the callback fails.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	rentalserrors "rentmate/internal/rentals/errors"
	"rentmate/internal/rentals/repository"
	userserrors "rentmate/internal/users/errors"
	mongotx "rentmate/pkg/db/mongo"
	"rentmate/pkg/model"
)

type Store struct {
	mu      sync.Mutex
	users   map[string]*model.User
	rentals map[string]*model.Rental
	claims  map[string]*model.SlotClaim
	nextID  int

	// Fail makes the named operation (e.g. "PushActiveBooking") return the
	// given error.
	Fail map[string]error
	// Calls counts operations by name.
	Calls map[string]int
}

func New() *Store {
	return &Store{
		users:   make(map[string]*model.User),
		rentals: make(map[string]*model.Rental),
		claims:  make(map[string]*model.SlotClaim),
		Fail:    make(map[string]error),
		Calls:   make(map[string]int),
	}
}

func (s *Store) Users() *Users                { return &Users{s: s} }
func (s *Store) Rentals() *Rentals            { return &Rentals{s: s} }
func (s *Store) Claims() *Claims              { return &Claims{s: s} }
func (s *Store) Tx() mongotx.TransactionManager { return &txManager{s: s} }

// begin locks the store and records the call. The caller must unlock.
func (s *Store) begin(op string) error {
	s.mu.Lock()
	s.Calls[op]++
	return s.Fail[op]
}

func (s *Store) PutUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

func (s *Store) User(id string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (s *Store) PutRental(r *model.Rental) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.newID()
	}
	cp := *r
	s.rentals[r.ID] = &cp
}

func (s *Store) Rental(id string) *model.Rental {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rentals[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (s *Store) RentalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rentals)
}

func (s *Store) ClaimIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.claims))
	for id := range s.claims {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) PutClaim(c *model.SlotClaim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.claims[c.ID] = &cp
}

func (s *Store) newID() string {
	s.nextID++
	return fmt.Sprintf("%024x", s.nextID)
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	cp.ActiveBookings = slices.Clone(u.ActiveBookings)
	return &cp
}

type snapshot struct {
	users   map[string]*model.User
	rentals map[string]*model.Rental
	claims  map[string]*model.SlotClaim
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		users:   make(map[string]*model.User, len(s.users)),
		rentals: make(map[string]*model.Rental, len(s.rentals)),
		claims:  make(map[string]*model.SlotClaim, len(s.claims)),
	}
	for k, v := range s.users {
		snap.users[k] = cloneUser(v)
	}
	for k, v := range s.rentals {
		cp := *v
		snap.rentals[k] = &cp
	}
	for k, v := range s.claims {
		cp := *v
		snap.claims[k] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.rentals = snap.rentals
	s.claims = snap.claims
}

type txManager struct {
	s  *Store
	mu sync.Mutex
}

// ExecuteTransaction serializes transactions and rolls back on error.
func (t *txManager) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.s.mu.Lock()
	t.s.Calls["ExecuteTransaction"]++
	t.s.mu.Unlock()

	snap := t.s.snapshot()
	if err := fn(ctx); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

// Users implements the user repository.
type Users struct{ s *Store }

func (r *Users) FindByID(ctx context.Context, id string) (*model.User, error) {
	err := r.s.begin("FindUserByID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	u, ok := r.s.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	err := r.s.begin("FindUsersByIDs")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

// FindCandidates applies the same semantics as the Mongo candidate filter.
func (r *Users) FindCandidates(ctx context.Context, q model.CandidateQuery) ([]*model.User, error) {
	err := r.s.begin("FindCandidates")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var matched []*model.User
	for _, u := range r.s.users {
		if MatchesCandidate(u, q) {
			matched = append(matched, cloneUser(u))
		}
	}

	slices.SortFunc(matched, func(a, b *model.User) int {
		if q.SortByLastSeen {
			if c := lastSeen(b).Compare(lastSeen(a)); c != 0 {
				return c
			}
		}
		return strings.Compare(a.ID, b.ID)
	})

	if q.Skip >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[q.Skip:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func lastSeen(u *model.User) time.Time {
	if u.Status.LastSeen == nil {
		return time.Time{}
	}
	return *u.Status.LastSeen
}

func MatchesCandidate(u *model.User, q model.CandidateQuery) bool {
	if q.City != "" && !strings.EqualFold(u.Profile.City, q.City) {
		return false
	}
	if len(q.Genders) > 0 && !slices.ContainsFunc(q.Genders, func(g string) bool {
		return strings.EqualFold(g, u.Profile.Gender)
	}) {
		return false
	}
	if q.AgeRange != nil {
		if q.AgeRange.Min > 0 && u.Profile.Age < q.AgeRange.Min {
			return false
		}
		if q.AgeRange.Max > 0 && u.Profile.Age > q.AgeRange.Max {
			return false
		}
	}
	if q.PresetLocationID != "" || q.PresetLocationName != "" {
		if !slices.ContainsFunc(u.PresetLocations, func(l model.PresetLocation) bool {
			return (q.PresetLocationID != "" && l.ID == q.PresetLocationID) ||
				(q.PresetLocationName != "" && strings.EqualFold(l.Name, q.PresetLocationName))
		}) {
			return false
		}
	}
	if q.Weekday != "" && q.Hour != nil && !u.IsAvailable(q.Weekday, *q.Hour) {
		return false
	}
	return !slices.Contains(q.ExcludeIDs, u.ID)
}

func (r *Users) DebitCredits(ctx context.Context, id string, amount int) (*model.Credits, error) {
	err := r.s.begin("DebitCredits")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	u, ok := r.s.users[id]
	if !ok || u.Credits.Balance < amount {
		return nil, userserrors.ErrInsufficientCredits
	}
	u.Credits.Balance -= amount
	u.Credits.Spent += amount
	credits := u.Credits
	return &credits, nil
}

func (r *Users) RefundCredits(ctx context.Context, id string, amount int) error {
	return r.update("RefundCredits", id, func(u *model.User) {
		u.Credits.Balance += amount
		u.Credits.Spent -= amount
	})
}

func (r *Users) PushActiveBooking(ctx context.Context, id string, ref model.BookingRef) error {
	return r.update("PushActiveBooking", id, func(u *model.User) {
		for _, b := range u.ActiveBookings {
			if b.RentalID == ref.RentalID {
				return
			}
		}
		u.ActiveBookings = append(u.ActiveBookings, ref)
	})
}

func (r *Users) SetActiveBookingStatus(ctx context.Context, id, rentalID, status string) error {
	return r.update("SetActiveBookingStatus", id, func(u *model.User) {
		for i := range u.ActiveBookings {
			if u.ActiveBookings[i].RentalID == rentalID {
				u.ActiveBookings[i].Status = status
				return
			}
		}
	})
}

func (r *Users) SetOnRent(ctx context.Context, id string, onRent bool) error {
	return r.update("SetOnRent", id, func(u *model.User) {
		u.IsOnRent = onRent
	})
}

func (r *Users) update(op, id string, fn func(u *model.User)) error {
	err := r.s.begin(op)
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}

	u, ok := r.s.users[id]
	if !ok {
		return userserrors.ErrNotFound
	}
	fn(u)
	return nil
}

// Rentals implements the rental repository.
type Rentals struct{ s *Store }

func (r *Rentals) Create(ctx context.Context, rental *model.Rental) error {
	err := r.s.begin("CreateRental")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}

	rental.ID = r.s.newID()
	cp := *rental
	r.s.rentals[rental.ID] = &cp
	return nil
}

func (r *Rentals) FindByID(ctx context.Context, id string) (*model.Rental, error) {
	err := r.s.begin("FindRentalByID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rental, ok := r.s.rentals[id]
	if !ok {
		return nil, rentalserrors.ErrNotFound
	}
	cp := *rental
	return &cp, nil
}

func (r *Rentals) FindActiveAt(ctx context.Context, userID, bookingDate string, bookingHour int) (*model.Rental, error) {
	err := r.s.begin("FindActiveAt")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, rental := range r.s.rentals {
		if (rental.RenterID == userID || rental.HostID == userID) &&
			rental.BookingDate == bookingDate &&
			rental.BookingHour == bookingHour &&
			model.IsActiveStatus(rental.Status) {
			cp := *rental
			return &cp, nil
		}
	}
	return nil, rentalserrors.ErrNotFound
}

func (r *Rentals) UpdateStatus(ctx context.Context, id string, change repository.StatusChange) (*model.Rental, error) {
	err := r.s.begin("UpdateStatus")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rental, ok := r.s.rentals[id]
	if !ok {
		return nil, rentalserrors.ErrNotFound
	}
	if !slices.Contains(change.From, rental.Status) {
		return nil, rentalserrors.ErrStatusChanged
	}

	at := change.At
	rental.Status = change.To
	rental.UpdatedAt = at
	switch change.To {
	case model.StatusCompleted:
		rental.CompletedAt = &at
	case model.StatusCancelled:
		rental.CancelledAt = &at
		if change.Reason != "" {
			rental.CancelReason = change.Reason
		}
	}
	if change.Verified {
		rental.OtpStage.Verified = true
		rental.OtpStage.VerifiedAt = &at
		rental.OtpStage.VerifiedBy = change.VerifiedBy
	}
	if change.Refunded {
		rental.RefundedAt = &at
	}

	cp := *rental
	return &cp, nil
}

func (r *Rentals) FindForUser(ctx context.Context, userID string, bucket model.OrderBucket, today string, skip int64, limit int) ([]*model.Rental, error) {
	err := r.s.begin("FindForUser")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	matched := r.selectLocked(func(x *model.Rental) bool {
		return (x.RenterID == userID || x.HostID == userID) && model.BucketOf(x, today) == bucket
	})
	slices.SortFunc(matched, func(a, b *model.Rental) int {
		if c := strings.Compare(b.BookingDate, a.BookingDate); c != 0 {
			return c
		}
		return b.BookingHour - a.BookingHour
	})
	return page(matched, skip, limit), nil
}

func (r *Rentals) CountForUser(ctx context.Context, userID string, bucket model.OrderBucket, today string) (int64, error) {
	err := r.s.begin("CountForUser")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	matched := r.selectLocked(func(x *model.Rental) bool {
		return (x.RenterID == userID || x.HostID == userID) && model.BucketOf(x, today) == bucket
	})
	return int64(len(matched)), nil
}

func (r *Rentals) FindFiltered(ctx context.Context, filter model.RentalFilter, skip int64, limit int) ([]*model.Rental, error) {
	err := r.s.begin("FindFiltered")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	matched := r.selectLocked(func(x *model.Rental) bool { return matchesFilter(x, filter) })
	slices.SortFunc(matched, func(a, b *model.Rental) int {
		if c := strings.Compare(a.BookingDate, b.BookingDate); c != 0 {
			return c
		}
		return a.BookingHour - b.BookingHour
	})
	return page(matched, skip, limit), nil
}

func (r *Rentals) CountFiltered(ctx context.Context, filter model.RentalFilter) (int64, error) {
	err := r.s.begin("CountFiltered")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	matched := r.selectLocked(func(x *model.Rental) bool { return matchesFilter(x, filter) })
	return int64(len(matched)), nil
}

func (r *Rentals) selectLocked(keep func(*model.Rental) bool) []*model.Rental {
	var out []*model.Rental
	for _, x := range r.s.rentals {
		if keep(x) {
			cp := *x
			out = append(out, &cp)
		}
	}
	return out
}

func matchesFilter(r *model.Rental, f model.RentalFilter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if f.City != "" && !strings.EqualFold(r.Location.City, f.City) {
		return false
	}
	return f.PresetLocationID == "" || r.Location.PresetLocationID == f.PresetLocationID
}

func page(rentals []*model.Rental, skip int64, limit int) []*model.Rental {
	if skip >= int64(len(rentals)) {
		return nil
	}
	rentals = rentals[skip:]
	if limit > 0 && len(rentals) > limit {
		rentals = rentals[:limit]
	}
	return rentals
}

// Claims implements the slot claim repository.
type Claims struct{ s *Store }

func (r *Claims) Create(ctx context.Context, claim *model.SlotClaim) error {
	err := r.s.begin("CreateClaim")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}

	if _, taken := r.s.claims[claim.ID]; taken {
		return fmt.Errorf("%w: %s", rentalserrors.ErrSlotTaken, claim.ID)
	}
	cp := *claim
	r.s.claims[claim.ID] = &cp
	return nil
}

func (r *Claims) DeleteByRental(ctx context.Context, rentalID string) error {
	err := r.s.begin("DeleteClaims")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}

	for id, c := range r.s.claims {
		if c.RentalID == rentalID {
			delete(r.s.claims, id)
		}
	}
	return nil
}

func (r *Claims) ClaimedUserIDs(ctx context.Context, bookingDate string, bookingHour int) ([]string, error) {
	err := r.s.begin("ClaimedUserIDs")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, c := range r.s.claims {
		if c.BookingDate == bookingDate && c.BookingHour == bookingHour {
			ids = append(ids, c.UserID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
