package service

import (
	"context"
	"errors"
	"sync"

	"rentmate/internal/rentals/repository"
	userserrors "rentmate/internal/users/errors"
	usersrepo "rentmate/internal/users/repository"
	"rentmate/pkg/clock"
	"rentmate/pkg/config"
	apperrors "rentmate/pkg/errors"
	"rentmate/pkg/locale"
	"rentmate/pkg/model"
	"rentmate/pkg/sanitizer"
)

type OrdersService interface {
	ListUserOrders(ctx context.Context, caller model.Caller, userID string, step, limit int) (*model.UserOrders, error)
	ListRentals(ctx context.Context, filter model.RentalFilter, step, limit int) ([]model.AdminRentalView, int64, error)
}

type ordersService struct {
	rentals repository.RentalRepository
	users   usersrepo.UserRepository
	clock   clock.Clock
	cfg     *config.Config
}

func NewOrdersService(
	rentals repository.RentalRepository,
	users usersrepo.UserRepository,
	clk clock.Clock,
	cfg *config.Config,
) OrdersService {
	return &ordersService{
		rentals: rentals,
		users:   users,
		clock:   clk,
		cfg:     cfg,
	}
}

type bucketPage struct {
	rentals []*model.Rental
	count   int64
}

func (s *ordersService) ListUserOrders(ctx context.Context, caller model.Caller, userID string, step, limit int) (*model.UserOrders, error) {
	if userID == "" {
		return nil, apperrors.FieldRequired("user_id")
	}
	if !caller.CanActFor(userID) {
		return nil, apperrors.Forbidden("You can only view your own orders")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", userID)
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}

	step = config.NormalizeStep(step)
	limit = config.NormalizeLimit(limit, s.cfg.DefaultPageLimit, s.cfg.MaxPageLimit)
	skip := config.SkipFor(step, limit)
	today := clock.DateIn(s.clock, locale.LocationForPhone(user.Auth.MobileNumber, s.cfg.Location()))

	pages := make(map[model.OrderBucket]*bucketPage, len(model.OrderBuckets))
	for _, b := range model.OrderBuckets {
		pages[b] = &bucketPage{}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, bucket := range model.OrderBuckets {
		page := pages[bucket]
		wg.Add(2)

		go func() {
			defer wg.Done()
			rentals, err := s.rentals.FindForUser(ctx, userID, bucket, today, skip, limit)
			if err != nil {
				s.cfg.Log.Error("Failed to list orders", "user_id", userID, "bucket", bucket, "error", err)
				fail(err)
				return
			}
			page.rentals = rentals
		}()

		go func() {
			defer wg.Done()
			count, err := s.rentals.CountForUser(ctx, userID, bucket, today)
			if err != nil {
				s.cfg.Log.Error("Failed to count orders", "user_id", userID, "bucket", bucket, "error", err)
				fail(err)
				return
			}
			page.count = count
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return nil, apperrors.Internal("Failed to retrieve orders", firstErr)
	}

	var counterpartIDs []string
	for _, page := range pages {
		for _, r := range page.rentals {
			counterpartIDs = append(counterpartIDs, r.Counterpart(userID))
		}
	}
	counterparts, err := s.users.FindByIDs(ctx, counterpartIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to load counterparts", err)
	}

	entries := func(b model.OrderBucket) []model.OrderEntry {
		out := make([]model.OrderEntry, 0, len(pages[b].rentals))
		for _, r := range pages[b].rentals {
			out = append(out, orderEntry(r, userID, counterparts))
		}
		return out
	}

	return &model.UserOrders{
		Active:   entries(model.BucketActive),
		Finished: entries(model.BucketFinished),
		Past:     entries(model.BucketPast),
		Counts: model.OrderCounts{
			Active:   pages[model.BucketActive].count,
			Finished: pages[model.BucketFinished].count,
			Past:     pages[model.BucketPast].count,
		},
		Step:  step,
		Limit: limit,
	}, nil
}

func orderEntry(r *model.Rental, userID string, users map[string]*model.User) model.OrderEntry {
	role, _ := r.PartyRole(userID)
	counterpartID := r.Counterpart(userID)

	summary := model.UserSummary{UserID: counterpartID}
	if u, ok := users[counterpartID]; ok {
		summary = u.Summary()
	}

	return model.OrderEntry{
		RentalID:      r.ID,
		Role:          role,
		Status:        r.Status,
		BookingDate:   r.BookingDate,
		BookingHour:   r.BookingHour,
		ScheduledAt:   r.ScheduledAt,
		DurationHours: r.DurationHours,
		CreditsUsed:   r.CreditsUsed,
		Location:      r.Location,
		Verified:      r.OtpStage.Verified,
		Counterpart:   summary,
	}
}

// ListRentals is the admin listing, each rental enriched with both parties.
func (s *ordersService) ListRentals(ctx context.Context, filter model.RentalFilter, step, limit int) ([]model.AdminRentalView, int64, error) {
	filter.City = sanitizer.NormalizeCity(filter.City)
	filter.PresetLocationID = sanitizer.TrimAndNormalize(filter.PresetLocationID)

	limit = config.NormalizeLimit(limit, s.cfg.DefaultPageLimit, s.cfg.MaxPageLimit)
	skip := config.SkipFor(step, limit)

	var rentals []*model.Rental
	var total int64
	var errFind, errCount error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		rentals, errFind = s.rentals.FindFiltered(ctx, filter, skip, limit)
	}()

	go func() {
		defer wg.Done()
		total, errCount = s.rentals.CountFiltered(ctx, filter)
	}()

	wg.Wait()
	if err := errors.Join(errFind, errCount); err != nil {
		s.cfg.Log.Error("Failed to list rentals", "statuses", filter.Statuses, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve rentals", err)
	}

	ids := make([]string, 0, len(rentals)*2)
	for _, r := range rentals {
		ids = append(ids, r.RenterID, r.HostID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to load rental parties", err)
	}

	views := make([]model.AdminRentalView, 0, len(rentals))
	for _, r := range rentals {
		views = append(views, model.AdminRentalView{
			RentalID:      r.ID,
			Status:        r.Status,
			BookingDate:   r.BookingDate,
			BookingHour:   r.BookingHour,
			ScheduledAt:   r.ScheduledAt,
			DurationHours: r.DurationHours,
			CreditsUsed:   r.CreditsUsed,
			Place:         r.Location.Place(),
			Renter:        adminSummary(users[r.RenterID]),
			Host:          adminSummary(users[r.HostID]),
			CreatedAt:     r.CreatedAt,
		})
	}

	return views, total, nil
}

func adminSummary(u *model.User) *model.UserSummary {
	if u == nil {
		return nil
	}
	s := u.AdminSummary()
	return &s
}
