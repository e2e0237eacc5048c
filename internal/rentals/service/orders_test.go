package service

import (
	"context"
	"errors"
	"testing"

	"rentmate/internal/testutil/memstore"
	"rentmate/pkg/clock"
	apperrors "rentmate/pkg/errors"
	"rentmate/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrders(store *memstore.Store) {
	store.PutUser(newUser(renterID, "Asha", "Kochi", 10))
	store.PutUser(newUser(hostID, "Meera", "Kochi", 0))
	store.PutUser(newUser(otherID, "Nila", "Munnar", 0))

	rentals := []*model.Rental{
		{ID: "active-future", BookingDate: "2024-06-03", BookingHour: 9, Status: model.StatusConfirmed},
		{ID: "active-today", BookingDate: "2024-06-01", BookingHour: 18, Status: model.StatusInProgress},
		{ID: "finished", BookingDate: "2024-05-20", BookingHour: 10, Status: model.StatusCompleted},
		{ID: "cancelled", BookingDate: "2024-06-02", BookingHour: 11, Status: model.StatusCancelled},
		{ID: "stale", BookingDate: "2024-05-30", BookingHour: 12, Status: model.StatusConfirmed},
	}
	for _, r := range rentals {
		r.RenterID = renterID
		r.HostID = hostID
		r.Location = model.RentalLocation{City: "Kochi"}
		store.PutRental(r)
	}

	store.PutRental(&model.Rental{
		ID:          "unrelated",
		RenterID:    hostID,
		HostID:      otherID,
		BookingDate: "2024-06-04",
		Status:      model.StatusPending,
		Location:    model.RentalLocation{City: "Munnar", PresetLocationID: "lake"},
	})
}

func newOrdersFixture(t *testing.T) (*memstore.Store, OrdersService) {
	t.Helper()
	store := memstore.New()
	seedOrders(store)
	return store, NewOrdersService(store.Rentals(), store.Users(), clock.Fixed(testNow), testConfig())
}

func rentalIDs(entries []model.OrderEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.RentalID)
	}
	return ids
}

func TestListUserOrders_Buckets(t *testing.T) {
	_, svc := newOrdersFixture(t)

	orders, err := svc.ListUserOrders(context.Background(), model.Caller{UserID: renterID}, renterID, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"active-future", "active-today"}, rentalIDs(orders.Active))
	assert.Equal(t, []string{"finished"}, rentalIDs(orders.Finished))
	assert.Equal(t, []string{"cancelled", "stale"}, rentalIDs(orders.Past))
	assert.Equal(t, model.OrderCounts{Active: 2, Finished: 1, Past: 2}, orders.Counts)
	assert.Equal(t, 1, orders.Step)
	assert.Equal(t, 20, orders.Limit)

	entry := orders.Active[0]
	assert.Equal(t, model.RoleRenter, entry.Role)
	assert.Equal(t, hostID, entry.Counterpart.UserID)
	assert.Equal(t, "Meera", entry.Counterpart.Name)
	assert.Empty(t, entry.Counterpart.MobileNumber)
}

func TestListUserOrders_HostView(t *testing.T) {
	_, svc := newOrdersFixture(t)

	orders, err := svc.ListUserOrders(context.Background(), model.Caller{UserID: hostID}, hostID, 1, 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"unrelated", "active-future", "active-today"}, rentalIDs(orders.Active))
	assert.Equal(t, model.RoleHost, orders.Active[1].Role)
	assert.Equal(t, "Asha", orders.Active[1].Counterpart.Name)
	assert.Equal(t, model.RoleRenter, orders.Active[0].Role)
	assert.Equal(t, "Nila", orders.Active[0].Counterpart.Name)
}

func TestListUserOrders_Pagination(t *testing.T) {
	_, svc := newOrdersFixture(t)

	orders, err := svc.ListUserOrders(context.Background(), model.Caller{UserID: renterID}, renterID, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"active-today"}, rentalIDs(orders.Active))
	assert.Empty(t, orders.Finished)
	assert.Equal(t, []string{"stale"}, rentalIDs(orders.Past))
	assert.Equal(t, int64(2), orders.Counts.Active, "counts ignore paging")
	assert.Equal(t, 2, orders.Step)
	assert.Equal(t, 1, orders.Limit)
}

func TestListUserOrders_Access(t *testing.T) {
	_, svc := newOrdersFixture(t)
	ctx := context.Background()

	_, err := svc.ListUserOrders(ctx, model.Caller{UserID: otherID}, renterID, 1, 10)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = svc.ListUserOrders(ctx, model.Caller{UserID: otherID, Admin: true}, renterID, 1, 10)
	assert.NoError(t, err)

	_, err = svc.ListUserOrders(ctx, model.Caller{Admin: true}, "665f1c2e9b1e8a00123456ff", 1, 10)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = svc.ListUserOrders(ctx, model.Caller{Admin: true}, "", 1, 10)
	assertCode(t, err, apperrors.CodeValidation)
}

func TestListUserOrders_StoreFailure(t *testing.T) {
	store, svc := newOrdersFixture(t)
	store.Fail["CountForUser"] = errors.New("cursor killed")

	_, err := svc.ListUserOrders(context.Background(), model.Caller{UserID: renterID}, renterID, 1, 10)
	assertCode(t, err, apperrors.CodeInternal)
}

func TestListRentals(t *testing.T) {
	_, svc := newOrdersFixture(t)
	ctx := context.Background()

	views, total, err := svc.ListRentals(ctx, model.RentalFilter{Statuses: model.ActiveStatuses, City: " kochi "}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, views, 2)
	assert.Equal(t, "stale", views[0].RentalID)
	assert.Equal(t, "Kochi", views[0].Place)
	require.NotNil(t, views[0].Renter)
	assert.Equal(t, "+919876543210", views[0].Renter.MobileNumber)
	require.NotNil(t, views[0].Host)
	assert.Equal(t, "Meera", views[0].Host.Name)

	views, total, err = svc.ListRentals(ctx, model.RentalFilter{Statuses: []string{model.StatusPending}}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, views, 1)
	assert.Equal(t, "unrelated", views[0].RentalID)
	assert.Equal(t, "lake", views[0].Place)

	views, total, err = svc.ListRentals(ctx, model.RentalFilter{Statuses: model.ActiveStatuses, PresetLocationID: "nowhere"}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, views)
}
