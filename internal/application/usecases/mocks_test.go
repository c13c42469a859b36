package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/domain/jukebox"
	"github.com/example/dine-composer/internal/domain/order"
)

type mockBackend struct{ mock.Mock }

func (m *mockBackend) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockBackend) AvailableTables(ctx context.Context, restaurantID int64, at time.Time, floor *int) ([]booking.Table, error) {
	args := m.Called(ctx, restaurantID, at, floor)
	tables, _ := args.Get(0).([]booking.Table)
	return tables, args.Error(1)
}

func (m *mockBackend) CreateBooking(ctx context.Context, key uuid.UUID, req booking.Request) (booking.Confirmation, error) {
	args := m.Called(ctx, key, req)
	return args.Get(0).(booking.Confirmation), args.Error(1)
}

func (m *mockBackend) Songs(ctx context.Context, q jukebox.CatalogQuery) ([]jukebox.Song, error) {
	args := m.Called(ctx, q)
	songs, _ := args.Get(0).([]jukebox.Song)
	return songs, args.Error(1)
}

func (m *mockBackend) SubmitOrder(ctx context.Context, key uuid.UUID, sub order.Submission) (order.Receipt, error) {
	args := m.Called(ctx, key, sub)
	return args.Get(0).(order.Receipt), args.Error(1)
}

func (m *mockBackend) JukeboxQueue(ctx context.Context, adminID int64) ([]jukebox.Request, error) {
	args := m.Called(ctx, adminID)
	reqs, _ := args.Get(0).([]jukebox.Request)
	return reqs, args.Error(1)
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) RecordBooking(ctx context.Context, d *booking.Draft, c booking.Confirmation) error {
	return m.Called(ctx, d, c).Error(0)
}

func (m *mockHistory) RecordOrder(ctx context.Context, r order.Receipt) error {
	return m.Called(ctx, r).Error(0)
}

// memCarts is an in-memory CartStore.
type memCarts struct {
	drafts map[[2]int64]order.Draft
}

func newMemCarts() *memCarts { return &memCarts{drafts: map[[2]int64]order.Draft{}} }

func (m *memCarts) Load(_ context.Context, userID, bookingID int64) (order.Draft, error) {
	d, ok := m.drafts[[2]int64{userID, bookingID}]
	if !ok {
		return order.Draft{Cart: order.Cart{}}, nil
	}
	return d, nil
}

func (m *memCarts) Save(_ context.Context, userID, bookingID int64, d order.Draft) error {
	m.drafts[[2]int64{userID, bookingID}] = d
	return nil
}

func (m *memCarts) Clear(_ context.Context, userID, bookingID int64) error {
	delete(m.drafts, [2]int64{userID, bookingID})
	return nil
}
