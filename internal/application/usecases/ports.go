package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/domain/jukebox"
	"github.com/example/dine-composer/internal/domain/order"
)

// Backend is the restaurant service as the flows see it.
type Backend interface {
	Ping(ctx context.Context) error
	AvailableTables(ctx context.Context, restaurantID int64, at time.Time, floor *int) ([]booking.Table, error)
	CreateBooking(ctx context.Context, key uuid.UUID, req booking.Request) (booking.Confirmation, error)
	Songs(ctx context.Context, q jukebox.CatalogQuery) ([]jukebox.Song, error)
	SubmitOrder(ctx context.Context, key uuid.UUID, sub order.Submission) (order.Receipt, error)
	JukeboxQueue(ctx context.Context, adminID int64) ([]jukebox.Request, error)
}

// History records confirmed submissions. Optional.
type History interface {
	RecordBooking(ctx context.Context, d *booking.Draft, c booking.Confirmation) error
	RecordOrder(ctx context.Context, r order.Receipt) error
}

// CartStore persists order drafts between invocations.
type CartStore interface {
	Load(ctx context.Context, userID, bookingID int64) (order.Draft, error)
	Save(ctx context.Context, userID, bookingID int64, d order.Draft) error
	Clear(ctx context.Context, userID, bookingID int64) error
}
