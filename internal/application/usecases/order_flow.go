package usecases

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/dine-composer/internal/domain/order"
	"github.com/example/dine-composer/internal/internaltypes"
)

var ErrNothingToSubmit = errors.Mark(errors.New("nothing to submit"), internaltypes.ErrValidation)

// OrderFlow edits saved carts and submits them against a confirmed booking.
type OrderFlow struct {
	Backend Backend
	Carts   CartStore
	History History
	Logger  *zerolog.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func (f *OrderFlow) log() *zerolog.Logger {
	if f.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return f.Logger
}

func (f *OrderFlow) store() (CartStore, error) {
	if f.Carts == nil {
		return nil, errors.WithHint(errors.New("no cart store configured"), "set REDIS_ADDR")
	}
	return f.Carts, nil
}

// Edit loads the saved draft, applies fn and saves the result.
func (f *OrderFlow) Edit(ctx context.Context, userID, bookingID int64, fn func(*order.Draft) error) (order.Draft, error) {
	s, err := f.store()
	if err != nil {
		return order.Draft{}, err
	}
	d, err := s.Load(ctx, userID, bookingID)
	if err != nil {
		return order.Draft{}, err
	}
	if err := fn(&d); err != nil {
		return order.Draft{}, err
	}
	if len(d.Cart) == 0 && d.Dedication == "" {
		return d, s.Clear(ctx, userID, bookingID)
	}
	return d, s.Save(ctx, userID, bookingID, d)
}

func (f *OrderFlow) Load(ctx context.Context, userID, bookingID int64) (order.Draft, error) {
	s, err := f.store()
	if err != nil {
		return order.Draft{}, err
	}
	return s.Load(ctx, userID, bookingID)
}

func (f *OrderFlow) Discard(ctx context.Context, userID, bookingID int64) error {
	s, err := f.store()
	if err != nil {
		return err
	}
	return s.Clear(ctx, userID, bookingID)
}

// Submit sends the decomposed cart. An empty decomposition is rejected without
// a call. On success the cart is emptied and the saved copy removed.
func (f *OrderFlow) Submit(ctx context.Context, userID, bookingID int64, d *order.Draft) (order.Receipt, error) {
	if userID <= 0 {
		return order.Receipt{}, internaltypes.Invalid("user id is required")
	}
	if bookingID <= 0 {
		return order.Receipt{}, internaltypes.Invalid("booking id is required")
	}
	if d == nil {
		return order.Receipt{}, internaltypes.Invalid("no order draft")
	}
	items := order.Decompose(d.Cart)
	if len(items) == 0 {
		return order.Receipt{}, ErrNothingToSubmit
	}

	if !f.acquire(bookingID) {
		return order.Receipt{}, ErrSubmissionInFlight
	}
	defer f.release(bookingID)

	sub := order.Submission{
		UserID:         userID,
		BookingID:      bookingID,
		Items:          items,
		DedicationNote: strings.TrimSpace(d.Dedication),
	}
	logger := f.log().With().Int64("booking_id", bookingID).Int("line_items", len(items)).Logger()

	r, err := f.Backend.SubmitOrder(ctx, uuid.New(), sub)
	if err != nil {
		logger.Warn().Err(err).Msg("order failed")
		return order.Receipt{}, err
	}
	logger.Info().Int64("order_id", r.OrderID).Float64("total", r.TotalPrice).Msg("order placed")

	d.Cart.Clear()
	d.Dedication = ""
	if f.Carts != nil {
		if err := f.Carts.Clear(ctx, userID, bookingID); err != nil {
			logger.Warn().Err(err).Msg("could not clear saved cart")
		}
	}
	if f.History != nil {
		if err := f.History.RecordOrder(ctx, r); err != nil {
			logger.Warn().Err(err).Msg("could not record order history")
		}
	}
	return r, nil
}

func (f *OrderFlow) acquire(bookingID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight == nil {
		f.inFlight = make(map[int64]struct{})
	}
	if _, busy := f.inFlight[bookingID]; busy {
		return false
	}
	f.inFlight[bookingID] = struct{}{}
	return true
}

func (f *OrderFlow) release(bookingID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, bookingID)
}
