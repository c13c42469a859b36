package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/domain/jukebox"
	"github.com/example/dine-composer/internal/internaltypes"
)

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateConfirmed  State = "confirmed"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
)

var ErrSubmissionInFlight = errors.Mark(errors.New("submission already in flight"), internaltypes.ErrValidation)

// BookingOutcome reports where a submission ended and how it got there.
type BookingOutcome struct {
	State        State
	Trail        []State
	Request      booking.Request
	Confirmation booking.Confirmation
}

// BookingFlow drives one booking from draft to confirmation. Validation
// failures never reach the backend; backend failures are not retried.
type BookingFlow struct {
	Backend  Backend
	History  History
	Resolver booking.Resolver
	Location *time.Location
	Logger   *zerolog.Logger
	Now      func() time.Time

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func (f *BookingFlow) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *BookingFlow) loc() *time.Location {
	if f.Location != nil {
		return f.Location
	}
	return time.Local
}

func (f *BookingFlow) log() *zerolog.Logger {
	if f.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return f.Logger
}

// Window is recomputed from the current time on every call.
func (f *BookingFlow) Window() booking.Window {
	return f.Resolver.ComputeWindow(f.now())
}

// SetTime parses a wall-clock "YYYY-MM-DD HH:MM" in the flow's zone and stores
// the absolute instant on the draft.
func (f *BookingFlow) SetTime(d *booking.Draft, local string) error {
	l, err := booking.ParseLocal(local)
	if err != nil {
		return err
	}
	at, err := booking.NormalizeToAbsolute(l, f.loc(), f.Window())
	if err != nil {
		return err
	}
	d.At = at
	return nil
}

// Availability fetches tables for the draft's time and floor. A changed
// filter clears the draft's table selection first.
func (f *BookingFlow) Availability(ctx context.Context, d *booking.Draft, floor *int) ([]booking.Table, bool, error) {
	if d.At.IsZero() {
		return nil, false, internaltypes.Invalid("choose a reservation time first")
	}
	if d.Tables == nil {
		d.Tables = booking.NewTableSelection()
	}
	cleared := d.Tables.SetFilter(booking.AvailabilityFilter{At: d.At, Floor: floor})
	tables, err := f.Backend.AvailableTables(ctx, d.RestaurantID, d.At, floor)
	if err != nil {
		return nil, cleared, err
	}
	return tables, cleared, nil
}

// SongChoices lists the songs the draft may request.
func (f *BookingFlow) SongChoices(ctx context.Context, d *booking.Draft, artist string) ([]jukebox.Song, error) {
	day := f.now().In(f.loc()).Weekday()
	if !d.At.IsZero() {
		day = d.At.In(f.loc()).Weekday()
	}
	return f.Backend.Songs(ctx, jukebox.SongSource(d.Celebratory(), day, artist))
}

func (f *BookingFlow) acquire(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight == nil {
		f.inFlight = make(map[uuid.UUID]struct{})
	}
	if _, busy := f.inFlight[id]; busy {
		return false
	}
	f.inFlight[id] = struct{}{}
	return true
}

func (f *BookingFlow) release(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, id)
}

// Submit validates the draft and, when valid, sends it. The returned error is
// nil only for StateConfirmed.
func (f *BookingFlow) Submit(ctx context.Context, d *booking.Draft) (BookingOutcome, error) {
	out := BookingOutcome{State: StateIdle, Trail: []State{StateIdle}}
	move := func(s State) {
		out.State = s
		out.Trail = append(out.Trail, s)
	}

	if d == nil {
		move(StateRejected)
		return out, internaltypes.Invalid("no booking draft")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if !f.acquire(d.ID) {
		move(StateRejected)
		return out, ErrSubmissionInFlight
	}
	defer f.release(d.ID)

	logger := f.log().With().Str("draft", d.ID.String()).Logger()

	move(StateValidating)
	req, err := booking.Build(d, f.Window())
	if err != nil {
		move(StateRejected)
		logger.Info().Err(err).Msg("booking rejected locally")
		return out, err
	}
	out.Request = req

	move(StateSubmitting)
	conf, err := f.Backend.CreateBooking(ctx, d.ID, req)
	if err != nil {
		move(StateFailed)
		logger.Warn().Err(err).Str("operation", string(req.Operation())).Msg("booking failed")
		return out, err
	}
	out.Confirmation = conf
	move(StateConfirmed)
	logger.Info().Int64("booking_id", conf.BookingID).Bool("master", conf.Master).Msg("booking confirmed")

	if f.History != nil {
		if err := f.History.RecordBooking(ctx, d, conf); err != nil {
			logger.Warn().Err(err).Msg("could not record booking history")
		}
	}
	return out, nil
}
