package usecases

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/dine-composer/internal/domain/jukebox"
	"github.com/example/dine-composer/internal/metrics"
)

// JukeboxQueue fetches the admin's song requests and applies the priority filter.
// Today is the calendar day in Location, the venue's zone.
type JukeboxQueue struct {
	Backend  Backend
	Location *time.Location
	Logger   *zerolog.Logger
	Now      func() time.Time
}

func (u JukeboxQueue) now() time.Time {
	t := time.Now()
	if u.Now != nil {
		t = u.Now()
	}
	if u.Location != nil {
		t = t.In(u.Location)
	}
	return t
}

func (u JukeboxQueue) Execute(ctx context.Context, adminID int64, bucket jukebox.Bucket) ([]jukebox.Request, error) {
	reqs, err := u.Backend.JukeboxQueue(ctx, adminID)
	if err != nil {
		return nil, err
	}
	view := jukebox.Filter(reqs, bucket, u.now(), u.Logger)
	metrics.SetJukeboxQueue(string(bucket), len(view))
	return view, nil
}

// Watch fetches immediately and then on every tick until ctx is done. Fetch
// errors are logged and the loop keeps going.
func (u JukeboxQueue) Watch(ctx context.Context, adminID int64, bucket jukebox.Bucket, every time.Duration, show func([]jukebox.Request)) error {
	if every <= 0 {
		every = 30 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()

	tick := func() {
		if ctx.Err() != nil {
			return
		}
		view, err := u.Execute(ctx, adminID, bucket)
		if err != nil {
			if ctx.Err() == nil && u.Logger != nil {
				u.Logger.Warn().Err(err).Msg("jukebox fetch failed")
			}
			return
		}
		show(view)
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			tick()
		}
	}
}
