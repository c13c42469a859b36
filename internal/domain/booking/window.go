package booking

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/example/dine-composer/internal/internaltypes"
)

const (
	DefaultLeadTime = 2 * time.Hour
	DefaultHorizon  = 10 * 24 * time.Hour

	// LocalLayout is the wall-clock form users type: date and minute, no zone.
	LocalLayout = "2006-01-02 15:04"
)

var (
	ErrNonexistentLocalTime = errors.Mark(errors.New("local time does not exist"), internaltypes.ErrValidation)
	ErrOutsideWindow        = errors.Mark(errors.New("outside booking window"), internaltypes.ErrValidation)
)

// Window is the absolute range a new reservation instant must fall in (inclusive).
type Window struct {
	Earliest time.Time
	Latest   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Earliest) && !t.After(w.Latest)
}

// Resolver computes booking windows. The zero value uses the default lead time and horizon.
type Resolver struct {
	LeadTime time.Duration
	Horizon  time.Duration
}

func (r Resolver) lead() time.Duration {
	if r.LeadTime <= 0 {
		return DefaultLeadTime
	}
	return r.LeadTime
}

func (r Resolver) horizon() time.Duration {
	if r.Horizon <= 0 {
		return DefaultHorizon
	}
	return r.Horizon
}

func (r Resolver) ComputeWindow(now time.Time) Window {
	return Window{
		Earliest: now.Add(r.lead()).UTC(),
		Latest:   now.Add(r.horizon()).UTC(),
	}
}

// ComputeWindow uses the default lead time and horizon.
func ComputeWindow(now time.Time) Window { return Resolver{}.ComputeWindow(now) }

// LocalDateTime holds calendar fields with no zone attached.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// ParseLocal reads "YYYY-MM-DD HH:MM". The fields stay zone-free until normalized.
func ParseLocal(s string) (LocalDateTime, error) {
	t, err := time.Parse(LocalLayout, s)
	if err != nil {
		return LocalDateTime{}, internaltypes.Invalid("invalid date-time %q (want %s)", s, LocalLayout)
	}
	return LocalFields(t), nil
}

// LocalFields reads the wall-clock fields of t in its own location.
func LocalFields(t time.Time) LocalDateTime {
	return LocalDateTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

func (l LocalDateTime) String() string {
	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, 0, 0, time.UTC).Format(LocalLayout)
}

// In interprets the fields in loc. The UTC offset is the one in force at that
// instant, so dates on either side of a DST change get their own offset.
// Wall-clock times skipped by a spring-forward gap are rejected.
func (l LocalDateTime) In(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, 0, 0, loc)
	if LocalFields(t) != l {
		return time.Time{}, errors.Wrapf(ErrNonexistentLocalTime, "%s in %s", l, loc)
	}
	return t.UTC(), nil
}

// NormalizeToAbsolute turns a wall-clock selection into a UTC instant and
// rejects it when it falls outside the window.
func NormalizeToAbsolute(local LocalDateTime, loc *time.Location, w Window) (time.Time, error) {
	at, err := local.In(loc)
	if err != nil {
		return time.Time{}, err
	}
	if err := CheckWindow(at, w); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func CheckWindow(at time.Time, w Window) error {
	if at.Before(w.Earliest) {
		return errors.Wrapf(ErrOutsideWindow, "%s is before the earliest bookable time %s", WireTime(at), WireTime(w.Earliest))
	}
	if at.After(w.Latest) {
		return errors.Wrapf(ErrOutsideWindow, "%s is after the latest bookable time %s", WireTime(at), WireTime(w.Latest))
	}
	return nil
}

// WireTime is the only time format sent to the backend: UTC RFC 3339 ending in Z.
func WireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
