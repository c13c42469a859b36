package jukebox

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Request is one queued song request as the backend reports it.
type Request struct {
	ID          int64  `json:"id"`
	Requester   string `json:"requester"`
	Table       string `json:"tableName"`
	SongTitle   string `json:"songTitle"`
	ScheduledAt string `json:"reservationTime"`
	CoinTier    string `json:"coinCategory"`
	Dedication  string `json:"dedicationNote,omitempty"`
}

type Song struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Day    string `json:"day,omitempty"`
}

type Bucket string

const (
	Today  Bucket = "today"
	Future Bucket = "future"
)

func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(strings.ToLower(strings.TrimSpace(s))) {
	case Today:
		return Today, true
	case Future:
		return Future, true
	}
	return "", false
}

// TierRank orders coin tiers. Unknown tiers rank 0.
func TierRank(tier string) int {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "platinum":
		return 3
	case "diamond":
		return 2
	case "gold":
		return 1
	}
	return 0
}

var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseScheduled reads a scheduled instant. Values without an offset are read in loc.
func ParseScheduled(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type scheduled struct {
	req Request
	at  time.Time
}

// Filter keeps the requests in bucket and orders them by scheduled instant,
// then coin tier from highest, then id. Today is the calendar day of now in
// now's location; Future is everything from the next midnight on. Requests
// whose instant cannot be read are dropped and logged.
func Filter(requests []Request, bucket Bucket, now time.Time, logger *zerolog.Logger) []Request {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	loc := now.Location()
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	kept := make([]scheduled, 0, len(requests))
	for _, r := range requests {
		at, ok := ParseScheduled(r.ScheduledAt, loc)
		if !ok {
			logger.Warn().
				Int64("request_id", r.ID).
				Str("scheduled_at", r.ScheduledAt).
				Msg("skipping jukebox request with unreadable time")
			continue
		}
		switch bucket {
		case Today:
			if at.Before(dayStart) || !at.Before(dayEnd) {
				continue
			}
		case Future:
			if at.Before(dayEnd) {
				continue
			}
		default:
			continue
		}
		kept = append(kept, scheduled{req: r, at: at})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		if ra, rb := TierRank(a.req.CoinTier), TierRank(b.req.CoinTier); ra != rb {
			return ra > rb
		}
		return a.req.ID < b.req.ID
	})

	out := make([]Request, len(kept))
	for i, k := range kept {
		out[i] = k.req
	}
	return out
}

// CatalogQuery says which song catalogue to offer and how to narrow it.
type CatalogQuery struct {
	All    bool
	Day    time.Weekday
	Artist string
}

// SongSource picks the catalogue for a new booking. A celebratory booking gets
// the full catalogue instead of the weekday theme; the artist filter applies to both.
func SongSource(celebratory bool, day time.Weekday, artist string) CatalogQuery {
	return CatalogQuery{
		All:    celebratory,
		Day:    day,
		Artist: strings.TrimSpace(artist),
	}
}

// MatchArtist narrows songs to those whose artist contains substr, case-insensitively.
func MatchArtist(songs []Song, substr string) []Song {
	substr = strings.ToLower(strings.TrimSpace(substr))
	if substr == "" {
		return songs
	}
	out := make([]Song, 0, len(songs))
	for _, s := range songs {
		if strings.Contains(strings.ToLower(s.Artist), substr) {
			out = append(out, s)
		}
	}
	return out
}
