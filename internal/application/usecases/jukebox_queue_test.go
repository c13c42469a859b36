package usecases

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/dine-composer/internal/domain/jukebox"
)

func TestJukeboxQueueExecute(t *testing.T) {
	backend := &mockBackend{}
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	backend.On("JukeboxQueue", mock.Anything, int64(3)).Return([]jukebox.Request{
		{ID: 1, ScheduledAt: "2026-10-19T10:00:00Z", CoinTier: "Gold"},
		{ID: 2, ScheduledAt: "2026-10-19T10:00:00Z", CoinTier: "Platinum"},
		{ID: 3, ScheduledAt: "2026-10-19T09:00:00Z", CoinTier: "Gold"},
		{ID: 4, ScheduledAt: "2026-10-22T09:00:00Z", CoinTier: "Gold"},
	}, nil)

	u := JukeboxQueue{Backend: backend, Now: func() time.Time { return now }}
	today, err := u.Execute(context.Background(), 3, jukebox.Today)
	require.NoError(t, err)
	require.Len(t, today, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{today[0].ID, today[1].ID, today[2].ID})

	future, err := u.Execute(context.Background(), 3, jukebox.Future)
	require.NoError(t, err)
	require.Len(t, future, 1)
	assert.Equal(t, int64(4), future[0].ID)
}

func TestJukeboxQueueUsesVenueZone(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	backend := &mockBackend{}
	backend.On("JukeboxQueue", mock.Anything, int64(3)).Return([]jukebox.Request{
		{ID: 1, ScheduledAt: "2026-10-20T02:00:00Z", CoinTier: "Gold"}, // 19:00 on the 19th in LA
		{ID: 2, ScheduledAt: "2026-10-19 20:30:00", CoinTier: "Gold"},  // no offset: venue time
		{ID: 3, ScheduledAt: "2026-10-20T08:00:00Z", CoinTier: "Gold"}, // 01:00 on the 20th in LA
	}, nil)

	// 16:00 in LA, already the next day in UTC.
	now := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
	u := JukeboxQueue{Backend: backend, Location: la, Now: func() time.Time { return now }}

	today, err := u.Execute(context.Background(), 3, jukebox.Today)
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, int64(1), today[0].ID)
	assert.Equal(t, int64(2), today[1].ID)

	future, err := u.Execute(context.Background(), 3, jukebox.Future)
	require.NoError(t, err)
	require.Len(t, future, 1)
	assert.Equal(t, int64(3), future[0].ID)
}

func TestJukeboxQueueWatch(t *testing.T) {
	backend := &mockBackend{}
	backend.On("JukeboxQueue", mock.Anything, int64(3)).Return(nil, errors.New("offline")).Once()
	backend.On("JukeboxQueue", mock.Anything, int64(3)).Return([]jukebox.Request{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shown int32
	u := JukeboxQueue{Backend: backend}
	err := u.Watch(ctx, 3, jukebox.Today, 5*time.Millisecond, func([]jukebox.Request) {
		if atomic.AddInt32(&shown, 1) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), atomic.LoadInt32(&shown))
}

func TestPingBackend(t *testing.T) {
	backend := &mockBackend{}
	backend.On("Ping", mock.Anything).Return(nil).Once()
	require.NoError(t, PingBackend{Backend: backend}.Execute(context.Background()))
	assert.Error(t, PingBackend{}.Execute(context.Background()))
}
