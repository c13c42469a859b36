package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/domain/jukebox"
	"github.com/example/dine-composer/internal/domain/order"
	"github.com/example/dine-composer/internal/internaltypes"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Token: "tok", Timeout: 2 * time.Second})
}

func buildRequest(t *testing.T, tables ...int64) booking.Request {
	t.Helper()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	d := booking.NewDraft(42, 5)
	d.At = now.Add(24 * time.Hour)
	for _, id := range tables {
		d.Tables.Toggle(id)
	}
	req, err := booking.Build(d, booking.ComputeWindow(now))
	require.NoError(t, err)
	return req
}

func TestCreateBookingSingle(t *testing.T) {
	key := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, key.String(), r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(7), body["tableId"])
		assert.Equal(t, "2026-09-02T12:00:00Z", body["reservationTime"])
		assert.NotContains(t, body, "musicId")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bookingId": 81, "status": "CONFIRMED"}`))
	})

	conf, err := c.CreateBooking(context.Background(), key, buildRequest(t, 7))
	require.NoError(t, err)
	assert.Equal(t, booking.Confirmation{BookingID: 81}, conf)
}

func TestCreateBookingMultiple(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings/multiple", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{float64(2), float64(3)}, body["tableIds"])
		_, _ = w.Write([]byte(`{"masterBookingId": "90"}`))
	})

	conf, err := c.CreateBooking(context.Background(), uuid.New(), buildRequest(t, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, booking.Confirmation{BookingID: 90, Master: true}, conf)
}

func TestCreateBookingRejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"conflict", http.StatusConflict, `{"message":"Table 7 is already booked"}`, "Table 7 is already booked"},
		{"ok without id", http.StatusOK, `{"status":"PENDING"}`, booking.GenericBookingFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CreateBooking(context.Background(), uuid.New(), buildRequest(t, 7))
			require.Error(t, err)
			assert.True(t, internaltypes.IsRemote(err))
			var re *internaltypes.RemoteError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.want, re.Message)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second})
	_, err := c.CreateBooking(context.Background(), uuid.New(), buildRequest(t, 7))
	require.Error(t, err)
	assert.True(t, internaltypes.IsTransport(err))
	assert.False(t, internaltypes.IsRemote(err))
}

func TestAvailableTables(t *testing.T) {
	floor := 2
	at := time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/restaurants/5/tables/available", r.URL.Path)
		assert.Equal(t, "2026-09-02T18:00:00Z", r.URL.Query().Get("time"))
		assert.Equal(t, "2", r.URL.Query().Get("floor"))
		_, _ = w.Write([]byte(`[{"id":1,"name":"T1","location":"window","floor":2,"capacity":4,"available":true,"price":10.5}]`))
	})

	tables, err := c.AvailableTables(context.Background(), 5, at, &floor)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, booking.Table{ID: 1, Name: "T1", Location: "window", Floor: 2, Capacity: 4, Available: true, Price: 10.5}, tables[0])
}

func TestAvailabilityCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`[{"id":1,"name":"T1","floor":1,"capacity":2,"available":true}]`))
	})
	at := time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC)
	fetchTwice := func() {
		for i := 0; i < 2; i++ {
			tables, err := c.AvailableTables(context.Background(), 5, at, nil)
			require.NoError(t, err)
			require.Len(t, tables, 1)
		}
	}

	// The catalogue TTL alone does not cache availability.
	c.UseRedisCache(rdb, time.Hour, 0)
	fetchTwice()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, mr.Keys())

	c.UseRedisCache(rdb, time.Hour, 5*time.Second)
	fetchTwice()
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, mr.Keys(), 1)
	assert.Equal(t, 5*time.Second, mr.TTL(mr.Keys()[0]))

	mr.FastForward(6 * time.Second)
	fetchTwice()
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestSongsUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/songs/day/Friday", r.URL.Path)
		assert.Equal(t, "queen", r.URL.Query().Get("artist"))
		_, _ = w.Write([]byte(`[{"id":1,"title":"Bohemian Rhapsody","artist":"Queen"},{"id":2,"title":"Dancing Queen","artist":"ABBA"}]`))
	})
	c.UseRedisCache(rdb, time.Minute, 0)

	q := jukebox.SongSource(false, time.Friday, "queen")
	for i := 0; i < 2; i++ {
		songs, err := c.Songs(context.Background(), q)
		require.NoError(t, err)
		require.Len(t, songs, 1)
		assert.Equal(t, "Bohemian Rhapsody", songs[0].Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Len(t, mr.Keys(), 1)
}

func TestSongsCelebratoryUsesFullCatalogue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/songs", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`[{"id":1,"title":"A","artist":"Queen"},{"id":2,"title":"B","artist":"ABBA"}]`))
	})

	songs, err := c.Songs(context.Background(), jukebox.SongSource(true, time.Monday, "abba"))
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, int64(2), songs[0].ID)
}

func TestJukeboxQueueIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/admin/3/jukebox", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1,"requester":"ann","tableName":"T1","songTitle":"X","reservationTime":"2026-10-19T20:00:00Z","coinCategory":"Gold"}]`))
	})
	c.UseRedisCache(rdb, time.Minute, 0)

	for i := 0; i < 2; i++ {
		reqs, err := c.JukeboxQueue(context.Background(), 3)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, "Gold", reqs[0].CoinTier)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, mr.Keys())
}

func TestSubmitOrder(t *testing.T) {
	key := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, key.String(), r.Header.Get("Idempotency-Key"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"userId":42,"bookingId":81,"items":[{"dishId":3,"quantity":2,"skippedIngredientIds":[5]}]}`, string(b))
		_, _ = w.Write([]byte(`{"orderId":500,"bookingId":81,"userId":42,"totalPrice":31.0,"status":"PLACED"}`))
	})

	r, err := c.SubmitOrder(context.Background(), key, order.Submission{
		UserID: 42, BookingID: 81,
		Items: []order.LineItem{{DishID: 3, Quantity: 2, Skipped: order.NewSkipSet(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, order.Receipt{OrderID: 500, BookingID: 81, UserID: 42, TotalPrice: 31, Status: "PLACED"}, r)
}

func TestSubmitOrderRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"booking 81 is not yours"}`))
	})
	_, err := c.SubmitOrder(context.Background(), uuid.New(), order.Submission{UserID: 1, BookingID: 81})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking 81 is not yours")
	assert.True(t, internaltypes.IsRemote(err))
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		assert.Empty(t, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	err := c.Ping(context.Background())
	assert.True(t, internaltypes.IsRemote(err))
}
