package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/domain/jukebox"
	"github.com/example/dine-composer/internal/domain/order"
	"github.com/example/dine-composer/internal/internaltypes"
	"github.com/example/dine-composer/internal/metrics"
)

const userAgent = "dinectl/1.0"

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	RPS     float64
	Burst   int
	Logger  *zerolog.Logger
}

// Client talks to the restaurant REST backend. It never retries on its own.
type Client struct {
	base    string
	token   string
	hc      *http.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
	availTTL time.Duration
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		base:    opts.BaseURL,
		token:   opts.Token,
		hc:      &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// UseRedisCache enables caching of the song catalogues for ttl. Availability
// is cached only for availTTL, and not at all when it is zero. The jukebox
// queue is never cached.
func (c *Client) UseRedisCache(rdb *redis.Client, ttl, availTTL time.Duration) {
	c.redis = rdb
	c.cacheTTL = ttl
	c.availTTL = availTTL
}

func (c *Client) SetToken(token string) { c.token = token }

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	status, body, err := c.do(ctx, "ping", http.MethodGet, "/api/health", nil, nil, uuid.Nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return internaltypes.Remote("ping", status, booking.Message(body))
	}
	return nil
}

func (c *Client) AvailableTables(ctx context.Context, restaurantID int64, at time.Time, floor *int) ([]booking.Table, error) {
	q := url.Values{}
	q.Set("time", booking.WireTime(at))
	if floor != nil {
		q.Set("floor", strconv.Itoa(*floor))
	}
	path := fmt.Sprintf("/api/restaurants/%d/tables/available", restaurantID)
	cacheKey := fmt.Sprintf("dine:cache:tables:%d:%s", restaurantID, q.Encode())

	var tables []booking.Table
	if err := c.getJSON(ctx, "availability", path, q, cacheKey, c.availTTL, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// CreateBooking posts req to the operation its shape selects and decodes the confirmation.
func (c *Client) CreateBooking(ctx context.Context, key uuid.UUID, req booking.Request) (booking.Confirmation, error) {
	path := "/api/bookings"
	if req.Operation() == booking.OpCreateMultiple {
		path = "/api/bookings/multiple"
	}
	op := string(req.Operation())

	start := time.Now()
	status, body, err := c.do(ctx, op, http.MethodPost, path, nil, req, key)
	if err != nil {
		metrics.ObserveBackend(op, metrics.OutcomeTransport, time.Since(start))
		return booking.Confirmation{}, err
	}
	conf, err := booking.DecodeConfirmation(status, body)
	if err != nil {
		metrics.ObserveBackend(op, metrics.OutcomeRejected, time.Since(start))
		return booking.Confirmation{}, err
	}
	metrics.ObserveBackend(op, metrics.OutcomeOK, time.Since(start))
	return conf, nil
}

// Songs loads the catalogue q selects and applies its artist filter.
func (c *Client) Songs(ctx context.Context, q jukebox.CatalogQuery) ([]jukebox.Song, error) {
	path := "/api/songs"
	params := url.Values{}
	cacheKey := "dine:cache:songs:all"
	if !q.All {
		path = "/api/songs/day/" + url.PathEscape(q.Day.String())
		if q.Artist != "" {
			params.Set("artist", q.Artist)
		}
		cacheKey = "dine:cache:songs:" + q.Day.String() + ":" + params.Encode()
	}

	var songs []jukebox.Song
	if err := c.getJSON(ctx, "songs", path, params, cacheKey, c.cacheTTL, &songs); err != nil {
		return nil, err
	}
	return jukebox.MatchArtist(songs, q.Artist), nil
}

func (c *Client) SubmitOrder(ctx context.Context, key uuid.UUID, sub order.Submission) (order.Receipt, error) {
	const op = "submit-order"
	start := time.Now()
	status, body, err := c.do(ctx, op, http.MethodPost, "/api/orders", nil, sub, key)
	if err != nil {
		metrics.ObserveBackend(op, metrics.OutcomeTransport, time.Since(start))
		return order.Receipt{}, err
	}
	var r order.Receipt
	if status < 200 || status >= 300 || json.Unmarshal(body, &r) != nil || r.OrderID <= 0 {
		metrics.ObserveBackend(op, metrics.OutcomeRejected, time.Since(start))
		return order.Receipt{}, internaltypes.Remote(op, status, booking.Message(body))
	}
	metrics.ObserveBackend(op, metrics.OutcomeOK, time.Since(start))
	return r, nil
}

func (c *Client) JukeboxQueue(ctx context.Context, adminID int64) ([]jukebox.Request, error) {
	var reqs []jukebox.Request
	path := fmt.Sprintf("/api/admin/%d/jukebox", adminID)
	if err := c.getJSON(ctx, "jukebox", path, nil, "", 0, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// getJSON performs a GET, consulting the cache first when cacheKey is set and ttl is positive.
func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, cacheKey string, ttl time.Duration, out any) error {
	cached := cacheKey != "" && ttl > 0
	if cached && c.readCache(ctx, cacheKey, out) {
		metrics.ObserveBackend(op, metrics.OutcomeCached, 0)
		return nil
	}

	start := time.Now()
	status, body, err := c.do(ctx, op, http.MethodGet, path, q, nil, uuid.Nil)
	if err != nil {
		metrics.ObserveBackend(op, metrics.OutcomeTransport, time.Since(start))
		return err
	}
	if status < 200 || status >= 300 {
		metrics.ObserveBackend(op, metrics.OutcomeRejected, time.Since(start))
		return internaltypes.Remote(op, status, booking.Message(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveBackend(op, metrics.OutcomeRejected, time.Since(start))
		return internaltypes.Remote(op, status, "unreadable response")
	}
	metrics.ObserveBackend(op, metrics.OutcomeOK, time.Since(start))
	if cached {
		c.writeCache(ctx, cacheKey, body, ttl)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, body, ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// do sends one request and returns the status and body. Only failures to get
// a response at all are errors here.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, payload any, key uuid.UUID) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, internaltypes.Transport(err, op)
	}

	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if key != uuid.Nil {
		req.Header.Set("Idempotency-Key", key.String())
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("operation", op).Msg("backend call failed")
		return 0, nil, internaltypes.Transport(err, op)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, internaltypes.Transport(err, op)
	}
	c.logger.Debug().
		Str("operation", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")
	return resp.StatusCode, b, nil
}
