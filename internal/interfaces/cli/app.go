package cli

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/example/dine-composer/internal/application/usecases"
	"github.com/example/dine-composer/internal/config"
	"github.com/example/dine-composer/internal/db"
	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/infrastructure/backend"
	"github.com/example/dine-composer/internal/infrastructure/postgres"
	"github.com/example/dine-composer/internal/infrastructure/redisstore"
	"github.com/example/dine-composer/internal/infrastructure/session"
	"github.com/example/dine-composer/internal/internaltypes"
	"github.com/example/dine-composer/internal/logging"
	"github.com/example/dine-composer/internal/migrate"
)

// app holds what one command invocation needs. Optional parts stay nil when unconfigured.
type app struct {
	cfg     config.Config
	logger  *zerolog.Logger
	backend *backend.Client
	redis   *redis.Client
	store   *session.Store
	db      *db.DB
	closers []io.Closer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(cfg.Logging, Version)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.backend = backend.New(backend.Options{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		RPS:     cfg.Backend.RPS,
		Burst:   cfg.Backend.Burst,
		Logger:  logging.Component(logger, "backend"),
	})

	if cfg.Redis.Addr != "" {
		a.redis = redisstore.NewClient(cfg.Redis)
		a.closers = append(a.closers, a.redis)
		if err := redisstore.Ping(ctx, a.redis); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, cache and saved carts disabled")
			a.redis = nil
		} else {
			a.backend.UseRedisCache(a.redis, cfg.Redis.CacheTTL, cfg.Redis.AvailabilityTTL)
		}
	}

	if len(cfg.Session.HashKey) > 0 {
		a.store, err = session.NewStore(cfg.Session.File, cfg.Session.HashKey, cfg.Session.BlockKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		if sess, err := a.store.Load(); err == nil {
			a.backend.SetToken(sess.Token)
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func (a *app) sessions() (*session.Store, error) {
	if a.store == nil {
		return nil, errors.WithHint(errors.New("SESSION_HASH_KEY is not set"), "run `dinectl keys` and export the values")
	}
	return a.store, nil
}

func (a *app) session() (session.Session, error) {
	s, err := a.sessions()
	if err != nil {
		return session.Session{}, err
	}
	sess, err := s.Load()
	if err != nil {
		return session.Session{}, errors.WithHint(err, "run `dinectl login` first")
	}
	return sess, nil
}

// history opens the database and applies migrations. It returns nil without
// DATABASE_URL.
func (a *app) history(ctx context.Context) (*postgres.HistoryRepo, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, nil
	}
	if a.db == nil {
		d, err := db.Open(ctx, a.cfg.DatabaseURL, db.PoolOptions{MaxConns: int32(a.cfg.DatabaseMaxConns)})
		if err != nil {
			return nil, err
		}
		if err := migrate.Up(ctx, d, logging.Component(a.logger, "migrate")); err != nil {
			d.Close()
			return nil, err
		}
		a.db = d
	}
	return postgres.NewHistoryRepo(a.db), nil
}

// historyOrNil is for flows where history is best effort.
func (a *app) historyOrNil(ctx context.Context) usecases.History {
	repo, err := a.history(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("history disabled")
		return nil
	}
	if repo == nil {
		return nil
	}
	return repo
}

func (a *app) bookingFlow(ctx context.Context) *usecases.BookingFlow {
	return &usecases.BookingFlow{
		Backend:  a.backend,
		History:  a.historyOrNil(ctx),
		Resolver: booking.Resolver{LeadTime: a.cfg.Booking.LeadTime, Horizon: a.cfg.Booking.Horizon},
		Location: a.cfg.Booking.Location,
		Logger:   logging.Component(a.logger, "booking"),
	}
}

func (a *app) orderFlow(ctx context.Context) *usecases.OrderFlow {
	f := &usecases.OrderFlow{
		Backend: a.backend,
		History: a.historyOrNil(ctx),
		Logger:  logging.Component(a.logger, "order"),
	}
	if a.redis != nil {
		f.Carts = redisstore.NewCartStore(a.redis, a.cfg.Redis.CartTTL)
	}
	return f
}

func parseIDs(s string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, internaltypes.Invalid("invalid id %q", p)
		}
		out = append(out, id)
	}
	return out, nil
}
