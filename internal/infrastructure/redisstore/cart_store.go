package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/dine-composer/internal/domain/order"
)

type savedDish struct {
	DishID int64           `json:"dishId"`
	Units  []order.SkipSet `json:"units"`
}

type savedCart struct {
	Dishes     []savedDish `json:"dishes"`
	Dedication string      `json:"dedication,omitempty"`
	SavedAt    time.Time   `json:"savedAt"`
}

type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(userID, bookingID int64) string {
	return fmt.Sprintf("dine:cart:%d:%d", userID, bookingID)
}

// Load returns an empty draft when nothing is saved for the booking.
func (s *CartStore) Load(ctx context.Context, userID, bookingID int64) (order.Draft, error) {
	out := order.Draft{Cart: order.Cart{}}
	if s.client == nil {
		return out, fmt.Errorf("redis client is nil")
	}
	val, err := s.client.Get(ctx, cartKey(userID, bookingID)).Bytes()
	if err == redis.Nil {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("failed to get cart from redis: %w", err)
	}

	var saved savedCart
	if err := json.Unmarshal(val, &saved); err != nil {
		return out, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	for _, d := range saved.Dishes {
		if len(d.Units) == 0 {
			continue
		}
		sel := order.NewDishSelection(d.DishID)
		sel.SetUnits(d.Units)
		out.Cart[d.DishID] = sel
	}
	out.Dedication = saved.Dedication
	return out, nil
}

func (s *CartStore) Save(ctx context.Context, userID, bookingID int64, c order.Draft) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	saved := savedCart{Dedication: c.Dedication, SavedAt: time.Now().UTC()}
	for _, id := range c.Cart.DishIDs() {
		saved.Dishes = append(saved.Dishes, savedDish{DishID: id, Units: c.Cart[id].Units()})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(userID, bookingID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart in redis: %w", err)
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID, bookingID int64) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := s.client.Del(ctx, cartKey(userID, bookingID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart from redis: %w", err)
	}
	return nil
}
