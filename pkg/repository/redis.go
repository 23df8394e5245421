package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const observerTimeout = 2 * time.Second

// RedisRepository mirrors orders and customer counters into Redis so other
// processes can read order status, and so tracking survives a restart for
// the cache TTL.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisRepository(cfg *config.RedisConfig, logger *zap.Logger) *RedisRepository {
	return NewRedisRepositoryFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), cfg.TTL, logger)
}

func NewRedisRepositoryFromClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl, logger: logger}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// UserCache is the customer summary kept beside the orders.
type UserCache struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	TotalOrders int64     `json:"total_orders"`
	LastOrderID string    `json:"last_order_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func orderKey(id string) string         { return fmt.Sprintf("order:%s", id) }
func userKey(email string) string       { return fmt.Sprintf("user:%s", email) }
func userOrdersKey(email string) string { return fmt.Sprintf("user:%s:orders", email) }

func (r *RedisRepository) CacheOrder(ctx context.Context, order *models.Order) error {
	return r.SetJSON(ctx, orderKey(order.ID), order, r.ttl)
}

// LookupOrder returns ErrOrderNotFound on a cache miss.
func (r *RedisRepository) LookupOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.GetJSON(ctx, orderKey(orderID), &order)
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached order: %w", err)
	}
	return &order, nil
}

// UserOrderIDs lists cached order ids for an email, newest first.
func (r *RedisRepository) UserOrderIDs(ctx context.Context, email string) ([]string, error) {
	return r.client.LRange(ctx, userOrdersKey(models.NormalizeEmail(email)), 0, -1).Result()
}

// OrdersByEmail serves order history from the cache. Ids whose order has
// expired are skipped.
func (r *RedisRepository) OrdersByEmail(ctx context.Context, email string, limit int) ([]*models.Order, error) {
	ids, err := r.UserOrderIDs(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached orders: %w", err)
	}
	var out []*models.Order
	for _, id := range ids {
		if limit > 0 && len(out) == limit {
			break
		}
		o, err := r.LookupOrder(ctx, id)
		if errors.Is(err, models.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *RedisRepository) recordConfirmed(ctx context.Context, order *models.Order) error {
	email := models.NormalizeEmail(order.Customer.Email)
	user := UserCache{Email: email, Name: order.Customer.Name}
	if err := r.GetJSON(ctx, userKey(email), &user); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	user.TotalOrders++
	user.LastOrderID = order.ID
	user.UpdatedAt = order.CreatedAt

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		data, err := json.Marshal(order)
		if err != nil {
			return err
		}
		userData, err := json.Marshal(user)
		if err != nil {
			return err
		}
		pipe.Set(ctx, orderKey(order.ID), data, r.ttl)
		pipe.Set(ctx, userKey(email), userData, r.ttl)
		pipe.LPush(ctx, userOrdersKey(email), order.ID)
		if r.ttl > 0 {
			pipe.Expire(ctx, userOrdersKey(email), r.ttl)
		}
		return nil
	})
	return err
}

// OnOrderEvent keeps the cache in step with the store.
func (r *RedisRepository) OnOrderEvent(ctx context.Context, ev store.Event) {
	if ev.Order == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()

	var err error
	switch ev.Type {
	case store.EventConfirmed:
		err = r.recordConfirmed(ctx, ev.Order)
	case store.EventStatusChanged, store.EventCancelled:
		err = r.CacheOrder(ctx, ev.Order)
	default:
		return
	}
	if err != nil {
		r.logger.Warn("Failed to update order cache",
			zap.String("order_id", ev.Order.ID),
			zap.String("event", string(ev.Type)),
			zap.Error(err))
	}
}
