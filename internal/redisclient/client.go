package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pizza-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	catalogKey    = "catalog:pizzas"
	statusChannel = "orders:status"
)

// ErrCacheMiss is returned when the catalog is not cached
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetCatalog returns the cached pizza list
func (c *Client) GetCatalog(ctx context.Context) ([]models.Pizza, error) {
	data, err := c.rdb.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}

	var pizzas []models.Pizza
	if err := json.Unmarshal(data, &pizzas); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return pizzas, nil
}

// SetCatalog caches the pizza list for ttl
func (c *Client) SetCatalog(ctx context.Context, pizzas []models.Pizza, ttl time.Duration) error {
	data, err := json.Marshal(pizzas)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return c.rdb.Set(ctx, catalogKey, data, ttl).Err()
}

// InvalidateCatalog drops the cached pizza list
func (c *Client) InvalidateCatalog(ctx context.Context) error {
	return c.rdb.Del(ctx, catalogKey).Err()
}

// PublishStatus broadcasts an order status update to every subscriber
func (c *Client) PublishStatus(ctx context.Context, update models.StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}
	return c.rdb.Publish(ctx, statusChannel, data).Err()
}

// SubscribeStatus streams status updates until ctx is done or the returned
// close func is called.
func (c *Client) SubscribeStatus(ctx context.Context) (<-chan models.StatusUpdate, func() error, error) {
	sub := c.rdb.Subscribe(ctx, statusChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", statusChannel, err)
	}

	out := make(chan models.StatusUpdate)
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var update models.StatusUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, sub.Close, nil
}
