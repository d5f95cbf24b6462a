package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"pizza-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires Redis (set REDIS_TEST_ADDR)")
	}
	c, err := NewClient(addr, "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalogCache(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.InvalidateCatalog(ctx))
	_, err := c.GetCatalog(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	pizzas := []models.Pizza{{ID: 1, Name: "Margherita", Price: decimal.RequireFromString("9.50")}}
	require.NoError(t, c.SetCatalog(ctx, pizzas, time.Minute))

	got, err := c.GetCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Margherita", got[0].Name)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("9.5")))
}

func TestStatusPubSub(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, closeSub, err := c.SubscribeStatus(ctx)
	require.NoError(t, err)
	defer closeSub()

	require.NoError(t, c.PublishStatus(ctx, models.StatusUpdate{OrderID: 42, Status: models.OrderStatusPreparing}))

	select {
	case u := <-updates:
		assert.Equal(t, int64(42), u.OrderID)
		assert.Equal(t, models.OrderStatusPreparing, u.Status)
	case <-ctx.Done():
		t.Fatal("no status update received")
	}
}
