package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/pizzaplanet/pkg/eta"
	"github.com/example/pizzaplanet/pkg/menu"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisRepositoryFromClient(client, time.Hour, zap.NewNop())
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func newStore(t *testing.T, obs ...store.Observer) *store.OrderStore {
	t.Helper()
	catalog, err := menu.NewCatalog(menu.Default(), zap.NewNop())
	require.NoError(t, err)
	return store.NewOrderStore(catalog, eta.NewEngine(), zap.NewNop(), store.WithObservers(obs...))
}

func placeOrder(t *testing.T, s *store.OrderStore) *models.Order {
	t.Helper()
	item := menu.Default()[0]
	c, err := models.NewCustomerInfo("Ann", "ann@example.com", "555", "1 Road")
	require.NoError(t, err)
	o, err := s.PlaceDirect(context.Background(), []models.OrderItem{{MenuItem: item, Quantity: 1}}, c)
	require.NoError(t, err)
	return o
}

func TestRedis_ObservesOrderLifecycle(t *testing.T) {
	repo, mr := newRedis(t)
	s := newStore(t, repo)
	ctx := context.Background()

	order := placeOrder(t, s)
	assert.True(t, mr.Exists("order:"+order.ID))
	assert.Greater(t, mr.TTL("order:"+order.ID), time.Duration(0))

	cached, err := repo.LookupOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaced, cached.Status)
	assert.InDelta(t, order.TotalAmount, cached.TotalAmount, 1e-9)

	_, err = s.AdvanceStatus(ctx, order.ID, models.StatusPreparing)
	require.NoError(t, err)
	cached, err = repo.LookupOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, cached.Status)

	_, err = s.Cancel(ctx, order.ID, "")
	require.NoError(t, err)
	cached, err = repo.LookupOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cached.Status)
}

func TestRedis_UserSummary(t *testing.T) {
	repo, _ := newRedis(t)
	s := newStore(t, repo)
	ctx := context.Background()

	first := placeOrder(t, s)
	second := placeOrder(t, s)

	var user UserCache
	require.NoError(t, repo.GetJSON(ctx, userKey("ann@example.com"), &user))
	assert.Equal(t, int64(2), user.TotalOrders)
	assert.Equal(t, second.ID, user.LastOrderID)

	ids, err := repo.UserOrderIDs(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids)
}

func TestRedis_OrdersByEmail(t *testing.T) {
	repo, mr := newRedis(t)
	s := newStore(t, repo)
	ctx := context.Background()

	first := placeOrder(t, s)
	second := placeOrder(t, s)
	third := placeOrder(t, s)

	got, err := repo.OrdersByEmail(ctx, "Ann@Example.com", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, third.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)

	mr.Del("order:" + second.ID)
	got, err = repo.OrdersByEmail(ctx, "ann@example.com", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{third.ID, first.ID}, []string{got[0].ID, got[1].ID})

	got, err = repo.OrdersByEmail(ctx, "nobody@example.com", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedis_LookupMiss(t *testing.T) {
	repo, _ := newRedis(t)
	_, err := repo.LookupOrder(context.Background(), "ORD-00000000")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestRedis_FailuresDoNotBreakTheStore(t *testing.T) {
	repo, mr := newRedis(t)
	s := newStore(t, repo)
	mr.Close()

	order := placeOrder(t, s)
	_, ok := s.FindByID(order.ID)
	assert.True(t, ok)
}
