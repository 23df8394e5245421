package users

import (
	"context"
	"testing"

	"github.com/example/pizzaplanet/pkg/eta"
	"github.com/example/pizzaplanet/pkg/menu"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDirectory(t *testing.T) (*Directory, *store.OrderStore, *menu.Catalog) {
	t.Helper()
	catalog, err := menu.NewCatalog(menu.Default(), zap.NewNop())
	require.NoError(t, err)
	orders := store.NewOrderStore(catalog, eta.NewEngine(), zap.NewNop())
	dir := NewDirectory(orders, zap.NewNop())
	orders.AddObserver(dir)
	return dir, orders, catalog
}

func TestCheck_UnknownUser(t *testing.T) {
	dir, orders, _ := newTestDirectory(t)

	_, ok := orders.FindMostRecentByEmail("a@b.com")
	assert.False(t, ok)

	res := dir.Check("a@b.com")
	assert.False(t, res.Exists)
	assert.Equal(t, 0, res.OrdersCount)
	assert.Nil(t, res.User)
}

func TestSave_CaseInsensitive(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	ctx := context.Background()

	u, err := dir.Save(ctx, "Ann@Example.com", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.True(t, u.IsActive)

	_, err = dir.Save(ctx, "ANN@example.com", "Annie")
	require.NoError(t, err)
	assert.Equal(t, 1, dir.Count())

	res := dir.Check("ann@EXAMPLE.com")
	assert.True(t, res.Exists)
	assert.Equal(t, "Annie", res.Name)

	_, err = dir.Save(ctx, "nope", "x")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestConfirmedOrdersUpdateProfile(t *testing.T) {
	dir, orders, catalog := newTestDirectory(t)
	ctx := context.Background()
	marg, _ := catalog.FindExact("Margherita", "")

	for i := 0; i < 2; i++ {
		_, err := orders.HoldPending(ctx, "u1", []models.OrderItem{{MenuItem: marg, Quantity: 1}},
			store.Contact{Name: "Zed", Email: "zed@example.com", Phone: "555", Address: "1 Road"})
		require.NoError(t, err)
		_, err = orders.Confirm(ctx, "u1")
		require.NoError(t, err)
	}

	u, ok := dir.Get("zed@example.com")
	require.True(t, ok, "first order creates the profile")
	assert.Equal(t, "Zed", u.Name)
	assert.Equal(t, 2, u.TotalOrders)
	require.NotNil(t, u.LastOrderAt)

	res := dir.Check("zed@example.com")
	assert.Equal(t, 2, res.OrdersCount)

	recent, ok := dir.MostRecentOrder("zed@example.com")
	require.True(t, ok)
	assert.Equal(t, models.StatusPlaced, recent.Status)
}
