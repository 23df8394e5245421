package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("PIZZA_LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestBuild_InMemory(t *testing.T) {
	cfg := defaultConfig(t)
	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Sessions)
	ctx := context.Background()
	req := service.ChatRequest{Message: "I want a large margherita", UserEmail: "ann@example.com"}
	res, err := a.Service.HandleChatMessage(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res.PendingOrder)

	req.Message = "yes"
	res, err = a.Service.HandleChatMessage(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res.OrderContext)
	assert.Equal(t, 1, a.Sessions.Active())

	assert.Equal(t, 1, a.Service.Health().Orders.Orders)
}

func TestBuild_SessionsDisabled(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Session.Enabled = false
	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Sessions)
}

func TestBuild_MenuFile(t *testing.T) {
	cfg := defaultConfig(t)
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - id: "1"
    name: Marinara
    size: medium
    price: 7.5
    category: veg
    ingredients: [tomato, garlic]
    is_available: true
`), 0o600))
	cfg.Ordering.MenuFile = path

	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, 1, a.Catalog.Len())

	cfg.Ordering.MenuFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.LLM.Provider = "mystery"
	cfg.LLM.APIKey = "k"
	_, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
