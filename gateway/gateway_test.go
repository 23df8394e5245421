package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/pizzaplanet/pkg/chat"
	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/eta"
	"github.com/example/pizzaplanet/pkg/intent"
	"github.com/example/pizzaplanet/pkg/llm"
	"github.com/example/pizzaplanet/pkg/menu"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/service"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/example/pizzaplanet/pkg/users"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T) http.Handler {
	t.Helper()
	h, _ := newTestGatewayWithFeed(t)
	return h
}

func newTestGatewayWithFeed(t *testing.T) (http.Handler, *OrderFeed) {
	t.Helper()
	h, feed, _ := newTestStack(t)
	return h, feed
}

func newTestStack(t *testing.T) (http.Handler, *OrderFeed, *service.Service) {
	t.Helper()
	logger := zap.NewNop()
	catalog, err := menu.NewCatalog(menu.Default(), logger)
	require.NoError(t, err)
	engine := eta.NewEngine()
	orders := store.NewOrderStore(catalog, engine, logger)
	dir := users.NewDirectory(orders, logger)
	orders.AddObserver(dir)
	router := chat.NewRouter(
		intent.NewClassifier(llm.Disabled{}, catalog, time.Second, logger),
		catalog, orders, dir, engine,
		chat.NewResponder(llm.Disabled{}, time.Second, logger),
		chat.Defaults{Address: "123 Main Street", Phone: "555-0123"}, logger)
	svc := service.New(catalog, orders, dir, router, engine, logger)
	feed := NewOrderFeed(logger)
	orders.AddObserver(feed)
	return NewGateway(&config.GatewayConfig{Mode: gin.TestMode}, svc, feed, logger).Handler(), feed, svc
}

type stubEvents struct {
	events map[string][]models.OrderEvent
}

func (s stubEvents) OrderEvents(_ context.Context, id string, _ int) ([]models.OrderEvent, error) {
	return s.events[id], nil
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestChatOrderAndTrack(t *testing.T) {
	h := newTestGateway(t)
	who := map[string]interface{}{"user_id": "u1", "user_email": "ann@example.com", "user_name": "Ann"}

	chatMsg := func(msg string) map[string]interface{} {
		body := map[string]interface{}{"message": msg}
		for k, v := range who {
			body[k] = v
		}
		w, out := do(t, h, http.MethodPost, "/api/chat", body)
		require.Equal(t, http.StatusOK, w.Code)
		return out
	}

	out := chatMsg("I want a large margherita")
	assert.Equal(t, "order", out["intent"])
	assert.Equal(t, "u1", out["user_id"])
	require.NotNil(t, out["pending_order"])

	out = chatMsg("yes, confirm it")
	assert.Equal(t, "confirm", out["intent"])
	oc, ok := out["order_context"].(map[string]interface{})
	require.True(t, ok)
	id, _ := oc["order_id"].(string)
	require.Regexp(t, `^ORD-[0-9a-f]{8}$`, id)

	w, view := do(t, h, http.MethodGet, "/api/order/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Placed", view["status_label"])

	w, hist := do(t, h, http.MethodGet, "/api/users/ann@example.com/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), hist["total"])

	w, check := do(t, h, http.MethodGet, "/api/users/check?email=ANN@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, check["exists"])
	assert.Equal(t, float64(1), check["orders_count"])
}

func TestChat_EmptyMessage(t *testing.T) {
	h := newTestGateway(t)
	w, out := do(t, h, http.MethodPost, "/api/chat", map[string]interface{}{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "message is required")
}

func TestMenuAndSuggestions(t *testing.T) {
	h := newTestGateway(t)

	w, all := do(t, h, http.MethodGet, "/api/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, veg := do(t, h, http.MethodGet, "/api/menu?category=veg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, all["total"], veg["total"])

	w, _ = do(t, h, http.MethodGet, "/api/menu?category=dessert", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, sug := do(t, h, http.MethodGet, "/api/suggestions?preference=spicy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, sug["suggestions"])
	assert.NotEmpty(t, sug["reason"])
}

func TestDirectOrderLifecycle(t *testing.T) {
	h := newTestGateway(t)
	customer := map[string]interface{}{"name": "Ann", "email": "ann@example.com", "phone": "555", "address": "1 Road"}

	w, out := do(t, h, http.MethodPost, "/api/order", map[string]interface{}{
		"customer": customer,
		"items":    []map[string]interface{}{{"name": "chicken tikka", "size": "large"}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, out["suggestions"])

	w, out = do(t, h, http.MethodPost, "/api/order", map[string]interface{}{
		"customer": map[string]interface{}{"name": "Ann", "email": "nope"},
		"items":    []map[string]interface{}{{"name": "margherita"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, order := do(t, h, http.MethodPost, "/api/order", map[string]interface{}{
		"customer": customer,
		"items":    []map[string]interface{}{{"name": "margherita", "size": "large", "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := order["id"].(string)
	require.NotEmpty(t, id)

	w, _ = do(t, h, http.MethodPost, "/api/order/"+id+"/status", map[string]interface{}{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, view := do(t, h, http.MethodPost, "/api/order/"+id+"/status", map[string]interface{}{"status": "preparing"})
	require.Equal(t, http.StatusOK, w.Code)
	est, _ := view["eta"].(map[string]interface{})
	mins, _ := est["eta_minutes"].(float64)
	r := eta.RangeFor("preparing")
	assert.GreaterOrEqual(t, int(mins), r.Min)
	assert.LessOrEqual(t, int(mins), r.Max)

	w, view = do(t, h, http.MethodPost, "/api/order/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cancelled", view["status_label"])

	w, _ = do(t, h, http.MethodGet, "/api/order/ORD-00000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectOrder_RejectsZeroQuantity(t *testing.T) {
	h := newTestGateway(t)
	customer := map[string]interface{}{"name": "Ann", "email": "ann@example.com", "phone": "555", "address": "1 Road"}

	w, out := do(t, h, http.MethodPost, "/api/order", map[string]interface{}{
		"customer": customer,
		"items":    []map[string]interface{}{{"name": "margherita", "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "must be positive")
}

func TestCancel_BodyHandling(t *testing.T) {
	h := newTestGateway(t)
	customer := map[string]interface{}{"name": "Ann", "email": "ann@example.com", "phone": "555", "address": "1 Road"}
	w, order := do(t, h, http.MethodPost, "/api/order", map[string]interface{}{
		"customer": customer,
		"items":    []map[string]interface{}{{"name": "margherita"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := order["id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/order/"+id+"/cancel", strings.NewReader(`{"reason": `))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w, view := do(t, h, http.MethodGet, "/api/order/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Placed", view["status_label"], "malformed body must not cancel")

	w, view = do(t, h, http.MethodPost, "/api/order/"+id+"/cancel", map[string]interface{}{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cancelled", view["status_label"])
}

func TestOrderEvents(t *testing.T) {
	h, _, svc := newTestStack(t)

	w, _ := do(t, h, http.MethodGet, "/api/order/ORD-0000abcd/events", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	at := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	svc.SetEventSource(stubEvents{events: map[string][]models.OrderEvent{
		"ORD-0000abcd": {
			{Action: "status_changed", Data: map[string]interface{}{"status": "preparing"}, At: at},
			{Action: "order_confirmed", UserID: "u1", At: at.Add(-time.Minute)},
		},
	}})

	w, out := do(t, h, http.MethodGet, "/api/order/ORD-0000abcd/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), out["total"])
	events, _ := out["events"].([]interface{})
	require.Len(t, events, 2)
	first, _ := events[0].(map[string]interface{})
	assert.Equal(t, "status_changed", first["action"])

	w, _ = do(t, h, http.MethodGet, "/api/order/ORD-ffffffff/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsersAndHealth(t *testing.T) {
	h := newTestGateway(t)

	w, _ := do(t, h, http.MethodGet, "/api/users/check?email=bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := do(t, h, http.MethodPost, "/api/users", map[string]interface{}{"email": "Bo@Example.com", "name": "Bo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["success"])

	w, health := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(1), health["users"])
	assert.Greater(t, health["menu_items"], float64(0))
}

func TestCORSPreflight(t *testing.T) {
	h := newTestGateway(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
