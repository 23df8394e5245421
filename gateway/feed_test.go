package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/pizzaplanet/pkg/store"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderFeed_PublishesOrderEvents(t *testing.T) {
	h, feed := newTestGatewayWithFeed(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/orders", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// A pending hold from chat is not published; the direct order is.
	w, _ := do(t, h, http.MethodPost, "/api/chat", map[string]interface{}{
		"message": "I want a margherita", "user_email": "ann@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, order := do(t, h, http.MethodPost, "/api/order", map[string]interface{}{
		"customer": map[string]interface{}{"name": "Ann", "email": "ann@example.com", "phone": "555", "address": "1 Road"},
		"items":    []map[string]interface{}{{"name": "margherita", "size": "large"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := order["id"].(string)

	w, _ = do(t, h, http.MethodPost, "/api/order/"+id+"/status", map[string]interface{}{"status": "preparing"})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second FeedMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, store.EventConfirmed, first.Type)
	assert.Equal(t, id, first.OrderID)
	assert.Contains(t, first.Items, "Margherita")

	assert.Equal(t, store.EventStatusChanged, second.Type)
	assert.Equal(t, "preparing", string(second.Status))
	assert.Equal(t, "confirmed", string(second.PreviousStatus))

	conn.Close()
	assert.Eventually(t, func() bool { return feed.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
