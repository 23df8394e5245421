package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedBuffer     = 32
	feedWriteWait  = 5 * time.Second
	feedPingPeriod = 30 * time.Second
)

// FeedMessage is what subscribers receive for each committed order change.
// Pending holds are not published.
type FeedMessage struct {
	Type           store.EventType    `json:"type"`
	OrderID        string             `json:"order_id"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	Items          string             `json:"items"`
	TotalAmount    float64            `json:"total_amount"`
	At             time.Time          `json:"at"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// OrderFeed pushes order events to WebSocket subscribers, such as a
// kitchen display. Slow subscribers miss messages rather than block the
// store.
type OrderFeed struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

func NewOrderFeed(logger *zap.Logger) *OrderFeed {
	return &OrderFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*feedClient]struct{}),
	}
}

func (f *OrderFeed) OnOrderEvent(_ context.Context, ev store.Event) {
	if ev.Order == nil {
		return
	}
	data, err := json.Marshal(FeedMessage{
		Type:           ev.Type,
		OrderID:        ev.Order.ID,
		Status:         ev.Order.Status,
		PreviousStatus: ev.Previous,
		Reason:         ev.Reason,
		Items:          ev.Order.ItemsSummary(),
		TotalAmount:    ev.Order.TotalAmount,
		At:             ev.At,
	})
	if err != nil {
		f.logger.Error("Failed to encode feed message", zap.Error(err))
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients {
		select {
		case c.send <- data:
		default:
			f.logger.Warn("Feed subscriber lagging, message dropped", zap.String("order_id", ev.Order.ID))
		}
	}
}

func (f *OrderFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *OrderFeed) serve(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	client := &feedClient{conn: conn, send: make(chan []byte, feedBuffer)}

	f.mu.Lock()
	f.clients[client] = struct{}{}
	f.mu.Unlock()
	f.logger.Info("Feed subscriber connected", zap.String("remote", c.Request.RemoteAddr))

	done := make(chan struct{})
	go f.writeLoop(client, done)

	// Subscribers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	delete(f.clients, client)
	f.mu.Unlock()
	close(done)
	conn.Close()
	f.logger.Info("Feed subscriber disconnected", zap.String("remote", c.Request.RemoteAddr))
}

func (f *OrderFeed) writeLoop(c *feedClient, done <-chan struct{}) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
