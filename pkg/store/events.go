package store

import (
	"context"
	"time"

	"github.com/example/pizzaplanet/pkg/models"
)

type EventType string

const (
	EventPendingHeld   EventType = "pending_held"
	EventConfirmed     EventType = "order_confirmed"
	EventStatusChanged EventType = "status_changed"
	EventCancelled     EventType = "order_cancelled"
)

// Event describes a committed change. Order is a private copy.
type Event struct {
	Type     EventType
	UserID   string
	Order    *models.Order
	Pending  *models.PendingOrder
	Previous models.OrderStatus
	Reason   string
	At       time.Time
}

// Observer is notified after the store has released its locks.
type Observer interface {
	OnOrderEvent(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnOrderEvent(ctx context.Context, ev Event) { f(ctx, ev) }
