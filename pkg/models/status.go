package models

import "strings"

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusCooking        OrderStatus = "cooking"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"

	// StatusPlaced is the entry state of a confirmed order.
	StatusPlaced = StatusConfirmed
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusCooking, StatusCancelled},
	StatusCooking:        {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// ParseStatus maps user and API spellings onto a status. "placed" is the
// confirmed entry state.
func ParseStatus(s string) (OrderStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch v {
	case "placed":
		return StatusPlaced, true
	case "outfordelivery":
		return StatusOutForDelivery, true
	case "canceled":
		return StatusCancelled, true
	}
	st := OrderStatus(v)
	if _, ok := transitions[st]; ok {
		return st, true
	}
	return "", false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	allowed, ok := transitions[s]
	return ok && len(allowed) == 0
}

// IsCancellable reports whether Cancelled is reachable from s.
func (s OrderStatus) IsCancellable() bool {
	return s.CanTransitionTo(StatusCancelled)
}

func (s OrderStatus) Label() string {
	switch s {
	case StatusConfirmed:
		return "Placed"
	case StatusOutForDelivery:
		return "Out for delivery"
	case "":
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}
