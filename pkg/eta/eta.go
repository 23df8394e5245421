package eta

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/example/pizzaplanet/pkg/models"
)

// Estimate is the delivery estimate for an order in a given status.
type Estimate struct {
	Status       string    `json:"status"`
	Minutes      int       `json:"eta_minutes"`
	Text         string    `json:"eta_text"`
	DeliverySlot string    `json:"delivery_slot"`
	DeliveryAt   time.Time `json:"delivery_at"`
}

type Range struct {
	Min int
	Max int
}

// Ranges are minutes, inclusive on both ends.
var (
	placedRange  = Range{25, 35}
	unknownRange = Range{20, 40}
	ranges       = map[string]Range{
		"placed":           placedRange,
		"pending":          placedRange,
		"confirmed":        placedRange,
		"preparing":        {15, 25},
		"cooking":          {8, 15},
		"ready":            {3, 8},
		"out_for_delivery": {3, 8},
		"delivered":        {0, 0},
	}
)

const slotLayout = "03:04 PM"

// RangeFor returns the contract range for a status name.
func RangeFor(status string) Range {
	if r, ok := ranges[status]; ok {
		return r
	}
	return unknownRange
}

// Engine picks an ETA inside the status range. The random source and clock
// are swappable for tests.
type Engine struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

type Option func(*Engine)

func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rnd = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Estimate(status string) Estimate {
	if status == "cancelled" {
		return Estimate{Status: status, Text: "Cancelled"}
	}
	r := RangeFor(status)
	minutes := r.Min
	if r.Max > r.Min {
		e.mu.Lock()
		minutes += e.rnd.Intn(r.Max - r.Min + 1)
		e.mu.Unlock()
	}

	now := e.now()
	est := Estimate{Status: status, Minutes: minutes}
	if minutes == 0 {
		est.Text = "Delivered"
		est.DeliverySlot = "Delivered"
		est.DeliveryAt = now
		return est
	}
	est.DeliveryAt = now.Add(time.Duration(minutes) * time.Minute)
	est.Text = fmt.Sprintf("%d minutes", minutes)
	est.DeliverySlot = est.DeliveryAt.Format(slotLayout)
	return est
}

// ForOrder reads the estimate back from the delivery time stamped on the
// order, so repeated views agree with each other and with the order. Orders
// without a stamp, and finished ones, get a fresh estimate.
func (e *Engine) ForOrder(o *models.Order) Estimate {
	status := string(o.Status)
	if o.EstimatedDeliveryTime == nil || status == "delivered" || status == "cancelled" {
		return e.Estimate(status)
	}

	at := *o.EstimatedDeliveryTime
	est := Estimate{Status: status, DeliveryAt: at, DeliverySlot: at.Format(slotLayout)}
	remaining := at.Sub(e.now())
	if remaining <= 0 {
		est.Text = "Any minute now"
		return est
	}
	est.Minutes = int(math.Round(remaining.Minutes()))
	if est.Minutes == 0 {
		est.Minutes = 1
	}
	est.Text = fmt.Sprintf("%d minutes", est.Minutes)
	return est
}

// Message is the templated one-line status text used when no LLM phrasing
// is available.
func Message(orderID string, est Estimate) string {
	switch est.Status {
	case "placed", "pending", "confirmed":
		return fmt.Sprintf("Your order #%s has been placed. Estimated delivery: %d minutes.", orderID, est.Minutes)
	case "preparing":
		return fmt.Sprintf("Your order #%s is being prepared. Estimated delivery: %d minutes.", orderID, est.Minutes)
	case "cooking":
		return fmt.Sprintf("Your order #%s is cooking in the oven! Estimated delivery: %d minutes.", orderID, est.Minutes)
	case "ready", "out_for_delivery":
		return fmt.Sprintf("Your order #%s is ready! It will arrive in approximately %d minutes.", orderID, est.Minutes)
	case "delivered":
		return fmt.Sprintf("Your order #%s has been delivered! Enjoy your meal!", orderID)
	case "cancelled":
		return fmt.Sprintf("Your order #%s was cancelled.", orderID)
	}
	return fmt.Sprintf("Your order #%s is being processed. Estimated delivery: %d minutes.", orderID, est.Minutes)
}
