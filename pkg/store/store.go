package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/pizzaplanet/pkg/eta"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxIDAttempts = 8

// ItemSource resolves the live catalog entry for an item id.
type ItemSource interface {
	ByID(id string) (models.MenuItem, bool)
}

// Estimator is the slice of the ETA engine the store needs.
type Estimator interface {
	Estimate(status string) eta.Estimate
}

// Contact is the delivery information attached to a pending order.
type Contact struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type Stats struct {
	Orders       int `json:"orders"`
	ActiveOrders int `json:"active_orders"`
	PendingHolds int `json:"pending_holds"`
}

// OrderStore owns pending holds and confirmed orders. Holds and confirms
// for the same user are serialized; the tables themselves sit behind mu.
type OrderStore struct {
	mu      sync.RWMutex
	orders  map[string]*models.Order
	byEmail map[string][]string
	pending map[string]*models.PendingOrder

	users     *keyedMutex
	items     ItemSource
	eta       Estimator
	observers []Observer
	newID     func() string
	now       func() time.Time
	logger    *zap.Logger
}

type Option func(*OrderStore)

func WithObservers(obs ...Observer) Option {
	return func(s *OrderStore) { s.observers = append(s.observers, obs...) }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderStore) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *OrderStore) { s.newID = gen }
}

func NewOrderStore(items ItemSource, estimator Estimator, logger *zap.Logger, opts ...Option) *OrderStore {
	s := &OrderStore{
		orders:  make(map[string]*models.Order),
		byEmail: make(map[string][]string),
		pending: make(map[string]*models.PendingOrder),
		users:   newKeyedMutex(),
		items:   items,
		eta:     estimator,
		newID:   NewOrderID,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddObserver registers an observer after construction. Not safe to call
// concurrently with store operations.
func (s *OrderStore) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// NewOrderID returns "ORD-" followed by eight lowercase hex characters.
func NewOrderID() string {
	return "ORD-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// HoldPending replaces whatever the user had pending. Nothing is stored if
// any item is invalid.
func (s *OrderStore) HoldPending(ctx context.Context, userID string, items []models.OrderItem, contact Contact) (*models.PendingOrder, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, models.NewValidationError("user id is required")
	}
	resolved, err := s.resolveItems(items)
	if err != nil {
		return nil, err
	}

	unlock := s.users.Lock(userID)
	p := &models.PendingOrder{
		UserID:    userID,
		Items:     resolved,
		Address:   strings.TrimSpace(contact.Address),
		Phone:     strings.TrimSpace(contact.Phone),
		Email:     models.NormalizeEmail(contact.Email),
		Name:      strings.TrimSpace(contact.Name),
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	_, replaced := s.pending[userID]
	s.pending[userID] = p
	s.mu.Unlock()
	unlock()

	s.logger.Info("Pending order held",
		zap.String("user_id", userID),
		zap.Int("item_count", len(resolved)),
		zap.Bool("replaced", replaced))

	held := clonePending(p)
	s.notify(ctx, Event{Type: EventPendingHeld, UserID: userID, Pending: held, At: p.CreatedAt})
	return clonePending(p), nil
}

// Pending returns a copy of the user's hold, if any.
func (s *OrderStore) Pending(userID string) (*models.PendingOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[userID]
	if !ok {
		return nil, false
	}
	return clonePending(p), true
}

// Confirm turns the user's hold into an Order. Concurrent confirms for the
// same user yield one order; the rest get ErrNoPendingOrder.
func (s *OrderStore) Confirm(ctx context.Context, userID string) (*models.Order, error) {
	unlock := s.users.Lock(userID)
	out, err := s.confirmLocked(userID)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order confirmed",
		zap.String("order_id", out.ID),
		zap.String("user_id", userID),
		zap.Float64("total_amount", out.TotalAmount))
	s.notify(ctx, Event{Type: EventConfirmed, UserID: userID, Order: out.Clone(), At: out.CreatedAt})
	return out, nil
}

// confirmLocked runs with the user's key held.
func (s *OrderStore) confirmLocked(userID string) (*models.Order, error) {
	s.mu.RLock()
	p, ok := s.pending[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrNoPendingOrder
	}

	items, err := s.resolveItems(p.Items)
	if err != nil {
		return nil, err
	}
	name := p.Name
	if name == "" {
		name = (models.UserProfile{Email: p.Email}).DisplayName()
	}
	customer, err := models.NewCustomerInfo(name, p.Email, p.Phone, p.Address)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order, err := models.NewOrder("", customer, items, now)
	if err != nil {
		return nil, err
	}
	order.UserID = userID
	if err := order.Transition(models.StatusPlaced, now); err != nil {
		return nil, err
	}
	s.stampETA(order)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertLocked(order); err != nil {
		return nil, err
	}
	delete(s.pending, userID)
	return order.Clone(), nil
}

// PlaceDirect creates a confirmed order without a pending hold.
func (s *OrderStore) PlaceDirect(ctx context.Context, items []models.OrderItem, customer models.CustomerInfo) (*models.Order, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	resolved, err := s.resolveItems(items)
	if err != nil {
		return nil, err
	}
	customer.Email = models.NormalizeEmail(customer.Email)

	now := s.now()
	order, err := models.NewOrder("", customer, resolved, now)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(models.StatusPlaced, now); err != nil {
		return nil, err
	}
	s.stampETA(order)

	s.mu.Lock()
	if err := s.insertLocked(order); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	out := order.Clone()
	s.mu.Unlock()

	s.logger.Info("Direct order placed",
		zap.String("order_id", out.ID),
		zap.String("email", out.Customer.Email),
		zap.Float64("total_amount", out.TotalAmount))
	s.notify(ctx, Event{Type: EventConfirmed, Order: out.Clone(), At: now})
	return out, nil
}

// AdvanceStatus applies one transition from the table.
func (s *OrderStore) AdvanceStatus(ctx context.Context, orderID string, next models.OrderStatus) (*models.Order, error) {
	now := s.now()

	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return nil, models.ErrOrderNotFound
	}
	previous := order.Status
	if err := order.Transition(next, now); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.stampETA(order)
	out := order.Clone()
	s.mu.Unlock()

	s.logger.Info("Order status advanced",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)))
	s.notify(ctx, Event{Type: EventStatusChanged, UserID: out.UserID, Order: out.Clone(), Previous: previous, At: now})
	return out, nil
}

// Cancel is refused once the order is out for delivery or finished.
func (s *OrderStore) Cancel(ctx context.Context, orderID, reason string) (*models.Order, error) {
	now := s.now()

	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return nil, models.ErrOrderNotFound
	}
	previous := order.Status
	if err := order.Cancel(reason, now); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	order.EstimatedDeliveryTime = nil
	out := order.Clone()
	s.mu.Unlock()

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("reason", reason))
	s.notify(ctx, Event{Type: EventCancelled, UserID: out.UserID, Order: out.Clone(), Previous: previous, Reason: reason, At: now})
	return out, nil
}

func (s *OrderStore) FindByID(orderID string) (*models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// FindMostRecentByEmail picks the latest createdAt; on a tie the order
// inserted last wins.
func (s *OrderStore) FindMostRecentByEmail(email string) (*models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.Order
	for _, id := range s.byEmail[models.NormalizeEmail(email)] {
		o := s.orders[id]
		if best == nil || !o.CreatedAt.Before(best.CreatedAt) {
			best = o
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Clone(), true
}

// ListByEmail returns the customer's orders, newest first.
func (s *OrderStore) ListByEmail(email string) []*models.Order {
	s.mu.RLock()
	ids := s.byEmail[models.NormalizeEmail(email)]
	out := make([]*models.Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.orders[ids[i]].Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *OrderStore) CountByEmail(email string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail[models.NormalizeEmail(email)])
}

func (s *OrderStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Orders: len(s.orders), PendingHolds: len(s.pending)}
	for _, o := range s.orders {
		if o.IsActive() {
			st.ActiveOrders++
		}
	}
	return st
}

// resolveItems swaps each item for the live catalog entry so availability
// is checked against the current menu.
func (s *OrderStore) resolveItems(items []models.OrderItem) ([]models.OrderItem, error) {
	if len(items) == 0 {
		return nil, models.NewValidationError("order must contain at least one item")
	}
	out := make([]models.OrderItem, len(items))
	var problems []string
	for i, it := range items {
		live, ok := s.items.ByID(it.MenuItem.ID)
		if !ok {
			problems = append(problems, fmt.Sprintf("menu item %q no longer exists", it.MenuItem.ID))
			continue
		}
		it.MenuItem = live
		out[i] = it
	}
	if len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}
	if err := models.ValidateItems(out); err != nil {
		return nil, err
	}
	return out, nil
}

// insertLocked assigns a fresh id and indexes the order. Caller holds mu.
func (s *OrderStore) insertLocked(order *models.Order) error {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		if _, taken := s.orders[id]; taken {
			continue
		}
		order.ID = id
		s.orders[id] = order
		email := models.NormalizeEmail(order.Customer.Email)
		s.byEmail[email] = append(s.byEmail[email], id)
		return nil
	}
	return fmt.Errorf("failed to allocate a unique order id after %d attempts", maxIDAttempts)
}

func (s *OrderStore) stampETA(order *models.Order) {
	switch order.Status {
	case models.StatusCancelled:
		order.EstimatedDeliveryTime = nil
	default:
		est := s.eta.Estimate(string(order.Status))
		at := est.DeliveryAt
		order.EstimatedDeliveryTime = &at
	}
}

func (s *OrderStore) notify(ctx context.Context, ev Event) {
	for _, o := range s.observers {
		o.OnOrderEvent(ctx, ev)
	}
}

func clonePending(p *models.PendingOrder) *models.PendingOrder {
	c := *p
	c.Items = make([]models.OrderItem, len(p.Items))
	copy(c.Items, p.Items)
	return &c
}
