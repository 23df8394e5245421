package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"go.uber.org/zap"
)

// OrderCounter is the read side of the order store used for counts.
type OrderCounter interface {
	CountByEmail(email string) int
	FindMostRecentByEmail(email string) (*models.Order, bool)
}

// Check is the answer to "do we know this email?".
type Check struct {
	Exists      bool                `json:"exists"`
	Email       string              `json:"email"`
	Name        string              `json:"name,omitempty"`
	OrdersCount int                 `json:"orders_count"`
	User        *models.UserProfile `json:"user,omitempty"`
}

// Directory maps normalized email to a customer profile. It also observes
// the order store so confirmed orders bump the profile counters.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]*models.UserProfile
	orders OrderCounter
	now    func() time.Time
	logger *zap.Logger
}

func NewDirectory(orders OrderCounter, logger *zap.Logger) *Directory {
	return &Directory{
		users:  make(map[string]*models.UserProfile),
		orders: orders,
		now:    time.Now,
		logger: logger,
	}
}

// Save creates or renames the profile for email.
func (d *Directory) Save(ctx context.Context, email, name string) (*models.UserProfile, error) {
	key := models.NormalizeEmail(email)
	if !models.ValidEmail(key) {
		return nil, models.NewValidationError("valid email is required")
	}
	name = strings.TrimSpace(name)

	d.mu.Lock()
	u, ok := d.users[key]
	if !ok {
		u = &models.UserProfile{Email: key, CreatedAt: d.now(), IsActive: true}
		d.users[key] = u
	}
	if name != "" {
		u.Name = name
	}
	out := *u
	d.mu.Unlock()

	d.logger.Info("User saved", zap.String("email", key), zap.Bool("created", !ok))
	return &out, nil
}

func (d *Directory) Get(email string) (*models.UserProfile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[models.NormalizeEmail(email)]
	if !ok {
		return nil, false
	}
	out := *u
	return &out, true
}

// Check reports existence and the order count computed from the store.
func (d *Directory) Check(email string) Check {
	key := models.NormalizeEmail(email)
	res := Check{Email: key}
	if u, ok := d.Get(key); ok {
		res.Exists = true
		res.Name = u.DisplayName()
		res.User = u
	}
	if d.orders != nil {
		res.OrdersCount = d.orders.CountByEmail(key)
	}
	return res
}

// MostRecentOrder is the order tracking falls back to when no id is given.
func (d *Directory) MostRecentOrder(email string) (*models.Order, bool) {
	if d.orders == nil {
		return nil, false
	}
	return d.orders.FindMostRecentByEmail(email)
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// OnOrderEvent creates profiles for unseen emails and bumps counters on
// confirmation.
func (d *Directory) OnOrderEvent(_ context.Context, ev store.Event) {
	if ev.Type != store.EventConfirmed || ev.Order == nil {
		return
	}
	key := models.NormalizeEmail(ev.Order.Customer.Email)
	if key == "" {
		return
	}

	d.mu.Lock()
	u, ok := d.users[key]
	if !ok {
		u = &models.UserProfile{Email: key, Name: ev.Order.Customer.Name, CreatedAt: ev.At, IsActive: true}
		d.users[key] = u
	}
	u.TotalOrders++
	at := ev.At
	u.LastOrderAt = &at
	total := u.TotalOrders
	d.mu.Unlock()

	d.logger.Debug("User order recorded",
		zap.String("email", key),
		zap.String("order_id", ev.Order.ID),
		zap.Int("total_orders", total))
}
