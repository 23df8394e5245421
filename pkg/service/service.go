package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/pizzaplanet/pkg/chat"
	"github.com/example/pizzaplanet/pkg/eta"
	"github.com/example/pizzaplanet/pkg/menu"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/example/pizzaplanet/pkg/users"
	"go.uber.org/zap"
)

const (
	guestUserID  = "guest"
	historyLimit = 50
	eventLimit   = 100
)

// OrderLookup finds orders the in-memory store no longer holds, such as
// those placed before a restart.
type OrderLookup interface {
	LookupOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// ChatHandler is satisfied by chat.Router and by the per-user session
// front of it.
type ChatHandler interface {
	Handle(ctx context.Context, message string, cctx chat.Context) (chat.Result, error)
}

// OrderHistory serves past orders by email, such as the Redis cache or the
// MySQL archive.
type OrderHistory interface {
	OrdersByEmail(ctx context.Context, email string, limit int) ([]*models.Order, error)
}

// EventSource serves an order's audit trail, newest first.
type EventSource interface {
	OrderEvents(ctx context.Context, orderID string, limit int) ([]models.OrderEvent, error)
}

type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// OrderLine names an item the way a customer would. A missing quantity
// means one; an explicit zero or negative is rejected.
type OrderLine struct {
	Name                string `json:"name"`
	Size                string `json:"size"`
	Quantity            *int   `json:"quantity,omitempty"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type OrderStatusView struct {
	Order       *models.Order   `json:"order"`
	StatusLabel string          `json:"status_label"`
	ETA         eta.Estimate    `json:"eta"`
	Progression eta.Progression `json:"progression"`
}

type HealthReport struct {
	Status    string      `json:"status"`
	MenuItems int         `json:"menu_items"`
	Orders    store.Stats `json:"orders"`
	Users     int         `json:"users"`
}

type Service struct {
	catalog *menu.Catalog
	orders  *store.OrderStore
	users   *users.Directory
	chat    ChatHandler
	eta     *eta.Engine
	lookups []OrderLookup
	history []OrderHistory
	events  EventSource
	logger  *zap.Logger
}

func New(catalog *menu.Catalog, orders *store.OrderStore, dir *users.Directory, handler ChatHandler,
	engine *eta.Engine, logger *zap.Logger, lookups ...OrderLookup) *Service {
	return &Service{
		catalog: catalog,
		orders:  orders,
		users:   dir,
		chat:    handler,
		eta:     engine,
		lookups: lookups,
		logger:  logger,
	}
}

// SetChatHandler swaps the chat front, e.g. for the session layer.
func (s *Service) SetChatHandler(h ChatHandler) {
	s.chat = h
}

// SetHistory sets the sources UserOrders falls back to, tried in order.
func (s *Service) SetHistory(h ...OrderHistory) {
	s.history = h
}

func (s *Service) SetEventSource(src EventSource) {
	s.events = src
}

func (s *Service) HandleChatMessage(ctx context.Context, req ChatRequest) (chat.Result, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return chat.Result{}, models.NewValidationError("message is required")
	}
	return s.chat.Handle(ctx, msg, chat.Context{
		UserID:    ChatUserID(req),
		UserEmail: req.UserEmail,
		UserName:  req.UserName,
	})
}

// ChatUserID keys pending orders: the explicit id, else the email, else a
// shared guest slot.
func ChatUserID(req ChatRequest) string {
	if id := strings.TrimSpace(req.UserID); id != "" {
		return id
	}
	if email := models.NormalizeEmail(req.UserEmail); email != "" {
		return email
	}
	return guestUserID
}

// PlaceDirectOrder skips the confirmation step. Unknown items fail with
// an ItemNotFoundError carrying suggestions.
func (s *Service) PlaceDirectOrder(ctx context.Context, lines []OrderLine, customer models.CustomerInfo) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, models.NewValidationError("at least one item is required")
	}
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		size, err := parseOptionalSize(line.Size)
		if err != nil {
			return nil, err
		}
		item, ok := s.catalog.FindExact(line.Name, size)
		if !ok {
			return nil, &models.ItemNotFoundError{
				Name:        line.Name,
				Size:        line.Size,
				Suggestions: s.catalog.Suggest(line.Name, size, line.Name),
			}
		}
		qty := 1
		if line.Quantity != nil {
			qty = *line.Quantity
		}
		oi := models.OrderItem{MenuItem: item, Quantity: qty}
		if note := strings.TrimSpace(line.SpecialInstructions); note != "" {
			oi.SpecialInstructions = &note
		}
		items = append(items, oi)
	}

	order, err := s.orders.PlaceDirect(ctx, items, customer)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatusView, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.statusView(order), nil
}

func (s *Service) GetMenu(category string) ([]models.MenuItem, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" || c == "all" {
		return s.catalog.All(), nil
	}
	cat, ok := models.ParseCategory(c)
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown category %q", category))
	}
	return s.catalog.ByCategory(cat), nil
}

func (s *Service) Suggestions(preference string) ([]models.MenuItem, string) {
	return s.catalog.SuggestForPreference(preference)
}

func (s *Service) CheckUser(email string) (users.Check, error) {
	if !models.ValidEmail(models.NormalizeEmail(email)) {
		return users.Check{}, models.NewValidationError("valid email is required")
	}
	return s.users.Check(email), nil
}

func (s *Service) SaveUser(ctx context.Context, email, name string) (*models.UserProfile, error) {
	return s.users.Save(ctx, email, name)
}

// AdvanceOrderStatus accepts any status name, "placed" included. A target
// of cancelled goes through CancelOrder.
func (s *Service) AdvanceOrderStatus(ctx context.Context, orderID, status string) (*OrderStatusView, error) {
	next, ok := models.ParseStatus(status)
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	if next == models.StatusCancelled {
		return s.CancelOrder(ctx, orderID, "")
	}
	order, err := s.orders.AdvanceStatus(ctx, orderID, next)
	if err != nil {
		return nil, err
	}
	return s.statusView(order), nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID, reason string) (*OrderStatusView, error) {
	order, err := s.orders.Cancel(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}
	return s.statusView(order), nil
}

// UserOrders lists orders for email, newest first. When memory holds none
// the history sources are consulted and the first non-empty answer wins.
func (s *Service) UserOrders(ctx context.Context, email string) ([]*models.Order, error) {
	key := models.NormalizeEmail(email)
	if !models.ValidEmail(key) {
		return nil, models.NewValidationError("valid email is required")
	}
	orders := s.orders.ListByEmail(key)
	if len(orders) > 0 {
		return orders, nil
	}
	for _, h := range s.history {
		past, err := h.OrdersByEmail(ctx, key, historyLimit)
		if err != nil {
			s.logger.Warn("Order history lookup failed", zap.String("email", key), zap.Error(err))
			continue
		}
		if len(past) > 0 {
			return past, nil
		}
	}
	return orders, nil
}

// OrderEvents returns the audit trail recorded for an order. An order with
// no events that cannot be found either is reported as not found.
func (s *Service) OrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, models.NewValidationError("order id is required")
	}
	if s.events == nil {
		return nil, models.ErrEventsUnavailable
	}
	events, err := s.events.OrderEvents(ctx, id, eventLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read order events: %w", err)
	}
	if len(events) == 0 {
		if _, err := s.findOrder(ctx, id); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (s *Service) Health() HealthReport {
	return HealthReport{
		Status:    "healthy",
		MenuItems: s.catalog.Len(),
		Orders:    s.orders.Stats(),
		Users:     s.users.Count(),
	}
}

func (s *Service) findOrder(ctx context.Context, orderID string) (*models.Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, models.NewValidationError("order id is required")
	}
	if o, ok := s.orders.FindByID(id); ok {
		return o, nil
	}
	for _, l := range s.lookups {
		o, err := l.LookupOrder(ctx, id)
		if err == nil && o != nil {
			return o, nil
		}
		if err != nil && !errors.Is(err, models.ErrOrderNotFound) {
			s.logger.Warn("Order lookup failed", zap.String("order_id", id), zap.Error(err))
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
}

func (s *Service) statusView(o *models.Order) *OrderStatusView {
	return &OrderStatusView{
		Order:       o,
		StatusLabel: o.Status.Label(),
		ETA:         s.eta.ForOrder(o),
		Progression: eta.StatusProgression(string(o.Status)),
	}
}

func parseOptionalSize(s string) (models.Size, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	size, ok := models.ParseSize(s)
	if !ok {
		return "", models.NewValidationError(fmt.Sprintf("unknown size %q", s))
	}
	return size, nil
}
