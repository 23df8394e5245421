package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/pizzaplanet/pkg/eta"
	"github.com/example/pizzaplanet/pkg/intent"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/example/pizzaplanet/pkg/users"
	"go.uber.org/zap"
)

// Actions reported beside the intent when a branch ends somewhere other
// than the intent's default tool.
const (
	ActionRequestEmail      = "request_email"
	ActionAwaitConfirmation = "await_confirmation"
	ActionItemNotFound      = "item_not_found"
	ActionOrderPlaced       = "order_placed"
	ActionNoPendingOrder    = "no_pending_order"
	ActionOrderInvalid      = "order_invalid"
	ActionNoOrderFound      = "no_order_found"
)

type Classifier interface {
	Classify(ctx context.Context, message string, cctx intent.Context) intent.Result
}

type Catalog interface {
	All() []models.MenuItem
	Len() int
	ByCategory(category models.Category) []models.MenuItem
	FindExact(name string, size models.Size) (models.MenuItem, bool)
	Suggest(name string, size models.Size, message string) []models.MenuItem
	SuggestForPreference(preference string) ([]models.MenuItem, string)
}

type Orders interface {
	HoldPending(ctx context.Context, userID string, items []models.OrderItem, contact store.Contact) (*models.PendingOrder, error)
	Confirm(ctx context.Context, userID string) (*models.Order, error)
	FindByID(orderID string) (*models.Order, bool)
	Stats() store.Stats
}

type Users interface {
	Check(email string) users.Check
	MostRecentOrder(email string) (*models.Order, bool)
}

// Estimator reports the delivery estimate stamped on an order.
type Estimator interface {
	ForOrder(o *models.Order) eta.Estimate
}

// Phraser renders facts as customer-facing text.
type Phraser interface {
	Phrase(ctx context.Context, f Facts) string
}

// Context identifies who is talking.
type Context struct {
	UserID    string
	UserEmail string
	UserName  string
}

// OrderContext is the order a reply talks about.
type OrderContext struct {
	OrderID     string             `json:"order_id"`
	Status      models.OrderStatus `json:"status"`
	StatusLabel string             `json:"status_label"`
	Items       []models.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	ETA         eta.Estimate       `json:"eta"`
	Progression eta.Progression    `json:"progression"`
}

type Result struct {
	Response       string               `json:"response"`
	Intent         intent.Intent        `json:"intent"`
	Action         string               `json:"action"`
	SuggestedItems []models.MenuItem    `json:"suggested_items,omitempty"`
	PendingOrder   *models.PendingOrder `json:"pending_order,omitempty"`
	OrderContext   *OrderContext        `json:"order_context,omitempty"`
}

// Defaults fill the delivery details chat orders do not ask for.
type Defaults struct {
	Address string
	Phone   string
}

type Router struct {
	classifier Classifier
	catalog    Catalog
	orders     Orders
	users      Users
	eta        Estimator
	phraser    Phraser
	defaults   Defaults
	logger     *zap.Logger
}

func NewRouter(classifier Classifier, catalog Catalog, orders Orders, users Users, estimator Estimator,
	phraser Phraser, defaults Defaults, logger *zap.Logger) *Router {
	return &Router{
		classifier: classifier,
		catalog:    catalog,
		orders:     orders,
		users:      users,
		eta:        estimator,
		phraser:    phraser,
		defaults:   defaults,
		logger:     logger,
	}
}

// Handle classifies one message and runs its branch. Domain failures are
// turned into replies; only unexpected store errors are returned.
func (r *Router) Handle(ctx context.Context, message string, cctx Context) (Result, error) {
	cctx.UserEmail = models.NormalizeEmail(cctx.UserEmail)
	cctx.UserName = r.resolveName(cctx)

	cls := r.classifier.Classify(ctx, message, intent.Context{
		UserID:    cctx.UserID,
		UserEmail: cctx.UserEmail,
		UserName:  cctx.UserName,
	})

	var (
		res   Result
		facts Facts
		err   error
	)
	switch cls.Intent {
	case intent.Greeting:
		res, facts = r.greet(cctx)
	case intent.Menu:
		res, facts = r.menu(cls)
	case intent.Order:
		res, facts, err = r.order(ctx, message, cls, cctx)
	case intent.Confirm:
		res, facts, err = r.confirm(ctx, cctx)
	case intent.Track:
		res, facts = r.track(cls, cctx)
	case intent.Recommendation:
		res, facts = r.recommend(cls)
	case intent.Health:
		res, facts = r.health()
	default:
		res, facts = r.casual(cctx)
	}
	if err != nil {
		return Result{}, err
	}

	if res.Intent == "" {
		res.Intent = cls.Intent
	}
	if res.Action == "" {
		res.Action = cls.Intent.Action()
	}
	facts.Intent = res.Intent
	facts.Message = message
	facts.UserName = cctx.UserName
	res.Response = r.phraser.Phrase(ctx, facts)

	r.logger.Info("Chat message handled",
		zap.String("user_id", cctx.UserID),
		zap.String("intent", string(res.Intent)),
		zap.String("action", res.Action),
		zap.String("source", cls.Source))
	return res, nil
}

func (r *Router) resolveName(cctx Context) string {
	if name := strings.TrimSpace(cctx.UserName); name != "" {
		return name
	}
	if cctx.UserEmail == "" || r.users == nil {
		return ""
	}
	if c := r.users.Check(cctx.UserEmail); c.Exists {
		return c.Name
	}
	return ""
}

func (r *Router) greet(cctx Context) (Result, Facts) {
	tmpl := "Hi! Welcome to Pizza Planet 🍕 I can show you the menu, take your order or track a delivery. What would you like?"
	if cctx.UserName != "" {
		tmpl = fmt.Sprintf("Hi %s! Welcome to Pizza Planet 🍕 I can show you the menu, take your order or track a delivery. What would you like?", cctx.UserName)
	}
	var details []string
	if cctx.UserEmail != "" && r.users != nil {
		if c := r.users.Check(cctx.UserEmail); c.Exists && c.OrdersCount > 0 {
			tmpl = fmt.Sprintf("Welcome back, %s! 🍕 You've ordered with us %d time(s). Hungry again? I can show the menu, take an order or track a delivery.",
				c.Name, c.OrdersCount)
			details = append(details, fmt.Sprintf("returning customer with %d previous orders", c.OrdersCount))
		}
	}
	return Result{}, Facts{Template: tmpl, Details: details}
}

func (r *Router) menu(cls intent.Result) (Result, Facts) {
	items := r.catalog.All()
	label := "our menu"
	if cat, ok := models.ParseCategory(cls.Category); ok {
		items = r.catalog.ByCategory(cat)
		label = "our " + categoryLabel(cat) + " pizzas"
	}
	tmpl := fmt.Sprintf("Here's %s: %s. What sounds good to you? 🍕", label, listItems(items))
	return Result{SuggestedItems: items}, Facts{Template: tmpl, Details: itemDetails(items)}
}

func (r *Router) order(ctx context.Context, message string, cls intent.Result, cctx Context) (Result, Facts, error) {
	if cls.ExtractedName == "" {
		suggestions := r.catalog.Suggest("", cls.ExtractedSize, message)
		tmpl := fmt.Sprintf("Which pizza would you like? Popular picks: %s.", listItems(suggestions))
		return Result{Action: ActionItemNotFound, SuggestedItems: suggestions},
			Facts{Template: tmpl, Details: itemDetails(suggestions)}, nil
	}

	item, ok := r.catalog.FindExact(cls.ExtractedName, cls.ExtractedSize)
	if !ok {
		suggestions := r.catalog.Suggest(cls.ExtractedName, cls.ExtractedSize, message)
		want := cls.ExtractedName
		if cls.ExtractedSize != "" {
			want = fmt.Sprintf("%s (%s)", cls.ExtractedName, cls.ExtractedSize)
		}
		tmpl := fmt.Sprintf("I couldn't find %s on our menu. Similar options: %s. Which one would you like?", want, listItems(suggestions))
		return Result{Action: ActionItemNotFound, SuggestedItems: suggestions},
			Facts{Template: tmpl, Details: itemDetails(suggestions)}, nil
	}

	found := []models.MenuItem{item}
	if !models.ValidEmail(cctx.UserEmail) {
		tmpl := fmt.Sprintf("Great choice! I found %s for %s. Please share your email address so I can place the order.",
			item.DisplayName(), item.FormattedPrice())
		return Result{Action: ActionRequestEmail, SuggestedItems: found},
			Facts{Template: tmpl, Details: itemDetails(found)}, nil
	}

	pending, err := r.orders.HoldPending(ctx, cctx.UserID, []models.OrderItem{{MenuItem: item, Quantity: 1}}, store.Contact{
		Name:    cctx.UserName,
		Email:   cctx.UserEmail,
		Phone:   r.defaults.Phone,
		Address: r.defaults.Address,
	})
	if err != nil {
		if errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrItemNotFound) {
			suggestions := r.catalog.Suggest(item.Name, item.Size, message)
			tmpl := fmt.Sprintf("Sorry, %s can't be ordered right now. You could try: %s.", item.DisplayName(), listItems(suggestions))
			return Result{Action: ActionItemNotFound, SuggestedItems: suggestions},
				Facts{Template: tmpl, Details: itemDetails(suggestions)}, nil
		}
		return Result{}, Facts{}, fmt.Errorf("failed to hold pending order: %w", err)
	}

	tmpl := fmt.Sprintf("Great! I found %s for %s. Would you like me to place this order? Reply \"yes\" to confirm.",
		item.DisplayName(), item.FormattedPrice())
	return Result{Action: ActionAwaitConfirmation, SuggestedItems: found, PendingOrder: pending},
		Facts{Template: tmpl, Details: itemDetails(found)}, nil
}

func (r *Router) confirm(ctx context.Context, cctx Context) (Result, Facts, error) {
	order, err := r.orders.Confirm(ctx, cctx.UserID)
	switch {
	case errors.Is(err, models.ErrNoPendingOrder):
		return Result{Action: ActionNoPendingOrder},
			Facts{Template: "There's no order waiting for confirmation. Tell me which pizza you'd like and I'll set it up! 🍕"}, nil
	case errors.Is(err, models.ErrValidation):
		return Result{Action: ActionOrderInvalid},
			Facts{Template: fmt.Sprintf("I couldn't place that order: %s. Your selection is still saved, so you can pick something else.", problems(err))}, nil
	case err != nil:
		return Result{}, Facts{}, fmt.Errorf("failed to confirm order: %w", err)
	}

	oc := r.orderContext(order)
	tmpl := fmt.Sprintf("🎉 Your order has been placed! Order ID: %s. Items: %s. Total: %s. Estimated delivery: %s (around %s).",
		order.ID, order.ItemsSummary(), models.FormatPrice(order.TotalAmount), oc.ETA.Text, oc.ETA.DeliverySlot)
	return Result{Action: ActionOrderPlaced, OrderContext: oc},
		Facts{Template: tmpl, OrderID: order.ID, Details: orderDetails(oc)}, nil
}

func (r *Router) track(cls intent.Result, cctx Context) (Result, Facts) {
	var (
		order *models.Order
		ok    bool
	)
	if cls.OrderID != "" {
		order, ok = r.orders.FindByID(cls.OrderID)
	}
	if !ok && cctx.UserEmail != "" && r.users != nil {
		order, ok = r.users.MostRecentOrder(cctx.UserEmail)
	}
	if !ok {
		tmpl := "I couldn't find any orders for you. Would you like to place a new one? 🍕"
		if cls.OrderID != "" {
			tmpl = fmt.Sprintf("I couldn't find order %s. Please check the id, or place a new order. 🍕", cls.OrderID)
		}
		return Result{Action: ActionNoOrderFound}, Facts{Template: tmpl}
	}

	oc := r.orderContext(order)
	tmpl := eta.Message(order.ID, oc.ETA)
	if order.IsActive() && oc.ETA.Minutes > 0 {
		tmpl += fmt.Sprintf(" Expected around %s.", oc.ETA.DeliverySlot)
	}
	tmpl += fmt.Sprintf(" Items: %s.", order.ItemsSummary())
	return Result{OrderContext: oc}, Facts{Template: tmpl, OrderID: order.ID, Details: orderDetails(oc)}
}

func (r *Router) recommend(cls intent.Result) (Result, Facts) {
	var (
		items []models.MenuItem
		label string
	)
	if cls.Preference == "" || cls.Preference == "popular" {
		items = append(firstN(r.catalog.ByCategory(models.CategoryVeg), 2), firstN(r.catalog.ByCategory(models.CategoryNonVeg), 2)...)
		label = "popular"
	} else {
		items, label = r.catalog.SuggestForPreference(cls.Preference)
	}
	tmpl := fmt.Sprintf("Here are my %s recommendations: %s. Which one catches your eye? 🍕", label, listItems(items))
	return Result{SuggestedItems: items}, Facts{Template: tmpl, Details: itemDetails(items)}
}

func (r *Router) health() (Result, Facts) {
	stats := r.orders.Stats()
	tmpl := fmt.Sprintf("All systems go! 🍕 %d pizzas on the menu, %d orders so far, %d in progress.",
		r.catalog.Len(), stats.Orders, stats.ActiveOrders)
	return Result{}, Facts{Template: tmpl}
}

func (r *Router) casual(cctx Context) (Result, Facts) {
	name := ""
	if cctx.UserName != "" {
		name = " " + cctx.UserName
	}
	tmpl := fmt.Sprintf("Hi%s! I'm here to help you order delicious pizzas. You can ask me to show the menu, place an order, or track an existing order. What would you like to do? 🍕", name)
	return Result{}, Facts{Template: tmpl}
}

func (r *Router) orderContext(o *models.Order) *OrderContext {
	return &OrderContext{
		OrderID:     o.ID,
		Status:      o.Status,
		StatusLabel: o.Status.Label(),
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		ETA:         r.eta.ForOrder(o),
		Progression: eta.StatusProgression(string(o.Status)),
	}
}

func categoryLabel(c models.Category) string {
	if c == models.CategoryNonVeg {
		return "non-vegetarian"
	}
	return "vegetarian"
}

func listItems(items []models.MenuItem) string {
	if len(items) == 0 {
		return "nothing right now"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s - %s", it.DisplayName(), it.FormattedPrice())
	}
	return strings.Join(parts, ", ")
}

func itemDetails(items []models.MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s, %s, %s", it.DisplayName(), it.FormattedPrice(), it.Description))
	}
	return out
}

func orderDetails(oc *OrderContext) []string {
	return []string{
		"order id: " + oc.OrderID,
		"status: " + oc.StatusLabel,
		"total: " + models.FormatPrice(oc.TotalAmount),
		"eta: " + oc.ETA.Text,
		"delivery slot: " + oc.ETA.DeliverySlot,
	}
}

func problems(err error) string {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return strings.Join(verr.Problems, "; ")
	}
	return err.Error()
}

func firstN(items []models.MenuItem, n int) []models.MenuItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
