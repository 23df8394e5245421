package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail requires an "@" followed by a dotted domain segment.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func NewCustomerInfo(name, email, phone, address string) (CustomerInfo, error) {
	c := CustomerInfo{
		Name:    strings.TrimSpace(name),
		Email:   NormalizeEmail(email),
		Phone:   strings.TrimSpace(phone),
		Address: strings.TrimSpace(address),
	}
	if err := c.Validate(); err != nil {
		return CustomerInfo{}, err
	}
	return c, nil
}

func (c CustomerInfo) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Name) == "" {
		problems = append(problems, "customer name is required")
	}
	if !ValidEmail(c.Email) {
		problems = append(problems, "valid email is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		problems = append(problems, "phone number is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		problems = append(problems, "delivery address is required")
	}
	if len(problems) > 0 {
		return NewValidationError(problems...)
	}
	return nil
}

type OrderItem struct {
	MenuItem            MenuItem `json:"menu_item"`
	Quantity            int      `json:"quantity"`
	SpecialInstructions *string  `json:"special_instructions,omitempty"`
}

func (i OrderItem) TotalPrice() float64 {
	return i.MenuItem.Price * float64(i.Quantity)
}

func (i OrderItem) DisplayName() string {
	s := fmt.Sprintf("%dx %s", i.Quantity, i.MenuItem.DisplayName())
	if i.SpecialInstructions != nil && *i.SpecialInstructions != "" {
		s += fmt.Sprintf(" (Note: %s)", *i.SpecialInstructions)
	}
	return s
}

// ValidateItems rejects empty lists, non-positive quantities and
// unavailable items, reporting every problem at once.
func ValidateItems(items []OrderItem) error {
	if len(items) == 0 {
		return NewValidationError("order must contain at least one item")
	}
	var problems []string
	for _, it := range items {
		if it.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("quantity for %s must be positive", it.MenuItem.Name))
		}
		if !it.MenuItem.IsAvailable {
			problems = append(problems, fmt.Sprintf("%s is not available", it.MenuItem.DisplayName()))
		}
	}
	if len(problems) > 0 {
		return NewValidationError(problems...)
	}
	return nil
}

// PendingOrder is the single unconfirmed hold a user may have.
type PendingOrder struct {
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Address   string      `json:"address"`
	Phone     string      `json:"phone"`
	Email     string      `json:"email,omitempty"`
	Name      string      `json:"name,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (p PendingOrder) TotalAmount() float64 {
	return sumItems(p.Items)
}

type Order struct {
	ID                    string       `json:"id"`
	UserID                string       `json:"user_id,omitempty"`
	Customer              CustomerInfo `json:"customer"`
	Items                 []OrderItem  `json:"items"`
	Status                OrderStatus  `json:"status"`
	TotalAmount           float64      `json:"total_amount"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
	EstimatedDeliveryTime *time.Time   `json:"estimated_delivery_time,omitempty"`
	SpecialInstructions   *string      `json:"special_instructions,omitempty"`
}

// NewOrder builds an order in the Pending state. The caller supplies the id.
func NewOrder(id string, customer CustomerInfo, items []OrderItem, now time.Time) (*Order, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	copied := make([]OrderItem, len(items))
	copy(copied, items)
	return &Order{
		ID:          id,
		Customer:    customer,
		Items:       copied,
		Status:      StatusPending,
		TotalAmount: sumItems(copied),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Transition applies the transition table. The order is untouched on error.
func (o *Order) Transition(next OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.Status.IsCancellable() {
		return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Customer request"
	}
	note := "CANCELLED: " + reason
	o.Status = StatusCancelled
	o.UpdatedAt = now
	o.SpecialInstructions = &note
	return nil
}

func (o *Order) IsActive() bool {
	return !o.Status.IsTerminal()
}

func (o *Order) TotalItems() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Clone returns a deep copy safe to hand out of the store.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.EstimatedDeliveryTime != nil {
		t := *o.EstimatedDeliveryTime
		c.EstimatedDeliveryTime = &t
	}
	if o.SpecialInstructions != nil {
		s := *o.SpecialInstructions
		c.SpecialInstructions = &s
	}
	return &c
}

func (o *Order) ItemsSummary() string {
	parts := make([]string, len(o.Items))
	for i, it := range o.Items {
		parts[i] = it.DisplayName()
	}
	return strings.Join(parts, ", ")
}

// OrderEvent is one entry of an order's audit trail.
type OrderEvent struct {
	Action string                 `json:"action"`
	UserID string                 `json:"user_id,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
	At     time.Time              `json:"at"`
}

func sumItems(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += it.TotalPrice()
	}
	return total
}
