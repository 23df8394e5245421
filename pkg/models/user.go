package models

import (
	"strings"
	"time"
)

type UserProfile struct {
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	CreatedAt   time.Time  `json:"created_at"`
	LastOrderAt *time.Time `json:"last_order_at,omitempty"`
	TotalOrders int        `json:"total_orders"`
	IsActive    bool       `json:"is_active"`
}

// DisplayName falls back to the local part of the email.
func (u UserProfile) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
