package models

import (
	"fmt"
	"strings"
)

type Size string

const (
	SizeSmall      Size = "Small"
	SizeMedium     Size = "Medium"
	SizeLarge      Size = "Large"
	SizeExtraLarge Size = "ExtraLarge"
)

// ParseSize accepts the spellings users type ("xl", "extra large", "LARGE").
func ParseSize(s string) (Size, bool) {
	switch strings.Join(strings.Fields(strings.ToLower(s)), " ") {
	case "small", "s":
		return SizeSmall, true
	case "medium", "m", "regular":
		return SizeMedium, true
	case "large", "l":
		return SizeLarge, true
	case "extralarge", "extra large", "extra-large", "extra_large", "xl":
		return SizeExtraLarge, true
	}
	return "", false
}

type Category string

const (
	CategoryVeg    Category = "veg"
	CategoryNonVeg Category = "non-veg"
)

func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "veg", "vegetarian":
		return CategoryVeg, true
	case "non-veg", "nonveg", "non_veg", "non vegetarian", "non-vegetarian":
		return CategoryNonVeg, true
	}
	return "", false
}

// MenuItem is an immutable catalog entry. Only IsAvailable is toggled after
// load, and only through the catalog.
type MenuItem struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Size        Size     `json:"size" yaml:"size"`
	Price       float64  `json:"price" yaml:"price"`
	Category    Category `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Ingredients []string `json:"ingredients" yaml:"ingredients"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases"`
	IsAvailable bool     `json:"is_available" yaml:"is_available"`
}

func (m MenuItem) Validate() error {
	var problems []string
	if strings.TrimSpace(m.ID) == "" {
		problems = append(problems, "menu item id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		problems = append(problems, "menu item name cannot be empty")
	}
	if m.Price <= 0 {
		problems = append(problems, fmt.Sprintf("menu item %q price must be positive", m.Name))
	}
	if len(m.Ingredients) == 0 {
		problems = append(problems, fmt.Sprintf("menu item %q must have at least one ingredient", m.Name))
	}
	if _, ok := ParseSize(string(m.Size)); !ok {
		problems = append(problems, fmt.Sprintf("menu item %q has unknown size %q", m.Name, m.Size))
	}
	if _, ok := ParseCategory(string(m.Category)); !ok {
		problems = append(problems, fmt.Sprintf("menu item %q has unknown category %q", m.Name, m.Category))
	}
	if len(problems) > 0 {
		return NewValidationError(problems...)
	}
	return nil
}

func (m MenuItem) DisplayName() string {
	return fmt.Sprintf("%s (%s)", m.Name, m.Size)
}

func (m MenuItem) FormattedPrice() string {
	return FormatPrice(m.Price)
}

func FormatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}
