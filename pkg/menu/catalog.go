package menu

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/example/pizzaplanet/pkg/models"
	"go.uber.org/zap"
)

const maxSuggestions = 3

var (
	meatKeywords = []string{"non-veg", "nonveg", "chicken", "meat", "pepperoni", "bbq", "sausage", "ham", "bacon", "barbecue"}
	vegKeywords  = []string{"veg", "vegetarian", "veggie", "vegetable", "paneer", "mushroom", "plant-based"}
)

// Catalog is the read-mostly menu. Readers never lock; availability
// changes swap in a new snapshot.
type Catalog struct {
	items  atomic.Pointer[[]models.MenuItem]
	mu     sync.Mutex
	logger *zap.Logger
}

func NewCatalog(items []models.MenuItem, logger *zap.Logger) (*Catalog, error) {
	if len(items) == 0 {
		return nil, models.NewValidationError("menu must contain at least one item")
	}
	seen := make(map[string]struct{}, len(items))
	normalized := make([]models.MenuItem, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[it.ID]; dup {
			return nil, models.NewValidationError(fmt.Sprintf("duplicate menu item id %q", it.ID))
		}
		seen[it.ID] = struct{}{}
		it.Size, _ = models.ParseSize(string(it.Size))
		it.Category, _ = models.ParseCategory(string(it.Category))
		it.Ingredients = append([]string(nil), it.Ingredients...)
		it.Aliases = append([]string(nil), it.Aliases...)
		normalized = append(normalized, it)
	}

	c := &Catalog{logger: logger}
	c.items.Store(&normalized)
	logger.Info("Menu catalog loaded", zap.Int("items", len(normalized)))
	return c, nil
}

func (c *Catalog) snapshot() []models.MenuItem {
	return *c.items.Load()
}

// All returns the catalog in load order.
func (c *Catalog) All() []models.MenuItem {
	return append([]models.MenuItem(nil), c.snapshot()...)
}

func (c *Catalog) Len() int {
	return len(c.snapshot())
}

func (c *Catalog) ByID(id string) (models.MenuItem, bool) {
	for _, it := range c.snapshot() {
		if it.ID == id {
			return it, true
		}
	}
	return models.MenuItem{}, false
}

// FindExact matches name or any alias case-insensitively. An empty size
// matches every size and the first hit in catalog order wins.
func (c *Catalog) FindExact(name string, size models.Size) (models.MenuItem, bool) {
	q := normalize(name)
	if q == "" {
		return models.MenuItem{}, false
	}
	for _, it := range c.snapshot() {
		if size != "" && it.Size != size {
			continue
		}
		if normalize(it.Name) == q {
			return it, true
		}
		for _, alias := range it.Aliases {
			if normalize(alias) == q {
				return it, true
			}
		}
	}
	return models.MenuItem{}, false
}

// SuggestSimilar returns up to three items sharing a word with the query,
// through the item name or one of its aliases. When size is set, items of
// that size rank ahead of the rest; otherwise catalog order holds.
func (c *Catalog) SuggestSimilar(name string, size models.Size) []models.MenuItem {
	query := tokenSet(name)
	if len(query) == 0 {
		return nil
	}
	var sized, other []models.MenuItem
	for _, it := range c.snapshot() {
		if !overlaps(query, it.Name) && !anyOverlap(query, it.Aliases) {
			continue
		}
		if size != "" && it.Size == size {
			sized = append(sized, it)
		} else {
			other = append(other, it)
		}
	}
	return firstN(append(sized, other...), maxSuggestions)
}

// SuggestFallback picks category suggestions from the wording of a message
// when SuggestSimilar found nothing.
func (c *Catalog) SuggestFallback(message string) []models.MenuItem {
	tokens := tokenSet(message)
	switch {
	case containsAny(tokens, meatKeywords):
		return firstN(c.ByCategory(models.CategoryNonVeg), maxSuggestions)
	case containsAny(tokens, vegKeywords):
		return firstN(c.ByCategory(models.CategoryVeg), maxSuggestions)
	default:
		return firstN(c.snapshot(), maxSuggestions)
	}
}

// Suggest is SuggestSimilar with the category fallback applied.
func (c *Catalog) Suggest(name string, size models.Size, message string) []models.MenuItem {
	if s := c.SuggestSimilar(name, size); len(s) > 0 {
		return s
	}
	return c.SuggestFallback(message)
}

// SuggestForPreference maps a free-text preference to a short list and a
// label describing it.
func (c *Catalog) SuggestForPreference(preference string) ([]models.MenuItem, string) {
	tokens := tokenSet(preference)
	switch {
	case containsAny(tokens, []string{"non-veg", "nonveg", "chicken", "meat", "pepperoni"}):
		return firstN(c.ByCategory(models.CategoryNonVeg), maxSuggestions), "non-vegetarian"
	case containsAny(tokens, []string{"veg", "vegetarian", "paneer"}):
		return firstN(c.ByCategory(models.CategoryVeg), maxSuggestions), "vegetarian"
	case containsAny(tokens, []string{"spicy", "hot", "spice"}):
		var spicy []models.MenuItem
		for _, it := range c.snapshot() {
			if isSpicy(it) {
				spicy = append(spicy, it)
			}
		}
		return firstN(spicy, maxSuggestions), "spicy"
	default:
		return firstN(c.snapshot(), maxSuggestions), "popular"
	}
}

// ByCategory returns every item of the category, catalog order.
func (c *Catalog) ByCategory(category models.Category) []models.MenuItem {
	var out []models.MenuItem
	for _, it := range c.snapshot() {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Terms lists every lower-cased name and alias. The intent classifier uses
// it to spot menu items in free text.
func (c *Catalog) Terms() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, it := range c.snapshot() {
		for _, t := range append([]string{it.Name}, it.Aliases...) {
			t = normalize(t)
			if _, ok := seen[t]; ok || t == "" {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// SetAvailability is the administrative toggle for IsAvailable.
func (c *Catalog) SetAvailability(id string, available bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot()
	next := make([]models.MenuItem, len(current))
	copy(next, current)
	for i := range next {
		if next[i].ID == id {
			next[i].IsAvailable = available
			c.items.Store(&next)
			c.logger.Info("Menu item availability changed",
				zap.String("item_id", id),
				zap.Bool("available", available))
			return nil
		}
	}
	return &models.ItemNotFoundError{Name: id}
}

func isSpicy(it models.MenuItem) bool {
	if strings.Contains(strings.ToLower(it.Description), "spic") {
		return true
	}
	for _, ing := range it.Ingredients {
		if strings.Contains(strings.ToLower(ing), "spic") {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,!?;:\"'()")
		if f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

func overlaps(query map[string]struct{}, phrase string) bool {
	for t := range tokenSet(phrase) {
		if _, ok := query[t]; ok {
			return true
		}
	}
	return false
}

func anyOverlap(query map[string]struct{}, phrases []string) bool {
	for _, p := range phrases {
		if overlaps(query, p) {
			return true
		}
	}
	return false
}

func containsAny(tokens map[string]struct{}, words []string) bool {
	for _, w := range words {
		if _, ok := tokens[w]; ok {
			return true
		}
	}
	return false
}

func firstN(items []models.MenuItem, n int) []models.MenuItem {
	if len(items) > n {
		items = items[:n]
	}
	return append([]models.MenuItem(nil), items...)
}
