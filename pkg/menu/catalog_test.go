package menu

import (
	"errors"
	"sync"
	"testing"

	"github.com/example/pizzaplanet/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(Default(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestFindExact_AllCatalogCombinations(t *testing.T) {
	c := newTestCatalog(t)
	for _, it := range c.All() {
		got, ok := c.FindExact(it.Name, it.Size)
		require.True(t, ok, "expected %s to be found", it.DisplayName())
		assert.Equal(t, it.ID, got.ID)

		got, ok = c.FindExact(it.Name, "")
		require.True(t, ok)
		assert.Equal(t, it.ID, got.ID)
	}
}

func TestFindExact_MissingCombinations(t *testing.T) {
	c := newTestCatalog(t)
	sizes := []models.Size{models.SizeSmall, models.SizeMedium, models.SizeLarge, models.SizeExtraLarge}
	for _, it := range c.All() {
		for _, size := range sizes {
			if size == it.Size {
				continue
			}
			_, ok := c.FindExact(it.Name, size)
			assert.False(t, ok, "%s %s should not exist", size, it.Name)
			assert.LessOrEqual(t, len(c.SuggestSimilar(it.Name, it.Size)), 3)
		}
	}
}

func TestFindExact_AliasesAndCase(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		query  string
		size   models.Size
		wantID string
	}{
		{"MARGHERITA", "", "1"},
		{"margarita", models.SizeLarge, "1"},
		{"bbq", "", "4"},
		{"  Chicken   BBQ ", "", "4"},
		{"fungi", models.SizeSmall, "7"},
		{"chicken", "", "8"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := c.FindExact(tt.query, tt.size)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, ok := c.FindExact("hawaiian", "")
	assert.False(t, ok)
	_, ok = c.FindExact("", "")
	assert.False(t, ok)
}

func TestSuggestSimilar(t *testing.T) {
	c := newTestCatalog(t)

	got := c.SuggestSimilar("chicken tikka", "")
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 3)
	ids := make([]string, len(got))
	for i, it := range got {
		ids[i] = it.ID
	}
	// catalog order: Paneer Tikka, BBQ Chicken, Chicken Supreme
	assert.Equal(t, []string{"5", "4", "8"}, ids)

	assert.Empty(t, c.SuggestSimilar("hawaiian", models.SizeLarge))
	assert.Empty(t, c.SuggestSimilar("   ", ""))
}

func TestSuggestSimilar_SameSizeFirst(t *testing.T) {
	c := newTestCatalog(t)

	got := c.SuggestSimilar("chicken tikka", models.SizeMedium)
	require.Len(t, got, 3)
	assert.Equal(t, "8", got[0].ID)
	assert.Equal(t, models.SizeMedium, got[0].Size)
	assert.Equal(t, []string{"5", "4"}, []string{got[1].ID, got[2].ID})

	// no medium match, so catalog order holds
	got = c.SuggestSimilar("bbq", models.SizeMedium)
	require.Len(t, got, 1)
	assert.Equal(t, "4", got[0].ID)

	got = c.Suggest("supreme", models.SizeLarge, "")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"3", "8"}, []string{got[0].ID, got[1].ID})
}

func TestSuggestSimilar_Deduplicates(t *testing.T) {
	c := newTestCatalog(t)
	got := c.SuggestSimilar("bbq chicken barbecue", "")
	seen := map[string]bool{}
	for _, it := range got {
		assert.False(t, seen[it.ID], "duplicate %s", it.ID)
		seen[it.ID] = true
	}
}

func TestSuggestFallback(t *testing.T) {
	c := newTestCatalog(t)

	for _, it := range c.SuggestFallback("something with meat please") {
		assert.Equal(t, models.CategoryNonVeg, it.Category)
	}
	for _, it := range c.SuggestFallback("a vegetarian one") {
		assert.Equal(t, models.CategoryVeg, it.Category)
	}
	got := c.SuggestFallback("surprise me")
	require.Len(t, got, 3)
	assert.Equal(t, c.All()[:3], got)
}

func TestSuggestForPreference(t *testing.T) {
	c := newTestCatalog(t)

	items, label := c.SuggestForPreference("spicy")
	assert.Equal(t, "spicy", label)
	require.Len(t, items, 1)
	assert.Equal(t, "Paneer Tikka", items[0].Name)

	items, label = c.SuggestForPreference("non-veg")
	assert.Equal(t, "non-vegetarian", label)
	assert.Len(t, items, 3)
}

func TestByCategory(t *testing.T) {
	c := newTestCatalog(t)
	assert.Len(t, c.ByCategory(models.CategoryVeg), 4)
	assert.Len(t, c.ByCategory(models.CategoryNonVeg), 4)
}

func TestSetAvailability(t *testing.T) {
	c := newTestCatalog(t)
	before := c.All()

	require.NoError(t, c.SetAvailability("4", false))
	it, ok := c.ByID("4")
	require.True(t, ok)
	assert.False(t, it.IsAvailable)
	assert.True(t, before[5].IsAvailable, "earlier snapshots are not mutated")

	err := c.SetAvailability("nope", true)
	assert.True(t, errors.Is(err, models.ErrItemNotFound))
}

func TestConcurrentReadsDuringToggle(t *testing.T) {
	c := newTestCatalog(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i == 0 {
					_ = c.SetAvailability("1", j%2 == 0)
					continue
				}
				_, ok := c.FindExact("Margherita", models.SizeLarge)
				assert.True(t, ok)
			}
		}(i)
	}
	wg.Wait()
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := NewCatalog(nil, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrValidation)

	bad := Default()
	bad[0].Price = 0
	_, err = NewCatalog(bad, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrValidation)

	dup := Default()
	dup[1].ID = dup[0].ID
	_, err = NewCatalog(dup, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestParseMenuYAML(t *testing.T) {
	data := []byte(`
items:
  - id: "x1"
    name: Truffle Shuffle
    size: extra large
    price: 15.5
    category: vegetarian
    description: Truffle oil and mushrooms
    ingredients: [truffle oil, mushrooms]
    aliases: [truffle]
    is_available: true
`)
	items, err := Parse(data)
	require.NoError(t, err)
	c, err := NewCatalog(items, zap.NewNop())
	require.NoError(t, err)

	got, ok := c.FindExact("truffle", models.SizeExtraLarge)
	require.True(t, ok)
	assert.Equal(t, models.CategoryVeg, got.Category)

	_, err = Parse([]byte("items: []"))
	assert.ErrorIs(t, err, models.ErrValidation)
}
