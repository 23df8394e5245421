package menu

import (
	"fmt"
	"os"

	"github.com/example/pizzaplanet/pkg/models"
	"gopkg.in/yaml.v3"
)

// Default is the built-in Pizza Planet menu.
func Default() []models.MenuItem {
	return []models.MenuItem{
		{
			ID: "1", Name: "Margherita", Size: models.SizeLarge, Price: 8.99, Category: models.CategoryVeg,
			Description: "Fresh tomato sauce, mozzarella, and basil",
			Ingredients: []string{"tomato sauce", "mozzarella", "basil"},
			Aliases:     []string{"margherita", "margarita", "classic"},
			IsAvailable: true,
		},
		{
			ID: "3", Name: "Veggie Supreme", Size: models.SizeMedium, Price: 9.25, Category: models.CategoryVeg,
			Description: "Bell peppers, mushrooms, onions, olives, and tomatoes",
			Ingredients: []string{"bell peppers", "mushrooms", "onions", "olives", "tomatoes"},
			Aliases:     []string{"veggie", "vegetable", "veg supreme"},
			IsAvailable: true,
		},
		{
			ID: "5", Name: "Paneer Tikka", Size: models.SizeLarge, Price: 11.25, Category: models.CategoryVeg,
			Description: "Spiced paneer, bell peppers, onions, and tikka sauce",
			Ingredients: []string{"paneer", "bell peppers", "onions", "tikka sauce", "spices"},
			Aliases:     []string{"paneer", "paneer tikka", "indian"},
			IsAvailable: true,
		},
		{
			ID: "7", Name: "Mushroom Delight", Size: models.SizeSmall, Price: 7.99, Category: models.CategoryVeg,
			Description: "Mixed mushrooms, garlic, herbs, and cheese",
			Ingredients: []string{"mushrooms", "garlic", "herbs", "cheese"},
			Aliases:     []string{"mushroom", "fungi"},
			IsAvailable: true,
		},
		{
			ID: "2", Name: "Pepperoni Classic", Size: models.SizeMedium, Price: 10.49, Category: models.CategoryNonVeg,
			Description: "Classic pepperoni with mozzarella cheese",
			Ingredients: []string{"pepperoni", "mozzarella cheese"},
			Aliases:     []string{"pepperoni", "classic pepperoni"},
			IsAvailable: true,
		},
		{
			ID: "4", Name: "BBQ Chicken", Size: models.SizeLarge, Price: 12.99, Category: models.CategoryNonVeg,
			Description: "BBQ sauce, grilled chicken, red onions, and cilantro",
			Ingredients: []string{"BBQ sauce", "grilled chicken", "red onions", "cilantro"},
			Aliases:     []string{"bbq", "bbq chicken", "chicken bbq", "barbecue"},
			IsAvailable: true,
		},
		{
			ID: "6", Name: "Meat Lovers", Size: models.SizeLarge, Price: 14.99, Category: models.CategoryNonVeg,
			Description: "Pepperoni, sausage, ham, and bacon",
			Ingredients: []string{"pepperoni", "sausage", "ham", "bacon"},
			Aliases:     []string{"meat lovers", "meat", "carnivore"},
			IsAvailable: true,
		},
		{
			ID: "8", Name: "Chicken Supreme", Size: models.SizeMedium, Price: 11.99, Category: models.CategoryNonVeg,
			Description: "Grilled chicken, mushrooms, peppers, and onions",
			Ingredients: []string{"grilled chicken", "mushrooms", "peppers", "onions"},
			Aliases:     []string{"chicken supreme", "chicken", "supreme"},
			IsAvailable: true,
		},
	}
}

type menuFile struct {
	Items []models.MenuItem `yaml:"items"`
}

// LoadFile reads a YAML menu of the form `items: [...]`. An empty path
// yields the default menu.
func LoadFile(path string) ([]models.MenuItem, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]models.MenuItem, error) {
	var f menuFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse menu: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, models.NewValidationError("menu file contains no items")
	}
	return f.Items, nil
}
