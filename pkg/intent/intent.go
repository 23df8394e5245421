package intent

import "github.com/example/pizzaplanet/pkg/models"

type Intent string

const (
	Greeting       Intent = "greeting"
	Menu           Intent = "menu"
	Order          Intent = "order"
	Confirm        Intent = "confirm"
	Track          Intent = "track"
	Recommendation Intent = "recommendation"
	Health         Intent = "health"
	Casual         Intent = "casual"
)

// All is the taxonomy in prompt order.
var All = []Intent{Greeting, Menu, Order, Confirm, Track, Recommendation, Health, Casual}

var actions = map[Intent]string{
	Greeting:       "greet",
	Menu:           "get_menu",
	Order:          "find_pizza",
	Confirm:        "confirm_order",
	Track:          "track_order",
	Recommendation: "get_suggestions",
	Health:         "health_check",
	Casual:         "none",
}

// aliases accepts the tool-style names models tend to answer with.
var aliases = map[string]Intent{
	"get_menu":        Menu,
	"find_pizza":      Order,
	"place_order":     Order,
	"confirm_order":   Confirm,
	"track_order":     Track,
	"get_suggestions": Recommendation,
	"recommend":       Recommendation,
	"general_chat":    Casual,
	"chat":            Casual,
	"greet":           Greeting,
}

// Action is the tool name the router runs for an intent.
func (i Intent) Action() string {
	if a, ok := actions[i]; ok {
		return a
	}
	return actions[Casual]
}

func Parse(s string) (Intent, bool) {
	if _, ok := actions[Intent(s)]; ok {
		return Intent(s), true
	}
	if i, ok := aliases[s]; ok {
		return i, true
	}
	return "", false
}

// Context is what the classifier knows about the speaker.
type Context struct {
	UserID    string
	UserEmail string
	UserName  string
}

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Result is a classified utterance. ExtractedName is a lower-cased menu
// name or alias, empty when none was recognized.
type Result struct {
	Intent        Intent      `json:"intent"`
	Action        string      `json:"action"`
	Category      string      `json:"category,omitempty"`
	ExtractedName string      `json:"extracted_name,omitempty"`
	ExtractedSize models.Size `json:"extracted_size,omitempty"`
	OrderID       string      `json:"order_id,omitempty"`
	Preference    string      `json:"preference,omitempty"`
	Confidence    float64     `json:"confidence"`
	Source        string      `json:"source"`
}
